package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/models"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore handles map persistence using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL storage manager
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema initializes the database schema
func (dm *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		template TEXT NOT NULL,
		seed BIGINT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		depth INTEGER NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS maps_created_at_idx ON maps (created_at DESC);
	`

	_, err := dm.db.Exec(schema)
	return err
}

// SaveMap saves a map to the database
func (dm *PostgresStore) SaveMap(gameMap *models.GameMap) error {
	data, err := json.Marshal(gameMap)
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}

	query := `
	INSERT INTO maps (id, name, template, seed, width, height, depth, data, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id)
	DO UPDATE SET
		name = $2, template = $3, seed = $4,
		width = $5, height = $6, depth = $7, data = $8
	`

	_, err = dm.db.Exec(query,
		gameMap.ID, gameMap.Name, gameMap.Template, gameMap.Seed,
		gameMap.Width, gameMap.Height, gameMap.Depth,
		string(data), gameMap.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save map: %w", err)
	}

	return nil
}

// LoadMap loads a map from the database by id
func (dm *PostgresStore) LoadMap(id string) (*models.GameMap, error) {
	var data string

	err := dm.db.QueryRow(`SELECT data FROM maps WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("map with ID %s: %w", id, ErrMapNotFound)
		}
		return nil, fmt.Errorf("failed to load map: %w", err)
	}

	var gameMap models.GameMap
	if err := json.Unmarshal([]byte(data), &gameMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal map: %w", err)
	}

	return &gameMap, nil
}

// ListMaps returns summaries of the stored maps, newest first
func (dm *PostgresStore) ListMaps() ([]models.MapSummary, error) {
	rows, err := dm.db.Query(`SELECT id, name, seed, width, height, depth, created_at FROM maps ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}
	defer rows.Close()

	var out []models.MapSummary
	for rows.Next() {
		var s models.MapSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Seed, &s.Width, &s.Height, &s.Depth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan map row: %w", err)
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// Close closes the database connection
func (dm *PostgresStore) Close() error {
	logger.Log.Info("Closing database connection...")
	return dm.db.Close()
}
