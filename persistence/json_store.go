package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/models"
)

// JSONStore handles map persistence using a local JSON file
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	data     *JSONData
}

// JSONData represents the structure of the JSON database
type JSONData struct {
	Maps map[string]*models.GameMap `json:"maps"`
}

// NewJSONStore creates a new JSON storage manager
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data: &JSONData{
			Maps: make(map[string]*models.GameMap),
		},
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load JSON store: %w", err)
		}
	} else {
		if err := store.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create JSON store file: %w", err)
		}
	}

	logger.Log.WithField("file", filePath).Info("JSON store opened")
	return store, nil
}

// loadFromFile loads data from the JSON file
func (js *JSONStore) loadFromFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	file, err := os.ReadFile(js.filePath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(file, js.data); err != nil {
		return err
	}
	if js.data.Maps == nil {
		js.data.Maps = make(map[string]*models.GameMap)
	}
	return nil
}

// saveToFile saves data to the JSON file
func (js *JSONStore) saveToFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	data, err := json.MarshalIndent(js.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(js.filePath, data, 0644)
}

// SaveMap saves a map under its id
func (js *JSONStore) SaveMap(gameMap *models.GameMap) error {
	if gameMap.ID == "" {
		return fmt.Errorf("failed to save map: missing id")
	}

	js.mutex.Lock()
	previous, existed := js.data.Maps[gameMap.ID]
	js.data.Maps[gameMap.ID] = gameMap
	js.mutex.Unlock()

	if err := js.saveToFile(); err != nil {
		js.mutex.Lock()
		if existed {
			js.data.Maps[gameMap.ID] = previous
		} else {
			delete(js.data.Maps, gameMap.ID)
		}
		js.mutex.Unlock()
		return fmt.Errorf("failed to save map %s: %w", gameMap.ID, err)
	}
	return nil
}

// LoadMap loads a map by id
func (js *JSONStore) LoadMap(id string) (*models.GameMap, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	gameMap, exists := js.data.Maps[id]
	if !exists {
		return nil, fmt.Errorf("map with ID %s: %w", id, ErrMapNotFound)
	}

	return gameMap, nil
}

// ListMaps returns summaries of every stored map, newest first
func (js *JSONStore) ListMaps() ([]models.MapSummary, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	out := make([]models.MapSummary, 0, len(js.data.Maps))
	for _, m := range js.data.Maps {
		out = append(out, m.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// Close closes the store (no-op for JSON store)
func (js *JSONStore) Close() error {
	return nil
}
