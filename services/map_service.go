package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/messages"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/persistence"
	"terminus-realm/mapgen/zones"
)

const (
	// DefaultViewRadius is used when a view request leaves the radius unset
	DefaultViewRadius = 10
	MaxViewRadius     = 64
)

// MapService generates, stores and serves maps
type MapService struct {
	db         persistence.Storage
	maps       map[string]*models.GameMap
	maxRetries int
	mapMutex   sync.RWMutex
}

// NewMapService creates a new map service
func NewMapService(db persistence.Storage, maxRetries int) *MapService {
	return &MapService{
		db:         db,
		maps:       make(map[string]*models.GameMap),
		maxRetries: maxRetries,
	}
}

// OptionsFromRequest converts a generate request into generator options
func OptionsFromRequest(req messages.GenerateMessage) (GenerationOptions, error) {
	difficulty, err := models.ParseDifficulty(req.Difficulty)
	if err != nil {
		return GenerationOptions{}, models.NewGenerationError(models.FailureInvalidInput, "%v", err)
	}

	if req.Zones < 0 || req.Zones > zones.MaxZones {
		return GenerationOptions{}, models.NewGenerationError(models.FailureInvalidInput,
			"%d zones, expected 0..%d", req.Zones, zones.MaxZones)
	}
	if req.Players < 0 || req.Players > MaxPlayers {
		return GenerationOptions{}, models.NewGenerationError(models.FailureInvalidInput,
			"%d players, expected 1..%d", req.Players, MaxPlayers)
	}

	tmpl := req.Template
	if tmpl == nil {
		zoneCount := req.Zones
		if zoneCount == 0 {
			zoneCount = 2 * req.Players
		}
		tmpl = zones.DefaultTemplate(zoneCount, req.Players, req.Underground)
	}

	return GenerationOptions{
		Width:       req.Width,
		Height:      req.Height,
		Underground: req.Underground,
		Players:     req.Players,
		Difficulty:  difficulty,
		Template:    tmpl,
		Victory:     req.Victory,
		Loss:        req.Loss,
	}, nil
}

// Generate runs a generator for the request, then stores the map.
// Concurrent calls each get their own generator.
func (ms *MapService) Generate(req messages.GenerateMessage) (*models.GameMap, error) {
	opts, err := OptionsFromRequest(req)
	if err != nil {
		return nil, err
	}

	var gen *MapGenerator
	if req.Seed != nil {
		gen = NewMapGenerator(opts, *req.Seed, WithRetries(ms.maxRetries))
	} else {
		gen = NewMapGeneratorFromClock(opts, WithRetries(ms.maxRetries))
	}

	gameMap, err := gen.Generate()
	if err != nil {
		return nil, err
	}
	gameMap.ID = uuid.New().String()
	gameMap.CreatedAt = time.Now().UTC()

	if err := ms.db.SaveMap(gameMap); err != nil {
		return nil, fmt.Errorf("failed to store map: %w", err)
	}

	ms.mapMutex.Lock()
	ms.maps[gameMap.ID] = gameMap
	ms.mapMutex.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"id":   gameMap.ID,
		"seed": gameMap.Seed,
		"size": fmt.Sprintf("%dx%dx%d", gameMap.Width, gameMap.Height, gameMap.Depth),
	}).Info("Map stored")

	return gameMap, nil
}

// Load returns a map from the cache, falling back to storage
func (ms *MapService) Load(id string) (*models.GameMap, error) {
	ms.mapMutex.RLock()
	gameMap, ok := ms.maps[id]
	ms.mapMutex.RUnlock()
	if ok {
		return gameMap, nil
	}

	gameMap, err := ms.db.LoadMap(id)
	if err != nil {
		return nil, err
	}

	ms.mapMutex.Lock()
	ms.maps[id] = gameMap
	ms.mapMutex.Unlock()

	return gameMap, nil
}

// List returns the stored maps, newest first
func (ms *MapService) List() ([]models.MapSummary, error) {
	return ms.db.ListMaps()
}

// View returns the square terrain window of the given radius around (x, y)
// on one level. Cells off the map read as rock.
func (ms *MapService) View(id string, level, x, y, radius int) (*messages.MapViewMessage, error) {
	gameMap, err := ms.Load(id)
	if err != nil {
		return nil, err
	}
	if level < 0 || level >= gameMap.Depth {
		return nil, fmt.Errorf("level %d outside map with %d levels", level, gameMap.Depth)
	}
	if radius <= 0 {
		radius = DefaultViewRadius
	}
	if radius > MaxViewRadius {
		radius = MaxViewRadius
	}

	viewDiameter := radius*2 + 1
	tiles := make([][]models.Terrain, viewDiameter)
	for i := 0; i < viewDiameter; i++ {
		tiles[i] = make([]models.Terrain, viewDiameter)
		for j := 0; j < viewDiameter; j++ {
			tiles[i][j] = gameMap.TerrainAt(models.Position{
				X: x - radius + j,
				Y: y - radius + i,
				Z: level,
			})
		}
	}

	return &messages.MapViewMessage{
		ID:      id,
		Level:   level,
		CenterX: x,
		CenterY: y,
		Radius:  radius,
		Tiles:   tiles,
	}, nil
}
