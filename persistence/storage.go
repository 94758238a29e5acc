package persistence

import (
	"errors"

	"terminus-realm/mapgen/models"
)

// ErrMapNotFound is returned when no map is stored under an id
var ErrMapNotFound = errors.New("map not found")

// Storage defines the interface for generated map persistence
type Storage interface {
	SaveMap(gameMap *models.GameMap) error
	LoadMap(id string) (*models.GameMap, error)
	// ListMaps returns the stored maps, newest first
	ListMaps() ([]models.MapSummary, error)
	Close() error
}
