package messages

import (
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/zones"
)

// MessageType defines the type of message being sent
type MessageType string

const (
	MessageTypeGenerate     MessageType = "generate"
	MessageTypeGenerated    MessageType = "generated"
	MessageTypeLoadMap      MessageType = "load_map"
	MessageTypeMap          MessageType = "map"
	MessageTypeListMaps     MessageType = "list_maps"
	MessageTypeMapList      MessageType = "map_list"
	MessageTypeView         MessageType = "view"
	MessageTypeMapView      MessageType = "map_view"
	MessageTypeMapAnnounced MessageType = "map_announced"
	MessageTypeError        MessageType = "error"
)

// BaseMessage is the base structure for all messages
type BaseMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// GenerateMessage requests a new map. Without a template a ring of Zones
// zones is used; without a seed the server clock picks one.
type GenerateMessage struct {
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Underground bool            `json:"underground"`
	Players     int             `json:"players"`
	Zones       int             `json:"zones,omitempty"`
	Difficulty  string          `json:"difficulty,omitempty"`
	Seed        *int64          `json:"seed,omitempty"`
	Template    *zones.Template `json:"template,omitempty"`
	Victory     string          `json:"victory,omitempty"`
	Loss        string          `json:"loss,omitempty"`
}

// MapMessage carries a complete map, as the reply to generate and load_map
type MapMessage struct {
	Map *models.GameMap `json:"map"`
}

// LoadMapMessage requests a stored map
type LoadMapMessage struct {
	ID string `json:"id"`
}

// MapListMessage lists the stored maps
type MapListMessage struct {
	Maps []models.MapSummary `json:"maps"`
}

// ViewMessage requests a square terrain window of a stored map
type ViewMessage struct {
	ID     string `json:"id"`
	Level  int    `json:"level"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Radius int    `json:"radius"`
}

// MapViewMessage is a terrain window, rows first
type MapViewMessage struct {
	ID      string             `json:"id"`
	Level   int                `json:"level"`
	CenterX int                `json:"center_x"`
	CenterY int                `json:"center_y"`
	Radius  int                `json:"radius"`
	Tiles   [][]models.Terrain `json:"tiles"`
}

// MapAnnouncedMessage tells other clients a map was generated
type MapAnnouncedMessage struct {
	Map models.MapSummary `json:"map"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
