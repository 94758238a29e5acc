package models

import "time"

// Terrain identifies the ground type painted on a tile
type Terrain int

// Terrain types represented as integers for memory efficiency
const (
	TerrainRock Terrain = iota
	TerrainDirt
	TerrainSand
	TerrainGrass
	TerrainSnow
	TerrainSwamp
	TerrainRough
	TerrainLava
	TerrainSubterranean
	TerrainWater
)

var terrainNames = map[Terrain]string{
	TerrainRock:         "rock",
	TerrainDirt:         "dirt",
	TerrainSand:         "sand",
	TerrainGrass:        "grass",
	TerrainSnow:         "snow",
	TerrainSwamp:        "swamp",
	TerrainRough:        "rough",
	TerrainLava:         "lava",
	TerrainSubterranean: "subterranean",
	TerrainWater:        "water",
}

func (t Terrain) String() string {
	if name, ok := terrainNames[t]; ok {
		return name
	}
	return "unknown"
}

// Position addresses a single tile. Z is the map level, 0 is the surface.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// GameMap is a fully generated map
type GameMap struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Template    string           `json:"template"`
	Seed        int64            `json:"seed"`
	Difficulty  Difficulty       `json:"difficulty"`
	Victory     string           `json:"victory"`
	Loss        string           `json:"loss"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Depth       int              `json:"depth"` // 1, or 2 with an underground level
	Tiles       [][][]Terrain    `json:"tiles"`  // [z][y][x]
	Owners      [][][]int        `json:"owners"` // zone id per tile, 0 for blocked
	Zones       []ZoneInfo       `json:"zones"`
	Players     []PlayerInfo     `json:"players"`
	Connections []ConnectionInfo `json:"connections"`
	CreatedAt   time.Time        `json:"created_at,omitempty"`
}

// TerrainAt returns the terrain at p, or rock when p is off the map
func (m *GameMap) TerrainAt(p Position) Terrain {
	if p.Z < 0 || p.Z >= len(m.Tiles) {
		return TerrainRock
	}
	if p.Y < 0 || p.Y >= len(m.Tiles[p.Z]) {
		return TerrainRock
	}
	row := m.Tiles[p.Z][p.Y]
	if p.X < 0 || p.X >= len(row) {
		return TerrainRock
	}
	return row[p.X]
}

// ZoneInfo summarises one generated zone
type ZoneInfo struct {
	ID      int      `json:"id"`
	Owner   int      `json:"owner"` // -1 when no player owns the zone
	Terrain Terrain  `json:"terrain"`
	Center  Position `json:"center"`
	Target  int      `json:"target"`
	Size    int      `json:"size"`
}

// PlayerInfo holds a player's starting data
type PlayerInfo struct {
	Player    int      `json:"player"`
	StartZone int      `json:"start_zone"`
	Start     Position `json:"start"`
	Zones     []int    `json:"zones"`
}

// ConnectionKind tells how two connected zones meet on the map
type ConnectionKind string

const (
	ConnectionAdjacent ConnectionKind = "adjacent"
	ConnectionStacked  ConnectionKind = "stacked"
	ConnectionPortal   ConnectionKind = "portal"
)

// ConnectionInfo records where a required zone connection was realised
type ConnectionInfo struct {
	A    int            `json:"a"`
	B    int            `json:"b"`
	Kind ConnectionKind `json:"kind"`
	From Position       `json:"from"` // tile owned by A
	To   Position       `json:"to"`   // tile owned by B
}

// MapSummary is the listing view of a stored map
type MapSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Seed      int64     `json:"seed"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the listing view of the map
func (m *GameMap) Summary() MapSummary {
	return MapSummary{
		ID:        m.ID,
		Name:      m.Name,
		Seed:      m.Seed,
		Width:     m.Width,
		Height:    m.Height,
		Depth:     m.Depth,
		CreatedAt: m.CreatedAt,
	}
}
