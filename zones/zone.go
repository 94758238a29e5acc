package zones

import (
	"math"
	"slices"

	"terminus-realm/mapgen/models"
)

// Zone is a region of the map grown around a centre
type Zone struct {
	ID      int
	Owner   int
	Terrain models.Terrain
	Level   int
	Target  int
	Center  models.Position

	neighbors []int
	tiles     []models.Position
}

// Radius is the radius of a disc holding the zone's target size
func (z *Zone) Radius() float64 {
	r := math.Sqrt(float64(z.Target) / math.Pi)
	if r < 1 {
		return 1
	}
	return r
}

// Neighbors returns the connected zone ids in ascending order
func (z *Zone) Neighbors() []int {
	return slices.Clone(z.neighbors)
}

// ConnectedTo reports whether the template connects z with zone id
func (z *Zone) ConnectedTo(id int) bool {
	_, found := slices.BinarySearch(z.neighbors, id)
	return found
}

// Tiles returns the owned tiles in claim order
func (z *Zone) Tiles() []models.Position {
	return slices.Clone(z.tiles)
}

// Size is the number of owned tiles
func (z *Zone) Size() int {
	return len(z.tiles)
}

// RecordTile appends a claimed tile. The grid stays the source of truth for
// ownership; this only mirrors claims made through the fill pipeline.
func (z *Zone) RecordTile(p models.Position) {
	z.tiles = append(z.tiles, p)
}

// MoveCenter relocates the centre before the zone owns any tile
func (z *Zone) MoveCenter(p models.Position) bool {
	if len(z.tiles) > 0 {
		return false
	}
	z.Center = p
	return true
}

// HasOwner reports whether a player owns the zone
func (z *Zone) HasOwner() bool {
	return z.Owner != NoOwner
}

func (z *Zone) link(id int) {
	if i, found := slices.BinarySearch(z.neighbors, id); !found {
		z.neighbors = slices.Insert(z.neighbors, i, id)
	}
}

// Graph is the arena of zones of one run, indexed by zone id
type Graph struct {
	zones       []Zone
	index       map[int]int
	connections []Connection
}

func newGraph(n int) *Graph {
	return &Graph{
		zones: make([]Zone, 0, n),
		index: make(map[int]int, n),
	}
}

// add appends z, keeping the arena sorted by id. Only valid while building.
func (g *Graph) add(z Zone) {
	i, _ := slices.BinarySearchFunc(g.zones, z.ID, func(e Zone, id int) int { return e.ID - id })
	g.zones = slices.Insert(g.zones, i, z)
	for j := i; j < len(g.zones); j++ {
		g.index[g.zones[j].ID] = j
	}
}

func (g *Graph) connect(c Connection) {
	c = c.Normalized()
	g.zones[g.index[c.A]].link(c.B)
	g.zones[g.index[c.B]].link(c.A)
	i, found := slices.BinarySearchFunc(g.connections, c, compareConnections)
	if !found {
		g.connections = slices.Insert(g.connections, i, c)
	}
}

func compareConnections(a, b Connection) int {
	if a.A != b.A {
		return a.A - b.A
	}
	return a.B - b.B
}

// Len is the number of zones
func (g *Graph) Len() int {
	return len(g.zones)
}

// Zone returns the zone with id
func (g *Graph) Zone(id int) (*Zone, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.zones[i], true
}

// Zones returns every zone in ascending id order
func (g *Graph) Zones() []*Zone {
	out := make([]*Zone, len(g.zones))
	for i := range g.zones {
		out[i] = &g.zones[i]
	}
	return out
}

// Connections returns the normalised connections sorted by (A, B)
func (g *Graph) Connections() []Connection {
	return slices.Clone(g.connections)
}

// OwnedBy returns the zones owned by player in ascending id order
func (g *Graph) OwnedBy(player int) []*Zone {
	var out []*Zone
	for i := range g.zones {
		if g.zones[i].Owner == player {
			out = append(out, &g.zones[i])
		}
	}
	return out
}
