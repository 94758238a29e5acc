package zones

import (
	"fmt"

	"terminus-realm/mapgen/models"
)

// NoOwner marks a zone no player owns
const NoOwner = -1

// DefaultSeparation is the spacing factor used when a template leaves it unset
const DefaultSeparation = 0.5

// MaxZones bounds the number of zones in a template
const MaxZones = 64

// ZoneTemplate describes one zone the generator has to place
type ZoneTemplate struct {
	ID          int            `json:"id"`
	Size        int            `json:"size"`  // relative weight
	Owner       int            `json:"owner"` // player index, or NoOwner
	Terrain     models.Terrain `json:"terrain"`
	Underground bool           `json:"underground"`
}

// Connection requires two zones to meet on the finished map
type Connection struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Normalized returns the connection with A < B
func (c Connection) Normalized() Connection {
	if c.A > c.B {
		return Connection{A: c.B, B: c.A}
	}
	return c
}

// Template is the abstract zone layout of a map
type Template struct {
	Name        string         `json:"name"`
	Zones       []ZoneTemplate `json:"zones"`
	Connections []Connection   `json:"connections"`
	// Separation scales the minimum distance between zone centres,
	// relative to the sum of their radii
	Separation float64 `json:"separation"`
	// Obstacles is the density of impassable rock in (0, 1], 0 for none
	Obstacles float64 `json:"obstacles"`
}

var surfaceTerrains = []models.Terrain{
	models.TerrainGrass,
	models.TerrainDirt,
	models.TerrainSand,
	models.TerrainSnow,
	models.TerrainSwamp,
	models.TerrainRough,
	models.TerrainLava,
}

// DefaultTemplate builds a ring of zoneCount equally sized zones. The first
// players zones are owned one per player. With underground set, every other
// neutral zone goes below the surface.
func DefaultTemplate(zoneCount, players int, underground bool) *Template {
	t := &Template{
		Name:       fmt.Sprintf("Ring %dP%dZ", players, zoneCount),
		Separation: DefaultSeparation,
	}

	neutral := 0
	for i := 0; i < zoneCount; i++ {
		zt := ZoneTemplate{
			ID:      i + 1,
			Size:    1,
			Owner:   NoOwner,
			Terrain: surfaceTerrains[i%len(surfaceTerrains)],
		}
		if i < players {
			zt.Owner = i
			zt.Size = 2
		} else {
			if underground && neutral%2 == 1 {
				zt.Underground = true
				zt.Terrain = models.TerrainSubterranean
			}
			neutral++
		}
		t.Zones = append(t.Zones, zt)
	}

	if zoneCount == 2 {
		t.Connections = []Connection{{A: 1, B: 2}}
	} else if zoneCount > 2 {
		for i := 1; i <= zoneCount; i++ {
			t.Connections = append(t.Connections, Connection{A: i, B: i%zoneCount + 1})
		}
	}

	return t
}

// Validate checks the template against the player count
func (t *Template) Validate(players int) error {
	if t == nil {
		return models.NewGenerationError(models.FailureInvalidInput, "no template")
	}
	if len(t.Zones) == 0 {
		return models.NewGenerationError(models.FailureInvalidInput, "template %q has no zones", t.Name)
	}
	if len(t.Zones) > MaxZones {
		return models.NewGenerationError(models.FailureInvalidInput,
			"template %q has %d zones, at most %d", t.Name, len(t.Zones), MaxZones)
	}
	if t.Separation < 0 {
		return models.NewGenerationError(models.FailureInvalidInput, "negative separation %g", t.Separation)
	}
	if t.Obstacles < 0 || t.Obstacles > 1 {
		return models.NewGenerationError(models.FailureInvalidInput, "obstacle density %g outside 0..1", t.Obstacles)
	}

	ids := make(map[int]bool, len(t.Zones))
	owned := make([]bool, players)
	for _, z := range t.Zones {
		if z.ID <= 0 {
			return models.NewGenerationError(models.FailureInvalidInput, "zone id %d must be positive", z.ID)
		}
		if ids[z.ID] {
			return models.NewGenerationError(models.FailureInvalidInput, "duplicate zone id %d", z.ID)
		}
		ids[z.ID] = true

		if z.Size <= 0 {
			return models.NewGenerationError(models.FailureInvalidInput, "zone %d has size %d", z.ID, z.Size)
		}
		if z.Owner != NoOwner {
			if z.Owner < 0 || z.Owner >= players {
				return models.NewGenerationError(models.FailureInvalidInput,
					"zone %d is owned by player %d, only %d players", z.ID, z.Owner, players)
			}
			if z.Underground {
				return models.NewGenerationError(models.FailureInvalidInput,
					"player zone %d cannot be underground", z.ID)
			}
			owned[z.Owner] = true
		}
	}

	for p, ok := range owned {
		if !ok {
			return models.NewGenerationError(models.FailureInvalidInput, "player %d owns no zone", p)
		}
	}

	seen := make(map[Connection]bool, len(t.Connections))
	for _, c := range t.Connections {
		if !ids[c.A] || !ids[c.B] {
			return models.NewGenerationError(models.FailureInvalidInput, "connection %d-%d names an unknown zone", c.A, c.B)
		}
		if c.A == c.B {
			return models.NewGenerationError(models.FailureInvalidInput, "zone %d is connected to itself", c.A)
		}
		n := c.Normalized()
		if seen[n] {
			return models.NewGenerationError(models.FailureInvalidInput, "duplicate connection %d-%d", n.A, n.B)
		}
		seen[n] = true
	}

	return nil
}
