package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminus-realm/mapgen/fill"
	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/random"
	"terminus-realm/mapgen/zones"
)

func init() {
	logger.Silence()
}

func ringOptions(w, h, zoneCount, players int, underground bool) GenerationOptions {
	return GenerationOptions{
		Width:       w,
		Height:      h,
		Underground: underground,
		Players:     players,
		Difficulty:  models.DifficultyNormal,
		Template:    zones.DefaultTemplate(zoneCount, players, underground),
	}
}

// assertWellFormed checks the invariants every generated map must hold
func assertWellFormed(t *testing.T, m *models.GameMap, opts GenerationOptions) {
	t.Helper()

	require.Len(t, m.Tiles, opts.levels())
	require.Len(t, m.Owners, opts.levels())

	sizes := map[int]int{}
	for z := range m.Owners {
		require.Len(t, m.Owners[z], opts.Height)
		for y := range m.Owners[z] {
			require.Len(t, m.Owners[z][y], opts.Width)
			for x, id := range m.Owners[z][y] {
				edge := x == 0 || y == 0 || x == opts.Width-1 || y == opts.Height-1
				if edge {
					assert.Zero(t, id, "edge tile (%d,%d,%d) is never claimed", x, y, z)
				}
				if id == 0 {
					assert.Equal(t, models.TerrainRock, m.Tiles[z][y][x])
					continue
				}
				sizes[id]++
			}
		}
	}

	require.Len(t, m.Zones, len(opts.Template.Zones))
	for _, zi := range m.Zones {
		assert.Positive(t, zi.Size, "zone %d is empty", zi.ID)
		assert.Equal(t, zi.Size, sizes[zi.ID], "zone %d size matches the ownership layer", zi.ID)
		assert.Equal(t, zi.ID, m.Owners[zi.Center.Z][zi.Center.Y][zi.Center.X], "zone %d owns its centre", zi.ID)
	}

	require.Len(t, m.Players, opts.Players)
	for _, p := range m.Players {
		assert.NotEmpty(t, p.Zones)
		assert.Equal(t, p.Zones[0], p.StartZone)
		assert.Equal(t, p.StartZone, m.Owners[p.Start.Z][p.Start.Y][p.Start.X])
	}

	require.Len(t, m.Connections, len(opts.Template.Connections))
	for _, c := range m.Connections {
		assert.Equal(t, c.A, m.Owners[c.From.Z][c.From.Y][c.From.X])
		assert.Equal(t, c.B, m.Owners[c.To.Z][c.To.Y][c.To.X])
	}
}

func TestGenerateRingScenario(t *testing.T) {
	opts := ringOptions(36, 36, 4, 2, false)

	m, err := NewMapGenerator(opts, 12345).Generate()
	require.NoError(t, err)

	assert.Equal(t, 36, m.Width)
	assert.Equal(t, 36, m.Height)
	assert.Equal(t, 1, m.Depth)
	assert.Equal(t, "Ring 2P4Z", m.Template)
	assertWellFormed(t, m, opts)

	owners := map[int]int{}
	for _, zi := range m.Zones {
		if zi.Owner != zones.NoOwner {
			owners[zi.Owner]++
		}
	}
	assert.Equal(t, 1, owners[0])
	assert.Equal(t, 1, owners[1])
	assert.Equal(t, 1, m.Players[0].StartZone)
	assert.Equal(t, 2, m.Players[1].StartZone)
}

func TestGenerateIsDeterministic(t *testing.T) {
	opts := ringOptions(36, 36, 4, 2, false)

	m1, err := NewMapGenerator(opts, 99).Generate()
	require.NoError(t, err)
	m2, err := NewMapGenerator(opts, 99).Generate()
	require.NoError(t, err)

	assert.Equal(t, m1.Description, m2.Description)
	assert.Equal(t, m1, m2)

	m3, err := NewMapGenerator(opts, 100).Generate()
	require.NoError(t, err)
	assert.NotEqual(t, m1.Description, m3.Description)
}

func TestGenerateHeader(t *testing.T) {
	opts := ringOptions(36, 36, 4, 2, false)
	opts.Difficulty = models.DifficultyHard
	opts.Victory = "Capture the castle"

	m, err := NewMapGenerator(opts, 7).Generate()
	require.NoError(t, err)

	assert.Equal(t, "Random map 36x36 (Ring 2P4Z)", m.Name)
	assert.Contains(t, m.Description, "Template was Ring 2P4Z")
	assert.Contains(t, m.Description, "size 36x36")
	assert.Contains(t, m.Description, "players 2")
	assert.Contains(t, m.Description, "difficulty hard")
	assert.Equal(t, models.DifficultyHard, m.Difficulty)
	assert.Equal(t, "Capture the castle", m.Victory)
	assert.Equal(t, DefaultLoss, m.Loss)
	assert.Empty(t, m.ID, "ids are stamped by the map service")
	assert.True(t, m.CreatedAt.IsZero())
}

func TestGenerateUnderground(t *testing.T) {
	opts := ringOptions(40, 40, 6, 2, true)

	m, err := NewMapGenerator(opts, 2024).Generate()
	require.NoError(t, err)

	assert.Equal(t, 2, m.Depth)
	assert.Contains(t, m.Description, "surface and underground")
	assertWellFormed(t, m, opts)

	for _, zi := range m.Zones {
		if zi.Terrain == models.TerrainSubterranean {
			assert.Equal(t, 1, zi.Center.Z, "zone %d lives underground", zi.ID)
		}
	}
}

func TestGenerateWithObstacles(t *testing.T) {
	opts := ringOptions(48, 48, 4, 2, false)
	opts.Template.Obstacles = 0.3

	m, err := NewMapGenerator(opts, 31).Generate()
	require.NoError(t, err)
	assertWellFormed(t, m, opts)

	interiorRock := 0
	for y := 1; y < 47; y++ {
		for x := 1; x < 47; x++ {
			if m.Owners[0][y][x] == 0 {
				interiorRock++
			}
		}
	}
	assert.Positive(t, interiorRock)
}

func TestGenerateOverSeparatedTemplateFails(t *testing.T) {
	opts := ringOptions(36, 36, 5, 2, false)
	opts.Template.Separation = 10

	m, err := NewMapGenerator(opts, 1, WithRetries(2), WithPlacementAttempts(100)).Generate()

	assert.Nil(t, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrPlacementExhausted)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestGenerateRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GenerationOptions)
	}{
		{"too narrow", func(o *GenerationOptions) { o.Width = 2 }},
		{"too tall", func(o *GenerationOptions) { o.Height = MaxMapSize + 1 }},
		{"no players", func(o *GenerationOptions) { o.Players = 0 }},
		{"too many players", func(o *GenerationOptions) { o.Players = MaxPlayers + 1 }},
		{"no template", func(o *GenerationOptions) { o.Template = nil }},
		{"player without zone", func(o *GenerationOptions) { o.Players = 3 }},
		{"difficulty out of range", func(o *GenerationOptions) { o.Difficulty = 42 }},
		{"negative difficulty", func(o *GenerationOptions) { o.Difficulty = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ringOptions(36, 36, 4, 2, false)
			tt.mutate(&opts)

			m, err := NewMapGenerator(opts, 1).Generate()
			assert.Nil(t, m)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

type failingContent struct{}

func (failingContent) Grow(fill.View, *random.Service) error { return errors.New("no room for towns") }
func (failingContent) Region() []models.Position             { return nil }
func (failingContent) Connectors() map[int]models.Position   { return nil }

func TestGenerateDoesNotRetryContentFailures(t *testing.T) {
	calls := 0
	factory := func(*zones.Zone, *zones.Graph) fill.ZoneContent {
		calls++
		return failingContent{}
	}

	m, err := NewMapGenerator(ringOptions(36, 36, 4, 2, false), 5, WithContent(factory)).Generate()

	assert.Nil(t, m)
	assert.ErrorIs(t, err, models.ErrContentAborted)
	assert.Equal(t, 1, calls, "aborted content is not retried")
}

// stuckContent fails the way an unreachable neighbour does
type stuckContent struct{ failingContent }

func (stuckContent) Grow(fill.View, *random.Service) error {
	return models.NewGenerationError(models.FailureConnectionUnsatisfied, "zone cannot reach its neighbour")
}

func TestGeneratorSeed(t *testing.T) {
	opts := ringOptions(36, 36, 4, 2, false)
	assert.Equal(t, int64(42), NewMapGenerator(opts, 42).Seed())
	assert.Equal(t, int64(42), NewMapGenerator(opts, 42, WithRetries(3)).Seed(), "retries do not change the first seed")
}

func TestGeneratorRetriedSeedReproducesMap(t *testing.T) {
	opts := ringOptions(36, 36, 4, 2, false)

	calls := 0
	factory := func(z *zones.Zone, graph *zones.Graph) fill.ZoneContent {
		calls++
		if calls == 1 {
			return stuckContent{}
		}
		return fill.NewGrower(z, graph)
	}

	m, err := NewMapGenerator(opts, 42, WithContent(factory)).Generate()
	require.NoError(t, err)
	assert.Greater(t, calls, 1)

	attempt := -1
	for i := 0; i <= DefaultMaxRetries; i++ {
		if random.Derive(42, i) == m.Seed {
			attempt = i
		}
	}
	assert.Positive(t, attempt, "the map records the seed of a retried attempt, not the first one")
	assert.Contains(t, m.Description, fmt.Sprintf("seed was %d", m.Seed))

	again, err := NewMapGenerator(opts, m.Seed, WithRetries(0)).Generate()
	require.NoError(t, err)
	assert.Equal(t, m, again, "the recorded seed regenerates the same map in one attempt")
}
