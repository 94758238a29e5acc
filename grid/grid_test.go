package grid

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminus-realm/mapgen/models"
)

func pos(x, y, z int) models.Position {
	return models.Position{X: x, Y: y, Z: z}
}

func newTestGrid(t *testing.T, w, h, levels int) *Grid {
	t.Helper()
	g := New(w, h, levels)
	g.Init(nil)
	return g
}

func TestInitBlocksEdges(t *testing.T) {
	g := newTestGrid(t, 6, 5, 2)

	for p, tile := range g.All() {
		edge := p.X == 0 || p.Y == 0 || p.X == 5 || p.Y == 4
		if edge {
			assert.Equal(t, Blocked, tile.State, "edge tile %v", p)
			assert.True(t, g.ShouldBeBlocked(p))
		} else {
			assert.Equal(t, Free, tile.State, "interior tile %v", p)
			assert.False(t, g.ShouldBeBlocked(p))
		}
		assert.Equal(t, NoZone, tile.Zone)
	}

	assert.Equal(t, 2*4*3, g.Count(Free))
	assert.Equal(t, 4*3, g.CountLevel(Free, 1))
	assert.True(t, g.ShouldBeBlocked(pos(-1, 2, 0)), "off-grid positions are blocked by policy")
}

func TestStateQueries(t *testing.T) {
	g := newTestGrid(t, 5, 5, 1)
	p := pos(2, 2, 0)

	assert.True(t, g.IsFree(p))
	require.NoError(t, g.SetOccupied(p, Possible, 1))
	assert.True(t, g.IsPossible(p))
	assert.False(t, g.IsFree(p))

	require.NoError(t, g.SetOccupied(p, Used, 1))
	assert.True(t, g.IsUsed(p))
	assert.Equal(t, 1, g.Owner(p))

	assert.True(t, g.IsBlocked(pos(0, 0, 0)))
	assert.True(t, g.IsBlocked(pos(9, 9, 0)), "off-grid reads as blocked")
}

func TestSetOccupiedTransitions(t *testing.T) {
	tests := []struct {
		name    string
		setup   []State
		to      State
		zone    int
		wantErr bool
	}{
		{name: "free to possible", to: Possible, zone: 1},
		{name: "possible to free", setup: []State{Possible}, to: Free, zone: 1},
		{name: "free to used", to: Used, zone: 1},
		{name: "possible to used", setup: []State{Possible}, to: Used, zone: 2},
		{name: "free to blocked", to: Blocked},
		{name: "possible to blocked", setup: []State{Possible}, to: Blocked},
		{name: "claim without zone", to: Used, zone: NoZone, wantErr: true},
		{name: "free to free", to: Free, zone: 1, wantErr: true},
		{name: "possible to possible", setup: []State{Possible}, to: Possible, zone: 1, wantErr: true},
		{name: "seal on behalf of a zone", to: Blocked, zone: 1, wantErr: true},
		{name: "used to used", setup: []State{Used}, to: Used, zone: 2, wantErr: true},
		{name: "used to free", setup: []State{Used}, to: Free, zone: 1, wantErr: true},
		{name: "blocked to used", setup: []State{Blocked}, to: Used, zone: 1, wantErr: true},
		{name: "blocked to possible", setup: []State{Blocked}, to: Possible, zone: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGrid(t, 5, 5, 1)
			p := pos(2, 2, 0)
			for _, s := range tt.setup {
				zone := 1
				if s == Blocked {
					zone = NoZone
				}
				require.NoError(t, g.SetOccupied(p, s, zone))
			}
			before := g.Tile(p)

			err := g.SetOccupied(p, tt.to, tt.zone)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrIllegalTransition)
				assert.Equal(t, before, g.Tile(p), "failed transition must not change the tile")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, g.State(p))
		})
	}
}

func TestSetOccupiedRejectsPolicyAndBounds(t *testing.T) {
	g := newTestGrid(t, 5, 5, 1)

	err := g.SetOccupied(pos(0, 2, 0), Used, 1)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)

	err = g.SetOccupied(pos(5, 2, 0), Used, 1)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)

	err = g.SetTerrain(pos(2, 2, 3), models.TerrainSand)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
}

func TestClaimedTileKeepsOwner(t *testing.T) {
	g := newTestGrid(t, 5, 5, 1)
	p := pos(1, 1, 0)

	require.NoError(t, g.SetOccupied(p, Used, 3))
	assert.Error(t, g.SetOccupied(p, Used, 4))
	assert.Error(t, g.SetOccupied(p, Blocked, 4))
	assert.Equal(t, 3, g.Owner(p))
}

func sortPositions(ps []models.Position) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

func TestNeighbors(t *testing.T) {
	g := newTestGrid(t, 4, 3, 2)

	t.Run("interior", func(t *testing.T) {
		var got []models.Position
		for n := range g.Neighbors(pos(1, 1, 0)) {
			got = append(got, n)
		}
		assert.Len(t, got, 8)
		for _, n := range got {
			assert.Equal(t, 0, n.Z, "same level only")
		}
	})

	t.Run("corner", func(t *testing.T) {
		var got []models.Position
		for n := range g.Neighbors(pos(0, 0, 1)) {
			got = append(got, n)
		}
		sortPositions(got)
		assert.Equal(t, []models.Position{pos(1, 0, 1), pos(0, 1, 1), pos(1, 1, 1)}, got)
	})

	t.Run("each neighbour once", func(t *testing.T) {
		seen := map[models.Position]int{}
		for n := range g.Neighbors(pos(2, 1, 0)) {
			seen[n]++
		}
		for n, c := range seen {
			assert.Equal(t, 1, c, "neighbour %v", n)
		}
	})

	t.Run("restartable", func(t *testing.T) {
		seq := g.Neighbors(pos(3, 2, 0))
		count := func() int {
			n := 0
			for range seq {
				n++
			}
			return n
		}
		assert.Equal(t, 3, count())
		assert.Equal(t, 3, count())
	})

	t.Run("early stop", func(t *testing.T) {
		n := 0
		for range g.Neighbors(pos(1, 1, 0)) {
			n++
			if n == 2 {
				break
			}
		}
		assert.Equal(t, 2, n)
	})

	t.Run("across levels", func(t *testing.T) {
		var stacked []models.Position
		for n := range g.NeighborsAcrossLevels(pos(1, 1, 0)) {
			if n.Z != 0 {
				stacked = append(stacked, n)
			}
		}
		assert.Equal(t, []models.Position{pos(1, 1, 1)}, stacked)
	})
}

func TestRockPolicy(t *testing.T) {
	base := EdgePolicy(40, 40)

	assert.Equal(t, base(pos(5, 5, 0)), RockPolicy(base, 1, 0)(pos(5, 5, 0)))

	dense := RockPolicy(base, 1, 1)
	blocked := 0
	for y := 1; y < 39; y++ {
		for x := 1; x < 39; x++ {
			if dense(pos(x, y, 0)) {
				blocked++
			}
		}
	}
	assert.Greater(t, blocked, 0, "full density should block some interior tiles")
	assert.True(t, dense(pos(0, 10, 0)), "edges stay blocked")

	again := RockPolicy(base, 1, 1)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			assert.Equal(t, dense(pos(x, y, 0)), again(pos(x, y, 0)))
		}
	}
}

func TestTerrainsCopy(t *testing.T) {
	g := newTestGrid(t, 3, 3, 1)
	require.NoError(t, g.SetOccupied(pos(1, 1, 0), Used, 1))
	require.NoError(t, g.SetTerrain(pos(1, 1, 0), models.TerrainGrass))

	layer := g.Terrains()
	require.Len(t, layer, 1)
	assert.Equal(t, models.TerrainGrass, layer[0][1][1])
	assert.Equal(t, models.TerrainRock, layer[0][0][0])

	layer[0][1][1] = models.TerrainLava
	assert.Equal(t, models.TerrainGrass, g.Terrain(pos(1, 1, 0)))
}
