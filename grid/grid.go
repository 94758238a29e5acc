// Package grid holds the tile occupancy grid of a generation run.
//
// Tiles live in one flat buffer indexed by (z*height+y)*width+x. Each tile
// carries an occupancy state, its terrain and the id of the zone that
// claimed it. A Grid is owned by a single run and is not safe for
// concurrent use.
package grid

import (
	"iter"

	"terminus-realm/mapgen/models"
)

// State is the occupancy state of a tile
type State uint8

const (
	// Free tiles are unclaimed
	Free State = iota
	// Possible tiles are unclaimed but reserved as preferred candidates
	Possible
	// Blocked tiles can never be claimed
	Blocked
	// Used tiles are claimed by exactly one zone
	Used
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Possible:
		return "possible"
	case Blocked:
		return "blocked"
	case Used:
		return "used"
	}
	return "unknown"
}

// NoZone is the owner of tiles no zone has claimed
const NoZone = 0

// Tile is one grid cell
type Tile struct {
	State   State
	Terrain models.Terrain
	Zone    int
}

// BlockPolicy answers whether a position should start out blocked
type BlockPolicy func(p models.Position) bool

// Grid is a width x height x levels occupancy grid
type Grid struct {
	width  int
	height int
	levels int
	tiles  []Tile
	policy BlockPolicy
}

// New allocates a grid. Every tile starts Free until Init applies a policy.
func New(width, height, levels int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		levels: levels,
		tiles:  make([]Tile, width*height*levels),
		policy: func(models.Position) bool { return false },
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }
func (g *Grid) Levels() int { return g.levels }

// Init sets every tile to Free or Blocked according to policy. Blocked
// tiles get rock terrain. A nil policy blocks the outer edge only.
func (g *Grid) Init(policy BlockPolicy) {
	if policy == nil {
		policy = EdgePolicy(g.width, g.height)
	}
	g.policy = policy

	for p := range g.Positions() {
		t := &g.tiles[g.index(p)]
		t.Zone = NoZone
		t.Terrain = models.TerrainRock
		if policy(p) {
			t.State = Blocked
		} else {
			t.State = Free
		}
	}
}

// Contains reports whether p lies inside the grid
func (g *Grid) Contains(p models.Position) bool {
	return p.X >= 0 && p.X < g.width &&
		p.Y >= 0 && p.Y < g.height &&
		p.Z >= 0 && p.Z < g.levels
}

func (g *Grid) index(p models.Position) int {
	return (p.Z*g.height+p.Y)*g.width + p.X
}

// Tile returns a copy of the tile at p. Off-grid positions read as blocked rock.
func (g *Grid) Tile(p models.Position) Tile {
	if !g.Contains(p) {
		return Tile{State: Blocked, Terrain: models.TerrainRock}
	}
	return g.tiles[g.index(p)]
}

func (g *Grid) State(p models.Position) State            { return g.Tile(p).State }
func (g *Grid) Owner(p models.Position) int              { return g.Tile(p).Zone }
func (g *Grid) Terrain(p models.Position) models.Terrain { return g.Tile(p).Terrain }

func (g *Grid) IsFree(p models.Position) bool     { return g.State(p) == Free }
func (g *Grid) IsPossible(p models.Position) bool { return g.State(p) == Possible }
func (g *Grid) IsBlocked(p models.Position) bool  { return g.State(p) == Blocked }
func (g *Grid) IsUsed(p models.Position) bool     { return g.State(p) == Used }

// ShouldBeBlocked answers the placement policy for p, regardless of the
// tile's current state. Off-grid positions are always blocked.
func (g *Grid) ShouldBeBlocked(p models.Position) bool {
	if !g.Contains(p) {
		return true
	}
	return g.policy(p)
}

// SetOccupied moves the tile at p to state on behalf of zone.
//
// Allowed transitions:
//
//	Free     -> Possible  reserve
//	Possible -> Free      release
//	Free     -> Used      claim (zone > 0)
//	Possible -> Used      claim (zone > 0)
//	Free     -> Blocked   seal (zone must be NoZone)
//	Possible -> Blocked   seal (zone must be NoZone)
//
// Everything else fails with an illegal transition error and leaves the
// grid untouched. That includes any change to a Blocked or Used tile and
// Free -> Free or Possible -> Possible.
func (g *Grid) SetOccupied(p models.Position, state State, zone int) error {
	if !g.Contains(p) {
		return models.NewGenerationError(models.FailureIllegalTransition,
			"tile %v is outside the %dx%dx%d grid", p, g.width, g.height, g.levels)
	}

	t := &g.tiles[g.index(p)]
	switch t.State {
	case Blocked, Used:
		return models.NewGenerationError(models.FailureIllegalTransition,
			"zone %d cannot move %s tile %v (owner %d) to %s", zone, t.State, p, t.Zone, state)
	}

	if t.State == state {
		return models.NewGenerationError(models.FailureIllegalTransition,
			"tile %v is already %s", p, state)
	}

	switch state {
	case Free, Possible:
		t.State = state
	case Blocked:
		if zone != NoZone {
			return models.NewGenerationError(models.FailureIllegalTransition,
				"zone %d cannot seal tile %v", zone, p)
		}
		t.State = Blocked
		t.Terrain = models.TerrainRock
	case Used:
		if zone <= NoZone {
			return models.NewGenerationError(models.FailureIllegalTransition,
				"claim of tile %v without a zone", p)
		}
		if g.policy(p) {
			return models.NewGenerationError(models.FailureIllegalTransition,
				"zone %d cannot claim policy-blocked tile %v", zone, p)
		}
		t.State = Used
		t.Zone = zone
	default:
		return models.NewGenerationError(models.FailureIllegalTransition,
			"unknown state %d for tile %v", state, p)
	}
	return nil
}

// SetTerrain paints the tile at p
func (g *Grid) SetTerrain(p models.Position, terrain models.Terrain) error {
	if !g.Contains(p) {
		return models.NewGenerationError(models.FailureIllegalTransition,
			"tile %v is outside the grid", p)
	}
	g.tiles[g.index(p)].Terrain = terrain
	return nil
}

// Count returns the number of tiles in state
func (g *Grid) Count(state State) int {
	n := 0
	for i := range g.tiles {
		if g.tiles[i].State == state {
			n++
		}
	}
	return n
}

// CountLevel returns the number of tiles in state on level z
func (g *Grid) CountLevel(state State, z int) int {
	n := 0
	plane := g.width * g.height
	for _, t := range g.tiles[z*plane : (z+1)*plane] {
		if t.State == state {
			n++
		}
	}
	return n
}

// Positions yields every position in z, y, x order
func (g *Grid) Positions() iter.Seq[models.Position] {
	return func(yield func(models.Position) bool) {
		for z := 0; z < g.levels; z++ {
			for y := 0; y < g.height; y++ {
				for x := 0; x < g.width; x++ {
					if !yield(models.Position{X: x, Y: y, Z: z}) {
						return
					}
				}
			}
		}
	}
}

// All yields every position with its tile in z, y, x order
func (g *Grid) All() iter.Seq2[models.Position, Tile] {
	return func(yield func(models.Position, Tile) bool) {
		for p := range g.Positions() {
			if !yield(p, g.tiles[g.index(p)]) {
				return
			}
		}
	}
}

// Terrains copies the terrain layer out as [z][y][x]
func (g *Grid) Terrains() [][][]models.Terrain {
	out := make([][][]models.Terrain, g.levels)
	for z := range out {
		out[z] = make([][]models.Terrain, g.height)
		for y := range out[z] {
			row := make([]models.Terrain, g.width)
			for x := range row {
				row[x] = g.tiles[g.index(models.Position{X: x, Y: y, Z: z})].Terrain
			}
			out[z][y] = row
		}
	}
	return out
}

// Owners copies the zone ownership layer out as [z][y][x]
func (g *Grid) Owners() [][][]int {
	out := make([][][]int, g.levels)
	for z := range out {
		out[z] = make([][]int, g.height)
		for y := range out[z] {
			row := make([]int, g.width)
			for x := range row {
				row[x] = g.tiles[g.index(models.Position{X: x, Y: y, Z: z})].Zone
			}
			out[z][y] = row
		}
	}
	return out
}
