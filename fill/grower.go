package fill

import (
	"math"
	"slices"

	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/zyedidia/generic/heap"
	"github.com/zyedidia/generic/mapset"

	"terminus-realm/mapgen/grid"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/random"
	"terminus-realm/mapgen/zones"
)

const (
	roughScale     = 0.15
	roughThreshold = 0.72
)

// Grower is the default zone content. It claims tiles best-first by
// distance from the centre, scaled by the zone radius, and only takes a
// tile when its own centre is the closest of all zones on the level. It
// stops at the target size and reserves the rest of its frontier.
type Grower struct {
	zone       *zones.Zone
	graph      *zones.Graph
	region     []models.Position
	connectors map[int]models.Position
}

// NewGrower is the default ContentFactory
func NewGrower(z *zones.Zone, graph *zones.Graph) ZoneContent {
	return &Grower{
		zone:       z,
		graph:      graph,
		connectors: make(map[int]models.Position),
	}
}

type candidate struct {
	pos   models.Position
	score float64
	tie   float64
}

func lessCandidate(a, b candidate) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.tie < b.tie
}

func (g *Grower) Region() []models.Position {
	return slices.Clone(g.region)
}

func (g *Grower) Connectors() map[int]models.Position {
	return g.connectors
}

func (g *Grower) Grow(view View, rng *random.Service) error {
	noise := opensimplex.NewNormalized(rng.Int63())
	rivals := g.rivals()

	center := g.zone.Center
	g.region = append(g.region[:0], center)
	if err := g.paint(view, center, noise); err != nil {
		return err
	}

	seen := mapset.New[models.Position]()
	seen.Put(center)
	frontier := heap.New[candidate](lessCandidate)

	expand := func(p models.Position) {
		for n := range view.Neighbors(p) {
			if seen.Has(n) {
				continue
			}
			seen.Put(n)
			if !view.IsFree(n) && !view.IsPossible(n) {
				continue
			}
			if !g.prefers(n, rivals) {
				continue
			}
			frontier.Push(candidate{pos: n, score: weighted(n, g.zone), tie: rng.Float64()})
		}
	}
	expand(center)

	for len(g.region) < g.zone.Target {
		c, ok := frontier.Pop()
		if !ok {
			break
		}
		if !view.IsFree(c.pos) && !view.IsPossible(c.pos) {
			continue
		}
		if err := view.SetOccupied(c.pos, grid.Used); err != nil {
			return err
		}
		g.region = append(g.region, c.pos)
		if err := g.paint(view, c.pos, noise); err != nil {
			return err
		}
		expand(c.pos)
	}

	// border buffer, handed out by the sweep
	for {
		c, ok := frontier.Pop()
		if !ok {
			break
		}
		if view.IsFree(c.pos) {
			if err := view.SetOccupied(c.pos, grid.Possible); err != nil {
				return err
			}
		}
	}

	for _, id := range g.zone.Neighbors() {
		other, ok := g.graph.Zone(id)
		if !ok || other.Level == g.zone.Level {
			continue
		}
		g.connectors[id] = g.nearest(other.Center)
	}

	return nil
}

func (g *Grower) paint(view View, p models.Position, noise opensimplex.Noise) error {
	terrain := g.zone.Terrain
	if terrain != models.TerrainSubterranean &&
		noise.Eval2(float64(p.X)*roughScale, float64(p.Y)*roughScale) > roughThreshold {
		terrain = models.TerrainRough
	}
	return view.SetTerrain(p, terrain)
}

func (g *Grower) rivals() []*zones.Zone {
	var out []*zones.Zone
	for _, z := range g.graph.Zones() {
		if z.ID != g.zone.ID && z.Level == g.zone.Level {
			out = append(out, z)
		}
	}
	return out
}

// prefers reports whether p is closer to this zone than to any rival,
// measured in radii. Ties go to the lower zone id.
func (g *Grower) prefers(p models.Position, rivals []*zones.Zone) bool {
	own := weighted(p, g.zone)
	for _, r := range rivals {
		d := weighted(p, r)
		if d < own || (d == own && r.ID < g.zone.ID) {
			return false
		}
	}
	return true
}

// nearest returns the claimed tile closest to target in the plane
func (g *Grower) nearest(target models.Position) models.Position {
	best := g.region[0]
	bestDist := planar(best, target)
	for _, p := range g.region[1:] {
		if d := planar(p, target); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func weighted(p models.Position, z *zones.Zone) float64 {
	return planar(p, z.Center) / z.Radius()
}

func planar(a, b models.Position) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
