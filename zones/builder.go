package zones

import (
	"math"

	"github.com/sirupsen/logrus"

	"terminus-realm/mapgen/grid"
	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/random"
)

const (
	// DefaultMaxAttempts bounds the centre candidates drawn per zone
	DefaultMaxAttempts = 500
	// valid candidates collected before choosing one
	candidateSample = 8
)

// Builder turns a template into placed zones on a grid
type Builder struct {
	grid        *grid.Grid
	rng         *random.Service
	maxAttempts int
}

// NewBuilder creates a builder placing zones on g with draws from rng
func NewBuilder(g *grid.Grid, rng *random.Service) *Builder {
	return &Builder{
		grid:        g,
		rng:         rng,
		maxAttempts: DefaultMaxAttempts,
	}
}

// SetMaxAttempts changes the number of centre candidates drawn per zone
func (b *Builder) SetMaxAttempts(n int) {
	if n > 0 {
		b.maxAttempts = n
	}
}

// Build creates the zone arena for t, sizes every zone and places its
// centre. Zones are placed in ascending id order. The template must already
// be valid. If some zone finds no centre within the attempt bound, Build
// fails with a placement exhausted error.
func (b *Builder) Build(t *Template) (*Graph, error) {
	graph := newGraph(len(t.Zones))

	weights := make([]int, b.grid.Levels())
	for _, zt := range t.Zones {
		weights[b.levelOf(zt)] += zt.Size
	}

	for _, zt := range t.Zones {
		level := b.levelOf(zt)
		walkable := b.grid.CountLevel(grid.Free, level)
		target := walkable * zt.Size / weights[level]
		if target < 1 {
			target = 1
		}

		graph.add(Zone{
			ID:      zt.ID,
			Owner:   zt.Owner,
			Terrain: zt.Terrain,
			Level:   level,
			Target:  target,
		})
	}

	for _, c := range t.Connections {
		graph.connect(c)
	}

	separation := t.Separation
	if separation == 0 {
		separation = DefaultSeparation
	}

	placed := make([]*Zone, 0, graph.Len())
	for _, z := range graph.Zones() {
		if err := b.place(z, placed, separation); err != nil {
			return nil, err
		}
		placed = append(placed, z)
	}

	return graph, nil
}

func (b *Builder) levelOf(zt ZoneTemplate) int {
	if zt.Underground && b.grid.Levels() > 1 {
		return 1
	}
	return 0
}

// place draws random centres for z, rejecting candidates that are not
// claimable or that fall inside the separation radius of a placed zone.
// Among the valid candidates the one closest to its already placed
// neighbours wins, so connected zones end up next to each other.
func (b *Builder) place(z *Zone, placed []*Zone, separation float64) error {
	maxX, maxY := b.grid.Width()-2, b.grid.Height()-2
	if maxX < 1 || maxY < 1 {
		return models.NewGenerationError(models.FailurePlacementExhausted,
			"zone %d: %dx%d grid has no interior", z.ID, b.grid.Width(), b.grid.Height())
	}

	var candidates []models.Position
	attempts := 0
	for attempts < b.maxAttempts && len(candidates) < candidateSample {
		attempts++
		p := models.Position{
			X: b.rng.IntRange(1, maxX),
			Y: b.rng.IntRange(1, maxY),
			Z: z.Level,
		}
		if !b.grid.IsFree(p) || b.grid.ShouldBeBlocked(p) {
			continue
		}
		if tooClose(z, p, placed, separation) {
			continue
		}
		candidates = append(candidates, p)
	}

	if len(candidates) == 0 {
		return models.NewGenerationError(models.FailurePlacementExhausted,
			"zone %d: no centre at least %.1f tiles from its neighbours after %d attempts",
			z.ID, separation*z.Radius(), attempts)
	}

	best := candidates[0]
	bestScore := pull(z, best, placed)
	for _, c := range candidates[1:] {
		if s := pull(z, c, placed); s < bestScore {
			best, bestScore = c, s
		}
	}
	z.Center = best

	logger.Log.WithFields(logrus.Fields{
		"zone":     z.ID,
		"level":    z.Level,
		"target":   z.Target,
		"center":   best,
		"attempts": attempts,
	}).Debug("Zone placed")

	return nil
}

func tooClose(z *Zone, p models.Position, placed []*Zone, separation float64) bool {
	for _, other := range placed {
		if other.Level != z.Level {
			continue
		}
		if p == other.Center {
			return true
		}
		if planar(p, other.Center) < separation*(z.Radius()+other.Radius()) {
			return true
		}
	}
	return false
}

// pull sums the planar distance from p to every placed zone connected to z
func pull(z *Zone, p models.Position, placed []*Zone) float64 {
	total := 0.0
	for _, other := range placed {
		if z.ConnectedTo(other.ID) {
			total += planar(p, other.Center)
		}
	}
	return total
}

func planar(a, b models.Position) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
