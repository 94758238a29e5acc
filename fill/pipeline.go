// Package fill runs the per-zone content algorithms over the shared grid and
// checks the result: a complete Blocked/Used partition in which every
// required zone connection is realised.
package fill

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"

	"terminus-realm/mapgen/grid"
	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/random"
	"terminus-realm/mapgen/zones"
)

// Pipeline fills every zone of a graph. Zones are processed one at a time
// in ascending id order; earlier zones see an emptier grid, so the order is
// part of what a seed reproduces.
type Pipeline struct {
	grid     *grid.Grid
	graph    *zones.Graph
	rng      *random.Service
	factory  ContentFactory
	contents map[int]ZoneContent
	views    map[int]*zoneView
}

// NewPipeline creates a pipeline. A nil factory uses NewGrower.
func NewPipeline(g *grid.Grid, graph *zones.Graph, rng *random.Service, factory ContentFactory) *Pipeline {
	if factory == nil {
		factory = NewGrower
	}
	return &Pipeline{
		grid:     g,
		graph:    graph,
		rng:      rng,
		factory:  factory,
		contents: make(map[int]ZoneContent),
		views:    make(map[int]*zoneView),
	}
}

// Run fills all zones, hands leftover tiles to their nearest zone, seals
// unreachable pockets and validates the connections. It returns where each
// required connection was realised.
func (p *Pipeline) Run() ([]models.ConnectionInfo, error) {
	for _, z := range p.graph.Zones() {
		if err := p.seed(z); err != nil {
			return nil, err
		}

		content := p.factory(z, p.graph)
		if err := content.Grow(p.view(z), p.rng); err != nil {
			return nil, contentError(z.ID, err)
		}
		p.contents[z.ID] = content

		logger.Log.WithFields(logrus.Fields{
			"zone":   z.ID,
			"target": z.Target,
			"grown":  len(content.Region()),
		}).Debug("Zone filled")
	}

	if err := p.sweep(); err != nil {
		return nil, err
	}
	if err := p.verify(); err != nil {
		return nil, err
	}
	return p.connect()
}

func (p *Pipeline) view(z *zones.Zone) *zoneView {
	v, ok := p.views[z.ID]
	if !ok {
		v = newZoneView(p.grid, z)
		p.views[z.ID] = v
	}
	return v
}

func contentError(zone int, err error) error {
	var ge *models.GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return models.NewGenerationError(models.FailureContentAborted, "zone %d: %v", zone, err)
}

// seed claims the zone centre before its content runs. If an earlier zone
// took the centre, the nearest claimable tile on the same level becomes the
// new centre.
func (p *Pipeline) seed(z *zones.Zone) error {
	center := z.Center
	if !p.claimable(center) {
		moved, ok := p.nearestClaimable(center)
		if !ok {
			return models.NewGenerationError(models.FailurePlacementExhausted,
				"zone %d: no free tile left around %v", z.ID, center)
		}
		logger.Log.WithFields(logrus.Fields{
			"zone": z.ID,
			"from": center,
			"to":   moved,
		}).Debug("Zone centre relocated")
		z.MoveCenter(moved)
		center = moved
	}

	v := p.view(z)
	if err := v.SetOccupied(center, grid.Used); err != nil {
		return err
	}
	return v.SetTerrain(center, z.Terrain)
}

func (p *Pipeline) claimable(pos models.Position) bool {
	return (p.grid.IsFree(pos) || p.grid.IsPossible(pos)) && !p.grid.ShouldBeBlocked(pos)
}

// nearestClaimable walks outward from start breadth-first through any tile
func (p *Pipeline) nearestClaimable(start models.Position) (models.Position, bool) {
	visited := mapset.New[models.Position]()
	visited.Put(start)
	queue := []models.Position{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for n := range p.grid.Neighbors(cur) {
			if visited.Has(n) {
				continue
			}
			if p.claimable(n) {
				return n, true
			}
			visited.Put(n)
			queue = append(queue, n)
		}
	}
	return models.Position{}, false
}

// sweep hands every free or reserved tile to the zone whose claimed tiles
// reach it first, breadth-first from all claimed tiles in grid order.
// Whatever no zone can reach is sealed.
func (p *Pipeline) sweep() error {
	var queue []models.Position
	for pos, t := range p.grid.All() {
		if t.State == grid.Used {
			queue = append(queue, pos)
		}
	}

	swept := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		z, ok := p.graph.Zone(p.grid.Owner(cur))
		if !ok {
			continue
		}
		v := p.view(z)
		for n := range p.grid.Neighbors(cur) {
			if !p.claimable(n) {
				continue
			}
			if err := v.SetOccupied(n, grid.Used); err != nil {
				return err
			}
			if err := v.SetTerrain(n, z.Terrain); err != nil {
				return err
			}
			queue = append(queue, n)
			swept++
		}
	}

	var pockets []models.Position
	for pos, t := range p.grid.All() {
		if t.State == grid.Free || t.State == grid.Possible {
			pockets = append(pockets, pos)
		}
	}
	for _, pos := range pockets {
		if err := p.grid.SetOccupied(pos, grid.Blocked, grid.NoZone); err != nil {
			return err
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"swept":  swept,
		"sealed": len(pockets),
	}).Debug("Leftover tiles resolved")

	return nil
}

// verify checks the occupancy partition: every tile is Blocked or Used, no
// claimed tile is blocked by policy, and the zones' tile lists agree with
// the grid.
func (p *Pipeline) verify() error {
	for pos, t := range p.grid.All() {
		switch t.State {
		case grid.Free, grid.Possible:
			return models.NewGenerationError(models.FailureIllegalTransition,
				"tile %v left %s after filling", pos, t.State)
		case grid.Used:
			if p.grid.ShouldBeBlocked(pos) {
				return models.NewGenerationError(models.FailureIllegalTransition,
					"zone %d claimed policy-blocked tile %v", t.Zone, pos)
			}
		}
	}

	owned := 0
	for _, z := range p.graph.Zones() {
		for _, pos := range z.Tiles() {
			if p.grid.Owner(pos) != z.ID {
				return models.NewGenerationError(models.FailureIllegalTransition,
					"zone %d lists tile %v owned by zone %d", z.ID, pos, p.grid.Owner(pos))
			}
		}
		owned += z.Size()
	}
	if used := p.grid.Count(grid.Used); used != owned {
		return models.NewGenerationError(models.FailureIllegalTransition,
			"%d used tiles but zones own %d", used, owned)
	}

	return nil
}

// connect finds, for each required connection, a pair of tiles that joins
// the two zones: neighbours on the same level, tiles stacked across levels,
// or a portal pair both zones designated for each other.
func (p *Pipeline) connect() ([]models.ConnectionInfo, error) {
	var out []models.ConnectionInfo

	for _, c := range p.graph.Connections() {
		a, _ := p.graph.Zone(c.A)
		b, _ := p.graph.Zone(c.B)

		if info, ok := p.touching(a, b); ok {
			out = append(out, info)
			continue
		}
		if info, ok := p.portal(a, b); ok {
			out = append(out, info)
			continue
		}
		return nil, models.NewGenerationError(models.FailureConnectionUnsatisfied,
			"zones %d and %d do not meet", c.A, c.B)
	}

	return out, nil
}

func (p *Pipeline) touching(a, b *zones.Zone) (models.ConnectionInfo, bool) {
	for _, pos := range a.Tiles() {
		for n := range p.grid.NeighborsAcrossLevels(pos) {
			if p.grid.Owner(n) != b.ID {
				continue
			}
			kind := models.ConnectionAdjacent
			if n.Z != pos.Z {
				kind = models.ConnectionStacked
			}
			return models.ConnectionInfo{A: a.ID, B: b.ID, Kind: kind, From: pos, To: n}, true
		}
	}
	return models.ConnectionInfo{}, false
}

func (p *Pipeline) portal(a, b *zones.Zone) (models.ConnectionInfo, bool) {
	ca, cb := p.contents[a.ID], p.contents[b.ID]
	if ca == nil || cb == nil {
		return models.ConnectionInfo{}, false
	}
	from, okA := ca.Connectors()[b.ID]
	to, okB := cb.Connectors()[a.ID]
	if !okA || !okB || p.grid.Owner(from) != a.ID || p.grid.Owner(to) != b.ID {
		return models.ConnectionInfo{}, false
	}
	return models.ConnectionInfo{A: a.ID, B: b.ID, Kind: models.ConnectionPortal, From: from, To: to}, true
}
