package fill

import (
	"iter"

	"terminus-realm/mapgen/grid"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/random"
	"terminus-realm/mapgen/zones"
)

// View is the part of the grid a zone content algorithm may touch. Tiles
// reported free or possible are safe to claim; blocked and used tiles are
// not. Every claim goes through SetOccupied, which registers it with both
// the grid and the zone.
type View interface {
	Contains(p models.Position) bool
	IsFree(p models.Position) bool
	IsPossible(p models.Position) bool
	IsBlocked(p models.Position) bool
	IsUsed(p models.Position) bool
	Owner(p models.Position) int
	Neighbors(p models.Position) iter.Seq[models.Position]
	SetOccupied(p models.Position, state grid.State) error
	SetTerrain(p models.Position, terrain models.Terrain) error
}

// ZoneContent decides what goes inside one zone. Grow claims tiles outward
// from the zone centre, which the pipeline has already claimed.
type ZoneContent interface {
	Grow(view View, rng *random.Service) error
	// Region is the set of tiles the algorithm claimed
	Region() []models.Position
	// Connectors maps a connected zone id to a portal tile owned by this zone
	Connectors() map[int]models.Position
}

// ContentFactory creates the content algorithm for a zone
type ContentFactory func(z *zones.Zone, graph *zones.Graph) ZoneContent

type zoneView struct {
	grid *grid.Grid
	zone *zones.Zone
}

func newZoneView(g *grid.Grid, z *zones.Zone) *zoneView {
	return &zoneView{grid: g, zone: z}
}

func (v *zoneView) Contains(p models.Position) bool   { return v.grid.Contains(p) }
func (v *zoneView) IsFree(p models.Position) bool     { return v.grid.IsFree(p) }
func (v *zoneView) IsPossible(p models.Position) bool { return v.grid.IsPossible(p) }
func (v *zoneView) IsBlocked(p models.Position) bool  { return v.grid.IsBlocked(p) }
func (v *zoneView) IsUsed(p models.Position) bool     { return v.grid.IsUsed(p) }
func (v *zoneView) Owner(p models.Position) int       { return v.grid.Owner(p) }

func (v *zoneView) Neighbors(p models.Position) iter.Seq[models.Position] {
	return v.grid.Neighbors(p)
}

func (v *zoneView) SetOccupied(p models.Position, state grid.State) error {
	if err := v.grid.SetOccupied(p, state, v.zone.ID); err != nil {
		return err
	}
	if state == grid.Used {
		v.zone.RecordTile(p)
	}
	return nil
}

// SetTerrain only paints tiles the zone owns
func (v *zoneView) SetTerrain(p models.Position, terrain models.Terrain) error {
	if owner := v.grid.Owner(p); owner != v.zone.ID {
		return models.NewGenerationError(models.FailureIllegalTransition,
			"zone %d cannot paint tile %v owned by zone %d", v.zone.ID, p, owner)
	}
	return v.grid.SetTerrain(p, terrain)
}
