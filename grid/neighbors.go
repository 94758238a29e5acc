package grid

import (
	"iter"

	"terminus-realm/mapgen/models"
)

// in-plane offsets, row by row
var offsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Neighbors yields the in-bounds 8-connected neighbours of p on its own
// level. Every existing neighbour is yielded exactly once; callers that need
// a particular order must sort what they collect.
func (g *Grid) Neighbors(p models.Position) iter.Seq[models.Position] {
	return func(yield func(models.Position) bool) {
		for _, d := range offsets {
			n := models.Position{X: p.X + d[0], Y: p.Y + d[1], Z: p.Z}
			if !g.Contains(n) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// NeighborsAcrossLevels yields the same tiles as Neighbors followed by the
// tiles directly above and below p
func (g *Grid) NeighborsAcrossLevels(p models.Position) iter.Seq[models.Position] {
	return func(yield func(models.Position) bool) {
		for n := range g.Neighbors(p) {
			if !yield(n) {
				return
			}
		}
		for _, dz := range [2]int{-1, 1} {
			n := models.Position{X: p.X, Y: p.Y, Z: p.Z + dz}
			if !g.Contains(n) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}
