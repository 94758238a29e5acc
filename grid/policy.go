package grid

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"terminus-realm/mapgen/models"
)

// EdgePolicy blocks the outermost rows and columns of every level
func EdgePolicy(width, height int) BlockPolicy {
	return func(p models.Position) bool {
		return p.X <= 0 || p.Y <= 0 || p.X >= width-1 || p.Y >= height-1
	}
}

// rock noise frequency, in tiles
const rockScale = 0.18

// RockPolicy extends base with impassable rock patches drawn from simplex
// noise. A higher density in (0, 1] blocks more of the interior; zero
// returns base unchanged.
func RockPolicy(base BlockPolicy, seed int64, density float64) BlockPolicy {
	if density <= 0 {
		return base
	}
	if density > 1 {
		density = 1
	}

	noise := opensimplex.NewNormalized(seed)
	threshold := 1 - density

	return func(p models.Position) bool {
		if base(p) {
			return true
		}
		// each level gets its own slice of the noise field
		v := noise.Eval3(float64(p.X)*rockScale, float64(p.Y)*rockScale, float64(p.Z)*7.3)
		return v > threshold
	}
}
