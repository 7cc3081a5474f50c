package grid

import "github.com/go-gl/mathgl/mgl32"

// Path is an ordered start-to-goal cell sequence. Cells point into the grid
// they were found on and must be treated as read-only.
type Path []*Cell

func (p Path) Len() int { return len(p) }

func (p Path) Waypoints() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(p))
	for i, c := range p {
		out[i] = c.WorldPos
	}
	return out
}

func (p Path) IDs() []int {
	out := make([]int, len(p))
	for i, c := range p {
		out[i] = c.ID
	}
	return out
}

// Cost sums cost over consecutive pairs.
func (p Path) Cost(cost func(a, b *Cell) float64) float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += cost(p[i-1], p[i])
	}
	return total
}
