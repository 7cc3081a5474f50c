// Package cost holds the stock step cost and heuristic functions.
package cost

import (
	"errors"
	"math"

	"gridnav.ai/internal/nav/grid"
)

// Func returns the cost of moving from a to b. The search also uses it as
// the heuristic from a cell to the goal.
type Func func(a, b *grid.Cell) float64

// Euclidean is the straight-line world distance between cell centres,
// heights included.
func Euclidean(a, b *grid.Cell) float64 {
	return float64(b.WorldPos.Sub(a.WorldPos).Len())
}

// Planar is Euclidean with heights ignored.
func Planar(a, b *grid.Cell) float64 {
	dx := float64(b.WorldPos.X() - a.WorldPos.X())
	dz := float64(b.WorldPos.Z() - a.WorldPos.Z())
	return math.Sqrt(dx*dx + dz*dz)
}

// Octile is the 8-connected grid distance in cell units.
func Octile(a, b *grid.Cell) float64 {
	dr := math.Abs(float64(b.Row - a.Row))
	dc := math.Abs(float64(b.Col - a.Col))
	lo, hi := math.Min(dr, dc), math.Max(dr, dc)
	return hi - lo + lo*math.Sqrt2
}

// Zero turns A* into Dijkstra.
func Zero(a, b *grid.Cell) float64 { return 0 }

// Default names the cost used when a request names none.
const Default = "euclidean"

var ErrUnknown = errors.New("unknown cost function")

// Named resolves a cost by name. The empty name is Default.
func Named(name string) (Func, bool) {
	switch name {
	case "", Default:
		return Euclidean, true
	case "octile":
		return Octile, true
	case "planar":
		return Planar, true
	case "zero":
		return Zero, true
	}
	return nil, false
}

// Canonical is the name Named resolves name under, or "" if it is unknown.
func Canonical(name string) string {
	if _, ok := Named(name); !ok {
		return ""
	}
	if name == "" {
		return Default
	}
	return name
}
