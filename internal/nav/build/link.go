package build

import "gridnav.ai/internal/nav/grid"

type LinkOptions struct {
	CanUseWater bool
	// NoCornerCutting drops a diagonal link unless both cells sharing the
	// corner are linkable to both ends.
	NoCornerCutting bool
}

// Link recomputes every neighbor mask from the current cell attributes.
// Boundary cells end up with an empty mask.
func Link(g *grid.Grid, opts LinkOptions) {
	for i := range g.Cells {
		g.Cells[i].Neighbors = grid.MaskNone
	}
	for i := range g.Cells {
		cur := &g.Cells[i]
		if cur.IsBoundary() {
			continue
		}
		for d := grid.Dir(0); d < grid.DirCount; d++ {
			nb, ok := g.Neighbor(cur, d)
			if !ok || !linkable(cur, nb, opts.CanUseWater) {
				continue
			}
			if d.Diagonal() && opts.NoCornerCutting && !cornerClear(g, cur, nb, d, opts.CanUseWater) {
				continue
			}
			cur.Neighbors = cur.Neighbors.With(d)
		}
	}
}

func linkable(a, b *grid.Cell, canUseWater bool) bool {
	if a.IsBoundary() || b.IsBoundary() {
		return false
	}
	aw, bw := a.IsWalkable(), b.IsWalkable()
	aq, bq := a.IsWater(), b.IsWater()
	if (aw && bw) || (aq && bq) {
		return true
	}
	return canUseWater && ((aw && bq) || (aq && bw))
}

func cornerClear(g *grid.Grid, cur, nb *grid.Cell, d grid.Dir, canUseWater bool) bool {
	dr, dc := d.Offset()
	for _, rc := range [2][2]int{{cur.Row + dr, cur.Col}, {cur.Row, cur.Col + dc}} {
		side, ok := g.At(rc[0], rc[1])
		if !ok || !linkable(cur, side, canUseWater) || !linkable(nb, side, canUseWater) {
			return false
		}
	}
	return true
}

// Counts tallies cell classes of a grid.
type Counts struct {
	Walkable int
	Water    int
	Blocked  int
	Boundary int
	Links    int
}

func Summarize(g *grid.Grid) Counts {
	var c Counts
	for i := range g.Cells {
		cell := &g.Cells[i]
		switch {
		case cell.IsBoundary():
			c.Boundary++
		case cell.IsWater():
			c.Water++
		case cell.IsWalkable():
			c.Walkable++
		default:
			c.Blocked++
		}
		c.Links += cell.Neighbors.Count()
	}
	return c
}
