package optimize

import "gridnav.ai/internal/nav/grid"

// CanTraverseDirect rasterizes the line between a and b and reports whether
// every cell on it is walkable. The major axis is the one with the larger
// delta (rows on a tie) and the scan always starts from the endpoint with the
// lower major coordinate, so swapping a and b walks the same cells.
func CanTraverseDirect(g *grid.Grid, a, b *grid.Cell) bool {
	if g == nil || a == nil || b == nil {
		return false
	}
	dRow, dCol := b.Row-a.Row, b.Col-a.Col
	colMajor := abs(dCol) > abs(dRow)

	major0, minor0, major1, minor1 := a.Row, a.Col, b.Row, b.Col
	if colMajor {
		major0, minor0, major1, minor1 = a.Col, a.Row, b.Col, b.Row
	}
	if major1 < major0 {
		major0, minor0, major1, minor1 = major1, minor1, major0, minor0
	}

	dMajor := major1 - major0
	dMinor := abs(minor1 - minor0)
	step := 1
	if minor1 < minor0 {
		step = -1
	}

	d := 2*dMinor - dMajor
	minor := minor0
	for major := major0; major <= major1; major++ {
		row, col := major, minor
		if colMajor {
			row, col = minor, major
		}
		c, ok := g.At(row, col)
		if !ok || !c.IsWalkable() {
			return false
		}
		if d > 0 {
			minor += step
			d -= 2 * dMajor
		}
		d += 2 * dMinor
	}
	return true
}

// Path removes waypoints that can be skipped in a straight line. From each
// kept waypoint it probes later waypoints in order, stops at the first one it
// cannot reach directly and drops everything before the last reachable one.
// The first and last waypoints are always kept. p is not modified.
func Path(g *grid.Grid, p grid.Path) grid.Path {
	out := append(grid.Path(nil), p...)
	for cur := 0; cur < len(out)-1; cur++ {
		far := -1
		for cand := cur + 2; cand < len(out); cand++ {
			if !CanTraverseDirect(g, out[cur], out[cand]) {
				break
			}
			far = cand
		}
		if far > 0 {
			out = append(out[:cur+1], out[far:]...)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
