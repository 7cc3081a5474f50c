package regions

import (
	"fmt"

	"gridnav.ai/internal/nav/grid"
)

type Stats struct {
	Regions  int // connected regions, ids 1..Regions
	Isolated int // cells with no links (region 0), boundary included
	MinSize  int
	MaxSize  int
}

// Partition labels every unassigned cell. Cells without links become
// RegionIsolated; every other cell gets the id of its connected component,
// numbered from 1 in cell id order. Already labeled cells are left alone.
func Partition(g *grid.Grid) Stats {
	var st Stats
	next := int32(1)
	for _, c := range g.Cells {
		if c.Region > next-1 {
			next = c.Region + 1
		}
	}

	queued := make([]bool, g.Len())
	queue := make([]int, 0, 64)
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.Region != grid.RegionUnassigned {
			continue
		}
		if c.Neighbors == grid.MaskNone {
			c.Region = grid.RegionIsolated
			st.Isolated++
			continue
		}

		id := next
		next++
		size := 0
		queue = append(queue[:0], c.ID)
		queued[c.ID] = true
		for head := 0; head < len(queue); head++ {
			cur := &g.Cells[queue[head]]
			cur.Region = id
			size++
			for d := grid.Dir(0); d < grid.DirCount; d++ {
				if !cur.HasNeighbor(d) {
					continue
				}
				nb, ok := g.Neighbor(cur, d)
				if !ok || queued[nb.ID] || nb.Region != grid.RegionUnassigned {
					continue
				}
				queued[nb.ID] = true
				queue = append(queue, nb.ID)
			}
		}

		st.Regions++
		if st.MinSize == 0 || size < st.MinSize {
			st.MinSize = size
		}
		if size > st.MaxSize {
			st.MaxSize = size
		}
	}
	return st
}

// Labeled reports whether every cell has a region.
func Labeled(g *grid.Grid) bool {
	for i := range g.Cells {
		if g.Cells[i].Region == grid.RegionUnassigned {
			return false
		}
	}
	return true
}

// Count returns the highest region id on the grid.
func Count(g *grid.Grid) int {
	n := int32(0)
	for i := range g.Cells {
		if g.Cells[i].Region > n {
			n = g.Cells[i].Region
		}
	}
	return int(n)
}

// Reset clears all labels so the grid can be partitioned again.
func Reset(g *grid.Grid) {
	for i := range g.Cells {
		g.Cells[i].Region = grid.RegionUnassigned
	}
}

// Verify checks the invariants the search relies on: links are symmetric and
// stay on the grid, boundary cells are unlinked, and linked cells share a
// region >= 1.
func Verify(g *grid.Grid) error {
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.Region == grid.RegionUnassigned {
			return fmt.Errorf("%s: unassigned region", c)
		}
		if c.IsBoundary() && c.Neighbors != grid.MaskNone {
			return fmt.Errorf("%s: boundary cell has links %08b", c, c.Neighbors)
		}
		if c.Neighbors != grid.MaskNone && c.Region < 1 {
			return fmt.Errorf("%s: linked cell in region %d", c, c.Region)
		}
		for d := grid.Dir(0); d < grid.DirCount; d++ {
			if !c.HasNeighbor(d) {
				continue
			}
			nb, ok := g.Neighbor(c, d)
			if !ok {
				return fmt.Errorf("%s: link %s leaves the grid", c, d)
			}
			if !nb.HasNeighbor(d.Opposite()) {
				return fmt.Errorf("%s: link %s to %s is one-way", c, d, nb)
			}
			if nb.Region != c.Region {
				return fmt.Errorf("%s: region %d linked to %s in region %d", c, c.Region, nb, nb.Region)
			}
		}
	}
	return nil
}
