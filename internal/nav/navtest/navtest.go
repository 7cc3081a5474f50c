// Package navtest builds small grids from ASCII maps for tests.
//
// Each string is one row, row 0 first. '#' is boundary, '.' walkable,
// '~' water and any other rune is blocked.
package navtest

import (
	"github.com/go-gl/mathgl/mgl32"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/regions"
)

// Grid builds a linked and partitioned 1x1 grid with unit cells.
func Grid(key string, rows []string, opts build.LinkOptions) *grid.Grid {
	g := Unlinked(key, rows)
	build.Link(g, opts)
	regions.Partition(g)
	return g
}

// Unlinked builds the grid with attributes only.
func Unlinked(key string, rows []string) *grid.Grid {
	height := len(rows)
	width := 0
	if height > 0 {
		width = len(rows[0])
	}
	g := grid.New(key, grid.Resolution1x1, width, height, mgl32.Vec2{1, 1})
	for r, line := range rows {
		for c := 0; c < width && c < len(line); c++ {
			cell, _ := g.At(r, c)
			switch line[c] {
			case '#':
				cell.Attrs = grid.AttrBoundary
			case '.':
				cell.Attrs = grid.AttrWalkable
			case '~':
				cell.Attrs = grid.AttrWater
			default:
				cell.Attrs = grid.AttrNone
			}
		}
	}
	return g
}

// Ring is the 5x5 grid with a boundary ring around a walkable 3x3 interior.
func Ring() []string {
	return []string{
		"#####",
		"#...#",
		"#...#",
		"#...#",
		"#####",
	}
}

// Centre returns the world position of the centre of (row, col).
func Centre(g *grid.Grid, row, col int) mgl32.Vec3 {
	return g.CellCenter(row, col, 0)
}

// Cell returns (row, col) or nil.
func Cell(g *grid.Grid, row, col int) *grid.Cell {
	c, _ := g.At(row, col)
	return c
}
