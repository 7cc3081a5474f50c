package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Attr is the per-cell attribute set. Boundary overrides everything else.
type Attr uint8

const (
	AttrNone     Attr = 0x00
	AttrWalkable Attr = 0x01
	AttrWater    Attr = 0x02
	AttrBoundary Attr = 0x80
)

const (
	RegionUnassigned int32 = -1
	RegionIsolated   int32 = 0
)

// Resolution is the terrain downsampling factor of a grid.
type Resolution int

const (
	Resolution1x1   Resolution = 1
	Resolution2x2   Resolution = 2
	Resolution4x4   Resolution = 4
	Resolution8x8   Resolution = 8
	Resolution16x16 Resolution = 16
)

func (r Resolution) Valid() bool {
	switch r {
	case Resolution1x1, Resolution2x2, Resolution4x4, Resolution8x8, Resolution16x16:
		return true
	}
	return false
}

type Cell struct {
	ID        int
	Row       int
	Col       int
	WorldPos  mgl32.Vec3
	Attrs     Attr
	Neighbors Mask
	Region    int32
}

func (c *Cell) IsBoundary() bool { return c.Attrs&AttrBoundary != 0 }
func (c *Cell) IsWater() bool    { return c.Attrs&AttrWater != 0 }

// IsWalkable is true for dry walkable cells only.
func (c *Cell) IsWalkable() bool {
	return !c.IsWater() && c.Attrs&AttrWalkable != 0
}

func (c *Cell) HasNeighbor(d Dir) bool { return c.Neighbors.Has(d) }

func (c *Cell) String() string {
	return fmt.Sprintf("cell#%d(%d,%d)", c.ID, c.Row, c.Col)
}

// Grid is a walkability grid. Cells are indexed by ID = col + row*Width.
// World X maps to rows and world Z to columns.
type Grid struct {
	Key        string
	Resolution Resolution
	Width      int        // columns
	Height     int        // rows
	CellSize   mgl32.Vec2 // world extent of one cell along X (rows) and Z (cols)

	Cells []Cell
}

// New allocates a grid with every cell unclassified, unlinked and unassigned.
func New(key string, res Resolution, width, height int, cellSize mgl32.Vec2) *Grid {
	g := &Grid{
		Key:        key,
		Resolution: res,
		Width:      width,
		Height:     height,
		CellSize:   cellSize,
		Cells:      make([]Cell, width*height),
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			id := g.Index(row, col)
			g.Cells[id] = Cell{
				ID:       id,
				Row:      row,
				Col:      col,
				WorldPos: g.CellCenter(row, col, 0),
				Region:   RegionUnassigned,
			}
		}
	}
	return g
}

func (g *Grid) Len() int { return len(g.Cells) }

func (g *Grid) Index(row, col int) int { return col + row*g.Width }

func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.Height && col < g.Width
}

func (g *Grid) At(row, col int) (*Cell, bool) {
	if !g.InBounds(row, col) {
		return nil, false
	}
	return &g.Cells[g.Index(row, col)], true
}

func (g *Grid) ByID(id int) (*Cell, bool) {
	if id < 0 || id >= len(g.Cells) {
		return nil, false
	}
	return &g.Cells[id], true
}

// Neighbor returns the geometric neighbor in direction d, linked or not.
func (g *Grid) Neighbor(c *Cell, d Dir) (*Cell, bool) {
	dr, dc := d.Offset()
	return g.At(c.Row+dr, c.Col+dc)
}

// CellCenter is the world position of the centre of (row, col) at the given height.
func (g *Grid) CellCenter(row, col int, height float32) mgl32.Vec3 {
	return mgl32.Vec3{
		(float32(row) + 0.5) * g.CellSize.X(),
		height,
		(float32(col) + 0.5) * g.CellSize.Y(),
	}
}

// CellAt maps a world position onto the cell containing it.
func (g *Grid) CellAt(pos mgl32.Vec3) (*Cell, bool) {
	if g.CellSize.X() <= 0 || g.CellSize.Y() <= 0 {
		return nil, false
	}
	row := int(math.Floor(float64(pos.X() / g.CellSize.X())))
	col := int(math.Floor(float64(pos.Z() / g.CellSize.Y())))
	return g.At(row, col)
}

// GridDistance is the Euclidean distance between two cells in cell units.
func GridDistance(a, b *Cell) float64 {
	dr := float64(b.Row - a.Row)
	dc := float64(b.Col - a.Col)
	return math.Sqrt(dr*dr + dc*dc)
}

// Digest hashes the connectivity-relevant state of the grid.
func (g *Grid) Digest() string {
	h := sha256.New()
	var tmp [10]byte
	binary.LittleEndian.PutUint32(tmp[:4], uint32(g.Width))
	binary.LittleEndian.PutUint32(tmp[4:8], uint32(g.Height))
	h.Write(tmp[:8])
	for i := range g.Cells {
		c := &g.Cells[i]
		tmp[0] = byte(c.Attrs)
		tmp[1] = byte(c.Neighbors)
		binary.LittleEndian.PutUint32(tmp[2:6], uint32(c.Region))
		binary.LittleEndian.PutUint32(tmp[6:10], math.Float32bits(c.WorldPos.Y()))
		h.Write(tmp[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
