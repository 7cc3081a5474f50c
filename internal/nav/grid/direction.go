package grid

// Dir indexes the 8 compass neighbors: N=0, NE=1, E=2, SE=3, S=4, SW=5, W=6, NW=7.
// North is +row, east is +col.
type Dir uint8

const (
	DirN Dir = iota
	DirNE
	DirE
	DirSE
	DirS
	DirSW
	DirW
	DirNW
	DirCount
)

// Mask is a bitset over Dir; bit i is set when the neighbor in direction i is linked.
type Mask uint8

const MaskNone Mask = 0

// Offsets matching DirN..DirNW as {dRow, dCol}.
var dirOffsets = [DirCount][2]int{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

var dirOpposite = [DirCount]Dir{
	DirS, DirSW, DirW, DirNW,
	DirN, DirNE, DirE, DirSE,
}

var dirNames = [DirCount]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func (d Dir) Bit() Mask { return 1 << d }

func (d Dir) Offset() (dRow, dCol int) {
	o := dirOffsets[d]
	return o[0], o[1]
}

func (d Dir) Opposite() Dir { return dirOpposite[d] }

// Diagonal reports whether d is one of NE, SE, SW, NW.
func (d Dir) Diagonal() bool { return d&1 == 1 }

func (d Dir) String() string {
	if d >= DirCount {
		return "?"
	}
	return dirNames[d]
}

func (m Mask) Has(d Dir) bool { return m&d.Bit() != 0 }

func (m Mask) With(d Dir) Mask { return m | d.Bit() }

// Count returns the number of linked directions.
func (m Mask) Count() int {
	n := 0
	for v := m; v != 0; v &= v - 1 {
		n++
	}
	return n
}
