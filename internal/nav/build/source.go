package build

// Source is a 2D sample field read by the builder. Height sources return raw
// heights; slope sources return the cosine of the surface slope.
type Source interface {
	Rows() int
	Cols() int
	At(row, col int) float32
}

// Field is a dense row-major Source.
type Field struct {
	rows, cols int
	data       []float32
}

func NewField(rows, cols int) *Field {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Field{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// Fill returns a field with every sample set to v.
func Fill(rows, cols int, v float32) *Field {
	f := NewField(rows, cols)
	for i := range f.data {
		f.data[i] = v
	}
	return f
}

func (f *Field) Rows() int { return f.rows }
func (f *Field) Cols() int { return f.cols }

func (f *Field) At(row, col int) float32 { return f.data[col+row*f.cols] }

func (f *Field) Set(row, col int, v float32) { f.data[col+row*f.cols] = v }
