// Package terrain generates seeded height and slope fields for the grid
// builder. The same Config always produces the same samples.
package terrain

import (
	"errors"
	"fmt"
	"math"

	"gridnav.ai/internal/nav/build"
)

var ErrBadConfig = errors.New("bad terrain config")

type Config struct {
	Seed int64 `yaml:"seed" json:"seed"`
	// Size is the number of samples per side.
	Size int `yaml:"size" json:"size"`
	// FeatureSize is the lattice spacing of the lowest noise octave, in samples.
	FeatureSize int `yaml:"feature_size" json:"feature_size"`
	Octaves     int `yaml:"octaves" json:"octaves"`
	// Relief is the vertical extent of a height of 1, in sample spacings. It
	// only affects slopes.
	Relief float64 `yaml:"relief" json:"relief"`

	// Lakes are depressions placed on a coarse lattice: one candidate centre
	// per LakeGrid x LakeGrid block, kept with probability LakePermille/1000.
	LakeGrid     int `yaml:"lake_grid" json:"lake_grid"`
	LakeRadius   int `yaml:"lake_radius" json:"lake_radius"`
	LakePermille int `yaml:"lake_permille" json:"lake_permille"`
}

func DefaultConfig() Config {
	return Config{
		Seed:         1,
		Size:         257,
		FeatureSize:  32,
		Octaves:      4,
		Relief:       8,
		LakeGrid:     64,
		LakeRadius:   10,
		LakePermille: 350,
	}
}

func (c *Config) Normalize() {
	if c.Octaves <= 0 {
		c.Octaves = 1
	}
	if c.Relief <= 0 {
		c.Relief = 1
	}
	if c.LakePermille < 0 {
		c.LakePermille = 0
	}
	if c.LakePermille > 1000 {
		c.LakePermille = 1000
	}
}

func (c Config) Validate() error {
	if c.Size < 3 {
		return fmt.Errorf("%w: size %d must be >= 3", ErrBadConfig, c.Size)
	}
	if c.FeatureSize <= 0 {
		return fmt.Errorf("%w: feature_size must be > 0", ErrBadConfig)
	}
	if c.LakePermille > 0 && (c.LakeGrid <= 0 || c.LakeRadius <= 0) {
		return fmt.Errorf("%w: lakes need lake_grid and lake_radius", ErrBadConfig)
	}
	return nil
}

// Generate returns heights in [0, 1] and slope cosines in (0, 1].
func Generate(cfg Config) (heights, slopes *build.Field, err error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	n := cfg.Size
	heights = build.NewField(n, n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			h := Height(cfg, row, col)
			if InLake(cfg, row, col) {
				h *= 0.25
			}
			heights.Set(row, col, float32(h))
		}
	}
	return heights, Slopes(heights, cfg.Relief), nil
}

// Height is the noise height at one sample before lakes are carved.
func Height(cfg Config, row, col int) float64 {
	cell := cfg.FeatureSize
	amp, sum, total := 1.0, 0.0, 0.0
	for o := 0; o < cfg.Octaves; o++ {
		sum += amp * valueNoise(cfg.Seed+int64(o)*7919, row, col, cell)
		total += amp
		amp /= 2
		if cell > 1 {
			cell /= 2
		}
	}
	return sum / total
}

func valueNoise(seed int64, row, col, cell int) float64 {
	r0, c0 := floorDiv(row, cell), floorDiv(col, cell)
	fr := smooth(float64(row-r0*cell) / float64(cell))
	fc := smooth(float64(col-c0*cell) / float64(cell))

	v00 := unit(hash2(seed, r0, c0))
	v01 := unit(hash2(seed, r0, c0+1))
	v10 := unit(hash2(seed, r0+1, c0))
	v11 := unit(hash2(seed, r0+1, c0+1))
	top := v00 + (v01-v00)*fc
	bottom := v10 + (v11-v10)*fc
	return top + (bottom-top)*fr
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

// InLake reports whether a sample lies within a lake centre's radius. Each
// coarse block holds at most one centre, so only the 3x3 surrounding blocks
// need checking.
func InLake(cfg Config, row, col int) bool {
	grid, radius := cfg.LakeGrid, cfg.LakeRadius
	if grid <= 0 || radius <= 0 || cfg.LakePermille <= 0 {
		return false
	}
	gr, gc := floorDiv(row, grid), floorDiv(col, grid)
	r2 := radius * radius
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			br, bc := gr+dr, gc+dc
			h := hash2(cfg.Seed^0x5eed, br, bc)
			if h%1000 >= uint64(cfg.LakePermille) {
				continue
			}
			cr := br*grid + int((h>>10)%uint64(grid))
			cc := bc*grid + int((h>>20)%uint64(grid))
			if (row-cr)*(row-cr)+(col-cc)*(col-cc) <= r2 {
				return true
			}
		}
	}
	return false
}

// Slopes derives slope cosines from central differences of heights, using
// one-sided differences on the edges.
func Slopes(heights build.Source, relief float64) *build.Field {
	rows, cols := heights.Rows(), heights.Cols()
	out := build.NewField(rows, cols)
	at := func(r, c int) float64 { return float64(heights.At(r, c)) * relief }
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			gx := diff(at, row, col, rows, true)
			gz := diff(at, row, col, cols, false)
			out.Set(row, col, float32(1/math.Sqrt(1+gx*gx+gz*gz)))
		}
	}
	return out
}

func diff(at func(r, c int) float64, row, col, n int, alongRow bool) float64 {
	i := col
	if alongRow {
		i = row
	}
	lo, hi := i-1, i+1
	if lo < 0 {
		lo = i
	}
	if hi >= n {
		hi = i
	}
	if lo == hi {
		return 0
	}
	if alongRow {
		return (at(hi, col) - at(lo, col)) / float64(hi-lo)
	}
	return (at(row, hi) - at(row, lo)) / float64(hi-lo)
}
