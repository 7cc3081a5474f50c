package build

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"gridnav.ai/internal/nav/grid"
)

var (
	ErrMissingSource  = errors.New("missing terrain source")
	ErrBadResolution  = errors.New("unsupported resolution")
	ErrBadSlopeLimit  = errors.New("slope limit must be in (0, 90] degrees")
	ErrSourceTooSmall = errors.New("terrain source too small for resolution")
	ErrSourceMismatch = errors.New("height and slope sources differ in size")
)

type Config struct {
	Key        string
	Resolution grid.Resolution

	// SlopeLimit is the steepest walkable slope in degrees.
	SlopeLimit  float64
	WaterHeight float32
	// HeightScale converts raw height samples to world units. Zero means 1.
	HeightScale float32
	// SampleSpacing is the world distance between source samples along X
	// (rows) and Z (cols). Zero means 1x1.
	SampleSpacing mgl32.Vec2

	CanUseWater     bool
	NoCornerCutting bool
}

// Build samples heights and slopes into a fresh grid, classifies every cell and
// links neighbors. Regions are left unassigned.
func Build(cfg Config, heights, slopes Source) (*grid.Grid, error) {
	if heights == nil || slopes == nil {
		return nil, ErrMissingSource
	}
	if !cfg.Resolution.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadResolution, cfg.Resolution)
	}
	if !(cfg.SlopeLimit > 0 && cfg.SlopeLimit <= 90) {
		return nil, fmt.Errorf("%w: %v", ErrBadSlopeLimit, cfg.SlopeLimit)
	}
	if heights.Rows() != slopes.Rows() || heights.Cols() != slopes.Cols() {
		return nil, fmt.Errorf("%w: heights %dx%d slopes %dx%d", ErrSourceMismatch,
			heights.Rows(), heights.Cols(), slopes.Rows(), slopes.Cols())
	}
	res := int(cfg.Resolution)
	rows := (heights.Rows() - 1) / res
	cols := (heights.Cols() - 1) / res
	if rows < 3 || cols < 3 {
		return nil, fmt.Errorf("%w: %dx%d samples at %dx", ErrSourceTooSmall, heights.Rows(), heights.Cols(), res)
	}

	scale := cfg.HeightScale
	if scale == 0 {
		scale = 1
	}
	spacing := cfg.SampleSpacing
	if spacing.X() <= 0 || spacing.Y() <= 0 {
		spacing = mgl32.Vec2{1, 1}
	}

	g := grid.New(cfg.Key, cfg.Resolution, cols, rows, spacing.Mul(float32(res)))
	cosLimit := math.Cos(cfg.SlopeLimit * math.Pi / 180)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c, _ := g.At(row, col)
			h := sampleMean(heights, row*res, col*res, res+1) * scale
			cosSlope := sampleMin(slopes, row*res, col*res, res+1)
			c.WorldPos = g.CellCenter(row, col, h)

			switch {
			case h < cfg.WaterHeight:
				c.Attrs = grid.AttrWater
			case float64(cosSlope) >= cosLimit:
				c.Attrs = grid.AttrWalkable
			default:
				c.Attrs = grid.AttrNone
			}
			if row == 0 || col == 0 || row == rows-1 || col == cols-1 {
				c.Attrs = grid.AttrBoundary
			}
		}
	}

	Link(g, LinkOptions{CanUseWater: cfg.CanUseWater, NoCornerCutting: cfg.NoCornerCutting})
	return g, nil
}

// sampleMean averages the size x size block at (row0, col0), clamped to the source.
func sampleMean(src Source, row0, col0, size int) float32 {
	var sum float32
	n := 0
	for r := row0; r < row0+size && r < src.Rows(); r++ {
		for c := col0; c < col0+size && c < src.Cols(); c++ {
			sum += src.At(r, c)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

// sampleMin is the smallest sample in the block, capped at 1 (flat).
func sampleMin(src Source, row0, col0, size int) float32 {
	minCos := float32(1)
	for r := row0; r < row0+size && r < src.Rows(); r++ {
		for c := col0; c < col0+size && c < src.Cols(); c++ {
			if v := src.At(r, c); v < minCos {
				minCos = v
			}
		}
	}
	return minCos
}
