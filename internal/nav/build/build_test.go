package build

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"gridnav.ai/internal/nav/grid"
)

func flatConfig() Config {
	return Config{Key: "flat", Resolution: grid.Resolution1x1, SlopeLimit: 45, WaterHeight: 0.5}
}

func TestBuildFlatTerrain(t *testing.T) {
	g, err := Build(flatConfig(), Fill(6, 6, 1), Fill(6, 6, 1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Width != 5 || g.Height != 5 {
		t.Fatalf("dims=%dx%d want 5x5", g.Width, g.Height)
	}
	sum := Summarize(g)
	if sum.Boundary != 16 || sum.Walkable != 9 || sum.Water != 0 || sum.Blocked != 0 {
		t.Fatalf("unexpected counts %+v", sum)
	}
	centre, _ := g.At(2, 2)
	if centre.Neighbors.Count() != 8 {
		t.Fatalf("centre links=%d want 8", centre.Neighbors.Count())
	}
	corner, _ := g.At(1, 1)
	if corner.Neighbors.Count() != 3 {
		t.Fatalf("interior corner links=%d want 3", corner.Neighbors.Count())
	}
	if corner.WorldPos.Y() != 1 {
		t.Fatalf("height=%v want 1", corner.WorldPos.Y())
	}
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.IsBoundary() && c.Neighbors != grid.MaskNone {
			t.Fatalf("boundary %s has links %08b", c, c.Neighbors)
		}
	}
	assertSymmetric(t, g)
}

func TestBuildClassifiesWaterAndSlope(t *testing.T) {
	cfg := flatConfig()
	cfg.HeightScale = 10
	cfg.WaterHeight = 5
	heights := Fill(6, 6, 1)
	heights.Set(1, 1, -2)
	slopes := Fill(6, 6, 1)
	slopes.Set(4, 4, 0.1) // steep sample inside block of (3,3)

	g, err := Build(cfg, heights, slopes)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// (1,1) averages samples (1..2, 1..2): (-2+1+1+1)/4 = 0.25 -> 2.5 world.
	wet, _ := g.At(1, 1)
	if !wet.IsWater() || wet.IsWalkable() {
		t.Fatalf("(1,1) attrs=%08b want water", wet.Attrs)
	}
	steep, _ := g.At(3, 3)
	if steep.IsWalkable() || steep.IsWater() {
		t.Fatalf("(3,3) attrs=%08b want blocked", steep.Attrs)
	}
	if steep.Neighbors != grid.MaskNone {
		t.Fatalf("blocked cell should not link, got %08b", steep.Neighbors)
	}
	dry, _ := g.At(1, 2)
	if dry.HasNeighbor(grid.DirW) {
		t.Fatalf("dry cell must not link to water without CanUseWater")
	}
	assertSymmetric(t, g)
}

func TestBuildCanUseWaterLinksShore(t *testing.T) {
	cfg := flatConfig()
	cfg.CanUseWater = true
	heights := Fill(6, 6, 1)
	heights.Set(1, 1, -2)
	cfg.WaterHeight = 0.5

	g, err := Build(cfg, heights, Fill(6, 6, 1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wet, _ := g.At(1, 1)
	if !wet.IsWater() {
		t.Fatalf("(1,1) should be water")
	}
	dry, _ := g.At(1, 2)
	if !dry.HasNeighbor(grid.DirW) || !wet.HasNeighbor(grid.DirE) {
		t.Fatalf("shore link missing: dry=%08b wet=%08b", dry.Neighbors, wet.Neighbors)
	}
}

func TestBuildDownsamples(t *testing.T) {
	cfg := flatConfig()
	cfg.Resolution = grid.Resolution4x4
	cfg.SampleSpacing = mgl32.Vec2{0.5, 2}
	g, err := Build(cfg, Fill(21, 17, 1), Fill(21, 17, 1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Height != 5 || g.Width != 4 {
		t.Fatalf("dims rows=%d cols=%d want 5x4", g.Height, g.Width)
	}
	if g.CellSize != (mgl32.Vec2{2, 8}) {
		t.Fatalf("cell size=%v", g.CellSize)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	heights := NewField(9, 9)
	slopes := NewField(9, 9)
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			heights.Set(r, c, float32((r*7+c*3)%5))
			slopes.Set(r, c, float32((r+c)%4)/3)
		}
	}
	cfg := flatConfig()
	cfg.WaterHeight = 1
	a, err := Build(cfg, heights, slopes)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, _ := Build(cfg, heights, slopes)
	if a.Digest() != b.Digest() {
		t.Fatalf("same inputs produced different grids")
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	cfg := flatConfig()
	if _, err := Build(cfg, nil, Fill(6, 6, 1)); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("nil heights: %v", err)
	}
	bad := cfg
	bad.Resolution = 3
	if _, err := Build(bad, Fill(6, 6, 1), Fill(6, 6, 1)); !errors.Is(err, ErrBadResolution) {
		t.Fatalf("resolution 3: %v", err)
	}
	bad = cfg
	bad.SlopeLimit = 0
	if _, err := Build(bad, Fill(6, 6, 1), Fill(6, 6, 1)); !errors.Is(err, ErrBadSlopeLimit) {
		t.Fatalf("slope 0: %v", err)
	}
	if _, err := Build(cfg, Fill(3, 3, 1), Fill(3, 3, 1)); !errors.Is(err, ErrSourceTooSmall) {
		t.Fatalf("3x3 source: %v", err)
	}
	// A short slope map must not leave the uncovered blocks flat.
	if _, err := Build(cfg, Fill(17, 17, 1), Fill(3, 3, 0)); !errors.Is(err, ErrSourceMismatch) {
		t.Fatalf("17x17 heights with 3x3 slopes: %v", err)
	}
	if _, err := Build(cfg, Fill(6, 6, 1), Fill(6, 7, 1)); !errors.Is(err, ErrSourceMismatch) {
		t.Fatalf("column mismatch: %v", err)
	}
}

func TestLinkCornerCutting(t *testing.T) {
	g := grid.New("ring", grid.Resolution1x1, 5, 5, mgl32.Vec2{1, 1})
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.Row == 0 || c.Col == 0 || c.Row == 4 || c.Col == 4 {
			c.Attrs = grid.AttrBoundary
		} else {
			c.Attrs = grid.AttrWalkable
		}
	}
	centre, _ := g.At(2, 2)
	centre.Attrs = grid.AttrWater

	Link(g, LinkOptions{})
	edge, _ := g.At(1, 2)
	if !edge.HasNeighbor(grid.DirNE) {
		t.Fatalf("(1,2)->(2,3) should link when corners may be cut")
	}

	Link(g, LinkOptions{NoCornerCutting: true})
	if edge.HasNeighbor(grid.DirNE) {
		t.Fatalf("(1,2)->(2,3) cuts past water and must not link")
	}
	if !edge.HasNeighbor(grid.DirE) || !edge.HasNeighbor(grid.DirW) {
		t.Fatalf("orthogonal links lost: %08b", edge.Neighbors)
	}
	assertSymmetric(t, g)
}

func assertSymmetric(t *testing.T, g *grid.Grid) {
	t.Helper()
	for i := range g.Cells {
		c := &g.Cells[i]
		for d := grid.Dir(0); d < grid.DirCount; d++ {
			if !c.HasNeighbor(d) {
				continue
			}
			nb, ok := g.Neighbor(c, d)
			if !ok {
				t.Fatalf("%s links off-grid %s", c, d)
			}
			if !nb.HasNeighbor(d.Opposite()) {
				t.Fatalf("%s -> %s (%s) is one-way", c, nb, d)
			}
		}
	}
}
