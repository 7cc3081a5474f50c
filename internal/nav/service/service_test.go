package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/cost"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/navtest"
	"gridnav.ai/internal/nav/pathfinder"
	"gridnav.ai/internal/nav/search"
)

var maze = []string{
	"############",
	"#....x.....#",
	"#.xx.x.xxx.#",
	"#..x...x...#",
	"#x.xxxxx.x.#",
	"#..........#",
	"############",
}

func startService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	pf, err := pathfinder.New(pathfinder.DefaultConfig())
	if err != nil {
		t.Fatalf("pathfinder: %v", err)
	}
	s := New(Config{TickRateHz: 200}, pf, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		s.Stop()
		<-done
		cancel()
	})
	return s, ctx
}

func TestServicePathRequests(t *testing.T) {
	s, ctx := startService(t)
	g := navtest.Grid("maze", maze, build.LinkOptions{})
	if err := s.Register(ctx, g); err != nil {
		t.Fatalf("Register: %v", err)
	}

	q := PathQuery{GridKey: "maze", Start: navtest.Centre(g, 1, 1), End: navtest.Centre(g, 5, 10), Optimize: true}
	direct, err := s.RequestPath(ctx, q)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(direct.Cells) < 2 || len(direct.Waypoints) != len(direct.Cells) {
		t.Fatalf("sync answer %+v", direct)
	}
	if len(direct.Optimized) == 0 || len(direct.Optimized) > len(direct.Waypoints) {
		t.Fatalf("optimized %d waypoints from %d", len(direct.Optimized), len(direct.Waypoints))
	}
	if direct.Optimized[0] != direct.Waypoints[0] || direct.Optimized[len(direct.Optimized)-1] != direct.Waypoints[len(direct.Waypoints)-1] {
		t.Fatalf("optimized endpoints moved")
	}

	q.Async = true
	q.Optimize = false
	async, err := s.RequestPath(ctx, q)
	if err != nil {
		t.Fatalf("async: %v", err)
	}
	if len(async.Cells) != len(direct.Cells) {
		t.Fatalf("async cells %v sync cells %v", async.Cells, direct.Cells)
	}
	for i := range async.Cells {
		if async.Cells[i] != direct.Cells[i] {
			t.Fatalf("async cells %v sync cells %v", async.Cells, direct.Cells)
		}
	}
	if async.Ticks == 0 {
		t.Fatalf("async answer should wait at least one tick")
	}
}

func TestServiceErrors(t *testing.T) {
	s, ctx := startService(t)
	g := navtest.Grid("ring", navtest.Ring(), build.LinkOptions{})
	if err := s.Register(ctx, g); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := s.RequestPath(ctx, PathQuery{GridKey: "missing", Async: true})
	if !errors.Is(err, search.ErrNoGridData) {
		t.Fatalf("err=%v want ErrNoGridData", err)
	}
	_, err = s.RequestPath(ctx, PathQuery{GridKey: "ring", Start: navtest.Centre(g, 0, 0), End: navtest.Centre(g, 2, 2)})
	if !errors.Is(err, search.ErrUnlinkedAreas) {
		t.Fatalf("boundary start err=%v want ErrUnlinkedAreas", err)
	}
	if err := s.Register(ctx, nil); !errors.Is(err, pathfinder.ErrBadGrid) {
		t.Fatalf("nil grid err=%v", err)
	}
}

func TestServiceLineOfSightAndGrids(t *testing.T) {
	s, ctx := startService(t)
	g := navtest.Grid("ring", navtest.Ring(), build.LinkOptions{})
	if err := s.Register(ctx, g); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ok, err := s.LineOfSight(ctx, "ring", navtest.Centre(g, 1, 1), navtest.Centre(g, 3, 3))
	if err != nil || !ok {
		t.Fatalf("los=%v err=%v", ok, err)
	}
	ok, _ = s.LineOfSight(ctx, "ring", navtest.Centre(g, 0, 0), navtest.Centre(g, 3, 3))
	if ok {
		t.Fatalf("boundary cell should block line of sight")
	}
	grids, err := s.Grids(ctx)
	if err != nil {
		t.Fatalf("Grids: %v", err)
	}
	if len(grids) != 1 || grids[0].Key != "ring" || grids[0].Regions != 1 || grids[0].Digest != g.Digest() {
		t.Fatalf("grids=%+v", grids)
	}
}

func TestServiceSummariesComputedAtRegister(t *testing.T) {
	s, ctx := startService(t)
	g := navtest.Grid("ring", navtest.Ring(), build.LinkOptions{})
	if err := s.Register(ctx, g); err != nil {
		t.Fatalf("Register: %v", err)
	}
	want := g.Digest()
	// Touch the grid behind the service's back; a recomputed digest would differ.
	navtest.Cell(g, 2, 2).Attrs = grid.AttrNone
	for i := 0; i < 2; i++ {
		grids, err := s.Grids(ctx)
		if err != nil {
			t.Fatalf("Grids: %v", err)
		}
		if len(grids) != 1 || grids[0].Digest != want {
			t.Fatalf("call %d: digest %q want cached %q", i, grids[0].Digest, want)
		}
	}
}

func TestServiceRejectsUnknownCost(t *testing.T) {
	s, ctx := startService(t)
	g := navtest.Grid("ring", navtest.Ring(), build.LinkOptions{})
	if err := s.Register(ctx, g); err != nil {
		t.Fatalf("Register: %v", err)
	}
	for _, async := range []bool{false, true} {
		_, err := s.RequestPath(ctx, PathQuery{GridKey: "ring", Start: navtest.Centre(g, 1, 1), End: navtest.Centre(g, 3, 3), Cost: "octlie", Async: async})
		if !errors.Is(err, cost.ErrUnknown) {
			t.Fatalf("async=%v err=%v want cost.ErrUnknown", async, err)
		}
	}
	if _, err := s.RequestPath(ctx, PathQuery{GridKey: "ring", Start: navtest.Centre(g, 1, 1), End: navtest.Centre(g, 3, 3), Cost: "octile"}); err != nil {
		t.Fatalf("octile: %v", err)
	}
}

func TestServiceStopped(t *testing.T) {
	pf, _ := pathfinder.New(pathfinder.DefaultConfig())
	s := New(Config{}, pf, nil)
	s.Stop()
	s.Stop()
	if _, err := s.RequestPath(context.Background(), PathQuery{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("err=%v want ErrStopped", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run after Stop: %v", err)
	}
}
