package sched

import (
	"errors"
	"testing"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/navtest"
	"gridnav.ai/internal/nav/search"
)

var field = []string{
	"##########",
	"#........#",
	"#........#",
	"#........#",
	"##########",
}

func prepare(t *testing.T, g *grid.Grid, from, to [2]int, perTick int) *search.Context {
	t.Helper()
	ctx, err := search.Prepare(g, navtest.Centre(g, from[0], from[1]), navtest.Centre(g, to[0], to[1]), nil,
		search.Budget{IterationsPerCell: 20, IterationsPerTick: perTick})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return ctx
}

func TestAdvanceFiresCallbacksInOrder(t *testing.T) {
	g := navtest.Grid("field", field, build.LinkOptions{})
	s := New()
	var order []string
	s.Add(prepare(t, g, [2]int{1, 1}, [2]int{1, 8}, 1), func(r search.Result) {
		order = append(order, "long")
	})
	s.Add(prepare(t, g, [2]int{2, 2}, [2]int{2, 3}, 1), func(r search.Result) {
		if r.Err != nil || len(r.Path) != 2 {
			t.Fatalf("short result %+v", r)
		}
		order = append(order, "short")
	})
	s.Add(prepare(t, g, [2]int{3, 1}, [2]int{3, 2}, 1), func(r search.Result) {
		order = append(order, "short2")
	})
	if s.Len() != 3 || !s.ActiveOn(g) {
		t.Fatalf("len=%d active=%v", s.Len(), s.ActiveOn(g))
	}

	ticks := 0
	for s.Len() > 0 {
		s.Advance()
		ticks++
		if ticks > 1000 {
			t.Fatalf("scheduler never drained")
		}
	}
	if len(order) != 3 || order[0] != "short" || order[1] != "short2" || order[2] != "long" {
		t.Fatalf("callback order=%v", order)
	}
	if ticks < 2 {
		t.Fatalf("per-tick budget of 1 should take several ticks, took %d", ticks)
	}
	if s.ActiveOn(g) {
		t.Fatalf("drained scheduler still reports the grid active")
	}
}

func TestAdvanceDefersSearchesAddedByCallbacks(t *testing.T) {
	g := navtest.Grid("field", field, build.LinkOptions{})
	s := New()
	var second bool
	s.Add(prepare(t, g, [2]int{1, 1}, [2]int{1, 2}, 0), func(search.Result) {
		s.Add(prepare(t, g, [2]int{1, 1}, [2]int{1, 2}, 0), func(search.Result) { second = true })
	})
	if n := s.Advance(); n != 1 {
		t.Fatalf("first advance completed %d", n)
	}
	if second || s.Len() != 1 {
		t.Fatalf("search added from a callback ran in the same tick")
	}
	s.Advance()
	if !second {
		t.Fatalf("deferred search did not complete")
	}
}

func TestAdvanceReportsFailures(t *testing.T) {
	g := navtest.Grid("corridor", []string{
		"########",
		"#......#",
		"########",
	}, build.LinkOptions{})
	ctx, err := search.Prepare(g, navtest.Centre(g, 1, 1), navtest.Centre(g, 1, 6), nil,
		search.Budget{IterationsPerCell: 1, IterationsPerTick: 2})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	s := New()
	var got error
	s.Add(ctx, func(r search.Result) { got = r.Err })
	for i := 0; i < 10 && s.Len() > 0; i++ {
		s.Advance()
	}
	if !errors.Is(got, search.ErrBudgetExhausted) {
		t.Fatalf("err=%v want ErrBudgetExhausted", got)
	}
}

func TestAdvanceEmpty(t *testing.T) {
	if n := New().Advance(); n != 0 {
		t.Fatalf("empty advance completed %d", n)
	}
}
