package sched

import (
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/search"
)

// Callback receives the final result of an asynchronous search.
type Callback func(search.Result)

type entry struct {
	ctx  *search.Context
	done Callback
}

// Scheduler advances asynchronous searches once per tick in FIFO order.
// It is not safe for concurrent use.
type Scheduler struct {
	active []entry
}

func New() *Scheduler { return &Scheduler{} }

// Add queues ctx behind every search already queued. A context that is
// already finished completes on the next Advance.
func (s *Scheduler) Add(ctx *search.Context, done Callback) {
	s.active = append(s.active, entry{ctx: ctx, done: done})
}

// Advance gives every queued search one bounded pass and fires callbacks for
// those that finished, in queue order. Searches added by a callback wait for
// the next tick. It returns the number of searches completed.
func (s *Scheduler) Advance() int {
	if len(s.active) == 0 {
		return 0
	}
	batch := s.active
	s.active = nil

	var keep []entry
	var finished []entry
	for _, e := range batch {
		if e.ctx.Run() == search.StatusInProgress {
			keep = append(keep, e)
			continue
		}
		finished = append(finished, e)
	}
	s.active = append(keep, s.active...)

	for _, e := range finished {
		if e.done != nil {
			e.done(e.ctx.Result())
		}
	}
	return len(finished)
}

func (s *Scheduler) Len() int { return len(s.active) }

// ActiveOn reports whether a queued search reads g.
func (s *Scheduler) ActiveOn(g *grid.Grid) bool {
	for _, e := range s.active {
		if e.ctx.Grid() == g {
			return true
		}
	}
	return false
}
