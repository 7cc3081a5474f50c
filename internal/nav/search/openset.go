package search

import "container/heap"

// openEntry is one heap record. gen must match the cell's current generation
// or the entry is stale and gets discarded.
type openEntry struct {
	f   float64
	id  int
	gen uint32
}

type openHeap []openEntry

func (h openHeap) Len() int { return len(h) }

func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].id < h[j].id
}

func (h openHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *openHeap) Push(x any) { *h = append(*h, x.(openEntry)) }

func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// openSet orders open cells by (f, id). Relaxing a cell pushes a fresh entry
// and bumps its generation instead of moving the old one.
type openSet struct {
	h   openHeap
	gen []uint32
}

func newOpenSet(n int) *openSet {
	return &openSet{gen: make([]uint32, n)}
}

func (s *openSet) push(id int, f float64) {
	s.gen[id]++
	heap.Push(&s.h, openEntry{f: f, id: id, gen: s.gen[id]})
}

// peek drops stale entries and returns the live minimum without removing it.
func (s *openSet) peek() (int, bool) {
	for s.h.Len() > 0 {
		top := s.h[0]
		if top.gen == s.gen[top.id] {
			return top.id, true
		}
		heap.Pop(&s.h)
	}
	return 0, false
}

func (s *openSet) pop() (int, bool) {
	id, ok := s.peek()
	if !ok {
		return 0, false
	}
	heap.Pop(&s.h)
	s.gen[id]++
	return id, true
}
