package search

import "testing"

func TestOpenSetOrdersByCostThenID(t *testing.T) {
	s := newOpenSet(8)
	s.push(5, 2)
	s.push(3, 1)
	s.push(1, 2)
	s.push(7, 1)
	var got []int
	for {
		id, ok := s.pop()
		if !ok {
			break
		}
		got = append(got, id)
	}
	want := []int{3, 7, 1, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order=%v want %v", got, want)
		}
	}
}

func TestOpenSetDropsStaleEntries(t *testing.T) {
	s := newOpenSet(4)
	s.push(2, 5)
	s.push(1, 4)
	s.push(2, 3) // relaxed, the f=5 entry is now stale
	if s.h.Len() != 3 {
		t.Fatalf("heap len=%d want 3", s.h.Len())
	}
	if id, _ := s.peek(); id != 2 {
		t.Fatalf("peek=%d want 2", id)
	}
	s.pop()
	if id, _ := s.pop(); id != 1 {
		t.Fatalf("second pop=%d want 1", id)
	}
	if _, ok := s.pop(); ok {
		t.Fatalf("stale entry for 2 should have been discarded")
	}
	s.push(0, 2)
	s.push(0, 1)
	if id, ok := s.pop(); !ok || id != 0 {
		t.Fatalf("pop=%d,%v want 0", id, ok)
	}
	if _, ok := s.peek(); ok {
		t.Fatalf("popped cell's older entry should be stale")
	}
}
