package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"gridnav.ai/internal/nav/metrics"
	"gridnav.ai/internal/nav/pathfinder"
	"gridnav.ai/internal/nav/search"
)

func TestRequestLoggerWritesEntries(t *testing.T) {
	dir := t.TempDir()
	l := NewRequestLogger(dir)
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	l.w.now = func() time.Time { return at }

	if err := l.WriteOutcome(pathfinder.Outcome{ID: "a", Mode: metrics.ModeSync, GridKey: "walker", Cost: "octile", StartID: 1, GoalID: 9, Iterations: 4, PathLen: 5, Elapsed: 1500 * time.Microsecond}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.WriteOutcome(pathfinder.Outcome{ID: "b", Mode: metrics.ModeAsync, GridKey: "walker", Err: search.ErrBudgetExhausted, Iterations: 20}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Reopening the same hour appends another frame.
	if err := l.WriteOutcome(pathfinder.Outcome{ID: "c", Mode: metrics.ModeSync, GridKey: "wader"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []RequestEntry
	path := filepath.Join(dir, "requests", "requests-2026-03-01-10.jsonl.zst")
	err := ReadJSONL(path, func(line []byte) error {
		var e RequestEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries=%+v", got)
	}
	if got[0].Result != "found" || got[0].ElapsedMs != 1.5 || got[0].PathLen != 5 || got[0].Error != "" || got[0].Cost != "octile" {
		t.Fatalf("first=%+v", got[0])
	}
	if got[1].Result != "budget_exhausted" || got[1].Error == "" || got[1].Cost != "" {
		t.Fatalf("second=%+v", got[1])
	}
	if got[2].ID != "c" || got[2].GridKey != "wader" {
		t.Fatalf("third=%+v", got[2])
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "x")
	at := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatal(err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	for _, hour := range []string{"2026-03-01-10", "2026-03-01-11"} {
		lines := 0
		if err := ReadJSONL(w.pathForHour(hour), func([]byte) error { lines++; return nil }); err != nil {
			t.Fatalf("%s: %v", hour, err)
		}
		if lines != 1 {
			t.Fatalf("%s: %d lines", hour, lines)
		}
	}
}
