package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"gridnav.ai/internal/nav/search"
)

func TestObserveCountsByResult(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe(ModeSync, nil, 12, 5, time.Millisecond)
	m.Observe(ModeSync, fmt.Errorf("wrapped: %w", search.ErrUnlinkedAreas), 0, 0, time.Microsecond)
	m.Observe(ModeAsync, search.ErrBudgetExhausted, 40, 0, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues(ModeSync, "found")); got != 1 {
		t.Fatalf("sync found=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(ModeSync, "unlinked_areas")); got != 1 {
		t.Fatalf("sync unlinked=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(ModeAsync, "budget_exhausted")); got != 1 {
		t.Fatalf("async exhausted=%v want 1", got)
	}
}

func TestGaugeAndCounters(t *testing.T) {
	m := New(nil)
	m.SetActive(3)
	if got := testutil.ToFloat64(m.active); got != 3 {
		t.Fatalf("active=%v want 3", got)
	}
	m.LineOfSight(true)
	m.LineOfSight(false)
	m.LineOfSight(false)
	if got := testutil.ToFloat64(m.los.WithLabelValues("false")); got != 2 {
		t.Fatalf("blocked los=%v want 2", got)
	}
	m.Defect()
	if got := testutil.ToFloat64(m.defects); got != 1 {
		t.Fatalf("defects=%v want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe(ModeSync, nil, 1, 1, 0)
	m.SetActive(1)
	m.LineOfSight(true)
	m.Defect()
}

func TestResultLabels(t *testing.T) {
	cases := map[error]string{
		search.ErrNoGridData:   "no_grid_data",
		search.ErrStartInvalid: "start_invalid",
		search.ErrEndInvalid:   "end_invalid",
		search.ErrNoPathFound:  "no_path_found",
		errors.New("other"):    "error",
	}
	for err, want := range cases {
		if got := Result(err); got != want {
			t.Fatalf("Result(%v)=%q want %q", err, got, want)
		}
	}
}
