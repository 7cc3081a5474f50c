package gridset

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"gridnav.ai/internal/nav/regions"
	"gridnav.ai/internal/tuning"
)

func smallTuning() tuning.Tuning {
	t := tuning.Defaults()
	t.Terrain.Size = 65
	t.Terrain.FeatureSize = 16
	t.Normalize()
	return t
}

func TestBuildProducesPartitionedGrids(t *testing.T) {
	grids, err := Build(smallTuning(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(grids) != 2 || grids[0].Key != "walker" || grids[1].Key != "wader" {
		t.Fatalf("grids=%d", len(grids))
	}
	if grids[0].Width != 32 || grids[1].Width != 16 {
		t.Fatalf("widths %d %d", grids[0].Width, grids[1].Width)
	}
	for _, g := range grids {
		if err := regions.Verify(g); err != nil {
			t.Fatalf("%s: %v", g.Key, err)
		}
	}
}

func TestLoadOrBuildReusesSnapshots(t *testing.T) {
	dir := t.TempDir()
	tu := smallTuning()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	first, err := LoadOrBuild(tu, dir, false, logger)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	for _, e := range first {
		if e.Loaded || e.Path == "" {
			t.Fatalf("first run should build: %+v", e)
		}
	}

	second, err := LoadOrBuild(tu, dir, false, logger)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	for i, e := range second {
		if !e.Loaded {
			t.Fatalf("%s should load from snapshot", e.Grid.Key)
		}
		if e.Grid.Digest() != first[i].Grid.Digest() {
			t.Fatalf("%s digest changed across load", e.Grid.Key)
		}
	}
	if !strings.Contains(buf.String(), "loaded from") {
		t.Fatalf("log=%q", buf.String())
	}

	// A changed resolution invalidates that grid's snapshot only.
	tu.Grids[1].Resolution = 8
	third, err := LoadOrBuild(tu, dir, false, logger)
	if err != nil {
		t.Fatalf("third: %v", err)
	}
	if !third[0].Loaded || third[1].Loaded || third[1].Grid.Width != 8 {
		t.Fatalf("third: walker loaded=%v wader loaded=%v width=%d", third[0].Loaded, third[1].Loaded, third[1].Grid.Width)
	}

	// Terrain and builder settings are part of the fingerprint too.
	tu.Terrain.Seed = 99
	tu.WaterHeight = 1000
	fourth, err := LoadOrBuild(tu, dir, false, logger)
	if err != nil {
		t.Fatalf("fourth: %v", err)
	}
	for i, e := range fourth {
		if e.Loaded {
			t.Fatalf("%s: stale snapshot served after terrain change", e.Grid.Key)
		}
		if e.Grid.Digest() == third[i].Grid.Digest() {
			t.Fatalf("%s: digest unchanged after terrain change", e.Grid.Key)
		}
	}
	fifth, err := LoadOrBuild(tu, dir, false, nil)
	if err != nil {
		t.Fatalf("fifth: %v", err)
	}
	if !fifth[0].Loaded || !fifth[1].Loaded {
		t.Fatalf("rewritten snapshots should load again")
	}

	rebuilt, err := LoadOrBuild(tu, dir, true, nil)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if rebuilt[0].Loaded {
		t.Fatalf("rebuild should ignore snapshots")
	}
}

func TestLoadOrBuildWithoutDir(t *testing.T) {
	entries, err := LoadOrBuild(smallTuning(), "", false, nil)
	if err != nil {
		t.Fatalf("LoadOrBuild: %v", err)
	}
	if len(entries) != 2 || entries[0].Path != "" || entries[0].Loaded {
		t.Fatalf("entries=%+v", entries)
	}
}
