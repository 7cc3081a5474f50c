// Package gridset turns a tuning file into the set of grids a server serves:
// one terrain sample, one grid per configured entry, each linked and partitioned.
package gridset

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/regions"
	"gridnav.ai/internal/persistence/gridstore"
	"gridnav.ai/internal/terrain"
	"gridnav.ai/internal/tuning"
)

type Entry struct {
	Grid *grid.Grid
	// Path is the snapshot file, empty when nothing was persisted.
	Path   string
	Loaded bool
}

// Build samples the terrain once and builds every configured grid.
func Build(t tuning.Tuning, logger *log.Logger) ([]*grid.Grid, error) {
	heights, slopes, err := terrain.Generate(t.Terrain)
	if err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}
	out := make([]*grid.Grid, 0, len(t.Grids))
	for _, gc := range t.Grids {
		g, err := buildOne(t, gc, heights, slopes, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func buildOne(t tuning.Tuning, gc tuning.GridConfig, heights, slopes build.Source, logger *log.Logger) (*grid.Grid, error) {
	g, err := build.Build(t.BuildConfig(gc), heights, slopes)
	if err != nil {
		return nil, fmt.Errorf("grid %q: %w", gc.Key, err)
	}
	st := regions.Partition(g)
	if logger != nil {
		c := build.Summarize(g)
		logger.Printf("grid %q built: %dx%d at %dx, walkable=%d water=%d blocked=%d links=%d",
			g.Key, g.Width, g.Height, g.Resolution, c.Walkable, c.Water, c.Blocked, c.Links)
		logger.Printf("grid %q regions: total=%d isolated=%d min=%d max=%d",
			g.Key, st.Regions, st.Isolated, st.MinSize, st.MaxSize)
	}
	return g, nil
}

// LoadOrBuild reads each grid's snapshot from dir when its fingerprint matches and
// builds (and saves) the rest. rebuild ignores existing snapshots. An empty
// dir disables persistence.
func LoadOrBuild(t tuning.Tuning, dir string, rebuild bool, logger *log.Logger) ([]Entry, error) {
	var (
		heights, slopes build.Source
		out             = make([]Entry, 0, len(t.Grids))
	)
	for _, gc := range t.Grids {
		e := Entry{}
		if dir != "" {
			e.Path = gridstore.Path(dir, gc.Key)
		}
		if e.Path != "" && !rebuild {
			g, err := load(e.Path, gc.Key, t.Fingerprint(gc))
			switch {
			case err == nil:
				e.Grid, e.Loaded = g, true
				if logger != nil {
					logger.Printf("grid %q loaded from %s (%dx%d, %d regions)", g.Key, e.Path, g.Width, g.Height, regions.Count(g))
				}
				out = append(out, e)
				continue
			case errors.Is(err, os.ErrNotExist):
			default:
				if logger != nil {
					logger.Printf("grid %q: ignoring snapshot: %v", gc.Key, err)
				}
			}
		}

		if heights == nil {
			h, s, err := terrain.Generate(t.Terrain)
			if err != nil {
				return nil, fmt.Errorf("terrain: %w", err)
			}
			heights, slopes = h, s
		}
		g, err := buildOne(t, gc, heights, slopes, logger)
		if err != nil {
			return nil, err
		}
		e.Grid = g
		if e.Path != "" {
			if err := gridstore.Write(e.Path, g, t.Fingerprint(gc)); err != nil {
				return nil, fmt.Errorf("grid %q: write snapshot: %w", gc.Key, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

var errConfigChanged = errors.New("snapshot does not match grid config")

func load(path, key, source string) (*grid.Grid, error) {
	h, err := gridstore.ReadHeader(path)
	if err != nil {
		return nil, err
	}
	if h.Key != key || h.Source != source {
		return nil, fmt.Errorf("%w: key %q source %q want %q", errConfigChanged, h.Key, h.Source, source)
	}
	g, err := gridstore.Read(path)
	if err != nil {
		return nil, err
	}
	if !regions.Labeled(g) {
		regions.Partition(g)
	}
	return g, nil
}
