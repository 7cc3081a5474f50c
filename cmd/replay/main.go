// Command replay re-runs logged path requests against grid snapshots and
// reports any request whose result differs from the log.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gridnav.ai/internal/nav/cost"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/metrics"
	"gridnav.ai/internal/nav/search"
	"gridnav.ai/internal/persistence/gridstore"
	persistlog "gridnav.ai/internal/persistence/log"
	"gridnav.ai/internal/tuning"
)

func main() {
	var (
		gridsDir    = flag.String("grids", "./data/grids", "directory of .grid.zst snapshots")
		requestsDir = flag.String("requests", "./data/requests", "directory containing requests-*.jsonl.zst")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "tuning.yaml with the budgets the server used")
		costName    = flag.String("cost", cost.Default, "cost function for entries that do not name one")
	)
	flag.Parse()

	if _, ok := cost.Named(*costName); !ok {
		fmt.Fprintf(os.Stderr, "unknown cost function %q\n", *costName)
		os.Exit(2)
	}
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	files, err := listRequestFiles(*requestsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list requests:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no request logs found in", *requestsDir)
		os.Exit(1)
	}

	r := &replayer{
		gridsDir: *gridsDir,
		grids:    map[string]*grid.Grid{},
		budgets:  map[string]search.Budget{metrics.ModeSync: tune.Pathfinding.Sync, metrics.ModeAsync: tune.Pathfinding.Async},
		fallback: *costName,
	}
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e persistlog.RequestEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			r.check(e)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay: checked=%d skipped=%d mismatched=%d\n", r.checked, r.skipped, r.mismatched)
	if r.mismatched > 0 {
		os.Exit(1)
	}
}

type replayer struct {
	gridsDir string
	grids    map[string]*grid.Grid
	budgets  map[string]search.Budget
	fallback string

	checked, skipped, mismatched int
}

// check re-runs e synchronously with the cost function it was logged with.
// Requests rejected before a search context existed carry no cells and are
// skipped, as are entries naming a cost function this build does not know.
func (r *replayer) check(e persistlog.RequestEntry) {
	if e.StartID < 0 || e.GoalID < 0 {
		r.skipped++
		return
	}
	name := e.Cost
	if name == "" {
		name = r.fallback
	}
	fn, ok := cost.Named(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "entry %s: unknown cost %q\n", e.ID, name)
		r.skipped++
		return
	}
	g, err := r.grid(e.GridKey)
	if err != nil {
		r.skipped++
		return
	}
	s, ok1 := g.ByID(e.StartID)
	goal, ok2 := g.ByID(e.GoalID)
	if !ok1 || !ok2 {
		r.report(e, "cells out of range")
		return
	}
	b := r.budgets[e.Mode]
	b.IterationsPerTick = 0
	ctx, err := search.PrepareCells(g, s, goal, fn, b)
	var res search.Result
	if err != nil {
		res.Err = err
	} else {
		ctx.Run()
		res = ctx.Result()
	}
	r.checked++
	if got := metrics.Result(res.Err); got != e.Result || res.Iterations != e.Iterations || len(res.Path) != e.PathLen {
		r.report(e, fmt.Sprintf("got result=%s iterations=%d path_len=%d", got, res.Iterations, len(res.Path)))
	}
}

func (r *replayer) report(e persistlog.RequestEntry, msg string) {
	r.mismatched++
	fmt.Printf("mismatch %s grid=%s %d->%d logged result=%s iterations=%d path_len=%d: %s\n",
		e.ID, e.GridKey, e.StartID, e.GoalID, e.Result, e.Iterations, e.PathLen, msg)
}

func (r *replayer) grid(key string) (*grid.Grid, error) {
	if g, ok := r.grids[key]; ok {
		if g == nil {
			return nil, errors.New("unavailable")
		}
		return g, nil
	}
	g, err := gridstore.Read(gridstore.Path(r.gridsDir, key))
	if err != nil {
		fmt.Fprintf(os.Stderr, "grid %s: %v\n", key, err)
		r.grids[key] = nil
		return nil, err
	}
	r.grids[key] = g
	return g, nil
}

func listRequestFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "requests-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}
