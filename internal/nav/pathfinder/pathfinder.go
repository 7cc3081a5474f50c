package pathfinder

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"gridnav.ai/internal/nav/cost"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/metrics"
	"gridnav.ai/internal/nav/optimize"
	"gridnav.ai/internal/nav/regions"
	"gridnav.ai/internal/nav/sched"
	"gridnav.ai/internal/nav/search"
)

var (
	ErrGridBusy    = errors.New("grid has searches in flight")
	ErrBadGrid     = errors.New("invalid grid")
	ErrBadBudget   = errors.New("invalid iteration budget")
	ErrForeignCell = errors.New("cell does not belong to grid")
)

type Config struct {
	Sync  search.Budget
	Async search.Budget

	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Observer Observer
}

func DefaultConfig() Config {
	return Config{
		Sync:  search.Budget{IterationsPerCell: 20},
		Async: search.Budget{IterationsPerCell: 20, IterationsPerTick: 1},
	}
}

// Outcome describes one finished path request, successful or not.
type Outcome struct {
	ID      string
	Mode    string
	GridKey string
	// Cost names the cost function, empty for caller-supplied ones.
	Cost       string
	StartID    int
	GoalID     int
	Err        error
	Iterations int
	PathLen    int
	Elapsed    time.Duration
}

type Observer func(Outcome)

// Done receives the result of an asynchronous request.
type Done func(grid.Path, error)

// Pathfinder owns the grid registry and the asynchronous scheduler. It must
// be driven from a single goroutine.
type Pathfinder struct {
	cfg   Config
	grids map[string]*grid.Grid
	sched *sched.Scheduler
	log   *log.Logger
	now   func() time.Time
}

func New(cfg Config) (*Pathfinder, error) {
	if err := validBudget(cfg.Sync, false); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	if err := validBudget(cfg.Async, true); err != nil {
		return nil, fmt.Errorf("async: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pathfinder{
		cfg:   cfg,
		grids: map[string]*grid.Grid{},
		sched: sched.New(),
		log:   logger,
		now:   time.Now,
	}, nil
}

func validBudget(b search.Budget, async bool) error {
	if b.IterationsPerCell <= 0 {
		return fmt.Errorf("%w: iterations_per_cell=%d", ErrBadBudget, b.IterationsPerCell)
	}
	if b.IterationsPerTick < 0 || (async && b.IterationsPerTick == 0) {
		return fmt.Errorf("%w: iterations_per_tick=%d", ErrBadBudget, b.IterationsPerTick)
	}
	return nil
}

// Register adds or replaces a grid under its key and labels its regions if
// that has not happened yet. A grid cannot be replaced while asynchronous
// searches are still reading the old one.
func (p *Pathfinder) Register(g *grid.Grid) error {
	if g == nil || g.Key == "" || len(g.Cells) != g.Width*g.Height {
		return ErrBadGrid
	}
	if old, ok := p.grids[g.Key]; ok && old != g && p.sched.ActiveOn(old) {
		return fmt.Errorf("%w: %q", ErrGridBusy, g.Key)
	}
	if !regions.Labeled(g) {
		st := regions.Partition(g)
		p.log.Printf("grid %q: %d regions (cells %d..%d), %d isolated", g.Key, st.Regions, st.MinSize, st.MaxSize, st.Isolated)
	}
	p.grids[g.Key] = g
	return nil
}

func (p *Pathfinder) Unregister(key string) error {
	g, ok := p.grids[key]
	if !ok {
		return fmt.Errorf("%w: %q", search.ErrNoGridData, key)
	}
	if p.sched.ActiveOn(g) {
		return fmt.Errorf("%w: %q", ErrGridBusy, key)
	}
	delete(p.grids, key)
	return nil
}

func (p *Pathfinder) Grid(key string) (*grid.Grid, bool) {
	g, ok := p.grids[key]
	return g, ok
}

func (p *Pathfinder) Keys() []string {
	keys := make([]string, 0, len(p.grids))
	for k := range p.grids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RequestPathSynchronous runs a search to completion before returning.
func (p *Pathfinder) RequestPathSynchronous(key string, start, end mgl32.Vec3, fn cost.Func) (grid.Path, error) {
	return p.requestSync(key, start, end, fn, costLabel(fn))
}

// RequestPathSynchronousByName is RequestPathSynchronous with a cost looked
// up by name (see cost.Named). Unknown names fail with cost.ErrUnknown before
// any validation and are not reported to the observer.
func (p *Pathfinder) RequestPathSynchronousByName(key string, start, end mgl32.Vec3, costName string) (grid.Path, error) {
	fn, ok := cost.Named(costName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", cost.ErrUnknown, costName)
	}
	return p.requestSync(key, start, end, fn, cost.Canonical(costName))
}

func (p *Pathfinder) requestSync(key string, start, end mgl32.Vec3, fn cost.Func, label string) (grid.Path, error) {
	began := p.now()
	b := p.cfg.Sync
	b.IterationsPerTick = 0

	ctx, err := p.prepare(key, start, end, fn, b)
	if err != nil {
		p.complete(Outcome{ID: uuid.NewString(), Mode: metrics.ModeSync, GridKey: key, Cost: label, StartID: -1, GoalID: -1, Err: err}, began)
		return nil, err
	}
	ctx.Run()
	res := ctx.Result()
	p.complete(outcomeOf(uuid.NewString(), metrics.ModeSync, key, label, ctx, res), began)
	return res.Path, res.Err
}

// RequestPathAsynchronous validates the request and queues it. Validation
// failures are returned immediately and done is never called for them;
// otherwise done fires from a later Advance. The request id is returned.
func (p *Pathfinder) RequestPathAsynchronous(key string, start, end mgl32.Vec3, fn cost.Func, done Done) (string, error) {
	return p.requestAsync(key, start, end, fn, costLabel(fn), done)
}

// RequestPathAsynchronousByName is RequestPathAsynchronous with a named cost.
func (p *Pathfinder) RequestPathAsynchronousByName(key string, start, end mgl32.Vec3, costName string, done Done) (string, error) {
	fn, ok := cost.Named(costName)
	if !ok {
		return "", fmt.Errorf("%w: %q", cost.ErrUnknown, costName)
	}
	return p.requestAsync(key, start, end, fn, cost.Canonical(costName), done)
}

func (p *Pathfinder) requestAsync(key string, start, end mgl32.Vec3, fn cost.Func, label string, done Done) (string, error) {
	began := p.now()
	id := uuid.NewString()
	ctx, err := p.prepare(key, start, end, fn, p.cfg.Async)
	if err != nil {
		p.complete(Outcome{ID: id, Mode: metrics.ModeAsync, GridKey: key, Cost: label, StartID: -1, GoalID: -1, Err: err}, began)
		return id, err
	}
	p.sched.Add(ctx, func(res search.Result) {
		p.complete(outcomeOf(id, metrics.ModeAsync, key, label, ctx, res), began)
		if done != nil {
			done(res.Path, res.Err)
		}
	})
	p.cfg.Metrics.SetActive(p.sched.Len())
	return id, nil
}

// costLabel names fn for outcomes. A nil fn is the default cost.
func costLabel(fn cost.Func) string {
	if fn == nil {
		return cost.Default
	}
	return ""
}

// Advance drives every queued asynchronous search by one bounded pass.
func (p *Pathfinder) Advance() int {
	n := p.sched.Advance()
	p.cfg.Metrics.SetActive(p.sched.Len())
	return n
}

func (p *Pathfinder) Pending() int { return p.sched.Len() }

// CanTraverseDirect tests straight-line walkability between two cells of the
// grid registered under key.
func (p *Pathfinder) CanTraverseDirect(key string, a, b *grid.Cell) (bool, error) {
	g, ok := p.grids[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", search.ErrNoGridData, key)
	}
	if !owns(g, a) || !owns(g, b) {
		return false, ErrForeignCell
	}
	visible := optimize.CanTraverseDirect(g, a, b)
	p.cfg.Metrics.LineOfSight(visible)
	return visible, nil
}

// LineOfSight is CanTraverseDirect for world positions.
func (p *Pathfinder) LineOfSight(key string, from, to mgl32.Vec3) (bool, error) {
	g, ok := p.grids[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", search.ErrNoGridData, key)
	}
	a, ok := g.CellAt(from)
	if !ok {
		return false, fmt.Errorf("%w: %v", search.ErrStartInvalid, from)
	}
	b, ok := g.CellAt(to)
	if !ok {
		return false, fmt.Errorf("%w: %v", search.ErrEndInvalid, to)
	}
	return p.CanTraverseDirect(key, a, b)
}

// OptimizePath shortens a path found on the grid registered under key.
func (p *Pathfinder) OptimizePath(key string, path grid.Path) (grid.Path, error) {
	g, ok := p.grids[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", search.ErrNoGridData, key)
	}
	for _, c := range path {
		if !owns(g, c) {
			return nil, ErrForeignCell
		}
	}
	return optimize.Path(g, path), nil
}

func (p *Pathfinder) prepare(key string, start, end mgl32.Vec3, fn cost.Func, b search.Budget) (*search.Context, error) {
	g, ok := p.grids[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", search.ErrNoGridData, key)
	}
	return search.Prepare(g, start, end, fn, b)
}

func (p *Pathfinder) complete(o Outcome, began time.Time) {
	o.Elapsed = p.now().Sub(began)
	if errors.Is(o.Err, search.ErrNoPathFound) {
		p.cfg.Metrics.Defect()
		if g, ok := p.grids[o.GridKey]; ok {
			if verr := regions.Verify(g); verr != nil {
				p.log.Printf("connectivity defect on grid %q: %v", o.GridKey, verr)
			} else {
				p.log.Printf("no path between cells %d and %d on grid %q although they share a region", o.StartID, o.GoalID, o.GridKey)
			}
		}
	} else if errors.Is(o.Err, search.ErrBudgetExhausted) {
		p.log.Printf("%s request %s on grid %q: %v", o.Mode, o.ID, o.GridKey, o.Err)
	}
	p.cfg.Metrics.Observe(o.Mode, o.Err, o.Iterations, o.PathLen, o.Elapsed)
	if p.cfg.Observer != nil {
		p.cfg.Observer(o)
	}
}

func outcomeOf(id, mode, key, label string, ctx *search.Context, res search.Result) Outcome {
	return Outcome{
		ID:         id,
		Mode:       mode,
		GridKey:    key,
		Cost:       label,
		StartID:    ctx.Start().ID,
		GoalID:     ctx.Goal().ID,
		Err:        res.Err,
		Iterations: res.Iterations,
		PathLen:    len(res.Path),
	}
}

func owns(g *grid.Grid, c *grid.Cell) bool {
	return c != nil && c.ID >= 0 && c.ID < len(g.Cells) && &g.Cells[c.ID] == c
}
