package search

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"gridnav.ai/internal/nav/cost"
	"gridnav.ai/internal/nav/grid"
)

// Budget bounds one search. IterationsPerTick 0 runs to completion in a
// single Run call.
type Budget struct {
	IterationsPerCell int `yaml:"iterations_per_cell" json:"iterations_per_cell"`
	IterationsPerTick int `yaml:"iterations_per_tick" json:"iterations_per_tick"`
}

// Total is the iteration budget for a search between two cells.
func (b Budget) Total(start, goal *grid.Cell) int {
	return int(math.Ceil(grid.GridDistance(start, goal))) * b.IterationsPerCell
}

type Result struct {
	Path       grid.Path
	Err        error
	Iterations int
}

type nodeStatus uint8

const (
	nodeUnvisited nodeStatus = iota
	nodeOpen
	nodeClosed
)

// Context is the complete state of one A* search. It only reads the grid, so
// contexts on the same grid are independent of each other.
type Context struct {
	g     *grid.Grid
	start *grid.Cell
	goal  *grid.Cell
	cost  cost.Func

	status []nodeStatus
	gCost  []float64
	hCost  []float64
	parent []int32
	open   *openSet

	iterations int
	total      int
	perTick    int

	state  Status
	result Result
}

// Prepare validates a request and opens the start cell. Validation errors are
// returned before any per-cell state is allocated. A nil cost means
// cost.Euclidean.
func Prepare(g *grid.Grid, start, end mgl32.Vec3, fn cost.Func, b Budget) (*Context, error) {
	if g == nil {
		return nil, ErrNoGridData
	}
	s, ok := g.CellAt(start)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrStartInvalid, start)
	}
	e, ok := g.CellAt(end)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrEndInvalid, end)
	}
	return PrepareCells(g, s, e, fn, b)
}

// PrepareCells is Prepare for already resolved cells.
func PrepareCells(g *grid.Grid, s, e *grid.Cell, fn cost.Func, b Budget) (*Context, error) {
	if g == nil {
		return nil, ErrNoGridData
	}
	if s == nil {
		return nil, fmt.Errorf("%w: nil cell", ErrStartInvalid)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: nil cell", ErrEndInvalid)
	}
	if s.Region != e.Region || s.Region < 1 {
		return nil, fmt.Errorf("%w: %s in region %d, %s in region %d", ErrUnlinkedAreas, s, s.Region, e, e.Region)
	}
	if fn == nil {
		fn = cost.Euclidean
	}

	c := &Context{
		g:       g,
		start:   s,
		goal:    e,
		cost:    fn,
		total:   b.Total(s, e),
		perTick: b.IterationsPerTick,
	}
	if s == e {
		c.finish(StatusFound, Result{Path: grid.Path{s}})
		return c, nil
	}

	n := g.Len()
	c.status = make([]nodeStatus, n)
	c.gCost = make([]float64, n)
	c.hCost = make([]float64, n)
	c.parent = make([]int32, n)
	c.open = newOpenSet(n)
	c.openCell(s.ID, 0, fn(s, e), -1)
	return c, nil
}

func (c *Context) Grid() *grid.Grid   { return c.g }
func (c *Context) Start() *grid.Cell  { return c.start }
func (c *Context) Goal() *grid.Cell   { return c.goal }
func (c *Context) Iterations() int    { return c.iterations }
func (c *Context) TotalBudget() int   { return c.total }
func (c *Context) PerTickBudget() int { return c.perTick }
func (c *Context) Status() Status     { return c.state }
func (c *Context) Done() bool         { return c.state != StatusInProgress }

// Result is only meaningful once Done reports true.
func (c *Context) Result() Result { return c.result }

// Run advances the search by at most IterationsPerTick expansions and
// reports where it stopped. A suspended context is left exactly as the next
// call needs it. Calling Run on a finished context is a no-op.
func (c *Context) Run() Status {
	if c.Done() {
		return c.state
	}
	steps := 0
	for {
		id, ok := c.open.peek()
		if !ok {
			return c.fail(ErrNoPathFound)
		}
		steps++
		if id == c.goal.ID {
			c.open.pop()
			c.iterations++
			return c.finish(StatusFound, Result{Path: c.reconstruct(), Iterations: c.iterations})
		}
		if c.perTick > 0 && steps > c.perTick {
			return StatusInProgress
		}
		c.open.pop()
		c.iterations++
		if c.iterations >= c.total {
			return c.fail(fmt.Errorf("%w: %d iterations", ErrBudgetExhausted, c.total))
		}
		c.expand(id)
	}
}

func (c *Context) expand(id int) {
	cur := &c.g.Cells[id]
	c.status[id] = nodeClosed
	for d := grid.Dir(0); d < grid.DirCount; d++ {
		if !cur.HasNeighbor(d) {
			continue
		}
		nb, ok := c.g.Neighbor(cur, d)
		if !ok || c.status[nb.ID] == nodeClosed {
			continue
		}
		g := c.gCost[id] + c.cost(cur, nb)
		switch c.status[nb.ID] {
		case nodeOpen:
			if g < c.gCost[nb.ID] {
				c.gCost[nb.ID] = g
				c.parent[nb.ID] = int32(id)
				c.open.push(nb.ID, g+c.hCost[nb.ID])
			}
		case nodeUnvisited:
			c.openCell(nb.ID, g, c.cost(nb, c.goal), int32(id))
		}
	}
}

func (c *Context) openCell(id int, g, h float64, parent int32) {
	c.status[id] = nodeOpen
	c.gCost[id] = g
	c.hCost[id] = h
	c.parent[id] = parent
	c.open.push(id, g+h)
}

func (c *Context) reconstruct() grid.Path {
	n := 0
	for id := int32(c.goal.ID); id >= 0; id = c.parent[id] {
		n++
	}
	path := make(grid.Path, n)
	for id := int32(c.goal.ID); id >= 0; id = c.parent[id] {
		n--
		path[n] = &c.g.Cells[id]
	}
	return path
}

func (c *Context) fail(err error) Status {
	return c.finish(StatusFailed, Result{Err: err, Iterations: c.iterations})
}

// finish records the outcome and drops per-cell state.
func (c *Context) finish(st Status, r Result) Status {
	c.state = st
	c.result = r
	c.status, c.gCost, c.hCost, c.parent, c.open = nil, nil, nil, nil, nil
	return st
}
