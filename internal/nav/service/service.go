package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/pathfinder"
	"gridnav.ai/internal/nav/regions"
)

var ErrStopped = errors.New("service stopped")

type Config struct {
	TickRateHz int
}

// Service owns a Pathfinder and drives it from a single loop goroutine.
// Every exported request method is safe for concurrent use.
type Service struct {
	cfg Config
	pf  *pathfinder.Pathfinder
	log *log.Logger

	tick atomic.Uint64

	// info caches the summary of each registered grid; loop goroutine only.
	info map[string]GridSummary

	pathReq chan pathReq
	losReq  chan losReq
	gridReq chan gridReq
	infoReq chan infoReq

	stop     chan struct{}
	stopOnce sync.Once
}

type PathQuery struct {
	GridKey  string
	Start    mgl32.Vec3
	End      mgl32.Vec3
	Cost     string // see cost.Named; unknown names fail with cost.ErrUnknown
	Async    bool
	Optimize bool
}

type PathAnswer struct {
	Cells     []int
	Waypoints []mgl32.Vec3
	// Optimized holds the shortened waypoints when the query asked for them.
	Optimized []mgl32.Vec3
	// Ticks is how many loop ticks the request waited for.
	Ticks uint64
}

type GridSummary struct {
	Key        string
	Resolution int
	Width      int
	Height     int
	CellSize   mgl32.Vec2
	Regions    int
	Digest     string
}

type pathReq struct {
	Query PathQuery
	Resp  chan pathResp
}

type pathResp struct {
	Answer PathAnswer
	Err    error
}

type losReq struct {
	GridKey  string
	From, To mgl32.Vec3
	Resp     chan losResp
}

type losResp struct {
	Clear bool
	Err   error
}

type gridReq struct {
	Grid *grid.Grid
	Resp chan error
}

type infoReq struct {
	Resp chan []GridSummary
}

func New(cfg Config, pf *pathfinder.Pathfinder, logger *log.Logger) *Service {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	return &Service{
		cfg:     cfg,
		pf:      pf,
		log:     logger,
		info:    map[string]GridSummary{},
		pathReq: make(chan pathReq, 64),
		losReq:  make(chan losReq, 64),
		gridReq: make(chan gridReq, 4),
		infoReq: make(chan infoReq, 4),
		stop:    make(chan struct{}),
	}
}

func (s *Service) Tick() uint64    { return s.tick.Load() }
func (s *Service) TickRateHz() int { return s.cfg.TickRateHz }

func (s *Service) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// Run owns the Pathfinder until ctx is cancelled or Stop is called.
// Asynchronous searches advance once per tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.pathReq:
			s.handlePath(req)
		case req := <-s.losReq:
			s.handleLOS(req)
		case req := <-s.gridReq:
			s.handleGrid(req)
		case req := <-s.infoReq:
			reply(req.Resp, s.summaries())
		case <-ticker.C:
			s.step()
		}
	}
}

func (s *Service) step() {
	s.tick.Add(1)
	s.pf.Advance()
}

func (s *Service) handleGrid(req gridReq) {
	err := s.pf.Register(req.Grid)
	if err == nil {
		s.info[req.Grid.Key] = summarize(req.Grid)
	}
	if s.log != nil {
		if err != nil {
			s.log.Printf("register grid: %v", err)
		} else {
			s.log.Printf("grid %q registered (%dx%d, %d regions)", req.Grid.Key, req.Grid.Width, req.Grid.Height, s.info[req.Grid.Key].Regions)
		}
	}
	reply(req.Resp, err)
}

// RequestPath resolves a path query on the loop goroutine. Async queries are
// answered after the tick that finishes them.
func (s *Service) RequestPath(ctx context.Context, q PathQuery) (PathAnswer, error) {
	req := pathReq{Query: q, Resp: make(chan pathResp, 1)}
	if err := send(ctx, s.stop, s.pathReq, req); err != nil {
		return PathAnswer{}, err
	}
	resp, err := await(ctx, s.stop, req.Resp)
	if err != nil {
		return PathAnswer{}, err
	}
	return resp.Answer, resp.Err
}

func (s *Service) LineOfSight(ctx context.Context, key string, from, to mgl32.Vec3) (bool, error) {
	req := losReq{GridKey: key, From: from, To: to, Resp: make(chan losResp, 1)}
	if err := send(ctx, s.stop, s.losReq, req); err != nil {
		return false, err
	}
	resp, err := await(ctx, s.stop, req.Resp)
	if err != nil {
		return false, err
	}
	return resp.Clear, resp.Err
}

// Register installs a grid between ticks.
func (s *Service) Register(ctx context.Context, g *grid.Grid) error {
	req := gridReq{Grid: g, Resp: make(chan error, 1)}
	if err := send(ctx, s.stop, s.gridReq, req); err != nil {
		return err
	}
	resp, err := await(ctx, s.stop, req.Resp)
	if err != nil {
		return err
	}
	return resp
}

func (s *Service) Grids(ctx context.Context) ([]GridSummary, error) {
	req := infoReq{Resp: make(chan []GridSummary, 1)}
	if err := send(ctx, s.stop, s.infoReq, req); err != nil {
		return nil, err
	}
	return await(ctx, s.stop, req.Resp)
}

func (s *Service) handlePath(req pathReq) {
	q := req.Query
	if !q.Async {
		path, err := s.pf.RequestPathSynchronousByName(q.GridKey, q.Start, q.End, q.Cost)
		reply(req.Resp, s.answer(q, path, err, 0))
		return
	}
	queued := s.tick.Load()
	_, err := s.pf.RequestPathAsynchronousByName(q.GridKey, q.Start, q.End, q.Cost, func(path grid.Path, err error) {
		reply(req.Resp, s.answer(q, path, err, s.tick.Load()-queued))
	})
	if err != nil {
		reply(req.Resp, pathResp{Err: err})
	}
}

func (s *Service) answer(q PathQuery, path grid.Path, err error, ticks uint64) pathResp {
	if err != nil {
		return pathResp{Err: err}
	}
	a := PathAnswer{Cells: path.IDs(), Waypoints: path.Waypoints(), Ticks: ticks}
	if q.Optimize {
		short, err := s.pf.OptimizePath(q.GridKey, path)
		if err != nil {
			return pathResp{Err: err}
		}
		a.Optimized = short.Waypoints()
	}
	return pathResp{Answer: a}
}

func (s *Service) handleLOS(req losReq) {
	ok, err := s.pf.LineOfSight(req.GridKey, req.From, req.To)
	reply(req.Resp, losResp{Clear: ok, Err: err})
}

// summaries lists the registered grids. Grids are immutable once
// registered, so each summary is computed once.
func (s *Service) summaries() []GridSummary {
	keys := s.pf.Keys()
	out := make([]GridSummary, 0, len(keys))
	for _, k := range keys {
		g, _ := s.pf.Grid(k)
		sum, ok := s.info[k]
		if !ok {
			sum = summarize(g)
			s.info[k] = sum
		}
		out = append(out, sum)
	}
	return out
}

func summarize(g *grid.Grid) GridSummary {
	return GridSummary{
		Key:        g.Key,
		Resolution: int(g.Resolution),
		Width:      g.Width,
		Height:     g.Height,
		CellSize:   g.CellSize,
		Regions:    regions.Count(g),
		Digest:     g.Digest(),
	}
}

func send[T any](ctx context.Context, stop chan struct{}, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, stop chan struct{}, ch chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-stop:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func reply[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
