package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/metrics"
	"gridnav.ai/internal/nav/pathfinder"
	"gridnav.ai/internal/nav/regions"
)

// SQLiteIndex is a queryable read model of registered grids and finished path
// requests. Writes are queued to a single writer goroutine and dropped when
// the queue is full; the JSONL request log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropGrid    atomic.Uint64
	dropRequest atomic.Uint64
}

type reqKind int

const (
	reqGrid reqKind = iota + 1
	reqPath
)

type req struct {
	kind reqKind

	grid gridRow
	path pathRow
}

type gridRow struct {
	Key          string
	Resolution   int
	Width        int
	Height       int
	Regions      int
	Walkable     int
	Water        int
	Digest       string
	SnapshotPath string
	RecordedAt   string
}

type pathRow struct {
	ID         string
	GridKey    string
	Mode       string
	Result     string
	StartID    int
	GoalID     int
	Iterations int
	PathLen    int
	ElapsedUs  int64
	RecordedAt string
}

type Stats struct {
	QueueDepth       int
	QueueCapacity    int
	DropGridTotal    uint64
	DropRequestTotal uint64
}

type GridInfo struct {
	Key          string
	Resolution   int
	Width        int
	Height       int
	Regions      int
	Digest       string
	SnapshotPath string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, 65536)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS grids (
			key TEXT PRIMARY KEY,
			resolution INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			regions INTEGER NOT NULL,
			walkable INTEGER NOT NULL,
			water INTEGER NOT NULL,
			digest TEXT NOT NULL,
			snapshot_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS path_requests (
			id TEXT PRIMARY KEY,
			grid_key TEXT NOT NULL,
			mode TEXT NOT NULL,
			result TEXT NOT NULL,
			start_id INTEGER NOT NULL,
			goal_id INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			path_len INTEGER NOT NULL,
			elapsed_us INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_path_requests_grid_result ON path_requests(grid_key, result);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropGridTotal:    s.dropGrid.Load(),
		DropRequestTotal: s.dropRequest.Load(),
	}
}

// RecordGrid queues a row describing g and where its snapshot lives.
func (s *SQLiteIndex) RecordGrid(g *grid.Grid, snapshotPath string) {
	if s == nil || s.closed.Load() || g == nil {
		return
	}
	counts := build.Summarize(g)
	r := gridRow{
		Key:          g.Key,
		Resolution:   int(g.Resolution),
		Width:        g.Width,
		Height:       g.Height,
		Regions:      regions.Count(g),
		Walkable:     counts.Walkable,
		Water:        counts.Water,
		Digest:       g.Digest(),
		SnapshotPath: snapshotPath,
		RecordedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqGrid, grid: r}:
	default:
		s.dropGrid.Add(1)
	}
}

// WriteOutcome queues one finished path request. It has the pathfinder
// Observer signature.
func (s *SQLiteIndex) WriteOutcome(o pathfinder.Outcome) {
	if s == nil || s.closed.Load() {
		return
	}
	r := pathRow{
		ID:         o.ID,
		GridKey:    o.GridKey,
		Mode:       o.Mode,
		Result:     metrics.Result(o.Err),
		StartID:    o.StartID,
		GoalID:     o.GoalID,
		Iterations: o.Iterations,
		PathLen:    o.PathLen,
		ElapsedUs:  o.Elapsed.Microseconds(),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqPath, path: r}:
	default:
		s.dropRequest.Add(1)
	}
}

// Grids reads the recorded grids ordered by key.
func (s *SQLiteIndex) Grids(ctx context.Context) ([]GridInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key,resolution,width,height,regions,digest,snapshot_path FROM grids ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GridInfo
	for rows.Next() {
		var g GridInfo
		if err := rows.Scan(&g.Key, &g.Resolution, &g.Width, &g.Height, &g.Regions, &g.Digest, &g.SnapshotPath); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ResultCounts returns the number of recorded requests per result label for
// one grid.
func (s *SQLiteIndex) ResultCounts(ctx context.Context, gridKey string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT result, COUNT(*) FROM path_requests WHERE grid_key=? GROUP BY result`, gridKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			return nil, err
		}
		out[result] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertGrid, _ := s.db.Prepare(`INSERT OR REPLACE INTO grids(key,resolution,width,height,regions,walkable,water,digest,snapshot_path,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertPath, _ := s.db.Prepare(`INSERT OR REPLACE INTO path_requests(id,grid_key,mode,result,start_id,goal_id,iterations,path_len,elapsed_us,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertGrid != nil {
			_ = insertGrid.Close()
		}
		if insertPath != nil {
			_ = insertPath.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqGrid:
			g := r.grid
			if insertGrid == nil {
				continue
			}
			if _, err := tx.Stmt(insertGrid).Exec(
				g.Key, g.Resolution, g.Width, g.Height, g.Regions,
				g.Walkable, g.Water, g.Digest, g.SnapshotPath, g.RecordedAt,
			); err != nil {
				rollback()
				continue
			}
			// Grids are rare and read back right away; commit immediately.
			commit()
			continue

		case reqPath:
			p := r.path
			if insertPath == nil {
				continue
			}
			if _, err := tx.Stmt(insertPath).Exec(
				p.ID, p.GridKey, p.Mode, p.Result, p.StartID, p.GoalID,
				p.Iterations, p.PathLen, p.ElapsedUs, p.RecordedAt,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		// Requests arrive sporadically. Commit once the queue drains so the
		// open transaction never holds the only connection away from readers.
		if opCount >= commitEvery || len(s.ch) == 0 || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
