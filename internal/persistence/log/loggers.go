package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"gridnav.ai/internal/nav/metrics"
	"gridnav.ai/internal/nav/pathfinder"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	now func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadJSONL calls fn with every line of a compressed JSONL file, including
// files made of several appended zstd frames.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// RequestEntry is one line of the path request log.
type RequestEntry struct {
	ID         string  `json:"id"`
	Time       string  `json:"time"`
	Mode       string  `json:"mode"`
	GridKey    string  `json:"grid_key"`
	Cost       string  `json:"cost,omitempty"`
	StartID    int     `json:"start_id"`
	GoalID     int     `json:"goal_id"`
	Result     string  `json:"result"`
	Error      string  `json:"error,omitempty"`
	Iterations int     `json:"iterations"`
	PathLen    int     `json:"path_len"`
	ElapsedMs  float64 `json:"elapsed_ms"`
}

func NewRequestEntry(o pathfinder.Outcome, now time.Time) RequestEntry {
	e := RequestEntry{
		ID:         o.ID,
		Time:       now.UTC().Format(time.RFC3339Nano),
		Mode:       o.Mode,
		GridKey:    o.GridKey,
		Cost:       o.Cost,
		StartID:    o.StartID,
		GoalID:     o.GoalID,
		Result:     metrics.Result(o.Err),
		Iterations: o.Iterations,
		PathLen:    o.PathLen,
		ElapsedMs:  float64(o.Elapsed.Microseconds()) / 1000,
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

// RequestLogger writes one compressed JSONL entry per finished path request.
type RequestLogger struct{ w *JSONLZstdWriter }

func NewRequestLogger(dataDir string) *RequestLogger {
	return &RequestLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "requests"), "requests")}
}

func (l *RequestLogger) WriteOutcome(o pathfinder.Outcome) error {
	return l.w.Write(NewRequestEntry(o, time.Now()))
}

func (l *RequestLogger) Close() error { return l.w.Close() }
