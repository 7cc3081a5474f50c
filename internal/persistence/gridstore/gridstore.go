// Package gridstore saves built grids as zstd-compressed snapshots so the
// server can skip terrain sampling on restart.
//
// File layout (inside the zstd stream): one JSON header line, then a gob
// encoded GridV1. Per-cell arrays are run-length encoded.
package gridstore

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"gridnav.ai/internal/encoding"
	"gridnav.ai/internal/nav/grid"
)

const Version = 1

var ErrDigestMismatch = errors.New("grid digest mismatch")

type Header struct {
	Version    int    `json:"version"`
	Key        string `json:"key"`
	Resolution int    `json:"resolution"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Digest     string `json:"digest"`
	// Source fingerprints the inputs the grid was built from. Empty when
	// unknown.
	Source string `json:"source,omitempty"`
}

type GridV1 struct {
	Header   Header
	CellSize [2]float32

	Attrs     []byte
	Neighbors []byte
	Regions   []byte
	Heights   []byte // float32 bits
}

// Encode captures the persistent state of g. World positions are not stored;
// they are rebuilt from row, col and height.
func Encode(g *grid.Grid) GridV1 {
	n := g.Len()
	attrs := make([]uint8, n)
	masks := make([]uint8, n)
	regions := make([]int32, n)
	heights := make([]uint32, n)
	for i := range g.Cells {
		c := &g.Cells[i]
		attrs[i] = uint8(c.Attrs)
		masks[i] = uint8(c.Neighbors)
		regions[i] = c.Region
		heights[i] = math.Float32bits(c.WorldPos.Y())
	}
	return GridV1{
		Header: Header{
			Version:    Version,
			Key:        g.Key,
			Resolution: int(g.Resolution),
			Width:      g.Width,
			Height:     g.Height,
			Digest:     g.Digest(),
		},
		CellSize:  [2]float32{g.CellSize.X(), g.CellSize.Y()},
		Attrs:     encoding.EncodeRLE(attrs),
		Neighbors: encoding.EncodeRLE(masks),
		Regions:   encoding.EncodeRLE(regions),
		Heights:   encoding.EncodeRLE(heights),
	}
}

// Decode rebuilds a grid and checks it against the recorded digest.
func Decode(s GridV1) (*grid.Grid, error) {
	h := s.Header
	if h.Version != Version {
		return nil, fmt.Errorf("unsupported grid snapshot version %d", h.Version)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return nil, fmt.Errorf("bad grid dimensions %dx%d", h.Width, h.Height)
	}
	n := h.Width * h.Height
	attrs, err := encoding.DecodeRLE[uint8](s.Attrs, n)
	if err != nil {
		return nil, fmt.Errorf("attrs: %w", err)
	}
	masks, err := encoding.DecodeRLE[uint8](s.Neighbors, n)
	if err != nil {
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	regions, err := encoding.DecodeRLE[int32](s.Regions, n)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	heights, err := encoding.DecodeRLE[uint32](s.Heights, n)
	if err != nil {
		return nil, fmt.Errorf("heights: %w", err)
	}

	g := grid.New(h.Key, grid.Resolution(h.Resolution), h.Width, h.Height, s.CellSize)
	for i := range g.Cells {
		c := &g.Cells[i]
		c.Attrs = grid.Attr(attrs[i])
		c.Neighbors = grid.Mask(masks[i])
		c.Region = regions[i]
		c.WorldPos = g.CellCenter(c.Row, c.Col, math.Float32frombits(heights[i]))
	}
	if got := g.Digest(); got != h.Digest {
		return nil, fmt.Errorf("%w: %s != %s", ErrDigestMismatch, got, h.Digest)
	}
	return g, nil
}

// Path is where a grid with key is stored under dir.
func Path(dir, key string) string {
	return filepath.Join(dir, key+".grid.zst")
}

// Write stores g at path, tagging the header with the source fingerprint.
func Write(path string, g *grid.Grid, source string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	snap := Encode(g)
	snap.Header.Source = source
	if err := write(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func write(f *os.File, snap GridV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func Read(path string) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var snap GridV1
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return Decode(snap)
}

// ReadHeader returns only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}
