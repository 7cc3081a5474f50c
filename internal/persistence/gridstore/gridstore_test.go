package gridstore

import (
	"errors"
	"os"
	"testing"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/terrain"
)

func builtGrid(t *testing.T) *grid.Grid {
	t.Helper()
	cfg := terrain.DefaultConfig()
	cfg.Size = 65
	h, s, err := terrain.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	g, err := build.Build(build.Config{Key: "walker", Resolution: grid.Resolution2x2, SlopeLimit: 40, WaterHeight: 0.2, HeightScale: 1}, h, s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := range g.Cells {
		g.Cells[i].Region = int32(i % 3)
	}
	return g
}

func TestWriteReadRoundTrip(t *testing.T) {
	g := builtGrid(t)
	path := Path(t.TempDir(), g.Key)
	if err := Write(path, g, "src-1"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Key != g.Key || got.Width != g.Width || got.Height != g.Height || got.Resolution != g.Resolution || got.CellSize != g.CellSize {
		t.Fatalf("dims %+v want %+v", got, g)
	}
	if got.Digest() != g.Digest() {
		t.Fatalf("digest changed")
	}
	for i := range g.Cells {
		if got.Cells[i] != g.Cells[i] {
			t.Fatalf("cell %d: got %+v want %+v", i, got.Cells[i], g.Cells[i])
		}
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Version != Version || h.Key != "walker" || h.Digest != g.Digest() || h.Source != "src-1" {
		t.Fatalf("header=%+v", h)
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	g := builtGrid(t)
	snap := Encode(g)
	snap.Header.Digest = "deadbeef"
	if _, err := Decode(snap); !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("err=%v want ErrDigestMismatch", err)
	}

	snap = Encode(g)
	snap.Header.Width++
	if _, err := Decode(snap); err == nil {
		t.Fatalf("expected length error for wrong width")
	}

	snap = Encode(g)
	snap.Header.Version = 99
	if _, err := Decode(snap); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(Path(t.TempDir(), "nope")); !os.IsNotExist(err) {
		t.Fatalf("err=%v want not exist", err)
	}
}
