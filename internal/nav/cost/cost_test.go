package cost

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"gridnav.ai/internal/nav/grid"
)

func TestOctile(t *testing.T) {
	a := &grid.Cell{Row: 1, Col: 1}
	b := &grid.Cell{Row: 3, Col: 6}
	want := 3 + 2*math.Sqrt2
	if got := Octile(a, b); math.Abs(got-want) > 1e-9 {
		t.Fatalf("octile=%v want %v", got, want)
	}
	if Octile(a, b) != Octile(b, a) {
		t.Fatalf("octile not symmetric")
	}
}

func TestEuclideanIncludesHeight(t *testing.T) {
	a := &grid.Cell{WorldPos: mgl32.Vec3{0, 0, 0}}
	b := &grid.Cell{WorldPos: mgl32.Vec3{3, 4, 0}}
	if got := Euclidean(a, b); math.Abs(got-5) > 1e-6 {
		t.Fatalf("euclidean=%v want 5", got)
	}
	if got := Planar(a, b); math.Abs(got-3) > 1e-6 {
		t.Fatalf("planar=%v want 3", got)
	}
}

func TestNamed(t *testing.T) {
	a := &grid.Cell{WorldPos: mgl32.Vec3{0, 0, 0}}
	b := &grid.Cell{WorldPos: mgl32.Vec3{0, 0, 2}}
	for _, name := range []string{"", "euclidean"} {
		fn, ok := Named(name)
		if !ok || math.Abs(fn(a, b)-2) > 1e-6 {
			t.Fatalf("Named(%q) ok=%v", name, ok)
		}
	}
	if fn, ok := Named("zero"); !ok || fn(a, b) != 0 {
		t.Fatalf("zero cost should be 0")
	}
	if fn, ok := Named("octlie"); ok || fn != nil {
		t.Fatalf("misspelled name resolved")
	}
	if Canonical("") != Default || Canonical("octile") != "octile" || Canonical("octlie") != "" {
		t.Fatalf("Canonical: %q %q %q", Canonical(""), Canonical("octile"), Canonical("octlie"))
	}
}
