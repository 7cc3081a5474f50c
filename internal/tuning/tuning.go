package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/search"
	"gridnav.ai/internal/terrain"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Terrain       terrain.Config `yaml:"terrain"`
	HeightScale   float32        `yaml:"height_scale"`
	SampleSpacing [2]float32     `yaml:"sample_spacing"`
	WaterHeight   float32        `yaml:"water_height"`

	Grids       []GridConfig `yaml:"grids"`
	Pathfinding Pathfinding  `yaml:"pathfinding"`
}

type GridConfig struct {
	Key             string  `yaml:"key"`
	Resolution      int     `yaml:"resolution"`
	SlopeLimit      float64 `yaml:"slope_limit"`
	CanUseWater     bool    `yaml:"can_use_water"`
	NoCornerCutting bool    `yaml:"no_corner_cutting"`
}

type Pathfinding struct {
	Sync  search.Budget `yaml:"sync"`
	Async search.Budget `yaml:"async"`
}

// Load reads a tuning file. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:    20,
		Terrain:       terrain.DefaultConfig(),
		HeightScale:   32,
		SampleSpacing: [2]float32{1, 1},
		WaterHeight:   6,
		Grids: []GridConfig{
			{Key: "walker", Resolution: 2, SlopeLimit: 35},
			{Key: "wader", Resolution: 4, SlopeLimit: 45, CanUseWater: true},
		},
		Pathfinding: Pathfinding{
			Sync:  search.Budget{IterationsPerCell: 20},
			Async: search.Budget{IterationsPerCell: 20, IterationsPerTick: 1},
		},
	}
}

func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	if t.HeightScale == 0 {
		t.HeightScale = 1
	}
	if t.SampleSpacing[0] <= 0 || t.SampleSpacing[1] <= 0 {
		t.SampleSpacing = [2]float32{1, 1}
	}
	for i := range t.Grids {
		t.Grids[i].Key = strings.TrimSpace(t.Grids[i].Key)
	}
	t.Terrain.Normalize()
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if err := t.Terrain.Validate(); err != nil {
		return err
	}
	if len(t.Grids) == 0 {
		return fmt.Errorf("at least one grid is required")
	}
	seen := map[string]bool{}
	for i, g := range t.Grids {
		if g.Key == "" {
			return fmt.Errorf("grids[%d]: missing key", i)
		}
		if seen[g.Key] {
			return fmt.Errorf("grids[%d]: duplicate key %q", i, g.Key)
		}
		seen[g.Key] = true
		if !grid.Resolution(g.Resolution).Valid() {
			return fmt.Errorf("grids[%d]: resolution %d not in 1/2/4/8/16", i, g.Resolution)
		}
		if !(g.SlopeLimit > 0 && g.SlopeLimit <= 90) {
			return fmt.Errorf("grids[%d]: slope_limit %v not in (0, 90]", i, g.SlopeLimit)
		}
	}
	if t.Pathfinding.Sync.IterationsPerCell <= 0 || t.Pathfinding.Async.IterationsPerCell <= 0 {
		return fmt.Errorf("pathfinding: iterations_per_cell must be > 0")
	}
	if t.Pathfinding.Sync.IterationsPerTick < 0 {
		return fmt.Errorf("pathfinding.sync: iterations_per_tick must be >= 0")
	}
	if t.Pathfinding.Async.IterationsPerTick <= 0 {
		return fmt.Errorf("pathfinding.async: iterations_per_tick must be > 0")
	}
	return nil
}

// BuildConfig is the builder configuration for one configured grid.
func (t Tuning) BuildConfig(g GridConfig) build.Config {
	return build.Config{
		Key:             g.Key,
		Resolution:      grid.Resolution(g.Resolution),
		SlopeLimit:      g.SlopeLimit,
		WaterHeight:     t.WaterHeight,
		HeightScale:     t.HeightScale,
		SampleSpacing:   mgl32.Vec2{t.SampleSpacing[0], t.SampleSpacing[1]},
		CanUseWater:     g.CanUseWater,
		NoCornerCutting: g.NoCornerCutting,
	}
}

// Fingerprint identifies everything a grid is built from: the terrain config
// and the grid's builder config. Snapshots with a different fingerprint are
// stale.
func (t Tuning) Fingerprint(g GridConfig) string {
	b, _ := json.Marshal(struct {
		Terrain terrain.Config
		Build   build.Config
	}{t.Terrain, t.BuildConfig(g)})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
