package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gridnav.ai/internal/gridset"
	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/grid"
	"gridnav.ai/internal/nav/regions"
	"gridnav.ai/internal/persistence/gridstore"
	"gridnav.ai/internal/tuning"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		outDir     = flag.String("out", "./data/grids", "snapshot output directory")
		inspect    = flag.String("inspect", "", "print a summary of an existing .grid.zst instead of building")
		preview    = flag.Bool("preview", false, "print an ASCII map of each grid")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[gridgen] ", log.LstdFlags|log.Lmicroseconds)

	if *inspect != "" {
		g, err := gridstore.Read(*inspect)
		if err != nil {
			logger.Fatalf("read %s: %v", *inspect, err)
		}
		describe(g, *preview)
		if err := regions.Verify(g); err != nil {
			logger.Fatalf("verify: %v", err)
		}
		return
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	entries, err := gridset.LoadOrBuild(tune, *outDir, true, logger)
	if err != nil {
		logger.Fatalf("build: %v", err)
	}
	for _, e := range entries {
		logger.Printf("wrote %s", e.Path)
		describe(e.Grid, *preview)
	}
}

func describe(g *grid.Grid, preview bool) {
	c := build.Summarize(g)
	fmt.Printf("grid %s: %dx%d res=%dx cell=%.2fx%.2f walkable=%d water=%d blocked=%d boundary=%d links=%d regions=%d\n",
		g.Key, g.Width, g.Height, g.Resolution, g.CellSize.X(), g.CellSize.Y(),
		c.Walkable, c.Water, c.Blocked, c.Boundary, c.Links, regions.Count(g))
	fmt.Printf("digest %s\n", g.Digest())
	if preview {
		fmt.Print(ascii(g))
	}
}

// ascii renders one character per cell using the same legend as the test maps.
func ascii(g *grid.Grid) string {
	var b strings.Builder
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			c, _ := g.At(row, col)
			switch {
			case c.IsBoundary():
				b.WriteByte('#')
			case c.IsWater():
				b.WriteByte('~')
			case c.IsWalkable():
				b.WriteByte('.')
			default:
				b.WriteByte('x')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
