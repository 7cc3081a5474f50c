package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/regions"
	"gridnav.ai/internal/persistence/gridstore"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "grids":
			gridsCmd(os.Args[2:])
			return
		case "verify":
			verifyCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the snapshot header of every grid under the data directory.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	paths, err := snapshotPaths(filepath.Join(*dataDir, "grids"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, p := range paths {
		h, err := gridstore.ReadHeader(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(p), err)
			continue
		}
		printJSON(h)
	}
}

// verifyCmd loads snapshots in full and checks link symmetry and region labels.
func verifyCmd(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	key := fs.String("grid", "", "grid key (optional; defaults to all)")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "grids")
	var paths []string
	if k := strings.TrimSpace(*key); k != "" {
		paths = []string{gridstore.Path(dir, k)}
	} else {
		var err error
		if paths, err = snapshotPaths(dir); err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}

	failed := 0
	for _, p := range paths {
		g, err := gridstore.Read(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(p), err)
			failed++
			continue
		}
		if err := regions.Verify(g); err != nil {
			fmt.Printf("%s: FAIL %v\n", g.Key, err)
			failed++
			continue
		}
		c := build.Summarize(g)
		fmt.Printf("%s: ok %dx%d walkable=%d water=%d links=%d regions=%d\n", g.Key, g.Width, g.Height, c.Walkable, c.Water, c.Links, regions.Count(g))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func snapshotPaths(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".grid.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
