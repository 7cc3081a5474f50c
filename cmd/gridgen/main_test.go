package main

import (
	"testing"

	"gridnav.ai/internal/nav/build"
	"gridnav.ai/internal/nav/navtest"
)

func TestASCIIMatchesTestLegend(t *testing.T) {
	rows := []string{
		"#####",
		"#.~x#",
		"#####",
	}
	g := navtest.Grid("legend", rows, build.LinkOptions{})
	want := "#####\n#.~x#\n#####\n"
	if got := ascii(g); got != want {
		t.Fatalf("ascii=\n%s\nwant\n%s", got, want)
	}
}
