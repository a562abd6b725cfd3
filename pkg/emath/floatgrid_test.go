package emath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFloatGridRowsWriteThrough(t *testing.T) {
	g := NewFloatGrid(4, 3)
	g.Row(1)[2] = 7
	if g.Get(2, 1) != 7 {
		t.Fatalf("expected 7, got %f", g.Get(2, 1))
	}
	if g.Dx() != 4 || g.Dy() != 3 {
		t.Fatalf("expected 4x3, got %dx%d", g.Dx(), g.Dy())
	}
}

func TestFloatGridAddAndStats(t *testing.T) {
	g := NewFloatGrid(10, 10)
	h := NewFloatGrid(10, 10)
	g.Fill(1)
	h.Set(3, 3, 2.5)
	g.AddGrid(&h)

	min, max := g.MinMax()
	if min != 1 || max != 3.5 {
		t.Fatalf("expected {1,3.5}, got {%f,%f}", min, max)
	}
	if s := g.Stats(); !strings.Contains(s, "nonzero:100") {
		t.Fatalf("expected 100 nonzero values in stats, got %s", s)
	}
}

func TestFloatGridToImg(t *testing.T) {
	g := NewFloatGrid(32, 16)
	for x := 0; x < 32; x++ {
		for y := 0; y < 16; y++ {
			g.Set(x, y, float64(x))
		}
	}

	filename := filepath.Join(t.TempDir(), "grid.png")
	if err := g.ToImg("ramp", filename); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := os.Stat(filename); err != nil {
		t.Fatalf("expected png written, got %v", err)
	}
}
