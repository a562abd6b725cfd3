package pano

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/abworrall/panostitch/pkg/emath"
)

func TestSequentialDiagnosticsCoverEveryImage(t *testing.T) {
	d, err := NewDiagnostics(filepath.Join(t.TempDir(), "diag"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The last image extends the canvas up and to the left
	imgs := []image.Image{solidImage(60, 50, red), solidImage(60, 50, blue), solidImage(60, 50, red)}
	hs := []emath.Mat3{emath.Translation(40, 0), emath.Translation(-40, 10)}
	opts := optsFor(BlendSequential)
	opts.Diagnostics = d

	if _, err := Stitch(context.Background(), imgs, hs, opts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, f := range []string{"weight-00.png", "weight-01.png", "weight-02.png", "panorama.hdr"} {
		if _, err := os.Stat(filepath.Join(d.Dir, f)); err != nil {
			t.Errorf("expected %s to be written, got %v", f, err)
		}
	}

	reader, err := os.Open(filepath.Join(d.Dir, "coverage.png"))
	if err != nil {
		t.Fatalf("expected coverage.png, got %v", err)
	}
	defer reader.Close()
	overlay, err := png.Decode(reader)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if overlay.Bounds() != image.Rect(0, 0, 140, 60) {
		t.Fatalf("expected the final 140x60 canvas, got %v", overlay.Bounds())
	}

	tests := []struct {
		name    string
		x, y    int
		covered bool
	}{
		{"image 0 only, shifted by the last fold", 45, 5, true},
		{"image 1 only", 135, 5, true},
		{"image 2 only", 5, 55, true},
		{"nothing", 135, 55, false},
	}
	for _, test := range tests {
		_, _, _, a := overlay.At(test.x, test.y).RGBA()
		if (a != 0) != test.covered {
			t.Errorf("%s: (%d,%d) expected covered=%v, got alpha %d", test.name, test.x, test.y, test.covered, a)
		}
	}
}
