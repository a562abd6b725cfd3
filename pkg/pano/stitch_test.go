package pano

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/abworrall/panostitch/pkg/emath"
)

var (
	red  = color.RGBA{0xFF, 0, 0, 0xFF}
	blue = color.RGBA{0, 0, 0xFF, 0xFF}
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(3 * x), uint8(5 * y), uint8((x + y) % 256), 0xFF})
		}
	}
	return img
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func optsFor(mode BlendMode) Options {
	opts := NewOptions()
	opts.Mode = mode
	return opts
}

var allModes = []BlendMode{BlendGlobal, BlendSequential}

func TestStitchSingleImageIsCopy(t *testing.T) {
	src := gradientImage(40, 30)
	for _, mode := range allModes {
		out, err := Stitch(context.Background(), []image.Image{src}, nil, optsFor(mode))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", mode, err)
		}
		if out == src {
			t.Fatalf("%s: expected a copy, got the input back", mode)
		}
		if rmse, _ := RMSE(out, src); rmse != 0 {
			t.Fatalf("%s: expected identical pixels, got rmse %f", mode, rmse)
		}
	}
}

func TestStitchSubImageOrigin(t *testing.T) {
	src := gradientImage(40, 30).SubImage(image.Rect(10, 5, 30, 25))
	out, err := Stitch(context.Background(), []image.Image{src, src}, []emath.Mat3{emath.Identity3()}, NewOptions())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Rect != image.Rect(0, 0, 20, 20) {
		t.Fatalf("expected a 20x20 panorama at the origin, got %v", out.Rect)
	}
	if c, expected := out.RGBAAt(0, 0), src.At(10, 5).(color.RGBA); c != expected {
		t.Fatalf("expected %v, got %v", expected, c)
	}
}

func TestStitchIdenticalImagesIsIdentity(t *testing.T) {
	src := gradientImage(50, 40)
	for _, mode := range allModes {
		imgs := []image.Image{src, src, src}
		hs := []emath.Mat3{emath.Identity3(), emath.Identity3()}
		out, err := Stitch(context.Background(), imgs, hs, optsFor(mode))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", mode, err)
		}
		if rmse, _ := RMSE(out, src); rmse != 0 {
			t.Fatalf("%s: expected the input back, got rmse %f", mode, rmse)
		}
	}
}

func TestStitchPan(t *testing.T) {
	a, b := solidImage(100, 100, red), solidImage(100, 100, blue)
	before := ToRGBA(a)

	for _, mode := range allModes {
		out, err := Stitch(context.Background(), []image.Image{a, b}, []emath.Mat3{emath.Translation(80, 0)}, optsFor(mode))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", mode, err)
		}
		if out.Rect.Dx() != 180 || out.Rect.Dy() != 100 {
			t.Fatalf("%s: expected 180x100, got %v", mode, out.Rect)
		}

		if c := out.RGBAAt(50, 50); c != red {
			t.Errorf("%s: expected pure red at x=50, got %v", mode, c)
		}
		if c := out.RGBAAt(150, 50); c != blue {
			t.Errorf("%s: expected pure blue at x=150, got %v", mode, c)
		}

		// dA = 100-x, dB = x-79
		if c := out.RGBAAt(90, 50); absDiff(c.R, 121) > 1 || absDiff(c.B, 134) > 1 || c.A != 0xFF {
			t.Errorf("%s: expected ~(121,0,134) at x=90, got %v", mode, c)
		}

		for x := 81; x < 100; x++ {
			prev, c := out.RGBAAt(x-1, 50), out.RGBAAt(x, 50)
			if c.R > prev.R || c.B < prev.B {
				t.Errorf("%s: x=%d: expected red to fall and blue to rise, got %v after %v", mode, x, c, prev)
			}
		}
	}

	if rmse, _ := RMSE(a, before); rmse != 0 {
		t.Fatalf("expected the input image to be left alone")
	}
}

func TestStitchModesAgreeOnPairs(t *testing.T) {
	a, b := gradientImage(100, 80), solidImage(100, 80, blue)
	hs := []emath.Mat3{{0.98, 0.05, 60, -0.04, 1.01, 12, 0.0001, 0, 1}}

	global, err := Stitch(context.Background(), []image.Image{a, b}, hs, optsFor(BlendGlobal))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	sequential, err := Stitch(context.Background(), []image.Image{a, b}, hs, optsFor(BlendSequential))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if global.Rect != sequential.Rect {
		t.Fatalf("expected same size, got %v vs %v", global.Rect, sequential.Rect)
	}
	for i := range global.Pix {
		if absDiff(global.Pix[i], sequential.Pix[i]) > 2 {
			t.Fatalf("byte %d: global %d vs sequential %d", i, global.Pix[i], sequential.Pix[i])
		}
	}
}

func TestStitchZeroOverlap(t *testing.T) {
	a, b := solidImage(100, 100, red), solidImage(100, 100, blue)
	for _, mode := range allModes {
		out, err := Stitch(context.Background(), []image.Image{a, b}, []emath.Mat3{emath.Translation(120, 0)}, optsFor(mode))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", mode, err)
		}
		if out.Rect.Dx() != 220 || out.Rect.Dy() != 100 {
			t.Fatalf("%s: expected 220x100, got %v", mode, out.Rect)
		}
		if c := out.RGBAAt(99, 10); c != red {
			t.Errorf("%s: expected red at x=99, got %v", mode, c)
		}
		if c := out.RGBAAt(110, 10); c != (color.RGBA{0, 0, 0, 0xFF}) {
			t.Errorf("%s: expected black in the gap, got %v", mode, c)
		}
		if c := out.RGBAAt(120, 10); c != blue {
			t.Errorf("%s: expected blue at x=120, got %v", mode, c)
		}
	}
}

func TestStitchPairsChained(t *testing.T) {
	imgs := []image.Image{solidImage(100, 100, red), solidImage(100, 100, blue), solidImage(100, 100, red)}
	pairs := []Pair{
		{Src: 1, Dst: 0, H: emath.Translation(80, 0)},
		{Src: 2, Dst: 1, H: emath.Translation(75, 2)},
	}

	out, err := StitchPairs(context.Background(), imgs, pairs, optsFor(BlendGlobal))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Rect.Dx() != 255 || out.Rect.Dy() != 102 {
		t.Fatalf("expected 255x102, got %v", out.Rect)
	}
	if c := out.RGBAAt(220, 50); c != red {
		t.Fatalf("expected image 2 at x=220, got %v", c)
	}

	if _, err := StitchPairs(context.Background(), imgs, pairs, optsFor(BlendSequential)); !errors.Is(err, ErrUnsupportedTopology) {
		t.Fatalf("expected ErrUnsupportedTopology, got %v", err)
	}
}

func TestStitchSequentialThreeImages(t *testing.T) {
	imgs := []image.Image{solidImage(60, 50, red), solidImage(60, 50, blue), solidImage(60, 50, red)}
	hs := []emath.Mat3{emath.Translation(40, 0), emath.Translation(-40, 10)}

	out, err := Stitch(context.Background(), imgs, hs, optsFor(BlendSequential))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Rect.Dx() != 140 || out.Rect.Dy() != 60 {
		t.Fatalf("expected 140x60, got %v", out.Rect)
	}
	if c := out.RGBAAt(5, 55); c != red {
		t.Fatalf("expected image 2 in the bottom left, got %v", c)
	}
	if c := out.RGBAAt(135, 5); c != blue {
		t.Fatalf("expected image 1 in the top right, got %v", c)
	}
	if c := out.RGBAAt(135, 55); c != (color.RGBA{0, 0, 0, 0xFF}) {
		t.Fatalf("expected black in the bottom right, got %v", c)
	}
}

func TestStitchErrors(t *testing.T) {
	img := solidImage(20, 20, red)
	two := []image.Image{img, img}

	tests := []struct {
		name     string
		images   []image.Image
		hs       []emath.Mat3
		opts     Options
		expected error
	}{
		{"empty", nil, nil, NewOptions(), ErrEmptyInput},
		{"no pixels", []image.Image{image.NewRGBA(image.Rect(0, 0, 0, 5))}, nil, NewOptions(), ErrEmptyInput},
		{"too few homographies", two, nil, NewOptions(), ErrTopologyMismatch},
		{"singular", two, []emath.Mat3{{}}, NewOptions(), ErrDegenerateTransform},
		{"rank two", two, []emath.Mat3{{1, 2, 0, 2, 4, 0, 0, 0, 1}}, optsFor(BlendSequential), ErrDegenerateTransform},
		{"corner at infinity", two, []emath.Mat3{{1, 0, 0, 0, 1, 0, -1.0 / 19, 0, 1}}, NewOptions(), ErrDegenerateTransform},
		{"bad mode", two, []emath.Mat3{emath.Identity3()}, optsFor(BlendMode(7)), ErrUnsupportedBlendMode},
		{"huge canvas", two, []emath.Mat3{emath.Translation(1e6, 1e6)}, NewOptions(), ErrCanvasTooLarge},
	}

	for _, test := range tests {
		out, err := Stitch(context.Background(), test.images, test.hs, test.opts)
		if !errors.Is(err, test.expected) {
			t.Errorf("%s: expected %v, got %v", test.name, test.expected, err)
		}
		if out != nil {
			t.Errorf("%s: expected no image alongside an error", test.name)
		}
	}
}

func TestStitchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	imgs := []image.Image{solidImage(50, 50, red), solidImage(50, 50, blue)}
	for _, mode := range allModes {
		_, err := Stitch(ctx, imgs, []emath.Mat3{emath.Translation(30, 0)}, optsFor(mode))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", mode, err)
		}
	}
}

func TestStitchSingleWorker(t *testing.T) {
	imgs := []image.Image{solidImage(50, 50, red), solidImage(50, 50, blue), solidImage(50, 50, red)}
	hs := []emath.Mat3{emath.Translation(30, 0), emath.Translation(60, 0)}

	opts := NewOptions()
	opts.Workers = 1
	one, err := Stitch(context.Background(), imgs, hs, opts)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	opts.Workers = 8
	many, err := Stitch(context.Background(), imgs, hs, opts)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rmse, _ := RMSE(one, many); rmse != 0 {
		t.Fatalf("expected worker count not to matter, got rmse %f", rmse)
	}
}

func TestStitchFarApart(t *testing.T) {
	imgs := []image.Image{solidImage(20, 10, red), solidImage(20, 10, blue)}
	for _, shift := range []float64{1001, 1500, 2500} {
		for _, mode := range allModes {
			out, err := Stitch(context.Background(), imgs, []emath.Mat3{emath.Translation(shift, 0)}, optsFor(mode))
			if err != nil {
				t.Fatalf("%s, shift %g: expected no error, got %v", mode, shift, err)
			}
			if out.Rect.Dx() != int(shift)+20 || out.Rect.Dy() != 10 {
				t.Fatalf("%s, shift %g: expected %dx10, got %v", mode, shift, int(shift)+20, out.Rect)
			}
			if c := out.RGBAAt(int(shift)+5, 5); c != blue {
				t.Errorf("%s, shift %g: expected blue, got %v", mode, shift, c)
			}
		}
	}
}
