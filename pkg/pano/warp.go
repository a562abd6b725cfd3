package pano

import (
	"fmt"
	"math"
	"sync"

	"github.com/abworrall/panostitch/pkg/emath"
)

// A mask sample at or above this is treated as covered
const maskThreshold = 0.5

// Samples this close outside the source image still count as inside it,
// so that exact integer mappings onto the edge pixels aren't lost to rounding.
const edgeTolerance = 1e-6

// A Warper resamples images into canvas space.
type Warper struct {
	Width, Height int // canvas size
	RowWorkers    int // if >1, split the canvas rows across this many goroutines
}

// WarpImage projects img into canvas space using h, which maps image
// pixel coords into canvas coords. It returns the warped colors, and the
// mask of canvas pixels the image covers.
func (wp Warper) WarpImage(img *Buffer, h emath.Mat3) (*Buffer, CoverageMask, error) {
	full := emath.NewFloatGrid(img.W, img.H)
	full.Fill(1)
	return wp.WarpMasked(img, &full, h)
}

// WarpMasked is like WarpImage, but the source carries its own coverage
// (e.g. a running canvas with holes in it). The mask is warped with the
// same sampling as the colors and thresholded, so the two footprints are
// always pixel-aligned.
func (wp Warper) WarpMasked(img *Buffer, srcMask *emath.FloatGrid, h emath.Mat3) (*Buffer, CoverageMask, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, CoverageMask{}, fmt.Errorf("warp: %w", err)
	}

	// A destination pixel is only a real image of the source if its
	// homogeneous w has the same sign as genuine source points do.
	cx, cy, _ := h.Project(float64(img.W-1)/2, float64(img.H-1)/2)
	_, _, wRef := inv.Project(cx, cy)
	sign := 1.0
	if wRef < 0 {
		sign = -1.0
	}

	out := NewBuffer(wp.Width, wp.Height)
	mask := NewCoverageMask(wp.Width, wp.Height)

	warpRows := func(yFrom, yTo int) {
		for y := yFrom; y < yTo; y++ {
			for x := 0; x < wp.Width; x++ {
				sx, sy, w := inv.Project(float64(x), float64(y))
				if w*sign < emath.WEpsilon {
					continue
				}
				t, ok := bilinearTaps(sx, sy, img.W, img.H)
				if !ok || t.sampleGrid(srcMask) < maskThreshold {
					continue
				}
				mask.Set(x, y, true)
				out.Set3(x, y, t.sampleBuffer(img))
			}
		}
	}

	nWorkers := wp.RowWorkers
	if nWorkers <= 1 || wp.Height < 2*nWorkers {
		warpRows(0, wp.Height)
		return out, mask, nil
	}

	var wg sync.WaitGroup
	band := (wp.Height + nWorkers - 1) / nWorkers
	for yFrom := 0; yFrom < wp.Height; yFrom += band {
		yFrom := yFrom // per-iteration copy (pre-Go 1.22 loop semantics)
		yTo := min(yFrom+band, wp.Height)
		wg.Add(1)
		go func() {
			defer wg.Done()
			warpRows(yFrom, yTo)
		}()
	}
	wg.Wait()

	return out, mask, nil
}

// taps holds the four neighbours and fractional offsets for a bilinear sample
type taps struct {
	x0, y0, x1, y1 int
	fx, fy         float64
}

func bilinearTaps(sx, sy float64, w, h int) (taps, bool) {
	if math.IsNaN(sx) || math.IsNaN(sy) {
		return taps{}, false
	}
	if sx < -edgeTolerance || sy < -edgeTolerance || sx > float64(w-1)+edgeTolerance || sy > float64(h-1)+edgeTolerance {
		return taps{}, false
	}
	sx = math.Min(math.Max(sx, 0), float64(w-1))
	sy = math.Min(math.Max(sy, 0), float64(h-1))

	t := taps{x0: int(sx), y0: int(sy)}
	t.x1, t.y1 = min(t.x0+1, w-1), min(t.y0+1, h-1)
	t.fx, t.fy = sx-float64(t.x0), sy-float64(t.y0)
	return t, true
}

func (t taps) weights() (w00, w10, w01, w11 float64) {
	return (1 - t.fx) * (1 - t.fy), t.fx * (1 - t.fy), (1 - t.fx) * t.fy, t.fx * t.fy
}

func (t taps) sampleGrid(g *emath.FloatGrid) float64 {
	w00, w10, w01, w11 := t.weights()
	return w00*g.Get(t.x0, t.y0) + w10*g.Get(t.x1, t.y0) + w01*g.Get(t.x0, t.y1) + w11*g.Get(t.x1, t.y1)
}

func (t taps) sampleBuffer(b *Buffer) [3]float64 {
	w00, w10, w01, w11 := t.weights()
	p00, p10, p01, p11 := b.At3(t.x0, t.y0), b.At3(t.x1, t.y0), b.At3(t.x0, t.y1), b.At3(t.x1, t.y1)

	var c [3]float64
	for ch := 0; ch < 3; ch++ {
		c[ch] = w00*p00[ch] + w10*p10[ch] + w01*p01[ch] + w11*p11[ch]
	}
	return c
}
