package pano

import (
	"context"
	"fmt"
	"image"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/abworrall/panostitch/pkg/emath"
)

// {{{ blendGlobal

type warpedLayer struct {
	Index  int
	Color  *Buffer
	Weight emath.FloatGrid
}

// blendGlobal warps every image into the same canvas, weights each one by
// its distance transform, and divides the weighted sum by the summed
// weights. The warps are independent, so they run on a pool of workers;
// their results are folded into the accumulators by this goroutine only.
func blendGlobal(ctx context.Context, opts Options, canvas Canvas, bufs []*Buffer, refH []emath.Mat3) (*Buffer, error) {
	wp := Warper{Width: canvas.Width, Height: canvas.Height}

	colorSum := NewBuffer(canvas.Width, canvas.Height)
	weightSum := emath.NewFloatGrid(canvas.Width, canvas.Height)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	results := make(chan warpedLayer)

	go func() {
		defer close(results)
		for i := range bufs {
			i := i // per-iteration copy (pre-Go 1.22 loop semantics)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				color, mask, err := wp.WarpImage(bufs[i], canvas.CanvasHomography(refH[i]))
				if err != nil {
					return fmt.Errorf("image %d: %w", i, err)
				}
				weight := mask.WeightMap()
				opts.Diagnostics.layer(i, mask, &weight)

				if opts.Verbosity > 1 {
					log.Printf(" -- image %d: %d pixels covered, weights %s\n", i, mask.Count(), weight.Stats())
				}

				select {
				case results <- warpedLayer{i, color, weight}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		g.Wait()
	}()

	for l := range results {
		accumulate(colorSum, &weightSum, l.Color, &l.Weight)
		if opts.Verbosity > 0 {
			log.Printf("Accumulated image %d\n", l.Index)
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return normalize(colorSum, &weightSum, opts.Epsilon), nil
}

func accumulate(colorSum *Buffer, weightSum *emath.FloatGrid, color *Buffer, weight *emath.FloatGrid) {
	for y := 0; y < colorSum.H; y++ {
		wRow := weight.Row(y)
		sumRow := weightSum.Row(y)
		for x, w := range wRow {
			if w == 0 {
				continue
			}
			sumRow[x] += w
			i := colorSum.offset(x, y)
			colorSum.Pix[i+0] += color.Pix[i+0] * w
			colorSum.Pix[i+1] += color.Pix[i+1] * w
			colorSum.Pix[i+2] += color.Pix[i+2] * w
		}
	}
}

// normalize divides the weighted color sums by the summed weights. Where
// nothing contributed, both sums are zero and the result is black.
func normalize(colorSum *Buffer, weightSum *emath.FloatGrid, eps float64) *Buffer {
	out := NewBuffer(colorSum.W, colorSum.H)
	for y := 0; y < colorSum.H; y++ {
		for x, w := range weightSum.Row(y) {
			i := colorSum.offset(x, y)
			out.Pix[i+0] = colorSum.Pix[i+0] / (w + eps)
			out.Pix[i+1] = colorSum.Pix[i+1] / (w + eps)
			out.Pix[i+2] = colorSum.Pix[i+2] / (w + eps)
		}
	}
	return out
}

// }}}
// {{{ blendSequential

// blendSequential starts with image 0 as the running canvas, and folds
// each pair's source image into it in turn. Every fold may grow the
// canvas, so each one depends on the last; only the warps inside a fold
// run in parallel.
func blendSequential(ctx context.Context, opts Options, bufs []*Buffer, pairs []Pair) (*Buffer, error) {
	running := bufs[ReferenceIndex]
	runMask := NewCoverageMask(running.W, running.H)
	for i := range runMask.Covered {
		runMask.Covered[i] = true
	}
	runT := emath.Identity3() // maps the reference frame into the running canvas

	for k, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := bufs[p.Src]
		hRun := emath.Compose(runT, p.H)

		sizes := []image.Point{{running.W, running.H}, {src.W, src.H}}
		canvas, err := ResolveCanvas(sizes, []emath.Mat3{emath.Identity3(), hRun}, opts.MaxCanvasPixels)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if opts.Verbosity > 0 {
			log.Printf("Folding %s into running canvas, now %s\n", p, canvas)
		}

		wp := Warper{Width: canvas.Width, Height: canvas.Height, RowWorkers: opts.Workers}
		t := canvas.Translation()

		runGrid := runMask.ToGrid()
		runColor, runCov, err := wp.WarpMasked(running, &runGrid, t)
		if err != nil {
			return nil, fmt.Errorf("%s: running canvas: %w", p, err)
		}
		srcColor, srcCov, err := wp.WarpImage(src, emath.Compose(t, hRun))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}

		runDist := runCov.WeightMap()
		srcDist := srcCov.WeightMap()
		opts.Diagnostics.growCanvas(canvas)
		if k == 0 {
			// Before the first fold, the running canvas is just the reference image
			opts.Diagnostics.layer(ReferenceIndex, runCov, &runDist)
		}
		opts.Diagnostics.layer(p.Src, srcCov, &srcDist)

		running = blendPair(runColor, runCov, &runDist, srcColor, srcCov, &srcDist, opts.Epsilon)
		runMask = runCov.Union(srcCov)
		runT = emath.Compose(t, runT)
	}

	return running, nil
}

// blendPair merges two canvas-sized layers. Where only one covers a pixel
// its color wins outright; where both do, they're cross-faded by their
// distances from their own coverage edges.
func blendPair(aColor *Buffer, aCov CoverageMask, aDist *emath.FloatGrid, bColor *Buffer, bCov CoverageMask, bDist *emath.FloatGrid, eps float64) *Buffer {
	out := NewBuffer(aColor.W, aColor.H)
	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			inA, inB := aCov.At(x, y), bCov.At(x, y)
			switch {
			case inA && inB:
				da, db := aDist.Get(x, y), bDist.Get(x, y)
				wa := da / (da + db + eps)
				ca, cb := aColor.At3(x, y), bColor.At3(x, y)
				out.Set3(x, y, [3]float64{
					ca[0]*wa + cb[0]*(1-wa),
					ca[1]*wa + cb[1]*(1-wa),
					ca[2]*wa + cb[2]*(1-wa),
				})
			case inA:
				out.Set3(x, y, aColor.At3(x, y))
			case inB:
				out.Set3(x, y, bColor.At3(x, y))
			}
		}
	}
	return out
}

// }}}

// {{{ -------------------------={ E N D }=----------------------------------

// Local variables:
// folded-file: t
// end:

// }}}
