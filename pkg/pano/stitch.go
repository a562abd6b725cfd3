package pano

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/abworrall/panostitch/pkg/emath"
)

// Stitch composites the images into one panorama. homographies[i-1] maps
// image i into the pixel frame of image 0, so there must be exactly one
// fewer homography than images. The input images are never modified.
func Stitch(ctx context.Context, images []image.Image, homographies []emath.Mat3, opts Options) (*image.RGBA, error) {
	if len(images) == 0 {
		return nil, ErrEmptyInput
	}
	pairs, err := ReferencePairs(len(images), homographies)
	if err != nil {
		return nil, err
	}
	return StitchPairs(ctx, images, pairs, opts)
}

// StitchPairs composites the images given the pairwise homographies
// between them. In global mode the pairs may form any tree rooted at
// image 0; sequential mode only takes pairs onto image 0, and folds them
// in the order given.
//
// All input and geometry problems are reported before any canvas
// buffer is allocated.
func StitchPairs(ctx context.Context, images []image.Image, pairs []Pair, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()

	if len(images) == 0 {
		return nil, ErrEmptyInput
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBlendMode, opts.Mode)
	}

	sizes := make([]image.Point, len(images))
	for i, img := range images {
		if sizes[i] = imageSize(img); sizes[i].X <= 0 || sizes[i].Y <= 0 {
			return nil, fmt.Errorf("%w: image %d has no pixels", ErrEmptyInput, i)
		}
	}

	var (
		refH   []emath.Mat3
		canvas Canvas
		err    error
	)

	switch opts.Mode {
	case BlendGlobal:
		if refH, err = chainToReference(len(images), pairs); err != nil {
			return nil, err
		}
		if err := checkTransforms(sizes, refH); err != nil {
			return nil, err
		}
		if canvas, err = ResolveCanvas(sizes, refH, opts.MaxCanvasPixels); err != nil {
			return nil, err
		}

	case BlendSequential:
		if err := checkSequentialPairs(len(images), pairs); err != nil {
			return nil, err
		}
		hs := make([]emath.Mat3, len(images))
		hs[ReferenceIndex] = emath.Identity3()
		for _, p := range pairs {
			hs[p.Src] = p.H
		}
		if err := checkTransforms(sizes, hs); err != nil {
			return nil, err
		}
		// The running canvas ends up spanning the same area as a global canvas would
		if canvas, err = ResolveCanvas(sizes, hs, opts.MaxCanvasPixels); err != nil {
			return nil, err
		}
	}

	if len(images) == 1 {
		return ToRGBA(images[0]), nil
	}

	if opts.Verbosity > 0 {
		log.Printf("Stitching %d images, %s blend, into %s\n", len(images), opts.Mode, canvas)
	}

	bufs := make([]*Buffer, len(images))
	for i, img := range images {
		bufs[i] = BufferFromImage(img)
	}

	var pano *Buffer
	switch opts.Mode {
	case BlendGlobal:
		pano, err = blendGlobal(ctx, opts, canvas, bufs, refH)
	case BlendSequential:
		pano, err = blendSequential(ctx, opts, bufs, pairs)
	}
	if err != nil {
		return nil, err
	}

	if err := opts.Diagnostics.floatPanorama(pano); err != nil {
		log.Printf("Diagnostics: %v\n", err)
	}

	return pano.ToRGBA(), nil
}

// checkTransforms makes sure every homography is invertible, and that
// none of the image corners get projected off to infinity.
func checkTransforms(sizes []image.Point, hs []emath.Mat3) error {
	for i, h := range hs {
		if _, err := h.Inverse(); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		if _, err := emath.TransformPoints(emath.Corners(sizes[i].X, sizes[i].Y), h); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}
	return nil
}
