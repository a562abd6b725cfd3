package pano

import (
	"fmt"
	"image"
	"math"

	"github.com/abworrall/panostitch/pkg/emath"
)

// DefaultMaxCanvasPixels stops a nearly-degenerate homography from asking
// for an absurd canvas.
const DefaultMaxCanvasPixels = 1 << 28

// A Canvas is the output frame: its size, and the translation that shifts
// the reference frame so every warped image lands inside it.
type Canvas struct {
	Width, Height int
	TX, TY        int
}

func (c Canvas) String() string {
	return fmt.Sprintf("Canvas[%dx%d, t(%d,%d)]", c.Width, c.Height, c.TX, c.TY)
}

func (c Canvas) Translation() emath.Mat3 {
	return emath.Translation(float64(c.TX), float64(c.TY))
}

// CanvasHomography maps an image's reference-frame homography into canvas space.
func (c Canvas) CanvasHomography(h emath.Mat3) emath.Mat3 {
	return emath.Compose(c.Translation(), h)
}

// ResolveCanvas finds the canvas that holds the corners of every image
// once warped by its homography into the reference frame. sizes[i] is the
// (width, height) of image i, and homographies[i] maps it into the
// reference frame.
func ResolveCanvas(sizes []image.Point, homographies []emath.Mat3, maxPixels int) (Canvas, error) {
	if len(sizes) == 0 {
		return Canvas{}, ErrEmptyInput
	}
	if len(sizes) != len(homographies) {
		return Canvas{}, fmt.Errorf("%w: %d images, %d homographies", ErrTopologyMismatch, len(sizes), len(homographies))
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxCanvasPixels
	}

	all := []emath.Point{}
	for i, sz := range sizes {
		corners, err := emath.TransformPoints(emath.Corners(sz.X, sz.Y), homographies[i])
		if err != nil {
			return Canvas{}, fmt.Errorf("image %d: %w", i, err)
		}
		all = append(all, corners...)
	}

	// Check the extent while still in floats; huge values won't fit in an int
	xMin, yMin := math.Inf(1), math.Inf(1)
	xMax, yMax := math.Inf(-1), math.Inf(-1)
	for _, p := range all {
		xMin, xMax = math.Min(xMin, p.X), math.Max(xMax, p.X)
		yMin, yMax = math.Min(yMin, p.Y), math.Max(yMax, p.Y)
	}
	if area := (xMax - xMin + 2) * (yMax - yMin + 2); math.IsNaN(area) || area > float64(maxPixels) {
		return Canvas{}, fmt.Errorf("%w: warped corners span %.0fx%.0f pixels (max %d pixels)",
			ErrCanvasTooLarge, xMax-xMin, yMax-yMin, maxPixels)
	}

	bb := emath.BoundingBox(all)
	return Canvas{
		Width:  bb.Dx(),
		Height: bb.Dy(),
		TX:     -bb.Min.X,
		TY:     -bb.Min.Y,
	}, nil
}

func imageSize(img image.Image) image.Point {
	return image.Point{img.Bounds().Dx(), img.Bounds().Dy()}
}
