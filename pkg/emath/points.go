package emath

import (
	"errors"
	"fmt"
	"image"
	"math"
)

const (
	// A projected point whose homogeneous w is this close to zero has gone off to infinity
	WEpsilon = 1e-9

	// Scale-free determinant below which a homography is treated as singular
	DetEpsilon = 1e-9
)

var ErrDegenerate = errors.New("degenerate transform")

type Point struct {
	X, Y float64
}

func (p Point) String() string { return fmt.Sprintf("(%.2f,%.2f)", p.X, p.Y) }

// Corners returns the pixel centres at the four corners of a w*h image,
// clockwise from the origin.
func Corners(w, h int) []Point {
	return []Point{
		{0, 0},
		{float64(w - 1), 0},
		{float64(w - 1), float64(h - 1)},
		{0, float64(h - 1)},
	}
}

// TransformPoints applies the homography to each point. It fails if any
// point maps to (or near) infinity.
func TransformPoints(pts []Point, h Mat3) ([]Point, error) {
	out := make([]Point, len(pts))
	for i, p := range pts {
		x, y, w := h.Project(p.X, p.Y)
		if math.Abs(w) < WEpsilon || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: point %s maps to infinity (w=%g)", ErrDegenerate, p, w)
		}
		out[i] = Point{x, y}
	}
	return out, nil
}

// BoundingBox returns the smallest integer rectangle that holds all
// the points; Max is exclusive, so a point sitting exactly on an
// integer max still lands inside.
func BoundingBox(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}

	xMin, yMin := math.Inf(1), math.Inf(1)
	xMax, yMax := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		xMin, xMax = math.Min(xMin, p.X), math.Max(xMax, p.X)
		yMin, yMax = math.Min(yMin, p.Y), math.Max(yMax, p.Y)
	}

	return image.Rect(
		int(math.Floor(xMin)), int(math.Floor(yMin)),
		int(math.Floor(xMax))+1, int(math.Floor(yMax))+1,
	)
}
