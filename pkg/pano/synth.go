package pano

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/abworrall/panostitch/pkg/emath"
)

// SyntheticPair builds a test partner for img: a same-sized copy that has
// been rotated (degrees, about its centre; positive is anticlockwise as
// seen on screen, with y pointing down), scaled and then shifted. It
// returns the copy, and the homography mapping img's pixel coords into
// the copy. Its inverse is what Stitch wants, to map the copy back onto img.
func SyntheticPair(img image.Image, angleDeg, tx, ty, scale float64) (*image.RGBA, emath.Mat3) {
	src := ToRGBA(img)
	cx, cy := float64(src.Rect.Dx())/2, float64(src.Rect.Dy())/2

	// Remember they compose back to front - rightmost operations performed first
	xform := emath.Identity().Translate(tx, ty).Translate(cx, cy).Rotate(-angleDeg).Scale(scale).Translate(-cx, -cy)

	dst := image.NewRGBA(src.Bounds())
	draw.BiLinear.Transform(dst, f64.Aff3(xform), src, src.Bounds(), draw.Src, nil)

	// draw puts pixel centres at +0.5; pixel coords here sit on the integers
	h := emath.Compose(emath.Translation(-0.5, -0.5), emath.Compose(xform.ToMat3(), emath.Translation(0.5, 0.5)))

	return dst, h
}
