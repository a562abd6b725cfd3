package pano

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/abworrall/panostitch/pkg/emath"
)

// A Buffer is a canvas-sized grid of RGB values, kept as floats so that
// resampling and blending only round once, at the very end.
type Buffer struct {
	W, H int
	Pix  []float64 // R,G,B interleaved, row-major
}

func NewBuffer(w, h int) *Buffer {
	return &Buffer{W: w, H: h, Pix: make([]float64, 3*w*h)}
}

func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.W, b.H) }
func (b *Buffer) offset(x, y int) int    { return 3 * (y*b.W + x) }

func (b *Buffer) At3(x, y int) [3]float64 {
	i := b.offset(x, y)
	return [3]float64{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

func (b *Buffer) Set3(x, y int, c [3]float64) {
	i := b.offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = c[0], c[1], c[2]
}

// BufferFromImage copies the RGB channels of any image into a Buffer
// whose origin is at (0,0). Alpha is dropped.
func BufferFromImage(img image.Image) *Buffer {
	rgba := ToRGBA(img)
	b := NewBuffer(rgba.Rect.Dx(), rgba.Rect.Dy())
	for y := 0; y < b.H; y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := b.Pix[b.offset(0, y):]
		for x := 0; x < b.W; x++ {
			dst[3*x+0] = float64(src[4*x+0])
			dst[3*x+1] = float64(src[4*x+1])
			dst[3*x+2] = float64(src[4*x+2])
		}
	}
	return b
}

// ToRGBA clips each channel to [0,255] and rounds it. The result is opaque.
func (b *Buffer) ToRGBA() *image.RGBA {
	out := image.NewRGBA(b.Bounds())
	for y := 0; y < b.H; y++ {
		src := b.Pix[b.offset(0, y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.W; x++ {
			dst[4*x+0] = emath.ClipToUint8(src[3*x+0])
			dst[4*x+1] = emath.ClipToUint8(src[3*x+1])
			dst[4*x+2] = emath.ClipToUint8(src[3*x+2])
			dst[4*x+3] = 0xFF
		}
	}
	return out
}

// ToRGBA returns a copy of img as an *image.RGBA with its origin at (0,0).
// The input image is never modified.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
