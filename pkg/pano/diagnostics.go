package pano

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/panostitch/pkg/emath"
)

// Diagnostics writes out the intermediate artifacts of a stitch, which
// are otherwise thrown away: each image's weight map, a coverage overlay
// with one hue per image, and the unclipped float panorama. A nil
// *Diagnostics does nothing.
type Diagnostics struct {
	Dir string

	mu      sync.Mutex
	overlay *image.RGBA
}

func NewDiagnostics(dir string) (*Diagnostics, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diagnostics dir '%s': %v", dir, err)
	}
	return &Diagnostics{Dir: dir}, nil
}

// hueFor spreads image hues around the color wheel by the golden angle,
// so neighbouring indices never look alike.
func hueFor(i int) color.Color {
	return colorful.Hsv(math.Mod(float64(i)*137.508, 360), 0.8, 0.95)
}

func (d *Diagnostics) layer(i int, mask CoverageMask, weight *emath.FloatGrid) {
	if d == nil {
		return
	}

	filename := filepath.Join(d.Dir, fmt.Sprintf("weight-%02d.png", i))
	title := fmt.Sprintf("image %d: %d px covered", i, mask.Count())
	if err := weight.ToImg(title, filename); err != nil {
		log.Printf("Diagnostics: weight map %d: %v\n", i, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.overlay == nil || d.overlay.Rect.Dx() != mask.W || d.overlay.Rect.Dy() != mask.H {
		d.overlay = image.NewRGBA(image.Rect(0, 0, mask.W, mask.H))
	}

	hue, _ := colorful.MakeColor(hueFor(i))
	for y := 0; y < mask.H; y++ {
		for x := 0; x < mask.W; x++ {
			if !mask.At(x, y) {
				continue
			}
			prev, _ := colorful.MakeColor(d.overlay.RGBAAt(x, y))
			if d.overlay.RGBAAt(x, y).A != 0 {
				// Overlaps show as a mix of the hues involved
				d.overlay.Set(x, y, prev.BlendLab(hue, 0.5).Clamped())
			} else {
				d.overlay.Set(x, y, hue)
			}
		}
	}

	if err := WritePNG(d.overlay, filepath.Join(d.Dir, "coverage.png")); err != nil {
		log.Printf("Diagnostics: coverage overlay: %v\n", err)
	}
}

// growCanvas moves the coverage overlay into a larger canvas, which the
// old one sits inside at (TX,TY). Sequential folds grow the canvas this way.
func (d *Diagnostics) growCanvas(c Canvas) {
	if d == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.overlay == nil {
		return
	}
	grown := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(grown, d.overlay.Rect.Add(image.Pt(c.TX, c.TY)), d.overlay, image.Point{}, draw.Src)
	d.overlay = grown
}

// floatImage presents a Buffer as an HDR image, with channels scaled to [0,1]
// but not clipped.
type floatImage struct {
	*Buffer
}

// Implement golang's image.Image interface
func (fi floatImage) ColorModel() color.Model { return hdrcolor.RGBModel }
func (fi floatImage) At(x, y int) color.Color { return fi.HDRAt(x, y) }

// Implement hdr.Image interface
func (fi floatImage) HDRAt(x, y int) hdrcolor.Color {
	c := fi.At3(x, y)
	return hdrcolor.RGB{R: c[0] / 255.0, G: c[1] / 255.0, B: c[2] / 255.0}
}
func (fi floatImage) Size() int { return fi.W * fi.H }

func (d *Diagnostics) floatPanorama(b *Buffer) error {
	if d == nil {
		return nil
	}

	filename := filepath.Join(d.Dir, "panorama.hdr")
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	return rgbe.Encode(writer, floatImage{b})
}
