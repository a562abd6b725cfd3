package emath

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/codahale/hdrhistogram"
	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A FloatGrid is a grid of floats, with some operations
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }

func (fg *FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

// Row returns the backing slice for row y; writes go through to the grid.
func (fg *FloatGrid) Row(y int) []float64 { return fg.values[fg.stride*y : fg.stride*(y+1)] }

func (fg *FloatGrid) Fill(v float64) {
	for i := range fg.values {
		fg.values[i] = v
	}
}

// AddGrid adds g2 into fg, elementwise. The grids must be the same size.
func (fg *FloatGrid) AddGrid(g2 *FloatGrid) {
	for i := range fg.values {
		fg.values[i] += g2.values[i]
	}
}

func (fg *FloatGrid) MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0 * min

	for i := 0; i < len(fg.values); i++ {
		if fg.values[i] > max {
			max = fg.values[i]
		}
		if fg.values[i] < min {
			min = fg.values[i]
		}
	}
	return min, max
}

// Stats summarizes the grid; the percentiles only consider non-zero
// values, as zero means "no data" for the grids we build.
func (fg *FloatGrid) Stats() string {
	min, max := fg.MinMax()
	str := fmt.Sprintf("fg[%dx%d, vals{%f,%f}", fg.Dx(), fg.Dy(), min, max)

	// Values are recorded in hundredths, to keep two decimal places
	hist := hdrhistogram.New(1, int64(max*100)+2, 3)
	for _, v := range fg.values {
		if v > 0 {
			hist.RecordValue(int64(v*100) + 1)
		}
	}
	if hist.TotalCount() > 0 {
		str += fmt.Sprintf(", nonzero:%d, p50:%.2f, p90:%.2f, p99:%.2f",
			hist.TotalCount(),
			float64(hist.ValueAtQuantile(50)-1)/100.0,
			float64(hist.ValueAtQuantile(90)-1)/100.0,
			float64(hist.ValueAtQuantile(99)-1)/100.0)
	}

	return str + "]"
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid) ToImg(title, filename string) error {
	min, max := fg.MinMax()
	if max <= min {
		max = min + 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{fg.Dx(), fg.Dy()}})
	for x := 0; x < fg.Dx(); x++ {
		for y := 0; y < fg.Dy(); y++ {
			lum := fg.Get(x, y)
			gray := GammaExpand_F64((lum - min) / (max - min))
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 0, 0)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
