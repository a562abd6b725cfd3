package pano

// A few helper routines for golang's image libraries

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

func WriteTIFF(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
}

func WriteJPEG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return jpeg.Encode(writer, img, &jpeg.Options{Quality: 95})
	}
}

// WriteImage picks an encoder based on the filename's extension.
func WriteImage(img image.Image, filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return WritePNG(img, filename)
	case ".tif", ".tiff":
		return WriteTIFF(img, filename)
	case ".jpg", ".jpeg":
		return WriteJPEG(img, filename)
	default:
		return fmt.Errorf("write '%s': unknown image format", filename)
	}
}

// RMSE is the root mean squared difference between the RGB channels of
// two images (in 8-bit units), which must be the same size.
func RMSE(a, b image.Image) (float64, error) {
	if a.Bounds().Size() != b.Bounds().Size() {
		return 0, fmt.Errorf("rmse: image sizes differ, %v vs %v", a.Bounds().Size(), b.Bounds().Size())
	}

	ba, bb := BufferFromImage(a), BufferFromImage(b)
	if len(ba.Pix) == 0 {
		return 0, nil
	}

	sum := 0.0
	for i := range ba.Pix {
		d := ba.Pix[i] - bb.Pix[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ba.Pix))), nil
}
