package pano

import (
	"fmt"
	"image"
	"path/filepath"
	"time"
)

// A Layer holds an image.Image loaded from an input file, with whatever
// metadata we could find about the shot.
type Layer struct {
	LoadFilename string
	Camera       string    // from EXIF, if present
	TakenAt      time.Time // from EXIF, if present

	image.Image
}

func (l Layer) String() string {
	str := fmt.Sprintf("%s: %dx%d", l.Filename(), l.Bounds().Dx(), l.Bounds().Dy())
	if l.Camera != "" {
		str += fmt.Sprintf(", %s", l.Camera)
	}
	if !l.TakenAt.IsZero() {
		str += fmt.Sprintf(", taken %s", l.TakenAt.Format(time.DateTime))
	}
	return str
}

func (l Layer) Filename() string {
	return filepath.Base(l.LoadFilename)
}
