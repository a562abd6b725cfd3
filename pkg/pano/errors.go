package pano

import (
	"errors"

	"github.com/abworrall/panostitch/pkg/emath"
)

// The errors a stitch can fail with. They are always wrapped with some
// context, so test for them with errors.Is.
var (
	ErrEmptyInput           = errors.New("no images to stitch")
	ErrTopologyMismatch     = errors.New("homographies don't match the images")
	ErrUnsupportedTopology  = errors.New("unsupported pair topology")
	ErrDegenerateTransform  = emath.ErrDegenerate
	ErrUnsupportedBlendMode = errors.New("unsupported blend mode")
	ErrCanvasTooLarge       = errors.New("canvas too large")
)
