package pano

import "runtime"

// DefaultEpsilon keeps the final division well defined where no image
// covers the canvas; those pixels come out black.
const DefaultEpsilon = 1e-6

// Options controls a single stitch.
type Options struct {
	Mode            BlendMode `yaml:"mode"`
	Epsilon         float64   `yaml:"epsilon"`
	Workers         int       `yaml:"workers"`
	MaxCanvasPixels int       `yaml:"maxcanvaspixels"`
	Verbosity       int       `yaml:"verbosity"`

	// If set, intermediate artifacts get written out as the stitch runs
	Diagnostics *Diagnostics `yaml:"-"`
}

func NewOptions() Options {
	return Options{
		Mode:            BlendGlobal,
		Epsilon:         DefaultEpsilon,
		Workers:         runtime.NumCPU(),
		MaxCanvasPixels: DefaultMaxCanvasPixels,
	}
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.MaxCanvasPixels <= 0 {
		o.MaxCanvasPixels = DefaultMaxCanvasPixels
	}
	return o
}
