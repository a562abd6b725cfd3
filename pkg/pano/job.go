package pano

import (
	"context"
	"fmt"
	"image"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/panostitch/pkg/emath"
)

/* Example job file ...

mode: global
epsilon: 1e-6
workers: 8
output: pano.png
diagnostics: ./diag

images:
  - file: left.tif
  - file: middle.tif
    h: [1, 0, 80,   0, 1, 0,   0, 0, 1]   # maps middle.tif into left.tif's pixel frame
  - file: right.tif

pairs:                                    # optional; if present, replaces the per-image h
  - {src: 1, dst: 0, h: [1, 0, 80,   0, 1, 0,   0, 0, 1]}
  - {src: 2, dst: 1, h: [1, 0, 75,   0, 1, 2,   0, 0, 1]}

*/

type ImageSpec struct {
	File string    `yaml:"file,omitempty"`
	H    []float64 `yaml:"h,omitempty,flow"`
}

type PairSpec struct {
	Src int       `yaml:"src"`
	Dst int       `yaml:"dst"`
	H   []float64 `yaml:"h,flow"`
}

type Config struct {
	Options `yaml:",inline"`

	Output         string      `yaml:"output,omitempty"`
	DiagnosticsDir string      `yaml:"diagnostics,omitempty"`
	Images         []ImageSpec `yaml:"images,omitempty"`
	Pairs          []PairSpec  `yaml:"pairs,omitempty"`
}

func NewConfig() Config {
	return Config{Options: NewOptions()}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse job yaml: %w", err)
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// A Job is a set of loaded images, plus the configuration saying how
// they fit together.
type Job struct {
	Config
	Layers []Layer

	listed map[string]bool // set once a job file names its images; nothing else gets loaded
}

func NewJob() Job {
	return Job{Config: NewConfig()}
}

func (j Job) String() string {
	str := fmt.Sprintf("Job %s [\n", j.Mode)
	for i, l := range j.Layers {
		str += fmt.Sprintf("  %d %s\n", i, l)
	}
	return str + "]\n"
}

func (j Job) InputImages() []image.Image {
	imgs := make([]image.Image, len(j.Layers))
	for i, l := range j.Layers {
		imgs[i] = l.Image
	}
	return imgs
}

// Pairs returns the job's topology. Explicit pairs win; otherwise every
// image after the first needs an `h` mapping it into the first image.
func (j Job) Pairs() ([]Pair, error) {
	pairs := []Pair{}

	if len(j.Config.Pairs) > 0 {
		for _, ps := range j.Config.Pairs {
			h, err := emath.NewMat3(ps.H)
			if err != nil {
				return nil, fmt.Errorf("%w: pair %d->%d: %v", ErrTopologyMismatch, ps.Src, ps.Dst, err)
			}
			pairs = append(pairs, Pair{Src: ps.Src, Dst: ps.Dst, H: h})
		}
		return pairs, nil
	}

	for i := 1; i < len(j.Layers); i++ {
		if i >= len(j.Config.Images) || len(j.Config.Images[i].H) == 0 {
			return nil, fmt.Errorf("%w: no homography for image %d (%s)", ErrTopologyMismatch, i, j.Layers[i].Filename())
		}
		h, err := emath.NewMat3(j.Config.Images[i].H)
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %v", ErrTopologyMismatch, i, err)
		}
		pairs = append(pairs, Pair{Src: i, Dst: ReferenceIndex, H: h})
	}
	return pairs, nil
}

// Run stitches the job's layers into a panorama.
func (j Job) Run(ctx context.Context) (*image.RGBA, error) {
	opts := j.Options
	if j.DiagnosticsDir != "" {
		d, err := NewDiagnostics(j.DiagnosticsDir)
		if err != nil {
			return nil, err
		}
		opts.Diagnostics = d
	}

	pairs, err := j.Pairs()
	if err != nil {
		return nil, err
	}

	if j.Verbosity > 0 {
		log.Printf("Running: %s", j)
	}

	return StitchPairs(ctx, j.InputImages(), pairs, opts)
}
