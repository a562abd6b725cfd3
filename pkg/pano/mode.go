package pano

import (
	"fmt"
	"strings"
)

// BlendMode picks how warped images get combined into the panorama.
type BlendMode int

const (
	// BlendGlobal warps every image into one fixed canvas, and takes a
	// distance-weighted average over all of them at once.
	BlendGlobal BlendMode = iota

	// BlendSequential folds images one at a time into a running canvas
	// that grows as it goes. Every pair must map onto the reference image.
	BlendSequential
)

var blendModeNames = map[string]BlendMode{
	"global":     BlendGlobal,
	"feather":    BlendGlobal,
	"sequential": BlendSequential,
	"pairwise":   BlendSequential,
}

func (m BlendMode) String() string {
	switch m {
	case BlendGlobal:
		return "global"
	case BlendSequential:
		return "sequential"
	default:
		return fmt.Sprintf("BlendMode(%d)", int(m))
	}
}

func (m BlendMode) Valid() bool { return m == BlendGlobal || m == BlendSequential }

func ParseBlendMode(s string) (BlendMode, error) {
	if m, exists := blendModeNames[strings.ToLower(strings.TrimSpace(s))]; exists {
		return m, nil
	}
	return 0, fmt.Errorf("%w: %q (want global or sequential)", ErrUnsupportedBlendMode, s)
}

func (m BlendMode) MarshalYAML() (interface{}, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBlendMode, int(m))
	}
	return m.String(), nil
}

func (m *BlendMode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	mode, err := ParseBlendMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
