package pano

import (
	"fmt"

	"github.com/abworrall/panostitch/pkg/emath"
)

// ReferenceIndex is the image whose pixel frame all the others get mapped into.
const ReferenceIndex = 0

// A Pair says that H maps pixel coords in image Src into image Dst.
type Pair struct {
	Src int
	Dst int
	H   emath.Mat3
}

func (p Pair) String() string { return fmt.Sprintf("Pair[%d->%d]", p.Src, p.Dst) }

// ReferencePairs turns the n-1 homographies of the reference form
// (homographies[i-1] maps image i into image 0) into pairs.
func ReferencePairs(nImages int, homographies []emath.Mat3) ([]Pair, error) {
	if nImages == 0 {
		return nil, ErrEmptyInput
	}
	if len(homographies) != nImages-1 {
		return nil, fmt.Errorf("%w: %d images need %d homographies, got %d",
			ErrTopologyMismatch, nImages, nImages-1, len(homographies))
	}

	pairs := make([]Pair, len(homographies))
	for i, h := range homographies {
		pairs[i] = Pair{Src: i + 1, Dst: ReferenceIndex, H: h}
	}
	return pairs, nil
}

// checkPairIndices makes sure each non-reference image is the source of
// exactly one pair, and that every index refers to a real image.
func checkPairIndices(nImages int, pairs []Pair) (map[int]Pair, error) {
	bySrc := map[int]Pair{}
	for _, p := range pairs {
		if p.Src < 0 || p.Src >= nImages || p.Dst < 0 || p.Dst >= nImages {
			return nil, fmt.Errorf("%w: %s references an unknown image (have %d)", ErrTopologyMismatch, p, nImages)
		}
		if p.Src == ReferenceIndex {
			return nil, fmt.Errorf("%w: %s maps the reference image", ErrTopologyMismatch, p)
		}
		if p.Src == p.Dst {
			return nil, fmt.Errorf("%w: %s maps an image onto itself", ErrTopologyMismatch, p)
		}
		if _, exists := bySrc[p.Src]; exists {
			return nil, fmt.Errorf("%w: image %d is the source of more than one pair", ErrTopologyMismatch, p.Src)
		}
		bySrc[p.Src] = p
	}
	return bySrc, nil
}

func checkAllPlaced(nImages int, bySrc map[int]Pair) error {
	for i := 0; i < nImages; i++ {
		if _, exists := bySrc[i]; i != ReferenceIndex && !exists {
			return fmt.Errorf("%w: image %d is not the source of any pair", ErrTopologyMismatch, i)
		}
	}
	return nil
}

// chainToReference resolves each image's homography into the reference
// frame by walking its pairs back to image 0, e.g. H_2->0 = H_1->0 * H_2->1.
// The returned slice is indexed by image, with the identity for image 0.
func chainToReference(nImages int, pairs []Pair) ([]emath.Mat3, error) {
	bySrc, err := checkPairIndices(nImages, pairs)
	if err != nil {
		return nil, err
	}
	if err := checkAllPlaced(nImages, bySrc); err != nil {
		return nil, err
	}

	resolved := make([]emath.Mat3, nImages)
	done := make([]bool, nImages)
	resolved[ReferenceIndex], done[ReferenceIndex] = emath.Identity3(), true

	for i := 0; i < nImages; i++ {
		// Walk up the chain until we hit something already resolved
		chain := []int{}
		onChain := map[int]bool{}
		for j := i; !done[j]; j = bySrc[j].Dst {
			if onChain[j] {
				return nil, fmt.Errorf("%w: image %d is part of a cycle that never reaches image %d",
					ErrTopologyMismatch, j, ReferenceIndex)
			}
			onChain[j] = true
			chain = append(chain, j)
		}

		// ... then resolve back down it
		for k := len(chain) - 1; k >= 0; k-- {
			p := bySrc[chain[k]]
			resolved[p.Src] = emath.Compose(resolved[p.Dst], p.H)
			done[p.Src] = true
		}
	}

	return resolved, nil
}

// checkSequentialPairs validates pairs for the sequential fold, which can
// only take pairs that map straight onto the reference image.
func checkSequentialPairs(nImages int, pairs []Pair) error {
	bySrc, err := checkPairIndices(nImages, pairs)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if p.Dst != ReferenceIndex {
			return fmt.Errorf("%w: %s; sequential blending only folds pairs onto image %d",
				ErrUnsupportedTopology, p, ReferenceIndex)
		}
	}
	return checkAllPlaced(nImages, bySrc)
}
