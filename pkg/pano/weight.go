package pano

import (
	"math"

	"github.com/abworrall/panostitch/pkg/emath"
)

// A CoverageMask records which canvas pixels a warped image populated.
type CoverageMask struct {
	W, H    int
	Covered []bool
}

func NewCoverageMask(w, h int) CoverageMask {
	return CoverageMask{W: w, H: h, Covered: make([]bool, w*h)}
}

func (m CoverageMask) At(x, y int) bool     { return m.Covered[y*m.W+x] }
func (m CoverageMask) Set(x, y int, v bool) { m.Covered[y*m.W+x] = v }

func (m CoverageMask) Count() int {
	n := 0
	for _, c := range m.Covered {
		if c {
			n++
		}
	}
	return n
}

// Union returns a mask covering everything either mask covers.
func (m CoverageMask) Union(m2 CoverageMask) CoverageMask {
	out := NewCoverageMask(m.W, m.H)
	for i := range m.Covered {
		out.Covered[i] = m.Covered[i] || m2.Covered[i]
	}
	return out
}

// ToGrid returns the mask as 1.0 (covered) and 0.0 values
func (m CoverageMask) ToGrid() emath.FloatGrid {
	g := emath.NewFloatGrid(m.W, m.H)
	for y := 0; y < m.H; y++ {
		row := g.Row(y)
		for x := range row {
			if m.At(x, y) {
				row[x] = 1
			}
		}
	}
	return g
}

// Stand-in for infinity in the squared-distance passes
const edtInf = 1e20

// WeightMap returns, for each covered pixel, the Euclidean distance (in
// pixels) to the nearest uncovered pixel; uncovered pixels get 0. Space
// beyond the edge of the canvas doesn't count as uncovered. If nothing
// at all is uncovered, every pixel gets hypot(W,H), more than any real
// distance could be.
//
// This is the exact transform, as two passes of 1D squared distances over
// lower envelopes of parabolas (Felzenszwalb & Huttenlocher, 2012).
func (m CoverageMask) WeightMap() emath.FloatGrid {
	g := emath.NewFloatGrid(m.W, m.H)
	if m.W == 0 || m.H == 0 {
		return g
	}

	n := max(m.W, m.H)
	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	// Columns first, straight from the mask
	for x := 0; x < m.W; x++ {
		for y := 0; y < m.H; y++ {
			f[y] = 0
			if m.At(x, y) {
				f[y] = edtInf
			}
		}
		squaredDistance1D(f[:m.H], d[:m.H], v, z)
		for y := 0; y < m.H; y++ {
			g.Set(x, y, d[y])
		}
	}

	// Then rows, over the column results
	capDist := math.Hypot(float64(m.W), float64(m.H))
	for y := 0; y < m.H; y++ {
		row := g.Row(y)
		copy(f, row)
		squaredDistance1D(f[:m.W], d[:m.W], v, z)
		for x := range row {
			if d[x] >= edtInf/2 {
				row[x] = capDist
			} else {
				row[x] = math.Sqrt(d[x])
			}
		}
	}

	return g
}

// squaredDistance1D computes d[q] = min_p((q-p)^2 + f[p]). v and z are scratch space.
func squaredDistance1D(f, d []float64, v []int, z []float64) {
	n := len(f)
	if n == 0 {
		return
	}

	k := 0
	v[0] = 0
	z[0], z[1] = math.Inf(-1), math.Inf(1)

	intersect := func(q, p int) float64 {
		fq, fp := float64(q), float64(p)
		return ((f[q] + fq*fq) - (f[p] + fp*fp)) / (2*fq - 2*fp)
	}

	for q := 1; q < n; q++ {
		s := intersect(q, v[k])
		for s <= z[k] {
			k--
			s = intersect(q, v[k])
		}
		k++
		v[k] = q
		z[k], z[k+1] = s, math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}
