package emath

// Affine and projective 3x3 transforms, used to place images onto a shared canvas.

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64" // Will be "image/math/f64" at some point, hopefully make this file redundant
	"gonum.org/v1/gonum/mat"
)

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3) Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0, 0, 1, 0}
}

func (m1 Aff3) Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx, 0, 1, ty})
}

func (m1 Aff3) Rotate(thetaDeg float64) Aff3 {
	cosTheta := math.Cos(thetaDeg * math.Pi / 180.0)
	sinTheta := math.Sin(thetaDeg * math.Pi / 180.0)
	return m1.Mult(Aff3{cosTheta, -1 * sinTheta, 0, sinTheta, cosTheta, 0})
}

func (m1 Aff3) Scale(s float64) Aff3 {
	return m1.Mult(Aff3{s, 0, 0, 0, s, 0})
}

func RotateAbout(thetaDeg, x, y float64) Aff3 {
	// Remember they compose back to front - rightmost operations performed first
	return Identity().Translate(x, y).Rotate(thetaDeg).Translate(-1*x, -1*y)
}

// ToMat3 lifts the affine transform into a full homography.
func (a Aff3) ToMat3() Mat3 {
	return Mat3{
		a[0], a[1], a[2],
		a[3], a[4], a[5],
		0, 0, 1,
	}
}

// Actual 3x3 matrixes. A Mat3 used as a homography maps homogeneous
// pixel coords [x, y, 1] from one image into another; row-major.
type Vec3 f64.Vec3
type Mat3 f64.Mat3

func Identity3() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func Translation(tx, ty float64) Mat3 {
	return Mat3{1, 0, tx, 0, 1, ty, 0, 0, 1}
}

// NewMat3 builds a Mat3 from nine row-major values, as found in job files.
func NewMat3(vals []float64) (Mat3, error) {
	if len(vals) != 9 {
		return Mat3{}, fmt.Errorf("homography needs 9 values, got %d", len(vals))
	}
	var m Mat3
	copy(m[:], vals)
	return m, nil
}

func (a Mat3) Mult(b Mat3) Mat3 {
	return Mat3{
		a[3*0+0]*b[3*0+0] + a[3*0+1]*b[3*1+0] + a[3*0+2]*b[3*2+0],
		a[3*0+0]*b[3*0+1] + a[3*0+1]*b[3*1+1] + a[3*0+2]*b[3*2+1],
		a[3*0+0]*b[3*0+2] + a[3*0+1]*b[3*1+2] + a[3*0+2]*b[3*2+2],

		a[3*1+0]*b[3*0+0] + a[3*1+1]*b[3*1+0] + a[3*1+2]*b[3*2+0],
		a[3*1+0]*b[3*0+1] + a[3*1+1]*b[3*1+1] + a[3*1+2]*b[3*2+1],
		a[3*1+0]*b[3*0+2] + a[3*1+1]*b[3*1+2] + a[3*1+2]*b[3*2+2],

		a[3*2+0]*b[3*0+0] + a[3*2+1]*b[3*1+0] + a[3*2+2]*b[3*2+0],
		a[3*2+0]*b[3*0+1] + a[3*2+1]*b[3*1+1] + a[3*2+2]*b[3*2+1],
		a[3*2+0]*b[3*0+2] + a[3*2+1]*b[3*1+2] + a[3*2+2]*b[3*2+2],
	}
}

// Compose returns a·b, i.e. "apply b, then a".
func Compose(a, b Mat3) Mat3 { return a.Mult(b) }

func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		(m[3*0+0]*v[0] + m[3*0+1]*v[1] + m[3*0+2]*v[2]),
		(m[3*1+0]*v[0] + m[3*1+1]*v[1] + m[3*1+2]*v[2]),
		(m[3*2+0]*v[0] + m[3*2+1]*v[1] + m[3*2+2]*v[2]),
	}
}

// Project applies the homography to a pixel position, returning the
// dehomogenized position and the homogeneous w it was divided by.
func (m Mat3) Project(x, y float64) (float64, float64, float64) {
	v := m.Apply(Vec3{x, y, 1})
	return v[0] / v[2], v[1] / v[2], v[2]
}

func (m Mat3) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]})
}

// Det returns the determinant, scaled so that it doesn't depend on the
// (arbitrary) scale of the homography. The scale comes from the linear and
// perspective entries only; translations can be any size without making
// the matrix any closer to singular.
func (m Mat3) Det() float64 {
	maxAbs := 0.0
	for _, i := range []int{0, 1, 3, 4, 6, 7, 8} {
		maxAbs = math.Max(maxAbs, math.Abs(m[i]))
	}
	if maxAbs == 0 {
		return 0
	}
	return mat.Det(m.dense()) / (maxAbs * maxAbs * maxAbs)
}

// Inverse fails with ErrDegenerate if the matrix is singular, or too
// close to it for the inverse to be trusted.
func (m Mat3) Inverse() (Mat3, error) {
	if det := m.Det(); math.Abs(det) < DetEpsilon || math.IsNaN(det) {
		return Mat3{}, fmt.Errorf("%w: det=%g", ErrDegenerate, det)
	}

	var inv mat.Dense
	if err := inv.Inverse(m.dense()); err != nil {
		return Mat3{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	var out Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = inv.At(r, c)
		}
	}
	return out, nil
}

func (m Mat3) String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*0+0], m[3*0+1], m[3*0+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*1+0], m[3*1+1], m[3*1+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*2+0], m[3*2+1], m[3*2+2])
	return str
}
func (v Vec3) String() string {
	return fmt.Sprintf("[%12.10f, %12.10f, %12.10f]", v[0], v[1], v[2])
}
