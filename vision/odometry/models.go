// Package odometry estimates the global 2D motion between frames from tracked point pairs.
package odometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// Transform maps a position of the previous frame to the current one.
type Transform interface {
	Apply(p r2.Point) r2.Point
	Params() []float64
	fmt.Stringer
}

// Translation2D shifts every point by the same vector.
type Translation2D struct {
	X, Y float64
}

// Apply returns p translated.
func (t *Translation2D) Apply(p r2.Point) r2.Point {
	return r2.Point{X: p.X + t.X, Y: p.Y + t.Y}
}

// Params returns (x, y).
func (t *Translation2D) Params() []float64 {
	return []float64{t.X, t.Y}
}

func (t *Translation2D) String() string {
	return fmt.Sprintf("translation(%.3f, %.3f)", t.X, t.Y)
}

// Affine2D is x' = A11*x + A12*y + Tx, y' = A21*x + A22*y + Ty.
type Affine2D struct {
	A11, A12, A21, A22 float64
	Tx, Ty             float64
}

// Apply returns p transformed.
func (a *Affine2D) Apply(p r2.Point) r2.Point {
	return r2.Point{
		X: a.A11*p.X + a.A12*p.Y + a.Tx,
		Y: a.A21*p.X + a.A22*p.Y + a.Ty,
	}
}

// Params returns the rows of the transform: (A11, A12, Tx, A21, A22, Ty).
func (a *Affine2D) Params() []float64 {
	return []float64{a.A11, a.A12, a.Tx, a.A21, a.A22, a.Ty}
}

func (a *Affine2D) String() string {
	return fmt.Sprintf("affine[%.4f %.4f %.3f; %.4f %.4f %.3f]", a.A11, a.A12, a.Tx, a.A21, a.A22, a.Ty)
}

// Homography2D is a projective transform of the plane, normalized so that H(2, 2) is 1.
type Homography2D struct {
	H *mat.Dense
}

// NewHomography2D returns the identity homography.
func NewHomography2D() *Homography2D {
	return &Homography2D{H: eye(3)}
}

// Apply returns p transformed. Points sent to infinity come back as NaN.
func (h *Homography2D) Apply(p r2.Point) r2.Point {
	w := h.H.At(2, 0)*p.X + h.H.At(2, 1)*p.Y + h.H.At(2, 2)
	if w == 0 {
		return r2.Point{X: math.NaN(), Y: math.NaN()}
	}
	return r2.Point{
		X: (h.H.At(0, 0)*p.X + h.H.At(0, 1)*p.Y + h.H.At(0, 2)) / w,
		Y: (h.H.At(1, 0)*p.X + h.H.At(1, 1)*p.Y + h.H.At(1, 2)) / w,
	}
}

// Params returns the entries of H in row-major order.
func (h *Homography2D) Params() []float64 {
	return mat.DenseCopyOf(h.H).RawMatrix().Data
}

func (h *Homography2D) String() string {
	return fmt.Sprintf("homography%.4g", h.Params())
}
