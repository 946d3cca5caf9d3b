package odometry

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

const degenerateTol = 1e-12

// normalizePoints moves the centroid of pts to the origin and scales them to a mean distance of
// sqrt(2), as described in Multiple View Geometry, Alg 4.2. It returns the normalized points
// with the transform and its inverse, or false when every point is the same.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, *mat.Dense, bool) {
	var mu r2.Point
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1 / float64(len(pts)))

	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm()
	}
	d /= float64(len(pts))
	if d < degenerateTol {
		return nil, nil, nil, false
	}
	scale := math.Sqrt2 / d

	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	inv := mat.NewDense(3, 3, []float64{
		1 / scale, 0, mu.X,
		0, 1 / scale, mu.Y,
		0, 0, 1,
	})
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = pt.Sub(mu).Mul(scale)
	}
	return out, t, inv, true
}

// estimateHomography solves curr ~ H prev from at least four correspondences.
func estimateHomography(prev, curr []r2.Point) (*mat.Dense, bool) {
	p1, t1, _, ok := normalizePoints(prev)
	if !ok {
		return nil, false
	}
	p2, _, t2Inv, ok := normalizePoints(curr)
	if !ok {
		return nil, false
	}

	rows := 2 * len(p1)
	if rows < 9 {
		// pad with a zero row so the null space is the last right singular vector
		rows = 9
	}
	a := mat.NewDense(rows, 9, nil)
	for i := range p1 {
		x, y := p1[i].X, p1[i].Y
		u, v := p2[i].X, p2[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, false
	}
	values := svd.Values(nil)
	// a second null vector means the points do not pin down a homography
	if values[7] < degenerateTol*values[0] {
		return nil, false
	}
	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	// denormalize: H = T2^-1 Hn T1
	var h mat.Dense
	h.Mul(t2Inv, hn)
	h.Mul(&h, t1)
	if math.Abs(h.At(2, 2)) < degenerateTol {
		return nil, false
	}
	h.Scale(1/h.At(2, 2), &h)
	if math.Abs(mat.Det(&h)) < degenerateTol {
		return nil, false
	}
	return &h, true
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
