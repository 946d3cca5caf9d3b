package odometry

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/klt/vision/tracking"
)

// TransferDistance is how far the transformed previous position of a pair lands from its
// current position.
type TransferDistance[M Transform] struct {
	model M
}

// SetModel sets the transform distances are measured with.
func (d *TransferDistance[M]) SetModel(model M) {
	d.model = model
}

// ComputeDistance returns |model(prev) - curr|, +Inf when the transform is undefined at prev.
func (d *TransferDistance[M]) ComputeDistance(pair tracking.AssociatedPair) float64 {
	dist := d.model.Apply(pair.Prev).Sub(pair.Curr).Norm()
	if math.IsNaN(dist) {
		return math.Inf(1)
	}
	return dist
}

// TranslationFitter fits the mean displacement of the pairs.
type TranslationFitter struct{}

// NewModel allocates a translation.
func (TranslationFitter) NewModel() *Translation2D { return &Translation2D{} }

// MinimumPoints is 1.
func (TranslationFitter) MinimumPoints() int { return 1 }

// FitModel fits found to data.
func (TranslationFitter) FitModel(data []tracking.AssociatedPair, _, found *Translation2D) bool {
	if len(data) == 0 {
		return false
	}
	var sum r2.Point
	for _, pair := range data {
		sum = sum.Add(pair.Curr.Sub(pair.Prev))
	}
	mean := sum.Mul(1 / float64(len(data)))
	found.X, found.Y = mean.X, mean.Y
	return true
}

// AffineFitter fits an affine transform in the least squares sense.
type AffineFitter struct{}

// NewModel allocates an affine transform.
func (AffineFitter) NewModel() *Affine2D { return &Affine2D{} }

// MinimumPoints is 3.
func (AffineFitter) MinimumPoints() int { return 3 }

// FitModel fits found to data. It fails on degenerate configurations such as collinear points.
func (AffineFitter) FitModel(data []tracking.AssociatedPair, _, found *Affine2D) bool {
	if len(data) < 3 {
		return false
	}
	// unknowns (A11, A12, Tx, A21, A22, Ty)
	a := mat.NewDense(2*len(data), 6, nil)
	b := mat.NewDense(2*len(data), 1, nil)
	for i, pair := range data {
		a.SetRow(2*i, []float64{pair.Prev.X, pair.Prev.Y, 1, 0, 0, 0})
		a.SetRow(2*i+1, []float64{0, 0, 0, pair.Prev.X, pair.Prev.Y, 1})
		b.Set(2*i, 0, pair.Curr.X)
		b.Set(2*i+1, 0, pair.Curr.Y)
	}
	var qr mat.QR
	qr.Factorize(a)
	var x mat.Dense
	if err := qr.SolveTo(&x, false, b); err != nil {
		return false
	}
	found.A11, found.A12, found.Tx = x.At(0, 0), x.At(1, 0), x.At(2, 0)
	found.A21, found.A22, found.Ty = x.At(3, 0), x.At(4, 0), x.At(5, 0)
	return true
}

// HomographyFitter fits a homography with the normalized direct linear transform.
type HomographyFitter struct{}

// NewModel allocates a homography.
func (HomographyFitter) NewModel() *Homography2D { return NewHomography2D() }

// MinimumPoints is 4.
func (HomographyFitter) MinimumPoints() int { return 4 }

// FitModel fits found to data.
func (HomographyFitter) FitModel(data []tracking.AssociatedPair, _, found *Homography2D) bool {
	if len(data) < 4 {
		return false
	}
	prev := make([]r2.Point, len(data))
	curr := make([]r2.Point, len(data))
	for i, pair := range data {
		prev[i], curr[i] = pair.Prev, pair.Curr
	}
	h, ok := estimateHomography(prev, curr)
	if !ok {
		return false
	}
	found.H = h
	return true
}
