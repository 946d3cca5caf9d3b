package klt

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/klt/rimage"
)

// ErrShapeMismatch is returned when an image and its derivatives have different sizes.
var ErrShapeMismatch = errors.New("image and derivatives must have the same shape")

// Tracker tracks features on a single image. It keeps scratch state between calls, so one
// Tracker must not be used from several goroutines at once.
type Tracker[I, D rimage.Pixel] struct {
	cfg Config

	image  *rimage.Plane[I]
	derivX *rimage.Plane[D]
	derivY *rimage.Plane[D]

	// gradient covariance and residual times gradient of the current iteration
	gxx, gyy, gxy float64
	ex, ey        float64

	// samples of the window in the current image
	current []float64

	// window geometry of the feature being processed
	radius int
	width  int
	length int

	// usable region of the image, after removing the forbidden border
	minX, minY float64
	maxX, maxY float64
}

// NewTracker returns a tracker for the given configuration.
func NewTracker[I, D rimage.Pixel](cfg Config) (*Tracker[I, D], error) {
	if err := cfg.Validate("klt"); err != nil {
		return nil, err
	}
	return &Tracker[I, D]{cfg: cfg}, nil
}

// Config returns the configuration of the tracker.
func (t *Tracker[I, D]) Config() Config {
	return t.cfg
}

// SetImage binds the image features are described on or tracked to. The planes are only read.
func (t *Tracker[I, D]) SetImage(img *rimage.Plane[I], derivX, derivY *rimage.Plane[D]) error {
	if img == nil || derivX == nil || derivY == nil {
		return errors.New("image and derivatives are required")
	}
	if !derivX.SameShape(img.Width(), img.Height()) || !derivY.SameShape(img.Width(), img.Height()) {
		return errors.Wrapf(ErrShapeMismatch, "image is %dx%d, derivatives are %dx%d and %dx%d",
			img.Width(), img.Height(), derivX.Width(), derivX.Height(), derivY.Width(), derivY.Height())
	}
	t.image = img
	t.derivX = derivX
	t.derivY = derivY

	fb := float64(t.cfg.ForbiddenBorder)
	t.minX = fb
	t.minY = fb
	t.maxX = float64(img.Width()-1) - fb
	t.maxY = float64(img.Height()-1) - fb
	return nil
}

func (t *Tracker[I, D]) setWindow(f *Feature) {
	t.radius = f.Radius
	t.width = f.Width()
	t.length = f.Length()
	if cap(t.current) < t.length {
		t.current = make([]float64, t.length)
	}
	t.current = t.current[:t.length]
}

// IsFullyInside returns whether the whole window of f, centered on (x, y), lies in the usable
// region of the image.
func (t *Tracker[I, D]) IsFullyInside(f *Feature, x, y float64) bool {
	r := float64(f.Radius)
	return x-r >= t.minX && x+r <= t.maxX && y-r >= t.minY && y+r <= t.maxY
}

// IsFullyOutside returns whether the window of f, centered on (x, y), does not overlap the
// usable region of the image.
func (t *Tracker[I, D]) IsFullyOutside(f *Feature, x, y float64) bool {
	r := float64(f.Radius)
	return x+r < t.minX || x-r > t.maxX || y+r < t.minY || y-r > t.maxY
}

// IsDescriptionComplete returns whether every sample of the description is present.
func (t *Tracker[I, D]) IsDescriptionComplete(f *Feature) bool {
	for _, v := range f.Desc {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func (t *Tracker[I, D]) isValid(x, y float64) bool {
	return x >= t.minX && x <= t.maxX && y >= t.minY && y <= t.maxY
}

// SetDescription samples the window of f from the bound image. It returns false when the
// window is entirely outside the usable region or when its gradient covariance is too weak to
// track.
func (t *Tracker[I, D]) SetDescription(f *Feature) bool {
	t.setWindow(f)
	if t.IsFullyOutside(f, f.X, f.Y) {
		return false
	}
	if t.IsFullyInside(f, f.X, f.Y) {
		return t.internalSetDescription(f)
	}
	return t.internalSetDescriptionBorder(f)
}

func (t *Tracker[I, D]) internalSetDescription(f *Feature) bool {
	tlX := f.X - float64(f.Radius)
	tlY := f.Y - float64(f.Radius)

	t.image.Region(tlX, tlY, f.Desc, t.width, t.width)
	t.derivX.Region(tlX, tlY, f.DerivX, t.width, t.width)
	t.derivY.Region(tlX, tlY, f.DerivY, t.width, t.width)

	var gxx, gyy, gxy float64
	for i := 0; i < t.length; i++ {
		dX := f.DerivX[i]
		dY := f.DerivY[i]
		gxx += dX * dX
		gyy += dY * dY
		gxy += dX * dY
	}
	f.Gxx, f.Gyy, f.Gxy = gxx, gyy, gxy

	return gxx*gyy-gxy*gxy >= t.cfg.MinDeterminant*float64(t.length)
}

func (t *Tracker[I, D]) internalSetDescriptionBorder(f *Feature) bool {
	total := 0
	var gxx, gyy, gxy float64
	i := 0
	for y := 0; y < t.width; y++ {
		pixelY := f.Y - float64(f.Radius) + float64(y)
		for x := 0; x < t.width; x, i = x+1, i+1 {
			pixelX := f.X - float64(f.Radius) + float64(x)
			if !t.isValid(pixelX, pixelY) {
				f.Desc[i] = math.NaN()
				f.DerivX[i] = 0
				f.DerivY[i] = 0
				continue
			}
			var value, dX, dY float64
			if t.image.IsInFastBounds(pixelX, pixelY) {
				value = t.image.BilinearFast(pixelX, pixelY)
				dX = t.derivX.BilinearFast(pixelX, pixelY)
				dY = t.derivY.BilinearFast(pixelX, pixelY)
			} else {
				value = t.image.Bilinear(pixelX, pixelY)
				dX = t.derivX.Bilinear(pixelX, pixelY)
				dY = t.derivY.Bilinear(pixelX, pixelY)
			}
			total++
			f.Desc[i] = value
			f.DerivX[i] = dX
			f.DerivY[i] = dY

			gxx += dX * dX
			gyy += dY * dY
			gxy += dX * dY
		}
	}
	f.Gxx, f.Gyy, f.Gxy = gxx, gyy, gxy

	if total == 0 {
		return false
	}
	return gxx*gyy-gxy*gxy >= t.cfg.MinDeterminant*float64(total)
}

// Track moves f to where its description best matches the bound image, starting from its
// current position. On any result other than Success the position of f is left unchanged.
func (t *Tracker[I, D]) Track(f *Feature) TrackFault {
	origX, origY := f.X, f.Y
	fault := t.track(f, origX, origY)
	if fault != Success {
		f.X, f.Y = origX, origY
	}
	return fault
}

func (t *Tracker[I, D]) track(f *Feature, origX, origY float64) TrackFault {
	t.setWindow(f)
	if t.IsFullyOutside(f, f.X, f.Y) {
		return OutOfBounds
	}

	complete := t.IsDescriptionComplete(f)
	if complete && f.Gxx*f.Gyy-f.Gxy*f.Gxy < t.cfg.MinDeterminant*float64(t.length) {
		return Failed
	}

	maxDrift := t.cfg.DriftTolerance * float64(t.width)
	for iter := 0; iter < t.cfg.MaxIterations; iter++ {
		if complete && t.IsFullyInside(f, f.X, f.Y) {
			t.gxx, t.gyy, t.gxy = f.Gxx, f.Gyy, f.Gxy
			t.computeE(f)
		} else {
			total := t.computeGAndEBorder(f)
			det := t.gxx*t.gyy - t.gxy*t.gxy
			if total == 0 || det < t.cfg.MinDeterminant*float64(total) {
				return Failed
			}
		}

		det := t.gxx*t.gyy - t.gxy*t.gxy
		dx := (t.gyy*t.ex - t.gxy*t.ey) / det
		dy := (t.gxx*t.ey - t.gxy*t.ex) / det

		f.X += dx
		f.Y += dy

		if t.IsFullyOutside(f, f.X, f.Y) {
			return OutOfBounds
		}
		if maxDrift > 0 && (math.Abs(f.X-origX) > maxDrift || math.Abs(f.Y-origY) > maxDrift) {
			return Drifted
		}
		if math.Abs(dx) < t.cfg.MinPositionDelta && math.Abs(dy) < t.cfg.MinPositionDelta {
			break
		}
	}

	if t.computeError(f) > t.cfg.MaxPerPixelError {
		return LargeError
	}
	return Success
}

// computeE samples the window at the feature position with the rectangle interpolator. The
// window must be fully inside.
func (t *Tracker[I, D]) computeE(f *Feature) {
	t.image.Region(f.X-float64(f.Radius), f.Y-float64(f.Radius), t.current, t.width, t.width)

	t.ex, t.ey = 0, 0
	for i := 0; i < t.length; i++ {
		d := f.Desc[i] - t.current[i]
		t.ex += d * f.DerivX[i]
		t.ey += d * f.DerivY[i]
	}
}

// computeGAndEBorder samples the window one pixel at a time and accumulates G and E over the
// samples valid in both the description and the current image. It returns how many there were.
func (t *Tracker[I, D]) computeGAndEBorder(f *Feature) int {
	total := 0
	t.gxx, t.gyy, t.gxy = 0, 0, 0
	t.ex, t.ey = 0, 0

	i := 0
	for y := 0; y < t.width; y++ {
		pixelY := f.Y - float64(f.Radius) + float64(y)
		for x := 0; x < t.width; x, i = x+1, i+1 {
			pixelX := f.X - float64(f.Radius) + float64(x)
			if math.IsNaN(f.Desc[i]) || !t.isValid(pixelX, pixelY) {
				t.current[i] = math.NaN()
				continue
			}
			var value float64
			if t.image.IsInFastBounds(pixelX, pixelY) {
				value = t.image.BilinearFast(pixelX, pixelY)
			} else {
				value = t.image.Bilinear(pixelX, pixelY)
			}
			t.current[i] = value
			total++

			dX := f.DerivX[i]
			dY := f.DerivY[i]
			d := f.Desc[i] - value
			t.ex += d * dX
			t.ey += d * dY
			t.gxx += dX * dX
			t.gyy += dY * dY
			t.gxy += dX * dY
		}
	}
	return total
}

// computeError is the mean absolute difference between the description and the samples of the
// last iteration.
func (t *Tracker[I, D]) computeError(f *Feature) float64 {
	var sum float64
	total := 0
	for i := 0; i < t.length; i++ {
		if math.IsNaN(f.Desc[i]) || math.IsNaN(t.current[i]) {
			continue
		}
		sum += math.Abs(f.Desc[i] - t.current[i])
		total++
	}
	if total == 0 {
		return math.Inf(1)
	}
	return sum / float64(total)
}
