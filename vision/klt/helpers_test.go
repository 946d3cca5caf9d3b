package klt

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/klt/rimage"
)

type imageFunc func(x, y float64) float64

// texture is smooth and has gradients in every direction everywhere.
func texture(x, y float64) float64 {
	return 110 +
		40*math.Sin(0.3*x+0.2*y) +
		35*math.Cos(0.25*y-0.15*x) +
		25*math.Sin(0.17*x)*math.Cos(0.21*y)
}

// shifted returns f translated by (tx, ty): a point at (x, y) in f is at (x+tx, y+ty).
func shifted(f imageFunc, tx, ty float64) imageFunc {
	return func(x, y float64) float64 {
		return f(x-tx, y-ty)
	}
}

func render(f imageFunc, w, h int) *rimage.Plane[float32] {
	p := rimage.NewPlane[float32](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, float32(f(float64(x), float64(y))))
		}
	}
	return p
}

func gradients(t *testing.T, img *rimage.Plane[float32]) (*rimage.Plane[float32], *rimage.Plane[float32]) {
	t.Helper()
	dx := rimage.NewPlane[float32](img.Width(), img.Height())
	dy := rimage.NewPlane[float32](img.Width(), img.Height())
	test.That(t, rimage.SobelGradient(img, dx, dy), test.ShouldBeNil)
	return dx, dy
}

func boundTracker(t *testing.T, cfg Config, img *rimage.Plane[float32]) *Tracker[float32, float32] {
	t.Helper()
	tracker, err := NewTracker[float32, float32](cfg)
	test.That(t, err, test.ShouldBeNil)
	bind(t, tracker, img)
	return tracker
}

func bind(t *testing.T, tracker *Tracker[float32, float32], img *rimage.Plane[float32]) {
	t.Helper()
	dx, dy := gradients(t, img)
	test.That(t, tracker.SetImage(img, dx, dy), test.ShouldBeNil)
}

func describedAt(t *testing.T, tracker *Tracker[float32, float32], x, y float64, radius int) *Feature {
	t.Helper()
	f := NewFeature(radius)
	f.SetPosition(x, y)
	test.That(t, tracker.SetDescription(f), test.ShouldBeTrue)
	return f
}
