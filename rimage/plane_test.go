package rimage

import (
	"image"
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
)

func rampPlane(w, h int) *Plane[float32] {
	p := NewPlane[float32](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, float32(x+10*y))
		}
	}
	return p
}

func TestPlaneBasics(t *testing.T) {
	p := NewPlane[uint8](4, 3)
	test.That(t, p.Width(), test.ShouldEqual, 4)
	test.That(t, p.Height(), test.ShouldEqual, 3)
	test.That(t, p.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
	test.That(t, p.In(3, 2), test.ShouldBeTrue)
	test.That(t, p.In(4, 2), test.ShouldBeFalse)
	test.That(t, p.In(-1, 0), test.ShouldBeFalse)

	p.Set(1, 2, 7)
	test.That(t, p.At(1, 2), test.ShouldEqual, uint8(7))
	p.Fill(3)
	test.That(t, p.At(1, 2), test.ShouldEqual, uint8(3))

	_, err := NewPlaneFromData(2, 2, []int16{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	q, err := NewPlaneFromData(2, 2, []int16{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.At(1, 1), test.ShouldEqual, int16(4))

	f := ConvertPlane[float64](q)
	test.That(t, f.At(0, 1), test.ShouldEqual, 3.)
}

func TestSubPlane(t *testing.T) {
	p := rampPlane(10, 8)
	sub, err := p.SubPlane(image.Rect(2, 3, 7, 8))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sub.Width(), test.ShouldEqual, 5)
	test.That(t, sub.Height(), test.ShouldEqual, 5)
	test.That(t, sub.Stride(), test.ShouldEqual, 10)
	test.That(t, sub.At(0, 0), test.ShouldEqual, p.At(2, 3))
	test.That(t, sub.At(4, 4), test.ShouldEqual, p.At(6, 7))

	// views share pixels
	sub.Set(1, 1, -1)
	test.That(t, p.At(3, 4), test.ShouldEqual, float32(-1))

	clone := sub.Clone()
	test.That(t, clone.Stride(), test.ShouldEqual, 5)
	test.That(t, clone.At(4, 4), test.ShouldEqual, p.At(6, 7))

	_, err = p.SubPlane(image.Rect(5, 5, 11, 6))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = p.SubPlane(image.Rect(5, 5, 5, 6))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBilinear(t *testing.T) {
	p := rampPlane(10, 8)
	// a ramp is reproduced exactly by bilinear interpolation
	test.That(t, p.Bilinear(2.5, 3.25), test.ShouldAlmostEqual, 2.5+32.5)
	test.That(t, p.BilinearFast(2.5, 3.25), test.ShouldAlmostEqual, 2.5+32.5)
	test.That(t, p.Bilinear(9, 7), test.ShouldAlmostEqual, 79)
	test.That(t, p.Bilinear(9, 6.5), test.ShouldAlmostEqual, 74)

	test.That(t, p.IsInBounds(9, 7), test.ShouldBeTrue)
	test.That(t, p.IsInFastBounds(9, 7), test.ShouldBeFalse)
	test.That(t, p.IsInFastBounds(8.99, 6.99), test.ShouldBeTrue)
	test.That(t, p.IsInBounds(-0.01, 3), test.ShouldBeFalse)
	test.That(t, math.IsNaN(p.BilinearOrNaN(9.01, 3)), test.ShouldBeTrue)
}

func TestRegionMatchesPixels(t *testing.T) {
	p := NewPlane[uint8](12, 9)
	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			p.Set(x, y, uint8((x*37+y*91)%251))
		}
	}
	for _, tl := range [][2]float64{{0, 0}, {1.3, 2.6}, {7, 4}, {6.75, 3.5}} {
		test.That(t, p.IsRegionInBounds(tl[0], tl[1], 5, 5), test.ShouldBeTrue)
		out := make([]float64, 25)
		p.Region(tl[0], tl[1], out, 5, 5)
		for i := 0; i < 5; i++ {
			for j := 0; j < 5; j++ {
				test.That(t, out[i*5+j], test.ShouldAlmostEqual, p.Bilinear(tl[0]+float64(j), tl[1]+float64(i)), 1e-9)
			}
		}
	}
	test.That(t, p.IsRegionInBounds(7.5, 4, 5, 5), test.ShouldBeFalse)
}

func TestConvolveAndSobel(t *testing.T) {
	p := rampPlane(10, 8)
	dx := NewPlane[float32](10, 8)
	dy := NewPlane[float32](10, 8)
	test.That(t, SobelGradient(p, dx, dy), test.ShouldBeNil)
	// interior derivatives of the ramp are its slopes
	test.That(t, dx.At(4, 4), test.ShouldAlmostEqual, 1)
	test.That(t, dy.At(4, 4), test.ShouldAlmostEqual, 10)
	// the extended border halves the central difference at the edge
	test.That(t, dx.At(0, 4), test.ShouldAlmostEqual, 0.5)

	bad := NewPlane[float32](3, 3)
	test.That(t, SobelGradient(p, bad, dy), test.ShouldNotBeNil)

	_, err := NewKernel([][]float64{{1, 2}, {3}})
	test.That(t, err, test.ShouldNotBeNil)
	k, err := NewKernel([][]float64{{0, 1, 0}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, k.Size(), test.ShouldResemble, image.Point{3, 1})
	out := NewPlane[float64](10, 8)
	test.That(t, Convolve(p, k, 2, out), test.ShouldBeNil)
	test.That(t, out.At(3, 5), test.ShouldEqual, 2*float64(p.At(3, 5)))
}

func TestConvolveClampsIntegerOutput(t *testing.T) {
	p := rampPlane(10, 8)
	k, err := NewKernel([][]float64{{-1, 0, 1}})
	test.That(t, err, test.ShouldBeNil)

	// the kernel responds with 2 on the ramp
	down := NewPlane[uint8](10, 8)
	test.That(t, Convolve(p, k, -100, down), test.ShouldBeNil)
	test.That(t, down.At(4, 4), test.ShouldEqual, uint8(0))
	up := NewPlane[uint8](10, 8)
	test.That(t, Convolve(p, k, 1000, up), test.ShouldBeNil)
	test.That(t, up.At(4, 4), test.ShouldEqual, uint8(255))

	signed := NewPlane[int16](10, 8)
	test.That(t, Convolve(p, k, -1e6, signed), test.ShouldBeNil)
	test.That(t, signed.At(4, 4), test.ShouldEqual, int16(math.MinInt16))
	test.That(t, Convolve(p, k, 1e6, signed), test.ShouldBeNil)
	test.That(t, signed.At(4, 4), test.ShouldEqual, int16(math.MaxInt16))

	wide := NewPlane[uint16](10, 8)
	test.That(t, Convolve(p, k, 1e9, wide), test.ShouldBeNil)
	test.That(t, wide.At(4, 4), test.ShouldEqual, uint16(math.MaxUint16))

	test.That(t, saturate[uint8]()(math.NaN()), test.ShouldEqual, uint8(0))
	test.That(t, saturate[int32]()(-3.7), test.ShouldEqual, int32(-3))
	test.That(t, saturate[float32]()(-3.5), test.ShouldEqual, float32(-3.5))
	negative := NewPlane[float32](2, 1)
	negative.Fill(-4)
	test.That(t, ConvertPlane[uint8](negative).At(1, 0), test.ShouldEqual, uint8(0))
}

func TestGaussian(t *testing.T) {
	weights := GaussianKernel1D(1)
	test.That(t, len(weights), test.ShouldEqual, 7)
	sum := 0.
	for _, w := range weights {
		sum += w
	}
	test.That(t, sum, test.ShouldAlmostEqual, 1)
	test.That(t, weights[3], test.ShouldBeGreaterThan, weights[2])
	test.That(t, weights[2], test.ShouldAlmostEqual, weights[4])

	test.That(t, makeRangeArray(4), test.ShouldResemble, []int{-2, -1, 0, 1})
	test.That(t, makeRangeArray(3), test.ShouldResemble, []int{-1, 0, 1})

	flat := NewPlane[float64](9, 9)
	flat.Fill(42)
	blurred, err := GaussianBlur(flat, 1.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, blurred.At(0, 0), test.ShouldAlmostEqual, 42)
	test.That(t, blurred.At(4, 4), test.ShouldAlmostEqual, 42)

	spike := NewPlane[float64](9, 9)
	spike.Set(4, 4, 100)
	blurred, err = GaussianBlur(spike, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, blurred.At(4, 4), test.ShouldBeLessThan, 100)
	test.That(t, blurred.At(4, 4), test.ShouldBeGreaterThan, blurred.At(5, 4))
	test.That(t, blurred.At(3, 4), test.ShouldAlmostEqual, blurred.At(5, 4))
}

func TestPlaneFromImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*40 + y)})
		}
	}
	p := PlaneFromImage[float32](img)
	test.That(t, p.Width(), test.ShouldEqual, 5)
	test.That(t, p.Height(), test.ShouldEqual, 4)
	test.That(t, p.At(3, 2), test.ShouldEqual, float32(122))

	back := ToGray(p)
	test.That(t, back.GrayAt(3, 2).Y, test.ShouldEqual, uint8(122))
}
