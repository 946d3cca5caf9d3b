package rimage

import (
	"math"

	"go.viam.com/klt/utils"
)

// Helper function for convolving matrices together, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset within the image.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	span := length / 2
	for i := range rangeArray {
		rangeArray[i] = i - span
	}
	return rangeArray
}

// GaussianFunction1D takes in a sigma and returns a gaussian function useful for weighing averages or blurring.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		return math.Exp(-0.5*math.Pow(p, 2)/math.Pow(sigma, 2)) / (sigma * math.Sqrt(2.*math.Pi))
	}
}

// GaussianKernel1D returns a normalized 1D gaussian kernel covering three sigma on each side.
func GaussianKernel1D(sigma float64) []float64 {
	gaus := GaussianFunction1D(sigma)
	k := utils.MaxInt(3, 1+2*int(math.Ceil(3.*sigma)))
	weights := make([]float64, k)
	sum := 0.
	for i, x := range makeRangeArray(k) {
		weights[i] = gaus(float64(x))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// GaussianBlur returns img blurred by a separable gaussian of the given sigma. The border is
// extended. A non-positive sigma returns a copy.
func GaussianBlur[T Pixel](img *Plane[T], sigma float64) (*Plane[T], error) {
	if sigma <= 0 {
		return img.Clone(), nil
	}
	weights := GaussianKernel1D(sigma)
	horizontal := Kernel{Content: [][]float64{weights}, Width: len(weights), Height: 1}
	vertical := Kernel{Content: make([][]float64, len(weights)), Width: 1, Height: len(weights)}
	for i, v := range weights {
		vertical.Content[i] = []float64{v}
	}

	tmp := NewPlane[float64](img.Width(), img.Height())
	if err := Convolve(img, horizontal, 1, tmp); err != nil {
		return nil, err
	}
	out := NewPlane[T](img.Width(), img.Height())
	if err := Convolve(tmp, vertical, 1, out); err != nil {
		return nil, err
	}
	return out, nil
}
