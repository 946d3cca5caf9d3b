package rimage

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"go.viam.com/klt/utils"
)

// Kernel is a convolution matrix.
type Kernel struct {
	Content [][]float64
	Width   int
	Height  int
}

// NewKernel returns a kernel with the given content. Every row must have the same length.
func NewKernel(content [][]float64) (Kernel, error) {
	if len(content) == 0 || len(content[0]) == 0 {
		return Kernel{}, errors.New("kernel cannot be empty")
	}
	for _, row := range content {
		if len(row) != len(content[0]) {
			return Kernel{}, errors.New("kernel rows must have the same length")
		}
	}
	return Kernel{Content: content, Width: len(content[0]), Height: len(content)}, nil
}

// At returns the kernel weight at column x and row y.
func (k Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Size returns the kernel dimensions.
func (k Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// GetSobelX returns the Kernel corresponding to the Sobel kernel in the x direction.
func GetSobelX() Kernel {
	return Kernel{
		[][]float64{
			{-1, 0, 1},
			{-2, 0, 2},
			{-1, 0, 1},
		},
		3,
		3,
	}
}

// GetSobelY returns the Kernel corresponding to the Sobel kernel in the y direction.
func GetSobelY() Kernel {
	return Kernel{
		[][]float64{
			{-1, -2, -1},
			{0, 0, 0},
			{1, 2, 1},
		},
		3,
		3,
	}
}

// Convolve applies kernel to img centered on each pixel, multiplies the sum by scale and writes
// it into out. Pixels outside img are replaced by the nearest border pixel. Results outside the
// range of an integer output type are clamped. Rows are processed in parallel.
func Convolve[I, O Pixel](img *Plane[I], kernel Kernel, scale float64, out *Plane[O]) error {
	if !out.SameShape(img.Width(), img.Height()) {
		return errors.Errorf("output is %dx%d but input is %dx%d", out.Width(), out.Height(), img.Width(), img.Height())
	}
	w, h := img.Width(), img.Height()
	offX := kernel.Width / 2
	offY := kernel.Height / 2
	convert := saturate[O]()

	return utils.GroupWorkParallel(
		context.Background(),
		h,
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, y int) {
				dst := out.Row(y)
				for x := 0; x < w; x++ {
					sum := 0.
					for ky := 0; ky < kernel.Height; ky++ {
						sy := clampInt(y+ky-offY, 0, h-1)
						src := img.Row(sy)
						for kx := 0; kx < kernel.Width; kx++ {
							kE := kernel.At(kx, ky)
							if kE == 0 {
								continue
							}
							sx := clampInt(x+kx-offX, 0, w-1)
							sum += float64(src[sx]) * kE
						}
					}
					dst[x] = convert(sum * scale)
				}
			}, nil
		},
	)
}

// GradientFunc computes the x and y derivative planes of img.
type GradientFunc[I, D Pixel] func(img *Plane[I], dx, dy *Plane[D]) error

// sobelScale normalizes the Sobel response so that a ramp with slope s has derivative s.
const sobelScale = 1. / 8.

// SobelGradient computes intensity derivatives with the Sobel operator, extending the border.
func SobelGradient[I, D Pixel](img *Plane[I], dx, dy *Plane[D]) error {
	if err := Convolve(img, GetSobelX(), sobelScale, dx); err != nil {
		return errors.Wrap(err, "x derivative")
	}
	if err := Convolve(img, GetSobelY(), sobelScale, dy); err != nil {
		return errors.Wrap(err, "y derivative")
	}
	return nil
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
