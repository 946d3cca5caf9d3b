package rimage

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"go.viam.com/klt/utils"
)

// PlaneFromImage converts img to gray and copies the intensities, in [0, 255], into a new plane.
func PlaneFromImage[T Pixel](img image.Image) *Plane[T] {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	out := NewPlane[T](bounds.Dx(), bounds.Dy())
	for y := 0; y < out.height; y++ {
		src := gray.Pix[y*gray.Stride:]
		dst := out.Row(y)
		for x := range dst {
			// imaging.Grayscale writes the same value to the three color channels.
			dst[x] = T(src[x*4])
		}
	}
	return out
}

// ToGray renders p as an 8 bit gray image, clamping values to [0, 255].
func ToGray[T Pixel](p *Plane[T]) *image.Gray {
	out := image.NewGray(p.Bounds())
	for y := 0; y < p.height; y++ {
		for x, v := range p.Row(y) {
			f := utils.ClampF64(float64(v), 0, 255)
			out.SetGray(x, y, color.Gray{Y: uint8(f + .5)})
		}
	}
	return out
}
