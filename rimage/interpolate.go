package rimage

import "math"

// IsInBounds returns whether (x, y) can be interpolated, i.e. lies inside [0, w-1]x[0, h-1].
func (p *Plane[T]) IsInBounds(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= float64(p.width-1) && y <= float64(p.height-1)
}

// IsInFastBounds returns whether (x, y) can be interpolated without clamping any neighbor.
func (p *Plane[T]) IsInFastBounds(x, y float64) bool {
	return x >= 0 && y >= 0 && x < float64(p.width-1) && y < float64(p.height-1)
}

// Bilinear returns the bilinear interpolation at (x, y). The caller guarantees
// IsInBounds(x, y); neighbors past the last row or column are clamped onto it.
func (p *Plane[T]) Bilinear(x, y float64) float64 {
	xt := int(x)
	yt := int(y)
	ax := x - float64(xt)
	ay := y - float64(yt)

	x1 := xt + 1
	if x1 >= p.width {
		x1 = p.width - 1
	}
	y1 := yt + 1
	if y1 >= p.height {
		y1 = p.height - 1
	}

	return bilinear(
		float64(p.At(xt, yt)), float64(p.At(x1, yt)),
		float64(p.At(xt, y1)), float64(p.At(x1, y1)),
		ax, ay)
}

// BilinearFast is Bilinear without clamping. The caller guarantees IsInFastBounds(x, y).
func (p *Plane[T]) BilinearFast(x, y float64) float64 {
	xt := int(x)
	yt := int(y)
	ax := x - float64(xt)
	ay := y - float64(yt)

	i := p.kxy(xt, yt)
	return bilinear(
		float64(p.data[i]), float64(p.data[i+1]),
		float64(p.data[i+p.stride]), float64(p.data[i+p.stride+1]),
		ax, ay)
}

// BilinearOrNaN interpolates (x, y) or returns NaN when it is outside the plane.
func (p *Plane[T]) BilinearOrNaN(x, y float64) float64 {
	if !p.IsInBounds(x, y) {
		return math.NaN()
	}
	return p.Bilinear(x, y)
}

// IsRegionInBounds returns whether a regionWidth x regionHeight grid of samples with its top
// left sample at (tlX, tlY) stays inside the plane.
func (p *Plane[T]) IsRegionInBounds(tlX, tlY float64, regionWidth, regionHeight int) bool {
	return p.IsInBounds(tlX, tlY) &&
		p.IsInBounds(tlX+float64(regionWidth-1), tlY+float64(regionHeight-1))
}

// Region interpolates a regionWidth x regionHeight grid of samples spaced one pixel apart,
// starting at (tlX, tlY), into out in row major order. Every sample shares the same
// fractional offset so the weights are computed once. The caller guarantees
// IsRegionInBounds.
func (p *Plane[T]) Region(tlX, tlY float64, out []float64, regionWidth, regionHeight int) {
	xt := int(tlX)
	yt := int(tlY)
	ax := tlX - float64(xt)
	ay := tlY - float64(yt)

	w00 := (1 - ax) * (1 - ay)
	w10 := ax * (1 - ay)
	w01 := (1 - ax) * ay
	w11 := ax * ay

	for i := 0; i < regionHeight; i++ {
		y0 := yt + i
		y1 := y0 + 1
		if y1 >= p.height {
			y1 = p.height - 1
		}
		row0 := p.Row(y0)
		row1 := p.Row(y1)
		outRow := out[i*regionWidth : (i+1)*regionWidth]
		for j := range outRow {
			x0 := xt + j
			x1 := x0 + 1
			if x1 >= p.width {
				x1 = p.width - 1
			}
			outRow[j] = w00*float64(row0[x0]) + w10*float64(row0[x1]) +
				w01*float64(row1[x0]) + w11*float64(row1[x1])
		}
	}
}

func bilinear(v00, v10, v01, v11, ax, ay float64) float64 {
	return (1-ax)*(1-ay)*v00 + ax*(1-ay)*v10 + (1-ax)*ay*v01 + ax*ay*v11
}
