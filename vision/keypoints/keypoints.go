// Package keypoints contains corner detection used to pick features worth tracking. For now:
// - Shi-Tomasi corners
package keypoints

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"
)

type (
	// Corner is a candidate feature location along with its corner intensity.
	Corner struct {
		X, Y      int
		Intensity float64
	}
	// Corners is a set of corners, sorted by decreasing intensity when returned by a Detector.
	Corners []Corner
)

// Points returns the locations of the corners.
func (cs Corners) Points() []image.Point {
	return lo.Map(cs, func(c Corner, _ int) image.Point {
		return image.Point{c.X, c.Y}
	})
}

// RescaleCorners converts corner locations found on a pyramid level with the given scale factor
// into full resolution coordinates.
func RescaleCorners(corners Corners, scale float64) []r2.Point {
	return lo.Map(corners, func(c Corner, _ int) r2.Point {
		return r2.Point{X: float64(c.X) * scale, Y: float64(c.Y) * scale}
	})
}
