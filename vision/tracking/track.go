package tracking

import (
	"github.com/golang/geo/r2"

	"go.viam.com/klt/vision/klt"
)

// Track is a feature followed across frames. Positions are full resolution coordinates.
type Track struct {
	ID int64
	// Position is where the feature is in the latest frame.
	Position r2.Point
	// Prev is where the feature was in the frame before.
	Prev r2.Point
	// Tracked is true when the feature was tracked into the latest frame rather than spawned
	// or added in it.
	Tracked bool

	feature *klt.PyramidFeature
	// stale is set when a cancelled Process skipped the track, so its feature still refers to
	// the frame before the reference one.
	stale bool
}

// AssociatedPair links the positions of a track in two consecutive frames.
type AssociatedPair struct {
	ID   int64
	Prev r2.Point
	Curr r2.Point
}

// Pair returns the association of the track between the previous and the latest frame.
func (t *Track) Pair() AssociatedPair {
	return AssociatedPair{ID: t.ID, Prev: t.Prev, Curr: t.Position}
}
