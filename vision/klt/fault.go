package klt

import "fmt"

// TrackFault is the outcome of tracking a feature.
type TrackFault int

const (
	// Success means the feature was found in the new image.
	Success TrackFault = iota
	// OutOfBounds means the window left the usable part of the image.
	OutOfBounds
	// LargeError means the tracker converged on a patch that does not look like the feature.
	LargeError
	// Failed means the gradient covariance was too ill-conditioned to solve for a step.
	Failed
	// Drifted means the feature moved further than its window can plausibly follow, which
	// happens on poorly textured patches.
	Drifted
)

func (f TrackFault) String() string {
	switch f {
	case Success:
		return "SUCCESS"
	case OutOfBounds:
		return "OUT_OF_BOUNDS"
	case LargeError:
		return "LARGE_ERROR"
	case Failed:
		return "FAILED"
	case Drifted:
		return "DRIFTED"
	default:
		return fmt.Sprintf("TrackFault(%d)", int(f))
	}
}
