package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// formats accepted besides the standard library ones
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"go.viam.com/klt/logging"
	"go.viam.com/klt/rimage"
	rutils "go.viam.com/klt/utils"
	"go.viam.com/klt/vision/keypoints"
	"go.viam.com/klt/vision/klt"
	"go.viam.com/klt/vision/odometry"
	"go.viam.com/klt/vision/pyramid"
	"go.viam.com/klt/vision/tracking"
)

// frameResult summarizes the processing of one frame.
type frameResult struct {
	Index   int
	Path    string
	Tracked int
	Spawned int
	Dropped int
	Active  int
	// Motion is nil for the first frame or when it could not be estimated.
	Motion  *odometry.Motion
	Elapsed time.Duration
}

// loadFrames decodes every frame into a gray plane, concurrently.
func loadFrames(ctx context.Context, paths []string) ([]*rimage.Plane[float32], error) {
	if len(paths) == 0 {
		return nil, errors.New("no frames")
	}
	frames := make([]*rimage.Plane[float32], len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rutils.ParallelFactor)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := imaging.Open(path)
			if err != nil {
				return errors.Wrapf(err, "cannot load frame %q", path)
			}
			frames[i] = rimage.PlaneFromImage[float32](img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, frame := range frames[1:] {
		if !frame.SameShape(frames[0].Width(), frames[0].Height()) {
			return nil, errors.Errorf("frame %q is %v but %q is %v", paths[i+1], frame.Bounds().Size(), paths[0], frames[0].Bounds().Size())
		}
	}
	return frames, nil
}

// runTrack tracks features through the frames at paths and estimates the motion between every
// two consecutive frames.
func runTrack(ctx context.Context, cfg trackConfig, paths []string, clk clock.Clock, logger logging.Logger) ([]frameResult, error) {
	frames, err := loadFrames(ctx, paths)
	if err != nil {
		return nil, err
	}
	builder, err := pyramid.NewDiscreteBuilder[float32](cfg.scales(), cfg.Sigma)
	if err != nil {
		return nil, err
	}
	detector, err := keypoints.NewShiTomasi[float32, float32](cfg.Detector)
	if err != nil {
		return nil, err
	}
	manager, err := tracking.NewManager[float32, float32](cfg.Tracking, detector, logger.Sublogger("tracking"))
	if err != nil {
		return nil, err
	}
	motionLogger := logger.Sublogger("odometry")

	start := clk.Now()
	results := make([]frameResult, 0, len(frames))
	for i, frame := range frames {
		frameStart := clk.Now()
		p, err := builder.Build(frame)
		if err != nil {
			return results, errors.Wrapf(err, "frame %q", paths[i])
		}
		images, err := klt.NewPyramidImages(p, rimage.SobelGradient[float32, float32])
		if err != nil {
			return results, errors.Wrapf(err, "frame %q", paths[i])
		}
		if err := manager.Process(ctx, images); err != nil {
			return results, err
		}

		pairs := manager.Pairs()
		result := frameResult{
			Index:   i,
			Path:    paths[i],
			Tracked: len(pairs),
			Spawned: len(manager.Spawned()),
			Dropped: len(manager.Dropped()),
			Active:  len(manager.Active()),
		}
		if i > 0 {
			motion, err := odometry.EstimateMotion(pairs, cfg.Motion, motionLogger)
			switch {
			case errors.Is(err, odometry.ErrInsufficientInliers):
				logger.Warnw("cannot estimate motion", "frame", paths[i], "tracked", len(pairs))
			case err != nil:
				return results, err
			default:
				result.Motion = motion
			}
		}
		result.Elapsed = clk.Since(frameStart)
		results = append(results, result)
		logFrame(logger, result)
	}
	logger.Infow("done",
		"frames", len(frames),
		"total_spawned", manager.TotalSpawned(),
		"elapsed", clk.Since(start),
	)
	return results, nil
}

func logFrame(logger logging.Logger, result frameResult) {
	keysAndValues := []interface{}{
		"index", result.Index,
		"frame", result.Path,
		"tracked", result.Tracked,
		"spawned", result.Spawned,
		"dropped", result.Dropped,
		"active", result.Active,
		"elapsed", result.Elapsed,
	}
	if result.Motion != nil {
		keysAndValues = append(keysAndValues,
			"inliers", len(result.Motion.Inliers),
			"model", result.Motion.Transform.String(),
		)
	}
	logger.Infow("frame", keysAndValues...)
}
