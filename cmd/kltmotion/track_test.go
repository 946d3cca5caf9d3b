package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"go.viam.com/test"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"go.viam.com/klt/logging"
	"go.viam.com/klt/vision/odometry"
)

func texture(x, y float64) float64 {
	return 110 +
		40*math.Sin(0.3*x+0.2*y) +
		35*math.Cos(0.25*y-0.15*x) +
		25*math.Sin(0.17*x)*math.Cos(0.21*y)
}

func syntheticFrame(tx, ty float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			img.SetGray(x, y, color.Gray{uint8(math.Round(texture(float64(x)-tx, float64(y)-ty)))})
		}
	}
	return img
}

// writeFrames writes three frames moving by (1.5, -1), each in a different format.
func writeFrames(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "frame0.png"),
		filepath.Join(dir, "frame1.bmp"),
		filepath.Join(dir, "frame2.tiff"),
	}
	test.That(t, imaging.Save(syntheticFrame(0, 0), paths[0]), test.ShouldBeNil)

	f, err := os.Create(paths[1])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bmp.Encode(f, syntheticFrame(1.5, -1)), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	f, err = os.Create(paths[2])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tiff.Encode(f, syntheticFrame(3, -2), nil), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
	return paths
}

func TestRunTrack(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	paths := writeFrames(t)
	cfg := defaultTrackConfig()
	cfg.Motion.Model = odometry.ModelTranslation

	results, err := runTrack(context.Background(), cfg, paths, clock.NewMock(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 3)

	test.That(t, results[0].Spawned, test.ShouldBeGreaterThan, 0)
	test.That(t, results[0].Tracked, test.ShouldEqual, 0)
	test.That(t, results[0].Motion, test.ShouldBeNil)
	for _, result := range results[1:] {
		test.That(t, result.Tracked, test.ShouldBeGreaterThan, 0)
		test.That(t, result.Motion, test.ShouldNotBeNil)
		params := result.Motion.Transform.Params()
		test.That(t, params[0], test.ShouldAlmostEqual, 1.5, 0.25)
		test.That(t, params[1], test.ShouldAlmostEqual, -1, 0.25)
		test.That(t, result.Elapsed, test.ShouldEqual, time.Duration(0))
	}
	test.That(t, logs.FilterMessage("frame").Len(), test.ShouldEqual, 3)
	test.That(t, logs.FilterMessage("done").Len(), test.ShouldEqual, 1)
}

func TestLoadFrames(t *testing.T) {
	paths := writeFrames(t)
	frames, err := loadFrames(context.Background(), paths)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frames, test.ShouldHaveLength, 3)
	test.That(t, frames[2].Width(), test.ShouldEqual, 128)

	_, err = loadFrames(context.Background(), append(paths, filepath.Join(t.TempDir(), "missing.png")))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot load frame")

	small := filepath.Join(t.TempDir(), "small.png")
	test.That(t, imaging.Save(image.NewGray(image.Rect(0, 0, 64, 64)), small), test.ShouldBeNil)
	_, err = loadFrames(context.Background(), []string{paths[0], small})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = loadFrames(context.Background(), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTrackCommand(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	paths := writeFrames(t)
	app := newApp(clock.NewMock(), logger)
	var out bytes.Buffer
	app.Writer = &out

	args := append([]string{"kltmotion", "track", "--levels", "2", "--max", "80", "--model", "affine", "--parallel", "--debug", "--summary"}, paths...)
	test.That(t, app.Run(args), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "TRACKED")
	test.That(t, out.String(), test.ShouldContainSubstring, "frame2.tiff")
	test.That(t, out.String(), test.ShouldContainSubstring, "affine[")
	test.That(t, logs.FilterMessage("frame").Len(), test.ShouldEqual, 3)
	for _, entry := range logs.FilterMessage("frame").All() {
		test.That(t, entry.ContextMap()["active"], test.ShouldBeLessThanOrEqualTo, int64(80))
	}
	test.That(t, logs.FilterMessage("processed frame").Len(), test.ShouldEqual, 3)

	err := app.Run([]string{"kltmotion", "track", paths[0]})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "two frames")

	err = app.Run(append([]string{"kltmotion", "track", "--model", "similarity"}, paths...))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "similarity")

	cfgPath := filepath.Join(t.TempDir(), "track.json")
	test.That(t, os.WriteFile(cfgPath, []byte(`{"levels": 0, "tracking": {"template_radius": 2}}`), 0o600), test.ShouldBeNil)
	err = app.Run(append([]string{"kltmotion", "track", "--config", cfgPath}, paths...))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "levels")
}

func TestTrackConfig(t *testing.T) {
	cfg := defaultTrackConfig()
	test.That(t, cfg.Validate(""), test.ShouldBeNil)
	test.That(t, cfg.scales(), test.ShouldResemble, []int{1, 2, 4})
	cfg.Sigma = -1
	cfg.Detector.WindowRadius = 0
	err := cfg.Validate("cfg.json")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sigma")
	test.That(t, err.Error(), test.ShouldContainSubstring, "window_radius")
}
