package klt

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate("path"), test.ShouldBeNil)
	test.That(t, cfg.MaxIterations, test.ShouldEqual, 15)
	test.That(t, cfg.MaxPerPixelError, test.ShouldEqual, 25.)
	test.That(t, cfg.MinDeterminant, test.ShouldEqual, 0.001)
	test.That(t, cfg.MinPositionDelta, test.ShouldEqual, 0.01)
	test.That(t, cfg.ForbiddenBorder, test.ShouldEqual, 0)
	test.That(t, cfg.DriftTolerance, test.ShouldEqual, 1.)

	bad := Config{MaxIterations: 0, MaxPerPixelError: -1, MinDeterminant: 0, MinPositionDelta: 0, ForbiddenBorder: -2}
	err := bad.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	for _, msg := range []string{
		"max_iterations", "max_per_pixel_error", "min_determinant", "min_position_delta", "forbidden_border",
	} {
		test.That(t, err.Error(), test.ShouldContainSubstring, msg)
	}

	_, err = NewTracker[float32, float32](bad)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "klt.json")
	test.That(t, os.WriteFile(path, []byte(`{"max_iterations": 30, "forbidden_border": 2}`), 0o600), test.ShouldBeNil)

	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MaxIterations, test.ShouldEqual, 30)
	test.That(t, cfg.ForbiddenBorder, test.ShouldEqual, 2)
	test.That(t, cfg.MaxPerPixelError, test.ShouldEqual, 25.)

	test.That(t, os.WriteFile(path, []byte(`{"max_iterations": -1}`), 0o600), test.ShouldBeNil)
	_, err = LoadConfig(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, path)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTrackFaultString(t *testing.T) {
	test.That(t, Success.String(), test.ShouldEqual, "SUCCESS")
	test.That(t, OutOfBounds.String(), test.ShouldEqual, "OUT_OF_BOUNDS")
	test.That(t, LargeError.String(), test.ShouldEqual, "LARGE_ERROR")
	test.That(t, Failed.String(), test.ShouldEqual, "FAILED")
	test.That(t, Drifted.String(), test.ShouldEqual, "DRIFTED")
	test.That(t, TrackFault(42).String(), test.ShouldEqual, "TrackFault(42)")
}
