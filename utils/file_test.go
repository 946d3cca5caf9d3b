package utils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDecodeJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	test.That(t, os.WriteFile(path, []byte(`{"a": 3, "b": "x"}`), 0o600), test.ShouldBeNil)

	var cfg struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	test.That(t, DecodeJSONFile(path, &cfg), test.ShouldBeNil)
	test.That(t, cfg.A, test.ShouldEqual, 3)
	test.That(t, cfg.B, test.ShouldEqual, "x")

	err := DecodeJSONFile(filepath.Join(dir, "missing.json"), &cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot open")

	test.That(t, os.WriteFile(path, []byte(`{"a": `), 0o600), test.ShouldBeNil)
	err = DecodeJSONFile(path, &cfg)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot decode")
}
