package utils

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// DecodeJSONFile reads the json document at path into v.
func DecodeJSONFile(path string, v interface{}) (err error) {
	//nolint:gosec
	configFile, err := os.Open(filepath.Clean(path))
	if err != nil {
		return errors.Wrapf(err, "cannot open configuration %q", path)
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(v); err != nil {
		return errors.Wrapf(err, "cannot decode configuration %q", path)
	}
	return nil
}
