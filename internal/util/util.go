package util

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// JSONStringify converts any value to a JSON string.
func JSONStringify(val any) string {
	buf, _ := json.Marshal(val)
	return string(buf)
}

// JSONIndent converts any value to an indented JSON string.
func JSONIndent(val any) string {
	buf, _ := json.MarshalIndent(val, "", "  ")
	return string(buf)
}

// Exists returns true if the filename or directory specified by fn exists.
func Exists(fn string) bool {
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return false
	}
	return true
}

// SliceContains returns true if the slice contains the value.
func SliceContains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

// EnsureDir creates the directory if missing and checks it can be written.
func EnsureDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if !Exists(abs) {
		if err := os.MkdirAll(abs, 0700); err != nil {
			return err
		}
	}
	return CheckDataDir(abs)
}

// ErrDataDirNotWritable is returned when the session database and config file cannot be written to the data directory.
var ErrDataDirNotWritable = errors.New("data directory is not writable")

func checkDataDirMode(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read data directory %s", path)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrDataDirNotWritable, "data directory %s is a file", path)
	}
	if info.Mode().Perm()&0200 == 0 {
		return nil, errors.Wrapf(ErrDataDirNotWritable, "data directory %s has no owner write permission", path)
	}
	return info, nil
}
