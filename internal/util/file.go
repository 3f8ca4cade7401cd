//go:build !windows
// +build !windows

package util

import (
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
)

// CheckDataDir returns ErrDataDirNotWritable unless path is a directory owned and writable by the current user.
func CheckDataDir(path string) error {
	info, err := checkDataDirMode(path)
	if err != nil {
		return err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return errors.Newf("cannot read the owner of data directory %s", path)
	}
	if uint32(os.Geteuid()) != stat.Uid {
		return errors.Wrapf(ErrDataDirNotWritable, "data directory %s belongs to another user", path)
	}
	return nil
}
