//go:build windows
// +build windows

package util

// CheckDataDir returns ErrDataDirNotWritable unless path is a directory writable by the current user.
func CheckDataDir(path string) error {
	_, err := checkDataDirMode(path)
	return err
}
