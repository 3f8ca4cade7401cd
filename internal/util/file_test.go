package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDataDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, CheckDataDir(dir))

	fn := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(fn, []byte("x"), 0600))
	err := CheckDataDir(fn)
	assert.ErrorIs(t, err, ErrDataDirNotWritable)
	assert.Contains(t, err.Error(), "data directory")

	err = CheckDataDir(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read data directory")
}
