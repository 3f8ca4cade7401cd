package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, fn string) {
	enc, err := NewNDJSONEncoder(fn)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(map[string]any{"name": "a", "qty": 1}))
	require.NoError(t, enc.Encode(map[string]any{"name": "b", "qty": 2.5}))
	assert.Equal(t, 2, enc.Count())
	require.NoError(t, enc.Close())

	dec, err := NewNDJSONDecoder(fn)
	require.NoError(t, err)
	defer dec.Close()
	var rows []map[string]any
	for dec.More() {
		var row map[string]any
		require.NoError(t, dec.Decode(&row))
		rows = append(rows, row)
	}
	assert.Equal(t, 2, dec.Count())
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[1]["name"])
	assert.Equal(t, json.Number("2.5"), rows[1]["qty"])
}

func TestNDJSON(t *testing.T) {
	roundTrip(t, filepath.Join(t.TempDir(), "rows.ndjson"))
}

func TestNDJSONGzip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "rows.ndjson.gz")
	roundTrip(t, fn)
	buf, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, buf[:2])
}

func TestNDJSONDecodeError(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "bad.ndjson")
	require.NoError(t, os.WriteFile(fn, []byte("{\"a\":1}\n{bad\n"), 0600))
	dec, err := NewNDJSONDecoder(fn)
	require.NoError(t, err)
	defer dec.Close()
	var v map[string]any
	require.NoError(t, dec.Decode(&v))
	err = dec.Decode(&v)
	assert.ErrorContains(t, err, "line 2")
}

func TestNDJSONMissingFile(t *testing.T) {
	_, err := NewNDJSONDecoder(filepath.Join(t.TempDir(), "nope.ndjson"))
	assert.Error(t, err)
}
