package util

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestRecoverError(t *testing.T) {
	err := RecoverError(func() error {
		panic("boom")
	})
	assert.ErrorContains(t, err, "panic: boom")

	sentinel := errors.New("sentinel")
	err = RecoverError(func() error {
		panic(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)

	assert.NoError(t, RecoverError(func() error { return nil }))
}
