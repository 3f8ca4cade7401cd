package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatcher(t *testing.T) {
	b := NewBatcher[int](3)
	assert.Nil(t, b.Add(1))
	assert.Nil(t, b.Add(2))
	assert.Equal(t, []int{1, 2, 3}, b.Add(3))
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.Add(4))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []int{4}, b.Flush())
	assert.Nil(t, b.Flush())
	assert.Equal(t, 4, b.Total())
}

func TestBatcherMinimumSize(t *testing.T) {
	b := NewBatcher[string](0)
	assert.Equal(t, []string{"a"}, b.Add("a"))
}
