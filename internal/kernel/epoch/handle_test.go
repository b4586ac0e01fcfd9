package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleReleaseRunsOnce(t *testing.T) {
	released := 0
	v := 42
	h := New(&v, func() { released++ })
	assert.EqualValues(t, 1, h.RefCount())

	h2 := h.Retain()
	assert.EqualValues(t, 2, h.RefCount())
	assert.Same(t, h.Value(), h2.Value())

	h.Release()
	assert.Equal(t, 0, released)
	h2.Release()
	assert.Equal(t, 1, released)
}

func TestHandleNilRelease(t *testing.T) {
	v := "x"
	h := New(&v, nil)
	assert.NotPanics(t, func() { h.Release() })
}
