package chash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalDeterministic(t *testing.T) {
	build := func() Digest {
		c := New()
		c.BeginStruct(1).U32(42).String("hello").U64(7)
		return c.Sum()
	}
	a := build()
	b := build()
	assert.Equal(t, a, b)
}

func TestCanonicalFieldOrderMatters(t *testing.T) {
	c1 := New()
	c1.String("ab").String("c")
	d1 := c1.Sum()

	c2 := New()
	c2.String("a").String("bc")
	d2 := c2.Sum()

	// Length-prefixing must prevent "ab"+"c" from colliding with "a"+"bc".
	assert.NotEqual(t, d1, d2)
}

func TestSequenceOrderSensitive(t *testing.T) {
	c1 := New()
	c1.String("x")
	i1 := c1.Sum()

	c2 := New()
	c2.String("y")
	i2 := c2.Sum()

	h1 := Sequence([][]byte{i1[:], i2[:]})
	h2 := Sequence([][]byte{i2[:], i1[:]})
	assert.NotEqual(t, h1, h2, "sequence hash must depend on item order")
}

func TestAssertSortedPanicsOnUnsorted(t *testing.T) {
	vals := []int{3, 1, 2}
	assert.Panics(t, func() {
		AssertSorted(len(vals), func(i, j int) bool { return vals[i] < vals[j] })
	})
}

func TestAssertSortedAcceptsSorted(t *testing.T) {
	vals := []int{1, 2, 3}
	assert.NotPanics(t, func() {
		AssertSorted(len(vals), func(i, j int) bool { return vals[i] < vals[j] })
	})
}

func TestDigestIsZero(t *testing.T) {
	var d Digest
	assert.True(t, d.IsZero())
	d[0] = 1
	assert.False(t, d.IsZero())
}
