package kernelerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleHappyPath(t *testing.T) {
	l := NewLifecycle()
	require.Equal(t, Initialized, l.Current())

	for _, next := range []State{Ingested, Parsed, Semantic, CPGBuilt, Sealed} {
		require.NoError(t, l.Advance(next))
	}
	assert.Equal(t, Sealed, l.Current())
}

func TestLifecycleRejectsSkip(t *testing.T) {
	l := NewLifecycle()
	err := l.Advance(Parsed)
	require.Error(t, err)
	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, InvariantViolation, kerr.Kind)
	assert.Equal(t, Initialized, l.Current())
}

func TestLifecycleNoTransitionFromTerminal(t *testing.T) {
	l := NewLifecycle()
	require.NoError(t, l.Fail("boom"))
	assert.Equal(t, Failed, l.Current())
	assert.Equal(t, "boom", l.FailureReason())

	err := l.Advance(Ingested)
	require.Error(t, err)

	err = l.Fail("again")
	require.Error(t, err)
}

func TestLifecycleSealedIsTerminal(t *testing.T) {
	l := NewLifecycle()
	for _, next := range []State{Ingested, Parsed, Semantic, CPGBuilt, Sealed} {
		require.NoError(t, l.Advance(next))
	}
	require.Error(t, l.Advance(Ingested))
	require.Error(t, l.Fail("too late"))
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := NewHashMismatch("aa", "bb", "cpg")
	b := New(HashMismatch, "")
	assert.True(t, a.Is(b))

	c := NewDuplicateEdge("x->y")
	assert.False(t, a.Is(c))
}
