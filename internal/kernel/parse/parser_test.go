package parse

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
)

func hashOf(src []byte) chash.Digest {
	return sha256.Sum256(src)
}

func TestDetectLanguage(t *testing.T) {
	require.Equal(t, LangGo, DetectLanguage("main.go"))
	require.Equal(t, LangPython, DetectLanguage("a/b/c.py"))
	require.Equal(t, LangTypeScript, DetectLanguage("x.tsx"))
	require.Equal(t, LangUnknown, DetectLanguage("README.md"))
}

func TestParseFileGoProducesPreOrderTree(t *testing.T) {
	src := []byte("package main\n\nfunc main() {\n\tfoo()\n}\n")
	p := NewParser()

	tree, err := p.ParseFile(context.Background(), 0, LangGo, hashOf(src), src)
	require.NoError(t, err)
	require.False(t, tree.HasSyntaxError)
	require.NotEmpty(t, tree.Entries)

	// Root is always entry 0 with no parent.
	require.Equal(t, -1, tree.Entries[0].ParentIndex)
	require.Equal(t, ir.KindFile, tree.Entries[0].Kind)

	// NodeIDs are assigned in file_id:index form, strictly increasing.
	for i, e := range tree.Entries {
		require.Equal(t, ir.FileID(0), e.ID.File())
		require.EqualValues(t, i, e.ID.Index())
	}

	foundFunc := false
	foundCall := false
	for _, e := range tree.Entries {
		if e.Kind == ir.KindFunction {
			foundFunc = true
		}
		if e.Kind == ir.KindCall {
			foundCall = true
		}
	}
	require.True(t, foundFunc, "expected a Function node")
	require.True(t, foundCall, "expected a Call node")
}

func TestParseFileDeterministic(t *testing.T) {
	src := []byte("package main\n\nfunc f(x int) int {\n\treturn x + 1\n}\n")
	p := NewParser()

	t1, err := p.ParseFile(context.Background(), 3, LangGo, hashOf(src), src)
	require.NoError(t, err)
	t2, err := p.ParseFile(context.Background(), 3, LangGo, hashOf(src), src)
	require.NoError(t, err)

	require.Equal(t, t1.StructuralHash(), t2.StructuralHash())
}

func TestParseFileUnsupportedLanguage(t *testing.T) {
	p := NewParser()
	_, err := p.ParseFile(context.Background(), 0, LangUnknown, chash.Digest{}, []byte("x"))
	require.Error(t, err)
}

func TestParseFileSyntaxErrorStillProducesTree(t *testing.T) {
	src := []byte("package main\nfunc f( {\n")
	p := NewParser()

	tree, err := p.ParseFile(context.Background(), 0, LangGo, hashOf(src), src)
	require.NoError(t, err)
	require.True(t, tree.HasSyntaxError)
	require.NotEmpty(t, tree.Entries)
}
