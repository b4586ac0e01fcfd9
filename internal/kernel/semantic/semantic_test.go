package semantic

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
)

func buildEpoch(t *testing.T, src string) *Epoch {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	ie, err := ingest.New(1, []string{path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ie.Close() })

	pe, err := parse.Build(context.Background(), ie, parse.NewTreeCache())
	require.NoError(t, err)

	return Build(ie, pe)
}

func TestBuildFunctionSimpleSequence(t *testing.T) {
	se := buildEpoch(t, "package main\n\nfunc f() {\n\tx := 1\n\ty := x\n}\n")
	require.Len(t, se.Results, 1)

	r := se.Results[0]
	require.NotEmpty(t, r.Nodes)
	require.NotEmpty(t, r.Edges)

	hasEntry, hasExit := false, false
	for _, n := range r.Nodes {
		if n.Kind == ir.KindEntry {
			hasEntry = true
		}
		if n.Kind == ir.KindExit {
			hasExit = true
		}
	}
	require.True(t, hasEntry)
	require.True(t, hasExit)

	hasUse := false
	for _, e := range r.Edges {
		if e.Kind == ir.EdgeUse {
			hasUse = true
		}
	}
	require.True(t, hasUse, "y := x should record a Use edge on x's current version")
}

func TestBuildFunctionBranchInsertsPhi(t *testing.T) {
	se := buildEpoch(t, "package main\n\nfunc f(c bool) int {\n\tx := 1\n\tif c {\n\t\tx = 2\n\t} else {\n\t\tx = 3\n\t}\n\treturn x\n}\n")
	require.Len(t, se.Results, 1)

	r := se.Results[0]
	phiCount := 0
	for _, n := range r.Nodes {
		if n.Kind == ir.KindPhi {
			phiCount++
		}
	}
	require.GreaterOrEqual(t, phiCount, 1, "divergent assignment in both arms should merge via a Phi node")
}

func TestBuildDeterministic(t *testing.T) {
	src := "package main\n\nfunc f() {\n\tfor i := 0; i < 10; i++ {\n\t\tuse(i)\n\t}\n}\n"
	se1 := buildEpoch(t, src)
	se2 := buildEpoch(t, src)
	require.Equal(t, se1.SealedHash, se2.SealedHash)
}

func TestNameTableInternsFirstAppearanceOrder(t *testing.T) {
	nt := newNameTable()
	require.EqualValues(t, 0, nt.intern("a"))
	require.EqualValues(t, 1, nt.intern("b"))
	require.EqualValues(t, 0, nt.intern("a"))
	require.Equal(t, []string{"a", "b"}, nt.entries())
}

func TestIdentifierSet(t *testing.T) {
	require.Equal(t, []string{"x", "y"}, identifierSet("x + y * x"))
	require.Equal(t, "foo", firstIdentifier(" foo := bar()"))
}
