package cpg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
	"github.com/cpgkernel/cpgk/internal/kernel/semantic"
)

func buildCPG(t *testing.T, files map[string]string) *Epoch {
	t.Helper()
	dir := t.TempDir()
	var sorted []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		sorted = append(sorted, p)
	}
	// Caller-sorted, matching ingest.New's contract.
	if len(sorted) > 1 && sorted[0] > sorted[1] {
		sorted[0], sorted[1] = sorted[1], sorted[0]
	}

	ie, err := ingest.New(1, sorted, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ie.Close() })

	pe, err := parse.Build(context.Background(), ie, parse.NewTreeCache())
	require.NoError(t, err)

	se := semantic.Build(ie, pe)

	ce, err := Build(pe, se, ie)
	require.NoError(t, err)
	return ce
}

func TestMergeProducesContiguousIDs(t *testing.T) {
	ce := buildCPG(t, map[string]string{"a.go": "package main\n\nfunc f() {\n\tx := 1\n\t_ = x\n}\n"})
	require.Len(t, ce.Files, 1)

	fc := ce.Files[0]
	require.NotEmpty(t, fc.Nodes)
	for i, n := range fc.Nodes {
		require.EqualValues(t, i, n.ID.Index())
		require.Equal(t, ir.FileID(0), n.ID.File())
	}
	for i := 1; i < len(fc.Nodes); i++ {
		require.LessOrEqual(t, fc.Nodes[i-1].Kind.Category(), fc.Nodes[i].Kind.Category())
	}
}

func TestMergeEdgesSortedAndUnique(t *testing.T) {
	ce := buildCPG(t, map[string]string{"a.go": "package main\n\nfunc f(c bool) {\n\tif c {\n\t\tg()\n\t} else {\n\t\tg()\n\t}\n}\nfunc g() {}\n"})
	fc := ce.Files[0]
	for i := 1; i < len(fc.Edges); i++ {
		require.True(t, fc.Edges[i-1].Less(fc.Edges[i]), "edges must be strictly ordered by (from,to,kind)")
	}
}

func TestMergeResolvesCallAcrossFiles(t *testing.T) {
	ce := buildCPG(t, map[string]string{
		"a.go": "package main\n\nfunc main() {\n\thelper()\n}\n",
		"b.go": "package main\n\nfunc helper() {}\n",
	})
	require.Len(t, ce.Files, 2)

	found := false
	for _, fc := range ce.Files {
		for _, e := range fc.Edges {
			if e.Kind == ir.EdgeCall {
				found = true
			}
		}
	}
	require.True(t, found, "expected a resolved Call edge from main() to helper()")
}

func TestMergeDeterministic(t *testing.T) {
	src := map[string]string{"a.go": "package main\n\nfunc f(x int) int {\n\treturn x + 1\n}\n"}
	ce1 := buildCPG(t, src)
	ce2 := buildCPG(t, src)
	require.Equal(t, ce1.CPGHash, ce2.CPGHash)
}
