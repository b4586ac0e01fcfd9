package taint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpgkernel/cpgk/internal/kernel/cpg"
	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
	"github.com/cpgkernel/cpgk/internal/kernel/semantic"
)

func buildEpoch(t *testing.T, files map[string]string) *cpg.Epoch {
	t.Helper()
	dir := t.TempDir()
	var sorted []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		sorted = append(sorted, p)
	}
	if len(sorted) > 1 && sorted[0] > sorted[1] {
		sorted[0], sorted[1] = sorted[1], sorted[0]
	}

	ie, err := ingest.New(1, sorted, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ie.Close() })

	pe, err := parse.Build(context.Background(), ie, parse.NewTreeCache())
	require.NoError(t, err)

	se := semantic.Build(ie, pe)

	ce, err := cpg.Build(pe, se, ie)
	require.NoError(t, err)
	return ce
}

func isVariable(n ir.CPGNode) bool  { return n.Kind == ir.KindVariable }
func isParameter(n ir.CPGNode) bool { return n.Kind == ir.KindParameter }

func TestFindDiscoversDirectDefUseFlow(t *testing.T) {
	ce := buildEpoch(t, map[string]string{
		"a.go": "package main\n\nfunc f(tainted int) int {\n\tx := tainted\n\treturn x\n}\n",
	})

	res := Find(ce, isParameter, isVariable, Config{})
	require.NotEmpty(t, res.Paths, "expected at least one path from a parameter to a variable definition")
	for _, p := range res.Paths {
		require.GreaterOrEqual(t, len(p.Path), 2)
		require.Equal(t, p.Path[0], p.SourceID)
		require.Equal(t, p.Path[len(p.Path)-1], p.SinkID)
	}
}

func TestFindRespectsMaxDepth(t *testing.T) {
	ce := buildEpoch(t, map[string]string{
		"a.go": "package main\n\nfunc f(x int) int {\n\treturn x\n}\n",
	})

	res := Find(ce, isParameter, func(ir.CPGNode) bool { return false }, Config{MaxDepth: 1})
	for _, tr := range res.Truncated {
		require.Equal(t, "depth", tr.Reason)
	}
}

func TestFindResultsSortedDeterministically(t *testing.T) {
	ce := buildEpoch(t, map[string]string{
		"a.go": "package main\n\nfunc f(a, b int) int {\n\tx := a\n\ty := b\n\treturn x + y\n}\n",
	})

	res1 := Find(ce, isParameter, isVariable, Config{})
	res2 := Find(ce, isParameter, isVariable, Config{})
	require.Equal(t, res1.Paths, res2.Paths)

	for i := 1; i < len(res1.Paths); i++ {
		require.False(t, lessPathResult(res1.Paths[i], res1.Paths[i-1]), "paths must be non-decreasing by (source_id, sink_id, path)")
	}
}

func TestFindNoSourcesProducesEmptyResult(t *testing.T) {
	ce := buildEpoch(t, map[string]string{"a.go": "package main\n\nfunc f() {}\n"})

	res := Find(ce, func(ir.CPGNode) bool { return false }, isVariable, Config{})
	require.Empty(t, res.Paths)
	require.Empty(t, res.Truncated)
}
