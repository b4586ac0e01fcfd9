// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package taint implements spec.md §4.J: the bounded taint-flow engine.
// It enumerates paths along DFG edges from source nodes to sink nodes,
// capped at a fixed depth, a fixed field-sensitivity horizon, and a
// fixed K-CFA context horizon — the same bounded, explicit-stack
// philosophy the parser (internal/kernel/parse) applies to AST
// traversal, applied here to call-graph recursion instead.
package taint

import (
	"sort"

	"github.com/cpgkernel/cpgk/internal/kernel/cpg"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/metrics"
)

// Defaults mirror spec.md §6's configuration surface.
const (
	DefaultMaxDepth        = 10
	DefaultPointerContextK = 3
)

// Predicate selects source or sink nodes by whatever criteria the caller
// wants — a node kind, a literal name, a file.
type Predicate func(ir.CPGNode) bool

// PathResult is one source-to-sink flow, per spec.md §4.J.
type PathResult struct {
	SourceID ir.NodeID
	SinkID   ir.NodeID
	Path     []ir.NodeID
}

// Truncated marks a source for which at least one branch of its expansion
// hit the depth bound without reaching a sink, emitted instead of silently
// dropping that branch. Paths found on the source's other branches are
// still reported.
type Truncated struct {
	SourceID ir.NodeID
	Reason   string
}

// Result is the engine's full output for one source/sink predicate pair.
type Result struct {
	Paths     []PathResult
	Truncated []Truncated
}

// Config bounds the search. Zero values are replaced by the spec.md
// defaults.
type Config struct {
	MaxDepth        int
	PointerContextK int
}

func (c Config) normalized() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.PointerContextK <= 0 {
		c.PointerContextK = DefaultPointerContextK
	}
	return c
}

// flowEdgeKinds is the subset of the fixed CPG edge variant set a taint
// flow travels along. AST and pure control-flow edges (Ast, CfgNext,
// CfgBranch*, CfgBack) carry no data and are excluded; Call/Return are
// included so a flow can cross function boundaries.
var flowEdgeKinds = map[ir.EdgeKind]bool{
	ir.EdgeDef:       true,
	ir.EdgeUse:       true,
	ir.EdgeDfReaches: true,
	ir.EdgePhi:       true,
	ir.EdgeCall:      true,
	ir.EdgeReturn:    true,
}

// graph is the flattened, queryable view of an epoch's CPG the engine
// walks: every node keyed by id, and outgoing flow edges per node sorted
// by (to, kind) — "at each step edges are traversed in (to, kind) order"
// per spec.md §4.J.
type graph struct {
	nodes map[ir.NodeID]ir.CPGNode
	out   map[ir.NodeID][]ir.CPGEdge
}

func buildGraph(ce *cpg.Epoch) *graph {
	g := &graph{
		nodes: make(map[ir.NodeID]ir.CPGNode),
		out:   make(map[ir.NodeID][]ir.CPGEdge),
	}
	for _, fc := range ce.Files {
		for _, n := range fc.Nodes {
			g.nodes[n.ID] = n
		}
		for _, e := range fc.Edges {
			if !flowEdgeKinds[e.Kind] {
				continue
			}
			g.out[e.From] = append(g.out[e.From], e)
		}
	}
	for id, edges := range g.out {
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].Kind < edges[j].Kind
		})
		g.out[id] = edges
	}
	return g
}

// Find runs the bounded taint search over ce: every node matching
// isSource is a path origin, every node matching isSink terminates a
// path (without expanding past it, mirroring how a call-graph trace
// stops at its target rather than continuing through it). Results are
// sorted by (source_id, sink_id, path lexicographic), per spec.md §4.J.
func Find(ce *cpg.Epoch, isSource, isSink Predicate, cfg Config) *Result {
	cfg = cfg.normalized()
	g := buildGraph(ce)

	var sources []ir.NodeID
	for id, n := range g.nodes {
		if isSource(n) {
			sources = append(sources, id)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	res := &Result{}
	for _, src := range sources {
		paths, truncated := searchFromSource(g, src, isSink, cfg)
		res.Paths = append(res.Paths, paths...)
		if truncated {
			res.Truncated = append(res.Truncated, Truncated{SourceID: src, Reason: "depth"})
			metrics.TaintTruncatedTotal.Inc()
		}
	}

	sort.Slice(res.Paths, func(i, j int) bool { return lessPathResult(res.Paths[i], res.Paths[j]) })
	sort.Slice(res.Truncated, func(i, j int) bool { return res.Truncated[i].SourceID < res.Truncated[j].SourceID })
	return res
}

func lessPathResult(a, b PathResult) bool {
	if a.SourceID != b.SourceID {
		return a.SourceID < b.SourceID
	}
	if a.SinkID != b.SinkID {
		return a.SinkID < b.SinkID
	}
	for i := 0; i < len(a.Path) && i < len(b.Path); i++ {
		if a.Path[i] != b.Path[i] {
			return a.Path[i] < b.Path[i]
		}
	}
	return len(a.Path) < len(b.Path)
}

// frame is one explicit-stack entry of the depth-bounded DFS: the node
// being expanded, the path that reached it, the set of nodes already on
// that path (cycle guard), and the K-CFA call-context stack that got it
// there.
type frame struct {
	node      ir.NodeID
	path      []ir.NodeID
	onPath    map[ir.NodeID]bool
	context   []ir.NodeID
	fieldTags []string
}

// searchFromSource runs one explicit-stack DFS from src, bounded by
// cfg.MaxDepth hops and cfg.PointerContextK call-context frames.
func searchFromSource(g *graph, src ir.NodeID, isSink Predicate, cfg Config) ([]PathResult, bool) {
	var paths []PathResult
	hitDepthBound := false

	start := frame{
		node:   src,
		path:   []ir.NodeID{src},
		onPath: map[ir.NodeID]bool{src: true},
	}
	stack := []frame{start}

	// visited bounds re-exploration of the same node under the same
	// K-CFA context to a single pass — the context key keeps up to
	// PointerContextK of the most recent call-site node ids, so the same
	// function body revisited through a different, bounded call history
	// is still explored (spec.md's "context sensitivity up to K-CFA").
	visited := make(map[string]bool)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := g.nodes[f.node]
		if len(f.path) > 1 && isSink(n) {
			paths = append(paths, PathResult{SourceID: src, SinkID: f.node, Path: append([]ir.NodeID(nil), f.path...)})
			continue // don't expand past a sink, matching the teacher's BFS stop-at-target rule
		}

		if len(f.path) > cfg.MaxDepth {
			hitDepthBound = true
			continue
		}

		key := contextKey(f.node, f.context, f.fieldTags)
		if visited[key] {
			continue
		}
		visited[key] = true

		for _, e := range g.out[f.node] {
			if f.onPath[e.To] {
				continue // cycle guard: DFG phi/back-edges can loop
			}
			nextContext := f.context
			if e.Kind == ir.EdgeCall {
				nextContext = pushContext(f.context, e.From, cfg.PointerContextK)
			}
			nextFieldTags := f.fieldTags
			if tag, ok := fieldTag(g.nodes[e.To]); ok {
				nextFieldTags = pushFieldTag(f.fieldTags, tag, cfg.PointerContextK)
			}
			nextOnPath := make(map[ir.NodeID]bool, len(f.onPath)+1)
			for k := range f.onPath {
				nextOnPath[k] = true
			}
			nextOnPath[e.To] = true
			stack = append(stack, frame{
				node:      e.To,
				path:      append(append([]ir.NodeID(nil), f.path...), e.To),
				onPath:    nextOnPath,
				context:   nextContext,
				fieldTags: nextFieldTags,
			})
		}
	}

	return paths, hitDepthBound
}

// fieldTag extracts the selector suffix of a dotted identifier (e.g.
// "user.token" -> "token") from a node's literal text, when one is
// present. This is the same bounded, text-heuristic approach the
// semantic builder already uses for identifier scanning (see
// internal/kernel/semantic/dfg.go) rather than a real points-to or
// alias analysis — spec.md §4.J's "field-sensitivity" is approximated as
// a tag carried on the path, not a filter on reachability.
func fieldTag(n ir.CPGNode) (string, bool) {
	text := n.Extra.LiteralText
	if text == "" {
		text = n.Extra.CallTargetName
	}
	idx := lastDot(text)
	if idx < 0 || idx == len(text)-1 {
		return "", false
	}
	return text[idx+1:], true
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// pushFieldTag bounds the distinguishable field-selector history to k
// entries, the same horizon as the K-CFA context — only the k most recent
// tags are kept and older ones are dropped, so paths that differ only in
// earlier field accesses are no longer distinguished.
func pushFieldTag(tags []string, tag string, k int) []string {
	next := append(append([]string(nil), tags...), tag)
	if len(next) > k {
		next = next[len(next)-k:]
	}
	return next
}

func contextKey(node ir.NodeID, context []ir.NodeID, fieldTags []string) string {
	b := make([]byte, 0, 8*(len(context)+1))
	b = appendNodeID(b, node)
	for _, c := range context {
		b = appendNodeID(b, c)
	}
	for _, t := range fieldTags {
		b = append(b, 0)
		b = append(b, t...)
	}
	return string(b)
}

func appendNodeID(b []byte, id ir.NodeID) []byte {
	return append(b,
		byte(id>>56), byte(id>>48), byte(id>>40), byte(id>>32),
		byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
}

func pushContext(context []ir.NodeID, callSite ir.NodeID, k int) []ir.NodeID {
	next := append(append([]ir.NodeID(nil), context...), callSite)
	if len(next) > k {
		next = next[len(next)-k:]
	}
	return next
}
