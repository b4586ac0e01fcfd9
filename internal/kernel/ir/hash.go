package ir

import "github.com/cpgkernel/cpgk/internal/kernel/chash"

// structTagNode/Edge distinguish the two aggregate shapes this package
// hashes; arbitrary but stable across runs (part of the canonical
// encoding, so changing them changes every hash).
const (
	structTagNode byte = 1
	structTagEdge byte = 2
)

// HashNode canonically encodes one CPGNode. Extra fields are always
// included per spec.md §9's Open Question, resolved as "always included"
// (see SPEC_FULL.md).
func HashNode(n CPGNode) chash.Digest {
	c := chash.New()
	c.BeginStruct(structTagNode)
	c.U64(uint64(n.ID))
	c.U8(uint8(n.Kind))
	c.U32(n.Span.Start)
	c.U32(n.Span.End)
	c.U64(uint64(n.Parent))
	c.U32(n.Extra.NameID)
	c.String(n.Extra.LiteralText)
	c.U32(n.Extra.VarVersion)
	c.String(n.Extra.CallTargetName)
	return c.Sum()
}

// HashEdge canonically encodes one CPGEdge.
func HashEdge(e CPGEdge) chash.Digest {
	c := chash.New()
	c.BeginStruct(structTagEdge)
	c.U64(uint64(e.From))
	c.U64(uint64(e.To))
	c.U8(uint8(e.Kind))
	return c.Sum()
}

// HashNodes hashes a pre-sorted node sequence (by ID) into one digest,
// asserting sortedness first.
func HashNodes(nodes []CPGNode) chash.Digest {
	chash.AssertSorted(len(nodes), func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	items := make([][]byte, len(nodes))
	for i, n := range nodes {
		d := HashNode(n)
		items[i] = d[:]
	}
	return chash.Sequence(items)
}

// HashEdges hashes a pre-sorted edge sequence (by From,To,Kind) into one
// digest, asserting sortedness first.
func HashEdges(edges []CPGEdge) chash.Digest {
	chash.AssertSorted(len(edges), func(i, j int) bool { return edges[i].Less(edges[j]) })
	items := make([][]byte, len(edges))
	for i, e := range edges {
		d := HashEdge(e)
		items[i] = d[:]
	}
	return chash.Sequence(items)
}

// HashStrings hashes an ordered (insertion-order, not sorted) string
// table. Unlike nodes/edges, the string table's order *is* its identity
// (first-appearance interning order per spec.md §3), so no sortedness
// assertion applies here.
func HashStrings(strs []string) chash.Digest {
	c := chash.New()
	for _, s := range strs {
		c.String(s)
	}
	return c.Sum()
}
