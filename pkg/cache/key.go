package cache

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one generated value: the schema node and the graph it
// belongs to, the scope it was generated for, the caller's scenario and the
// position inside the body.
type Key struct {
	// Node is the canonical key of the schema node.
	Node string
	// Graph is the identity of the graph the node belongs to. It keeps values
	// generated against a replaced graph from answering lookups against the
	// new one. It does not take part in the fingerprint.
	Graph string
	// Scope is empty for values shared across endpoints, otherwise the
	// endpoint identity ("GET /pets").
	Scope    string
	Scenario string
	// Path is the JSON path of the value inside the body ("$", "$.owner").
	Path string
}

// String renders the key in the form used for storage and prefix invalidation:
// node, graph, scope, scenario and path joined by '|'. Node comes first so a
// node prefix invalidates every graph's values for it.
func (k Key) String() string {
	var sb strings.Builder
	sb.Grow(len(k.Node) + len(k.Graph) + len(k.Scope) + len(k.Scenario) + len(k.Path) + 4)
	sb.WriteString(k.Node)
	sb.WriteByte('|')
	sb.WriteString(k.Graph)
	sb.WriteByte('|')
	sb.WriteString(k.Scope)
	sb.WriteByte('|')
	sb.WriteString(k.Scenario)
	sb.WriteByte('|')
	sb.WriteString(k.Path)
	return sb.String()
}

// Fingerprint hashes the seed and key into the 64-bit value that seeds every
// deterministic choice made while generating at that position.
func Fingerprint(seed uint64, k Key) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = d.Write(buf[:])
	for _, part := range []string{k.Scope, k.Node, k.Scenario, k.Path} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
