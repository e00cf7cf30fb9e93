package schema

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// Graph is the immutable result of resolving a specification document.
// It is safe for concurrent readers.
type Graph struct {
	identity  string
	version   string
	title     string
	nodes     []*Node
	byKey     map[string]NodeID
	named     map[string]NodeID
	endpoints []*Endpoint
	byRoute   map[string]*Endpoint
}

// Identity is unique per built graph. Two builds of the same document differ.
func (g *Graph) Identity() string { return g.identity }

// Version is the document's declared spec version ("2.0", "3.0.3", ...).
func (g *Graph) Version() string { return g.version }

// Title is the document's info.title.
func (g *Graph) Title() string { return g.title }

// Len returns the number of nodes in the arena.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id, or nil for NoNode and out of range ids.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Lookup finds a node by its canonical key.
func (g *Graph) Lookup(key string) (*Node, bool) {
	id, ok := g.byKey[key]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Named finds a component schema by name.
func (g *Graph) Named(name string) (*Node, bool) {
	id, ok := g.named[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Names returns the sorted component schema names.
func (g *Graph) Names() []string {
	out := make([]string, 0, len(g.named))
	for name := range g.named {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Nodes returns every node in arena order. Callers must not modify them.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Endpoints returns the endpoint table sorted by path then method.
func (g *Graph) Endpoints() []*Endpoint { return g.endpoints }

// Endpoint finds the endpoint declared for method and path template.
func (g *Graph) Endpoint(method, path string) (*Endpoint, bool) {
	ep, ok := g.byRoute[method+" "+path]
	return ep, ok
}

// Builder assembles a Graph. Nodes are reserved by key before their content is
// known so forward and mutual references resolve to a single identity.
type Builder struct {
	g      *Graph
	filled []bool
	built  bool
}

// NewBuilder starts an empty graph.
func NewBuilder(version, title string) *Builder {
	return &Builder{g: &Graph{
		version: version,
		title:   title,
		byKey:   make(map[string]NodeID),
		named:   make(map[string]NodeID),
		byRoute: make(map[string]*Endpoint),
	}}
}

// Reserve returns the node for key, allocating an empty placeholder if the key
// is new. The second result is true when the node already existed.
func (b *Builder) Reserve(key string) (NodeID, bool) {
	if id, ok := b.g.byKey[key]; ok {
		return id, true
	}
	id := NodeID(len(b.g.nodes))
	b.g.nodes = append(b.g.nodes, NewNode(id, key))
	b.filled = append(b.filled, false)
	b.g.byKey[key] = id
	return id, false
}

// Lookup finds an already reserved node by key.
func (b *Builder) Lookup(key string) (NodeID, bool) {
	id, ok := b.g.byKey[key]
	return id, ok
}

// Node returns the mutable node for id while the graph is under construction.
func (b *Builder) Node(id NodeID) *Node { return b.g.Node(id) }

// MarkFilled records that the node's content is complete.
func (b *Builder) MarkFilled(id NodeID) { b.filled[id] = true }

// Filled reports whether the node's content is complete.
func (b *Builder) Filled(id NodeID) bool { return b.filled[id] }

// SetName registers id as the component schema called name. A node reached
// through several component aliases keeps the first name it was given.
func (b *Builder) SetName(id NodeID, name string) {
	if b.g.nodes[id].Name == "" {
		b.g.nodes[id].Name = name
	}
	b.g.named[name] = id
}

// AddEndpoint appends an endpoint. A duplicate method and path replaces nothing
// and reports false.
func (b *Builder) AddEndpoint(ep *Endpoint) bool {
	if _, dup := b.g.byRoute[ep.ID()]; dup {
		return false
	}
	b.g.byRoute[ep.ID()] = ep
	b.g.endpoints = append(b.g.endpoints, ep)
	return true
}

// ErrAlreadyBuilt is returned when Build is called twice.
var ErrAlreadyBuilt = errors.New("schema: graph already built")

// Build marks cycles, orders endpoints and seals the graph.
func (b *Builder) Build() (*Graph, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	b.built = true
	b.g.identity = uuid.NewString()
	markCycles(b.g.nodes)
	sort.SliceStable(b.g.endpoints, func(i, j int) bool {
		a, c := b.g.endpoints[i], b.g.endpoints[j]
		if a.Path != c.Path {
			return a.Path < c.Path
		}
		return methodRank(a.Method) < methodRank(c.Method)
	})
	return b.g, nil
}

var methodOrder = map[string]int{
	"GET": 0, "PUT": 1, "POST": 2, "DELETE": 3, "OPTIONS": 4, "HEAD": 5, "PATCH": 6, "TRACE": 7,
}

func methodRank(m string) int {
	if r, ok := methodOrder[m]; ok {
		return r
	}
	return len(methodOrder)
}

// markCycles runs an iterative three-colour DFS and flags every node that is
// the target of a back edge.
func markCycles(nodes []*Node) {
	const (
		white = iota
		grey
		black
	)
	color := make([]uint8, len(nodes))
	type frame struct {
		id       NodeID
		children []NodeID
		next     int
	}
	for start := range nodes {
		if color[start] != white {
			continue
		}
		stack := []frame{{id: NodeID(start), children: nodes[start].Children()}}
		color[start] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.children) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := top.children[top.next]
			top.next++
			switch color[child] {
			case grey:
				nodes[child].Cyclic = true
			case white:
				color[child] = grey
				stack = append(stack, frame{id: child, children: nodes[child].Children()})
			}
		}
	}
}
