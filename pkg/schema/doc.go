// Package schema holds the resolved, read-only schema graph of a loaded API description.
//
// A Graph is an arena of Nodes addressed by NodeID. Every node carries a stable
// Key (the canonical JSON pointer of its definition or inline position), so two
// references to the same definition always share one node and one identity.
// Children are stored as NodeIDs rather than pointers, which keeps reference
// cycles out of the ownership graph entirely; nodes that take part in a cycle
// are flagged with Cyclic so generators can bound their recursion.
//
// Graphs are produced by the resolver package through a Builder and are never
// mutated after Build returns. Reloading a specification builds a new Graph.
package schema
