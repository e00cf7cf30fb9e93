// Package resolver turns an OpenAPI 3.x or Swagger 2.0 document into an
// immutable schema.Graph.
//
// Documents are decoded with yaml.v3 (JSON is a subset) into a generic tree.
// Every $ref is followed to the definition it names and resolved to that
// definition's node, so two operations that share a component share a node.
// allOf is merged into a single node, oneOf and anyOf become composite nodes,
// and cycles are marked on the finished graph.
//
// Resolution is all or nothing: on any error no graph is returned.
package resolver
