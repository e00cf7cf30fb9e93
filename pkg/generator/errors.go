package generator

import "fmt"

// ErrorKind classifies a degraded value.
type ErrorKind string

const (
	// KindUnsupportedConstraint: the node's constraints could not all be
	// satisfied and a best-effort value was produced.
	KindUnsupportedConstraint ErrorKind = "unsupported_constraint"
	// KindDepthExceeded: a cyclic or composite node was nested deeper than
	// the configured maximum and a minimal instance was produced.
	KindDepthExceeded ErrorKind = "depth_exceeded"
)

// GenerationError describes one degraded position. It never fails a request
// on its own.
type GenerationError struct {
	Kind ErrorKind
	// Path is the JSON path of the degraded value inside the body.
	Path string
	// Node is the canonical key of the schema node.
	Node   string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s at %s (%s): %s", e.Kind, e.Path, e.Node, e.Reason)
}
