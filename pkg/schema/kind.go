package schema

import "fmt"

// Kind is the declared type of a schema node.
type Kind uint8

// Node kinds. KindComposite marks oneOf/anyOf nodes whose value comes from one
// of their alternatives.
const (
	KindString Kind = iota
	KindNumber
	KindInteger
	KindBoolean
	KindObject
	KindArray
	KindNull
	KindComposite
)

var kindNames = [...]string{
	KindString:    "string",
	KindNumber:    "number",
	KindInteger:   "integer",
	KindBoolean:   "boolean",
	KindObject:    "object",
	KindArray:     "array",
	KindNull:      "null",
	KindComposite: "composite",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a JSON Schema type name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "string":
		return KindString, true
	case "number":
		return KindNumber, true
	case "integer":
		return KindInteger, true
	case "boolean":
		return KindBoolean, true
	case "object":
		return KindObject, true
	case "array":
		return KindArray, true
	case "null":
		return KindNull, true
	default:
		return 0, false
	}
}

// Composition is the rule a composite node applies to its alternatives.
// allOf never survives resolution: it is merged into a plain node.
type Composition uint8

const (
	CompositionNone Composition = iota
	CompositionOneOf
	CompositionAnyOf
)

func (c Composition) String() string {
	switch c {
	case CompositionOneOf:
		return "oneOf"
	case CompositionAnyOf:
		return "anyOf"
	default:
		return "none"
	}
}
