package schema

import (
	"slices"
	"strings"
)

// NodeID addresses a node inside a Graph's arena.
type NodeID int32

// NoNode is the zero reference: no child schema is declared.
const NoNode NodeID = -1

// Valid reports whether the id refers to a node.
func (id NodeID) Valid() bool { return id >= 0 }

// Constraints are the validation keywords attached to a node.
// Nil pointers mean the keyword is absent.
type Constraints struct {
	Format  string
	Pattern string

	MinLength *int
	MaxLength *int

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MultipleOf       *float64

	MinItems    *int
	MaxItems    *int
	UniqueItems bool

	MinProperties *int
	MaxProperties *int

	Enum     []any
	Required []string
	Nullable bool
}

// Property is a named child of an object node.
type Property struct {
	Name string
	Node NodeID
}

// PatternProperty constrains every key matching Pattern.
type PatternProperty struct {
	Pattern string
	Node    NodeID
}

// Dependency applies when the Trigger property is present: the Required names
// must be present too and the object must satisfy Schema when it is set.
type Dependency struct {
	Trigger  string
	Required []string
	Schema   NodeID
}

// Node is one canonical schema definition after reference and composition
// resolution.
type Node struct {
	ID  NodeID
	Key string
	// Name is the component name for nodes declared under definitions or
	// components/schemas; empty for inline schemas.
	Name        string
	Description string
	Kind        Kind
	Constraints

	// Properties are sorted by name.
	Properties []Property
	// AdditionalProperties is the schema for undeclared keys, NoNode when absent.
	AdditionalProperties NodeID
	// ClosedProperties is set by additionalProperties: false.
	ClosedProperties bool
	// PatternProperties are sorted by pattern.
	PatternProperties []PatternProperty
	// Dependencies are sorted by trigger.
	Dependencies []Dependency

	Items       NodeID
	PrefixItems []NodeID

	Composition  Composition
	Alternatives []NodeID

	Example any
	Default any

	// Cyclic marks nodes reachable from themselves.
	Cyclic bool
}

// NewNode returns an empty node with every child reference unset.
func NewNode(id NodeID, key string) *Node {
	return &Node{
		ID:                   id,
		Key:                  key,
		Kind:                 KindObject,
		AdditionalProperties: NoNode,
		Items:                NoNode,
	}
}

// Property returns the child declared under name.
func (n *Node) Property(name string) (NodeID, bool) {
	i, ok := slices.BinarySearchFunc(n.Properties, name, func(p Property, name string) int {
		switch {
		case p.Name < name:
			return -1
		case p.Name > name:
			return 1
		}
		return 0
	})
	if !ok {
		return NoNode, false
	}
	return n.Properties[i].Node, true
}

// SetProperty adds or replaces a property, keeping Properties sorted.
func (n *Node) SetProperty(name string, id NodeID) {
	i, ok := slices.BinarySearchFunc(n.Properties, name, func(p Property, name string) int {
		switch {
		case p.Name < name:
			return -1
		case p.Name > name:
			return 1
		}
		return 0
	})
	if ok {
		n.Properties[i].Node = id
		return
	}
	n.Properties = slices.Insert(n.Properties, i, Property{Name: name, Node: id})
}

// IsRequired reports whether name is in the required set.
func (n *Node) IsRequired(name string) bool {
	return slices.Contains(n.Required, name)
}

// Children returns every node directly referenced by n.
func (n *Node) Children() []NodeID {
	var out []NodeID
	for _, p := range n.Properties {
		out = append(out, p.Node)
	}
	if n.AdditionalProperties.Valid() {
		out = append(out, n.AdditionalProperties)
	}
	for _, p := range n.PatternProperties {
		out = append(out, p.Node)
	}
	for _, d := range n.Dependencies {
		if d.Schema.Valid() {
			out = append(out, d.Schema)
		}
	}
	if n.Items.Valid() {
		out = append(out, n.Items)
	}
	out = append(out, n.PrefixItems...)
	out = append(out, n.Alternatives...)
	return out
}

// CopyFrom overwrites the content of n with the content of src, keeping n's
// identity (ID, Key, Name). Slices are copied so the two nodes share nothing.
func (n *Node) CopyFrom(src *Node) {
	id, key, name := n.ID, n.Key, n.Name
	*n = *src
	n.ID, n.Key, n.Name = id, key, name
	n.Properties = slices.Clone(src.Properties)
	n.PrefixItems = slices.Clone(src.PrefixItems)
	n.Alternatives = slices.Clone(src.Alternatives)
	n.Enum = slices.Clone(src.Enum)
	n.Required = slices.Clone(src.Required)
	n.PatternProperties = slices.Clone(src.PatternProperties)
	n.Dependencies = slices.Clone(src.Dependencies)
	for i := range n.Dependencies {
		n.Dependencies[i].Required = slices.Clone(n.Dependencies[i].Required)
	}
}

// PatternProperty returns the schema declared for pattern.
func (n *Node) PatternProperty(pattern string) (NodeID, bool) {
	for _, p := range n.PatternProperties {
		if p.Pattern == pattern {
			return p.Node, true
		}
	}
	return NoNode, false
}

// SetPatternProperty adds or replaces the schema for pattern, keeping the list
// sorted.
func (n *Node) SetPatternProperty(pattern string, id NodeID) {
	i, ok := slices.BinarySearchFunc(n.PatternProperties, pattern, func(p PatternProperty, pattern string) int {
		return strings.Compare(p.Pattern, pattern)
	})
	if ok {
		n.PatternProperties[i].Node = id
		return
	}
	n.PatternProperties = slices.Insert(n.PatternProperties, i, PatternProperty{Pattern: pattern, Node: id})
}

// Dependency returns the dependency triggered by name.
func (n *Node) Dependency(trigger string) (*Dependency, bool) {
	for i := range n.Dependencies {
		if n.Dependencies[i].Trigger == trigger {
			return &n.Dependencies[i], true
		}
	}
	return nil, false
}

// AddDependency records a dependency for trigger, keeping the list sorted.
// Required names are unioned with an existing entry; a schema replaces only an
// unset one.
func (n *Node) AddDependency(trigger string, required []string, id NodeID) {
	i, ok := slices.BinarySearchFunc(n.Dependencies, trigger, func(d Dependency, trigger string) int {
		return strings.Compare(d.Trigger, trigger)
	})
	if !ok {
		n.Dependencies = slices.Insert(n.Dependencies, i, Dependency{Trigger: trigger, Schema: NoNode})
	}
	d := &n.Dependencies[i]
	for _, name := range required {
		if !slices.Contains(d.Required, name) {
			d.Required = append(d.Required, name)
		}
	}
	if !d.Schema.Valid() {
		d.Schema = id
	}
}
