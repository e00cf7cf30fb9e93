package schema

import "strconv"

// JSONSchemaDialect is the draft ExportJSONSchema emits.
const JSONSchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// DefName is the $defs entry name used for a node in exported documents.
func DefName(id NodeID) string { return "n" + strconv.Itoa(int(id)) }

// DefRef is the local reference to a node's $defs entry.
func DefRef(id NodeID) string { return "#/$defs/" + DefName(id) }

// ExportJSONSchema renders the subgraph reachable from id as a self-contained
// JSON Schema document. Every reachable node becomes a $defs entry and children
// are referenced, never inlined, so cyclic graphs export finitely.
//
// oneOf alternatives are exported as anyOf: a generated value is required to
// satisfy at least one alternative, not exactly one.
func (g *Graph) ExportJSONSchema(id NodeID) map[string]any {
	defs := make(map[string]any)
	seen := make(map[NodeID]bool)
	queue := []NodeID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		n := g.Node(cur)
		if n == nil {
			continue
		}
		defs[DefName(cur)] = exportNode(n)
		queue = append(queue, n.Children()...)
	}
	return map[string]any{
		"$schema": JSONSchemaDialect,
		"$ref":    DefRef(id),
		"$defs":   defs,
	}
}

func ref(id NodeID) map[string]any { return map[string]any{"$ref": DefRef(id)} }

func exportNode(n *Node) map[string]any {
	out := make(map[string]any)
	if n.Description != "" {
		out["description"] = n.Description
	}
	if n.Kind == KindComposite {
		alts := make([]any, 0, len(n.Alternatives)+1)
		for _, a := range n.Alternatives {
			alts = append(alts, ref(a))
		}
		if n.Nullable {
			alts = append(alts, map[string]any{"type": "null"})
		}
		out["anyOf"] = alts
		return out
	}

	typ := n.Kind.String()
	if n.Nullable && n.Kind != KindNull {
		out["type"] = []any{typ, "null"}
	} else {
		out["type"] = typ
	}

	if len(n.Enum) > 0 {
		enum := append([]any(nil), n.Enum...)
		if n.Nullable && !containsNil(enum) {
			enum = append(enum, nil)
		}
		out["enum"] = enum
	}

	switch n.Kind {
	case KindString:
		if n.Format != "" {
			out["format"] = n.Format
		}
		if n.Pattern != "" {
			out["pattern"] = n.Pattern
		}
		setInt(out, "minLength", n.MinLength)
		setInt(out, "maxLength", n.MaxLength)
	case KindNumber, KindInteger:
		if n.Format != "" {
			out["format"] = n.Format
		}
		if n.Minimum != nil {
			if n.ExclusiveMinimum {
				out["exclusiveMinimum"] = *n.Minimum
			} else {
				out["minimum"] = *n.Minimum
			}
		}
		if n.Maximum != nil {
			if n.ExclusiveMaximum {
				out["exclusiveMaximum"] = *n.Maximum
			} else {
				out["maximum"] = *n.Maximum
			}
		}
		if n.MultipleOf != nil {
			out["multipleOf"] = *n.MultipleOf
		}
	case KindObject:
		if len(n.Properties) > 0 {
			props := make(map[string]any, len(n.Properties))
			for _, p := range n.Properties {
				props[p.Name] = ref(p.Node)
			}
			out["properties"] = props
		}
		if len(n.Required) > 0 {
			req := make([]any, len(n.Required))
			for i, r := range n.Required {
				req[i] = r
			}
			out["required"] = req
		}
		switch {
		case n.AdditionalProperties.Valid():
			out["additionalProperties"] = ref(n.AdditionalProperties)
		case n.ClosedProperties:
			out["additionalProperties"] = false
		}
		if len(n.PatternProperties) > 0 {
			pats := make(map[string]any, len(n.PatternProperties))
			for _, p := range n.PatternProperties {
				pats[p.Pattern] = ref(p.Node)
			}
			out["patternProperties"] = pats
		}
		exportDependencies(out, n.Dependencies)
		setInt(out, "minProperties", n.MinProperties)
		setInt(out, "maxProperties", n.MaxProperties)
	case KindArray:
		if len(n.PrefixItems) > 0 {
			prefix := make([]any, len(n.PrefixItems))
			for i, p := range n.PrefixItems {
				prefix[i] = ref(p)
			}
			out["prefixItems"] = prefix
		}
		if n.Items.Valid() {
			out["items"] = ref(n.Items)
		}
		setInt(out, "minItems", n.MinItems)
		setInt(out, "maxItems", n.MaxItems)
		if n.UniqueItems {
			out["uniqueItems"] = true
		}
	}
	return out
}

// exportDependencies splits dependencies into the 2020-12 dependentRequired
// and dependentSchemas keywords.
func exportDependencies(out map[string]any, deps []Dependency) {
	required := make(map[string]any)
	schemas := make(map[string]any)
	for _, d := range deps {
		if len(d.Required) > 0 {
			names := make([]any, len(d.Required))
			for i, name := range d.Required {
				names[i] = name
			}
			required[d.Trigger] = names
		}
		if d.Schema.Valid() {
			schemas[d.Trigger] = ref(d.Schema)
		}
	}
	if len(required) > 0 {
		out["dependentRequired"] = required
	}
	if len(schemas) > 0 {
		out["dependentSchemas"] = schemas
	}
}

func setInt(out map[string]any, key string, v *int) {
	if v != nil {
		out[key] = *v
	}
}

func containsNil(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}
