package resolver

import (
	"errors"
	"math"
	"regexp"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

// deref follows a chain of $ref objects to the first object that is not a
// reference. Plain objects are returned unchanged with their own key.
func (r *resolver) deref(raw any, key string) (map[string]any, string, error) {
	seen := map[string]bool{}
	for {
		m, ok := asMap(raw)
		if !ok {
			return nil, "", malformed(key, "expected an object")
		}
		refVal, isRef := m["$ref"]
		if !isRef {
			return m, key, nil
		}
		ref, ok := asString(refVal)
		if !ok {
			return nil, "", malformed(key, "$ref must be a string")
		}
		if seen[key] {
			return nil, "", malformed(key, "reference cycle without a definition")
		}
		seen[key] = true
		target, value, ok := lookupPointer(r.doc, ref)
		if !ok {
			return nil, "", unresolvable(key, ref)
		}
		raw, key = value, target
	}
}

// schemaAt returns the node for the schema at key, building it on first use.
// References resolve to the node of their target, never to a node of their own.
// A schema whose allOf parts are still being built is queued for settle and
// its id returned unfilled.
func (r *resolver) schemaAt(raw any, key string) (schema.NodeID, error) {
	if b, ok := asBool(raw); ok {
		if !b {
			return schema.NoNode, malformed(key, "the false schema admits no values")
		}
		raw = map[string]any{}
	}
	m, key, err := r.deref(raw, key)
	if err != nil {
		return schema.NoNode, err
	}
	id, existed := r.b.Reserve(key)
	if existed {
		return id, nil
	}
	if err := r.fill(id, m, key); err != nil {
		var wait *notReady
		if errors.As(err, &wait) {
			r.pending = append(r.pending, pending{id: id, m: m, key: key, blocked: wait.key})
			return id, nil
		}
		return schema.NoNode, err
	}
	r.b.MarkFilled(id)
	return id, nil
}

// notReady reports a schema that needs the content of another one still under
// construction. The location names the reference that could not be used yet.
type notReady struct{ key string }

func (e *notReady) Error() string { return "schema at " + e.key + " is still being built" }

type pending struct {
	id      schema.NodeID
	m       map[string]any
	key     string
	blocked string
}

// settle retries queued schemas until all are built. A round that builds
// nothing and queues nothing new leaves only schemas that wait on each other.
func (r *resolver) settle() error {
	for len(r.pending) > 0 {
		round := r.pending
		r.pending = nil
		var waiting []pending
		built := false
		for _, p := range round {
			if err := r.ctx.Err(); err != nil {
				return err
			}
			err := r.fill(p.id, p.m, p.key)
			var wait *notReady
			switch {
			case err == nil:
				r.b.MarkFilled(p.id)
				built = true
			case errors.As(err, &wait):
				p.blocked = wait.key
				waiting = append(waiting, p)
			default:
				return err
			}
		}
		if !built && len(r.pending) == 0 {
			return malformed(waiting[0].blocked, "circular allOf")
		}
		r.pending = append(r.pending, waiting...)
	}
	return nil
}

// fill builds the node content into a fresh node and publishes it only on
// success, so a schema queued by schemaAt can be filled again from scratch.
func (r *resolver) fill(id schema.NodeID, m map[string]any, key string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	allOf, hasAllOf := m["allOf"]
	if !hasAllOf {
		n := schema.NewNode(id, key)
		loose, err := r.populate(n, m, key)
		if err != nil {
			return err
		}
		r.b.Node(id).CopyFrom(n)
		r.loose[id] = loose
		return nil
	}
	parts, ok := allOf.([]any)
	if !ok || len(parts) == 0 {
		return malformed(child(key, "allOf"), "allOf must be a non-empty array")
	}

	merged := schema.NewNode(id, key)
	loose := true
	started := false
	if !annotationsOnly(m) {
		var err error
		if loose, err = r.populate(merged, m, key); err != nil {
			return err
		}
		started = true
	}
	for i, part := range parts {
		partKey := child(key, "allOf", itoa(i))
		pid, err := r.schemaAt(part, partKey)
		if err != nil {
			return err
		}
		if !r.b.Filled(pid) {
			return &notReady{key: partKey}
		}
		src := r.b.Node(pid)
		if !started {
			merged.CopyFrom(src)
			loose = r.loose[pid]
			started = true
			continue
		}
		if loose, err = r.merge(merged, loose, src, r.loose[pid], key); err != nil {
			return err
		}
	}
	if err := checkBounds(merged, key); err != nil {
		return err
	}

	// Annotations and nullable on the allOf object itself override its parts.
	if d, ok := asString(m["description"]); ok {
		merged.Description = d
	}
	if ex, ok := exampleOf(m); ok {
		merged.Example = ex
	}
	if def, ok := m["default"]; ok {
		merged.Default = def
	}
	if v, ok := asBool(m["nullable"]); ok && v {
		merged.Nullable = true
	}
	r.b.Node(id).CopyFrom(merged)
	r.loose[id] = loose
	return nil
}

var annotationKeys = map[string]bool{
	"allOf": true, "description": true, "title": true, "example": true,
	"examples": true, "default": true, "deprecated": true, "readOnly": true,
	"writeOnly": true, "externalDocs": true, "xml": true, "discriminator": true,
	"nullable": true,
}

// annotationsOnly reports whether an allOf object adds no constraints of its
// own beyond its parts.
func annotationsOnly(m map[string]any) bool {
	for k := range m {
		if !annotationKeys[k] && !isExtension(k) {
			return false
		}
	}
	return true
}

func isExtension(k string) bool { return len(k) > 2 && k[:2] == "x-" }

func exampleOf(m map[string]any) (any, bool) {
	if ex, ok := m["example"]; ok {
		return ex, true
	}
	if list, ok := m["examples"].([]any); ok && len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

// populate fills n from a schema object that carries no allOf. It reports
// whether the kind was defaulted.
func (r *resolver) populate(n *schema.Node, m map[string]any, key string) (bool, error) {
	loose, err := r.kind(n, m, key)
	if err != nil {
		return false, err
	}

	n.Description, _ = asString(m["description"])
	n.Example, _ = exampleOf(m)
	n.Default = m["default"]
	if v, ok := asBool(m["nullable"]); ok && v {
		n.Nullable = true
	}
	if v, ok := asBool(m["x-nullable"]); ok && v {
		n.Nullable = true
	}

	if alts, rule := compositionOf(m); rule != schema.CompositionNone {
		word := rule.String()
		list, ok := alts.([]any)
		if !ok || len(list) == 0 {
			return false, malformed(child(key, word), "%s must be a non-empty array", word)
		}
		n.Kind = schema.KindComposite
		n.Composition = rule
		n.Alternatives = make([]schema.NodeID, 0, len(list))
		shared := siblings(m)
		for i, alt := range list {
			altKey := child(key, word, itoa(i))
			aid, err := r.schemaAt(alt, altKey)
			if err != nil {
				return false, err
			}
			if len(shared) > 0 {
				if aid, err = r.narrow(aid, shared, key, altKey); err != nil {
					return false, err
				}
			}
			n.Alternatives = append(n.Alternatives, aid)
		}
		return false, nil
	}

	if err := r.stringConstraints(n, m, key); err != nil {
		return false, err
	}
	if err := numericConstraints(n, m, key); err != nil {
		return false, err
	}
	if err := r.enumConstraint(n, m, key); err != nil {
		return false, err
	}
	if err := r.objectConstraints(n, m, key); err != nil {
		return false, err
	}
	if err := r.arrayConstraints(n, m, key); err != nil {
		return false, err
	}
	return loose, checkBounds(n, key)
}

// siblings returns the constraints declared next to oneOf or anyOf. Every
// alternative must satisfy them as well.
func siblings(m map[string]any) map[string]any {
	var out map[string]any
	for k, v := range m {
		if k == "oneOf" || k == "anyOf" || annotationKeys[k] || isExtension(k) {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}

// narrow returns a node combining alternative alt with the shared constraints
// of its composition at key. The combined node lives at altKey/narrowed.
func (r *resolver) narrow(alt schema.NodeID, shared map[string]any, key, altKey string) (schema.NodeID, error) {
	if !r.b.Filled(alt) {
		return schema.NoNode, &notReady{key: altKey}
	}
	src := r.b.Node(alt)
	if t, ok := asString(shared["type"]); ok && len(shared) == 1 && !r.loose[alt] {
		if k, ok := schema.ParseKind(t); ok && k == src.Kind {
			return alt, nil
		}
	}
	nkey := child(altKey, "narrowed")
	id, existed := r.b.Reserve(nkey)
	if existed && r.b.Filled(id) {
		return id, nil
	}
	n := schema.NewNode(id, nkey)
	loose, err := r.populate(n, shared, key)
	if err != nil {
		return schema.NoNode, err
	}
	if loose, err = r.merge(n, loose, src, r.loose[alt], nkey); err != nil {
		return schema.NoNode, err
	}
	if err := checkBounds(n, nkey); err != nil {
		return schema.NoNode, err
	}
	r.b.Node(id).CopyFrom(n)
	r.loose[id] = loose
	r.b.MarkFilled(id)
	return id, nil
}

func compositionOf(m map[string]any) (any, schema.Composition) {
	if v, ok := m["oneOf"]; ok {
		return v, schema.CompositionOneOf
	}
	if v, ok := m["anyOf"]; ok {
		return v, schema.CompositionAnyOf
	}
	return nil, schema.CompositionNone
}

var (
	objectKeywords = []string{"properties", "additionalProperties", "required", "minProperties", "maxProperties",
		"patternProperties", "dependencies", "dependentRequired", "dependentSchemas"}
	arrayKeywords  = []string{"items", "prefixItems", "minItems", "maxItems", "uniqueItems"}
	stringKeywords = []string{"format", "pattern", "minLength", "maxLength"}
	numberKeywords = []string{"minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "multipleOf"}
)

func hasAny(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// kind sets n.Kind from "type", or infers it from the keywords present.
func (r *resolver) kind(n *schema.Node, m map[string]any, key string) (bool, error) {
	switch t := m["type"].(type) {
	case nil:
	case string:
		return false, r.setType(n, t, key)
	case []any:
		var declared []string
		for _, v := range t {
			s, ok := asString(v)
			if !ok {
				return false, malformed(child(key, "type"), "type entries must be strings")
			}
			if s == "null" {
				n.Nullable = true
				continue
			}
			declared = append(declared, s)
		}
		switch len(declared) {
		case 0:
			n.Kind = schema.KindNull
			return false, nil
		case 1:
			return false, r.setType(n, declared[0], key)
		}
		return false, malformed(child(key, "type"), "multiple non-null types are not supported")
	default:
		return false, malformed(child(key, "type"), "type must be a string or an array")
	}

	switch {
	case hasAny(m, objectKeywords):
		n.Kind = schema.KindObject
	case hasAny(m, arrayKeywords):
		n.Kind = schema.KindArray
	case hasAny(m, stringKeywords):
		n.Kind = schema.KindString
	case hasAny(m, numberKeywords):
		n.Kind = schema.KindNumber
	default:
		if k, ok := enumKind(m["enum"]); ok {
			n.Kind = k
			return false, nil
		}
		if c, ok := m["const"]; ok {
			if k, ok := enumKind([]any{c}); ok {
				n.Kind = k
				return false, nil
			}
		}
		n.Kind = schema.KindObject
		return true, nil
	}
	return false, nil
}

func (r *resolver) setType(n *schema.Node, t, key string) error {
	if t == "file" && r.family == family2 {
		n.Kind = schema.KindString
		n.Format = "binary"
		return nil
	}
	k, ok := schema.ParseKind(t)
	if !ok {
		return malformed(child(key, "type"), "unknown type %q", t)
	}
	n.Kind = k
	return nil
}

func enumKind(v any) (schema.Kind, bool) {
	list, ok := v.([]any)
	if !ok {
		return 0, false
	}
	for _, e := range list {
		switch x := e.(type) {
		case string:
			return schema.KindString, true
		case bool:
			return schema.KindBoolean, true
		case float64:
			if x == math.Trunc(x) {
				return schema.KindInteger, true
			}
			return schema.KindNumber, true
		case map[string]any:
			return schema.KindObject, true
		case []any:
			return schema.KindArray, true
		}
	}
	return 0, false
}

func (r *resolver) stringConstraints(n *schema.Node, m map[string]any, key string) error {
	if v, ok := m["format"]; ok {
		s, ok := asString(v)
		if !ok {
			return malformed(child(key, "format"), "format must be a string")
		}
		if n.Format == "" {
			n.Format = s
		}
	}
	if v, ok := m["pattern"]; ok {
		s, ok := asString(v)
		if !ok {
			return malformed(child(key, "pattern"), "pattern must be a string")
		}
		if _, err := regexp.Compile(s); err != nil {
			return &SpecError{Kind: KindMalformed, Location: child(key, "pattern"), Message: "invalid pattern", Cause: err}
		}
		n.Pattern = s
	}
	var err error
	if n.MinLength, err = countKeyword(m, "minLength", key); err != nil {
		return err
	}
	n.MaxLength, err = countKeyword(m, "maxLength", key)
	return err
}

func countKeyword(m map[string]any, name, key string) (*int, error) {
	v, ok := m[name]
	if !ok {
		return nil, nil
	}
	c, ok := asCount(v)
	if !ok {
		return nil, malformed(child(key, name), "%s must be a non-negative integer", name)
	}
	return &c, nil
}

func numericConstraints(n *schema.Node, m map[string]any, key string) error {
	for _, name := range []string{"minimum", "maximum"} {
		v, ok := m[name]
		if !ok {
			continue
		}
		f, ok := asFloat(v)
		if !ok {
			return malformed(child(key, name), "%s must be a number", name)
		}
		if name == "minimum" {
			n.Minimum = &f
		} else {
			n.Maximum = &f
		}
	}

	// exclusiveMinimum is a flag before 3.1 and a bound of its own after.
	if v, ok := m["exclusiveMinimum"]; ok {
		switch x := v.(type) {
		case bool:
			n.ExclusiveMinimum = x
		case float64:
			if n.Minimum == nil || x >= *n.Minimum {
				n.Minimum, n.ExclusiveMinimum = &x, true
			}
		default:
			return malformed(child(key, "exclusiveMinimum"), "exclusiveMinimum must be a boolean or a number")
		}
	}
	if v, ok := m["exclusiveMaximum"]; ok {
		switch x := v.(type) {
		case bool:
			n.ExclusiveMaximum = x
		case float64:
			if n.Maximum == nil || x <= *n.Maximum {
				n.Maximum, n.ExclusiveMaximum = &x, true
			}
		default:
			return malformed(child(key, "exclusiveMaximum"), "exclusiveMaximum must be a boolean or a number")
		}
	}
	if n.Minimum == nil {
		n.ExclusiveMinimum = false
	}
	if n.Maximum == nil {
		n.ExclusiveMaximum = false
	}

	if v, ok := m["multipleOf"]; ok {
		f, ok := asFloat(v)
		if !ok || f <= 0 {
			return malformed(child(key, "multipleOf"), "multipleOf must be a positive number")
		}
		n.MultipleOf = &f
	}
	return nil
}

func (r *resolver) enumConstraint(n *schema.Node, m map[string]any, key string) error {
	if c, ok := m["const"]; ok {
		n.Enum = []any{c}
		return nil
	}
	v, ok := m["enum"]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return malformed(child(key, "enum"), "enum must be a non-empty array")
	}
	n.Enum = list
	return nil
}

func (r *resolver) objectConstraints(n *schema.Node, m map[string]any, key string) error {
	if v, ok := m["properties"]; ok {
		props, ok := asMap(v)
		if !ok {
			return malformed(child(key, "properties"), "properties must be an object")
		}
		for _, name := range sortedKeys(props) {
			pid, err := r.schemaAt(props[name], child(key, "properties", name))
			if err != nil {
				return err
			}
			n.SetProperty(name, pid)
		}
	}
	if v, ok := m["required"]; ok {
		// Swagger 2.0 parameters reuse "required" as a flag; schemas never do.
		list, ok := v.([]any)
		if !ok {
			return malformed(child(key, "required"), "required must be an array of property names")
		}
		for _, item := range list {
			s, ok := asString(item)
			if !ok {
				return malformed(child(key, "required"), "required must be an array of property names")
			}
			if !n.IsRequired(s) {
				n.Required = append(n.Required, s)
			}
		}
	}
	switch v := m["additionalProperties"].(type) {
	case nil:
	case bool:
		n.ClosedProperties = !v
	case map[string]any:
		aid, err := r.schemaAt(v, child(key, "additionalProperties"))
		if err != nil {
			return err
		}
		n.AdditionalProperties = aid
	default:
		return malformed(child(key, "additionalProperties"), "additionalProperties must be a boolean or a schema")
	}
	if err := r.patternProperties(n, m, key); err != nil {
		return err
	}
	if err := r.dependencies(n, m, key); err != nil {
		return err
	}
	var err error
	if n.MinProperties, err = countKeyword(m, "minProperties", key); err != nil {
		return err
	}
	n.MaxProperties, err = countKeyword(m, "maxProperties", key)
	return err
}

func (r *resolver) patternProperties(n *schema.Node, m map[string]any, key string) error {
	v, ok := m["patternProperties"]
	if !ok {
		return nil
	}
	pats, ok := asMap(v)
	if !ok {
		return malformed(child(key, "patternProperties"), "patternProperties must be an object")
	}
	for _, pattern := range sortedKeys(pats) {
		at := child(key, "patternProperties", pattern)
		if _, err := regexp.Compile(pattern); err != nil {
			return &SpecError{Kind: KindMalformed, Location: at, Message: "invalid property pattern", Cause: err}
		}
		pid, err := r.schemaAt(pats[pattern], at)
		if err != nil {
			return err
		}
		n.SetPatternProperty(pattern, pid)
	}
	return nil
}

// dependencies reads the draft-4 "dependencies" keyword, whose entries are a
// list of property names or a schema, and its 2019-09 successors
// dependentRequired and dependentSchemas.
func (r *resolver) dependencies(n *schema.Node, m map[string]any, key string) error {
	for _, word := range []string{"dependencies", "dependentRequired", "dependentSchemas"} {
		v, ok := m[word]
		if !ok {
			continue
		}
		deps, ok := asMap(v)
		if !ok {
			return malformed(child(key, word), "%s must be an object", word)
		}
		for _, trigger := range sortedKeys(deps) {
			at := child(key, word, trigger)
			switch dep := deps[trigger].(type) {
			case []any:
				if word == "dependentSchemas" {
					return malformed(at, "dependentSchemas entries must be schemas")
				}
				names := make([]string, 0, len(dep))
				for _, item := range dep {
					name, ok := asString(item)
					if !ok {
						return malformed(at, "dependency must list property names")
					}
					if err := dependencyTarget(n, name, at); err != nil {
						return err
					}
					names = append(names, name)
				}
				n.AddDependency(trigger, names, schema.NoNode)
			default:
				if word == "dependentRequired" {
					return malformed(at, "dependentRequired entries must list property names")
				}
				sid, err := r.schemaAt(dep, at)
				if err != nil {
					return err
				}
				n.AddDependency(trigger, nil, sid)
			}
		}
	}
	return nil
}

// dependencyTarget rejects a dependency on a property a closed object can
// never carry.
func dependencyTarget(n *schema.Node, name, key string) error {
	if !n.ClosedProperties || n.AdditionalProperties.Valid() {
		return nil
	}
	if _, ok := n.Property(name); ok {
		return nil
	}
	for _, p := range n.PatternProperties {
		if re, err := regexp.Compile(p.Pattern); err == nil && re.MatchString(name) {
			return nil
		}
	}
	return malformed(key, "dependency names undeclared property %q of a closed object", name)
}

func (r *resolver) arrayConstraints(n *schema.Node, m map[string]any, key string) error {
	tuple := func(list []any, word string) error {
		for i, item := range list {
			pid, err := r.schemaAt(item, child(key, word, itoa(i)))
			if err != nil {
				return err
			}
			n.PrefixItems = append(n.PrefixItems, pid)
		}
		return nil
	}
	if v, ok := m["prefixItems"]; ok {
		list, ok := v.([]any)
		if !ok {
			return malformed(child(key, "prefixItems"), "prefixItems must be an array")
		}
		if err := tuple(list, "prefixItems"); err != nil {
			return err
		}
	}
	switch v := m["items"].(type) {
	case nil:
	case []any:
		if len(n.PrefixItems) > 0 {
			return malformed(child(key, "items"), "items array cannot be combined with prefixItems")
		}
		if err := tuple(v, "items"); err != nil {
			return err
		}
	case bool:
		// items: false closes a tuple; items: true leaves it open.
		if !v && len(n.PrefixItems) > 0 && n.MaxItems == nil {
			max := len(n.PrefixItems)
			n.MaxItems = &max
		}
	default:
		iid, err := r.schemaAt(v, child(key, "items"))
		if err != nil {
			return err
		}
		n.Items = iid
	}
	var err error
	if n.MinItems, err = countKeyword(m, "minItems", key); err != nil {
		return err
	}
	max, err := countKeyword(m, "maxItems", key)
	if err != nil {
		return err
	}
	if max != nil {
		n.MaxItems = max
	}
	if v, ok := asBool(m["uniqueItems"]); ok {
		n.UniqueItems = v
	}
	return nil
}

// checkBounds rejects constraint sets no value can satisfy.
func checkBounds(n *schema.Node, key string) error {
	inverted := func(lo, hi *int) bool { return lo != nil && hi != nil && *lo > *hi }
	switch {
	case inverted(n.MinLength, n.MaxLength):
		return malformed(key, "minLength %d exceeds maxLength %d", *n.MinLength, *n.MaxLength)
	case inverted(n.MinItems, n.MaxItems):
		return malformed(key, "minItems %d exceeds maxItems %d", *n.MinItems, *n.MaxItems)
	case inverted(n.MinProperties, n.MaxProperties):
		return malformed(key, "minProperties %d exceeds maxProperties %d", *n.MinProperties, *n.MaxProperties)
	}
	if n.Minimum != nil && n.Maximum != nil {
		lo, hi := *n.Minimum, *n.Maximum
		if lo > hi || (lo == hi && (n.ExclusiveMinimum || n.ExclusiveMaximum)) {
			return malformed(key, "minimum %v and maximum %v admit no value", lo, hi)
		}
	}
	return nil
}
