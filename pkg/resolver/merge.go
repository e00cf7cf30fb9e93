package resolver

import (
	"math"
	"reflect"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

// merge folds src into dst as one more allOf part. The result satisfies both:
// properties and required names are unioned, the stricter bound wins and enums
// are intersected. It reports whether dst's kind is still defaulted.
func (r *resolver) merge(dst *schema.Node, dstLoose bool, src *schema.Node, srcLoose bool, key string) (bool, error) {
	loose, err := mergeKind(dst, dstLoose, src, srcLoose, key)
	if err != nil {
		return false, err
	}

	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Example == nil {
		dst.Example = src.Example
	}
	if dst.Default == nil {
		dst.Default = src.Default
	}
	dst.Nullable = dst.Nullable && src.Nullable

	if dst.Format, err = sameOrEmpty(dst.Format, src.Format, "format", key); err != nil {
		return false, err
	}
	if dst.Pattern, err = sameOrEmpty(dst.Pattern, src.Pattern, "pattern", key); err != nil {
		return false, err
	}

	dst.MinLength = maxInt(dst.MinLength, src.MinLength)
	dst.MaxLength = minInt(dst.MaxLength, src.MaxLength)
	dst.MinItems = maxInt(dst.MinItems, src.MinItems)
	dst.MaxItems = minInt(dst.MaxItems, src.MaxItems)
	dst.MinProperties = maxInt(dst.MinProperties, src.MinProperties)
	dst.MaxProperties = minInt(dst.MaxProperties, src.MaxProperties)
	dst.UniqueItems = dst.UniqueItems || src.UniqueItems
	dst.ClosedProperties = dst.ClosedProperties || src.ClosedProperties

	mergeLower(dst, src)
	mergeUpper(dst, src)
	if dst.MultipleOf, err = mergeMultipleOf(dst.MultipleOf, src.MultipleOf, key); err != nil {
		return false, err
	}

	if dst.Enum, err = intersectEnum(dst.Enum, src.Enum, key); err != nil {
		return false, err
	}
	for _, name := range src.Required {
		if !dst.IsRequired(name) {
			dst.Required = append(dst.Required, name)
		}
	}

	for _, p := range src.Properties {
		have, ok := dst.Property(p.Name)
		if !ok || have == p.Node {
			dst.SetProperty(p.Name, p.Node)
			continue
		}
		id, err := r.mergeChildren(have, p.Node, child(key, "allOf", p.Name))
		if err != nil {
			return false, err
		}
		dst.SetProperty(p.Name, id)
	}
	for _, p := range src.PatternProperties {
		have, ok := dst.PatternProperty(p.Pattern)
		id := p.Node
		if ok {
			if id, err = r.mergeChild(have, p.Node, child(key, "allOf", "patternProperties", p.Pattern)); err != nil {
				return false, err
			}
		}
		dst.SetPatternProperty(p.Pattern, id)
	}
	for _, d := range src.Dependencies {
		id := d.Schema
		if have, ok := dst.Dependency(d.Trigger); ok && have.Schema.Valid() {
			if id, err = r.mergeChild(have.Schema, d.Schema, child(key, "allOf", "dependencies", d.Trigger)); err != nil {
				return false, err
			}
			have.Schema = id
		}
		dst.AddDependency(d.Trigger, d.Required, id)
	}
	if dst.AdditionalProperties, err = r.mergeChild(dst.AdditionalProperties, src.AdditionalProperties,
		child(key, "allOf", "additionalProperties")); err != nil {
		return false, err
	}
	if dst.Items, err = r.mergeChild(dst.Items, src.Items, child(key, "allOf", "items")); err != nil {
		return false, err
	}
	switch {
	case len(src.PrefixItems) == 0:
	case len(dst.PrefixItems) == 0:
		dst.PrefixItems = append([]schema.NodeID(nil), src.PrefixItems...)
	case !reflect.DeepEqual(dst.PrefixItems, src.PrefixItems):
		return false, malformed(key, "allOf parts declare different prefixItems")
	}
	return loose, nil
}

func mergeKind(dst *schema.Node, dstLoose bool, src *schema.Node, srcLoose bool, key string) (bool, error) {
	switch {
	case srcLoose:
		return dstLoose, nil
	case dstLoose:
		if src.Kind == schema.KindComposite {
			dst.Composition = src.Composition
			dst.Alternatives = append([]schema.NodeID(nil), src.Alternatives...)
		}
		dst.Kind = src.Kind
		return false, nil
	case dst.Kind == src.Kind && dst.Kind != schema.KindComposite:
		return false, nil
	case isNumeric(dst.Kind) && isNumeric(src.Kind):
		dst.Kind = schema.KindInteger
		return false, nil
	case dst.Kind == schema.KindComposite || src.Kind == schema.KindComposite:
		return false, malformed(key, "allOf cannot combine oneOf/anyOf with other constraints")
	}
	return false, malformed(key, "allOf parts declare conflicting types %s and %s", dst.Kind, src.Kind)
}

func isNumeric(k schema.Kind) bool { return k == schema.KindInteger || k == schema.KindNumber }

func (r *resolver) mergeChild(a, b schema.NodeID, key string) (schema.NodeID, error) {
	switch {
	case !b.Valid() || a == b:
		return a, nil
	case !a.Valid():
		return b, nil
	}
	return r.mergeChildren(a, b, key)
}

// mergeChildren builds a synthetic node combining two child schemas that the
// same property (or items) receives from different allOf parts. Each pair is
// merged once; a pair met again while its merge is running yields the same
// node, which ends the regress through recursive schemas.
func (r *resolver) mergeChildren(a, b schema.NodeID, key string) (schema.NodeID, error) {
	pair := [2]schema.NodeID{a, b}
	id, seen := r.merged[pair]
	if seen && (r.b.Filled(id) || r.merging[id]) {
		return id, nil
	}
	for _, c := range pair {
		if !r.b.Filled(c) {
			return schema.NoNode, &notReady{key: key}
		}
	}
	if !seen {
		id = r.reserveSynthetic(key)
		r.merged[pair] = id
	}
	r.merging[id] = true
	defer delete(r.merging, id)

	n := schema.NewNode(id, r.b.Node(id).Key)
	n.CopyFrom(r.b.Node(a))
	loose, err := r.merge(n, r.loose[a], r.b.Node(b), r.loose[b], n.Key)
	if err != nil {
		return schema.NoNode, err
	}
	if err := checkBounds(n, n.Key); err != nil {
		return schema.NoNode, err
	}
	r.b.Node(id).CopyFrom(n)
	r.loose[id] = loose
	r.b.MarkFilled(id)
	return id, nil
}

// reserveSynthetic reserves a fresh node at key, suffixing the key when a
// third allOf part merges into an already synthetic child.
func (r *resolver) reserveSynthetic(key string) schema.NodeID {
	k := key
	for i := 1; ; i++ {
		id, existed := r.b.Reserve(k)
		if !existed {
			return id
		}
		k = child(key, itoa(i))
	}
}

func sameOrEmpty(a, b, word, key string) (string, error) {
	switch {
	case b == "" || a == b:
		return a, nil
	case a == "":
		return b, nil
	}
	return "", malformed(key, "allOf parts declare different %s values %q and %q", word, a, b)
}

func maxInt(a, b *int) *int {
	if a == nil || (b != nil && *b > *a) {
		return b
	}
	return a
}

func minInt(a, b *int) *int {
	if a == nil || (b != nil && *b < *a) {
		return b
	}
	return a
}

func mergeLower(dst, src *schema.Node) {
	switch {
	case src.Minimum == nil:
	case dst.Minimum == nil || *src.Minimum > *dst.Minimum:
		dst.Minimum, dst.ExclusiveMinimum = src.Minimum, src.ExclusiveMinimum
	case *src.Minimum == *dst.Minimum:
		dst.ExclusiveMinimum = dst.ExclusiveMinimum || src.ExclusiveMinimum
	}
}

func mergeUpper(dst, src *schema.Node) {
	switch {
	case src.Maximum == nil:
	case dst.Maximum == nil || *src.Maximum < *dst.Maximum:
		dst.Maximum, dst.ExclusiveMaximum = src.Maximum, src.ExclusiveMaximum
	case *src.Maximum == *dst.Maximum:
		dst.ExclusiveMaximum = dst.ExclusiveMaximum || src.ExclusiveMaximum
	}
}

func mergeMultipleOf(a, b *float64, key string) (*float64, error) {
	switch {
	case b == nil:
		return a, nil
	case a == nil || *a == *b:
		return b, nil
	}
	x, y := *a, *b
	if isWhole(x) && isWhole(y) {
		l := lcm(int64(x), int64(y))
		f := float64(l)
		return &f, nil
	}
	if y > x {
		x, y = y, x
	}
	if isWhole(x / y) {
		return &x, nil
	}
	return nil, malformed(key, "allOf parts declare incompatible multipleOf %v and %v", *a, *b)
}

func isWhole(f float64) bool { return f == math.Trunc(f) && !math.IsInf(f, 0) }

func lcm(a, b int64) int64 {
	g, h := a, b
	for h != 0 {
		g, h = h, g%h
	}
	return a / g * b
}

func intersectEnum(a, b []any, key string) ([]any, error) {
	switch {
	case len(b) == 0:
		return a, nil
	case len(a) == 0:
		return b, nil
	}
	var out []any
	for _, x := range a {
		for _, y := range b {
			if reflect.DeepEqual(x, y) {
				out = append(out, x)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, malformed(key, "allOf parts declare disjoint enums")
	}
	return out, nil
}
