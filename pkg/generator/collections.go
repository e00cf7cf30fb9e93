package generator

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

const (
	// uniqueAttempts bounds regeneration of a duplicate array item.
	uniqueAttempts = 8
	// patternKeyAttempts bounds the names drawn for pattern-named keys.
	patternKeyAttempts = 8
	// cyclicOptionalDepth is the deepest level at which an optional
	// property referring to a cyclic schema is still expanded.
	cyclicOptionalDepth = 1
)

func (st *state) genObject(n *schema.Node, f frame, r *rand.Rand) (any, error) {
	obj := make(map[string]any, len(n.Properties))

	var optional []schema.Property
	for _, p := range n.Properties {
		child := f.property(p.Name)
		if !n.IsRequired(p.Name) {
			if !st.includeOptional(p, f, child) {
				optional = append(optional, p)
				continue
			}
		}
		v, err := st.generate(p.Node, child)
		if err != nil {
			return nil, err
		}
		for _, id := range matchingPatterns(n, p.Name) {
			if id != p.Node {
				st.degrade(KindUnsupportedConstraint, n, child,
					fmt.Sprintf("property %q is also constrained by a name pattern", p.Name))
				break
			}
		}
		obj[p.Name] = v
	}

	// Required names without a declared property.
	for _, name := range n.Required {
		if _, ok := obj[name]; ok {
			continue
		}
		if _, declared := n.Property(name); declared {
			continue
		}
		v, err := st.extra(n, name, f.property(name), r)
		if err != nil {
			return nil, err
		}
		obj[name] = v
	}

	// Map-like objects get a few generated keys, one per name pattern at least.
	if len(n.Properties) == 0 && (n.AdditionalProperties.Valid() || len(n.PatternProperties) > 0) {
		want := max(1, len(n.PatternProperties))
		if n.MinProperties != nil {
			want = max(want, *n.MinProperties)
		}
		if n.MaxProperties != nil {
			want = min(want, *n.MaxProperties)
		}
		if err := st.fillKeys(n, obj, f, r, want); err != nil {
			return nil, err
		}
	}

	if n.MinProperties != nil && len(obj) < *n.MinProperties {
		// Bring back excluded optional properties first, then free-form keys.
		for _, p := range optional {
			if len(obj) >= *n.MinProperties {
				break
			}
			v, err := st.generate(p.Node, f.property(p.Name))
			if err != nil {
				return nil, err
			}
			obj[p.Name] = v
		}
		if err := st.fillKeys(n, obj, f, r, *n.MinProperties); err != nil {
			return nil, err
		}
		if len(obj) < *n.MinProperties {
			st.degrade(KindUnsupportedConstraint, n, f,
				fmt.Sprintf("cannot produce %d properties", *n.MinProperties))
		}
	}

	if err := st.dependencies(n, obj, f, r); err != nil {
		return nil, err
	}

	if n.MaxProperties != nil && len(obj) > *n.MaxProperties {
		// Drop optional properties, last first.
		for i := len(n.Properties) - 1; i >= 0 && len(obj) > *n.MaxProperties; i-- {
			if name := n.Properties[i].Name; !n.IsRequired(name) && !dependedOn(n, obj, name) {
				delete(obj, name)
			}
		}
		if len(obj) > *n.MaxProperties {
			st.degrade(KindUnsupportedConstraint, n, f,
				fmt.Sprintf("%d required properties exceed maxProperties %d", len(obj), *n.MaxProperties))
		}
	}
	return obj, nil
}

func (st *state) includeOptional(p schema.Property, parent, child frame) bool {
	if !st.gen.cfg.Optional.Includes(child.props) {
		return false
	}
	if c := st.graph.Node(p.Node); c != nil && c.Cyclic && parent.depth >= cyclicOptionalDepth {
		return false
	}
	return true
}

// additional generates an undeclared property from additionalProperties, or
// a plain string when the object declares no schema for extra keys.
func (st *state) additional(n *schema.Node, f frame, r *rand.Rand) (any, error) {
	if n.AdditionalProperties.Valid() {
		return st.generate(n.AdditionalProperties, f)
	}
	return randomString(r, stringLength(r, 1, -1)), nil
}

// extra generates the undeclared key name: from the schema of the name
// pattern it matches, otherwise as an additional property.
func (st *state) extra(n *schema.Node, name string, f frame, r *rand.Rand) (any, error) {
	if ids := matchingPatterns(n, name); len(ids) > 0 {
		if len(ids) > 1 {
			st.degrade(KindUnsupportedConstraint, n, f,
				fmt.Sprintf("property %q matches %d name patterns", name, len(ids)))
		}
		return st.generate(ids[0], f)
	}
	return st.additional(n, f, r)
}

// fillKeys adds undeclared keys until obj holds want entries. Names are drawn
// from the name patterns first, then key1, key2 and so on unless the object
// is closed.
func (st *state) fillKeys(n *schema.Node, obj map[string]any, f frame, r *rand.Rand, want int) error {
	taken := func(name string) bool {
		_, inObj := obj[name]
		_, declared := n.Property(name)
		return inObj || declared
	}
	for i := 0; len(obj) < want && i < len(n.PatternProperties)*patternKeyAttempts; i++ {
		p := n.PatternProperties[i%len(n.PatternProperties)]
		name, ok := patternKey(r, p.Pattern, taken)
		if !ok || len(matchingPatterns(n, name)) != 1 {
			continue
		}
		v, err := st.generate(p.Node, f.property(name))
		if err != nil {
			return err
		}
		obj[name] = v
	}
	if n.ClosedProperties {
		return nil
	}
	for i := 1; len(obj) < want && i <= want+patternKeyAttempts; i++ {
		name := "key" + strconv.Itoa(i)
		if taken(name) || len(matchingPatterns(n, name)) > 0 {
			continue
		}
		v, err := st.additional(n, f.property(name), r)
		if err != nil {
			return err
		}
		obj[name] = v
	}
	return nil
}

// patternKey draws a key matching pattern that is not taken, appending a
// counter to a drawn name when the name alone collides.
func patternKey(r *rand.Rand, pattern string, taken func(string) bool) (string, bool) {
	re, err := compilePattern(pattern)
	if err != nil {
		return "", false
	}
	name, err := patternString(r, pattern, 1, -1)
	if err != nil {
		return "", false
	}
	if !taken(name) {
		return name, true
	}
	for i := 2; i <= patternKeyAttempts; i++ {
		if c := name + strconv.Itoa(i); re.MatchString(c) && !taken(c) {
			return c, true
		}
	}
	return "", false
}

// matchingPatterns returns the schemas of every name pattern matching name.
func matchingPatterns(n *schema.Node, name string) []schema.NodeID {
	var out []schema.NodeID
	for _, p := range n.PatternProperties {
		if re, err := compilePattern(p.Pattern); err == nil && re.MatchString(name) {
			out = append(out, p.Node)
		}
	}
	return out
}

// dependencies completes obj for every dependency whose trigger is present:
// listed names are added, and a dependent schema contributes the keys it
// generates that obj lacks.
func (st *state) dependencies(n *schema.Node, obj map[string]any, f frame, r *rand.Rand) error {
	for _, d := range n.Dependencies {
		if _, present := obj[d.Trigger]; !present {
			continue
		}
		for _, name := range d.Required {
			if _, ok := obj[name]; ok {
				continue
			}
			child := f.property(name)
			var v any
			var err error
			if id, declared := n.Property(name); declared {
				v, err = st.generate(id, child)
			} else {
				v, err = st.extra(n, name, child, r)
			}
			if err != nil {
				return err
			}
			obj[name] = v
		}
		if !d.Schema.Valid() {
			continue
		}
		dep := st.graph.Node(d.Schema)
		if dep == nil || dep.Kind != schema.KindObject {
			continue
		}
		for _, p := range dep.Properties {
			if _, ok := obj[p.Name]; ok || !dep.IsRequired(p.Name) {
				continue
			}
			v, err := st.generate(p.Node, f.property(p.Name))
			if err != nil {
				return err
			}
			obj[p.Name] = v
		}
	}
	return nil
}

// dependedOn reports whether name is listed by a dependency whose trigger is
// present in obj.
func dependedOn(n *schema.Node, obj map[string]any, name string) bool {
	for _, d := range n.Dependencies {
		if _, present := obj[d.Trigger]; present && slices.Contains(d.Required, name) {
			return true
		}
	}
	return false
}

func (st *state) genArray(n *schema.Node, f frame, r *rand.Rand) (any, error) {
	cfg := st.gen.cfg
	lo := 1
	if n.MinItems != nil {
		lo = max(*n.MinItems, lo)
	}
	hi := max(lo, cfg.ArrayMaxItems)
	if n.MaxItems != nil {
		hi = min(hi, *n.MaxItems)
		lo = min(lo, hi)
	}

	count := lo
	if item := st.graph.Node(n.Items); item == nil || !item.Cyclic {
		if hi > lo {
			count += r.IntN(hi - lo + 1)
		}
	}
	if !n.Items.Valid() && len(n.PrefixItems) > 0 && n.MaxItems == nil {
		count = max(lo, min(count, len(n.PrefixItems)))
	}

	out := make([]any, 0, count)
	seen := make(map[string]bool, count)
	for i := range count {
		id := n.Items
		if i < len(n.PrefixItems) {
			id = n.PrefixItems[i]
		}
		child := f.item(i)
		if !id.Valid() {
			out = append(out, randomString(r, stringLength(r, 1, -1)))
			continue
		}

		v, err := st.generate(id, child)
		if err != nil {
			return nil, err
		}
		if n.UniqueItems {
			key := canonicalKey(v)
			for attempt := 1; seen[key] && attempt <= uniqueAttempts; attempt++ {
				salted := child
				salted.salt = child.salt + "~" + strconv.Itoa(attempt)
				if v, err = st.generate(id, salted); err != nil {
					return nil, err
				}
				key = canonicalKey(v)
			}
			if seen[key] {
				st.degrade(KindUnsupportedConstraint, n, child,
					fmt.Sprintf("cannot produce %d unique items", count))
			}
			seen[key] = true
		}
		out = append(out, v)
	}
	return out, nil
}

// canonicalKey renders a value for uniqueness checks. Map keys are encoded
// sorted, so equal objects give equal keys.
func canonicalKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
