package validation

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"regexp"
	"slices"
	"sync"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

// NodeOption configures ValidateNode.
type NodeOption func(*nodeValidator)

// SkipPaths excludes instance paths (and everything below them) from
// validation. The assembler passes the paths the generator degraded.
func SkipPaths(paths ...string) NodeOption {
	return func(v *nodeValidator) {
		for _, p := range paths {
			v.skip[p] = true
		}
	}
}

// AtLocation sets the Location reported in field errors. Defaults to
// LocationResponse.
func AtLocation(location string) NodeOption {
	return func(v *nodeValidator) { v.location = location }
}

// AtPath sets the instance path of the value. Defaults to "$".
func AtPath(root string) NodeOption {
	return func(v *nodeValidator) { v.root = root }
}

type nodeValidator struct {
	g        *schema.Graph
	location string
	root     string
	skip     map[string]bool
}

// ValidateNode checks value against the schema node id of g. Values are the
// shapes produced by the generator or by encoding/json decoding: maps,
// slices, strings, bools, nil and any Go numeric type or json.Number.
func ValidateNode(g *schema.Graph, id schema.NodeID, value any, opts ...NodeOption) *Result {
	v := &nodeValidator{
		g:        g,
		location: LocationResponse,
		root:     schema.RootPath,
		skip:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	result := NewResult()
	v.check(id, value, v.root, result)
	return result
}

func (v *nodeValidator) check(id schema.NodeID, value any, path string, result *Result) {
	if v.skip[path] {
		return
	}
	n := v.g.Node(id)
	if n == nil {
		result.AddError(newSchemaError(path, v.location, fmt.Sprintf("unknown schema node %d", id)))
		return
	}

	if value == nil {
		if n.Nullable || n.Kind == schema.KindNull {
			return
		}
		if n.Kind != schema.KindComposite {
			result.AddError(newTypeError(path, v.location, n.Kind.String(), value))
			return
		}
	}

	if len(n.Enum) > 0 && !enumContains(n.Enum, value) {
		result.AddError(newEnumError(path, v.location, n.Enum, value))
	}

	switch n.Kind {
	case schema.KindComposite:
		v.checkComposite(n, value, path, result)
	case schema.KindString:
		s, ok := value.(string)
		if !ok {
			result.AddError(newTypeError(path, v.location, "string", value))
			return
		}
		v.checkString(n, s, path, result)
	case schema.KindInteger:
		f, ok := toFloat64(value)
		if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
			result.AddError(newTypeError(path, v.location, "integer", value))
			return
		}
		v.checkNumber(n, f, value, path, result)
	case schema.KindNumber:
		f, ok := toFloat64(value)
		if !ok {
			result.AddError(newTypeError(path, v.location, "number", value))
			return
		}
		v.checkNumber(n, f, value, path, result)
	case schema.KindBoolean:
		if _, ok := value.(bool); !ok {
			result.AddError(newTypeError(path, v.location, "boolean", value))
		}
	case schema.KindNull:
		result.AddError(newTypeError(path, v.location, "null", value))
	case schema.KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			result.AddError(newTypeError(path, v.location, "object", value))
			return
		}
		v.checkObject(n, obj, path, result)
	case schema.KindArray:
		arr, ok := value.([]any)
		if !ok {
			result.AddError(newTypeError(path, v.location, "array", value))
			return
		}
		v.checkArray(n, arr, path, result)
	}
}

// A composite value is valid when at least one alternative accepts it.
func (v *nodeValidator) checkComposite(n *schema.Node, value any, path string, result *Result) {
	for _, alt := range n.Alternatives {
		sub := NewResult()
		v.check(alt, value, path, sub)
		if sub.Valid {
			return
		}
	}
	result.AddError(&FieldError{
		Field:    path,
		Location: v.location,
		Code:     ErrCodeAlternatives,
		Message:  fmt.Sprintf("does not match any of the %d %s alternatives", len(n.Alternatives), n.Composition),
		Received: value,
	})
}

func (v *nodeValidator) checkString(n *schema.Node, s, path string, result *Result) {
	length := utf8.RuneCountInString(s)
	if n.MinLength != nil && length < *n.MinLength {
		result.AddError(&FieldError{
			Field:    path,
			Location: v.location,
			Code:     ErrCodeMinLength,
			Message:  fmt.Sprintf("must be at least %d characters", *n.MinLength),
			Received: s,
			Expected: fmt.Sprintf("minLength: %d", *n.MinLength),
		})
	}
	if n.MaxLength != nil && length > *n.MaxLength {
		result.AddError(&FieldError{
			Field:    path,
			Location: v.location,
			Code:     ErrCodeMaxLength,
			Message:  fmt.Sprintf("must be at most %d characters", *n.MaxLength),
			Received: s,
			Expected: fmt.Sprintf("maxLength: %d", *n.MaxLength),
		})
	}
	if n.Pattern != "" {
		re, err := compilePattern(n.Pattern)
		if err != nil {
			result.AddError(newSchemaError(path, v.location, fmt.Sprintf("invalid pattern %q: %v", n.Pattern, err)))
		} else if !re.MatchString(s) {
			result.AddError(newPatternError(path, v.location, n.Pattern, s))
		}
	}
	if n.Format != "" && !ValidateFormat(n.Format, s) {
		result.AddError(newFormatError(path, v.location, n.Format, s))
	}
}

func (v *nodeValidator) checkNumber(n *schema.Node, f float64, raw any, path string, result *Result) {
	if n.Minimum != nil {
		switch {
		case n.ExclusiveMinimum && f <= *n.Minimum:
			result.AddError(newBoundError(path, v.location, ErrCodeExclusiveMin, "greater than", *n.Minimum, raw))
		case !n.ExclusiveMinimum && f < *n.Minimum:
			result.AddError(newBoundError(path, v.location, ErrCodeMin, "greater than or equal to", *n.Minimum, raw))
		}
	}
	if n.Maximum != nil {
		switch {
		case n.ExclusiveMaximum && f >= *n.Maximum:
			result.AddError(newBoundError(path, v.location, ErrCodeExclusiveMax, "less than", *n.Maximum, raw))
		case !n.ExclusiveMaximum && f > *n.Maximum:
			result.AddError(newBoundError(path, v.location, ErrCodeMax, "less than or equal to", *n.Maximum, raw))
		}
	}
	if n.MultipleOf != nil && !isMultiple(f, *n.MultipleOf) {
		result.AddError(newBoundError(path, v.location, ErrCodeMultipleOf, "a multiple of", *n.MultipleOf, raw))
	}
}

func (v *nodeValidator) checkObject(n *schema.Node, obj map[string]any, path string, result *Result) {
	for _, name := range n.Required {
		if _, ok := obj[name]; !ok {
			result.AddError(newRequiredError(schema.PropertyPath(path, name), v.location, name))
		}
	}
	if n.MinProperties != nil && len(obj) < *n.MinProperties {
		result.AddError(newBoundError(path, v.location, ErrCodeMinProperties, "an object with at least", fmt.Sprintf("%d properties", *n.MinProperties), len(obj)))
	}
	if n.MaxProperties != nil && len(obj) > *n.MaxProperties {
		result.AddError(newBoundError(path, v.location, ErrCodeMaxProperties, "an object with at most", fmt.Sprintf("%d properties", *n.MaxProperties), len(obj)))
	}
	for _, d := range n.Dependencies {
		if _, present := obj[d.Trigger]; !present {
			continue
		}
		for _, name := range d.Required {
			if _, ok := obj[name]; !ok {
				result.AddError(newRequiredError(schema.PropertyPath(path, name), v.location, name))
			}
		}
		if d.Schema.Valid() && d.Schema != n.ID {
			v.check(d.Schema, obj, path, result)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(obj)) {
		child := schema.PropertyPath(path, name)
		id, declared := n.Property(name)
		if declared {
			v.check(id, obj[name], child, result)
		}
		matched := false
		for _, p := range n.PatternProperties {
			re, err := compilePattern(p.Pattern)
			if err != nil {
				result.AddError(newSchemaError(child, v.location, fmt.Sprintf("invalid property pattern %q: %v", p.Pattern, err)))
				continue
			}
			if !re.MatchString(name) {
				continue
			}
			matched = true
			if p.Node != id {
				v.check(p.Node, obj[name], child, result)
			}
		}
		if declared || matched {
			continue
		}
		switch {
		case n.AdditionalProperties.Valid():
			v.check(n.AdditionalProperties, obj[name], child, result)
		case n.ClosedProperties:
			result.AddError(&FieldError{
				Field:    child,
				Location: v.location,
				Code:     ErrCodeUnknownField,
				Message:  fmt.Sprintf("property '%s' is not allowed", name),
			})
		}
	}
}

func (v *nodeValidator) checkArray(n *schema.Node, arr []any, path string, result *Result) {
	if n.MinItems != nil && len(arr) < *n.MinItems {
		result.AddError(newBoundError(path, v.location, ErrCodeMinItems, "an array with at least", fmt.Sprintf("%d items", *n.MinItems), len(arr)))
	}
	if n.MaxItems != nil && len(arr) > *n.MaxItems {
		result.AddError(newBoundError(path, v.location, ErrCodeMaxItems, "an array with at most", fmt.Sprintf("%d items", *n.MaxItems), len(arr)))
	}
	for i, item := range arr {
		child := schema.ItemPath(path, i)
		switch {
		case i < len(n.PrefixItems):
			v.check(n.PrefixItems[i], item, child, result)
		case n.Items.Valid():
			v.check(n.Items, item, child, result)
		}
	}
	if n.UniqueItems {
		seen := make(map[string]int, len(arr))
		for i, item := range arr {
			if v.skip[schema.ItemPath(path, i)] {
				continue
			}
			key := canonical(item)
			if j, dup := seen[key]; dup {
				result.AddError(&FieldError{
					Field:    schema.ItemPath(path, i),
					Location: v.location,
					Code:     ErrCodeUniqueItems,
					Message:  fmt.Sprintf("duplicates item %d", j),
					Received: item,
				})
				continue
			}
			seen[key] = i
		}
	}
}

var patternCache sync.Map // string -> *regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func isMultiple(f, m float64) bool {
	if m <= 0 {
		return true
	}
	q := f / m
	return math.Abs(q-math.Round(q)) <= 1e-9*math.Max(1, math.Abs(q))
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if valuesEqual(e, value) {
			return true
		}
	}
	return false
}

// valuesEqual compares JSON values, treating every numeric representation of
// the same number as equal.
func valuesEqual(a, b any) bool {
	fa, aNum := toFloat64(a)
	fb, bNum := toFloat64(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !valuesEqual(x, y) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		// json.Number from either decoder
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// canonical renders a value as JSON for uniqueness checks. Maps are encoded
// with sorted keys, so equal objects produce equal strings.
func canonical(v any) string {
	if f, ok := toFloat64(v); ok {
		return fmt.Sprintf("n:%g", f)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

func jsonType(value any) string {
	if value == nil {
		return "null"
	}
	if _, ok := toFloat64(value); ok {
		return "number"
	}
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}
