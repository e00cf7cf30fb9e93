package resolver

import (
	"bytes"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// decode parses YAML or JSON into a tree of map[string]any, []any and scalars.
// Numbers are normalized to float64 and map keys to strings, so YAML
// documents and JSON documents produce identical trees.
func decode(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, malformed("", "document is empty")
	}
	var root any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &SpecError{Kind: KindMalformed, Message: "document is not valid YAML or JSON", Cause: err}
	}
	m, ok := normalize(root).(map[string]any)
	if !ok {
		return nil, malformed("", "document root must be an object")
	}
	return m, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// escapeToken escapes one JSON pointer reference token.
func escapeToken(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescapeToken(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

func child(key string, tokens ...string) string {
	var sb strings.Builder
	sb.WriteString(key)
	for _, t := range tokens {
		sb.WriteByte('/')
		sb.WriteString(escapeToken(t))
	}
	return sb.String()
}

// lookupPointer walks a local reference ("#/a/b") through the document. It
// returns the canonical key of the target alongside its value.
func lookupPointer(doc map[string]any, ref string) (string, any, bool) {
	if !strings.HasPrefix(ref, "#") {
		return "", nil, false
	}
	frag, err := url.PathUnescape(ref[1:])
	if err != nil {
		return "", nil, false
	}
	if frag == "" {
		return "#", doc, true
	}
	if !strings.HasPrefix(frag, "/") {
		return "", nil, false
	}
	key := "#"
	var cur any = doc
	for _, raw := range strings.Split(frag[1:], "/") {
		tok := unescapeToken(raw)
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[tok]
			if !ok {
				return "", nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(node) {
				return "", nil, false
			}
			cur = node[i]
		default:
			return "", nil, false
		}
		key = child(key, tok)
	}
	return key, cur, true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// asCount reads a non-negative whole number.
func asCount(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func quoteAny(v any) string {
	if v == nil {
		return "<missing>"
	}
	return strconv.Quote(fmt.Sprint(v))
}

func itoa(i int) string { return strconv.Itoa(i) }
