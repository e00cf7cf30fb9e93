package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

// ParamValues are the raw parameter values of one request.
type ParamValues struct {
	Path    map[string]string
	Query   url.Values
	Headers http.Header
	Cookies map[string]string
}

func (pv ParamValues) lookup(p schema.Parameter) ([]string, bool) {
	switch p.In {
	case schema.InPath:
		v, ok := pv.Path[p.Name]
		return []string{v}, ok
	case schema.InQuery:
		v, ok := pv.Query[p.Name]
		return v, ok && len(v) > 0
	case schema.InHeader:
		v := pv.Headers.Values(p.Name)
		return v, len(v) > 0
	case schema.InCookie:
		v, ok := pv.Cookies[p.Name]
		return []string{v}, ok
	}
	return nil, false
}

// ValidateParameters checks request parameters against their declarations.
// Raw strings are coerced to the declared kind before validation: "42" for
// an integer parameter, "a,b" or repeated query keys for an array.
// Body and formData parameters are not handled here.
func ValidateParameters(g *schema.Graph, params []schema.Parameter, values ParamValues) *Result {
	result := NewResult()
	for _, p := range params {
		raw, ok := values.lookup(p)
		if !ok {
			if p.Required {
				result.AddError(&FieldError{
					Field:    p.Name,
					Location: p.In,
					Code:     ErrCodeRequired,
					Message:  fmt.Sprintf("%s parameter '%s' is required", p.In, p.Name),
					Expected: "present",
				})
			}
			continue
		}
		if !p.Schema.Valid() {
			continue
		}
		value, err := coerce(g, p.Schema, raw)
		if err != nil {
			result.AddError(&FieldError{
				Field:    p.Name,
				Location: p.In,
				Code:     ErrCodeType,
				Message:  err.Error(),
				Received: strings.Join(raw, ","),
			})
			continue
		}
		if value == nil {
			continue
		}
		result.Merge(ValidateNode(g, p.Schema, value, AtLocation(p.In), AtPath(p.Name)))
	}
	return result
}

// coerce converts raw parameter strings to the JSON shape of node id. A nil
// value with no error means the kind is not checked (objects and
// compositions have no single string encoding).
func coerce(g *schema.Graph, id schema.NodeID, raw []string) (any, error) {
	n := g.Node(id)
	if n == nil {
		return nil, nil
	}
	if n.Kind == schema.KindArray {
		var parts []string
		for _, r := range raw {
			parts = append(parts, strings.Split(r, ",")...)
		}
		out := make([]any, 0, len(parts))
		for i, part := range parts {
			item := n.Items
			if i < len(n.PrefixItems) {
				item = n.PrefixItems[i]
			}
			if !item.Valid() {
				out = append(out, part)
				continue
			}
			v, err := coerce(g, item, []string{part})
			if err != nil {
				return nil, err
			}
			if v == nil {
				v = part
			}
			out = append(out, v)
		}
		return out, nil
	}

	s := raw[len(raw)-1]
	switch n.Kind {
	case schema.KindString:
		return s, nil
	case schema.KindInteger:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		return nil, fmt.Errorf("expected type 'integer', got %q", s)
	case schema.KindNumber:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("expected type 'number', got %q", s)
		}
		return f, nil
	case schema.KindBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("expected type 'boolean', got %q", s)
		}
		return b, nil
	}
	return nil, nil
}
