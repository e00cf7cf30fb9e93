package assembler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/schema"
)

// headers fills the declared response headers. Content-Type is owned by the
// media type and is never overridden by a declared header.
func (a *Assembler) headers(ctx context.Context, graph *schema.Graph, decl *schema.Response, scope generator.Scope, out *Response) error {
	for _, h := range decl.Headers {
		name := http.CanonicalHeaderKey(h.Name)
		if name == "Content-Type" {
			continue
		}
		if h.Static {
			out.Headers.Set(name, headerValue(h.Value))
			continue
		}
		if !h.Schema.Valid() {
			continue
		}
		res, err := a.gen.GenerateAt(ctx, graph, h.Schema, scope, "$header."+strings.ToLower(name))
		if err != nil {
			return err
		}
		out.Headers.Set(name, headerValue(res.Value))
		out.Degraded = append(out.Degraded, res.Degraded...)
	}
	return nil
}

// headerValue renders a value in the simple style: arrays are comma
// separated, objects are JSON.
func headerValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = headerValue(item)
		}
		return strings.Join(parts, ",")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
