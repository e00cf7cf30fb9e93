package resolver

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

var pathItemKeys = map[string]bool{
	"parameters": true, "summary": true, "description": true, "servers": true, "$ref": true,
}

func (r *resolver) paths() error {
	paths, _ := asMap(r.doc["paths"])
	prefix := ""
	if r.family == family2 {
		if bp, ok := asString(r.doc["basePath"]); ok {
			prefix = strings.TrimSuffix(bp, "/")
			if prefix != "" && !strings.HasPrefix(prefix, "/") {
				return malformed("#/basePath", "basePath must start with /")
			}
		}
	}

	for _, p := range sortedKeys(paths) {
		if isExtension(p) {
			continue
		}
		if err := r.ctx.Err(); err != nil {
			return err
		}
		itemKey := child("#/paths", p)
		if err := validateTemplate(p); err != nil {
			return malformed(itemKey, "%s", err.Error())
		}
		item, itemKey, err := r.deref(paths[p], itemKey)
		if err != nil {
			return err
		}
		for k := range item {
			if !pathItemKeys[k] && !isExtension(k) && !isMethod(k) {
				return malformed(child(itemKey, k), "unexpected key %q in path item", k)
			}
		}
		shared, err := r.parameters(item["parameters"], child(itemKey, "parameters"))
		if err != nil {
			return err
		}
		for _, method := range methods {
			raw, ok := item[method]
			if !ok {
				continue
			}
			opKey := child(itemKey, method)
			op, ok := asMap(raw)
			if !ok {
				return malformed(opKey, "operation must be an object")
			}
			ep, err := r.operation(prefix+p, strings.ToUpper(method), op, opKey, shared)
			if err != nil {
				return err
			}
			if !r.b.AddEndpoint(ep) {
				return malformed(opKey, "duplicate operation %s", ep.ID())
			}
		}
	}
	return nil
}

func isMethod(k string) bool {
	for _, m := range methods {
		if k == m {
			return true
		}
	}
	return false
}

// validateTemplate checks a path template: a leading slash and balanced,
// non-empty {name} segments.
func validateTemplate(p string) error {
	if !strings.HasPrefix(p, "/") {
		return errorString("path " + strconv.Quote(p) + " must start with /")
	}
	open := false
	start := 0
	for i, c := range p {
		switch c {
		case '{':
			if open {
				return errorString("nested { in path " + strconv.Quote(p))
			}
			open, start = true, i
		case '}':
			if !open {
				return errorString("unbalanced } in path " + strconv.Quote(p))
			}
			if i == start+1 {
				return errorString("empty parameter name in path " + strconv.Quote(p))
			}
			open = false
		}
	}
	if open {
		return errorString("unclosed { in path " + strconv.Quote(p))
	}
	return nil
}

type errorString string

func (e errorString) Error() string { return string(e) }

func (r *resolver) operation(path, method string, op map[string]any, key string, shared []schema.Parameter) (*schema.Endpoint, error) {
	ep := &schema.Endpoint{
		Method:      method,
		Path:        path,
		RequestBody: schema.NoNode,
		Responses:   make(map[string]*schema.Response),
	}
	ep.OperationID, _ = asString(op["operationId"])
	ep.Summary, _ = asString(op["summary"])

	own, err := r.parameters(op["parameters"], child(key, "parameters"))
	if err != nil {
		return nil, err
	}
	ep.Parameters = overrideParameters(shared, own)

	if r.family == family2 {
		if err := r.swaggerBody(ep, op, key); err != nil {
			return nil, err
		}
	} else if raw, ok := op["requestBody"]; ok {
		if err := r.requestBody(ep, raw, child(key, "requestBody")); err != nil {
			return nil, err
		}
	}

	responses, ok := asMap(op["responses"])
	if !ok || len(responses) == 0 {
		return nil, malformed(child(key, "responses"), "operation must declare at least one response")
	}
	produces := r.produces(op)
	for _, status := range sortedKeys(responses) {
		if isExtension(status) {
			continue
		}
		respKey := child(key, "responses", status)
		if !validStatusKey(status) {
			return nil, malformed(respKey, "invalid response status %q", status)
		}
		resp, err := r.response(status, responses[status], respKey, produces)
		if err != nil {
			return nil, err
		}
		ep.Responses[normalizeStatus(status)] = resp
	}
	return ep, nil
}

func validStatusKey(s string) bool {
	if s == schema.DefaultStatus {
		return true
	}
	if len(s) != 3 {
		return false
	}
	if strings.EqualFold(s[1:], "XX") {
		return s[0] >= '1' && s[0] <= '5'
	}
	code, err := strconv.Atoi(s)
	return err == nil && code >= 100 && code <= 599
}

func normalizeStatus(s string) string {
	if len(s) == 3 && strings.EqualFold(s[1:], "XX") {
		return s[:1] + "XX"
	}
	return s
}

// overrideParameters applies operation parameters over path-level ones,
// matching on name and location.
func overrideParameters(shared, own []schema.Parameter) []schema.Parameter {
	out := make([]schema.Parameter, 0, len(shared)+len(own))
	for _, p := range shared {
		replaced := false
		for _, o := range own {
			if o.Name == p.Name && o.In == p.In {
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return append(out, own...)
}

func (r *resolver) locations() map[string]bool {
	if r.family == family2 {
		return map[string]bool{schema.InPath: true, schema.InQuery: true, schema.InHeader: true, "body": true, schema.InFormData: true}
	}
	return map[string]bool{schema.InPath: true, schema.InQuery: true, schema.InHeader: true, schema.InCookie: true}
}

// parameters resolves one level of parameter declarations. Swagger body
// parameters are kept with location "body" so the operation can lift them
// into the request body.
func (r *resolver) parameters(raw any, key string) ([]schema.Parameter, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, malformed(key, "parameters must be an array")
	}
	allowed := r.locations()
	seen := make(map[string]bool)
	var out []schema.Parameter
	for i, item := range list {
		m, pkey, err := r.deref(item, child(key, itoa(i)))
		if err != nil {
			return nil, err
		}
		name, _ := asString(m["name"])
		in, _ := asString(m["in"])
		if name == "" {
			return nil, malformed(pkey, "parameter name is required")
		}
		if !allowed[in] {
			return nil, malformed(child(pkey, "in"), "invalid parameter location %q", in)
		}
		id := in + ":" + name
		if seen[id] {
			return nil, malformed(pkey, "duplicate parameter %q in %s", name, in)
		}
		seen[id] = true

		p := schema.Parameter{Name: name, In: in, Schema: schema.NoNode}
		p.Required, _ = asBool(m["required"])
		if in == schema.InPath {
			p.Required = true
		}
		switch {
		case m["schema"] != nil:
			if p.Schema, err = r.schemaAt(m["schema"], child(pkey, "schema")); err != nil {
				return nil, err
			}
		case m["content"] != nil:
			content, ok := asMap(m["content"])
			if !ok {
				return nil, malformed(child(pkey, "content"), "content must be an object")
			}
			if mt := preferMediaType(sortedKeys(content)); mt != "" {
				media, _ := asMap(content[mt])
				if media["schema"] != nil {
					if p.Schema, err = r.schemaAt(media["schema"], child(pkey, "content", mt, "schema")); err != nil {
						return nil, err
					}
				}
			}
		case r.family == family2 && m["type"] != nil:
			if p.Schema, err = r.schemaAt(inlineSchema(m), pkey); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}

var inlineSchemaKeys = []string{
	"type", "format", "items", "enum", "default", "minimum", "maximum",
	"exclusiveMinimum", "exclusiveMaximum", "minLength", "maxLength", "pattern",
	"minItems", "maxItems", "uniqueItems", "multipleOf", "x-nullable", "description", "example",
}

// inlineSchema extracts the schema keywords of a Swagger 2.0 parameter or
// header, whose other fields ("required", "in", "name") mean something else.
func inlineSchema(m map[string]any) map[string]any {
	out := make(map[string]any)
	for _, k := range inlineSchemaKeys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (r *resolver) swaggerBody(ep *schema.Endpoint, op map[string]any, key string) error {
	kept := ep.Parameters[:0]
	for _, p := range ep.Parameters {
		if p.In != "body" {
			kept = append(kept, p)
			continue
		}
		ep.RequestBody = p.Schema
		ep.RequestRequired = p.Required
		ep.RequestMediaType = preferMediaType(stringList(op["consumes"], r.doc["consumes"]))
		if ep.RequestMediaType == "" {
			ep.RequestMediaType = "application/json"
		}
		if !p.Schema.Valid() {
			return malformed(key, "body parameter %q declares no schema", p.Name)
		}
	}
	ep.Parameters = kept
	return nil
}

func (r *resolver) requestBody(ep *schema.Endpoint, raw any, key string) error {
	m, key, err := r.deref(raw, key)
	if err != nil {
		return err
	}
	ep.RequestRequired, _ = asBool(m["required"])
	content, _ := asMap(m["content"])
	mt := preferMediaType(sortedKeys(content))
	if mt == "" {
		return nil
	}
	ep.RequestMediaType = mt
	media, _ := asMap(content[mt])
	if media["schema"] == nil {
		return nil
	}
	ep.RequestBody, err = r.schemaAt(media["schema"], child(key, "content", mt, "schema"))
	return err
}

func (r *resolver) produces(op map[string]any) []string {
	if r.family != family2 {
		return nil
	}
	return stringList(op["produces"], r.doc["produces"])
}

// stringList returns the first of the candidate lists that is a non-empty
// string array.
func stringList(candidates ...any) []string {
	for _, c := range candidates {
		list, ok := c.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := asString(v); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// preferMediaType picks application/json, then any +json type, then the
// lexically first candidate.
func preferMediaType(types []string) string {
	if len(types) == 0 {
		return ""
	}
	sorted := append([]string(nil), types...)
	sort.Strings(sorted)
	for _, t := range sorted {
		if mediaBase(t) == "application/json" {
			return t
		}
	}
	for _, t := range sorted {
		if strings.HasSuffix(mediaBase(t), "+json") {
			return t
		}
	}
	return sorted[0]
}

func mediaBase(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}

func (r *resolver) response(status string, raw any, key string, produces []string) (*schema.Response, error) {
	m, key, err := r.deref(raw, key)
	if err != nil {
		return nil, err
	}
	resp := &schema.Response{Status: normalizeStatus(status), Schema: schema.NoNode}
	resp.Description, _ = asString(m["description"])

	if r.family == family2 {
		if m["schema"] != nil {
			if resp.Schema, err = r.schemaAt(m["schema"], child(key, "schema")); err != nil {
				return nil, err
			}
			resp.MediaType = preferMediaType(produces)
			if resp.MediaType == "" {
				resp.MediaType = "application/json"
			}
		}
	} else if content, ok := asMap(m["content"]); ok {
		if mt := preferMediaType(sortedKeys(content)); mt != "" {
			resp.MediaType = mt
			media, _ := asMap(content[mt])
			if media["schema"] != nil {
				if resp.Schema, err = r.schemaAt(media["schema"], child(key, "content", mt, "schema")); err != nil {
					return nil, err
				}
			}
		}
	}

	if resp.Headers, err = r.headers(m["headers"], child(key, "headers")); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *resolver) headers(raw any, key string) ([]schema.Header, error) {
	if raw == nil {
		return nil, nil
	}
	hm, ok := asMap(raw)
	if !ok {
		return nil, malformed(key, "headers must be an object")
	}
	var out []schema.Header
	for _, name := range sortedKeys(hm) {
		// Content-Type is decided by the media type, never by a header entry.
		if strings.EqualFold(name, "Content-Type") {
			continue
		}
		m, hkey, err := r.deref(hm[name], child(key, name))
		if err != nil {
			return nil, err
		}
		h := schema.Header{Name: name, Schema: schema.NoNode}
		switch {
		case r.family == family2:
			h.Schema, err = r.schemaAt(inlineSchema(m), hkey)
		case m["schema"] != nil:
			h.Schema, err = r.schemaAt(m["schema"], child(hkey, "schema"))
		default:
			h.Schema, err = r.schemaAt(map[string]any{"type": "string"}, hkey)
		}
		if err != nil {
			return nil, err
		}
		h.Value, h.Static = staticValue(m, r.b.Node(h.Schema))
		out = append(out, h)
	}
	return out, nil
}

// staticValue finds a fixed header value declared in the document: the
// header's own example, then the schema's example, default or first enum
// member.
func staticValue(m map[string]any, n *schema.Node) (any, bool) {
	if ex, ok := m["example"]; ok && ex != nil {
		return ex, true
	}
	if n == nil {
		return nil, false
	}
	switch {
	case n.Example != nil:
		return n.Example, true
	case n.Default != nil:
		return n.Default, true
	case len(n.Enum) > 0:
		return n.Enum[0], true
	}
	return nil, false
}
