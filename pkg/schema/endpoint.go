package schema

import (
	"fmt"
	"sort"
	"strconv"
)

// Parameter locations.
const (
	InPath     = "path"
	InQuery    = "query"
	InHeader   = "header"
	InCookie   = "cookie"
	InFormData = "formData"
)

// DefaultStatus is the response key used when no specific status matches.
const DefaultStatus = "default"

// Parameter is one declared operation parameter.
type Parameter struct {
	Name     string
	In       string
	Required bool
	Schema   NodeID
}

// Header is a declared response header. Static headers carry a fixed value
// taken from the document (example, default or first enum member).
type Header struct {
	Name   string
	Schema NodeID
	Static bool
	Value  any
}

// Response is a declared response for one status key.
type Response struct {
	// Status is the key as written in the document: "200", "2XX" or "default".
	Status      string
	Description string
	// Schema is NoNode when the response declares no body.
	Schema    NodeID
	MediaType string
	Headers   []Header
}

// HasBody reports whether the response declares a body schema.
func (r *Response) HasBody() bool { return r.Schema.Valid() }

// Endpoint is one (method, path) operation. Endpoints are immutable once the
// graph is built.
type Endpoint struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Parameters  []Parameter

	RequestBody      NodeID
	RequestMediaType string
	RequestRequired  bool

	Responses map[string]*Response
}

// ID is the stable identity of the endpoint, "METHOD /path/{param}".
func (e *Endpoint) ID() string { return e.Method + " " + e.Path }

// StatusKeys returns the declared response keys in ascending order, with
// range keys after concrete codes and "default" last.
func (e *Endpoint) StatusKeys() []string {
	keys := make([]string, 0, len(e.Responses))
	for k := range e.Responses {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return statusRank(keys[i]) < statusRank(keys[j]) })
	return keys
}

func statusRank(key string) int {
	if code, err := strconv.Atoi(key); err == nil {
		return code
	}
	if len(key) == 3 && key[1:] == "XX" && key[0] >= '1' && key[0] <= '5' {
		return 1000 + int(key[0]-'0')
	}
	return 2000
}

// LookupResponse resolves a concrete status code to its declared response:
// exact code first, then the "NXX" range, then "default".
func (e *Endpoint) LookupResponse(status int) (*Response, bool) {
	if r, ok := e.Responses[strconv.Itoa(status)]; ok {
		return r, true
	}
	if r, ok := e.Responses[fmt.Sprintf("%dXX", status/100)]; ok {
		return r, true
	}
	if r, ok := e.Responses[DefaultStatus]; ok {
		return r, true
	}
	return nil, false
}

// DefaultStatusCode picks the status served when the caller asks for none:
// the lowest declared 2xx, then 200 for "default", then the lowest declared code.
func (e *Endpoint) DefaultStatusCode() int {
	keys := e.StatusKeys()
	for _, k := range keys {
		if code, err := strconv.Atoi(k); err == nil && code >= 200 && code < 300 {
			return code
		}
	}
	for _, k := range keys {
		if k == "2XX" || k == DefaultStatus {
			return 200
		}
	}
	for _, k := range keys {
		if code, err := strconv.Atoi(k); err == nil {
			return code
		}
		if len(k) == 3 && k[1:] == "XX" {
			return int(k[0]-'0') * 100
		}
	}
	return 200
}
