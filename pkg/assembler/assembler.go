package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/schema"
	"github.com/sasquatch989/mockingj/pkg/validation"
)

// CacheScope decides whether values of a shared schema are shared between
// endpoints.
type CacheScope string

const (
	ScopeGlobal   CacheScope = "global"
	ScopeEndpoint CacheScope = "endpoint"
)

// DefaultMediaType is used for responses that declare a body without a media
// type, and for bodiless responses.
const DefaultMediaType = "application/json"

// Response is an assembled mock response.
type Response struct {
	Status  int
	Headers http.Header
	// Body is the encoded payload, nil when the response declares none.
	Body []byte
	// Value is the generated body before encoding.
	Value    any
	Degraded []*generator.GenerationError
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithScope sets the cache scope. The default is ScopeGlobal.
func WithScope(s CacheScope) Option {
	return func(a *Assembler) { a.scope = s }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Assembler) { a.log = log }
}

// Assembler builds responses. It is safe for concurrent use.
type Assembler struct {
	gen   *generator.Generator
	scope CacheScope
	log   *slog.Logger
}

// New creates an Assembler around gen.
func New(gen *generator.Generator, opts ...Option) *Assembler {
	a := &Assembler{gen: gen, scope: ScopeGlobal, log: logging.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generator returns the underlying generator.
func (a *Assembler) Generator() *generator.Generator { return a.gen }

func (a *Assembler) scopeFor(ep *schema.Endpoint, scenario string) generator.Scope {
	s := generator.Scope{Scenario: scenario}
	if a.scope == ScopeEndpoint {
		s.Endpoint = ep.ID()
	}
	return s
}

// Build assembles the response declared by ep for status. Context errors are
// returned unchanged; unknown statuses and bodies that fail re-validation are
// returned as *AssemblyError.
func (a *Assembler) Build(ctx context.Context, graph *schema.Graph, ep *schema.Endpoint, status int, scenario string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decl, ok := ep.LookupResponse(status)
	if !ok {
		return nil, &AssemblyError{Kind: KindUnknownStatus, Endpoint: ep.ID(), Status: status}
	}

	scope := a.scopeFor(ep, scenario)
	out := &Response{Status: status, Headers: make(http.Header)}
	mediaType := decl.MediaType
	if mediaType == "" {
		mediaType = DefaultMediaType
	}

	if decl.HasBody() {
		res, err := a.gen.Generate(ctx, graph, decl.Schema, scope)
		if err != nil {
			return nil, err
		}
		check := validation.ValidateNode(graph, decl.Schema, res.Value,
			validation.SkipPaths(res.DegradedPaths()...))
		if !check.Valid {
			a.log.Error("generated response failed validation",
				"endpoint", ep.ID(),
				"status", status,
				"path", check.FirstPath(),
				"error", check.Error())
			return nil, &AssemblyError{
				Kind:     KindValidationFailed,
				Endpoint: ep.ID(),
				Status:   status,
				Path:     check.FirstPath(),
				Result:   check,
			}
		}
		body, err := encode(res.Value, mediaType)
		if err != nil {
			return nil, fmt.Errorf("encode %s response: %w", ep.ID(), err)
		}
		out.Body, out.Value, out.Degraded = body, res.Value, res.Degraded
	}
	out.Headers.Set("Content-Type", mediaType)

	if err := a.headers(ctx, graph, decl, scope, out); err != nil {
		return nil, err
	}
	return out, nil
}

// encode renders a body. Strings served as text are written raw.
func encode(v any, mediaType string) ([]byte, error) {
	if s, ok := v.(string); ok && strings.HasPrefix(mediaType, "text/") {
		return []byte(s), nil
	}
	return json.Marshal(v)
}

// IsJSON reports whether a media type carries JSON.
func IsJSON(mediaType string) bool {
	base, _, _ := strings.Cut(mediaType, ";")
	base = strings.TrimSpace(strings.ToLower(base))
	return base == "application/json" || strings.HasSuffix(base, "+json")
}
