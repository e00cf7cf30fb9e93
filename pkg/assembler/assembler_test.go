package assembler

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasquatch989/mockingj/pkg/cache"
	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/resolver"
	"github.com/sasquatch989/mockingj/pkg/schema"
	"github.com/sasquatch989/mockingj/pkg/validation"
)

const petstore = `
openapi: 3.0.3
info: {title: petstore, version: "1"}
paths:
  /pets/{id}:
    parameters:
      - {name: id, in: path, required: true, schema: {type: integer}}
    get:
      responses:
        "200":
          description: a pet
          headers:
            X-Rate-Limit:
              schema: {type: integer, example: 100}
            X-Request-Id:
              schema: {type: string, format: uuid}
            X-Tags:
              schema:
                type: array
                minItems: 2
                maxItems: 2
                items: {type: string, enum: [red]}
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Pet"}
        "404":
          description: missing
          content:
            application/problem+json:
              schema: {$ref: "#/components/schemas/Error"}
        5XX:
          description: broken
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Error"}
    delete:
      responses:
        "204": {description: gone}
        default:
          description: error
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Error"}
  /owner/pet:
    get:
      responses:
        "200":
          description: the owner's pet
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Pet"}
  /ping:
    get:
      responses:
        "200":
          description: pong
          content:
            text/plain:
              schema: {type: string, minLength: 4, maxLength: 4}
  /tree:
    get:
      responses:
        "200":
          description: a tree
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Tree"}
components:
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id: {type: integer, format: int64, minimum: 1}
        name: {type: string, maxLength: 12}
        tag: {type: string, enum: [dog, cat]}
    Error:
      type: object
      required: [code, message]
      properties:
        code: {type: integer, minimum: 400, maximum: 599}
        message: {type: string}
    Tree:
      type: object
      required: [child]
      properties:
        child: {$ref: "#/components/schemas/Tree"}
`

func setup(t *testing.T, opts ...Option) (*Assembler, *schema.Graph) {
	t.Helper()
	g, err := resolver.Resolve(context.Background(), []byte(petstore), resolver.Options{})
	require.NoError(t, err)
	gen := generator.New(generator.DefaultConfig(), generator.WithStore(cache.New(time.Minute)))
	return New(gen, opts...), g
}

func endpoint(t *testing.T, g *schema.Graph, method, path string) *schema.Endpoint {
	t.Helper()
	ep, ok := g.Endpoint(method, path)
	require.True(t, ok, "%s %s", method, path)
	return ep
}

func TestBuild_OK(t *testing.T) {
	a, g := setup(t)
	ep := endpoint(t, g, http.MethodGet, "/pets/{id}")

	resp, err := a.Build(context.Background(), g, ep, 200, "")
	require.NoError(t, err)

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/json", resp.Headers.Get("Content-Type"))
	assert.Equal(t, "100", resp.Headers.Get("X-Rate-Limit"))
	assert.Equal(t, "red,red", resp.Headers.Get("X-Tags"))
	_, err = uuid.Parse(resp.Headers.Get("X-Request-Id"))
	assert.NoError(t, err)
	assert.Empty(t, resp.Degraded)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	assert.Contains(t, body, "id")
	assert.Contains(t, body, "name")
	assert.GreaterOrEqual(t, body["id"].(float64), 1.0)

	pet, ok := g.Named("Pet")
	require.True(t, ok)
	v, err := validation.NewSchemaValidator(g, pet.ID, validation.LocationResponse)
	require.NoError(t, err)
	result := v.ValidateJSON(resp.Body)
	assert.True(t, result.Valid, "%v", result.Errors)
}

func TestBuild_Consistent(t *testing.T) {
	a, g := setup(t)
	ep := endpoint(t, g, http.MethodGet, "/pets/{id}")
	ctx := context.Background()

	first, err := a.Build(ctx, g, ep, 200, "alpha")
	require.NoError(t, err)
	second, err := a.Build(ctx, g, ep, 200, "alpha")
	require.NoError(t, err)
	assert.Equal(t, string(first.Body), string(second.Body))
	assert.Equal(t, first.Headers, second.Headers)

	other, err := a.Build(ctx, g, ep, 200, "beta")
	require.NoError(t, err)
	assert.NotEqual(t, first.Headers.Get("X-Request-Id"), other.Headers.Get("X-Request-Id"))
}

func TestBuild_StatusLookup(t *testing.T) {
	a, g := setup(t)
	get := endpoint(t, g, http.MethodGet, "/pets/{id}")
	del := endpoint(t, g, http.MethodDelete, "/pets/{id}")
	ctx := context.Background()

	tests := []struct {
		name        string
		ep          *schema.Endpoint
		status      int
		contentType string
		hasBody     bool
	}{
		{"exact", get, 404, "application/problem+json", true},
		{"range", get, 503, "application/json", true},
		{"no content", del, 204, DefaultMediaType, false},
		{"default", del, 409, "application/json", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := a.Build(ctx, g, tt.ep, tt.status, "")
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.contentType, resp.Headers.Get("Content-Type"))
			if tt.hasBody {
				assert.NotEmpty(t, resp.Body)
			} else {
				assert.Nil(t, resp.Body)
				assert.Nil(t, resp.Value)
			}
		})
	}
}

func TestBuild_UnknownStatus(t *testing.T) {
	a, g := setup(t)
	ep := endpoint(t, g, http.MethodGet, "/pets/{id}")

	_, err := a.Build(context.Background(), g, ep, 418, "")
	var ae *AssemblyError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, KindUnknownStatus, ae.Kind)
	assert.Equal(t, 418, ae.Status)
	assert.Equal(t, http.StatusBadRequest, ae.StatusCode())
	assert.Contains(t, ae.Error(), "GET /pets/{id}")
	assert.NotEmpty(t, ae.Hint())
}

func TestBuild_CacheScope(t *testing.T) {
	ctx := context.Background()
	for _, tt := range []struct {
		scope CacheScope
		same  bool
	}{
		{ScopeGlobal, true},
		{ScopeEndpoint, false},
	} {
		t.Run(string(tt.scope), func(t *testing.T) {
			a, g := setup(t, WithScope(tt.scope))
			one, err := a.Build(ctx, g, endpoint(t, g, http.MethodGet, "/pets/{id}"), 200, "s")
			require.NoError(t, err)
			two, err := a.Build(ctx, g, endpoint(t, g, http.MethodGet, "/owner/pet"), 200, "s")
			require.NoError(t, err)
			if tt.same {
				assert.Equal(t, string(one.Body), string(two.Body))
			} else {
				assert.NotEqual(t, string(one.Body), string(two.Body))
			}
		})
	}
}

func TestBuild_TextBody(t *testing.T) {
	a, g := setup(t)
	resp, err := a.Build(context.Background(), g, endpoint(t, g, http.MethodGet, "/ping"), 200, "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", resp.Headers.Get("Content-Type"))
	assert.Len(t, resp.Body, 4)
	assert.NotContains(t, string(resp.Body), `"`)
}

func TestBuild_DegradedBodyIsServed(t *testing.T) {
	a, g := setup(t)
	resp, err := a.Build(context.Background(), g, endpoint(t, g, http.MethodGet, "/tree"), 200, "")
	require.NoError(t, err)
	require.Len(t, resp.Degraded, 1)
	assert.Equal(t, generator.KindDepthExceeded, resp.Degraded[0].Kind)
}

func TestBuild_ValidationFailed(t *testing.T) {
	g, id, err := resolver.ResolveSchema([]byte(`{type: string, format: shout, pattern: "^[A-Z]+$"}`))
	require.NoError(t, err)
	gen := generator.New(generator.DefaultConfig())
	gen.RegisterFormat("shout", func(*rand.Rand, int, int) string { return "quiet" })

	ep := &schema.Endpoint{
		Method: http.MethodGet,
		Path:   "/shout",
		Responses: map[string]*schema.Response{
			"200": {Status: "200", Schema: id, MediaType: "application/json"},
		},
	}
	_, err = New(gen).Build(context.Background(), g, ep, 200, "")

	var ae *AssemblyError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, KindValidationFailed, ae.Kind)
	assert.Equal(t, "$", ae.Path)
	assert.Equal(t, http.StatusInternalServerError, ae.StatusCode())
	require.NotNil(t, ae.Result)
	assert.Equal(t, validation.ErrCodePattern, ae.Result.Errors[0].Code)
}

func TestBuild_Cancelled(t *testing.T) {
	a, g := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Build(ctx, g, endpoint(t, g, http.MethodGet, "/pets/{id}"), 200, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHeaderValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{true, "true"},
		{int64(42), "42"},
		{100.0, "100"},
		{2.5, "2.5"},
		{[]any{"a", int64(1)}, "a,1"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, headerValue(tt.in))
	}
}

func TestIsJSON(t *testing.T) {
	assert.True(t, IsJSON("application/json"))
	assert.True(t, IsJSON("application/problem+json; charset=utf-8"))
	assert.True(t, IsJSON("Application/JSON"))
	assert.False(t, IsJSON("text/plain"))
	assert.False(t, IsJSON("application/xml"))
}
