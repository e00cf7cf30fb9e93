package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

const petstore = `
openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets:
    parameters:
      - name: limit
        in: query
        schema: {type: integer}
      - name: X-Trace
        in: header
        schema: {type: string}
    get:
      operationId: listPets
      parameters:
        - name: limit
          in: query
          required: true
          schema: {type: integer, maximum: 50}
      responses:
        "200":
          description: ok
          headers:
            X-Rate-Limit:
              schema: {type: integer, example: 100}
            X-Request-Id:
              schema: {type: string, format: uuid}
          content:
            text/plain:
              schema: {type: string}
            application/json:
              schema:
                type: array
                items: {$ref: '#/components/schemas/Pet'}
        4XX:
          $ref: '#/components/responses/Problem'
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema: {$ref: '#/components/schemas/Pet'}
      responses:
        "201":
          description: created
          content:
            application/json:
              schema: {$ref: '#/components/schemas/Pet'}
        "204":
          description: nothing
  /pets/{petId}:
    get:
      parameters:
        - name: petId
          in: path
          schema: {type: string}
      responses:
        default:
          description: the pet
          content:
            application/vnd.pet+json:
              schema: {$ref: '#/components/schemas/Pet'}
components:
  responses:
    Problem:
      description: problem
      content:
        application/problem+json:
          schema:
            type: object
            properties:
              title: {type: string}
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id: {type: integer, format: int64, minimum: 1}
        name: {type: string}
        tag: {type: string, enum: [a, b]}
        owner: {$ref: '#/components/schemas/Owner'}
    Owner:
      type: object
      properties:
        name: {type: string}
    Alias:
      $ref: '#/components/schemas/Owner'
`

func resolve(t *testing.T, doc string) *schema.Graph {
	t.Helper()
	g, err := Resolve(context.Background(), []byte(doc), Options{})
	require.NoError(t, err)
	return g
}

func TestResolve_OpenAPI3(t *testing.T) {
	g := resolve(t, petstore)

	assert.Equal(t, "3.0.3", g.Version())
	assert.Equal(t, "Petstore", g.Title())
	assert.Equal(t, []string{"Alias", "Owner", "Pet"}, g.Names())

	pet, ok := g.Named("Pet")
	require.True(t, ok)
	assert.Equal(t, "#/components/schemas/Pet", pet.Key)
	assert.Equal(t, schema.KindObject, pet.Kind)
	assert.Equal(t, []string{"id", "name"}, pet.Required)

	alias, ok := g.Named("Alias")
	require.True(t, ok)
	owner, _ := g.Named("Owner")
	assert.Equal(t, owner.ID, alias.ID, "a pure $ref component shares its target's node")
	assert.Equal(t, "Owner", owner.Name)

	ids := make([]string, 0)
	for _, ep := range g.Endpoints() {
		ids = append(ids, ep.ID())
	}
	assert.Equal(t, []string{"GET /pets", "POST /pets", "GET /pets/{petId}"}, ids)

	list, ok := g.Endpoint("GET", "/pets")
	require.True(t, ok)
	assert.Equal(t, "listPets", list.OperationID)
	require.Len(t, list.Parameters, 2)
	assert.Equal(t, "X-Trace", list.Parameters[0].Name)
	assert.Equal(t, "limit", list.Parameters[1].Name)
	assert.True(t, list.Parameters[1].Required)
	limit := g.Node(list.Parameters[1].Schema)
	require.NotNil(t, limit.Maximum)
	assert.Equal(t, 50.0, *limit.Maximum)

	ok200 := list.Responses["200"]
	require.NotNil(t, ok200)
	assert.Equal(t, "application/json", ok200.MediaType)
	arr := g.Node(ok200.Schema)
	assert.Equal(t, schema.KindArray, arr.Kind)
	assert.Equal(t, pet.ID, arr.Items)

	require.Len(t, ok200.Headers, 2)
	assert.Equal(t, "X-Rate-Limit", ok200.Headers[0].Name)
	assert.True(t, ok200.Headers[0].Static)
	assert.Equal(t, 100.0, ok200.Headers[0].Value)
	assert.False(t, ok200.Headers[1].Static)

	problem := list.Responses["4XX"]
	require.NotNil(t, problem)
	assert.Equal(t, "application/problem+json", problem.MediaType)

	create, ok := g.Endpoint("POST", "/pets")
	require.True(t, ok)
	assert.Equal(t, pet.ID, create.RequestBody)
	assert.True(t, create.RequestRequired)
	assert.Equal(t, pet.ID, create.Responses["201"].Schema)
	assert.False(t, create.Responses["204"].HasBody())

	byID, ok := g.Endpoint("GET", "/pets/{petId}")
	require.True(t, ok)
	assert.True(t, byID.Parameters[0].Required, "path parameters are always required")
	assert.Equal(t, "application/vnd.pet+json", byID.Responses["default"].MediaType)
	assert.Equal(t, pet.ID, byID.Responses["default"].Schema)
}

func TestResolve_SharedReferenceAcrossEndpoints(t *testing.T) {
	g := resolve(t, petstore)
	create, _ := g.Endpoint("POST", "/pets")
	byID, _ := g.Endpoint("GET", "/pets/{petId}")
	assert.Equal(t, create.Responses["201"].Schema, byID.Responses["default"].Schema)
}

const swagger = `
swagger: "2.0"
info: {title: Legacy, version: "1"}
basePath: /v1/
produces: [application/xml, application/json]
paths:
  /users/{id}:
    parameters:
      - {name: id, in: path, required: true, type: string, format: uuid}
    put:
      consumes: [application/json]
      parameters:
        - name: body
          in: body
          required: true
          schema: {$ref: '#/definitions/User'}
        - {name: verbose, in: query, type: boolean}
      responses:
        200:
          description: ok
          schema: {$ref: '#/definitions/User'}
          headers:
            X-Version: {type: string, default: v1}
        404:
          description: missing
definitions:
  User:
    type: object
    properties:
      id: {type: string, format: uuid}
      nickname: {type: string, x-nullable: true}
      avatar: {type: file}
`

func TestResolve_Swagger2(t *testing.T) {
	g := resolve(t, swagger)
	assert.Equal(t, "2.0", g.Version())

	ep, ok := g.Endpoint("PUT", "/v1/users/{id}")
	require.True(t, ok)
	user, _ := g.Named("User")
	assert.Equal(t, "#/definitions/User", user.Key)
	assert.Equal(t, user.ID, ep.RequestBody)
	assert.True(t, ep.RequestRequired)
	assert.Equal(t, "application/json", ep.RequestMediaType)

	require.Len(t, ep.Parameters, 2)
	assert.Equal(t, "id", ep.Parameters[0].Name)
	idSchema := g.Node(ep.Parameters[0].Schema)
	assert.Equal(t, schema.KindString, idSchema.Kind)
	assert.Equal(t, "uuid", idSchema.Format)
	assert.Equal(t, schema.KindBoolean, g.Node(ep.Parameters[1].Schema).Kind)

	ok200 := ep.Responses["200"]
	require.NotNil(t, ok200)
	assert.Equal(t, "application/json", ok200.MediaType)
	assert.Equal(t, user.ID, ok200.Schema)
	require.Len(t, ok200.Headers, 1)
	assert.Equal(t, "v1", ok200.Headers[0].Value)
	assert.False(t, ep.Responses["404"].HasBody())

	nick, _ := user.Property("nickname")
	assert.True(t, g.Node(nick).Nullable)
	avatar, _ := user.Property("avatar")
	assert.Equal(t, "binary", g.Node(avatar).Format)
}

func TestResolve_AllOfMerge(t *testing.T) {
	g := resolve(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Base:
      type: object
      required: [id]
      properties:
        id: {type: integer, minimum: 0, maximum: 100}
        kind: {type: string, enum: [a, b, c]}
    Derived:
      allOf:
        - $ref: '#/components/schemas/Base'
        - type: object
          required: [name]
          properties:
            id: {type: integer, minimum: 10}
            kind: {enum: [b, c, d]}
            name: {type: string}
`)
	d, ok := g.Named("Derived")
	require.True(t, ok)
	assert.Equal(t, schema.KindObject, d.Kind)
	assert.ElementsMatch(t, []string{"id", "name"}, d.Required)
	assert.Len(t, d.Properties, 3)

	idID, _ := d.Property("id")
	id := g.Node(idID)
	assert.Equal(t, "#/components/schemas/Derived/allOf/id", id.Key)
	assert.Equal(t, 10.0, *id.Minimum)
	assert.Equal(t, 100.0, *id.Maximum)

	kindID, _ := d.Property("kind")
	assert.Equal(t, []any{"b", "c"}, g.Node(kindID).Enum)

	base, _ := g.Named("Base")
	baseID, _ := base.Property("id")
	assert.Equal(t, 0.0, *g.Node(baseID).Minimum, "merging never mutates the parts")
}

func TestResolve_NullableAllOfReference(t *testing.T) {
	g := resolve(t, `
openapi: 3.0.1
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Owner: {type: object, properties: {name: {type: string}}}
    Pet:
      type: object
      properties:
        owner:
          nullable: true
          allOf: [{$ref: '#/components/schemas/Owner'}]
`)
	pet, _ := g.Named("Pet")
	ownerID, _ := pet.Property("owner")
	owner := g.Node(ownerID)
	assert.True(t, owner.Nullable)
	_, ok := owner.Property("name")
	assert.True(t, ok)
}

func TestResolve_AllOfMutualReference(t *testing.T) {
	g := resolve(t, `
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Employee:
      type: object
      required: [id]
      properties:
        id: {type: integer}
        manager: {$ref: '#/components/schemas/Manager'}
    Manager:
      allOf:
        - $ref: '#/components/schemas/Employee'
        - type: object
          properties:
            reports:
              type: array
              items: {$ref: '#/components/schemas/Employee'}
    Team:
      allOf:
        - $ref: '#/components/schemas/Lead'
    Lead:
      type: object
      properties:
        team: {$ref: '#/components/schemas/Roster'}
    Roster:
      allOf:
        - $ref: '#/components/schemas/Team'
        - {type: object, required: [size], properties: {size: {type: integer}}}
`)
	employee, ok := g.Named("Employee")
	require.True(t, ok)
	manager, ok := g.Named("Manager")
	require.True(t, ok)
	assert.Equal(t, schema.KindObject, manager.Kind)
	assert.Equal(t, []string{"id"}, manager.Required)
	for _, name := range []string{"id", "manager", "reports"} {
		_, ok := manager.Property(name)
		assert.True(t, ok, name)
	}
	mgrID, _ := employee.Property("manager")
	assert.Equal(t, manager.ID, mgrID)
	assert.True(t, manager.Cyclic || employee.Cyclic)

	roster, ok := g.Named("Roster")
	require.True(t, ok)
	_, ok = roster.Property("team")
	assert.True(t, ok)
	assert.True(t, roster.IsRequired("size"))
}

func TestResolve_AllOfThreePartsShareProperty(t *testing.T) {
	g := resolve(t, `
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Bounded:
      allOf:
        - {type: object, properties: {n: {type: integer, minimum: 1}}}
        - {type: object, properties: {n: {type: integer, maximum: 9}}}
        - {type: object, properties: {n: {type: integer, multipleOf: 3}}}
`)
	b, _ := g.Named("Bounded")
	nID, _ := b.Property("n")
	n := g.Node(nID)
	require.NotNil(t, n.Minimum)
	require.NotNil(t, n.Maximum)
	require.NotNil(t, n.MultipleOf)
	assert.Equal(t, 1.0, *n.Minimum)
	assert.Equal(t, 9.0, *n.Maximum)
	assert.Equal(t, 3.0, *n.MultipleOf)
}

func TestResolve_CompositionSiblingConstraints(t *testing.T) {
	g := resolve(t, `
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Cat: {type: object, properties: {meow: {type: boolean}}}
    Dog: {type: object, properties: {bark: {type: boolean}}}
    Keyed:
      type: object
      required: [id]
      properties:
        id: {type: string}
      oneOf:
        - {required: [a], properties: {a: {type: integer}}}
        - {required: [b], properties: {b: {type: integer}}}
    Pet:
      type: object
      oneOf:
        - $ref: '#/components/schemas/Cat'
        - $ref: '#/components/schemas/Dog'
`)
	keyed, _ := g.Named("Keyed")
	require.Equal(t, schema.KindComposite, keyed.Kind)
	require.Len(t, keyed.Alternatives, 2)
	for i, want := range []string{"a", "b"} {
		alt := g.Node(keyed.Alternatives[i])
		assert.Equal(t, schema.KindObject, alt.Kind)
		assert.True(t, alt.IsRequired("id"), "alternative %d", i)
		assert.True(t, alt.IsRequired(want), "alternative %d", i)
		_, ok := alt.Property("id")
		assert.True(t, ok)
	}

	// A bare type next to references leaves the named alternatives as they are.
	pet, _ := g.Named("Pet")
	cat, _ := g.Named("Cat")
	assert.Equal(t, cat.ID, pet.Alternatives[0])
}

func TestResolve_CompositionAndCycles(t *testing.T) {
	g := resolve(t, `
openapi: 3.1.0
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Tree:
      type: object
      properties:
        value: {type: [integer, "null"], exclusiveMinimum: 0}
        children:
          type: array
          items: {$ref: '#/components/schemas/Tree'}
    Shape:
      oneOf:
        - {type: object, properties: {radius: {type: number}}}
        - {type: object, properties: {side: {type: number}}}
`)
	tree, _ := g.Named("Tree")
	assert.True(t, tree.Cyclic)

	valueID, _ := tree.Property("value")
	value := g.Node(valueID)
	assert.Equal(t, schema.KindInteger, value.Kind)
	assert.True(t, value.Nullable)
	assert.True(t, value.ExclusiveMinimum)
	assert.Equal(t, 0.0, *value.Minimum)

	shape, _ := g.Named("Shape")
	assert.Equal(t, schema.KindComposite, shape.Kind)
	assert.Equal(t, schema.CompositionOneOf, shape.Composition)
	assert.Len(t, shape.Alternatives, 2)
	assert.False(t, shape.Cyclic)
}

func TestResolve_UnquotedVersion(t *testing.T) {
	tests := []struct {
		doc     string
		version string
	}{
		{"swagger: 2.0\ninfo: {title: t}\npaths: {}\n", "2.0"},
		{"openapi: 3.0\ninfo: {title: t}\npaths: {}\n", "3.0"},
		{"openapi: 3.1\ninfo: {title: t}\npaths: {}\n", "3.1"},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			g := resolve(t, tt.doc)
			assert.Equal(t, tt.version, g.Version())
		})
	}
}

func TestResolve_PatternPropertiesAndDependencies(t *testing.T) {
	g := resolve(t, `
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Order:
      type: object
      properties:
        card: {type: string}
        billing: {type: string}
      patternProperties:
        "^x-": {type: string}
      dependencies:
        card: [billing]
        shipping:
          required: [zip]
          properties: {zip: {type: string}}
    Extended:
      allOf:
        - $ref: '#/components/schemas/Order'
        - type: object
          patternProperties:
            "^n_": {type: integer}
          dependentRequired:
            card: [cvv]
`)
	order, _ := g.Named("Order")
	assert.Equal(t, schema.KindObject, order.Kind)
	pid, ok := order.PatternProperty("^x-")
	require.True(t, ok)
	assert.Equal(t, schema.KindString, g.Node(pid).Kind)

	card, ok := order.Dependency("card")
	require.True(t, ok)
	assert.Equal(t, []string{"billing"}, card.Required)
	assert.False(t, card.Schema.Valid())
	shipping, ok := order.Dependency("shipping")
	require.True(t, ok)
	require.True(t, shipping.Schema.Valid())
	assert.True(t, g.Node(shipping.Schema).IsRequired("zip"))

	ext, _ := g.Named("Extended")
	assert.Len(t, ext.PatternProperties, 2)
	card, ok = ext.Dependency("card")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"billing", "cvv"}, card.Required)
}

func TestResolve_Errors(t *testing.T) {
	const head = "openapi: 3.0.0\ninfo: {title: t, version: '1'}\n"
	tests := []struct {
		name string
		doc  string
		kind ErrorKind
	}{
		{"empty document", "", KindMalformed},
		{"not an object", "- 1\n- 2\n", KindMalformed},
		{"unsupported swagger", "swagger: '1.2'\ninfo: {}\npaths: {}\n", KindUnsupportedVersion},
		{"unsupported openapi", "openapi: 4.0.0\ninfo: {}\npaths: {}\n", KindUnsupportedVersion},
		{"no version", "info: {}\npaths: {}\n", KindUnsupportedVersion},
		{"unquoted unsupported openapi", "openapi: 2.5\ninfo: {}\npaths: {}\n", KindUnsupportedVersion},
		{"missing info", "openapi: 3.0.0\npaths: {}\n", KindMalformed},
		{"missing paths", "openapi: 3.0.0\ninfo: {title: t}\n", KindMalformed},
		{"unresolvable ref", head + `paths:
  /a:
    get:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {$ref: '#/components/schemas/Missing'}
`, KindUnresolvableReference},
		{"external ref", head + `paths: {}
components:
  schemas:
    A: {$ref: 'other.yaml#/A'}
`, KindUnresolvableReference},
		{"reference loop", head + `paths: {}
components:
  schemas:
    A: {$ref: '#/components/schemas/B'}
    B: {$ref: '#/components/schemas/A'}
`, KindMalformed},
		{"bad path template", head + "paths:\n  /a/{:\n    get: {responses: {'200': {description: ok}}}\n", KindMalformed},
		{"path without slash", head + "paths:\n  a:\n    get: {responses: {'200': {description: ok}}}\n", KindMalformed},
		{"unknown path item key", head + "paths:\n  /a:\n    fetch: {}\n", KindMalformed},
		{"no responses", head + "paths:\n  /a:\n    get: {}\n", KindMalformed},
		{"invalid status", head + "paths:\n  /a:\n    get: {responses: {'700': {description: x}}}\n", KindMalformed},
		{"duplicate parameter", head + `paths:
  /a:
    get:
      parameters:
        - {name: q, in: query}
        - {name: q, in: query}
      responses: {'200': {description: ok}}
`, KindMalformed},
		{"bad parameter location", head + `paths:
  /a:
    get:
      parameters: [{name: q, in: body}]
      responses: {'200': {description: ok}}
`, KindMalformed},
		{"allOf type conflict", head + `paths: {}
components:
  schemas:
    A:
      allOf: [{type: string}, {type: object}]
`, KindMalformed},
		{"allOf disjoint enums", head + `paths: {}
components:
  schemas:
    A:
      allOf: [{enum: [a]}, {enum: [b]}]
`, KindMalformed},
		{"allOf inverted bounds", head + `paths: {}
components:
  schemas:
    A:
      allOf: [{type: integer, minimum: 10}, {type: integer, maximum: 5}]
`, KindMalformed},
		{"circular allOf", head + `paths: {}
components:
  schemas:
    A:
      allOf: [{$ref: '#/components/schemas/B'}]
    B:
      allOf: [{$ref: '#/components/schemas/A'}]
`, KindMalformed},
		{"circular allOf through a property", head + `paths: {}
components:
  schemas:
    A:
      allOf: [{$ref: '#/components/schemas/B'}]
    B:
      type: object
      properties:
        c: {$ref: '#/components/schemas/C'}
      allOf: [{$ref: '#/components/schemas/C'}]
    C:
      allOf: [{$ref: '#/components/schemas/A'}]
`, KindMalformed},
		{"oneOf sibling conflicts with alternative", head + `paths: {}
components:
  schemas:
    A:
      type: string
      oneOf: [{type: integer}, {type: string}]
`, KindMalformed},
		{"invalid property pattern", head + "paths: {}\ncomponents: {schemas: {A: {type: object, patternProperties: {'([': {type: string}}}}}\n", KindMalformed},
		{"dependency on undeclared property of closed object", head + `paths: {}
components:
  schemas:
    A:
      type: object
      additionalProperties: false
      properties: {a: {type: string}}
      dependencies: {a: [b]}
`, KindMalformed},
		{"dependentRequired with a schema", head + "paths: {}\ncomponents: {schemas: {A: {dependentRequired: {a: {type: string}}}}}\n", KindMalformed},
		{"empty enum", head + "paths: {}\ncomponents: {schemas: {A: {type: string, enum: []}}}\n", KindMalformed},
		{"inverted length", head + "paths: {}\ncomponents: {schemas: {A: {type: string, minLength: 5, maxLength: 2}}}\n", KindMalformed},
		{"invalid pattern", head + "paths: {}\ncomponents: {schemas: {A: {type: string, pattern: '(['}}}\n", KindMalformed},
		{"unknown type", head + "paths: {}\ncomponents: {schemas: {A: {type: text}}}\n", KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Resolve(context.Background(), []byte(tt.doc), Options{})
			require.Error(t, err)
			assert.Nil(t, g, "no partial graph is returned")
			var specErr *SpecError
			require.True(t, errors.As(err, &specErr), "got %T: %v", err, err)
			assert.Equal(t, tt.kind, specErr.Kind, specErr.Error())
		})
	}
}

func TestResolve_Strict(t *testing.T) {
	valid := `
openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /a:
    get:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {type: string}
`
	_, err := Resolve(context.Background(), []byte(valid), Options{Strict: true})
	require.NoError(t, err)

	missingVersion := `
openapi: 3.0.3
info: {title: t}
paths:
  /a:
    get:
      responses:
        "200": {description: ok}
`
	_, err = Resolve(context.Background(), []byte(missingVersion), Options{})
	require.NoError(t, err, "lenient mode ignores info.version")

	_, err = Resolve(context.Background(), []byte(missingVersion), Options{Strict: true})
	var specErr *SpecError
	require.ErrorAs(t, err, &specErr)
	assert.Equal(t, KindMalformed, specErr.Kind)
	assert.NotNil(t, specErr.Cause)
}

func TestResolve_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resolve(ctx, []byte(petstore), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveSchema(t *testing.T) {
	g, root, err := ResolveSchema([]byte(`{
  "type": "object",
  "properties": {"next": {"$ref": "#/$defs/link"}},
  "$defs": {"link": {"type": "object", "properties": {"to": {"$ref": "#"}}}}
}`))
	require.NoError(t, err)
	n := g.Node(root)
	assert.Equal(t, "#", n.Key)
	assert.True(t, n.Cyclic)
	linkID, ok := n.Property("next")
	require.True(t, ok)
	assert.Equal(t, "#/$defs/link", g.Node(linkID).Key)
}
