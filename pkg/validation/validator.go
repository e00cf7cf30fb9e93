package validation

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

// SchemaValidator validates values against the JSON Schema export of one
// graph node, compiled with santhosh-tekuri/jsonschema.
type SchemaValidator struct {
	location string
	schema   *jsonschema.Schema
}

// NewSchemaValidator compiles the export of node id. location is reported in
// field errors (LocationBody for request bodies).
func NewSchemaValidator(g *schema.Graph, id schema.NodeID, location string) (*SchemaValidator, error) {
	if g.Node(id) == nil {
		return nil, fmt.Errorf("unknown schema node %d", id)
	}
	compiled, err := compileSchema(g.ExportJSONSchema(id), schema.DefName(id))
	if err != nil {
		return nil, err
	}
	return &SchemaValidator{location: location, schema: compiled}, nil
}

// compileSchema compiles an exported JSON Schema document
func compileSchema(doc map[string]any, name string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	schemaBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaBytes)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(url)
}

// Validate checks an already decoded value.
func (v *SchemaValidator) Validate(value any) *Result {
	result := NewResult()
	err := v.schema.Validate(value)
	if err == nil {
		return result
	}
	// Parse schema validation errors
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		parseSchemaErrors(validationErr, value, v.location, result)
	} else {
		result.AddError(newSchemaError("", v.location, err.Error()))
	}
	return result
}

// ValidateJSON decodes data, keeping numbers exact, and validates it.
func (v *SchemaValidator) ValidateJSON(data []byte) *Result {
	value, err := DecodeJSON(data)
	if err != nil {
		result := NewResult()
		result.AddError(newInvalidJSONError(err.Error()))
		return result
	}
	return v.Validate(value)
}

// DecodeJSON decodes a JSON document into generic values with json.Number
// numbers.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return value, nil
}

// parseSchemaErrors extracts the leaf errors of a JSON Schema validation
func parseSchemaErrors(err *jsonschema.ValidationError, instance any, location string, result *Result) {
	if len(err.Causes) == 0 {
		result.AddError(&FieldError{
			Field:    instancePath(instance, err.InstanceLocation),
			Location: location,
			Code:     keywordCode(err.KeywordLocation),
			Message:  err.Message,
		})
		return
	}

	// Recursively process causes
	for _, cause := range err.Causes {
		parseSchemaErrors(cause, instance, location, result)
	}
}

// instancePath converts a JSON pointer into the instance value to a JSON
// path. The value is walked so numeric object keys are not mistaken for
// array positions.
func instancePath(instance any, pointer string) string {
	path := schema.RootPath
	if pointer == "" || pointer == "/" {
		return path
	}
	cur := instance
	for _, tok := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch node := cur.(type) {
		case []any:
			if i, err := strconv.Atoi(tok); err == nil && i >= 0 && i < len(node) {
				path = schema.ItemPath(path, i)
				cur = node[i]
				continue
			}
			path = schema.PropertyPath(path, tok)
			cur = nil
		case map[string]any:
			path = schema.PropertyPath(path, tok)
			cur = node[tok]
		default:
			path = schema.PropertyPath(path, tok)
			cur = nil
		}
	}
	return path
}

var keywordCodes = map[string]string{
	"type":                 ErrCodeType,
	"required":             ErrCodeRequired,
	"minLength":            ErrCodeMinLength,
	"maxLength":            ErrCodeMaxLength,
	"pattern":              ErrCodePattern,
	"format":               ErrCodeFormat,
	"minimum":              ErrCodeMin,
	"maximum":              ErrCodeMax,
	"exclusiveMinimum":     ErrCodeExclusiveMin,
	"exclusiveMaximum":     ErrCodeExclusiveMax,
	"multipleOf":           ErrCodeMultipleOf,
	"minItems":             ErrCodeMinItems,
	"maxItems":             ErrCodeMaxItems,
	"uniqueItems":          ErrCodeUniqueItems,
	"minProperties":        ErrCodeMinProperties,
	"maxProperties":        ErrCodeMaxProperties,
	"enum":                 ErrCodeEnum,
	"anyOf":                ErrCodeAlternatives,
	"additionalProperties": ErrCodeUnknownField,
}

// keywordCode maps the last keyword of a keyword location to an error code.
func keywordCode(keywordLocation string) string {
	kw := keywordLocation
	if i := strings.LastIndexByte(kw, '/'); i >= 0 {
		kw = kw[i+1:]
	}
	if code, ok := keywordCodes[kw]; ok {
		return code
	}
	return ErrCodeSchema
}

// Validators caches compiled SchemaValidators for the nodes of one graph.
// It is safe for concurrent use.
type Validators struct {
	g        *schema.Graph
	location string

	mu       sync.Mutex
	compiled map[schema.NodeID]*SchemaValidator
	errs     map[schema.NodeID]error
}

// NewValidators returns an empty cache over g.
func NewValidators(g *schema.Graph, location string) *Validators {
	return &Validators{
		g:        g,
		location: location,
		compiled: make(map[schema.NodeID]*SchemaValidator),
		errs:     make(map[schema.NodeID]error),
	}
}

// For returns the validator of node id, compiling it on first use. A
// compilation failure is remembered and returned on every call.
func (c *Validators) For(id schema.NodeID) (*SchemaValidator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.compiled[id]; ok {
		return v, nil
	}
	if err, ok := c.errs[id]; ok {
		return nil, err
	}
	v, err := NewSchemaValidator(c.g, id, c.location)
	if err != nil {
		c.errs[id] = err
		return nil, err
	}
	c.compiled[id] = v
	return v, nil
}
