package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sasquatch989/mockingj/pkg/httputil"
)

// ErrorCode constants for machine-readable error identification
const (
	ErrCodeRequired      = "required"
	ErrCodeType          = "type"
	ErrCodeMinLength     = "min_length"
	ErrCodeMaxLength     = "max_length"
	ErrCodePattern       = "pattern"
	ErrCodeFormat        = "format"
	ErrCodeMin           = "min"
	ErrCodeMax           = "max"
	ErrCodeExclusiveMin  = "exclusive_min"
	ErrCodeExclusiveMax  = "exclusive_max"
	ErrCodeMultipleOf    = "multiple_of"
	ErrCodeMinItems      = "min_items"
	ErrCodeMaxItems      = "max_items"
	ErrCodeUniqueItems   = "unique_items"
	ErrCodeMinProperties = "min_properties"
	ErrCodeMaxProperties = "max_properties"
	ErrCodeEnum          = "enum"
	ErrCodeAlternatives  = "alternatives"
	ErrCodeSchema        = "schema"
	ErrCodeInvalidJSON   = "invalid_json"
	ErrCodeUnknownField  = "unknown_field"
)

// ErrorLocation constants
const (
	LocationBody     = "body"
	LocationPath     = "path"
	LocationQuery    = "query"
	LocationHeader   = "header"
	LocationResponse = "response"
)

// FieldError represents a detailed validation error for a single value.
type FieldError struct {
	// Field is the JSON path of the value ("$.owner.name") or, for
	// parameters, the parameter name.
	Field string `json:"field"`

	// Location indicates where the value is: body, path, query, header, response
	Location string `json:"location"`

	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Received is the actual value that was received
	Received any `json:"received,omitempty"`

	// Expected describes what was expected
	Expected string `json:"expected,omitempty"`
}

// Error implements the error interface
func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s: %s", e.Location, e.Field, e.Message)
	}
	return e.Message
}

// Result contains the outcome of validation.
type Result struct {
	// Valid is true if validation passed
	Valid bool `json:"valid"`

	// Errors contains validation errors (when Valid is false)
	Errors []*FieldError `json:"errors,omitempty"`
}

// NewResult returns a passing result.
func NewResult() *Result { return &Result{Valid: true} }

// AddError adds a validation error to the result
func (r *Result) AddError(err *FieldError) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// HasErrors returns true if there are any validation errors
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Merge combines another result into this one
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	if !other.Valid {
		r.Valid = false
	}
	r.Errors = append(r.Errors, other.Errors...)
}

// FirstPath returns the field of the first error, or "" when valid.
func (r *Result) FirstPath() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Field
}

// Error summarises the result.
func (r *Result) Error() string {
	switch len(r.Errors) {
	case 0:
		return "valid"
	case 1:
		return r.Errors[0].Error()
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(r.Errors), strings.Join(msgs, "; "))
}

// ErrorResponse is the HTTP response body for validation failures.
// It follows RFC 7807 Problem Details format.
type ErrorResponse struct {
	Type   string        `json:"type"`
	Title  string        `json:"title"`
	Status int           `json:"status"`
	Detail string        `json:"detail,omitempty"`
	Errors []*FieldError `json:"errors"`
}

// NewErrorResponse creates an ErrorResponse from a Result
func NewErrorResponse(result *Result, status int) *ErrorResponse {
	if status == 0 {
		status = http.StatusBadRequest
	}

	detail := ""
	if len(result.Errors) == 1 {
		detail = result.Errors[0].Message
	} else if len(result.Errors) > 1 {
		detail = fmt.Sprintf("%d validation errors", len(result.Errors))
	}

	return &ErrorResponse{
		Type:   "validation_error",
		Title:  "Request Validation Failed",
		Status: status,
		Detail: detail,
		Errors: result.Errors,
	}
}

// WriteResponse writes the error response as problem+json.
func (e *ErrorResponse) WriteResponse(w http.ResponseWriter) {
	httputil.WriteJSONAs(w, e.Status, "application/problem+json", e)
}

// Error implements the error interface
func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

// Helper functions for creating common errors

func newRequiredError(field, location, name string) *FieldError {
	return &FieldError{
		Field:    field,
		Location: location,
		Code:     ErrCodeRequired,
		Message:  fmt.Sprintf("property '%s' is required", name),
		Expected: "present",
	}
}

func newTypeError(field, location, expected string, received any) *FieldError {
	return &FieldError{
		Field:    field,
		Location: location,
		Code:     ErrCodeType,
		Message:  fmt.Sprintf("expected type '%s', got '%s'", expected, jsonType(received)),
		Received: received,
		Expected: expected,
	}
}

func newBoundError(field, location, code, op string, bound any, received any) *FieldError {
	return &FieldError{
		Field:    field,
		Location: location,
		Code:     code,
		Message:  fmt.Sprintf("must be %s %v", op, bound),
		Received: received,
		Expected: fmt.Sprintf("%s %v", op, bound),
	}
}

func newPatternError(field, location, pattern string, received any) *FieldError {
	return &FieldError{
		Field:    field,
		Location: location,
		Code:     ErrCodePattern,
		Message:  fmt.Sprintf("must match pattern '%s'", pattern),
		Received: received,
		Expected: "pattern: " + pattern,
	}
}

func newFormatError(field, location, format string, received any) *FieldError {
	return &FieldError{
		Field:    field,
		Location: location,
		Code:     ErrCodeFormat,
		Message:  fmt.Sprintf("must be a valid %s", format),
		Received: received,
		Expected: "format: " + format,
	}
}

func newEnumError(field, location string, allowed []any, received any) *FieldError {
	allowedStrs := make([]string, len(allowed))
	for i, v := range allowed {
		allowedStrs[i] = fmt.Sprintf("%v", v)
	}
	return &FieldError{
		Field:    field,
		Location: location,
		Code:     ErrCodeEnum,
		Message:  fmt.Sprintf("must be one of: %s", strings.Join(allowedStrs, ", ")),
		Received: received,
		Expected: "one of: " + strings.Join(allowedStrs, ", "),
	}
}

func newSchemaError(field, location, message string) *FieldError {
	return &FieldError{
		Field:    field,
		Location: location,
		Code:     ErrCodeSchema,
		Message:  message,
	}
}

func newInvalidJSONError(message string) *FieldError {
	return &FieldError{
		Location: LocationBody,
		Code:     ErrCodeInvalidJSON,
		Message:  "invalid JSON: " + message,
	}
}
