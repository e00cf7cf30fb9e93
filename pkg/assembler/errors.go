package assembler

import (
	"fmt"
	"net/http"

	"github.com/sasquatch989/mockingj/pkg/validation"
)

// ErrorKind classifies an AssemblyError.
type ErrorKind string

const (
	// KindUnknownStatus means the endpoint declares no response for the
	// requested status, not even a range or default one.
	KindUnknownStatus ErrorKind = "unknown_status"
	// KindValidationFailed means a generated body does not satisfy its own
	// schema.
	KindValidationFailed ErrorKind = "validation_failed"
)

// AssemblyError is returned by Build.
type AssemblyError struct {
	Kind     ErrorKind
	Endpoint string
	Status   int
	// Path is the first failing JSON path for KindValidationFailed.
	Path   string
	Result *validation.Result
}

func (e *AssemblyError) Error() string {
	switch e.Kind {
	case KindUnknownStatus:
		return fmt.Sprintf("%s declares no response for status %d", e.Endpoint, e.Status)
	case KindValidationFailed:
		return fmt.Sprintf("%s: generated %d response is invalid at %s: %v", e.Endpoint, e.Status, e.Path, e.Result)
	}
	return fmt.Sprintf("%s: assembly failed (%s)", e.Endpoint, e.Kind)
}

// StatusCode returns the HTTP status code for this error.
func (e *AssemblyError) StatusCode() int {
	if e.Kind == KindUnknownStatus {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *AssemblyError) Hint() string {
	if e.Kind == KindUnknownStatus {
		return "Request one of the status codes declared for this operation, or remove the status override."
	}
	return "The generated value violates its schema. Report the schema and the failing path."
}
