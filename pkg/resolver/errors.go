package resolver

import "fmt"

// ErrorKind classifies a SpecError.
type ErrorKind string

const (
	// KindMalformed covers structural problems: wrong types, invalid
	// keywords, conflicting allOf parts, duplicate parameters.
	KindMalformed ErrorKind = "malformed"
	// KindUnresolvableReference is a $ref that does not lead to a local
	// definition.
	KindUnresolvableReference ErrorKind = "unresolvable_reference"
	// KindUnsupportedVersion is a document that is neither Swagger 2.0 nor
	// OpenAPI 3.0/3.1.
	KindUnsupportedVersion ErrorKind = "unsupported_version"
)

// SpecError is returned for any document that cannot be loaded.
type SpecError struct {
	Kind ErrorKind
	// Location is the JSON pointer of the offending element, when known.
	Location string
	Message  string
	Cause    error
}

func (e *SpecError) Error() string {
	msg := "spec " + string(e.Kind) + ": " + e.Message
	if e.Location != "" {
		msg += " (at " + e.Location + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SpecError) Unwrap() error { return e.Cause }

func malformed(loc, format string, args ...any) *SpecError {
	return &SpecError{Kind: KindMalformed, Location: loc, Message: fmt.Sprintf(format, args...)}
}

func unresolvable(loc, ref string) *SpecError {
	return &SpecError{Kind: KindUnresolvableReference, Location: loc, Message: "cannot resolve $ref " + ref}
}
