package matching

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Select evaluates a JSONPath expression against a decoded value. A single
// result is returned as is, several results as a slice, and no result as
// nil.
func Select(expr string, data any) (any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression %q: %w", expr, err)
	}
	results := x.Get(data)
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return results, nil
}

// ValidateJSONPathExpression validates a JSONPath expression at load time.
// Returns an error if the expression is invalid.
func ValidateJSONPathExpression(path string) error {
	_, err := jp.ParseString(path)
	if err != nil {
		return fmt.Errorf("invalid JSONPath expression %q: %w", path, err)
	}
	return nil
}
