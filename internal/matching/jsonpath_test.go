package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	data := map[string]any{
		"id":   int64(7),
		"name": "Rex",
		"owner": map[string]any{
			"email": "jane@example.com",
		},
		"tags": []any{"a", "b"},
	}

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"field", "$.name", "Rex"},
		{"nested", "$.owner.email", "jane@example.com"},
		{"index", "$.tags[1]", "b"},
		{"wildcard", "$.tags[*]", []any{"a", "b"}},
		{"whole", "$", data},
		{"missing", "$.nope", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_Invalid(t *testing.T) {
	_, err := Select("$[invalid", map[string]any{})
	assert.Error(t, err)
}

func TestValidateJSONPathExpression(t *testing.T) {
	assert.NoError(t, ValidateJSONPathExpression("$.items[0].id"))
	assert.Error(t, ValidateJSONPathExpression("$[invalid"))
}
