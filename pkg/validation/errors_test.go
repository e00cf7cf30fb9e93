package validation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_MergeAndError(t *testing.T) {
	r := NewResult()
	assert.Equal(t, "valid", r.Error())
	assert.Equal(t, "", r.FirstPath())

	other := NewResult()
	other.AddError(newRequiredError("$.name", LocationBody, "name"))
	r.Merge(other)
	r.Merge(nil)

	assert.False(t, r.Valid)
	assert.True(t, r.HasErrors())
	assert.Equal(t, "$.name", r.FirstPath())
	assert.Equal(t, "body $.name: property 'name' is required", r.Error())

	r.AddError(newTypeError("$.id", LocationBody, "integer", "x"))
	assert.Contains(t, r.Error(), "2 validation errors")
}

func TestErrorResponse_WriteResponse(t *testing.T) {
	r := NewResult()
	r.AddError(newEnumError("$.status", LocationBody, []any{"a", "b"}, "c"))

	resp := NewErrorResponse(r, 0)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "must be one of: a, b", resp.Detail)

	rec := httptest.NewRecorder()
	resp.WriteResponse(rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"code":"enum"`)
}
