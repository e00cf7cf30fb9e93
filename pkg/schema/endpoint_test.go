package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpoint_LookupResponse(t *testing.T) {
	ep := &Endpoint{Method: "GET", Path: "/pets", Responses: map[string]*Response{
		"200":     {Status: "200"},
		"4XX":     {Status: "4XX"},
		"default": {Status: "default"},
	}}

	tests := []struct {
		status int
		want   string
	}{
		{200, "200"},
		{404, "4XX"},
		{418, "4XX"},
		{500, "default"},
		{201, "default"},
	}
	for _, tt := range tests {
		r, ok := ep.LookupResponse(tt.status)
		if assert.True(t, ok, tt.status) {
			assert.Equal(t, tt.want, r.Status)
		}
	}

	bare := &Endpoint{Responses: map[string]*Response{"200": {Status: "200"}}}
	_, ok := bare.LookupResponse(404)
	assert.False(t, ok)
}

func TestEndpoint_StatusKeys(t *testing.T) {
	ep := &Endpoint{Responses: map[string]*Response{
		"default": {}, "5XX": {}, "404": {}, "200": {}, "2XX": {},
	}}
	assert.Equal(t, []string{"200", "404", "2XX", "5XX", "default"}, ep.StatusKeys())
}

func TestEndpoint_DefaultStatusCode(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want int
	}{
		{"lowest 2xx", []string{"404", "201", "204"}, 201},
		{"default only", []string{"default"}, 200},
		{"range only", []string{"2XX", "404"}, 200},
		{"errors only", []string{"500", "404"}, 404},
		{"error range", []string{"5XX"}, 500},
		{"nothing declared", nil, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := &Endpoint{Responses: map[string]*Response{}}
			for _, k := range tt.keys {
				ep.Responses[k] = &Response{Status: k}
			}
			assert.Equal(t, tt.want, ep.DefaultStatusCode())
		})
	}
}
