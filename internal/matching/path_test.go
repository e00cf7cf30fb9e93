package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPath(t *testing.T) {
	tests := []struct {
		name       string
		template   string
		path       string
		wantScore  int
		wantParams map[string]string
	}{
		{
			name:       "exact",
			template:   "/api/users",
			path:       "/api/users",
			wantScore:  ScorePathExact,
			wantParams: map[string]string{},
		},
		{
			name:       "named param",
			template:   "/api/users/{id}",
			path:       "/api/users/123",
			wantScore:  ScorePathNamedParams + 2,
			wantParams: map[string]string{"id": "123"},
		},
		{
			name:       "two params",
			template:   "/users/{userId}/posts/{postId}",
			path:       "/users/7/posts/99",
			wantScore:  ScorePathNamedParams + 2,
			wantParams: map[string]string{"userId": "7", "postId": "99"},
		},
		{
			name:       "escaped value",
			template:   "/files/{name}",
			path:       "/files/a%20b",
			wantScore:  ScorePathNamedParams + 1,
			wantParams: map[string]string{"name": "a b"},
		},
		{
			name:       "params inside segment",
			template:   "/files/{name}.{ext}",
			path:       "/files/report.tar.gz",
			wantScore:  ScorePathNamedParams + 1,
			wantParams: map[string]string{"name": "report", "ext": "tar.gz"},
		},
		{
			name:       "literal suffix",
			template:   "/export/{id}.json",
			path:       "/export/5.json",
			wantScore:  ScorePathNamedParams + 1,
			wantParams: map[string]string{"id": "5"},
		},
		{
			name:     "literal mismatch",
			template: "/api/users/{id}",
			path:     "/api/groups/123",
		},
		{
			name:     "segment count differs",
			template: "/api/users/{id}",
			path:     "/api/users/123/extra",
		},
		{
			name:     "empty param",
			template: "/api/users/{id}",
			path:     "/api/users/",
		},
		{
			name:     "suffix missing",
			template: "/export/{id}.json",
			path:     "/export/5",
		},
		{
			name:     "literal template",
			template: "/api/users",
			path:     "/api/users/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, params := MatchPath(tt.template, tt.path)
			assert.Equal(t, tt.wantScore, score)
			if tt.wantScore == 0 {
				assert.Nil(t, params)
				return
			}
			assert.Equal(t, tt.wantParams, params)
		})
	}
}
