package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format string
		value  string
		want   bool
	}{
		{"email", "user@example.com", true},
		{"email", "User <user@example.com>", false},
		{"email", "user@localhost", false},
		{"uuid", "123e4567-e89b-12d3-a456-426614174000", true},
		{"uuid", "{123e4567-e89b-12d3-a456-426614174000}", false},
		{"date", "2020-02-29", true},
		{"date", "2021-02-29", false},
		{"date-time", "2020-01-01T10:00:00Z", true},
		{"date-time", "2020-01-01 10:00:00", false},
		{"time", "10:20:30Z", true},
		{"time", "25:00:00Z", false},
		{"uri", "https://example.com/a", true},
		{"uri", "/relative", false},
		{"ipv4", "192.168.0.1", true},
		{"ipv4", "::1", false},
		{"ipv6", "2001:db8::1", true},
		{"ipv6", "10.0.0.1", false},
		{"hostname", "api.example.com", true},
		{"hostname", "-bad.example.com", false},
		{"byte", "aGVsbG8=", true},
		{"byte", "not base64!", false},
		{"password", "anything", true},
		{"int32", "ignored", true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateFormat(tt.format, tt.value))
		})
	}
}

func TestRegisterFormat(t *testing.T) {
	assert.False(t, IsKnownFormat("even-length"))
	RegisterFormat("even-length", func(v string) bool { return len(v)%2 == 0 })
	assert.True(t, IsKnownFormat("EVEN-LENGTH"))
	assert.True(t, ValidateFormat("even-length", "ab"))
	assert.False(t, ValidateFormat("even-length", "abc"))
}
