package validation

import (
	"encoding/base64"
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FormatValidator is a function that validates a string against a format
type FormatValidator func(value string) bool

var (
	formatsMu sync.RWMutex

	// formatValidators maps format names to their validation functions.
	// Formats without an entry (password, binary, int32, ...) always pass.
	formatValidators = map[string]FormatValidator{
		"email":     validateEmail,
		"uuid":      validateUUID,
		"date":      validateDate,
		"date-time": validateDateTime,
		"datetime":  validateDateTime, // Alias
		"time":      validateTime,
		"uri":       validateURI,
		"url":       validateURI, // Alias
		"ipv4":      validateIPv4,
		"ipv6":      validateIPv6,
		"ip":        validateIP,
		"hostname":  validateHostname,
		"byte":      validateBase64,
	}
)

// ValidateFormat checks if a value matches the specified format
func ValidateFormat(format, value string) bool {
	formatsMu.RLock()
	validator, ok := formatValidators[strings.ToLower(format)]
	formatsMu.RUnlock()
	if !ok {
		// Unknown format - pass validation (don't fail on unknown formats)
		return true
	}
	return validator(value)
}

// IsKnownFormat returns true if the format is recognized
func IsKnownFormat(format string) bool {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	_, ok := formatValidators[strings.ToLower(format)]
	return ok
}

// RegisterFormat allows registering custom format validators
func RegisterFormat(name string, validator FormatValidator) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formatValidators[strings.ToLower(name)] = validator
}

// Email validation using RFC 5322
func validateEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	// Additional check: must have domain part with dot
	at := strings.LastIndexByte(value, '@')
	return at > 0 && strings.Contains(value[at+1:], ".")
}

// uuid.Parse also accepts the urn and braced forms; only the canonical
// 36-character spelling is a JSON Schema uuid.
func validateUUID(value string) bool {
	if len(value) != 36 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}

// Date validation (ISO 8601: YYYY-MM-DD)
func validateDate(value string) bool {
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

// DateTime validation (RFC 3339)
func validateDateTime(value string) bool {
	_, err := time.Parse(time.RFC3339Nano, value)
	return err == nil
}

// Time validation (RFC 3339 full-time; offset optional)
func validateTime(value string) bool {
	for _, layout := range []string{"15:04:05Z07:00", "15:04:05.999999999Z07:00", time.TimeOnly} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// URI validation (RFC 3986)
func validateURI(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	// Must have scheme and host for a valid URI
	return u.Scheme != "" && u.Host != ""
}

// IPv4 validation
func validateIPv4(value string) bool {
	ip := net.ParseIP(value)
	if ip == nil {
		return false
	}
	// Ensure it's IPv4 (not IPv6)
	return ip.To4() != nil && strings.Count(value, ".") == 3
}

// IPv6 validation
func validateIPv6(value string) bool {
	ip := net.ParseIP(value)
	if ip == nil {
		return false
	}
	return strings.Contains(value, ":")
}

// IP validation (either IPv4 or IPv6)
func validateIP(value string) bool {
	return net.ParseIP(value) != nil
}

// Hostname validation (RFC 1123)
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(value string) bool {
	if len(value) > 253 {
		return false
	}
	return hostnamePattern.MatchString(value)
}

func validateBase64(value string) bool {
	_, err := base64.StdEncoding.DecodeString(value)
	return err == nil
}
