package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/logging"
)

// FieldError is one violated constraint.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid configuration: " + e.Errors[0].String()
	}
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return fmt.Sprintf("invalid configuration (%d errors): %s", len(e.Errors), strings.Join(parts, "; "))
}

// Has reports whether field is among the violations.
func (e *ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks every field and returns a *ValidationError listing all
// violations, or nil.
func (c *Config) Validate() error {
	v := &ValidationError{}

	s := c.Server
	if s.Port < 0 || s.Port > 65535 {
		v.add("server.port", "port %d is out of range (0-65535)", s.Port)
	}
	if s.ReadTimeout < 0 {
		v.add("server.readTimeout", "must not be negative")
	}
	if s.WriteTimeout < 0 {
		v.add("server.writeTimeout", "must not be negative")
	}
	if s.ShutdownTimeout < 0 {
		v.add("server.shutdownTimeout", "must not be negative")
	}
	if s.TLS.Enabled {
		validateFile(v, "server.tls.certFile", s.TLS.CertFile)
		validateFile(v, "server.tls.keyFile", s.TLS.KeyFile)
	}

	m := c.Mock
	switch m.SeedMode {
	case SeedModeDeterministic, SeedModeRandom:
	default:
		v.add("mock.seedMode", "unknown seed mode %q (deterministic, random)", m.SeedMode)
	}
	if m.CacheTTL < MinCacheTTL || m.CacheTTL > MaxCacheTTL {
		v.add("mock.cacheTTL", "cacheTTL %d is out of range (%d-%d seconds)", m.CacheTTL, MinCacheTTL, MaxCacheTTL)
	}
	switch m.CacheScope {
	case CacheScopeGlobal, CacheScopeEndpoint:
	default:
		v.add("mock.cacheScope", "unknown cache scope %q (global, endpoint)", m.CacheScope)
	}
	if m.SweepInterval < 0 {
		v.add("mock.sweepInterval", "must not be negative")
	}
	if m.MaxDepth < 1 {
		v.add("mock.maxDepth", "maxDepth must be at least 1, got %d", m.MaxDepth)
	}
	if m.ArrayMaxItems < 0 {
		v.add("mock.arrayMaxItems", "must not be negative")
	}
	if err := c.OptionalPolicy().Validate(); err != nil {
		v.add("mock.optionalProperties", "%v", err)
	}
	if d := m.ResponseDelay; d.Enabled {
		if d.MinMs < 0 {
			v.add("mock.responseDelay.minMs", "must not be negative")
		}
		if d.MinMs > d.MaxMs {
			v.add("mock.responseDelay", "minMs %d exceeds maxMs %d", d.MinMs, d.MaxMs)
		}
	}

	if _, ok := logging.LookupLevel(c.Logging.Level); !ok {
		v.add("logging.level", "unknown level %q (debug, info, warn, error)", c.Logging.Level)
	}
	if _, ok := logging.LookupFormat(c.Logging.Format); !ok {
		v.add("logging.format", "unknown format %q (text, json)", c.Logging.Format)
	}
	if c.Logging.MaxSize < 0 {
		v.add("logging.maxSize", "must not be negative")
	}
	if c.Logging.MaxBackups < 0 {
		v.add("logging.maxBackups", "must not be negative")
	}

	if len(v.Errors) > 0 {
		return v
	}
	return nil
}

// validateFile requires path to name an existing regular file.
func validateFile(v *ValidationError, field, path string) {
	if path == "" {
		v.add(field, "required when TLS is enabled")
		return
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		v.add(field, "file does not exist: %s", path)
	case err != nil:
		v.add(field, "cannot access file: %v", err)
	case info.IsDir():
		v.add(field, "path is a directory, not a file: %s", path)
	}
}

// OptionalPolicy returns the generator's view of mock.optionalProperties.
func (c *Config) OptionalPolicy() generator.OptionalPolicy {
	return generator.OptionalPolicy{
		Mode:     generator.OptionalMode(c.Mock.OptionalProperties.Mode),
		Patterns: c.Mock.OptionalProperties.Patterns,
	}
}
