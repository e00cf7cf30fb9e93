package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MOCKINGJ_"

// ErrInvalidEnv is wrapped by ApplyEnv for values that do not parse.
var ErrInvalidEnv = errors.New("invalid environment variable")

// envBinding maps one environment variable onto one config field.
type envBinding struct {
	name string
	key  string
	set  func(c *Config, v string) error
}

func envString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func envInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func envBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func envDuration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

// parseBool accepts the spellings strconv.ParseBool does plus yes/no.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}

var envBindings = []envBinding{
	{"SERVER_HOST", "server.host", envString(func(c *Config) *string { return &c.Server.Host })},
	{"SERVER_PORT", "server.port", envInt(func(c *Config) *int { return &c.Server.Port })},
	{"SERVER_READ_TIMEOUT", "server.readTimeout", envDuration(func(c *Config) *time.Duration { return &c.Server.ReadTimeout })},
	{"SERVER_WRITE_TIMEOUT", "server.writeTimeout", envDuration(func(c *Config) *time.Duration { return &c.Server.WriteTimeout })},
	{"SERVER_SHUTDOWN_TIMEOUT", "server.shutdownTimeout", envDuration(func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},
	{"SERVER_TLS_ENABLED", "server.tls.enabled", envBool(func(c *Config) *bool { return &c.Server.TLS.Enabled })},
	{"SERVER_TLS_CERT_FILE", "server.tls.certFile", envString(func(c *Config) *string { return &c.Server.TLS.CertFile })},
	{"SERVER_TLS_KEY_FILE", "server.tls.keyFile", envString(func(c *Config) *string { return &c.Server.TLS.KeyFile })},
	{"MOCK_SEED", "mock.seed", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		c.Mock.Seed = n
		return nil
	}},
	{"MOCK_SEED_MODE", "mock.seedMode", envString(func(c *Config) *string { return &c.Mock.SeedMode })},
	{"MOCK_CACHE_ENABLED", "mock.cacheEnabled", envBool(func(c *Config) *bool { return &c.Mock.CacheEnabled })},
	{"MOCK_CACHE_TTL", "mock.cacheTTL", envInt(func(c *Config) *int { return &c.Mock.CacheTTL })},
	{"MOCK_CACHE_SCOPE", "mock.cacheScope", envString(func(c *Config) *string { return &c.Mock.CacheScope })},
	{"MOCK_SWEEP_INTERVAL", "mock.sweepInterval", envDuration(func(c *Config) *time.Duration { return &c.Mock.SweepInterval })},
	{"MOCK_MAX_DEPTH", "mock.maxDepth", envInt(func(c *Config) *int { return &c.Mock.MaxDepth })},
	{"MOCK_ARRAY_MAX_ITEMS", "mock.arrayMaxItems", envInt(func(c *Config) *int { return &c.Mock.ArrayMaxItems })},
	{"MOCK_OPTIONAL_PROPERTIES", "mock.optionalProperties.mode", envString(func(c *Config) *string { return &c.Mock.OptionalProperties.Mode })},
	{"MOCK_PREFER_EXAMPLES", "mock.preferExamples", envBool(func(c *Config) *bool { return &c.Mock.PreferExamples })},
	{"MOCK_VALIDATE_REQUESTS", "mock.validateRequests", envBool(func(c *Config) *bool { return &c.Mock.ValidateRequests })},
	{"MOCK_STRICT_SPEC", "mock.strictSpec", envBool(func(c *Config) *bool { return &c.Mock.StrictSpec })},
	{"MOCK_WATCH_SPEC", "mock.watchSpec", envBool(func(c *Config) *bool { return &c.Mock.WatchSpec })},
	{"MOCK_RESPONSE_DELAY_ENABLED", "mock.responseDelay.enabled", envBool(func(c *Config) *bool { return &c.Mock.ResponseDelay.Enabled })},
	{"MOCK_RESPONSE_DELAY_MIN_MS", "mock.responseDelay.minMs", envInt(func(c *Config) *int { return &c.Mock.ResponseDelay.MinMs })},
	{"MOCK_RESPONSE_DELAY_MAX_MS", "mock.responseDelay.maxMs", envInt(func(c *Config) *int { return &c.Mock.ResponseDelay.MaxMs })},
	{"LOGGING_LEVEL", "logging.level", envString(func(c *Config) *string { return &c.Logging.Level })},
	{"LOGGING_FORMAT", "logging.format", envString(func(c *Config) *string { return &c.Logging.Format })},
	{"LOGGING_FILE", "logging.file", envString(func(c *Config) *string { return &c.Logging.File })},
	{"LOGGING_ERROR_FILE", "logging.errorFile", envString(func(c *Config) *string { return &c.Logging.ErrorFile })},
	{"LOGGING_MAX_SIZE", "logging.maxSize", envInt(func(c *Config) *int { return &c.Logging.MaxSize })},
	{"LOGGING_MAX_BACKUPS", "logging.maxBackups", envInt(func(c *Config) *int { return &c.Logging.MaxBackups })},
}

// EnvVars lists every recognised environment variable.
func EnvVars() []string {
	out := make([]string, len(envBindings))
	for i, b := range envBindings {
		out[i] = EnvPrefix + b.name
	}
	return out
}

// ApplyEnv overrides fields from the environment, read through getenv
// (os.Getenv in production). Empty variables are ignored. Every value that
// fails to parse is reported; the others are still applied.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	var errs []error
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%w %s=%q: %v", ErrInvalidEnv, name, v, err))
			continue
		}
		c.SetSource(b.key, SourceEnv)
	}
	return errors.Join(errs...)
}
