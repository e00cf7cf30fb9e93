package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasquatch989/mockingj/pkg/assembler"
	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func envFrom(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, uint64(12345), cfg.Mock.Seed)
	assert.True(t, cfg.Mock.CacheEnabled)
	assert.True(t, cfg.Mock.ValidateRequests)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL())
	assert.Equal(t, assembler.ScopeGlobal, cfg.CacheScope())
	assert.Equal(t, SourceDefault, cfg.Source("server.port"))

	gen := cfg.GeneratorConfig()
	assert.Equal(t, generator.DefaultConfig(), gen)
}

func TestMergeFile(t *testing.T) {
	path := writeFile(t, "mockingj.yaml", `
server:
  port: 9090
  readTimeout: 2s
mock:
  cacheEnabled: false
  cacheScope: endpoint
  optionalProperties:
    mode: match
    patterns: ["**/id"]
logging:
  format: json
  file: /var/log/mockingj.log
  errorFile: /var/log/mockingj-errors.log
  maxSize: 20
  maxBackups: 3
`)
	cfg := Default()
	require.NoError(t, cfg.MergeFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "untouched fields keep defaults")
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Mock.CacheEnabled)
	assert.Equal(t, assembler.ScopeEndpoint, cfg.CacheScope())
	assert.Equal(t, generator.OptionalPolicy{Mode: generator.OptionalMatch, Patterns: []string{"**/id"}}, cfg.OptionalPolicy())
	logCfg := cfg.LoggingConfig()
	assert.Equal(t, logging.FormatJSON, logCfg.Format)
	assert.Equal(t, "/var/log/mockingj-errors.log", logCfg.ErrorFile)
	assert.Equal(t, 20, logCfg.MaxSizeMB)
	assert.Equal(t, 3, logCfg.MaxBackups)

	assert.Equal(t, SourceFile, cfg.Source("server.port"))
	assert.Equal(t, SourceFile, cfg.Source("mock.optionalProperties.patterns"))
	assert.Equal(t, SourceDefault, cfg.Source("server.host"))
}

func TestMergeFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }, ErrFileNotFound},
		{"empty", func(t *testing.T) string { return writeFile(t, "c.yaml", "  \n") }, ErrEmptyFile},
		{"syntax", func(t *testing.T) string { return writeFile(t, "c.yaml", "server: [port") }, ErrInvalidYAML},
		{"unknown key", func(t *testing.T) string { return writeFile(t, "c.yaml", "server:\n  prot: 80\n") }, ErrInvalidYAML},
		{"wrong type", func(t *testing.T) string { return writeFile(t, "c.yaml", "server:\n  port: eighty\n") }, ErrInvalidYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default().MergeFile(tt.path(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	err := Default().MergeFile(t.TempDir())
	assert.ErrorContains(t, err, "directory")
}

func TestMerge_JSON(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Merge([]byte(`{"mock": {"seed": 7, "maxDepth": 4}}`)))
	assert.Equal(t, uint64(7), cfg.Mock.Seed)
	assert.Equal(t, 4, cfg.Mock.MaxDepth)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Merge([]byte("server:\n  port: 9090\n")))

	err := cfg.ApplyEnv(envFrom(map[string]string{
		"MOCKINGJ_SERVER_PORT":         "7000",
		"MOCKINGJ_MOCK_SEED":           "99",
		"MOCKINGJ_MOCK_CACHE_ENABLED":  "no",
		"MOCKINGJ_MOCK_CACHE_TTL":      "60",
		"MOCKINGJ_MOCK_MAX_DEPTH":      "3",
		"MOCKINGJ_MOCK_SWEEP_INTERVAL": "5s",
		"MOCKINGJ_LOGGING_LEVEL":       "debug",
		"MOCKINGJ_LOGGING_MAX_SIZE":    "50",
		"MOCKINGJ_LOGGING_ERROR_FILE":  "errors.log",
		"MOCKINGJ_SERVER_HOST":         "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "blank variables are ignored")
	assert.Equal(t, uint64(99), cfg.Mock.Seed)
	assert.False(t, cfg.Mock.CacheEnabled)
	assert.Equal(t, 60, cfg.Mock.CacheTTL)
	assert.Equal(t, 3, cfg.Mock.MaxDepth)
	assert.Equal(t, 5*time.Second, cfg.Mock.SweepInterval)
	assert.Equal(t, logging.LevelDebug, cfg.LoggingConfig().Level)
	assert.Equal(t, 50, cfg.Logging.MaxSize)
	assert.Equal(t, "errors.log", cfg.Logging.ErrorFile)
	assert.Equal(t, SourceEnv, cfg.Source("server.port"))
	assert.Equal(t, SourceEnv, cfg.Source("mock.cacheTTL"))
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envFrom(map[string]string{
		"MOCKINGJ_SERVER_PORT":        "http",
		"MOCKINGJ_MOCK_CACHE_ENABLED": "maybe",
		"MOCKINGJ_MOCK_MAX_DEPTH":     "5",
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidEnv))
	assert.Contains(t, err.Error(), "MOCKINGJ_SERVER_PORT")
	assert.Contains(t, err.Error(), "MOCKINGJ_MOCK_CACHE_ENABLED")
	assert.Equal(t, 5, cfg.Mock.MaxDepth, "valid variables still apply")
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestEnvVars(t *testing.T) {
	vars := EnvVars()
	assert.Contains(t, vars, "MOCKINGJ_SERVER_PORT")
	assert.Contains(t, vars, "MOCKINGJ_MOCK_CACHE_TTL")
	for _, v := range vars {
		assert.True(t, strings.HasPrefix(v, EnvPrefix), v)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("MOCKINGJ_MOCK_SEED", "42")
	path := writeFile(t, "c.yaml", "mock:\n  seed: 7\n  arrayMaxItems: 5\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Mock.Seed, "environment beats file")
	assert.Equal(t, 5, cfg.Mock.ArrayMaxItems)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Mock.Seed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestValidate(t *testing.T) {
	cert := writeFile(t, "server.crt", "cert")

	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, []string{"server.port"}},
		{"port negative", func(c *Config) { c.Server.Port = -1 }, []string{"server.port"}},
		{"ttl below range", func(c *Config) { c.Mock.CacheTTL = 10 }, []string{"mock.cacheTTL"}},
		{"ttl above range", func(c *Config) { c.Mock.CacheTTL = 90000 }, []string{"mock.cacheTTL"}},
		{"ttl bounds are inclusive", func(c *Config) { c.Mock.CacheTTL = MinCacheTTL }, nil},
		{"depth", func(c *Config) { c.Mock.MaxDepth = 0 }, []string{"mock.maxDepth"}},
		{"seed mode", func(c *Config) { c.Mock.SeedMode = "chaotic" }, []string{"mock.seedMode"}},
		{"cache scope", func(c *Config) { c.Mock.CacheScope = "request" }, []string{"mock.cacheScope"}},
		{"optional mode", func(c *Config) { c.Mock.OptionalProperties.Mode = "some" }, []string{"mock.optionalProperties"}},
		{"optional pattern", func(c *Config) {
			c.Mock.OptionalProperties = OptionalPropertiesConfig{Mode: "match", Patterns: []string{"a/[b"}}
		}, []string{"mock.optionalProperties"}},
		{"delay inverted", func(c *Config) {
			c.Mock.ResponseDelay = ResponseDelayConfig{Enabled: true, MinMs: 200, MaxMs: 100}
		}, []string{"mock.responseDelay"}},
		{"disabled delay is not checked", func(c *Config) {
			c.Mock.ResponseDelay = ResponseDelayConfig{MinMs: 200, MaxMs: 100}
		}, nil},
		{"tls files missing", func(c *Config) {
			c.Server.TLS = TLSConfig{Enabled: true, CertFile: cert}
		}, []string{"server.tls.keyFile"}},
		{"tls file absent", func(c *Config) {
			c.Server.TLS = TLSConfig{Enabled: true, CertFile: cert, KeyFile: cert + ".missing"}
		}, []string{"server.tls.keyFile"}},
		{"logging", func(c *Config) { c.Logging = LoggingConfig{Level: "loud", Format: "xml"} }, []string{"logging.level", "logging.format"}},
		{"log rotation", func(c *Config) {
			c.Logging.MaxSize, c.Logging.MaxBackups = -1, -2
		}, []string{"logging.maxSize", "logging.maxBackups"}},
		{"everything at once", func(c *Config) {
			c.Server.Port = -5
			c.Mock.CacheTTL = 0
			c.Mock.MaxDepth = -1
		}, []string{"server.port", "mock.cacheTTL", "mock.maxDepth"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Errors, len(tt.fields))
			for _, f := range tt.fields {
				assert.True(t, verr.Has(f), "missing violation for %s in %v", f, verr)
			}
		})
	}
}

func TestResolveSeed(t *testing.T) {
	cfg := Default()
	seed, err := cfg.ResolveSeed()
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultSeed), seed)

	cfg.Mock.SeedMode = SeedModeRandom
	seed, err = cfg.resolveSeed(bytes.NewReader([]byte{1, 0, 0, 0, 0, 0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seed)
	assert.Equal(t, SourceRandom, cfg.Source("mock.seed"))
	assert.Equal(t, uint64(1), cfg.GeneratorConfig().Seed)

	again, err := cfg.resolveSeed(bytes.NewReader([]byte{9, 9, 9, 9, 9, 9, 9, 9}))
	require.NoError(t, err)
	assert.Equal(t, seed, again, "the seed is drawn once")

	fresh := Default()
	fresh.Mock.SeedMode = SeedModeRandom
	_, err = fresh.resolveSeed(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, err)
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Mock.ResponseDelay = ResponseDelayConfig{Enabled: true, MinMs: 10, MaxMs: 20}
	cfg.Mock.StrictSpec = true
	cfg.Server.TLS = TLSConfig{Enabled: true, CertFile: "a", KeyFile: "b"}

	d := cfg.Delay()
	assert.Equal(t, 10*time.Millisecond, d.Min)
	assert.Equal(t, 20*time.Millisecond, d.Max)
	assert.True(t, cfg.ResolverOptions().Strict)

	srv := cfg.ServerConfig()
	assert.Equal(t, 8000, srv.Port)
	assert.Equal(t, DefaultShutdownTimeout, srv.ShutdownTimeout)
	assert.True(t, srv.TLS.Enabled)
	assert.Equal(t, "a", srv.TLS.CertFile)

	cfg.Mock.ResponseDelay.Enabled = false
	assert.Zero(t, cfg.Delay())
}

func TestToYAML_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 1234
	data, err := cfg.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "readTimeout: 10s")

	back := Default()
	require.NoError(t, back.Merge(data))
	assert.Equal(t, 1234, back.Server.Port)
	assert.Equal(t, cfg.Mock, back.Mock)
}
