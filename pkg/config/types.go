package config

import "time"

// Config is the complete mockingj configuration. Values come from, in
// increasing precedence: defaults, a YAML file, MOCKINGJ_* environment
// variables, and command-line flags.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Mock    MockConfig    `yaml:"mock" json:"mock"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Sources records where each non-default value came from, keyed by
	// dotted YAML path ("server.port").
	Sources map[string]string `yaml:"-" json:"-"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" json:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	TLS             TLSConfig     `yaml:"tls" json:"tls"`
}

// TLSConfig enables HTTPS with a certificate pair from disk.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertFile string `yaml:"certFile,omitempty" json:"certFile,omitempty"`
	KeyFile  string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`
}

// MockConfig configures generation, caching and request handling.
type MockConfig struct {
	Seed     uint64 `yaml:"seed" json:"seed"`
	SeedMode string `yaml:"seedMode" json:"seedMode"`

	CacheEnabled  bool          `yaml:"cacheEnabled" json:"cacheEnabled"`
	CacheTTL      int           `yaml:"cacheTTL" json:"cacheTTL"`
	CacheScope    string        `yaml:"cacheScope" json:"cacheScope"`
	SweepInterval time.Duration `yaml:"sweepInterval" json:"sweepInterval"`

	MaxDepth           int                      `yaml:"maxDepth" json:"maxDepth"`
	ArrayMaxItems      int                      `yaml:"arrayMaxItems" json:"arrayMaxItems"`
	OptionalProperties OptionalPropertiesConfig `yaml:"optionalProperties" json:"optionalProperties"`
	PreferExamples     bool                     `yaml:"preferExamples" json:"preferExamples"`

	ValidateRequests bool                `yaml:"validateRequests" json:"validateRequests"`
	StrictSpec       bool                `yaml:"strictSpec" json:"strictSpec"`
	WatchSpec        bool                `yaml:"watchSpec" json:"watchSpec"`
	ResponseDelay    ResponseDelayConfig `yaml:"responseDelay" json:"responseDelay"`
}

// OptionalPropertiesConfig selects which optional object properties appear
// in generated bodies.
type OptionalPropertiesConfig struct {
	Mode     string   `yaml:"mode" json:"mode"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// ResponseDelayConfig adds a uniform random delay to mock responses.
type ResponseDelayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	MinMs   int  `yaml:"minMs" json:"minMs"`
	MaxMs   int  `yaml:"maxMs" json:"maxMs"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
	// ErrorFile receives ERROR entries only.
	ErrorFile string `yaml:"errorFile,omitempty" json:"errorFile,omitempty"`
	// MaxSize is the rotation size of the log files in megabytes; 0 is 100.
	MaxSize int `yaml:"maxSize,omitempty" json:"maxSize,omitempty"`
	// MaxBackups is the number of rotated files kept; 0 keeps all.
	MaxBackups int `yaml:"maxBackups,omitempty" json:"maxBackups,omitempty"`
}

// Seed modes.
const (
	SeedModeDeterministic = "deterministic"
	SeedModeRandom        = "random"
)

// Cache scopes.
const (
	CacheScopeGlobal   = "global"
	CacheScopeEndpoint = "endpoint"
)

// Value sources.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
	SourceRandom  = "random"
)

// Defaults.
const (
	DefaultHost            = "localhost"
	DefaultPort            = 8000
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultSeed            = 12345
	DefaultCacheTTL        = 300
	DefaultSweepInterval   = 60 * time.Second
	DefaultMaxDepth        = 10
	DefaultArrayMaxItems   = 3
	DefaultDelayMaxMs      = 100

	MinCacheTTL = 30
	MaxCacheTTL = 86400
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Mock: MockConfig{
			Seed:               DefaultSeed,
			SeedMode:           SeedModeDeterministic,
			CacheEnabled:       true,
			CacheTTL:           DefaultCacheTTL,
			CacheScope:         CacheScopeGlobal,
			SweepInterval:      DefaultSweepInterval,
			MaxDepth:           DefaultMaxDepth,
			ArrayMaxItems:      DefaultArrayMaxItems,
			OptionalProperties: OptionalPropertiesConfig{Mode: "all"},
			ValidateRequests:   true,
			ResponseDelay:      ResponseDelayConfig{MaxMs: DefaultDelayMaxMs},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Sources: make(map[string]string),
	}
}

// Source reports where the value at key came from.
func (c *Config) Source(key string) string {
	if s, ok := c.Sources[key]; ok {
		return s
	}
	return SourceDefault
}

// SetSource records the origin of the value at key.
func (c *Config) SetSource(key, source string) {
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources[key] = source
}
