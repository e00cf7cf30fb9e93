package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/sasquatch989/mockingj/pkg/assembler"
	"github.com/sasquatch989/mockingj/pkg/engine"
	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/resolver"
)

// ResolveSeed fixes the generation seed. In random mode a seed is drawn
// once from crypto/rand and stored back into Mock.Seed, so values stay
// stable for the life of the process.
func (c *Config) ResolveSeed() (uint64, error) {
	return c.resolveSeed(rand.Reader)
}

func (c *Config) resolveSeed(entropy io.Reader) (uint64, error) {
	if c.Mock.SeedMode != SeedModeRandom || c.Source("mock.seed") == SourceRandom {
		return c.Mock.Seed, nil
	}
	var b [8]byte
	if _, err := io.ReadFull(entropy, b[:]); err != nil {
		return 0, fmt.Errorf("draw random seed: %w", err)
	}
	c.Mock.Seed = binary.LittleEndian.Uint64(b[:])
	c.SetSource("mock.seed", SourceRandom)
	return c.Mock.Seed, nil
}

// GeneratorConfig returns the generation policy. Call ResolveSeed first in
// random seed mode.
func (c *Config) GeneratorConfig() generator.Config {
	return generator.Config{
		Seed:           c.Mock.Seed,
		MaxDepth:       c.Mock.MaxDepth,
		ArrayMaxItems:  c.Mock.ArrayMaxItems,
		Optional:       c.OptionalPolicy(),
		PreferExamples: c.Mock.PreferExamples,
	}
}

// CacheTTL is mock.cacheTTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Mock.CacheTTL) * time.Second
}

// CacheScope is mock.cacheScope as the assembler's type.
func (c *Config) CacheScope() assembler.CacheScope {
	if c.Mock.CacheScope == CacheScopeEndpoint {
		return assembler.ScopeEndpoint
	}
	return assembler.ScopeGlobal
}

// Delay is the configured response delay; zero when disabled.
func (c *Config) Delay() engine.Delay {
	d := c.Mock.ResponseDelay
	if !d.Enabled {
		return engine.Delay{}
	}
	return engine.Delay{
		Min: time.Duration(d.MinMs) * time.Millisecond,
		Max: time.Duration(d.MaxMs) * time.Millisecond,
	}
}

// ServerConfig returns the listener settings.
func (c *Config) ServerConfig() engine.ServerConfig {
	s := c.Server
	return engine.ServerConfig{
		Host:            s.Host,
		Port:            s.Port,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
		TLS: engine.TLSConfig{
			Enabled:  s.TLS.Enabled,
			CertFile: s.TLS.CertFile,
			KeyFile:  s.TLS.KeyFile,
		},
	}
}

// ResolverOptions returns the document loading options.
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{Strict: c.Mock.StrictSpec}
}

// LoggingConfig returns the logger settings. Output stays nil (stderr).
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      logging.ParseLevel(c.Logging.Level),
		Format:     logging.ParseFormat(c.Logging.Format),
		File:       c.Logging.File,
		ErrorFile:  c.Logging.ErrorFile,
		MaxSizeMB:  c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
	}
}
