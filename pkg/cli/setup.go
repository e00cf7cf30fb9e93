package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sasquatch989/mockingj/pkg/assembler"
	"github.com/sasquatch989/mockingj/pkg/cache"
	"github.com/sasquatch989/mockingj/pkg/cli/internal/flags"
	"github.com/sasquatch989/mockingj/pkg/config"
	"github.com/sasquatch989/mockingj/pkg/engine"
	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/metrics"
	"github.com/sasquatch989/mockingj/pkg/schema"
)

// mockFlags are the generation flags shared by serve and generate.
type mockFlags struct {
	seed       uint64
	seedMode   string
	maxDepth   int
	arrayMax   int
	optional   string
	patterns   flags.StringSlice
	examples   bool
	strict     bool
	cacheScope string
}

func (f *mockFlags) register(fs *pflag.FlagSet) {
	fs.Uint64Var(&f.seed, "seed", config.DefaultSeed, "Generation seed")
	fs.StringVar(&f.seedMode, "seed-mode", config.SeedModeDeterministic, "Seed mode (deterministic, random)")
	fs.IntVar(&f.maxDepth, "max-depth", config.DefaultMaxDepth, "Maximum nesting depth for recursive schemas")
	fs.IntVar(&f.arrayMax, "array-max-items", config.DefaultArrayMaxItems, "Upper bound on generated array length")
	fs.StringVar(&f.optional, "optional", "all", "Optional properties to generate (all, none, match)")
	fs.Var(&f.patterns, "optional-pattern", "Glob over property paths for --optional=match (repeatable)")
	fs.BoolVar(&f.examples, "prefer-examples", false, "Use schema examples and defaults when they are valid")
	fs.BoolVar(&f.strict, "strict", false, "Validate the document structurally before loading")
	fs.StringVar(&f.cacheScope, "cache-scope", config.CacheScopeGlobal, "Share values of shared schemas (global) or not (endpoint)")
}

func (f *mockFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set(fs, cfg, "seed", "mock.seed", func() { cfg.Mock.Seed = f.seed })
	set(fs, cfg, "seed-mode", "mock.seedMode", func() { cfg.Mock.SeedMode = f.seedMode })
	set(fs, cfg, "max-depth", "mock.maxDepth", func() { cfg.Mock.MaxDepth = f.maxDepth })
	set(fs, cfg, "array-max-items", "mock.arrayMaxItems", func() { cfg.Mock.ArrayMaxItems = f.arrayMax })
	set(fs, cfg, "optional", "mock.optionalProperties.mode", func() { cfg.Mock.OptionalProperties.Mode = f.optional })
	set(fs, cfg, "optional-pattern", "mock.optionalProperties.patterns", func() { cfg.Mock.OptionalProperties.Patterns = []string(f.patterns) })
	set(fs, cfg, "prefer-examples", "mock.preferExamples", func() { cfg.Mock.PreferExamples = f.examples })
	set(fs, cfg, "strict", "mock.strictSpec", func() { cfg.Mock.StrictSpec = f.strict })
	set(fs, cfg, "cache-scope", "mock.cacheScope", func() { cfg.Mock.CacheScope = f.cacheScope })
}

// set applies a flag that was given explicitly, so unset flags never mask
// file or environment values.
func set(fs *pflag.FlagSet, cfg *config.Config, flag, key string, apply func()) {
	if fs.Changed(flag) {
		apply()
		cfg.SetSource(key, config.SourceFlag)
	}
}

// loadConfig layers defaults, the config file, the environment and the
// flags, then validates the result.
func (o *rootOptions) loadConfig(cmd *cobra.Command, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	set(cmd.Flags(), cfg, "log-level", "logging.level", func() { cfg.Logging.Level = o.logLevel })
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stack is the generation pipeline shared by serve and generate.
type stack struct {
	cache *cache.Cache
	gen   *generator.Generator
	asm   *assembler.Assembler
}

// buildStack wires the cache, generator and assembler from cfg. m may be
// nil. The cache is nil when caching is disabled.
func buildStack(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) (*stack, error) {
	if _, err := cfg.ResolveSeed(); err != nil {
		return nil, err
	}
	s := &stack{}
	genOpts := []generator.Option{generator.WithLogger(log), generator.WithMetrics(m)}
	if cfg.Mock.CacheEnabled {
		s.cache = cache.New(cfg.CacheTTL(), cache.WithMetrics(m), cache.WithLogger(log))
		genOpts = append(genOpts, generator.WithStore(s.cache))
	}
	s.gen = generator.New(cfg.GeneratorConfig(), genOpts...)
	s.asm = assembler.New(s.gen, assembler.WithScope(cfg.CacheScope()), assembler.WithLogger(log))
	return s, nil
}

// loadSpec resolves the document at path with the configured options.
func loadSpec(ctx context.Context, path string, cfg *config.Config, log *slog.Logger) (*schema.Graph, error) {
	return specLoader(path, cfg, log)(ctx)
}

func specLoader(path string, cfg *config.Config, log *slog.Logger) engine.Loader {
	opts := cfg.ResolverOptions()
	opts.Logger = log
	return engine.FileLoader(path, opts)
}

// quietLogger logs warnings and errors to stderr for one-shot commands
// unless the configuration asks for more.
func quietLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	lc := cfg.LoggingConfig()
	if cfg.Source("logging.level") == config.SourceDefault {
		lc.Level = logging.LevelWarn
	}
	lc.Output = cmd.ErrOrStderr()
	return logging.New(lc)
}
