package generator

import (
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sasquatch989/mockingj/pkg/metrics"
)

// Defaults.
const (
	DefaultSeed          = 12345
	DefaultMaxDepth      = 10
	DefaultArrayMaxItems = 3
)

// OptionalMode selects which optional object properties are generated.
type OptionalMode string

const (
	OptionalAll   OptionalMode = "all"
	OptionalNone  OptionalMode = "none"
	OptionalMatch OptionalMode = "match"
)

// OptionalPolicy decides whether an optional property is generated.
// In match mode, Patterns are doublestar globs over the property path: the
// names from the body root joined by '/', array levels omitted
// ("owner/email", "items/**", "**/id").
type OptionalPolicy struct {
	Mode     OptionalMode
	Patterns []string
}

// Validate reports an unknown mode or a malformed pattern.
func (p OptionalPolicy) Validate() error {
	switch p.Mode {
	case "", OptionalAll, OptionalNone:
		return nil
	case OptionalMatch:
		for _, pat := range p.Patterns {
			if !doublestar.ValidatePattern(pat) {
				return fmt.Errorf("invalid optional property pattern %q", pat)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown optional property mode %q", p.Mode)
}

// Includes reports whether the optional property at propPath is generated.
func (p OptionalPolicy) Includes(propPath string) bool {
	switch p.Mode {
	case OptionalNone:
		return false
	case OptionalMatch:
		for _, pat := range p.Patterns {
			if ok, err := doublestar.Match(pat, propPath); err == nil && ok {
				return true
			}
		}
		return false
	}
	return true
}

// Config holds the generation policy.
type Config struct {
	Seed uint64
	// MaxDepth bounds the nesting of cyclic and composite nodes.
	MaxDepth int
	// ArrayMaxItems is the ceiling on generated array length when the
	// schema sets no lower maxItems.
	ArrayMaxItems int
	Optional      OptionalPolicy
	// PreferExamples returns a scalar node's example or default when it
	// satisfies the node.
	PreferExamples bool
}

// DefaultConfig returns the default generation policy.
func DefaultConfig() Config {
	return Config{
		Seed:          DefaultSeed,
		MaxDepth:      DefaultMaxDepth,
		ArrayMaxItems: DefaultArrayMaxItems,
		Optional:      OptionalPolicy{Mode: OptionalAll},
	}
}

// Option configures a Generator.
type Option func(*Generator)

// WithStore memoizes response roots and named schema values in s.
func WithStore(s Store) Option {
	return func(g *Generator) { g.store = s }
}

// WithLogger sets the logger used for degraded values.
func WithLogger(log *slog.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// WithMetrics counts degraded values in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}
