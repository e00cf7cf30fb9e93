package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sasquatch989/mockingj/internal/matching"
	"github.com/sasquatch989/mockingj/pkg/assembler"
	"github.com/sasquatch989/mockingj/pkg/cache"
	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/metrics"
	"github.com/sasquatch989/mockingj/pkg/resolver"
	"github.com/sasquatch989/mockingj/pkg/schema"
	"github.com/sasquatch989/mockingj/pkg/validation"
)

// ErrNotLoaded is returned when no document has been loaded yet.
var ErrNotLoaded = errors.New("no specification loaded")

// Loader produces a freshly resolved graph.
type Loader func(ctx context.Context) (*schema.Graph, error)

// FileLoader reads and resolves the document at path on every call.
func FileLoader(path string, opts resolver.Options) Loader {
	return func(ctx context.Context) (*schema.Graph, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read specification: %w", err)
		}
		return resolver.Resolve(ctx, raw, opts)
	}
}

// Delay is a uniform response delay.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// snapshot is one published graph with the tables derived from it.
type snapshot struct {
	graph    *schema.Graph
	router   *matching.Router[*schema.Endpoint]
	bodies   *validation.Validators
	loadedAt time.Time
}

func newSnapshot(g *schema.Graph) *snapshot {
	r := matching.NewRouter[*schema.Endpoint]()
	for _, ep := range g.Endpoints() {
		r.Add(ep.Method, ep.Path, ep)
	}
	return &snapshot{
		graph:    g,
		router:   r,
		bodies:   validation.NewValidators(g, validation.LocationBody),
		loadedAt: time.Now(),
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics records request and reload metrics and serves them under
// /__mockingj/metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCache sets the cache cleared on reload and exposed by the cache meta
// endpoint. It should be the store the generator uses.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLoader sets the source used by Reload.
func WithLoader(l Loader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithRequestValidation validates parameters and bodies before responding.
func WithRequestValidation(enabled bool) Option {
	return func(e *Engine) { e.validateRequests = enabled }
}

// WithDelay delays every mock response by a uniform duration in [d.Min, d.Max].
func WithDelay(d Delay) Option {
	return func(e *Engine) { e.delay = d }
}

// Engine serves mock responses for the published graph.
type Engine struct {
	asm     *assembler.Assembler
	cache   *cache.Cache
	loader  Loader
	log     *slog.Logger
	metrics *metrics.Metrics

	validateRequests bool
	delay            Delay

	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex
	meta     *metaHandler
	started  time.Time
}

// New creates an Engine. Call Load or Reload before serving.
func New(asm *assembler.Assembler, opts ...Option) *Engine {
	e := &Engine{
		asm:     asm,
		log:     logging.Nop(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.meta = newMetaHandler(e)
	return e
}

// Load publishes g and clears the cache. Cache keys carry the graph identity,
// so the clear only reclaims memory held by the previous graph's values.
func (e *Engine) Load(g *schema.Graph) {
	e.current.Store(newSnapshot(g))
	if e.cache != nil {
		e.cache.Clear()
	}
	e.metrics.SetEndpoints(len(g.Endpoints()))
}

// Reload resolves the document again through the loader. On failure the
// previous graph stays live and the error is returned.
func (e *Engine) Reload(ctx context.Context) error {
	if e.loader == nil {
		return errors.New("reload: no loader configured")
	}
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	g, err := e.loader(ctx)
	if err != nil {
		e.log.Error("specification reload failed, keeping previous version", "error", err)
		e.metrics.Reloaded(false, 0)
		return err
	}
	e.Load(g)
	e.log.Info("specification reloaded",
		"endpoints", len(g.Endpoints()),
		"schemas", len(g.Names()))
	e.metrics.Reloaded(true, len(g.Endpoints()))
	return nil
}

// Graph returns the published graph, nil before the first load.
func (e *Engine) Graph() *schema.Graph {
	if s := e.current.Load(); s != nil {
		return s.graph
	}
	return nil
}

// GetEndpoints returns the published endpoint table.
func (e *Engine) GetEndpoints() []*schema.Endpoint {
	if g := e.Graph(); g != nil {
		return g.Endpoints()
	}
	return nil
}

// GetSchemas returns the names of the published component schemas.
func (e *Engine) GetSchemas() []string {
	if g := e.Graph(); g != nil {
		return g.Names()
	}
	return nil
}

// Uptime returns how long the engine has existed.
func (e *Engine) Uptime() time.Duration { return time.Since(e.started) }
