package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/mohae/deepcopy"

	"github.com/sasquatch989/mockingj/pkg/cache"
	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/metrics"
	"github.com/sasquatch989/mockingj/pkg/schema"
	"github.com/sasquatch989/mockingj/pkg/validation"
)

// Store memoizes generated values. *cache.Cache implements it.
type Store interface {
	GetOrGenerate(ctx context.Context, key string, generate func() (any, error)) (any, error)
}

// Scope distinguishes otherwise identical positions.
type Scope struct {
	// Endpoint is the endpoint identity ("GET /pets/{id}") when values are
	// scoped per endpoint, empty when shared schemas yield shared values.
	Endpoint string
	// Scenario is the caller-supplied scenario key.
	Scenario string
}

// Result is a generated value and the positions that were degraded.
type Result struct {
	Value    any
	Degraded []*GenerationError
}

// DegradedPaths returns the JSON paths of every degraded position.
func (r *Result) DegradedPaths() []string {
	paths := make([]string, len(r.Degraded))
	for i, d := range r.Degraded {
		paths[i] = d.Path
	}
	return paths
}

// fragment is the unit stored for a memoized position. Fields are exported
// so the store can deep-copy them.
type fragment struct {
	Value    any
	Degraded []*GenerationError
}

// Generator is safe for concurrent use. It holds no per-request state.
type Generator struct {
	cfg     Config
	store   Store
	log     *slog.Logger
	metrics *metrics.Metrics
	formats map[string]FormatFunc
}

// New creates a Generator. Zero MaxDepth and ArrayMaxItems take their
// defaults.
func New(cfg Config, opts ...Option) *Generator {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.ArrayMaxItems <= 0 {
		cfg.ArrayMaxItems = DefaultArrayMaxItems
	}
	if cfg.Optional.Mode == "" {
		cfg.Optional.Mode = OptionalAll
	}
	g := &Generator{
		cfg:     cfg,
		log:     logging.Nop(),
		formats: builtinFormats(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the generation policy.
func (g *Generator) Config() Config { return g.cfg }

// RegisterFormat adds or replaces the string strategy for a format. It must
// be called before the generator is shared between goroutines.
func (g *Generator) RegisterFormat(name string, fn FormatFunc) {
	g.formats[name] = fn
}

// Generate produces a value for node id at the body root.
func (g *Generator) Generate(ctx context.Context, graph *schema.Graph, id schema.NodeID, scope Scope) (*Result, error) {
	return g.GenerateAt(ctx, graph, id, scope, schema.RootPath)
}

// GenerateAt produces a value for node id positioned at path. The only error
// returned is the context's: degraded values are reported in the Result.
func (g *Generator) GenerateAt(ctx context.Context, graph *schema.Graph, id schema.NodeID, scope Scope, path string) (*Result, error) {
	if graph.Node(id) == nil {
		return nil, fmt.Errorf("generator: unknown schema node %d", id)
	}
	st := &state{gen: g, ctx: ctx, graph: graph, scope: scope}
	v, err := st.generate(id, frame{path: path, root: true})
	if err != nil {
		return nil, err
	}
	return &Result{Value: v, Degraded: st.degraded}, nil
}

// frame is the position of the value being generated.
type frame struct {
	// path is the JSON path inside the body.
	path string
	// salt perturbs fingerprints below a regenerated array item.
	salt string
	// props is the property path for the optional-property policy.
	props string
	depth int
	root  bool
}

func (f frame) property(name string) frame {
	props := name
	if f.props != "" {
		props = f.props + "/" + name
	}
	return frame{path: schema.PropertyPath(f.path, name), salt: f.salt, props: props, depth: f.depth + 1}
}

func (f frame) item(i int) frame {
	return frame{path: schema.ItemPath(f.path, i), salt: f.salt, props: f.props, depth: f.depth + 1}
}

type state struct {
	gen      *Generator
	ctx      context.Context
	graph    *schema.Graph
	scope    Scope
	degraded []*GenerationError
}

func (st *state) key(n *schema.Node, f frame) cache.Key {
	return cache.Key{Node: n.Key, Graph: st.graph.Identity(), Scope: st.scope.Endpoint, Scenario: st.scope.Scenario, Path: f.path + f.salt}
}

// rng returns the PRNG for a position: a pure function of its fingerprint.
func (st *state) rng(n *schema.Node, f frame) (*rand.Rand, uint64) {
	fp := cache.Fingerprint(st.gen.cfg.Seed, st.key(n, f))
	return rand.New(rand.NewPCG(fp, fp^0x9e3779b97f4a7c15)), fp
}

func (st *state) degrade(kind ErrorKind, n *schema.Node, f frame, reason string) {
	e := &GenerationError{Kind: kind, Path: f.path, Node: n.Key, Reason: reason}
	st.degraded = append(st.degraded, e)
	st.gen.log.Warn("degraded generated value",
		"kind", string(kind),
		"path", f.path,
		"node", n.Key,
		"reason", reason)
	st.gen.metrics.Degraded(string(kind))
}

// generate memoizes the body root and named schemas, then dispatches.
func (st *state) generate(id schema.NodeID, f frame) (any, error) {
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}
	n := st.graph.Node(id)
	if n == nil {
		return nil, fmt.Errorf("generator: unknown schema node %d", id)
	}
	if st.gen.store == nil || (!f.root && n.Name == "") {
		return st.dispatch(n, f)
	}

	key := st.key(n, f).String()
	var produced []*GenerationError
	v, err := st.gen.store.GetOrGenerate(st.ctx, key, func() (any, error) {
		sub := &state{gen: st.gen, ctx: st.ctx, graph: st.graph, scope: st.scope}
		val, err := sub.dispatch(n, f)
		if err != nil {
			return nil, err
		}
		produced = sub.degraded
		return &fragment{Value: val, Degraded: sub.degraded}, nil
	})
	if err != nil {
		return nil, err
	}
	frag, ok := v.(*fragment)
	if !ok {
		return nil, fmt.Errorf("generator: unexpected stored value %T for %s", v, key)
	}
	if produced != nil {
		// Generated by this call: already logged.
		st.degraded = append(st.degraded, produced...)
	} else {
		st.degraded = append(st.degraded, frag.Degraded...)
	}
	return frag.Value, nil
}

// dispatch is the kind switch. Enum and example shortcuts apply to every kind.
func (st *state) dispatch(n *schema.Node, f frame) (any, error) {
	cfg := st.gen.cfg
	if (n.Cyclic || n.Kind == schema.KindComposite) && f.depth >= cfg.MaxDepth {
		st.degrade(KindDepthExceeded, n, f, fmt.Sprintf("nested deeper than %d", cfg.MaxDepth))
		switch n.Kind {
		case schema.KindObject:
			return map[string]any{}, nil
		case schema.KindArray:
			return []any{}, nil
		}
		return nil, nil
	}

	rng, fp := st.rng(n, f)

	if len(n.Enum) > 0 {
		return deepcopy.Copy(enumMember(n.Enum, fp)), nil
	}
	if cfg.PreferExamples && isScalar(n.Kind) {
		for _, ex := range []any{n.Example, n.Default} {
			if ex != nil && validation.ValidateNode(st.graph, n.ID, ex).Valid {
				return ex, nil
			}
		}
	}

	switch n.Kind {
	case schema.KindString:
		return st.genString(n, f, rng), nil
	case schema.KindInteger:
		return st.genInteger(n, f, rng), nil
	case schema.KindNumber:
		return st.genNumber(n, f, rng), nil
	case schema.KindBoolean:
		return fp&1 == 1, nil
	case schema.KindNull:
		return nil, nil
	case schema.KindObject:
		return st.genObject(n, f, rng)
	case schema.KindArray:
		return st.genArray(n, f, rng)
	case schema.KindComposite:
		return st.genComposite(n, f, fp)
	}
	st.degrade(KindUnsupportedConstraint, n, f, "unknown kind "+n.Kind.String())
	return nil, nil
}

// enumMember picks enum[fp mod len(enum)].
func enumMember(enum []any, fp uint64) any {
	return enum[fp%uint64(len(enum))]
}

func isScalar(k schema.Kind) bool {
	switch k {
	case schema.KindString, schema.KindNumber, schema.KindInteger, schema.KindBoolean:
		return true
	}
	return false
}

// genComposite selects alternative fp mod n. A nullable composite is never
// generated as null.
func (st *state) genComposite(n *schema.Node, f frame, fp uint64) (any, error) {
	if len(n.Alternatives) == 0 {
		st.degrade(KindUnsupportedConstraint, n, f, "composition without alternatives")
		return nil, nil
	}
	alt := n.Alternatives[fp%uint64(len(n.Alternatives))]
	next := f
	next.depth++
	next.root = false
	return st.generate(alt, next)
}
