package resolver

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/schema"
)

// Options tune resolution.
type Options struct {
	// Strict runs the document through kin-openapi's structural validation
	// before the graph is built.
	Strict bool
	Logger *slog.Logger
}

// Version families.
const (
	family2  = "2.0"
	family30 = "3.0"
	family31 = "3.1"
)

type resolver struct {
	ctx    context.Context
	log    *slog.Logger
	doc    map[string]any
	family string
	b      *schema.Builder

	// loose marks nodes whose kind was defaulted rather than declared or
	// implied by a keyword; allOf lets other parts decide their kind.
	loose map[schema.NodeID]bool

	pending []pending
	merged  map[[2]schema.NodeID]schema.NodeID
	merging map[schema.NodeID]bool
}

func newResolver(ctx context.Context, log *slog.Logger, doc map[string]any, family string, b *schema.Builder) *resolver {
	return &resolver{
		ctx:     ctx,
		log:     log,
		doc:     doc,
		family:  family,
		b:       b,
		loose:   make(map[schema.NodeID]bool),
		merged:  make(map[[2]schema.NodeID]schema.NodeID),
		merging: make(map[schema.NodeID]bool),
	}
}

// Resolve parses raw and builds the schema graph with its endpoint table.
func Resolve(ctx context.Context, raw []byte, opts Options) (*schema.Graph, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}
	version, family, err := sniffVersion(doc)
	if err != nil {
		return nil, err
	}
	if opts.Strict {
		if err := validateStrict(ctx, raw, doc, family); err != nil {
			return nil, err
		}
	}

	info, ok := asMap(doc["info"])
	if !ok {
		return nil, malformed("#/info", "info object is required")
	}
	title, _ := asString(info["title"])
	if _, ok := asMap(doc["paths"]); !ok {
		return nil, malformed("#/paths", "paths object is required")
	}

	r := newResolver(ctx, log, doc, family, schema.NewBuilder(version, title))
	if err := r.components(); err != nil {
		return nil, err
	}
	if err := r.settle(); err != nil {
		return nil, err
	}
	if err := r.paths(); err != nil {
		return nil, err
	}
	if err := r.settle(); err != nil {
		return nil, err
	}
	g, err := r.b.Build()
	if err != nil {
		return nil, err
	}
	log.Debug("resolved specification",
		"version", version,
		"endpoints", len(g.Endpoints()),
		"schemas", len(g.Names()),
		"nodes", g.Len())
	return g, nil
}

// ResolveSchema builds a graph from a standalone JSON Schema document. The
// root is reachable through Lookup("#") and definitions under $defs or
// definitions resolve as local references.
func ResolveSchema(raw []byte) (*schema.Graph, schema.NodeID, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, schema.NoNode, err
	}
	r := newResolver(context.Background(), logging.Nop(), doc, family31, schema.NewBuilder("", ""))
	id, err := r.schemaAt(doc, "#")
	if err != nil {
		return nil, schema.NoNode, err
	}
	if err := r.settle(); err != nil {
		return nil, schema.NoNode, err
	}
	g, err := r.b.Build()
	if err != nil {
		return nil, schema.NoNode, err
	}
	return g, id, nil
}

func sniffVersion(doc map[string]any) (version, family string, err error) {
	if v, ok := doc["swagger"]; ok {
		s := versionString(v)
		if s != "2.0" {
			return "", "", &SpecError{Kind: KindUnsupportedVersion, Location: "#/swagger",
				Message: "unsupported swagger version " + quoteAny(v)}
		}
		return s, family2, nil
	}
	if v, ok := doc["openapi"]; ok {
		s := versionString(v)
		switch {
		case strings.HasPrefix(s, "3.0.") || s == "3.0":
			return s, family30, nil
		case strings.HasPrefix(s, "3.1.") || s == "3.1":
			return s, family31, nil
		}
		return "", "", &SpecError{Kind: KindUnsupportedVersion, Location: "#/openapi",
			Message: "unsupported openapi version " + quoteAny(v)}
	}
	return "", "", &SpecError{Kind: KindUnsupportedVersion,
		Message: "document declares neither swagger nor openapi version"}
}

// versionString reads a version field. An unquoted YAML "2.0" or "3.1"
// decodes as a number and is read back in its written form.
func versionString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatFloat(x, 'f', 1, 64)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

// components resolves every named schema up front so names are registered
// even for definitions no operation uses.
func (r *resolver) components() error {
	var section map[string]any
	var base string
	if r.family == family2 {
		section, _ = asMap(r.doc["definitions"])
		base = "#/definitions"
		if r.doc["definitions"] != nil && section == nil {
			return malformed(base, "definitions must be an object")
		}
	} else {
		comps, _ := asMap(r.doc["components"])
		if r.doc["components"] != nil && comps == nil {
			return malformed("#/components", "components must be an object")
		}
		section, _ = asMap(comps["schemas"])
		base = "#/components/schemas"
		if comps["schemas"] != nil && section == nil {
			return malformed(base, "schemas must be an object")
		}
	}
	names := sortedKeys(section)
	ids := make([]schema.NodeID, len(names))
	for i, name := range names {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		id, err := r.schemaAt(section[name], child(base, name))
		if err != nil {
			return err
		}
		ids[i] = id
	}
	// Definitions take their own name before aliases that merely point at them.
	for i, name := range names {
		if r.b.Node(ids[i]).Key == child(base, name) {
			r.b.SetName(ids[i], name)
		}
	}
	for i, name := range names {
		if r.b.Node(ids[i]).Key != child(base, name) {
			r.b.SetName(ids[i], name)
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
