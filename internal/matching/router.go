package matching

import (
	"slices"
	"strings"
)

// Match is the result of a successful lookup.
type Match[T any] struct {
	Value    T
	Template string
	Params   map[string]string
	Score    int
}

type route[T any] struct {
	template string
	methods  map[string]T
}

// Router maps (method, path template) pairs to values. It is built once and
// then only read, so concurrent lookups need no locking.
type Router[T any] struct {
	routes []*route[T]
	byTmpl map[string]*route[T]
}

// NewRouter creates an empty router.
func NewRouter[T any]() *Router[T] {
	return &Router[T]{byTmpl: make(map[string]*route[T])}
}

// Add registers v for method and template. A later registration for the
// same pair replaces the earlier one.
func (r *Router[T]) Add(method, template string, v T) {
	rt, ok := r.byTmpl[template]
	if !ok {
		rt = &route[T]{template: template, methods: make(map[string]T)}
		r.byTmpl[template] = rt
		r.routes = append(r.routes, rt)
	}
	rt.methods[strings.ToUpper(method)] = v
}

// Len returns the number of registered templates.
func (r *Router[T]) Len() int { return len(r.routes) }

// Lookup finds the best template for path. When the path matches but the
// method does not, found is false and allowed lists the methods the best
// template accepts. Both empty means no template matches.
func (r *Router[T]) Lookup(method, path string) (m Match[T], allowed []string, found bool) {
	var best *route[T]
	var bestParams map[string]string
	bestScore := 0
	for _, rt := range r.routes {
		score, params := MatchPath(rt.template, path)
		if score == 0 {
			continue
		}
		// Ties go to the lexically first template so lookups are stable.
		if score > bestScore || (score == bestScore && rt.template < best.template) {
			best, bestParams, bestScore = rt, params, score
		}
	}
	if best == nil {
		return m, nil, false
	}

	v, ok := best.methods[strings.ToUpper(method)]
	if !ok && strings.EqualFold(method, "HEAD") {
		v, ok = best.methods["GET"]
	}
	if !ok {
		for name := range best.methods {
			allowed = append(allowed, name)
		}
		slices.Sort(allowed)
		return m, allowed, false
	}
	return Match[T]{Value: v, Template: best.template, Params: bestParams, Score: bestScore}, nil, true
}
