// Package generator produces values that satisfy resolved schema nodes.
//
// Every choice made while generating (array lengths, enum members, oneOf
// alternatives, string contents) is drawn from a PRNG seeded by the
// fingerprint of the value's position: the configured seed, the scope, the
// node key, the scenario and the JSON path inside the body. The same
// position therefore always yields the same value, and sibling array items
// differ because their paths differ.
//
// Dispatch is a closed switch over schema.Kind. String formats are looked up
// in a per-generator registry that callers can extend with RegisterFormat.
//
// Values that cannot honour their schema are degraded instead of failing
// the request: recursion past Config.MaxDepth yields an empty object, empty
// array or null, and unsatisfiable constraints yield a best-effort value.
// Each degradation is reported in Result.Degraded, logged at WARN and
// counted in metrics.
//
// # Basic Usage
//
//	gen := generator.New(generator.DefaultConfig(),
//	    generator.WithStore(cache.New(cache.DefaultTTL)),
//	    generator.WithLogger(log))
//	res, err := gen.Generate(ctx, graph, response.Schema, generator.Scope{
//	    Scenario: "empty-cart",
//	})
package generator
