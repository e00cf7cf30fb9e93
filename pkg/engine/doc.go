// Package engine serves generated mock responses over HTTP.
//
// The Engine is an http.Handler. It routes each request to a declared
// endpoint, picks the status and scenario, optionally validates the request
// and delegates the body to the assembler. The resolved graph is published
// through an atomic pointer: Reload resolves the document again, swaps the
// pointer and clears the cache, while in-flight requests finish against the
// graph they started with.
//
// # Request controls
//
//	X-Mock-Status / ?__status=404      serve a declared status other than the default
//	X-Mock-Scenario / ?__scenario=x    select another set of consistent values
//	?__select=$.items[0]               project the body with JSONPath
//
// # Meta endpoints
//
//	GET    /__mockingj/health
//	GET    /__mockingj/endpoints
//	GET    /__mockingj/schemas
//	GET    /__mockingj/schemas/{name}
//	POST   /__mockingj/reload
//	DELETE /__mockingj/cache?prefix=
//	GET    /__mockingj/metrics
//
// Server wraps an Engine in an http.Server with timeouts, optional TLS and
// graceful shutdown. Watch reloads the engine when the document changes on
// disk.
package engine
