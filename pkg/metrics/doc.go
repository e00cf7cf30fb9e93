// Package metrics holds the Prometheus collectors for the mock server.
//
// Every Metrics value owns its own prometheus.Registry; nothing is registered
// on the global default registry, so several servers (or tests) can run in
// one process.
//
// # Collectors
//
//   - mockingj_requests_total: mock requests (labels: method, route, status)
//   - mockingj_request_duration_seconds: mock request latency (labels: method, route)
//   - mockingj_cache_hits_total, mockingj_cache_misses_total: consistency cache lookups
//   - mockingj_cache_evictions_total: entries removed by expiry, invalidation or clear
//   - mockingj_cache_entries: live cache entries
//   - mockingj_generation_degraded_total: degraded values (labels: kind)
//   - mockingj_spec_reloads_total: specification reloads (labels: result)
//   - mockingj_endpoints: endpoints in the live specification
//
// Go runtime and process collectors are registered alongside.
//
// # Usage
//
//	m := metrics.New()
//	m.ObserveRequest("GET", "/pets/{id}", 200, 3*time.Millisecond)
//	http.Handle("/metrics", m.Handler())
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics
