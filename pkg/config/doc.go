// Package config loads the mockingj configuration.
//
// A configuration file is YAML (JSON also parses) with three sections:
//
//	server:
//	  host: localhost
//	  port: 8000
//	  readTimeout: 10s
//	  tls: {enabled: false, certFile: "", keyFile: ""}
//	mock:
//	  seed: 12345
//	  seedMode: deterministic   # or random
//	  cacheTTL: 300             # seconds, 30..86400
//	  cacheScope: global        # or endpoint
//	  optionalProperties: {mode: match, patterns: ["**/id", "owner/*"]}
//	  responseDelay: {enabled: true, minMs: 10, maxMs: 100}
//	logging:
//	  level: info
//	  format: text
//	  file: mockingj.log        # JSON copy of every entry
//	  errorFile: errors.log     # JSON copy of ERROR entries
//	  maxSize: 100              # megabytes before rotation
//	  maxBackups: 5
//
// Environment variables named MOCKINGJ_<SECTION>_<FIELD> (for example
// MOCKINGJ_SERVER_PORT or MOCKINGJ_MOCK_CACHE_TTL) override the file;
// command-line flags override both. Config.Sources records which layer
// set each value.
package config
