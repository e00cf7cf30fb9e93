// Package cache implements the consistency cache: a TTL map from generation
// keys to generated values.
//
// Entries expire lazily when read and, optionally, through a background
// sweep. Concurrent misses on one key run a single generation and share its
// result. Values are deep-copied on the way in and on the way out, so callers
// can never mutate what the cache holds.
package cache
