// Package assembler builds complete mock responses for an endpoint.
//
// Build looks up the declared response for a status code, generates its body
// through the generator (and its store), re-validates the body against the
// response schema and fills in the declared headers. Positions the generator
// reported as degraded are excluded from re-validation; any other violation
// is a generator bug and is returned as an AssemblyError.
package assembler
