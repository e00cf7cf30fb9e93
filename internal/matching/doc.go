// Package matching routes request paths to declared path templates and
// projects generated bodies with JSONPath.
//
// Templates are scored the way mocks were always ranked: an exact literal
// path beats a template with named parameters, and among parameterized
// templates the one with more literal segments wins.
//
// Key types:
//
//   - Router: method and template table with 404/405 distinction
//   - Match: the selected value with its captured path parameters
package matching
