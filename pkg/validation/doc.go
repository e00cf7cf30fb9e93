// Package validation checks values against resolved schema nodes.
//
// Two validators share the FieldError/Result taxonomy:
//
//   - ValidateNode walks a schema.Graph directly. The response assembler uses
//     it to re-check every generated body, skipping instance paths the
//     generator reported as degraded.
//   - SchemaValidator compiles the JSON Schema export of a node with
//     santhosh-tekuri/jsonschema and validates incoming request bodies.
//
// ValidateParameters coerces path, query and header strings to the kinds
// their parameters declare and validates them with ValidateNode.
//
// # Basic Usage
//
//	result := validation.ValidateNode(graph, id, value,
//	    validation.SkipPaths("$.children[0]"))
//	if !result.Valid {
//	    for _, e := range result.Errors {
//	        log.Printf("%s: %s", e.Field, e.Message)
//	    }
//	}
//
// oneOf is checked as "at least one alternative matches", the same rule
// the generator satisfies when it picks a single alternative.
package validation
