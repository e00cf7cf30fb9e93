// Package cli implements the mockingj command line.
//
//	mockingj serve <spec>                      run the mock server
//	mockingj validate <spec>                   load a document and summarize it
//	mockingj endpoints <spec>                  list declared operations
//	mockingj generate <spec> METHOD PATH       print one generated response
//	mockingj generate <spec> --schema NAME     print a value for a named schema
//	mockingj version
//
// Every command reads the optional --config file and MOCKINGJ_* environment
// variables through package config; flags given explicitly win.
package cli
