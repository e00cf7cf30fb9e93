// mockingj serves generated, schema-valid responses for an OpenAPI or
// Swagger document.
package main

import "github.com/sasquatch989/mockingj/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
