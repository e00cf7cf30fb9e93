package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	jsonOutput bool
	logLevel   string
}

// NewRootCmd builds the mockingj command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mockingj",
		Short: "mockingj serves schema-valid mock responses for an OpenAPI or Swagger document",
		Long: `mockingj reads an OpenAPI 3.0/3.1 or Swagger 2.0 document and serves every
operation it declares with generated responses that validate against the
declared schemas. Values are deterministic for a seed and stay consistent
between requests while cached.

Configuration can be provided via a YAML file (--config), MOCKINGJ_*
environment variables, or flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file (YAML)")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newEndpointsCmd(opts),
		newGenerateCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
