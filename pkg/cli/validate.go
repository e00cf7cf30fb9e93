package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sasquatch989/mockingj/pkg/cli/internal/output"
	"github.com/sasquatch989/mockingj/pkg/config"
	"github.com/sasquatch989/mockingj/pkg/resolver"
	"github.com/sasquatch989/mockingj/pkg/schema"
)

// ValidateOutput is the JSON result of the validate command.
type ValidateOutput struct {
	Valid     bool         `json:"valid"`
	Spec      string       `json:"spec"`
	Version   string       `json:"version,omitempty"`
	Title     string       `json:"title,omitempty"`
	Endpoints int          `json:"endpoints"`
	Schemas   int          `json:"schemas"`
	Nodes     int          `json:"nodes"`
	Cyclic    []string     `json:"cyclic,omitempty"`
	Error     *ErrorOutput `json:"error,omitempty"`
}

// ErrorOutput describes a document that failed to load.
type ErrorOutput struct {
	Kind     string `json:"kind,omitempty"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <spec>",
		Short: "Check that a document loads and report what it declares",
		Long: `Resolve an OpenAPI or Swagger document exactly as serve would and report its
endpoints, named schemas and recursive schemas. Exits non-zero when the
document is malformed, uses an unsupported version, or has references that
cannot be resolved.`,
		Example: `  mockingj validate openapi.yaml
  mockingj validate swagger.json --strict --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd, func(cfg *config.Config) {
				set(cmd.Flags(), cfg, "strict", "mock.strictSpec", func() { cfg.Mock.StrictSpec = strict })
			})
			if err != nil {
				return err
			}
			out := ValidateOutput{Spec: args[0]}
			graph, err := loadSpec(cmd.Context(), args[0], cfg, quietLogger(cmd, cfg))
			if err != nil {
				out.Error = describeError(err)
				if opts.jsonOutput {
					_ = output.JSON(cmd.OutOrStdout(), out)
				}
				return err
			}
			summarize(&out, graph)

			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s is valid: %s %q\n", out.Spec, versionLabel(out.Version), out.Title)
			fmt.Fprintf(w, "  endpoints: %d\n  schemas:   %d\n  nodes:     %d\n", out.Endpoints, out.Schemas, out.Nodes)
			if len(out.Cyclic) > 0 {
				fmt.Fprintf(w, "  recursive: %v\n", out.Cyclic)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Also validate the document structurally")
	return cmd
}

func summarize(out *ValidateOutput, g *schema.Graph) {
	out.Valid = true
	out.Version = g.Version()
	out.Title = g.Title()
	out.Endpoints = len(g.Endpoints())
	out.Schemas = len(g.Names())
	out.Nodes = g.Len()
	for _, name := range g.Names() {
		if n, ok := g.Named(name); ok && n.Cyclic {
			out.Cyclic = append(out.Cyclic, name)
		}
	}
}

func describeError(err error) *ErrorOutput {
	var se *resolver.SpecError
	if errors.As(err, &se) {
		return &ErrorOutput{Kind: string(se.Kind), Location: se.Location, Message: se.Message}
	}
	return &ErrorOutput{Message: err.Error()}
}

func versionLabel(v string) string {
	if len(v) > 0 && v[0] == '2' {
		return "swagger " + v
	}
	return "openapi " + v
}
