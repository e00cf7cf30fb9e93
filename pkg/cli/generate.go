package cli

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/sasquatch989/mockingj/internal/matching"
	"github.com/sasquatch989/mockingj/pkg/assembler"
	"github.com/sasquatch989/mockingj/pkg/cli/internal/output"
	"github.com/sasquatch989/mockingj/pkg/config"
	"github.com/sasquatch989/mockingj/pkg/generator"
	"github.com/sasquatch989/mockingj/pkg/schema"
)

// GenerateOutput is the JSON result of the generate command.
type GenerateOutput struct {
	Endpoint string              `json:"endpoint,omitempty"`
	Schema   string              `json:"schema,omitempty"`
	Status   int                 `json:"status,omitempty"`
	Headers  map[string][]string `json:"headers,omitempty"`
	Body     any                 `json:"body"`
	Degraded []string            `json:"degraded,omitempty"`
}

type generateFlags struct {
	mockFlags
	schemaName string
	status     int
	scenario   string
	selectExpr string
	headers    bool
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <spec> [METHOD PATH]",
		Short: "Print one generated response or schema value",
		Long: `Generate the body serve would return for an operation, or a value for a named
schema with --schema. PATH may be the declared template (/pets/{id}) or a
concrete path (/pets/42). Output is deterministic for a seed and scenario.`,
		Example: `  mockingj generate openapi.yaml GET /pets/42
  mockingj generate openapi.yaml GET /pets --status 200 --select '$[*].name'
  mockingj generate openapi.yaml --schema Pet --scenario alice`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case f.schemaName != "" && len(args) == 1:
				return nil
			case f.schemaName == "" && len(args) == 3:
				return nil
			}
			return errors.New("expected <spec> METHOD PATH, or <spec> --schema NAME")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, f, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.schemaName, "schema", "", "Generate a value for this named schema instead of an operation")
	fs.IntVar(&f.status, "status", 0, "Response status (default: the operation's default status)")
	fs.StringVar(&f.scenario, "scenario", "", "Scenario key")
	fs.StringVar(&f.selectExpr, "select", "", "JSONPath expression applied to the generated body")
	fs.BoolVarP(&f.headers, "include", "i", false, "Print the status line and response headers")
	f.mockFlags.register(fs)
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *rootOptions, f *generateFlags, args []string) error {
	if f.selectExpr != "" {
		if err := matching.ValidateJSONPathExpression(f.selectExpr); err != nil {
			return err
		}
	}
	cfg, err := opts.loadConfig(cmd, func(cfg *config.Config) { f.mockFlags.apply(cmd.Flags(), cfg) })
	if err != nil {
		return err
	}
	log := quietLogger(cmd, cfg)
	graph, err := loadSpec(cmd.Context(), args[0], cfg, log)
	if err != nil {
		return err
	}
	st, err := buildStack(cfg, log, nil)
	if err != nil {
		return err
	}

	var out GenerateOutput
	var raw []byte
	if f.schemaName != "" {
		n, ok := graph.Named(f.schemaName)
		if !ok {
			return fmt.Errorf("no schema named %q (have %s)", f.schemaName, strings.Join(graph.Names(), ", "))
		}
		res, err := st.gen.Generate(cmd.Context(), graph, n.ID, generator.Scope{Scenario: f.scenario})
		if err != nil {
			return err
		}
		out = GenerateOutput{Schema: f.schemaName, Body: res.Value, Degraded: res.DegradedPaths()}
	} else {
		ep, err := findEndpoint(graph, args[1], args[2])
		if err != nil {
			return err
		}
		status := f.status
		if status == 0 {
			status = ep.DefaultStatusCode()
		}
		resp, err := st.asm.Build(cmd.Context(), graph, ep, status, f.scenario)
		if err != nil {
			return err
		}
		out = GenerateOutput{Endpoint: ep.ID(), Status: resp.Status, Headers: resp.Headers, Body: resp.Value}
		for _, d := range resp.Degraded {
			out.Degraded = append(out.Degraded, d.Path)
		}
		if resp.Value == nil || !assembler.IsJSON(resp.Headers.Get("Content-Type")) {
			raw = resp.Body
		}
	}

	if f.selectExpr != "" && raw == nil {
		if out.Body, err = matching.Select(f.selectExpr, out.Body); err != nil {
			return err
		}
	}
	for _, p := range out.Degraded {
		output.Warn(cmd.ErrOrStderr(), "value at %s was truncated or does not satisfy every constraint", p)
	}

	w := cmd.OutOrStdout()
	if opts.jsonOutput {
		if raw != nil {
			out.Body = string(raw)
		}
		return output.JSON(w, out)
	}
	if f.headers && out.Status != 0 {
		writeHead(w, out.Status, out.Headers)
	}
	if raw != nil {
		_, err := w.Write(raw)
		return err
	}
	if out.Body == nil && out.Status != 0 {
		return nil
	}
	data, err := json.MarshalIndent(out.Body, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// findEndpoint accepts either a declared template or a concrete path.
func findEndpoint(g *schema.Graph, method, path string) (*schema.Endpoint, error) {
	method = strings.ToUpper(method)
	if ep, ok := g.Endpoint(method, path); ok {
		return ep, nil
	}
	router := matching.NewRouter[*schema.Endpoint]()
	for _, ep := range g.Endpoints() {
		router.Add(ep.Method, ep.Path, ep)
	}
	m, allowed, found := router.Lookup(method, path)
	switch {
	case found:
		return m.Value, nil
	case len(allowed) > 0:
		return nil, fmt.Errorf("%s is not declared for %s (allowed: %s)", method, path, strings.Join(allowed, ", "))
	}
	return nil, fmt.Errorf("no operation matches %s %s", method, path)
}

func writeHead(w io.Writer, status int, h http.Header) {
	fmt.Fprintf(w, "HTTP %d %s\n", status, http.StatusText(status))
	for _, k := range slices.Sorted(maps.Keys(h)) {
		fmt.Fprintf(w, "%s: %s\n", k, strings.Join(h[k], ", "))
	}
	fmt.Fprintln(w)
}
