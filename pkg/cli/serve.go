package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sasquatch989/mockingj/pkg/config"
	"github.com/sasquatch989/mockingj/pkg/engine"
	"github.com/sasquatch989/mockingj/pkg/logging"
	"github.com/sasquatch989/mockingj/pkg/metrics"
)

type serveFlags struct {
	mockFlags
	host       string
	port       int
	cacheTTL   int
	noCache    bool
	noValidate bool
	watch      bool
	delayMin   int
	delayMax   int
	tlsCert    string
	tlsKey     string
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve <spec>",
		Short: "Serve mock responses for a document (foreground)",
		Long: `Start the mock server for an OpenAPI or Swagger document.

Every declared operation answers with a generated response. Choose the status
with the X-Mock-Status header or ?__status=, and an independent set of values
with X-Mock-Scenario or ?__scenario=. Meta endpoints live under /__mockingj/.`,
		Example: `  # Serve on the default port
  mockingj serve petstore.yaml

  # Custom port, reload the document when it changes
  mockingj serve openapi.yaml --port 3000 --watch

  # Random values per process, only ids among optional properties
  mockingj serve openapi.yaml --seed-mode random --optional match --optional-pattern '**/id'

  # HTTPS
  mockingj serve openapi.yaml --tls-cert server.crt --tls-key server.key`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts, f, args[0])
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.host, "host", config.DefaultHost, "Interface to listen on")
	fs.IntVarP(&f.port, "port", "p", config.DefaultPort, "HTTP server port (0 picks a free port)")
	fs.IntVar(&f.cacheTTL, "cache-ttl", config.DefaultCacheTTL, "Seconds a generated value stays cached")
	fs.BoolVar(&f.noCache, "no-cache", false, "Disable the consistency cache")
	fs.BoolVar(&f.noValidate, "no-validate", false, "Do not validate request parameters and bodies")
	fs.BoolVarP(&f.watch, "watch", "w", false, "Reload the document when the file changes")
	fs.IntVar(&f.delayMin, "delay-min", 0, "Minimum response delay in milliseconds")
	fs.IntVar(&f.delayMax, "delay-max", 0, "Maximum response delay in milliseconds")
	fs.StringVar(&f.tlsCert, "tls-cert", "", "Path to TLS certificate file")
	fs.StringVar(&f.tlsKey, "tls-key", "", "Path to TLS private key file")
	f.mockFlags.register(fs)
	return cmd
}

func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	f.mockFlags.apply(fs, cfg)
	set(fs, cfg, "host", "server.host", func() { cfg.Server.Host = f.host })
	set(fs, cfg, "port", "server.port", func() { cfg.Server.Port = f.port })
	set(fs, cfg, "cache-ttl", "mock.cacheTTL", func() { cfg.Mock.CacheTTL = f.cacheTTL })
	set(fs, cfg, "no-cache", "mock.cacheEnabled", func() { cfg.Mock.CacheEnabled = !f.noCache })
	set(fs, cfg, "no-validate", "mock.validateRequests", func() { cfg.Mock.ValidateRequests = !f.noValidate })
	set(fs, cfg, "watch", "mock.watchSpec", func() { cfg.Mock.WatchSpec = f.watch })
	set(fs, cfg, "delay-min", "mock.responseDelay.minMs", func() {
		cfg.Mock.ResponseDelay.Enabled = true
		cfg.Mock.ResponseDelay.MinMs = f.delayMin
	})
	set(fs, cfg, "delay-max", "mock.responseDelay.maxMs", func() {
		cfg.Mock.ResponseDelay.Enabled = true
		cfg.Mock.ResponseDelay.MaxMs = f.delayMax
	})
	if fs.Changed("tls-cert") || fs.Changed("tls-key") {
		cfg.Server.TLS = config.TLSConfig{Enabled: true, CertFile: f.tlsCert, KeyFile: f.tlsKey}
		cfg.SetSource("server.tls", config.SourceFlag)
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *rootOptions, f *serveFlags, specPath string) error {
	cfg, err := opts.loadConfig(cmd, func(cfg *config.Config) { f.apply(cmd, cfg) })
	if err != nil {
		return err
	}

	lc := cfg.LoggingConfig()
	lc.Output = cmd.ErrOrStderr()
	log, closeLog, err := logging.Open(lc)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	m := metrics.New()
	st, err := buildStack(cfg, log, m)
	if err != nil {
		return err
	}
	if st.cache != nil {
		st.cache.StartSweeper(cfg.Mock.SweepInterval)
		defer st.cache.Stop()
	}

	loader := specLoader(specPath, cfg, log)
	graph, err := loader(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", specPath, err)
	}

	eng := engine.New(st.asm,
		engine.WithLogger(log),
		engine.WithMetrics(m),
		engine.WithCache(st.cache),
		engine.WithLoader(loader),
		engine.WithRequestValidation(cfg.Mock.ValidateRequests),
		engine.WithDelay(cfg.Delay()),
	)
	eng.Load(graph)

	srv := engine.NewServer(cfg.ServerConfig(), eng, log)
	if err := srv.Start(); err != nil {
		return err
	}

	if cfg.Mock.WatchSpec {
		w, err := engine.NewWatcher(eng, specPath, engine.DefaultDebounce)
		if err != nil {
			_ = srv.Stop(context.Background())
			return err
		}
		go func() { _ = w.Run(ctx) }()
	}

	scheme := "http"
	if cfg.Server.TLS.Enabled {
		scheme = "https"
	}
	log.Info("mock server ready",
		"spec", specPath,
		"title", graph.Title(),
		"endpoints", len(graph.Endpoints()),
		"seed", cfg.Mock.Seed,
		"url", scheme+"://"+srv.Addr())
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %q (%d endpoints) on %s://%s\n",
		graph.Title(), len(graph.Endpoints()), scheme, srv.Addr())

	select {
	case <-ctx.Done():
	case err := <-srv.Done():
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Shutting down...")
	return srv.Stop(context.Background())
}
