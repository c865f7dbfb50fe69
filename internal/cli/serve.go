package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodegraph/internal/server"
	"github.com/matzehuels/nodegraph/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document store over HTTP",
		Long: `Start the HTTP API over the configured document store.

Documents are validated and canonicalised on upload. Prometheus metrics are
exposed on /metrics unless server.metrics is false in the config file, and
server.otel additionally records them through the OpenTelemetry meter
provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := c.config()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			var gatherer prometheus.Gatherer
			var hooks observability.Multi
			if cfg.Server.Metrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				hooks = append(hooks, observability.NewPrometheusHooks(reg))
				gatherer = reg
			}
			if cfg.Server.Otel {
				oh, err := observability.NewOtelHooks(nil)
				if err != nil {
					return err
				}
				hooks = append(hooks, oh)
			}
			if len(hooks) > 0 {
				observability.SetAll(hooks)
				defer observability.Reset()
			}

			s, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			ws, err := c.newWorkspace(s)
			if err != nil {
				s.Close()
				return err
			}
			defer ws.Close()

			c.Logger.Info("serving", "store", cfg.Store.Backend, "metrics", gatherer != nil, "otel", cfg.Server.Otel)
			return server.New(ws, server.Options{
				Addr:         addr,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				Gatherer:     gatherer,
				Logger:       c.Logger,
			}).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
