package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bufferopt/pkg/api"
	"github.com/matzehuels/bufferopt/pkg/cache"
	"github.com/matzehuels/bufferopt/pkg/observability"
	"github.com/matzehuels/bufferopt/pkg/pipeline"
	"github.com/matzehuels/bufferopt/pkg/store"
)

type serveFlags struct {
	addr    string
	redis   string
	mongo   string
	mongoDB string
	timeout time.Duration
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the optimizer over HTTP",
		Long: `Starts the HTTP API. Results are cached in Redis when --redis is set and
run reports are kept in MongoDB when --mongo is set; otherwise nothing is
cached and reports live in memory.`,
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&f.redis, "redis", "", "Redis URL for the result cache")
	cmd.Flags().StringVar(&f.mongo, "mongo", "", "MongoDB URI for run reports")
	cmd.Flags().StringVar(&f.mongoDB, "mongo-db", appName, "MongoDB database name")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "per-request optimization timeout")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, f serveFlags) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetOptimizerHooks(hooks)
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	var rc cache.Cache = cache.NewNullCache()
	if f.redis != "" {
		r, err := cache.NewRedisCache(ctx, f.redis)
		if err != nil {
			return err
		}
		rc = r
		c.Logger.Info("result cache", "backend", "redis")
	}

	var st store.Store = store.NewMemoryStore()
	if f.mongo != "" {
		m, err := store.NewMongoStore(ctx, f.mongo, f.mongoDB)
		if err != nil {
			rc.Close()
			return err
		}
		st = m
		c.Logger.Info("run store", "backend", "mongo", "db", f.mongoDB)
	}

	runner := pipeline.NewRunner(rc, cache.NewScopedKeyer(nil, "api:"), st, c.Logger)
	defer runner.Close(context.WithoutCancel(ctx))

	srv := api.New(runner, st, c.Logger, api.WithMetrics(reg), api.WithTimeout(f.timeout))
	return srv.ListenAndServe(ctx, f.addr)
}
