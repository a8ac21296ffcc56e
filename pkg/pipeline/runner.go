package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/cache"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/netio"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/observability"
	"github.com/matzehuels/bufferopt/pkg/store"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

var tracer = otel.Tracer("bufferopt.pipeline")

// Runner executes pipeline runs with caching and report storage.
//
// A Runner holds no per-run state; one Runner may serve concurrent runs
// as long as its cache and store are safe for concurrent use.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// means [cache.DefaultKeyer] and a nil store skips saving reports.
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Store: st, Logger: logger}
}

// cachedResult is the cache payload of one optimization.
type cachedResult struct {
	Network json.RawMessage `json:"network"`
	Stats   buffer.Stats    `json:"stats"`
}

// Load parses the network and library documents of opts. The library is
// nil when opts carries none.
func (r *Runner) Load(ctx context.Context, opts Options) (*network.Network, *library.Library, error) {
	source := opts.Source
	observability.Pipeline().OnLoadStart(ctx, source)
	start := time.Now()

	net, lib, err := load(opts)
	count := 0
	if net != nil {
		count = net.NodeCount()
		if source == "" {
			source = net.Name()
		}
	}
	observability.Pipeline().OnLoadComplete(ctx, source, count, time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	r.logger(opts).Info("loaded network", "network", net.Name(), "nodes", count, "duration", time.Since(start))
	return net, lib, nil
}

func load(opts Options) (*network.Network, *library.Library, error) {
	var lib *library.Library
	if len(opts.Library) > 0 {
		var err error
		lib, err = library.Parse(bytes.NewReader(opts.Library))
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInvalidLibrary, err, "load library")
		}
	}
	net, err := netio.ReadJSON(bytes.NewReader(opts.Network))
	if err != nil {
		return nil, nil, err
	}
	return net, lib, nil
}

// Execute loads the inputs, optimizes the network (or takes the cached
// result) and records a report.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "pipeline.Execute", trace.WithAttributes(
		attribute.String("mode", opts.Config.Mode.String()),
		attribute.Bool("refresh", opts.Refresh),
	))
	defer span.End()

	res, err := r.execute(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.UserMessage(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("run_id", res.Report.ID),
		attribute.Bool("cache_hit", res.CacheHit),
	)
	return res, nil
}

func (r *Runner) execute(ctx context.Context, opts Options) (*Result, error) {
	logger := r.logger(opts)
	start := time.Now()

	net, lib, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Model: timing.NewModel(lib, opts.Config.WireLoad),
		Key:   r.Keyer.ResultKey(cache.Hash(opts.Network), cache.Hash(opts.Library), opts.Config),
	}

	var stats buffer.Stats
	if cached, ok := r.lookup(ctx, res.Key, opts.Refresh); ok {
		res.Network, res.Document, stats, res.CacheHit = cached.net, cached.doc, cached.stats, true
		logger.Info("using cached result", "network", net.Name())
	} else {
		stats, err = r.optimize(ctx, net, res.Model, opts.Config, logger)
		if err != nil {
			return nil, err
		}
		var doc bytes.Buffer
		if err := netio.WriteJSON(net, &doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode result")
		}
		res.Network, res.Document = net, doc.Bytes()
		r.remember(ctx, res.Key, cachedResult{Network: res.Document, Stats: stats})
	}

	libName := ""
	if lib != nil {
		libName = lib.Name()
	}
	res.Report = store.NewReport(res.Network.Name(), libName, opts.Config.Mode, stats)
	res.Report.Duration = time.Since(start)
	res.Report.CacheHit = res.CacheHit
	if err := r.save(ctx, res.Report); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) optimize(ctx context.Context, net *network.Network, model *timing.Model, cfg buffer.Config, logger *log.Logger) (buffer.Stats, error) {
	observability.Pipeline().OnOptimizeStart(ctx, net.Name(), net.NodeCount())
	start := time.Now()

	sess, err := buffer.NewSession(net, model, cfg, buffer.WithLogger(logger))
	if err != nil {
		observability.Pipeline().OnOptimizeComplete(ctx, net.Name(), time.Since(start), err)
		return buffer.Stats{}, err
	}
	defer sess.Close()

	stats, err := sess.Optimize(ctx)
	observability.Pipeline().OnOptimizeComplete(ctx, net.Name(), time.Since(start), err)
	if err != nil {
		return stats, err
	}
	logger.Info("optimized network",
		"network", net.Name(),
		"sweeps", stats.Sweeps,
		"changes", stats.Changes(),
		"metric", stats.MetricAfter,
		"duration", time.Since(start))
	return stats, nil
}

type hit struct {
	net   *network.Network
	doc   []byte
	stats buffer.Stats
}

func (r *Runner) lookup(ctx context.Context, key string, refresh bool) (hit, bool) {
	if refresh {
		return hit{}, false
	}
	data, ok, err := r.Cache.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, "result")
		return hit{}, false
	}
	var payload cachedResult
	if err := json.Unmarshal(data, &payload); err != nil {
		observability.Cache().OnCacheMiss(ctx, "result")
		return hit{}, false
	}
	net, err := netio.ReadJSON(bytes.NewReader(payload.Network))
	if err != nil {
		observability.Cache().OnCacheMiss(ctx, "result")
		return hit{}, false
	}
	observability.Cache().OnCacheHit(ctx, "result")
	return hit{net: net, doc: payload.Network, stats: payload.Stats}, true
}

func (r *Runner) remember(ctx context.Context, key string, payload cachedResult) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "result", len(data))
}

// save stores the report, retrying backend failures.
func (r *Runner) save(ctx context.Context, rep *store.Report) error {
	if r.Store == nil {
		return nil
	}
	return cache.RetryWithBackoff(ctx, func() error {
		err := r.Store.Save(ctx, rep)
		if errors.Is(err, errors.ErrCodeStorage) {
			return cache.Retryable(err)
		}
		return err
	})
}

// Close releases the cache and the store.
func (r *Runner) Close(ctx context.Context) error {
	err := r.Cache.Close()
	if r.Store != nil {
		if serr := r.Store.Close(ctx); err == nil {
			err = serr
		}
	}
	return err
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
