package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks implements every hook interface by recording Prometheus
// metrics on the registry given to [NewPrometheusHooks].
type PrometheusHooks struct {
	sweeps         *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	sweepMetric    *prometheus.GaugeVec
	transforms     *prometheus.CounterVec
	transformGain  *prometheus.HistogramVec
	areaRecovered  prometheus.Counter
	loadViolations prometheus.Counter
	stageDuration  *prometheus.HistogramVec
	cacheOps       *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewPrometheusHooks registers the optimizer metrics on reg.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bufferopt_sweeps_total",
			Help: "Total number of optimization sweeps",
		}, []string{"outcome"}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bufferopt_sweep_duration_seconds",
			Help:    "Duration of one optimization sweep",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
		sweepMetric: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bufferopt_sweep_metric",
			Help: "Performance metric after the latest sweep (larger is better)",
		}, []string{"network"}),
		transforms: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bufferopt_transforms_total",
			Help: "Committed restructurings by kind",
		}, []string{"kind"}),
		transformGain: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bufferopt_transform_gain",
			Help:    "Required-time gain of committed restructurings",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10},
		}, []string{"kind"}),
		areaRecovered: f.NewCounter(prometheus.CounterOpts{
			Name: "bufferopt_area_recovered_total",
			Help: "Total area saved by area recovery",
		}),
		loadViolations: f.NewCounter(prometheus.CounterOpts{
			Name: "bufferopt_load_violations_total",
			Help: "Nodes found driving more than their cell max load",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bufferopt_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bufferopt_cache_operations_total",
			Help: "Cache operations by key type and result",
		}, []string{"key_type", "result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bufferopt_http_requests_total",
			Help: "API requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bufferopt_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *PrometheusHooks) OnSweepStart(context.Context, string, int) {}

func (p *PrometheusHooks) OnSweepComplete(_ context.Context, network string, _ int, changes int, metric float64, d time.Duration) {
	outcome := "changed"
	if changes == 0 {
		outcome = "stable"
	}
	p.sweeps.WithLabelValues(outcome).Inc()
	p.sweepDuration.Observe(d.Seconds())
	p.sweepMetric.WithLabelValues(network).Set(metric)
}

func (p *PrometheusHooks) OnTransform(_ context.Context, kind, _ string, gain float64) {
	p.transforms.WithLabelValues(kind).Inc()
	p.transformGain.WithLabelValues(kind).Observe(gain)
}

func (p *PrometheusHooks) OnAreaRecovery(_ context.Context, _ string, resized int, saved float64) {
	p.transforms.WithLabelValues("area").Add(float64(resized))
	if saved > 0 {
		p.areaRecovered.Add(saved)
	}
}

func (p *PrometheusHooks) OnLoadViolation(context.Context, string, float64, float64) {
	p.loadViolations.Inc()
}

func (p *PrometheusHooks) OnLoadStart(context.Context, string) {}

func (p *PrometheusHooks) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	p.stageDuration.WithLabelValues("load", status(err)).Observe(d.Seconds())
}

func (p *PrometheusHooks) OnOptimizeStart(context.Context, string, int) {}

func (p *PrometheusHooks) OnOptimizeComplete(_ context.Context, _ string, d time.Duration, err error) {
	p.stageDuration.WithLabelValues("optimize", status(err)).Observe(d.Seconds())
}

func (p *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
}

func (p *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (p *PrometheusHooks) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, statusClass(code)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
