// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies to the optimizer. Consumers register hooks at startup to
// receive events about optimization sweeps, applied transforms, pipeline
// stages, cache operations, and API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [PrometheusHooks] implements every interface on top of a Prometheus
// registry and is what the CLI and API server install.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
//	    observability.SetOptimizerHooks(hooks)
//	    observability.SetCacheHooks(hooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Optimizer().OnSweepStart(ctx, net.Name(), sweep)
//	// ... scan network ...
//	observability.Optimizer().OnSweepComplete(ctx, net.Name(), sweep, changes, metric, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Optimizer Hooks
// =============================================================================

// OptimizerHooks receives events from the buffering driver.
type OptimizerHooks interface {
	// Sweep events
	OnSweepStart(ctx context.Context, network string, sweep int)
	OnSweepComplete(ctx context.Context, network string, sweep, changes int, metric float64, duration time.Duration)

	// OnTransform records one committed restructuring of a node. Kind is one
	// of "repower", "unbalanced", "balanced", "duplicate" or "maxload".
	OnTransform(ctx context.Context, kind, node string, gain float64)

	// OnAreaRecovery records the number of gates downsized by one recovery pass.
	OnAreaRecovery(ctx context.Context, network string, resized int, areaSaved float64)

	// OnLoadViolation records a node driving more than its cell allows.
	OnLoadViolation(ctx context.Context, node string, load, maxLoad float64)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the load-optimize-report pipeline.
type PipelineHooks interface {
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, nodeCount int, duration time.Duration, err error)

	OnOptimizeStart(ctx context.Context, network string, nodeCount int)
	OnOptimizeComplete(ctx context.Context, network string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the API server.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response status of a request.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopOptimizerHooks is a no-op implementation of OptimizerHooks.
type NoopOptimizerHooks struct{}

func (NoopOptimizerHooks) OnSweepStart(context.Context, string, int) {}
func (NoopOptimizerHooks) OnSweepComplete(context.Context, string, int, int, float64, time.Duration) {
}
func (NoopOptimizerHooks) OnTransform(context.Context, string, string, float64)      {}
func (NoopOptimizerHooks) OnAreaRecovery(context.Context, string, int, float64)      {}
func (NoopOptimizerHooks) OnLoadViolation(context.Context, string, float64, float64) {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnOptimizeStart(context.Context, string, int)                      {}
func (NoopPipelineHooks) OnOptimizeComplete(context.Context, string, time.Duration, error)  {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	optimizerHooks OptimizerHooks = NoopOptimizerHooks{}
	pipelineHooks  PipelineHooks  = NoopPipelineHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetOptimizerHooks registers custom optimizer hooks.
// This should be called once at application startup before any optimization.
func SetOptimizerHooks(h OptimizerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		optimizerHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Optimizer returns the registered optimizer hooks.
func Optimizer() OptimizerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return optimizerHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	optimizerHooks = NoopOptimizerHooks{}
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
