package buffer

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/observability"
)

var tracer = otel.Tracer("bufferopt.buffer")

// Optimize runs the network-level driver: sweeps of critical-node scans
// followed by area recovery, until a sweep changes nothing or the
// performance metric stops improving. The best network seen is kept; a
// sweep that neither raises the metric nor saves area at the same metric is
// undone.
//
// With MaxLoadOnly set only the max-load pass runs. ctx is checked between
// node visits; on cancellation the network is left in its last consistent
// state and ctx.Err() is returned.
func (s *Session) Optimize(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "buffer.Optimize",
		trace.WithAttributes(
			attribute.String("network", s.net.Name()),
			attribute.String("mode", s.cfg.Mode.String()),
			attribute.Int("nodes", s.net.NodeCount()),
		),
	)
	defer span.End()

	stats, err := s.optimize(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "optimize failed")
		return stats, err
	}
	span.SetAttributes(
		attribute.Int("sweeps", stats.Sweeps),
		attribute.Int("changes", stats.Changes()),
		attribute.Float64("metric", stats.MetricAfter),
	)
	return stats, nil
}

func (s *Session) optimize(ctx context.Context) (Stats, error) {
	if s.states == nil {
		return s.Stats(), errors.New(errors.ErrCodeInternal, "session is closed")
	}
	if s.cfg.MaxLoadOnly {
		if err := s.EnforceMaxLoad(ctx); err != nil {
			return s.Stats(), err
		}
		return s.finish()
	}

	best := s.net.Snapshot()
	bestStats := s.stats.clone()
	bestMetric, bestArea := s.metric(), s.Area()
	undo := false
	for sweep := 1; sweep <= s.cfg.MaxSweeps; sweep++ {
		if err := ctx.Err(); err != nil {
			return s.Stats(), err
		}
		s.sweep = sweep
		s.stats.Sweeps = sweep
		start := time.Now()
		observability.Optimizer().OnSweepStart(ctx, s.net.Name(), sweep)

		changes, err := s.runSweep(ctx)
		if err != nil {
			return s.Stats(), err
		}
		if err := s.unfreeze(); err != nil {
			return s.Stats(), err
		}
		metric := s.metric()
		observability.Optimizer().OnSweepComplete(ctx, s.net.Name(), sweep, changes, metric, time.Since(start))
		s.logger.Debug("sweep complete", "sweep", sweep, "changes", changes, "metric", metric)

		if changes == 0 {
			break
		}
		area := s.Area()
		if !improves(metric, area, bestMetric, bestArea) {
			undo = true
			break
		}
		best, bestStats, bestMetric, bestArea = s.net.Snapshot(), s.stats.clone(), metric, area
		if s.cfg.SinglePass {
			break
		}
	}

	if undo {
		s.logger.Debug("restoring best network", "metric", bestMetric, "area", bestArea)
		sweeps := s.stats.Sweeps
		s.net.Restore(best)
		s.stats = bestStats
		s.stats.Sweeps = sweeps
		if err := s.retrace(); err != nil {
			return s.Stats(), err
		}
	}
	return s.finish()
}

// improves reports whether a sweep result beats the best one so far: a higher
// metric, or an equal metric at smaller area. A sweep that is not better is
// undone, so running the driver again on its own result changes nothing.
func improves(metric, area, bestMetric, bestArea float64) bool {
	if metric > bestMetric+delay.Epsilon {
		return true
	}
	return metric > bestMetric-delay.Epsilon && area < bestArea-delay.Epsilon
}

func (s *Session) finish() (Stats, error) {
	if err := s.unfreeze(); err != nil {
		return s.Stats(), err
	}
	s.stats.AreaAfter = s.Area()
	s.stats.MetricAfter = s.metric()
	return s.Stats(), nil
}

// runSweep performs one reset-scan-recover cycle and returns the number of
// committed changes.
func (s *Session) runSweep(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "buffer.Sweep", trace.WithAttributes(attribute.Int("sweep", s.sweep)))
	defer span.End()

	s.states.Reset()
	if err := s.freeze(); err != nil {
		return 0, err
	}
	changes := 0
	if crit, ok := s.threshold(); ok {
		for {
			changed, err := s.scan(ctx, crit)
			if err != nil {
				return changes, err
			}
			if !changed {
				break
			}
			changes++
		}
		span.AddEvent("scan_complete", trace.WithAttributes(attribute.Int("changes", changes)))
	} else {
		span.AddEvent("constraints_met")
	}

	resized, err := s.RecoverArea(ctx)
	if err != nil {
		return changes, err
	}
	span.SetAttributes(attribute.Int("changes", changes), attribute.Int("resized", resized))
	return changes + resized, nil
}

// threshold returns the slack at or below which nodes are scanned. It
// reports false when every output constraint is already met.
func (s *Session) threshold() (float64, bool) {
	if !s.trace.Constrained() {
		return s.cfg.Threshold, true
	}
	worst := s.trace.MinOutputSlack()
	if worst >= 0 || math.IsInf(worst, 1) {
		return 0, false
	}
	return worst + s.cfg.Threshold, true
}

// scan visits candidate nodes from inputs to outputs and stops at the first
// committed change.
func (s *Session) scan(ctx context.Context, crit float64) (bool, error) {
	for _, id := range s.net.TopoOrder() {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !s.candidate(id, crit) {
			continue
		}
		budget, maxLoad := s.Target(id, crit)
		st := s.states.Get(id)
		st.Visited = true
		if budget.Max() < delay.Epsilon {
			continue
		}
		p := s.Classify(id, id)
		p.MaxInputLoad = maxLoad
		changed, err := s.Restructure(ctx, p, budget)
		if err != nil {
			return false, err
		}
		if changed {
			return true, s.ensureTrace()
		}
	}
	return false, nil
}

func (s *Session) candidate(id network.NodeID, crit float64) bool {
	nd, ok := s.net.Node(id)
	if !ok || nd.IsOutput() || !s.inScope(id) || s.net.FanoutCount(id) == 0 {
		return false
	}
	st := s.states.Get(id)
	if st == nil || st.Visited {
		return false
	}
	return s.trace.Slack(id).Worst() <= crit
}
