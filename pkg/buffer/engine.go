package buffer

import (
	"context"
	"slices"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/observability"
)

// Restructure searches for the best way to speed up the node of a
// top-level problem by budget and applies it. It reports whether the
// network changed.
//
// The network is snapshotted first and restored when, after all recursion,
// the critical fanin edge of the node or the fanin itself ends up with less
// slack than before. A false return therefore always means the network is
// as it was.
func (s *Session) Restructure(ctx context.Context, p *Problem, budget delay.Time) (bool, error) {
	if budget.Max() < delay.Epsilon || p.Size() == 0 {
		return false, nil
	}
	if err := s.ensureTrace(); err != nil {
		return false, err
	}
	before := s.inputSlack(p)
	snap := s.net.Snapshot()
	stats := s.stats.clone()
	rev := s.net.Revision()

	changed, err := s.restructure(ctx, p, budget, 0)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	if s.net.Revision() == rev {
		return false, errors.New(errors.ErrCodeInternal, "restructure of %s reported a change but the network is unchanged", s.nodeName(p.Node))
	}
	if err := s.retrace(); err != nil {
		return false, err
	}
	if after := s.inputSlack(p); after.regressed(before) {
		s.debug(1, "restructure regressed, restoring", "node", s.nodeName(p.Node),
			"edge_before", before.edge, "edge_after", after.edge)
		s.net.Restore(snap)
		s.stats = stats
		return false, s.retrace()
	}
	return true, nil
}

// inputSlack is the slack seen at the input of a problem's node.
type inputSlack struct {
	edge  delay.Time
	fanin delay.Time
}

func (s *Session) inputSlack(p *Problem) inputSlack {
	f := s.net.Fanin(p.Node, p.CritPin)
	if f == network.NoNode {
		sl := s.trace.Slack(p.Node)
		return inputSlack{edge: sl, fanin: sl}
	}
	return inputSlack{edge: s.trace.EdgeSlack(p.Node, p.CritPin), fanin: s.trace.Slack(f)}
}

func (in inputSlack) regressed(before inputSlack) bool {
	worse := func(a, b delay.Time) bool {
		return a.Rise < b.Rise-delay.Epsilon || a.Fall < b.Fall-delay.Epsilon
	}
	return worse(in.edge, before.edge) || worse(in.fanin, before.fanin)
}

func (s *Session) restructure(ctx context.Context, p *Problem, budget delay.Time, level int) (bool, error) {
	if budget.Max() < delay.Epsilon || p.Size() == 0 {
		return false, nil
	}
	s.stats.MaxLevel = max(s.stats.MaxLevel, level)
	e := s.newEvaluator(p, budget)
	top := level == 0 && p.Top()
	s.debug(1, "restructure", "node", s.nodeName(p.Node), "level", level,
		"pos", len(p.Pos), "neg", len(p.Neg), "orig", e.orig, "target", e.target)

	if top && p.Size() == 1 {
		if !s.cfg.Mode.Has(ModeRepower) {
			return false, nil
		}
		pl := e.searchRepower()
		if !e.accept(pl) {
			return false, nil
		}
		return s.commit(ctx, p, e, pl, level, func() error { return s.applyRepower(p, pl) })
	}

	var repower *plan
	if top && s.cfg.Mode.Has(ModeRepower) {
		repower = e.searchRepower()
		if repower != nil && delay.Meets(repower.achieved, e.target) && e.accept(repower) {
			return s.commit(ctx, p, e, repower, level, func() error { return s.applyRepower(p, repower) })
		}
	}

	if s.cfg.Mode.Has(ModeUnbalanced) && p.spread() > s.minReqDiff() {
		pl := e.searchUnbalanced()
		if pl != nil && s.cfg.Interactive && !delay.Meets(pl.achieved, e.target) &&
			len(s.net.Fanins(p.Node)) > 1 && !s.safe(p, pl) {
			pl = nil
		}
		if pl != nil && e.accept(pl) && beats(pl, repower) {
			if delay.Meets(pl.achieved, e.target) || !e.degenerate(pl) || !s.cfg.Mode.Has(ModeBalanced) {
				return s.implement(ctx, p, e, pl, level, func() ([]branch, error) { return s.applyUnbalanced(p, pl) })
			}
		}
	}

	if s.cfg.Mode.Has(ModeBalanced) {
		pl := e.searchBalanced()
		if pl != nil && e.accept(pl) && beats(pl, repower) {
			return s.implement(ctx, p, e, pl, level, func() ([]branch, error) { return s.applyBalanced(p, pl) })
		}
	}

	if e.accept(repower) {
		return s.commit(ctx, p, e, repower, level, func() error { return s.applyRepower(p, repower) })
	}

	if top && s.cfg.AllowDecompose {
		if pl := e.searchDuplicate(); e.accept(pl) {
			return s.commit(ctx, p, e, pl, level, func() error {
				_, err := s.applyDuplicate(p, pl)
				return err
			})
		}
	}
	return false, nil
}

// commit applies a plan and records it. It reports a change only when the
// network revision moved.
func (s *Session) commit(ctx context.Context, p *Problem, e *evaluator, pl *plan, level int, apply func() error) (bool, error) {
	rev := s.net.Revision()
	inserted := s.stats.Inserted
	if err := apply(); err != nil {
		return false, err
	}
	if s.net.Revision() == rev {
		return false, nil
	}

	gain := pl.achieved.Worst() - e.orig.Worst()
	ev := Event{
		Sweep: s.sweep,
		Kind:  pl.kind,
		Node:  s.nodeName(p.Node),
		Level: level,
		Gain:  gain,
		Area:  pl.area,
	}
	if n := s.stats.Inserted - inserted; n > 0 {
		ev.Inserted = s.lastInserted(n)
	}
	s.stats.Events = append(s.stats.Events, ev)
	s.stats.Transforms[pl.kind]++
	s.stats.LoadViolations += pl.violations
	if pl.violations > 0 {
		s.logger.Warn("transform exceeds max load", "node", ev.Node, "kind", pl.kind, "violations", pl.violations)
	}
	if s.cfg.Trace {
		s.logger.Info("transform", "kind", pl.kind, "node", ev.Node, "level", level, "gain", gain, "area", pl.area)
	}
	observability.Optimizer().OnTransform(ctx, pl.kind, ev.Node, gain)
	return true, nil
}

// lastInserted returns the names of the n most recently created nodes in
// creation order.
func (s *Session) lastInserted(n int) []string {
	return slices.Clone(s.inserted[len(s.inserted)-n:])
}

// implement commits a plan that creates branches and then recurses: first
// on each new branch that limits its driver, then on the node itself when
// it lost fanouts.
func (s *Session) implement(ctx context.Context, p *Problem, e *evaluator, pl *plan, level int, apply func() ([]branch, error)) (bool, error) {
	fanouts := s.net.FanoutCount(p.Node)
	var branches []branch
	changed, err := s.commit(ctx, p, e, pl, level, func() error {
		var err error
		branches, err = apply()
		return err
	})
	if err != nil || !changed {
		return changed, err
	}
	if err := s.retrace(); err != nil {
		return true, err
	}

	budget := e.target.Sub(pl.achieved).ClampZero()
	for _, br := range branches {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		if _, ok := s.net.Node(br.id); !ok || s.net.FanoutCount(br.id) <= s.cfg.FanoutLimit {
			continue
		}
		if !s.limits(br) {
			continue
		}
		if _, err := s.restructure(ctx, s.Classify(p.Root, br.id), budget, level+1); err != nil {
			return true, err
		}
		if err := s.ensureTrace(); err != nil {
			return true, err
		}
	}

	if s.net.FanoutCount(p.Node) < fanouts {
		rp := s.Classify(p.Root, p.Node)
		rp.MaxInputLoad = p.MaxInputLoad
		re := s.newEvaluator(rp, delay.Time{})
		if _, err := s.restructure(ctx, rp, e.target.Sub(re.orig).ClampZero(), level+1); err != nil {
			return true, err
		}
		if err := s.ensureTrace(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// limits reports whether the branch input sets the required time of its
// driver.
func (s *Session) limits(br branch) bool {
	return s.trace.PinRequired(br.id, 0).Worst() <= s.trace.Required(br.driver).Worst()+delay.Epsilon
}
