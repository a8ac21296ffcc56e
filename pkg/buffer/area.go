package buffer

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/observability"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// RecoverArea downsizes mapped gates from outputs to inputs. For each gate
// the smallest variant is taken whose input edges all keep at least the
// network's minimum slack and which does not lower that minimum. It returns
// the number of resized gates.
func (s *Session) RecoverArea(ctx context.Context) (int, error) {
	if !s.cfg.Mode.Has(ModeRepower) {
		return 0, nil
	}
	if err := s.ensureTrace(); err != nil {
		return 0, err
	}
	floor := s.trace.MinSlack()
	before := s.Area()
	resized := 0
	for _, id := range s.net.ReverseTopoOrder() {
		if err := ctx.Err(); err != nil {
			return resized, err
		}
		nd, ok := s.net.Node(id)
		if !ok || !nd.IsInternal() || !s.inScope(id) {
			continue
		}
		g, mapped := s.model.Gate(nd)
		if !mapped {
			continue
		}
		ok, err := s.downsize(id, g, floor)
		if err != nil {
			return resized, err
		}
		if ok {
			resized++
		}
	}
	if resized > 0 {
		saved := before - s.Area()
		s.stats.Transforms[KindAreaRecovery] += resized
		s.stats.Resized += resized
		s.stats.Events = append(s.stats.Events, Event{Sweep: s.sweep, Kind: KindAreaRecovery, Node: s.net.Name(), Gain: saved, Area: -saved})
		observability.Optimizer().OnAreaRecovery(context.WithoutCancel(ctx), s.net.Name(), resized, saved)
		s.debug(1, "area recovered", "resized", resized, "saved", saved)
	}
	return resized, nil
}

func (s *Session) downsize(id network.NodeID, cur *library.Gate, floor float64) (bool, error) {
	var smaller []*library.Gate
	for _, v := range s.model.Variants(cur) {
		if v.Area < cur.Area-delay.Epsilon {
			smaller = append(smaller, v)
		}
	}
	if len(smaller) == 0 {
		return false, nil
	}
	slices.SortStableFunc(smaller, func(a, b *library.Gate) int { return cmp.Compare(a.Area, b.Area) })

	for _, v := range smaller {
		scratch := s.net.Clone()
		if err := scratch.SetGate(id, v.Name); err != nil {
			return false, errors.Wrap(errors.ErrCodeInternal, err, "area recovery of %s", s.nodeName(id))
		}
		tr, err := s.traceOf(scratch)
		if err != nil {
			return false, err
		}
		if !holds(tr, id, floor) {
			continue
		}
		if err := s.net.SetGate(id, v.Name); err != nil {
			return false, errors.Wrap(errors.ErrCodeInternal, err, "area recovery of %s", s.nodeName(id))
		}
		st := s.states.Get(id)
		st.Impl = ImplGate
		st.Gate = v
		return true, s.retrace()
	}
	return false, nil
}

// holds reports whether every input edge of id and the network minimum
// still have at least floor slack in tr.
func holds(tr *timing.Trace, id network.NodeID, floor float64) bool {
	for pin := range tr.Network().Fanins(id) {
		if tr.EdgeSlack(id, pin).Worst() < floor-delay.Epsilon {
			return false
		}
	}
	return tr.MinSlack() >= floor-delay.Epsilon
}
