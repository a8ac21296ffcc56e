package buffer

import (
	"context"
	"math"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/observability"
)

// EnforceMaxLoad splits the fanouts of every node that drives more than its
// implementation allows. The most critical fanouts stay on the node; the
// rest are packed under the strongest catalog buffer. Violations that
// cannot be fixed are counted and left alone.
func (s *Session) EnforceMaxLoad(ctx context.Context) error {
	if err := s.ensureTrace(); err != nil {
		return err
	}
	for _, id := range s.net.TopoOrder() {
		if err := ctx.Err(); err != nil {
			return err
		}
		nd, ok := s.net.Node(id)
		if !ok || nd.IsOutput() || !s.inScope(id) {
			continue
		}
		limit := s.currentCell(id, max(s.trace.CriticalPin(id), 0)).MaxLoad
		load := s.trace.Load(id)
		if load <= limit+delay.Epsilon {
			continue
		}
		s.stats.LoadViolations++
		observability.Optimizer().OnLoadViolation(ctx, nd.Name, load, limit)
		s.logger.Warn("max load exceeded", "node", nd.Name, "load", load, "max_load", limit)

		fixed, err := s.splitLoad(ctx, id, limit)
		if err != nil {
			return err
		}
		if !fixed {
			s.logger.Warn("max load violation left in place", "node", nd.Name)
			continue
		}
		if err := s.retrace(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) splitLoad(ctx context.Context, id network.NodeID, limit float64) (bool, error) {
	bufs := s.catalog.Buffers()
	if len(bufs) == 0 {
		return false, nil
	}
	b := bufs[0]
	p := s.Classify(id, id)
	// Fanouts of a companion inverter stay where they are.
	rs := p.Pos
	w := s.model.WireLoad
	extra := 0.0
	if p.Inverter != network.NoNode {
		inv := s.currentCell(p.Inverter, 0)
		extra = inv.InputLoad + w
	}

	for head := len(rs) - 1; head >= 0; head-- {
		packs := pack(rs[head:], b.MaxLoad)
		if packs == nil {
			continue
		}
		direct, _ := span(rs, 0, head)
		if direct+extra+float64(len(packs))*(b.InputLoad+w) > limit+delay.Epsilon {
			continue
		}
		rev := s.net.Revision()
		var inserted []string
		for _, grp := range packs {
			out, err := s.insert(b, id, grp)
			if err != nil {
				return false, err
			}
			inserted = append(inserted, s.nodeName(out))
		}
		if s.net.Revision() == rev {
			return false, nil
		}
		s.stats.Transforms[KindMaxLoad]++
		s.stats.Events = append(s.stats.Events, Event{
			Sweep:    s.sweep,
			Kind:     KindMaxLoad,
			Node:     s.nodeName(id),
			Area:     b.Area * float64(len(packs)),
			Inserted: inserted,
		})
		observability.Optimizer().OnTransform(ctx, KindMaxLoad, s.nodeName(id), 0)
		return true, nil
	}
	return false, nil
}

// pack groups records greedily so that no group exceeds limit. It returns
// nil when a single record is already over the limit.
func pack(rs []Record, limit float64) [][]Record {
	if math.IsInf(limit, 1) {
		return [][]Record{rs}
	}
	var out [][]Record
	var cur []Record
	load := 0.0
	for _, r := range rs {
		if r.Load > limit+delay.Epsilon {
			return nil
		}
		if load+r.Load > limit+delay.Epsilon {
			out = append(out, cur)
			cur, load = nil, 0
		}
		cur = append(cur, r)
		load += r.Load
	}
	return append(out, cur)
}
