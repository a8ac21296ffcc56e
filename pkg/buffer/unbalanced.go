package buffer

import "github.com/matzehuels/bufferopt/pkg/delay"

// searchUnbalanced enumerates two-branch splits of the fanout set.
//
// The positive group is split at mPos: the head stays on the root and the
// tail moves behind a buffer b driven by the root. The negative group is
// split at mNeg: the head stays on the companion inverter and the tail moves
// behind a cell B. A non-inverting B hangs off the inverter, an inverting B
// hangs off the root directly. At least one branch cell must be used and no
// branch may take over the whole fanout set.
func (e *evaluator) searchUnbalanced() *plan {
	c := e.chooser()
	np, nn := e.pos.size(), e.neg.size()
	total := np + nn
	bufs := e.s.catalog.Buffers()
	cells := e.s.catalog.Cells()
	none := []*Cell{nil}

	for _, g := range e.roots {
		for _, gI := range e.invs {
			for mp := 0; mp <= np; mp++ {
				posCells := bufs
				if mp == np {
					posCells = none
				}
				for _, b := range posCells {
					if b != nil && np-mp >= total {
						continue
					}
					for mn := 0; mn <= nn; mn++ {
						negCells := cells
						if mn == nn {
							negCells = none
						}
						for _, B := range negCells {
							if b == nil && B == nil {
								continue
							}
							if B != nil && (nn-mn >= total || (B.Inverting() && mn == 0)) {
								continue
							}
							pl := e.unbalanced(g, gI, mp, b, mn, B)
							e.s.debug(2, "unbalanced candidate",
								"node", e.s.nodeName(e.p.Node),
								"root", g.Name(), "mpos", mp, "mneg", mn,
								"achieved", pl.achieved, "area", pl.area)
							c.offer(pl)
						}
					}
				}
			}
		}
	}
	return c.result()
}

func (e *evaluator) unbalanced(g, gI *Cell, mp int, b *Cell, mn int, B *Cell) *plan {
	pl := &plan{kind: KindUnbalanced, root: g, inv: gI, mPos: mp, buf: b, mNeg: mn, nbuf: B, area: g.Area}
	load, req := e.pos.capK[mp], e.pos.reqK[mp]
	if b != nil {
		tl, tr := e.pos.capL[mp], e.pos.reqL[mp]
		pl.branchReq = b.Required(tl, tr)
		load += b.InputLoad + e.w
		req = delay.Min(req, pl.branchReq)
		pl.area += b.Area
		pl.violate(b, tl)
	}
	if gI != nil {
		il, ir := e.neg.capK[mn], e.neg.reqK[mn]
		if B != nil {
			tl, tr := e.neg.capL[mn], e.neg.reqL[mn]
			pl.negReq = B.Required(tl, tr)
			pl.area += B.Area
			pl.violate(B, tl)
			if B.Inverting() {
				load += B.InputLoad + e.w
				req = delay.Min(req, pl.negReq)
			} else {
				il += B.InputLoad + e.w
				ir = delay.Min(ir, pl.negReq)
			}
		}
		pl.invReq = gI.Required(il, ir)
		load += gI.InputLoad + e.w
		req = delay.Min(req, pl.invReq)
		pl.area += gI.Area
		pl.violate(gI, il)
	}
	return e.finish(pl, load, req)
}

// degenerate reports a split with no positive fanouts whose negative branch
// is no later than the inverter itself. Such a split only reshuffles the
// inverter's fanouts and is left to the balanced search.
func (e *evaluator) degenerate(pl *plan) bool {
	return e.pos.size() == 0 && pl.nbuf != nil && pl.invReq.Worst() <= pl.negReq.Worst()
}

// minReqDiff is the spread below which the unbalanced search is skipped.
func (s *Session) minReqDiff() float64 {
	if s.cfg.MinReqDiff > 0 {
		return s.cfg.MinReqDiff
	}
	return s.catalog.MinReqDiff()
}
