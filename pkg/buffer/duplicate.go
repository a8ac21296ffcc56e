package buffer

import "github.com/matzehuels/bufferopt/pkg/delay"

// searchDuplicate splits the positive fanouts between the node and a copy of
// it. The node keeps the head [0,m) and the companion inverter, the copy
// takes the tail. Both copies load the critical fanin.
func (e *evaluator) searchDuplicate() *plan {
	nd, _ := e.s.net.Node(e.p.Node)
	np := e.pos.size()
	if !nd.IsInternal() || np < 2 {
		return nil
	}
	c := e.chooser()
	for _, g1 := range e.roots {
		for _, g2 := range e.roots {
			for m := 1; m < np; m++ {
				c.offer(e.duplicate(g1, g2, m))
			}
		}
	}
	return c.result()
}

func (e *evaluator) duplicate(g1, g2 *Cell, m int) *plan {
	pl := &plan{kind: KindDuplicate, root: g1, dup: g2, split: m, inv: e.curInv, area: g1.Area + g2.Area}
	l1, r1 := e.pos.capK[m], e.pos.reqK[m]
	if e.curInv != nil {
		nl, nr := e.neg.total()
		pl.invReq = e.curInv.Required(nl, nr)
		l1 += e.curInv.InputLoad + e.w
		r1 = delay.Min(r1, pl.invReq)
	}
	l2, r2 := e.pos.capL[m], e.pos.reqL[m]
	pl.violate(g1, l1)
	pl.violate(g2, l2)
	pl.rootLoad, pl.reqOut = l1, r1
	pl.branchReq = g2.Required(l2, r2)
	in := delay.Min(g1.Required(l1, r1), pl.branchReq)
	pl.achieved = delay.DriveAdjust(e.p.PrevDrive, g1.InputLoad+g2.InputLoad, in)
	return pl
}
