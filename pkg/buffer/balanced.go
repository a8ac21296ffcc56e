package buffer

import "github.com/matzehuels/bufferopt/pkg/delay"

// groups splits n sorted records into k contiguous groups of near-equal
// size and returns the k+1 boundaries. Earlier groups take the remainder.
func groups(n, k int) []int {
	bounds := make([]int, k+1)
	size, rem := n/k, n%k
	for i := 1; i <= k; i++ {
		bounds[i] = bounds[i-1] + size
		if i <= rem {
			bounds[i]++
		}
	}
	return bounds
}

// groupCounts returns 0 followed by every group count in [2, ceil(n/2)].
func groupCounts(n int) []int {
	out := []int{0}
	for k := 2; k <= (n+1)/2; k++ {
		out = append(out, k)
	}
	return out
}

// searchBalanced enumerates multi-way inverter trees.
//
// With j > 0 the positive fanouts are split into j groups, each driven by an
// inverter, and those inverters by one shared inverter on the root. With
// i > 0 the negative fanouts are split into i groups, each driven by an
// inverter on the root, replacing the companion inverter. j == 0 and i == 0
// leave the respective group as it is; at least one must be non-zero.
func (e *evaluator) searchBalanced() *plan {
	c := e.chooser()
	invs := e.s.catalog.Inverters()
	none := []*Cell{nil}
	pick := func(use bool, cells []*Cell) []*Cell {
		if use {
			return cells
		}
		return none
	}

	for _, g := range e.roots {
		for _, j := range groupCounts(e.pos.size()) {
			for _, i := range groupCounts(e.neg.size()) {
				if i == 0 && j == 0 {
					continue
				}
				for _, gA := range pick(j > 0, invs) {
					for _, gH := range pick(j > 0, invs) {
						for _, gN := range pick(i > 0, invs) {
							for _, gI := range pick(i == 0, e.invs) {
								c.offer(e.balanced(g, j, gA, gH, i, gN, gI))
							}
						}
					}
				}
			}
		}
	}
	return c.result()
}

func (e *evaluator) balanced(g *Cell, j int, gA, gH *Cell, i int, gN, gI *Cell) *plan {
	pl := &plan{
		kind:      KindBalanced,
		root:      g,
		inv:       gI,
		posGroups: j,
		negGroups: i,
		head:      gA,
		top:       gH,
		negCell:   gN,
		area:      g.Area,
	}
	var load float64
	req := delay.PosInf
	if j == 0 {
		load, req = e.pos.total()
	} else {
		hl, hr := 0.0, delay.PosInf
		bounds := groups(len(e.p.Pos), j)
		for k := range j {
			gl, gr := span(e.p.Pos, bounds[k], bounds[k+1])
			hl += gA.InputLoad + e.w
			hr = delay.Min(hr, gA.Required(gl, gr))
			pl.area += gA.Area
			pl.violate(gA, gl)
		}
		load += gH.InputLoad + e.w
		req = delay.Min(req, gH.Required(hl, hr))
		pl.area += gH.Area
		pl.violate(gH, hl)
	}

	switch {
	case i > 0:
		bounds := groups(len(e.p.Neg), i)
		for k := range i {
			gl, gr := span(e.p.Neg, bounds[k], bounds[k+1])
			load += gN.InputLoad + e.w
			req = delay.Min(req, gN.Required(gl, gr))
			pl.area += gN.Area
			pl.violate(gN, gl)
		}
	case gI != nil:
		nl, nr := e.neg.total()
		pl.invReq = gI.Required(nl, nr)
		load += gI.InputLoad + e.w
		req = delay.Min(req, pl.invReq)
		pl.area += gI.Area
		pl.violate(gI, nl)
	}
	return e.finish(pl, load, req)
}
