package buffer

import (
	"slices"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// plan is one evaluated candidate restructuring of a problem. Which fields
// are meaningful depends on kind.
type plan struct {
	kind string
	root *Cell
	inv  *Cell

	// unbalanced: positive tail [mPos,n) behind buf, negative tail
	// [mNeg,n) behind nbuf.
	mPos, mNeg int
	buf, nbuf  *Cell

	// balanced: posGroups inverters (head) under one shared inverter (top);
	// negGroups inverters (negCell) driven by the root.
	posGroups, negGroups int
	head, top, negCell   *Cell

	// duplicate: positive tail [split,n) moves to a copy implemented by dup.
	split int
	dup   *Cell

	rootLoad  float64
	reqOut    delay.Time
	invReq    delay.Time
	branchReq delay.Time
	negReq    delay.Time

	achieved   delay.Time
	area       float64
	violations int
}

func (pl *plan) violate(c *Cell, load float64) {
	if c != nil && c.Overloaded(load) {
		pl.violations++
	}
}

// better reports whether a has the better worst rail, or the same within
// epsilon and less area.
func better(a, b *plan) bool {
	aw, bw := a.achieved.Worst(), b.achieved.Worst()
	if aw > bw+delay.Epsilon {
		return true
	}
	return aw > bw-delay.Epsilon && a.area < b.area-delay.Epsilon
}

// beats reports whether a is strictly better than b. A nil b is beaten by
// anything.
func beats(a, b *plan) bool {
	return b == nil || a.achieved.Worst() > b.achieved.Worst()+delay.Epsilon
}

// chooser keeps the least-area candidate that meets the target and, as a
// fallback, the best candidate overall.
type chooser struct {
	target delay.Time
	reject bool
	met    *plan
	best   *plan
}

func (c *chooser) offer(pl *plan) {
	if c.reject && pl.violations > 0 {
		return
	}
	if c.best == nil || better(pl, c.best) {
		c.best = pl
	}
	if !delay.Meets(pl.achieved, c.target) {
		return
	}
	if c.met == nil || pl.area < c.met.area-delay.Epsilon ||
		(pl.area < c.met.area+delay.Epsilon && pl.achieved.Worst() > c.met.achieved.Worst()+delay.Epsilon) {
		c.met = pl
	}
}

func (c *chooser) result() *plan {
	if c.met != nil {
		return c.met
	}
	return c.best
}

// evaluator scores candidates of one problem against its original required
// time. Every evaluation is local: it uses the records captured by Classify
// and never touches the network.
type evaluator struct {
	s       *Session
	p       *Problem
	pos     partition
	neg     partition
	w       float64
	roots   []*Cell
	invs    []*Cell
	curRoot *Cell
	curInv  *Cell
	orig    delay.Time
	target  delay.Time
}

func (s *Session) newEvaluator(p *Problem, budget delay.Time) *evaluator {
	e := &evaluator{
		s:   s,
		p:   p,
		pos: newPartition(p.Pos),
		neg: newPartition(p.Neg),
		w:   s.model.WireLoad,
	}
	e.curRoot = s.currentCell(p.Node, max(p.CritPin, 0))
	if p.Inverter != network.NoNode {
		e.curInv = s.currentCell(p.Inverter, 0)
	}
	e.roots = s.rootVersions(p, e.curRoot)
	e.invs = s.inverterVersions(p, e.curInv)
	e.orig = e.repower(e.curRoot, e.curInv).achieved
	e.target = e.orig.Add(budget)
	return e
}

func (s *Session) currentCell(id network.NodeID, pin int) *Cell {
	nd, _ := s.net.Node(id)
	var g *library.Gate
	if lg, ok := s.model.Gate(nd); ok {
		g = lg
	}
	return cellFromPin(g, s.model.PinDelay(nd, pin))
}

// rootVersions lists the implementations the node may take. Top-level calls
// with repowering enabled try every variant of the node's gate; nodes the
// optimizer inserted try the catalog cells of the same phase. Anything else
// keeps its current implementation.
//
// Inserted nodes are recognized by their Synthetic mark, which travels with
// the network, so a later session treats them the same way.
func (s *Session) rootVersions(p *Problem, cur *Cell) []*Cell {
	nd, _ := s.net.Node(p.Node)
	g, mapped := s.model.Gate(nd)
	var out []*Cell
	switch {
	case p.Top() && s.cfg.Mode.Has(ModeRepower) && mapped:
		for _, v := range s.model.Variants(g) {
			c := NewCell(v, max(p.CritPin, 0))
			if v.Name != g.Name && c.InputLoad > p.MaxInputLoad+delay.Epsilon {
				continue
			}
			out = append(out, c)
		}
	case nd.Synthetic && mapped && (g.IsBuffer() || g.IsInverter()):
		out = s.catalogVersions(cur)
	}
	if len(out) == 0 {
		out = []*Cell{cur}
	}
	return out
}

// inverterVersions lists the implementations of the companion inverter. A
// problem without one yields a single nil entry.
func (s *Session) inverterVersions(p *Problem, cur *Cell) []*Cell {
	if cur == nil {
		return []*Cell{nil}
	}
	nd, _ := s.net.Node(p.Inverter)
	g, mapped := s.model.Gate(nd)
	switch {
	case p.Top() && s.cfg.Mode.Has(ModeRepower) && mapped:
		var out []*Cell
		for _, v := range s.model.Variants(g) {
			out = append(out, NewCell(v, 0))
		}
		return out
	case nd.Synthetic && mapped:
		return s.catalogVersions(cur)
	}
	return []*Cell{cur}
}

func (s *Session) catalogVersions(cur *Cell) []*Cell {
	var out []*Cell
	for _, c := range s.catalog.ForPhase(cur.Inverting()) {
		if c.Depth == 1 {
			out = append(out, c)
		}
	}
	if !slices.ContainsFunc(out, func(c *Cell) bool { return c.Name() == cur.Name() }) {
		out = append(out, cur)
	}
	return out
}

// finish computes the required time achieved at the root's critical pin,
// charged for the input load the root presents to its own driver.
func (e *evaluator) finish(pl *plan, load float64, req delay.Time) *plan {
	pl.rootLoad, pl.reqOut = load, req
	pl.violate(pl.root, load)
	pl.achieved = delay.DriveAdjust(e.p.PrevDrive, pl.root.InputLoad, pl.root.Required(load, req))
	return pl
}

// repower scores root version g and inverter version gI with the fanout
// structure unchanged.
func (e *evaluator) repower(g, gI *Cell) *plan {
	pl := &plan{kind: KindRepower, root: g, inv: gI, area: g.Area}
	load, req := e.pos.total()
	if gI != nil {
		nl, nr := e.neg.total()
		pl.invReq = gI.Required(nl, nr)
		load += gI.InputLoad + e.w
		req = delay.Min(req, pl.invReq)
		pl.area += gI.Area
		pl.violate(gI, nl)
	}
	return e.finish(pl, load, req)
}

func (e *evaluator) searchRepower() *plan {
	var best *plan
	for _, g := range e.roots {
		for _, gI := range e.invs {
			pl := e.repower(g, gI)
			if e.s.cfg.RejectLoadViolations && pl.violations > 0 {
				continue
			}
			if best == nil || better(pl, best) {
				best = pl
			}
		}
	}
	return best
}

// accept reports whether pl leaves no rail behind the original required
// time and either meets the target or improves both rails.
func (e *evaluator) accept(pl *plan) bool {
	if pl == nil {
		return false
	}
	if pl.achieved.Rise < e.orig.Rise-delay.Epsilon || pl.achieved.Fall < e.orig.Fall-delay.Epsilon {
		return false
	}
	return delay.Meets(pl.achieved, e.target) || delay.Improved(pl.achieved, e.orig)
}

func (e *evaluator) chooser() *chooser {
	return &chooser{target: e.target, reject: e.s.cfg.RejectLoadViolations}
}

// span returns the load and earliest required time of records [lo,hi).
func span(rs []Record, lo, hi int) (float64, delay.Time) {
	load, req := 0.0, delay.PosInf
	for _, r := range rs[lo:hi] {
		load += r.Load
		req = delay.Min(req, r.Required)
	}
	return load, req
}
