package buffer

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// Record is the snapshot of one fanout edge taken before a restructuring
// attempt. Load includes the routing load of the edge.
type Record struct {
	Target   network.NodeID
	Pin      int
	Phase    delay.Phase
	Load     float64
	Required delay.Time
}

// Problem is the fanout set of one node, split by phase.
//
// When the node drives exactly one explicit inverter, the inverter's fanouts
// form Neg and every other fanout forms Pos. Otherwise every fanout is in Pos
// and Inverter is NoNode. Both groups are sorted by [sortRecords].
type Problem struct {
	Root     network.NodeID
	Node     network.NodeID
	Inverter network.NodeID
	Pos      []Record
	Neg      []Record

	// MaxInputLoad bounds the input load of a resized root. It is only set
	// for top-level problems.
	MaxInputLoad float64

	CritPin   int
	PrevDrive delay.Time
	PrevPhase delay.Phase
}

// Top reports whether p is a top-level call.
func (p *Problem) Top() bool { return p.Root == p.Node }

// Size returns the number of fanout records.
func (p *Problem) Size() int { return len(p.Pos) + len(p.Neg) }

// spread returns the difference between the latest and the earliest
// required time over every record.
func (p *Problem) spread() float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rs := range [][]Record{p.Pos, p.Neg} {
		for _, r := range rs {
			w := r.Required.Worst()
			lo, hi = math.Min(lo, w), math.Max(hi, w)
		}
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Classify builds the fanout problem of id. root is the node that started
// the recursion; pass id itself for a top-level call.
func (s *Session) Classify(root, id network.NodeID) *Problem {
	p := &Problem{
		Root:         root,
		Node:         id,
		Inverter:     network.NoNode,
		MaxInputLoad: math.Inf(1),
		CritPin:      -1,
		PrevPhase:    delay.PhaseNonInverting,
	}
	if nd, ok := s.net.Node(id); ok && nd.IsInternal() {
		p.CritPin = s.trace.CriticalPin(id)
		if f := s.net.Fanin(id, p.CritPin); f != network.NoNode {
			p.PrevDrive = s.trace.Drive(f)
		}
		p.PrevPhase = s.model.PinDelay(nd, max(p.CritPin, 0)).Phase
	}

	var invs []network.NodeID
	for _, fo := range s.net.Fanouts(id) {
		if c, _ := s.net.Node(fo.Node); c.IsInverter() {
			invs = append(invs, fo.Node)
		}
	}
	if len(invs) == 1 {
		if s.net.FanoutCount(invs[0]) == 0 {
			s.logger.Warn("inverter without fanouts", "node", s.nodeName(id), "inverter", s.nodeName(invs[0]))
		} else {
			p.Inverter = invs[0]
		}
	}

	for _, fo := range s.net.Fanouts(id) {
		if fo.Node == p.Inverter {
			continue
		}
		p.Pos = append(p.Pos, s.record(fo))
	}
	if p.Inverter != network.NoNode {
		for _, fo := range s.net.Fanouts(p.Inverter) {
			p.Neg = append(p.Neg, s.record(fo))
		}
	}
	sortRecords(p.Pos)
	sortRecords(p.Neg)
	return p
}

func (s *Session) record(fo network.Fanout) Record {
	consumer, _ := s.net.Node(fo.Node)
	pd := s.model.PinDelay(consumer, fo.Pin)
	return Record{
		Target:   fo.Node,
		Pin:      fo.Pin,
		Phase:    pd.Phase,
		Load:     pd.Load + s.model.WireLoad,
		Required: s.trace.PinRequired(fo.Node, fo.Pin),
	}
}

// sortRecords orders records by ascending worst-rail required time, with
// inverting pins first on ties.
func sortRecords(rs []Record) {
	slices.SortStableFunc(rs, func(a, b Record) int {
		if c := cmp.Compare(a.Required.Worst(), b.Required.Worst()); c != 0 {
			return c
		}
		return cmp.Compare(phaseRank(a.Phase), phaseRank(b.Phase))
	})
}

func phaseRank(p delay.Phase) int {
	if p == delay.PhaseInverting {
		return 0
	}
	return 1
}

// partition holds prefix and suffix aggregates of a sorted record group.
// For a split point m the head is records [0,m) and the tail [m,n).
type partition struct {
	capK []float64
	capL []float64
	reqK []delay.Time
	reqL []delay.Time
}

func newPartition(rs []Record) partition {
	n := len(rs)
	pt := partition{
		capK: make([]float64, n+1),
		capL: make([]float64, n+1),
		reqK: make([]delay.Time, n+1),
		reqL: make([]delay.Time, n+1),
	}
	pt.reqK[0] = delay.PosInf
	for i, r := range rs {
		pt.capK[i+1] = pt.capK[i] + r.Load
		pt.reqK[i+1] = delay.Min(pt.reqK[i], r.Required)
	}
	pt.reqL[n] = delay.PosInf
	for i := n - 1; i >= 0; i-- {
		pt.capL[i] = pt.capL[i+1] + rs[i].Load
		pt.reqL[i] = delay.Min(pt.reqL[i+1], rs[i].Required)
	}
	return pt
}

func (pt partition) size() int { return len(pt.capK) - 1 }

// total returns the load and required time of the whole group.
func (pt partition) total() (float64, delay.Time) {
	return pt.capK[pt.size()], pt.reqK[pt.size()]
}

// Target computes the delay budget and input-load ceiling of id for the
// criticality threshold crit.
//
// A node whose slack is above crit gets a zero budget. For constrained
// networks the budget is the negated slack; otherwise it is the distance of
// the slack from crit. The ceiling is the load the critical fanin can take
// on before one of its other fanout edges becomes more critical than this
// one.
func (s *Session) Target(id network.NodeID, crit float64) (delay.Time, float64) {
	slack := s.trace.Slack(id)
	if slack.Worst() > crit {
		return delay.Time{}, math.Inf(1)
	}
	var budget delay.Time
	if s.trace.Constrained() {
		budget = slack.Neg().ClampZero()
	} else {
		budget = delay.Uniform(crit).Sub(slack).ClampZero()
	}
	return budget, s.maxInputLoad(id)
}

func (s *Session) maxInputLoad(id network.NodeID) float64 {
	nd, ok := s.net.Node(id)
	if !ok || !nd.IsInternal() {
		return math.Inf(1)
	}
	pin := s.trace.CriticalPin(id)
	f := s.net.Fanin(id, pin)
	if f == network.NoNode {
		return math.Inf(1)
	}
	pinLoad := s.model.PinDelay(nd, pin).Load
	drive := s.trace.Drive(f).Max()
	if drive < delay.Epsilon {
		return math.Inf(1)
	}
	critSlack := s.trace.EdgeSlack(id, pin).Worst()
	other := math.Inf(1)
	for _, fo := range s.net.Fanouts(f) {
		if fo.Node == id && fo.Pin == pin {
			continue
		}
		other = math.Min(other, s.trace.EdgeSlack(fo.Node, fo.Pin).Worst())
	}
	if math.IsInf(other, 1) {
		return math.Inf(1)
	}
	return math.Max(pinLoad, pinLoad+(other-critSlack)/drive)
}
