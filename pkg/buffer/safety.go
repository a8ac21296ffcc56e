package buffer

import (
	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// safe reports whether pl keeps the slack of every non-critical fanin edge
// of the node. The new required time at each pin comes from the planned
// load and output required time; the fanin's arrival is charged for any
// change in pin load.
func (s *Session) safe(p *Problem, pl *plan) bool {
	nd, ok := s.net.Node(p.Node)
	if !ok || !nd.IsInternal() {
		return true
	}
	for q, f := range s.net.Fanins(p.Node) {
		if q == p.CritPin {
			continue
		}
		old := s.model.PinDelay(nd, q)
		pd := old
		if !pl.root.Keep() {
			pd = timing.FromPin(pl.root.Chain[0].Pin(q))
		}
		req := delay.Subtract(pd.Phase, pd.Block, pd.Drive, pl.rootLoad, pl.reqOut)
		arr := s.trace.Arrival(f).Add(s.trace.Drive(f).Scale(pd.Load - old.Load))
		if req.Sub(arr).Worst() < s.trace.EdgeSlack(p.Node, q).Worst()-delay.Epsilon {
			s.debug(1, "unsafe for side input", "node", nd.Name, "pin", q, "fanin", s.nodeName(f))
			return false
		}
	}
	return true
}
