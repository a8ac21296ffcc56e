package timing

import (
	"math"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// Trace holds arrival, required and load values of every node of a network
// as computed by [Run]. A Trace describes the network at one revision; any
// mutation makes it stale.
type Trace struct {
	net         *network.Network
	model       *Model
	arrival     map[network.NodeID]delay.Time
	required    map[network.NodeID]delay.Time
	load        map[network.NodeID]float64
	constrained bool
	rev         uint64
}

// Option configures a trace.
type Option func(*options)

type options struct {
	latest    float64
	hasLatest bool
}

// WithLatest pins the required time of unconstrained outputs to v instead
// of the latest output arrival. Callers comparing traces of successive
// rewrites use it so improvements are not hidden by a moving reference.
func WithLatest(v float64) Option {
	return func(o *options) { o.latest, o.hasLatest = v, true }
}

// Run propagates arrival times forward and required times backward.
//
// Primary outputs with an explicit required time constrain the network.
// When no output carries one the network is unconstrained and every output
// is required at the latest output arrival, which makes the longest path
// the zero-slack path. Nodes that drive nothing are never critical.
func Run(net *network.Network, model *Model, opts ...Option) (*Trace, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	order := net.TopoOrder()
	if len(order) != net.NodeCount() {
		return nil, network.ErrCycle
	}
	t := &Trace{
		net:      net,
		model:    model,
		arrival:  make(map[network.NodeID]delay.Time, len(order)),
		required: make(map[network.NodeID]delay.Time, len(order)),
		load:     make(map[network.NodeID]float64, len(order)),
		rev:      net.Revision(),
	}

	for _, id := range order {
		t.load[id] = t.computeLoad(id)
	}
	for _, id := range order {
		t.arrival[id] = t.computeArrival(id)
	}

	latest := math.Inf(-1)
	for _, nd := range net.Outputs() {
		if nd.HasRequired {
			t.constrained = true
		}
		latest = math.Max(latest, t.arrival[nd.ID].Max())
	}
	if o.hasLatest {
		latest = o.latest
	}
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		nd, _ := net.Node(id)
		if nd.IsOutput() {
			switch {
			case nd.HasRequired:
				t.required[id] = nd.Required
			case t.constrained:
				t.required[id] = delay.PosInf
			default:
				t.required[id] = delay.Uniform(latest)
			}
			continue
		}
		req := delay.PosInf
		for _, fo := range net.Fanouts(id) {
			req = delay.Min(req, t.PinRequired(fo.Node, fo.Pin))
		}
		t.required[id] = req
	}
	return t, nil
}

func (t *Trace) computeLoad(id network.NodeID) float64 {
	total := 0.0
	for _, fo := range t.net.Fanouts(id) {
		consumer, _ := t.net.Node(fo.Node)
		total += t.model.PinDelay(consumer, fo.Pin).Load + t.model.WireLoad
	}
	return total
}

func (t *Trace) computeArrival(id network.NodeID) delay.Time {
	nd, _ := t.net.Node(id)
	if nd.IsInput() {
		return nd.Arrival.Add(nd.Drive.Scale(t.load[id]))
	}
	fanins := t.net.Fanins(id)
	if len(fanins) == 0 {
		return delay.Time{}
	}
	arr := delay.NegInf
	for pin, f := range fanins {
		pd := t.model.PinDelay(nd, pin)
		arr = delay.Max(arr, delay.Propagate(pd.Phase, pd.Block, pd.Drive, t.load[id], t.arrival[f]))
	}
	return arr
}

// Network returns the traced network.
func (t *Trace) Network() *network.Network { return t.net }

// Model returns the delay model used for the trace.
func (t *Trace) Model() *Model { return t.model }

// Stale reports whether the network changed since the trace was computed.
func (t *Trace) Stale() bool { return t.net.Revision() != t.rev }

// Constrained reports whether any primary output carries a required time.
func (t *Trace) Constrained() bool { return t.constrained }

// Arrival returns the output arrival time of id.
func (t *Trace) Arrival(id network.NodeID) delay.Time { return t.arrival[id] }

// Required returns the output required time of id.
func (t *Trace) Required(id network.NodeID) delay.Time { return t.required[id] }

// Load returns the capacitive load driven by id.
func (t *Trace) Load(id network.NodeID) float64 { return t.load[id] }

// Slack returns required minus arrival at the output of id.
func (t *Trace) Slack(id network.NodeID) delay.Time {
	return t.required[id].Sub(t.arrival[id])
}

// PinRequired returns the required time at input pin of consumer, derived
// from the consumer's output required time through its own stage delay.
func (t *Trace) PinRequired(consumer network.NodeID, pin int) delay.Time {
	nd, ok := t.net.Node(consumer)
	if !ok {
		return delay.PosInf
	}
	pd := t.model.PinDelay(nd, pin)
	return delay.Subtract(pd.Phase, pd.Block, pd.Drive, t.load[consumer], t.required[consumer])
}

// EdgeSlack returns the slack of the edge entering pin of consumer.
func (t *Trace) EdgeSlack(consumer network.NodeID, pin int) delay.Time {
	driver := t.net.Fanin(consumer, pin)
	if driver == network.NoNode {
		return delay.PosInf
	}
	return t.PinRequired(consumer, pin).Sub(t.arrival[driver])
}

// CriticalPin returns the fanin pin of id with the least edge slack, or -1
// when id has no fanins.
func (t *Trace) CriticalPin(id network.NodeID) int {
	best, worst := -1, math.Inf(1)
	for pin := range t.net.Fanins(id) {
		if s := t.EdgeSlack(id, pin).Worst(); best < 0 || s < worst {
			best, worst = pin, s
		}
	}
	return best
}

// Drive returns the drive strength of the stage producing id's output. For
// gates this is the drive of the critical pin.
func (t *Trace) Drive(id network.NodeID) delay.Time {
	nd, ok := t.net.Node(id)
	if !ok {
		return delay.Time{}
	}
	switch nd.Kind {
	case network.KindInput:
		return nd.Drive
	case network.KindOutput:
		return delay.Time{}
	}
	pin := max(t.CriticalPin(id), 0)
	return t.model.PinDelay(nd, pin).Drive
}

// MinOutputSlack returns the worst-rail slack of the most critical primary
// output, or +Inf for a network without outputs.
func (t *Trace) MinOutputSlack() float64 {
	worst := math.Inf(1)
	for _, nd := range t.net.Outputs() {
		worst = math.Min(worst, t.Slack(nd.ID).Worst())
	}
	return worst
}

// MinSlack returns the worst-rail slack over every node.
func (t *Trace) MinSlack() float64 {
	worst := math.Inf(1)
	for id := range t.arrival {
		worst = math.Min(worst, t.Slack(id).Worst())
	}
	return worst
}

// MaxArrival returns the latest arrival over all primary outputs.
func (t *Trace) MaxArrival() float64 {
	latest := 0.0
	for _, nd := range t.net.Outputs() {
		latest = math.Max(latest, t.arrival[nd.ID].Max())
	}
	return latest
}
