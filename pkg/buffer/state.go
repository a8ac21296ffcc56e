package buffer

import (
	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// Impl records how the optimizer last implemented a node.
type Impl int

const (
	// ImplNone means the node was not touched in the current sweep.
	ImplNone Impl = iota
	// ImplBufferChain means the node is the output of an inserted cell.
	ImplBufferChain
	// ImplGate means the node was (re)implemented with a library gate.
	ImplGate
)

func (i Impl) String() string {
	switch i {
	case ImplBufferChain:
		return "buffer"
	case ImplGate:
		return "gate"
	}
	return "none"
}

// State is the per-node annotation of a buffering session.
type State struct {
	Impl Impl
	Cell *Cell
	Gate *library.Gate

	CritFanin int
	Load      float64
	Required  delay.Time
	PrevDrive delay.Time
	PrevPhase delay.Phase

	// Visited marks nodes the current sweep already processed or created.
	Visited bool
}

func (s *State) reset() { *s = State{CritFanin: -1} }

// StateTable keeps exactly one State per network node. It observes the
// network so records are created and released with their nodes.
type StateTable struct {
	net    *network.Network
	states map[network.NodeID]*State
}

// NewStateTable allocates a record for every node of net and subscribes to
// node lifecycle events. Call Detach when the session ends.
func NewStateTable(net *network.Network) *StateTable {
	t := &StateTable{net: net, states: make(map[network.NodeID]*State, net.NodeCount())}
	for _, id := range net.IDs() {
		t.states[id] = &State{CritFanin: -1}
	}
	net.Observe(t)
	return t
}

// NodeAdded implements network.Observer.
func (t *StateTable) NodeAdded(id network.NodeID) { t.states[id] = &State{CritFanin: -1} }

// NodeDeleted implements network.Observer.
func (t *StateTable) NodeDeleted(id network.NodeID) { delete(t.states, id) }

// Get returns the record of id, or nil for unknown nodes.
func (t *StateTable) Get(id network.NodeID) *State { return t.states[id] }

// Len returns the number of records.
func (t *StateTable) Len() int { return len(t.states) }

// Reset clears every record at the start of a sweep.
func (t *StateTable) Reset() {
	for _, s := range t.states {
		s.reset()
	}
}

// Detach stops observing the network.
func (t *StateTable) Detach() { t.net.Unobserve(t) }
