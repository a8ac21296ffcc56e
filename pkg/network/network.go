package network

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/bufferopt/pkg/delay"
)

var (
	// ErrInvalidName is returned by [Network.AddNode] when the node name is empty.
	ErrInvalidName = errors.New("node name must not be empty")

	// ErrDuplicateName is returned by [Network.AddNode] when another node
	// already uses the same name. Names are unique across the network.
	ErrDuplicateName = errors.New("duplicate node name")

	// ErrUnknownNode is returned when an operation references a node ID that
	// is not part of the network.
	ErrUnknownNode = errors.New("unknown node")

	// ErrHasFanouts is returned by [Network.DeleteNode] when the node still
	// drives other nodes. Fanouts must be patched away first.
	ErrHasFanouts = errors.New("node still has fanouts")

	// ErrInvalidPin is returned by [Network.PatchPin] for an out-of-range pin.
	ErrInvalidPin = errors.New("pin index out of range")

	// ErrBadOutput is returned when a primary output is given other than
	// exactly one fanin, or when a node tries to use an output as a fanin.
	ErrBadOutput = errors.New("primary outputs take exactly one fanin and drive nothing")

	// ErrCycle is returned by [Network.Validate] when the network is not acyclic.
	ErrCycle = errors.New("network contains a combinational cycle")
)

// NodeID identifies a node inside one network. IDs are never reused.
type NodeID int

// NoNode is the ID used where a node reference is optional.
const NoNode NodeID = -1

// Kind distinguishes primary inputs, primary outputs and internal gates.
type Kind int

const (
	// KindInternal is a logic gate, buffer or inverter.
	KindInternal Kind = iota
	// KindInput is a primary input. It has no fanins.
	KindInput
	// KindOutput is a primary output. It has exactly one fanin and no fanouts.
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	}
	return "internal"
}

// Func is the logic role of an internal node as far as buffering cares.
type Func int

const (
	// FuncLogic is any gate that is neither a buffer nor an inverter.
	FuncLogic Func = iota
	// FuncBuffer is a non-inverting single-input stage.
	FuncBuffer
	// FuncInverter is an inverting single-input stage.
	FuncInverter
)

func (f Func) String() string {
	switch f {
	case FuncBuffer:
		return "buffer"
	case FuncInverter:
		return "inverter"
	}
	return "logic"
}

// Node is a vertex of the logic network.
//
// Timing annotations are kind specific: Arrival and Drive describe primary
// inputs, Required and Load describe primary outputs. Internal nodes carry
// their implementation in Gate (a library gate name, empty when unmapped) and
// optional per-pin Phases for unmapped logic.
type Node struct {
	ID     NodeID
	Name   string
	Kind   Kind
	Func   Func
	Gate   string
	Phases []delay.Phase

	Arrival     delay.Time
	Drive       delay.Time
	Required    delay.Time
	HasRequired bool
	Load        float64

	// Synthetic marks nodes inserted by the optimizer.
	Synthetic bool
}

// IsInput reports whether the node is a primary input.
func (n *Node) IsInput() bool { return n.Kind == KindInput }

// IsOutput reports whether the node is a primary output.
func (n *Node) IsOutput() bool { return n.Kind == KindOutput }

// IsInternal reports whether the node is a gate.
func (n *Node) IsInternal() bool { return n.Kind == KindInternal }

// IsInverter reports whether the node is an explicit inverter.
func (n *Node) IsInverter() bool { return n.Kind == KindInternal && n.Func == FuncInverter }

// Fanout is one consumer edge: the consuming node and the pin it enters.
type Fanout struct {
	Node NodeID
	Pin  int
}

// Observer is notified when nodes enter or leave the network. Side tables
// keyed by NodeID use it to tie their records to the node lifecycle.
type Observer interface {
	NodeAdded(id NodeID)
	NodeDeleted(id NodeID)
}

// Network is a combinational logic network: an arena of nodes with ordered
// fanin pins and fanout lists kept consistent by every mutation.
//
// The zero value is not usable; create networks with [New].
// Network is not safe for concurrent use.
type Network struct {
	name      string
	nodes     map[NodeID]*Node
	names     map[string]NodeID
	fanins    map[NodeID][]NodeID
	fanouts   map[NodeID][]Fanout
	next      NodeID
	rev       uint64
	observers []Observer
}

// New creates an empty network.
func New(name string) *Network {
	return &Network{
		name:    name,
		nodes:   make(map[NodeID]*Node),
		names:   make(map[string]NodeID),
		fanins:  make(map[NodeID][]NodeID),
		fanouts: make(map[NodeID][]Fanout),
	}
}

// Name returns the network name.
func (n *Network) Name() string { return n.name }

// Revision returns a counter that increases on every structural or
// implementation change. Two equal revisions mean no mutation happened.
func (n *Network) Revision() uint64 { return n.rev }

// Observe registers o for node lifecycle notifications.
func (n *Network) Observe(o Observer) { n.observers = append(n.observers, o) }

// Unobserve removes o from the observer list.
func (n *Network) Unobserve(o Observer) {
	n.observers = slices.DeleteFunc(n.observers, func(x Observer) bool { return x == o })
}

// AddInput adds a primary input.
func (n *Network) AddInput(name string) (NodeID, error) {
	return n.AddNode(Node{Name: name, Kind: KindInput})
}

// AddOutput adds a primary output driven by driver.
func (n *Network) AddOutput(name string, driver NodeID) (NodeID, error) {
	return n.AddNode(Node{Name: name, Kind: KindOutput, Load: 1}, driver)
}

// AddNode adds a node with the given fanins (pin order) and returns its ID.
// The ID field of nd is ignored. Returns ErrInvalidName, ErrDuplicateName,
// ErrUnknownNode for a missing fanin, or ErrBadOutput when outputs are
// misused.
func (n *Network) AddNode(nd Node, fanins ...NodeID) (NodeID, error) {
	if nd.Name == "" {
		return NoNode, ErrInvalidName
	}
	if _, exists := n.names[nd.Name]; exists {
		return NoNode, fmt.Errorf("%w: %s", ErrDuplicateName, nd.Name)
	}
	if nd.Kind == KindOutput && len(fanins) != 1 {
		return NoNode, ErrBadOutput
	}
	if nd.Kind == KindInput && len(fanins) != 0 {
		return NoNode, fmt.Errorf("input %s cannot have fanins", nd.Name)
	}
	for _, f := range fanins {
		src, ok := n.nodes[f]
		if !ok {
			return NoNode, fmt.Errorf("%w: fanin %d of %s", ErrUnknownNode, f, nd.Name)
		}
		if src.IsOutput() {
			return NoNode, ErrBadOutput
		}
	}

	nd.ID = n.next
	n.next++
	node := &nd
	n.nodes[node.ID] = node
	n.names[node.Name] = node.ID
	n.fanins[node.ID] = slices.Clone(fanins)
	for pin, f := range fanins {
		n.fanouts[f] = append(n.fanouts[f], Fanout{Node: node.ID, Pin: pin})
	}
	n.rev++
	for _, o := range n.observers {
		o.NodeAdded(node.ID)
	}
	return node.ID, nil
}

// DeleteNode removes a node that drives nothing. Its fanin edges are removed
// with it.
func (n *Network) DeleteNode(id NodeID) error {
	node, ok := n.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if len(n.fanouts[id]) > 0 {
		return fmt.Errorf("%w: %s", ErrHasFanouts, node.Name)
	}
	for pin, f := range n.fanins[id] {
		n.removeFanout(f, Fanout{Node: id, Pin: pin})
	}
	delete(n.fanins, id)
	delete(n.fanouts, id)
	delete(n.names, node.Name)
	delete(n.nodes, id)
	n.rev++
	for _, o := range n.observers {
		o.NodeDeleted(id)
	}
	return nil
}

// PatchFanin replaces the first fanin of consumer that is driven by oldDriver
// with newDriver. It reports whether an edge was patched.
func (n *Network) PatchFanin(consumer, oldDriver, newDriver NodeID) bool {
	pin := slices.Index(n.fanins[consumer], oldDriver)
	if pin < 0 {
		return false
	}
	return n.PatchPin(consumer, pin, newDriver) == nil
}

// PatchPin reconnects pin of consumer to newDriver.
func (n *Network) PatchPin(consumer NodeID, pin int, newDriver NodeID) error {
	fanins, ok := n.fanins[consumer]
	if !ok {
		return ErrUnknownNode
	}
	if pin < 0 || pin >= len(fanins) {
		return ErrInvalidPin
	}
	src, ok := n.nodes[newDriver]
	if !ok {
		return ErrUnknownNode
	}
	if src.IsOutput() {
		return ErrBadOutput
	}
	old := fanins[pin]
	if old == newDriver {
		return nil
	}
	n.removeFanout(old, Fanout{Node: consumer, Pin: pin})
	fanins[pin] = newDriver
	n.fanouts[newDriver] = append(n.fanouts[newDriver], Fanout{Node: consumer, Pin: pin})
	n.rev++
	return nil
}

func (n *Network) removeFanout(driver NodeID, fo Fanout) {
	list := n.fanouts[driver]
	if i := slices.Index(list, fo); i >= 0 {
		n.fanouts[driver] = slices.Delete(list, i, i+1)
	}
}

// SetGate changes the implementation of an internal node.
func (n *Network) SetGate(id NodeID, gate string) error {
	node, ok := n.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if node.Gate == gate {
		return nil
	}
	node.Gate = gate
	n.rev++
	return nil
}

// Node returns the node with the given ID.
func (n *Network) Node(id NodeID) (*Node, bool) {
	nd, ok := n.nodes[id]
	return nd, ok
}

// Lookup returns the ID of the node with the given name.
func (n *Network) Lookup(name string) (NodeID, bool) {
	id, ok := n.names[name]
	return id, ok
}

// Fanins returns the drivers of id in pin order. The slice must not be
// modified.
func (n *Network) Fanins(id NodeID) []NodeID { return n.fanins[id] }

// Fanin returns the driver of the given pin, or NoNode.
func (n *Network) Fanin(id NodeID, pin int) NodeID {
	fi := n.fanins[id]
	if pin < 0 || pin >= len(fi) {
		return NoNode
	}
	return fi[pin]
}

// Fanouts returns the consumer edges of id. The slice must not be modified.
func (n *Network) Fanouts(id NodeID) []Fanout { return n.fanouts[id] }

// FanoutCount returns the number of consumer edges of id.
func (n *Network) FanoutCount(id NodeID) int { return len(n.fanouts[id]) }

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.nodes) }

// EdgeCount returns the number of fanin edges.
func (n *Network) EdgeCount() int {
	total := 0
	for _, fi := range n.fanins {
		total += len(fi)
	}
	return total
}

// IDs returns every node ID in ascending order.
func (n *Network) IDs() []NodeID {
	return slices.Sorted(maps.Keys(n.nodes))
}

// Nodes returns every node in ascending ID order.
func (n *Network) Nodes() []*Node {
	ids := n.IDs()
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = n.nodes[id]
	}
	return out
}

// Inputs returns the primary inputs in ascending ID order.
func (n *Network) Inputs() []*Node { return n.filter(KindInput) }

// Outputs returns the primary outputs in ascending ID order.
func (n *Network) Outputs() []*Node { return n.filter(KindOutput) }

// Internal returns the internal nodes in ascending ID order.
func (n *Network) Internal() []*Node { return n.filter(KindInternal) }

func (n *Network) filter(k Kind) []*Node {
	var out []*Node
	for _, nd := range n.Nodes() {
		if nd.Kind == k {
			out = append(out, nd)
		}
	}
	return out
}

// UniqueName returns base if unused, otherwise base with the smallest free
// numeric suffix.
func (n *Network) UniqueName(base string) string {
	if _, used := n.names[base]; !used {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if _, used := n.names[name]; !used {
			return name
		}
	}
}
