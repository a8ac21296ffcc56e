package network

import (
	"maps"
	"slices"
)

// TopoOrder returns every node ID ordered from inputs to outputs.
//
// TopoOrder uses Kahn's algorithm seeded with the zero in-degree nodes in
// ascending ID order, so the result is deterministic for a given network.
// Nodes on a cycle are omitted; use [Network.Validate] to detect that case.
//
// Time complexity is O(V + E).
func (n *Network) TopoOrder() []NodeID {
	ids := n.IDs()
	inDegree := make(map[NodeID]int, len(ids))
	queue := make([]NodeID, 0, len(ids))
	for _, id := range ids {
		d := len(n.fanins[id])
		inDegree[id] = d
		if d == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]NodeID, 0, len(ids))
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		order = append(order, curr)
		for _, fo := range n.fanouts[curr] {
			inDegree[fo.Node]--
			if inDegree[fo.Node] == 0 {
				queue = append(queue, fo.Node)
			}
		}
	}
	return order
}

// ReverseTopoOrder returns every node ID ordered from outputs to inputs.
func (n *Network) ReverseTopoOrder() []NodeID {
	order := n.TopoOrder()
	slices.Reverse(order)
	return order
}

// Validate checks that fanin and fanout lists agree and that the network is
// acyclic.
func (n *Network) Validate() error {
	for id, fanins := range n.fanins {
		for pin, f := range fanins {
			if _, ok := n.nodes[f]; !ok {
				return ErrUnknownNode
			}
			if !slices.Contains(n.fanouts[f], Fanout{Node: id, Pin: pin}) {
				return ErrUnknownNode
			}
		}
	}
	if len(n.TopoOrder()) != len(n.nodes) {
		return ErrCycle
	}
	return nil
}

// Clone returns a deep copy of the network without observers.
func (n *Network) Clone() *Network {
	c := &Network{
		name:    n.name,
		nodes:   make(map[NodeID]*Node, len(n.nodes)),
		names:   maps.Clone(n.names),
		fanins:  make(map[NodeID][]NodeID, len(n.fanins)),
		fanouts: make(map[NodeID][]Fanout, len(n.fanouts)),
		next:    n.next,
		rev:     n.rev,
	}
	for id, nd := range n.nodes {
		cp := *nd
		cp.Phases = slices.Clone(nd.Phases)
		c.nodes[id] = &cp
	}
	for id, fi := range n.fanins {
		c.fanins[id] = slices.Clone(fi)
	}
	for id, fo := range n.fanouts {
		c.fanouts[id] = slices.Clone(fo)
	}
	return c
}

// Snapshot captures the current state so it can be reinstated with Restore.
type Snapshot struct {
	net *Network
}

// Snapshot returns a copy of the current network state.
func (n *Network) Snapshot() *Snapshot {
	return &Snapshot{net: n.Clone()}
}

// Restore reinstates a snapshot taken from this network. Observers are told
// about nodes that disappear and reappear so side tables stay consistent.
// The revision counter keeps increasing so callers can still see that
// something happened in between.
func (n *Network) Restore(s *Snapshot) {
	old := n.nodes
	c := s.net.Clone()
	n.nodes = c.nodes
	n.names = c.names
	n.fanins = c.fanins
	n.fanouts = c.fanouts
	n.rev++

	for _, id := range slices.Sorted(maps.Keys(old)) {
		if _, ok := n.nodes[id]; !ok {
			for _, o := range n.observers {
				o.NodeDeleted(id)
			}
		}
	}
	for _, id := range n.IDs() {
		if _, ok := old[id]; !ok {
			for _, o := range n.observers {
				o.NodeAdded(id)
			}
		}
	}
}

// IsMapped reports whether every internal node has a gate for which known
// returns true.
func (n *Network) IsMapped(known func(gate string) bool) bool {
	for _, nd := range n.nodes {
		if nd.IsInternal() && (nd.Gate == "" || !known(nd.Gate)) {
			return false
		}
	}
	return true
}
