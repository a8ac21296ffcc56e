package buffer

import (
	"slices"

	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// branch is a node created by a transform together with the node driving it.
// For a chain the driver is the previous stage, not the transformed node.
type branch struct {
	id     network.NodeID
	driver network.NodeID
}

func (s *Session) branchOf(id network.NodeID) branch {
	return branch{id: id, driver: s.net.Fanin(id, 0)}
}

// insert adds cell c driven by driver and moves the fanout edges in rs
// behind it. Chains become one node per stage. It returns the node
// producing the cell output.
func (s *Session) insert(c *Cell, driver network.NodeID, rs []Record) (network.NodeID, error) {
	base := s.nodeName(driver)
	prev := driver
	for _, g := range c.Chain {
		nd := network.Node{Kind: network.KindInternal, Func: network.FuncBuffer, Gate: g.Name, Synthetic: true}
		suffix := "_buf"
		if g.IsInverter() {
			nd.Func, suffix = network.FuncInverter, "_inv"
		}
		nd.Name = s.net.UniqueName(base + suffix)
		id, err := s.net.AddNode(nd, prev)
		if err != nil {
			return network.NoNode, errors.Wrap(errors.ErrCodeInternal, err, "insert %s after %s", g.Name, base)
		}
		st := s.states.Get(id)
		st.Visited = true
		st.Impl = ImplBufferChain
		st.Cell = c
		st.Gate = g
		st.CritFanin = 0
		s.stats.Inserted++
		s.inserted = append(s.inserted, nd.Name)
		prev = id
	}
	for _, r := range rs {
		if err := s.net.PatchPin(r.Target, r.Pin, prev); err != nil {
			return network.NoNode, errors.Wrap(errors.ErrCodeInternal, err, "move %s pin %d", s.nodeName(r.Target), r.Pin)
		}
	}
	return prev, nil
}

// resize switches id to the first gate of c. A cell that keeps the current
// implementation changes nothing.
func (s *Session) resize(id network.NodeID, c *Cell) error {
	if c == nil || c.Keep() {
		return nil
	}
	nd, ok := s.net.Node(id)
	if !ok {
		return errors.New(errors.ErrCodeInternal, "resize of deleted node %d", id)
	}
	g := c.Chain[0]
	if nd.Gate != g.Name {
		if err := s.net.SetGate(id, g.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "resize %s", nd.Name)
		}
		s.stats.Resized++
	}
	st := s.states.Get(id)
	st.Impl = ImplGate
	st.Gate = g
	st.Cell = c
	return nil
}

func (s *Session) annotate(p *Problem, pl *plan) {
	st := s.states.Get(p.Node)
	if st == nil {
		return
	}
	st.CritFanin = p.CritPin
	st.Load = pl.rootLoad
	st.Required = pl.achieved
	st.PrevDrive = p.PrevDrive
	st.PrevPhase = p.PrevPhase
}

func (s *Session) applyRepower(p *Problem, pl *plan) error {
	if err := s.resize(p.Node, pl.root); err != nil {
		return err
	}
	if p.Inverter != network.NoNode {
		if err := s.resize(p.Inverter, pl.inv); err != nil {
			return err
		}
	}
	s.annotate(p, pl)
	return nil
}

func (s *Session) applyUnbalanced(p *Problem, pl *plan) ([]branch, error) {
	if err := s.applyRepower(p, pl); err != nil {
		return nil, err
	}
	var out []branch
	if pl.buf != nil {
		id, err := s.insert(pl.buf, p.Node, p.Pos[pl.mPos:])
		if err != nil {
			return nil, err
		}
		out = append(out, s.branchOf(id))
	}
	if pl.nbuf != nil {
		driver := p.Inverter
		if pl.nbuf.Inverting() {
			driver = p.Node
		}
		id, err := s.insert(pl.nbuf, driver, p.Neg[pl.mNeg:])
		if err != nil {
			return nil, err
		}
		out = append(out, s.branchOf(id))
	}
	return out, nil
}

func (s *Session) applyBalanced(p *Problem, pl *plan) ([]branch, error) {
	if err := s.resize(p.Node, pl.root); err != nil {
		return nil, err
	}
	s.annotate(p, pl)

	var out []branch
	if pl.posGroups > 0 {
		top, err := s.insert(pl.top, p.Node, nil)
		if err != nil {
			return nil, err
		}
		bounds := groups(len(p.Pos), pl.posGroups)
		for k := range pl.posGroups {
			id, err := s.insert(pl.head, top, p.Pos[bounds[k]:bounds[k+1]])
			if err != nil {
				return nil, err
			}
			out = append(out, s.branchOf(id))
		}
	}

	switch {
	case pl.negGroups > 0:
		bounds := groups(len(p.Neg), pl.negGroups)
		for k := range pl.negGroups {
			id, err := s.insert(pl.negCell, p.Node, p.Neg[bounds[k]:bounds[k+1]])
			if err != nil {
				return nil, err
			}
			out = append(out, s.branchOf(id))
		}
		if p.Inverter != network.NoNode && s.net.FanoutCount(p.Inverter) == 0 {
			if err := s.net.DeleteNode(p.Inverter); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "delete inverter %d", p.Inverter)
			}
			s.stats.Deleted++
		}
	case p.Inverter != network.NoNode:
		if err := s.resize(p.Inverter, pl.inv); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Session) applyDuplicate(p *Problem, pl *plan) (network.NodeID, error) {
	if err := s.resize(p.Node, pl.root); err != nil {
		return network.NoNode, err
	}
	s.annotate(p, pl)

	nd, _ := s.net.Node(p.Node)
	cp := network.Node{
		Name:      s.net.UniqueName(nd.Name + "_dup"),
		Kind:      network.KindInternal,
		Func:      nd.Func,
		Gate:      nd.Gate,
		Phases:    slices.Clone(nd.Phases),
		Synthetic: true,
	}
	if !pl.dup.Keep() {
		cp.Gate = pl.dup.Chain[0].Name
	}
	id, err := s.net.AddNode(cp, s.net.Fanins(p.Node)...)
	if err != nil {
		return network.NoNode, errors.Wrap(errors.ErrCodeInternal, err, "duplicate %s", nd.Name)
	}
	st := s.states.Get(id)
	st.Visited = true
	st.Impl = ImplGate
	st.Cell = pl.dup
	st.CritFanin = p.CritPin
	s.stats.Inserted++
	s.inserted = append(s.inserted, cp.Name)

	for _, r := range p.Pos[pl.split:] {
		if err := s.net.PatchPin(r.Target, r.Pin, id); err != nil {
			return network.NoNode, errors.Wrap(errors.ErrCodeInternal, err, "move %s pin %d", s.nodeName(r.Target), r.Pin)
		}
	}
	return id, nil
}
