package timing

import (
	"math"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// Unit characterization applied to internal nodes with no library gate.
var (
	DefaultBlock = delay.Uniform(1)
	DefaultDrive = delay.Uniform(0.2)
)

// DefaultLoad is the input load of an unmapped pin.
const DefaultLoad = 1.0

// PinDelay is the delay record of one input pin of a node.
type PinDelay struct {
	Phase   delay.Phase
	Block   delay.Time
	Drive   delay.Time
	Load    float64
	MaxLoad float64
}

// Model resolves pin delays and gate areas for network nodes.
//
// Gate names are looked up in the technology library first and then in the
// synthetic unit library, so buffers inserted without a technology library
// still time correctly.
type Model struct {
	lib      *library.Library
	synth    *library.Library
	WireLoad float64
}

// NewModel returns a model backed by lib. A nil lib means no technology
// library is available.
func NewModel(lib *library.Library, wireLoad float64) *Model {
	return &Model{lib: lib, synth: library.Synthetic(), WireLoad: wireLoad}
}

// Library returns the technology library, or nil.
func (m *Model) Library() *library.Library { return m.lib }

// Synthetic returns the unit-fanout fallback library.
func (m *Model) Synthetic() *library.Library { return m.synth }

// HasLibrary reports whether a technology library is attached.
func (m *Model) HasLibrary() bool { return m.lib != nil }

// Known reports whether gate resolves in either library.
func (m *Model) Known(gate string) bool {
	_, ok := m.Lookup(gate)
	return ok
}

// Lookup resolves a gate name.
func (m *Model) Lookup(gate string) (*library.Gate, bool) {
	if gate == "" {
		return nil, false
	}
	if m.lib != nil {
		if g, ok := m.lib.Gate(gate); ok {
			return g, true
		}
	}
	return m.synth.Gate(gate)
}

// Variants returns the replacement candidates of g from whichever library
// holds it.
func (m *Model) Variants(g *library.Gate) []*library.Gate {
	if m.lib != nil && m.lib.Has(g.Name) {
		return m.lib.Variants(g)
	}
	return m.synth.Variants(g)
}

// Gate returns the library gate implementing nd, if any.
func (m *Model) Gate(nd *network.Node) (*library.Gate, bool) {
	if !nd.IsInternal() {
		return nil, false
	}
	return m.Lookup(nd.Gate)
}

// Area returns the area of nd's implementation. Unmapped nodes have no area.
func (m *Model) Area(nd *network.Node) float64 {
	if g, ok := m.Gate(nd); ok {
		return g.Area
	}
	return 0
}

// PinDelay returns the delay record of pin of nd.
func (m *Model) PinDelay(nd *network.Node, pin int) PinDelay {
	switch nd.Kind {
	case network.KindOutput:
		return PinDelay{Phase: delay.PhaseNonInverting, Load: nd.Load, MaxLoad: math.Inf(1)}
	case network.KindInput:
		return PinDelay{Phase: delay.PhaseNonInverting, Drive: nd.Drive, MaxLoad: math.Inf(1)}
	}
	if g, ok := m.Gate(nd); ok {
		return FromPin(g.Pin(pin))
	}
	pd := PinDelay{
		Phase:   delay.PhaseBinate,
		Block:   DefaultBlock,
		Drive:   DefaultDrive,
		Load:    DefaultLoad,
		MaxLoad: math.Inf(1),
	}
	switch nd.Func {
	case network.FuncInverter:
		pd.Phase = delay.PhaseInverting
	case network.FuncBuffer:
		pd.Phase = delay.PhaseNonInverting
		pd.Block = DefaultBlock.Scale(2)
	default:
		if pin >= 0 && pin < len(nd.Phases) && nd.Phases[pin] != delay.PhaseUnknown {
			pd.Phase = nd.Phases[pin]
		}
	}
	return pd
}

// FromPin converts a library pin into a PinDelay.
func FromPin(p library.Pin) PinDelay {
	maxLoad := p.MaxLoad
	if maxLoad <= 0 {
		maxLoad = math.Inf(1)
	}
	return PinDelay{Phase: p.Phase, Block: p.Block, Drive: p.Drive, Load: p.Load, MaxLoad: maxLoad}
}
