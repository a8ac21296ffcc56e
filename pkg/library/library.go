package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/bufferopt/pkg/delay"
)

// Kind is the buffering role of a gate.
type Kind int

const (
	// KindLogic is any gate that is not a buffer or inverter.
	KindLogic Kind = iota
	// KindInverter is a single-input inverting gate.
	KindInverter
	// KindBuffer is a single-input non-inverting gate.
	KindBuffer
)

func (k Kind) String() string {
	switch k {
	case KindInverter:
		return "inverter"
	case KindBuffer:
		return "buffer"
	}
	return "logic"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "logic":
		*k = KindLogic
	case "inverter", "inv":
		*k = KindInverter
	case "buffer", "buf":
		*k = KindBuffer
	default:
		return fmt.Errorf("unknown gate kind %q", string(b))
	}
	return nil
}

// Pin is the delay characterization of one gate input.
type Pin struct {
	Name    string      `toml:"name" json:"name"`
	Phase   delay.Phase `toml:"phase" json:"phase"`
	Load    float64     `toml:"load" json:"load"`
	MaxLoad float64     `toml:"max_load" json:"max_load"`
	Block   delay.Time  `toml:"block" json:"block"`
	Drive   delay.Time  `toml:"drive" json:"drive"`
}

// Gate is one library cell. Gates with equal Class implement the same logic
// function and can replace each other.
type Gate struct {
	Name  string  `toml:"name" json:"name"`
	Class string  `toml:"class" json:"class"`
	Kind  Kind    `toml:"kind" json:"kind"`
	Area  float64 `toml:"area" json:"area"`
	Pins  []Pin   `toml:"pin" json:"pins"`
}

// Pin returns the characterization of input i. Out-of-range indices fall
// back to the last pin so single-pin characterizations cover wide gates.
func (g *Gate) Pin(i int) Pin {
	if len(g.Pins) == 0 {
		return Pin{}
	}
	if i < 0 || i >= len(g.Pins) {
		return g.Pins[len(g.Pins)-1]
	}
	return g.Pins[i]
}

// IsInverter reports whether the gate is an inverter.
func (g *Gate) IsInverter() bool { return g.Kind == KindInverter }

// IsBuffer reports whether the gate is a non-inverting buffer.
func (g *Gate) IsBuffer() bool { return g.Kind == KindBuffer }

// Library is an indexed, read-only set of gates.
type Library struct {
	name    string
	gates   map[string]*Gate
	byClass map[string][]*Gate
}

// New builds a library from gates. Gate names must be unique and every gate
// needs at least one pin. Gates without a class form a class of their own.
func New(name string, gates ...*Gate) (*Library, error) {
	lib := &Library{
		name:    name,
		gates:   make(map[string]*Gate, len(gates)),
		byClass: make(map[string][]*Gate),
	}
	for _, g := range gates {
		if g.Name == "" {
			return nil, fmt.Errorf("library %s: gate without name", name)
		}
		if _, dup := lib.gates[g.Name]; dup {
			return nil, fmt.Errorf("library %s: duplicate gate %s", name, g.Name)
		}
		if len(g.Pins) == 0 {
			return nil, fmt.Errorf("library %s: gate %s has no pins", name, g.Name)
		}
		if g.Area < 0 {
			return nil, fmt.Errorf("library %s: gate %s has negative area", name, g.Name)
		}
		if g.Class == "" {
			g.Class = g.Name
		}
		for i := range g.Pins {
			if g.Pins[i].Phase == delay.PhaseUnknown {
				g.Pins[i].Phase = defaultPhase(g.Kind)
			}
		}
		lib.gates[g.Name] = g
		lib.byClass[g.Class] = append(lib.byClass[g.Class], g)
	}
	for _, cls := range lib.byClass {
		sortByArea(cls)
	}
	return lib, nil
}

func defaultPhase(k Kind) delay.Phase {
	switch k {
	case KindInverter:
		return delay.PhaseInverting
	case KindBuffer:
		return delay.PhaseNonInverting
	}
	return delay.PhaseBinate
}

// sortByArea orders gates by decreasing area, breaking ties by name.
func sortByArea(gates []*Gate) {
	slices.SortStableFunc(gates, func(a, b *Gate) int {
		if c := cmp.Compare(b.Area, a.Area); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// Name returns the library name.
func (l *Library) Name() string { return l.name }

// Gate returns the gate with the given name.
func (l *Library) Gate(name string) (*Gate, bool) {
	g, ok := l.gates[name]
	return g, ok
}

// Has reports whether the library contains a gate with the given name.
func (l *Library) Has(name string) bool {
	_, ok := l.gates[name]
	return ok
}

// Gates returns every gate sorted by name.
func (l *Library) Gates() []*Gate {
	out := make([]*Gate, 0, len(l.gates))
	for _, g := range l.gates {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Gate) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Variants returns every gate of g's class, largest area first. The result
// includes g itself.
func (l *Library) Variants(g *Gate) []*Gate {
	return slices.Clone(l.byClass[g.Class])
}

// Inverters returns every inverter gate, largest area first.
func (l *Library) Inverters() []*Gate { return l.ofKind(KindInverter) }

// Buffers returns every non-inverting buffer gate, largest area first.
func (l *Library) Buffers() []*Gate { return l.ofKind(KindBuffer) }

func (l *Library) ofKind(k Kind) []*Gate {
	var out []*Gate
	for _, g := range l.Gates() {
		if g.Kind == k {
			out = append(out, g)
		}
	}
	sortByArea(out)
	return out
}

// SmallestInverter returns the inverter with the least area.
func (l *Library) SmallestInverter() (*Gate, bool) {
	invs := l.Inverters()
	if len(invs) == 0 {
		return nil, false
	}
	return invs[len(invs)-1], true
}
