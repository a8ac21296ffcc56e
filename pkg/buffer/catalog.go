package buffer

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// Cell is one buffering implementation: a single gate or a chain of gates
// treated as one stage. Cells are immutable once built.
//
// A Cell with an empty Chain stands for "keep the current implementation"
// of a node whose gate is not in any library.
type Cell struct {
	Depth     int
	Chain     []*library.Gate
	Area      float64
	InputLoad float64
	MaxLoad   float64
	Block     delay.Time
	Drive     delay.Time
	Phase     delay.Phase
}

// NewCell wraps pin of g as a depth-1 cell.
func NewCell(g *library.Gate, pin int) *Cell {
	return cellFromPin(g, timing.FromPin(g.Pin(pin)))
}

func cellFromPin(g *library.Gate, pd timing.PinDelay) *Cell {
	c := &Cell{
		Depth:     1,
		InputLoad: pd.Load,
		MaxLoad:   pd.MaxLoad,
		Block:     pd.Block,
		Drive:     pd.Drive,
		Phase:     pd.Phase,
	}
	if g != nil {
		c.Chain = []*library.Gate{g}
		c.Area = g.Area
	}
	return c
}

// Chain composes next behind prev. The result has depth prev.Depth+1 and is
// always non-inverting; only inverter pairs are composed. The block delay of
// each output rail is the opposite rail of prev driving next plus routing,
// followed by next's own block delay.
func Chain(prev, next *Cell, routing float64) *Cell {
	load := next.InputLoad + routing
	return &Cell{
		Depth: prev.Depth + 1,
		Chain: append(append([]*library.Gate{}, prev.Chain...), next.Chain...),
		Area:  prev.Area + next.Area,
		Block: delay.Time{
			Rise: prev.Block.Fall + prev.Drive.Fall*load + next.Block.Rise,
			Fall: prev.Block.Rise + prev.Drive.Rise*load + next.Block.Fall,
		},
		Drive:     next.Drive,
		InputLoad: prev.InputLoad,
		MaxLoad:   next.MaxLoad,
		Phase:     delay.PhaseNonInverting,
	}
}

// Name returns the gate names of the chain joined by "+".
func (c *Cell) Name() string {
	if len(c.Chain) == 0 {
		return "(current)"
	}
	names := make([]string, len(c.Chain))
	for i, g := range c.Chain {
		names[i] = g.Name
	}
	return strings.Join(names, "+")
}

// Keep reports whether the cell stands for the current implementation.
func (c *Cell) Keep() bool { return len(c.Chain) == 0 }

// Inverting reports whether the cell inverts its input.
func (c *Cell) Inverting() bool { return c.Phase == delay.PhaseInverting }

// Required returns the required time at the cell input when it drives load
// that is required at req.
func (c *Cell) Required(load float64, req delay.Time) delay.Time {
	return delay.Subtract(c.Phase, c.Block, c.Drive, load, req)
}

// Overloaded reports whether load exceeds the cell's max load.
func (c *Cell) Overloaded(load float64) bool {
	return load > c.MaxLoad+delay.Epsilon
}

// Catalog is the ordered set of cells available for insertion: inverting
// cells first, then non-inverting ones, each group largest area first.
type Catalog struct {
	cells      []*Cell
	numInv     int
	minReqDiff float64
	mapped     bool
}

// BuildCatalog selects the buffering cells for net.
//
// Technology cells are used when a library is attached and either
// useMapped is set or every internal node is already mapped: the smallest
// inverter, every buffer, and a two-inverter chain when the library has no
// buffer. Otherwise the two synthetic unit cells are used. Requesting the
// mapped model without a usable library is a configuration error.
func BuildCatalog(net *network.Network, model *timing.Model, useMapped bool) (*Catalog, error) {
	lib := model.Library()
	if useMapped && lib == nil {
		return nil, errors.New(errors.ErrCodeMissingLibrary, "mapped delay model requested but no technology library is loaded")
	}
	if lib != nil && (useMapped || net.IsMapped(lib.Has)) {
		inv, ok := lib.SmallestInverter()
		if !ok {
			return nil, errors.New(errors.ErrCodeMissingLibrary, "library %s has no inverter", lib.Name())
		}
		invCell := NewCell(inv, 0)
		var bufs []*Cell
		for _, g := range lib.Buffers() {
			bufs = append(bufs, NewCell(g, 0))
		}
		if len(bufs) == 0 {
			bufs = append(bufs, Chain(invCell, invCell, model.WireLoad))
		}
		return newCatalog([]*Cell{invCell}, bufs, true), nil
	}

	synth := model.Synthetic()
	inv, _ := synth.Gate(library.SyntheticInverter)
	buf, _ := synth.Gate(library.SyntheticBuffer)
	return newCatalog([]*Cell{NewCell(inv, 0)}, []*Cell{NewCell(buf, 0)}, false), nil
}

func newCatalog(invs, bufs []*Cell, mapped bool) *Catalog {
	sortCells(invs)
	sortCells(bufs)
	c := &Catalog{
		cells:      append(append([]*Cell{}, invs...), bufs...),
		numInv:     len(invs),
		minReqDiff: math.Inf(1),
		mapped:     mapped,
	}
	for _, b := range bufs {
		c.minReqDiff = math.Min(c.minReqDiff, b.Block.Worst())
	}
	if math.IsInf(c.minReqDiff, 1) {
		c.minReqDiff = 0
	}
	return c
}

func sortCells(cells []*Cell) {
	slices.SortStableFunc(cells, func(a, b *Cell) int { return cmp.Compare(b.Area, a.Area) })
}

// Cells returns every cell in catalog order.
func (c *Catalog) Cells() []*Cell { return c.cells }

// Inverters returns the inverting prefix.
func (c *Catalog) Inverters() []*Cell { return c.cells[:c.numInv] }

// Buffers returns the non-inverting suffix.
func (c *Catalog) Buffers() []*Cell { return c.cells[c.numInv:] }

// NumInv returns the length of the inverting prefix.
func (c *Catalog) NumInv() int { return c.numInv }

// MinReqDiff returns the smallest worst-rail block delay among buffers.
func (c *Catalog) MinReqDiff() float64 { return c.minReqDiff }

// Mapped reports whether the cells come from a technology library.
func (c *Catalog) Mapped() bool { return c.mapped }

// SmallestInverter returns the inverting cell with the least area.
func (c *Catalog) SmallestInverter() *Cell { return c.cells[c.numInv-1] }

// ForPhase returns the inverting or non-inverting cells.
func (c *Catalog) ForPhase(inverting bool) []*Cell {
	if inverting {
		return c.Inverters()
	}
	return c.Buffers()
}
