// Package netio reads and writes logic networks as JSON.
//
// The format lists primary inputs, gates and primary outputs by name:
//
//	{
//	  "name": "adder",
//	  "inputs":  [{"name": "a", "arrival": {"rise": 0, "fall": 0}}],
//	  "nodes":   [{"name": "n1", "gate": "nand2", "fanins": ["a", "b"]}],
//	  "outputs": [{"name": "s", "driver": "n1", "load": 1, "required": {"rise": 5, "fall": 5}}]
//	}
//
// Gates may be listed in any order; fanins are resolved by name. Optional
// gate fields:
//   - func: "logic" (default), "buffer" or "inverter"
//   - phases: per-pin phase for unmapped logic ("inv", "noninv", "binate")
//   - synthetic: true for nodes inserted by the optimizer
//
// An output without "required" is unconstrained.
package netio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// Document is the JSON form of a network.
type Document struct {
	Name    string   `json:"name"`
	Inputs  []Input  `json:"inputs"`
	Nodes   []Gate   `json:"nodes"`
	Outputs []Output `json:"outputs"`
}

// Input is a primary input.
type Input struct {
	Name    string     `json:"name"`
	Arrival delay.Time `json:"arrival"`
	Drive   delay.Time `json:"drive"`
}

// Gate is an internal node.
type Gate struct {
	Name      string        `json:"name"`
	Gate      string        `json:"gate,omitempty"`
	Func      string        `json:"func,omitempty"`
	Fanins    []string      `json:"fanins"`
	Phases    []delay.Phase `json:"phases,omitempty"`
	Synthetic bool          `json:"synthetic,omitempty"`
}

// Output is a primary output.
type Output struct {
	Name     string      `json:"name"`
	Driver   string      `json:"driver"`
	Load     float64     `json:"load"`
	Required *delay.Time `json:"required,omitempty"`
}

var funcs = map[string]network.Func{
	"":         network.FuncLogic,
	"logic":    network.FuncLogic,
	"buffer":   network.FuncBuffer,
	"inverter": network.FuncInverter,
}

// ReadJSON decodes a network from r. Errors carry
// errors.ErrCodeInvalidFormat for malformed JSON and
// errors.ErrCodeInvalidNetwork for unknown fanins, duplicate names and
// cycles. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*network.Network, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode network")
	}
	return doc.Build()
}

// ImportJSON reads the network stored at path.
func ImportJSON(path string) (*network.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}

// Build converts the document into a network.
func (d *Document) Build() (*network.Network, error) {
	name := d.Name
	if name == "" {
		name = "network"
	}
	net := network.New(name)
	ids := make(map[string]network.NodeID, len(d.Inputs)+len(d.Nodes))

	for _, in := range d.Inputs {
		if err := errors.ValidateNodeName(in.Name); err != nil {
			return nil, err
		}
		id, err := net.AddInput(in.Name)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "input %s", in.Name)
		}
		nd, _ := net.Node(id)
		nd.Arrival, nd.Drive = in.Arrival, in.Drive
		ids[in.Name] = id
	}

	gates := make(map[string]*Gate, len(d.Nodes))
	for i := range d.Nodes {
		g := &d.Nodes[i]
		if _, dup := gates[g.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidNetwork, "duplicate node %s", g.Name)
		}
		gates[g.Name] = g
	}
	b := builder{net: net, ids: ids, gates: gates, visiting: make(map[string]bool)}
	for i := range d.Nodes {
		if _, err := b.add(d.Nodes[i].Name); err != nil {
			return nil, err
		}
	}

	for _, out := range d.Outputs {
		driver, ok := ids[out.Driver]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidNetwork, "output %s: unknown driver %q", out.Name, out.Driver)
		}
		id, err := net.AddOutput(out.Name, driver)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "output %s", out.Name)
		}
		nd, _ := net.Node(id)
		nd.Load = out.Load
		if out.Required != nil {
			nd.Required, nd.HasRequired = *out.Required, true
		}
	}
	return net, nil
}

type builder struct {
	net      *network.Network
	ids      map[string]network.NodeID
	gates    map[string]*Gate
	visiting map[string]bool
}

// add inserts the named gate after its fanins.
func (b *builder) add(name string) (network.NodeID, error) {
	if id, ok := b.ids[name]; ok {
		return id, nil
	}
	g, ok := b.gates[name]
	if !ok {
		return network.NoNode, errors.New(errors.ErrCodeInvalidNetwork, "unknown node %q", name)
	}
	if b.visiting[name] {
		return network.NoNode, errors.New(errors.ErrCodeInvalidNetwork, "cycle through %s", name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	fn, ok := funcs[g.Func]
	if !ok {
		return network.NoNode, errors.New(errors.ErrCodeInvalidNetwork, "node %s: unknown func %q", name, g.Func)
	}
	fanins := make([]network.NodeID, len(g.Fanins))
	for i, f := range g.Fanins {
		id, err := b.add(f)
		if err != nil {
			return network.NoNode, fmt.Errorf("fanin %d of %s: %w", i, name, err)
		}
		fanins[i] = id
	}
	id, err := b.net.AddNode(network.Node{
		Name:      g.Name,
		Func:      fn,
		Gate:      g.Gate,
		Phases:    g.Phases,
		Synthetic: g.Synthetic,
	}, fanins...)
	if err != nil {
		return network.NoNode, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "node %s", name)
	}
	b.ids[name] = id
	return id, nil
}

// Encode converts net into a document. Nodes appear in topological order.
func Encode(net *network.Network) *Document {
	doc := &Document{Name: net.Name()}
	for _, id := range net.TopoOrder() {
		nd, _ := net.Node(id)
		switch nd.Kind {
		case network.KindInput:
			doc.Inputs = append(doc.Inputs, Input{Name: nd.Name, Arrival: nd.Arrival, Drive: nd.Drive})
		case network.KindOutput:
			out := Output{Name: nd.Name, Driver: name(net, net.Fanin(id, 0)), Load: nd.Load}
			if nd.HasRequired {
				req := nd.Required
				out.Required = &req
			}
			doc.Outputs = append(doc.Outputs, out)
		default:
			g := Gate{Name: nd.Name, Gate: nd.Gate, Phases: nd.Phases, Synthetic: nd.Synthetic}
			if nd.Func != network.FuncLogic {
				g.Func = nd.Func.String()
			}
			for _, f := range net.Fanins(id) {
				g.Fanins = append(g.Fanins, name(net, f))
			}
			doc.Nodes = append(doc.Nodes, g)
		}
	}
	return doc
}

func name(net *network.Network, id network.NodeID) string {
	if nd, ok := net.Node(id); ok {
		return nd.Name
	}
	return ""
}

// WriteJSON encodes net as indented JSON. The output can be read back with
// [ReadJSON].
func WriteJSON(net *network.Network, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(net)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes net to a JSON file at path.
func ExportJSON(net *network.Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(net, f)
}
