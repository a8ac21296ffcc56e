package buffer

import (
	"math"
	"testing"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

func testPin(load, block, drive float64) library.Pin {
	return library.Pin{Name: "a", Load: load, Block: delay.Uniform(block), Drive: delay.Uniform(drive)}
}

func testGate(name, class string, kind library.Kind, area float64, p library.Pin) *library.Gate {
	if kind == library.KindLogic {
		p.Phase = delay.PhaseNonInverting
	}
	return &library.Gate{Name: name, Class: class, Kind: kind, Area: area, Pins: []library.Pin{p}}
}

// testLibrary returns inv1, buf1 and the driver gate drv plus extra gates.
// inv1 and buf1 share block 0.5, drive 0.2 and load 1; drv has block 0,
// drive 1 and load 1.
func testLibrary(t *testing.T, extra ...*library.Gate) *library.Library {
	t.Helper()
	gates := []*library.Gate{
		testGate("inv1", "inv", library.KindInverter, 1, testPin(1, 0.5, 0.2)),
		testGate("buf1", "buf", library.KindBuffer, 1, testPin(1, 0.5, 0.2)),
		testGate("drv", "drv", library.KindLogic, 1, testPin(1, 0, 1)),
	}
	lib, err := library.New("test", append(gates, extra...)...)
	if err != nil {
		t.Fatalf("library.New() error = %v", err)
	}
	return lib
}

type sink struct {
	name string
	req  float64
	load float64
}

// fanoutNet builds a -> n (gate) -> one primary output per sink. A sink
// with a NaN required time is unconstrained.
func fanoutNet(t *testing.T, gate string, sinks ...sink) (*network.Network, network.NodeID) {
	t.Helper()
	net := network.New("fanout")
	a, err := net.AddInput("a")
	if err != nil {
		t.Fatal(err)
	}
	n, err := net.AddNode(network.Node{Name: "n", Gate: gate}, a)
	if err != nil {
		t.Fatal(err)
	}
	for _, sk := range sinks {
		addSink(t, net, n, sk)
	}
	return net, n
}

func addSink(t *testing.T, net *network.Network, driver network.NodeID, sk sink) network.NodeID {
	t.Helper()
	o, err := net.AddOutput(sk.name, driver)
	if err != nil {
		t.Fatal(err)
	}
	nd, _ := net.Node(o)
	nd.Load = sk.load
	if !math.IsNaN(sk.req) {
		nd.Required, nd.HasRequired = delay.Uniform(sk.req), true
	}
	return o
}

func newTestSession(t *testing.T, net *network.Network, lib *library.Library, cfg Config) *Session {
	t.Helper()
	s, err := NewSession(net, timing.NewModel(lib, 0), cfg)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func assertNear(t *testing.T, what string, got delay.Time, want float64) {
	t.Helper()
	if !delay.Equal(got, delay.Uniform(want)) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func lookup(t *testing.T, net *network.Network, name string) network.NodeID {
	t.Helper()
	id, ok := net.Lookup(name)
	if !ok {
		t.Fatalf("node %s not found", name)
	}
	return id
}
