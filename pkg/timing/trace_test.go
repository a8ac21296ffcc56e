package timing

import (
	"math"
	"testing"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
)

// inverterChain builds a -> g (unmapped inverter) -> o.
func inverterChain(t *testing.T, required *delay.Time) (*network.Network, network.NodeID, network.NodeID, network.NodeID) {
	t.Helper()
	net := network.New("chain")
	a, err := net.AddNode(network.Node{Name: "a", Kind: network.KindInput, Arrival: delay.Time{Rise: 1, Fall: 0}})
	if err != nil {
		t.Fatal(err)
	}
	g, err := net.AddNode(network.Node{Name: "g", Func: network.FuncInverter}, a)
	if err != nil {
		t.Fatal(err)
	}
	o, err := net.AddOutput("o", g)
	if err != nil {
		t.Fatal(err)
	}
	if required != nil {
		nd, _ := net.Node(o)
		nd.Required, nd.HasRequired = *required, true
	}
	return net, a, g, o
}

func assertTime(t *testing.T, what string, got, want delay.Time) {
	t.Helper()
	if !delay.Equal(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func TestRunConstrained(t *testing.T) {
	req := delay.Time{Rise: 10, Fall: 9}
	net, a, g, o := inverterChain(t, &req)
	tr, err := Run(net, NewModel(nil, 0))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !tr.Constrained() {
		t.Error("Constrained() = false")
	}

	assertTime(t, "Arrival(g)", tr.Arrival(g), delay.Time{Rise: 1.2, Fall: 2.2})
	assertTime(t, "Arrival(o)", tr.Arrival(o), delay.Time{Rise: 1.2, Fall: 2.2})
	assertTime(t, "Required(a)", tr.Required(a), delay.Time{Rise: 7.8, Fall: 8.8})
	assertTime(t, "Slack(a)", tr.Slack(a), delay.Time{Rise: 6.8, Fall: 8.8})
	assertTime(t, "Slack(g)", tr.Slack(g), delay.Time{Rise: 8.8, Fall: 6.8})

	if tr.Load(a) != DefaultLoad || tr.Load(g) != 1 {
		t.Errorf("loads = %v, %v", tr.Load(a), tr.Load(g))
	}
	if got := tr.MinOutputSlack(); math.Abs(got-6.8) > delay.Epsilon {
		t.Errorf("MinOutputSlack() = %v, want 6.8", got)
	}
	if tr.CriticalPin(g) != 0 || tr.CriticalPin(a) != -1 {
		t.Errorf("CriticalPin() = %d, %d", tr.CriticalPin(g), tr.CriticalPin(a))
	}
	if tr.Stale() {
		t.Error("fresh trace reported stale")
	}
	_ = net.SetGate(g, library.SyntheticInverter)
	if !tr.Stale() {
		t.Error("trace should be stale after SetGate")
	}
}

func TestRunUnconstrained(t *testing.T) {
	net, _, _, o := inverterChain(t, nil)
	tr, err := Run(net, NewModel(nil, 0))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Constrained() {
		t.Error("Constrained() = true")
	}
	assertTime(t, "Required(o)", tr.Required(o), delay.Uniform(2.2))
	assertTime(t, "Slack(o)", tr.Slack(o), delay.Time{Rise: 1, Fall: 0})
	if got := tr.MaxArrival(); math.Abs(got-2.2) > delay.Epsilon {
		t.Errorf("MaxArrival() = %v", got)
	}
}

func TestLibraryPins(t *testing.T) {
	net, _, g, _ := inverterChain(t, nil)
	m := NewModel(nil, 0.5)
	_ = net.SetGate(g, library.SyntheticInverter)

	nd, _ := net.Node(g)
	pd := m.PinDelay(nd, 0)
	if pd.Phase != delay.PhaseInverting || pd.Load != 1 || pd.MaxLoad != 1000 {
		t.Errorf("PinDelay() = %+v", pd)
	}
	if m.Area(nd) != 1 {
		t.Errorf("Area() = %v", m.Area(nd))
	}

	tr, err := Run(net, m)
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.Load(g); got != 1.5 {
		t.Errorf("Load(g) with wire load = %v, want 1.5", got)
	}
}

func TestBinatePhase(t *testing.T) {
	net := network.New("xor")
	a, _ := net.AddNode(network.Node{Name: "a", Kind: network.KindInput, Arrival: delay.Time{Rise: 2, Fall: 0}})
	x, _ := net.AddNode(network.Node{Name: "x"}, a)
	net.AddOutput("o", x)

	tr, err := Run(net, NewModel(nil, 0))
	if err != nil {
		t.Fatal(err)
	}
	// Binate stages see the later input rail on both output rails.
	assertTime(t, "Arrival(x)", tr.Arrival(x), delay.Uniform(3.2))
}
