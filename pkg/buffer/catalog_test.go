package buffer

import (
	"testing"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

func TestBuildCatalogMapped(t *testing.T) {
	lib := testLibrary(t, testGate("buf4", "buf", library.KindBuffer, 4, testPin(2, 0.4, 0.05)))
	net, _ := fanoutNet(t, "drv", sink{name: "f", req: 5, load: 1})

	c, err := BuildCatalog(net, timing.NewModel(lib, 0), false)
	if err != nil {
		t.Fatalf("BuildCatalog() error = %v", err)
	}
	if !c.Mapped() {
		t.Error("Mapped() = false, want true")
	}
	if c.NumInv() != 1 || c.Inverters()[0].Name() != "inv1" {
		t.Errorf("Inverters() = %v, want [inv1]", c.Inverters())
	}
	var names []string
	for _, b := range c.Buffers() {
		names = append(names, b.Name())
	}
	if len(names) != 2 || names[0] != "buf4" || names[1] != "buf1" {
		t.Errorf("Buffers() = %v, want [buf4 buf1]", names)
	}
	if got := c.MinReqDiff(); got != 0.4 {
		t.Errorf("MinReqDiff() = %v, want 0.4", got)
	}
	if got := c.SmallestInverter().Name(); got != "inv1" {
		t.Errorf("SmallestInverter() = %s, want inv1", got)
	}
}

func TestBuildCatalogChainsInverters(t *testing.T) {
	lib, err := library.New("nobuf",
		testGate("inv1", "inv", library.KindInverter, 1, testPin(1, 0.5, 0.2)),
		testGate("drv", "drv", library.KindLogic, 1, testPin(1, 0, 1)),
	)
	if err != nil {
		t.Fatal(err)
	}
	net, _ := fanoutNet(t, "drv", sink{name: "f", req: 5, load: 1})

	c, err := BuildCatalog(net, timing.NewModel(lib, 0), false)
	if err != nil {
		t.Fatalf("BuildCatalog() error = %v", err)
	}
	bufs := c.Buffers()
	if len(bufs) != 1 {
		t.Fatalf("len(Buffers()) = %d, want 1", len(bufs))
	}
	b := bufs[0]
	if b.Name() != "inv1+inv1" || b.Depth != 2 || b.Inverting() {
		t.Errorf("chain = %s depth %d inverting %v", b.Name(), b.Depth, b.Inverting())
	}
	assertNear(t, "chain block", b.Block, 1.2)
	if b.Area != 2 {
		t.Errorf("chain area = %v, want 2", b.Area)
	}
}

func TestBuildCatalogSynthetic(t *testing.T) {
	net := network.New("unmapped")
	a, _ := net.AddInput("a")
	n, err := net.AddNode(network.Node{Name: "n", Func: network.FuncLogic}, a)
	if err != nil {
		t.Fatal(err)
	}
	addSink(t, net, n, sink{name: "f", req: 5, load: 1})

	c, err := BuildCatalog(net, timing.NewModel(testLibrary(t), 0), false)
	if err != nil {
		t.Fatalf("BuildCatalog() error = %v", err)
	}
	if c.Mapped() {
		t.Error("Mapped() = true, want false")
	}
	if got := c.Inverters()[0].Name(); got != library.SyntheticInverter {
		t.Errorf("inverter = %s, want %s", got, library.SyntheticInverter)
	}
	if got := c.Buffers()[0].Name(); got != library.SyntheticBuffer {
		t.Errorf("buffer = %s, want %s", got, library.SyntheticBuffer)
	}
}

func TestBuildCatalogErrors(t *testing.T) {
	noInv, err := library.New("noinv", testGate("drv", "drv", library.KindLogic, 1, testPin(1, 0, 1)))
	if err != nil {
		t.Fatal(err)
	}
	net, _ := fanoutNet(t, "drv", sink{name: "f", req: 5, load: 1})

	tests := []struct {
		name      string
		lib       *library.Library
		useMapped bool
	}{
		{"mapped model without library", nil, true},
		{"library without inverter", noInv, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCatalog(net, timing.NewModel(tt.lib, 0), tt.useMapped)
			if !errors.Is(err, errors.ErrCodeMissingLibrary) {
				t.Errorf("BuildCatalog() error = %v, want %s", err, errors.ErrCodeMissingLibrary)
			}
		})
	}
}

func TestCellRequired(t *testing.T) {
	inv := NewCell(testGate("inv1", "inv", library.KindInverter, 1, testPin(1, 0.5, 0.2)), 0)
	got := inv.Required(1, delay.Time{Rise: 10, Fall: 8})
	if !delay.Equal(got, delay.Time{Rise: 7.3, Fall: 9.3}) {
		t.Errorf("Required() = %v, want {7.3 9.3}", got)
	}
	if inv.Overloaded(1000) {
		t.Error("Overloaded() = true for a pin without max load")
	}

	p := testPin(1, 0.5, 0.2)
	p.MaxLoad = 3
	capped := NewCell(testGate("buf1", "buf", library.KindBuffer, 1, p), 0)
	if capped.Overloaded(3) || !capped.Overloaded(3.5) {
		t.Errorf("Overloaded(3), Overloaded(3.5) = %v, %v, want false, true", capped.Overloaded(3), capped.Overloaded(3.5))
	}
}
