package network

import (
	"errors"
	"slices"
	"testing"
)

type recorder struct {
	added, deleted []NodeID
}

func (r *recorder) NodeAdded(id NodeID)   { r.added = append(r.added, id) }
func (r *recorder) NodeDeleted(id NodeID) { r.deleted = append(r.deleted, id) }

func buildChain(t *testing.T) (*Network, NodeID, NodeID, NodeID) {
	t.Helper()
	net := New("chain")
	a, err := net.AddInput("a")
	if err != nil {
		t.Fatal(err)
	}
	g, err := net.AddNode(Node{Name: "g"}, a)
	if err != nil {
		t.Fatal(err)
	}
	o, err := net.AddOutput("o", g)
	if err != nil {
		t.Fatal(err)
	}
	return net, a, g, o
}

func TestAddNode(t *testing.T) {
	net, a, g, _ := buildChain(t)

	if _, err := net.AddNode(Node{Name: ""}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("empty name error = %v, want ErrInvalidName", err)
	}
	if _, err := net.AddNode(Node{Name: "g"}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate error = %v, want ErrDuplicateName", err)
	}
	if _, err := net.AddNode(Node{Name: "x"}, NodeID(99)); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("unknown fanin error = %v, want ErrUnknownNode", err)
	}
	if _, err := net.AddNode(Node{Name: "bad", Kind: KindOutput}); !errors.Is(err, ErrBadOutput) {
		t.Errorf("output without fanin error = %v, want ErrBadOutput", err)
	}

	if got := net.Fanouts(a); len(got) != 1 || got[0] != (Fanout{Node: g, Pin: 0}) {
		t.Errorf("Fanouts(a) = %v", got)
	}
	if net.NodeCount() != 3 || net.EdgeCount() != 2 {
		t.Errorf("counts = %d nodes, %d edges", net.NodeCount(), net.EdgeCount())
	}
}

func TestPatchAndDelete(t *testing.T) {
	net, a, g, o := buildChain(t)
	rec := &recorder{}
	net.Observe(rec)

	b, _ := net.AddNode(Node{Name: "b", Func: FuncBuffer}, g)
	rev := net.Revision()
	if !net.PatchFanin(o, g, b) {
		t.Fatal("PatchFanin() = false")
	}
	if net.Revision() == rev {
		t.Error("Revision should advance after a patch")
	}
	if net.Fanin(o, 0) != b {
		t.Errorf("Fanin(o, 0) = %d, want %d", net.Fanin(o, 0), b)
	}
	if got := net.Fanouts(g); len(got) != 1 || got[0].Node != b {
		t.Errorf("Fanouts(g) = %v", got)
	}

	if err := net.DeleteNode(b); !errors.Is(err, ErrHasFanouts) {
		t.Errorf("DeleteNode(b) error = %v, want ErrHasFanouts", err)
	}
	if err := net.PatchPin(o, 0, g); err != nil {
		t.Fatal(err)
	}
	if err := net.DeleteNode(b); err != nil {
		t.Fatalf("DeleteNode(b) error = %v", err)
	}
	if len(net.Fanouts(g)) != 1 {
		t.Errorf("deleting b should drop its fanin edge, Fanouts(g) = %v", net.Fanouts(g))
	}
	if !slices.Equal(rec.added, []NodeID{b}) || !slices.Equal(rec.deleted, []NodeID{b}) {
		t.Errorf("observer saw added=%v deleted=%v", rec.added, rec.deleted)
	}
	_ = a
}

func TestTopoOrder(t *testing.T) {
	net := New("diamond")
	a, _ := net.AddInput("a")
	l, _ := net.AddNode(Node{Name: "l"}, a)
	r, _ := net.AddNode(Node{Name: "r"}, a)
	j, _ := net.AddNode(Node{Name: "j"}, l, r)
	o, _ := net.AddOutput("o", j)

	order := net.TopoOrder()
	pos := make(map[NodeID]int)
	for i, id := range order {
		pos[id] = i
	}
	if len(order) != 5 {
		t.Fatalf("TopoOrder() length = %d, want 5", len(order))
	}
	for _, e := range [][2]NodeID{{a, l}, {a, r}, {l, j}, {r, j}, {j, o}} {
		if pos[e[0]] >= pos[e[1]] {
			t.Errorf("%d should precede %d in %v", e[0], e[1], order)
		}
	}
	if err := net.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	net, _, g, o := buildChain(t)
	rec := &recorder{}
	net.Observe(rec)

	snap := net.Snapshot()
	b, _ := net.AddNode(Node{Name: "b", Func: FuncBuffer}, g)
	net.PatchFanin(o, g, b)
	_ = net.SetGate(g, "big")

	net.Restore(snap)

	if _, ok := net.Node(b); ok {
		t.Error("restored network should not contain the buffer")
	}
	if net.Fanin(o, 0) != g {
		t.Errorf("Fanin(o, 0) = %d, want %d", net.Fanin(o, 0), g)
	}
	if nd, _ := net.Node(g); nd.Gate != "" {
		t.Errorf("gate = %q, want empty", nd.Gate)
	}
	if !slices.Contains(rec.deleted, b) {
		t.Errorf("observer should see the buffer deleted, got %v", rec.deleted)
	}
	if name := net.UniqueName("b"); name != "b" {
		t.Errorf("UniqueName(b) = %q, want b after restore", name)
	}
}

func TestUniqueName(t *testing.T) {
	net, _, _, _ := buildChain(t)
	if got := net.UniqueName("g"); got != "g_1" {
		t.Errorf("UniqueName(g) = %q, want g_1", got)
	}
	if got := net.UniqueName("fresh"); got != "fresh" {
		t.Errorf("UniqueName(fresh) = %q", got)
	}
}
