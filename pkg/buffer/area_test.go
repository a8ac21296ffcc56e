package buffer

import (
	"context"
	"testing"

	"github.com/matzehuels/bufferopt/pkg/library"
	"github.com/matzehuels/bufferopt/pkg/network"
)

func strongDriver() *library.Gate {
	return testGate("drv_x4", "drv", library.KindLogic, 4, testPin(2, 0, 0.25))
}

// slackNet builds a -> n1 (drv_x4) -> o1 with plenty of slack next to
// b -> m (drv) -> o2 which sets the network's minimum slack.
func slackNet(t *testing.T) (*network.Network, network.NodeID) {
	t.Helper()
	net := network.New("slack")
	a, _ := net.AddInput("a")
	b, _ := net.AddInput("b")
	n1, err := net.AddNode(network.Node{Name: "n1", Gate: "drv_x4"}, a)
	if err != nil {
		t.Fatal(err)
	}
	m, err := net.AddNode(network.Node{Name: "m", Gate: "drv"}, b)
	if err != nil {
		t.Fatal(err)
	}
	addSink(t, net, n1, sink{name: "o1", req: 100, load: 1})
	addSink(t, net, m, sink{name: "o2", req: 3, load: 1})
	return net, n1
}

func TestRecoverAreaDownsizes(t *testing.T) {
	net, n1 := slackNet(t)
	s := newTestSession(t, net, testLibrary(t, strongDriver()), DefaultConfig())
	floor := s.Trace().MinSlack()

	resized, err := s.RecoverArea(context.Background())
	if err != nil {
		t.Fatalf("RecoverArea() error = %v", err)
	}
	if resized != 1 {
		t.Fatalf("RecoverArea() = %d, want 1", resized)
	}
	nd, _ := net.Node(n1)
	if nd.Gate != "drv" {
		t.Errorf("n1 gate = %s, want drv", nd.Gate)
	}
	if got := s.Area(); got != 2 {
		t.Errorf("Area() = %v, want 2", got)
	}
	if got := s.Trace().MinSlack(); got < floor-1e-9 {
		t.Errorf("MinSlack() = %v, was %v", got, floor)
	}
	if st := s.States().Get(n1); st.Impl != ImplGate || st.Gate.Name != "drv" {
		t.Errorf("state = %+v", st)
	}

	stats := s.Stats()
	if stats.Resized != 1 || stats.Transforms[KindAreaRecovery] != 1 {
		t.Errorf("stats = %+v", stats)
	}
	last := stats.Events[len(stats.Events)-1]
	if last.Kind != KindAreaRecovery || last.Area != -3 {
		t.Errorf("event = %+v", last)
	}
}

func TestRecoverAreaKeepsCriticalGate(t *testing.T) {
	net, n := fanoutNet(t, "drv_x4",
		sink{name: "f1", req: 4, load: 1},
		sink{name: "f2", req: 8, load: 4},
	)
	s := newTestSession(t, net, testLibrary(t, strongDriver()), DefaultConfig())
	rev := net.Revision()

	resized, err := s.RecoverArea(context.Background())
	if err != nil {
		t.Fatalf("RecoverArea() error = %v", err)
	}
	if resized != 0 {
		t.Errorf("RecoverArea() = %d, want 0", resized)
	}
	if nd, _ := net.Node(n); nd.Gate != "drv_x4" {
		t.Errorf("gate = %s, want drv_x4", nd.Gate)
	}
	if net.Revision() != rev {
		t.Error("rejected downsizing mutated the network")
	}
}

func TestRecoverAreaNeedsRepowerMode(t *testing.T) {
	net, n1 := slackNet(t)
	cfg := DefaultConfig()
	cfg.Mode = ModeUnbalanced | ModeBalanced
	s := newTestSession(t, net, testLibrary(t, strongDriver()), cfg)

	resized, err := s.RecoverArea(context.Background())
	if err != nil || resized != 0 {
		t.Fatalf("RecoverArea() = %d, %v, want 0, nil", resized, err)
	}
	if nd, _ := net.Node(n1); nd.Gate != "drv_x4" {
		t.Errorf("gate = %s, want drv_x4", nd.Gate)
	}
}
