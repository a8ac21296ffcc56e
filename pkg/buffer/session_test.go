package buffer

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

func TestNewSessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		model  *timing.Model
		code   errors.Code
	}{
		{"invalid mode", func(c *Config) { c.Mode = 8 }, nil, errors.ErrCodeInvalidConfig},
		{"mapped model without library", func(c *Config) { c.UseMappedModel = true }, timing.NewModel(nil, 0), errors.ErrCodeMissingLibrary},
		{"unknown scope node", func(c *Config) { c.Nodes = []string{"ghost"} }, nil, errors.ErrCodeNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, _ := fanoutNet(t, "drv", sink{name: "f", req: 5, load: 1})
			rev := net.Revision()
			model := tt.model
			if model == nil {
				model = timing.NewModel(testLibrary(t), 0)
			}
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			_, err := NewSession(net, model, cfg)
			if !errors.Is(err, tt.code) {
				t.Fatalf("NewSession() error = %v, want %s", err, tt.code)
			}
			if net.Revision() != rev {
				t.Error("failed NewSession() modified the network")
			}
		})
	}
}

func TestSessionCloseTwice(t *testing.T) {
	net, _ := fanoutNet(t, "drv", sink{name: "f", req: 5, load: 1})
	s, err := NewSession(net, timing.NewModel(testLibrary(t), 0), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()

	if _, err := s.Optimize(context.Background()); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Optimize() after Close error = %v, want %s", err, errors.ErrCodeInternal)
	}
}

func TestOptimizeCanceled(t *testing.T) {
	net, _ := fanoutNet(t, "drv",
		sink{name: "f1", req: 4, load: 1},
		sink{name: "f2", req: 8, load: 4},
	)
	s := newTestSession(t, net, testLibrary(t), DefaultConfig())
	rev := net.Revision()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Optimize(ctx); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Optimize() error = %v, want context.Canceled", err)
	}
	if net.Revision() != rev {
		t.Error("canceled Optimize() modified the network")
	}
	if err := net.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestOptimizeScope(t *testing.T) {
	net, n := fanoutNet(t, "drv",
		sink{name: "f1", req: 4, load: 1},
		sink{name: "f2", req: 8, load: 4},
	)
	cfg := DefaultConfig()
	cfg.Nodes = []string{"a"}
	s := newTestSession(t, net, testLibrary(t), cfg)
	nodes := net.NodeCount()

	stats, err := s.Optimize(context.Background())
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if stats.Changes() != 0 || net.NodeCount() != nodes {
		t.Errorf("out-of-scope node %s was restructured: %+v", s.nodeName(n), stats)
	}
}
