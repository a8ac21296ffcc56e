package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDraws(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "optimizing")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	if s.Stop() {
		t.Error("Stop() reported cancellation without a canceled context")
	}
	if !strings.Contains(out.String(), "optimizing") {
		t.Errorf("spinner output %q missing message", out.String())
	}
}

func TestSpinnerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, &syncBuffer{}, "optimizing")
	s.Start()
	cancel()
	if !s.Stop() {
		t.Error("Stop() = false after the parent context was canceled")
	}
}

func TestSpinnerStopIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "x")
	s.Start()
	s.Stop()
	s.Stop()
}
