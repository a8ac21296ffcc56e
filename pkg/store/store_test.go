package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/errors"
)

func report(network string, age time.Duration) *Report {
	r := NewReport(network, "lib", buffer.ModeAll, buffer.Stats{Sweeps: 2, Transforms: map[string]int{buffer.KindRepower: 1}})
	r.CreatedAt = r.CreatedAt.Add(-age)
	return r
}

func TestNewReport(t *testing.T) {
	r := NewReport("c17", "", buffer.ModeRepower, buffer.Stats{})
	if err := errors.ValidateRunID(r.ID); err != nil {
		t.Errorf("ID %q is not a run id: %v", r.ID, err)
	}
	if r.Mode != buffer.ModeRepower.String() {
		t.Errorf("Mode = %s", r.Mode)
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if NewReport("c17", "", buffer.ModeAll, buffer.Stats{}).ID == r.ID {
		t.Error("IDs should be unique")
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	old, mid, fresh := report("old", 2*time.Hour), report("mid", time.Hour), report("fresh", 0)
	for _, r := range []*Report{mid, fresh, old} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s) error = %v", r.Network, err)
		}
	}

	got, err := s.Get(ctx, mid.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Network != "mid" || got.Stats.Sweeps != 2 || got.Stats.Transforms[buffer.KindRepower] != 1 {
		t.Errorf("Get() = %+v", got)
	}

	mid.Network = "renamed"
	if err := s.Save(ctx, mid); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, mid.ID); got.Network != "renamed" {
		t.Errorf("Save did not replace: %s", got.Network)
	}

	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != fresh.ID || list[1].ID != mid.ID {
		t.Errorf("List(2) = %v, want [fresh mid]", names(list))
	}
	if all, _ := s.List(ctx, 0); len(all) != 3 {
		t.Errorf("List(0) returned %d reports, want 3", len(all))
	}

	_, err = s.Get(ctx, "3f1c2a9e-7b1d-4c55-9a0e-2d8b6f4e1a77")
	if !errors.Is(err, errors.ErrCodeRunNotFound) {
		t.Errorf("Get(unknown) error = %v, want RUN_NOT_FOUND", err)
	}
	_, err = s.Get(ctx, "../../etc/passwd")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Get(bad id) error = %v, want INVALID_INPUT", err)
	}
	if err := s.Save(ctx, &Report{ID: "x"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Save(bad id) error = %v, want INVALID_INPUT", err)
	}
}

func names(rs []*Report) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Network
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if s.Path() != dir {
		t.Errorf("Path() = %s", s.Path())
	}
	testStore(t, s)

	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(context.Background(), 0)
	if err != nil || len(list) != 3 {
		t.Errorf("List() with junk file = %d reports, %v", len(list), err)
	}
}

func TestNewMongoStoreBadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewMongoStore(ctx, "notmongo://localhost", "test")
	if !errors.Is(err, errors.ErrCodeStorage) {
		t.Errorf("NewMongoStore() error = %v, want STORAGE_ERROR", err)
	}
}
