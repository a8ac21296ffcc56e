package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/bufferopt/pkg/errors"
)

// MemoryStore keeps reports in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]Report)}
}

func (s *MemoryStore) Save(ctx context.Context, r *Report) error {
	if err := errors.ValidateRunID(r.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = *r
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Report, error) {
	if err := errors.ValidateRunID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, notFound(id)
	}
	return &r, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Report, 0, len(s.reports))
	for _, id := range slices.Sorted(maps.Keys(s.reports)) {
		r := s.reports[id]
		out = append(out, &r)
	}
	return newestFirst(out, limit), nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func newestFirst(reports []*Report, limit int) []*Report {
	slices.SortStableFunc(reports, func(a, b *Report) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports
}

var _ Store = (*MemoryStore)(nil)
