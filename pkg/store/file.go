package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/bufferopt/pkg/errors"
)

// FileStore keeps one JSON file per report in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates baseDir if needed. An empty baseDir defaults to
// ~/.local/share/bufferopt/runs.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".local", "share", "bufferopt", "runs")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create report dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the report directory.
func (s *FileStore) Path() string { return s.baseDir }

func (s *FileStore) reportPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, r *Report) error {
	if err := errors.ValidateRunID(r.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal report")
	}
	if err := os.WriteFile(s.reportPath(r.ID), data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write report")
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Report, error) {
	if err := errors.ValidateRunID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.reportPath(id), id)
}

func (s *FileStore) read(path, id string) (*Report, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read report")
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "parse report %s", id)
	}
	return &r, nil
}

// List skips files that do not parse.
func (s *FileStore) List(ctx context.Context, limit int) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read report dir")
	}
	var out []*Report
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		r, err := s.read(filepath.Join(s.baseDir, entry.Name()), id)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return newestFirst(out, limit), nil
}

func (s *FileStore) Close(ctx context.Context) error { return nil }

var _ Store = (*FileStore)(nil)
