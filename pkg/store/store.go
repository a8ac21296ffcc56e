// Package store persists optimization run reports.
//
// Every pipeline run produces a [Report] identified by a random UUID. The
// CLI writes reports to a [FileStore] under the user's data directory, the
// API server to a [MongoStore] (or a [MemoryStore] when no database is
// configured):
//
//	st, err := store.NewMongoStore(ctx, "mongodb://localhost:27017", "bufferopt")
//	if err != nil {
//		return err
//	}
//	defer st.Close(ctx)
//	err = st.Save(ctx, report)
//
// Get returns an error with code RUN_NOT_FOUND for unknown IDs and
// INVALID_INPUT for IDs that are not UUIDs.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/errors"
)

// Report describes one optimization run.
type Report struct {
	ID        string        `json:"id" bson:"_id"`
	Network   string        `json:"network" bson:"network"`
	Library   string        `json:"library,omitempty" bson:"library,omitempty"`
	Mode      string        `json:"mode" bson:"mode"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	Duration  time.Duration `json:"duration" bson:"duration"`
	CacheHit  bool          `json:"cache_hit" bson:"cache_hit"`
	Stats     buffer.Stats  `json:"stats" bson:"stats"`
}

// NewReport returns a report with a fresh ID stamped with the current time.
func NewReport(network, library string, mode buffer.Mode, stats buffer.Stats) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Network:   network,
		Library:   library,
		Mode:      mode.String(),
		CreatedAt: time.Now().UTC(),
		Stats:     stats,
	}
}

// Store is implemented by report backends. Implementations are safe for
// concurrent use.
type Store interface {
	// Save inserts or replaces r.
	Save(ctx context.Context, r *Report) error

	// Get returns the report with the given ID.
	Get(ctx context.Context, id string) (*Report, error)

	// List returns up to limit reports, newest first. A limit of zero or
	// less returns all of them.
	List(ctx context.Context, limit int) ([]*Report, error)

	Close(ctx context.Context) error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeRunNotFound, "run %s not found", id)
}
