// Package runstore persists Run records (SPEC_FULL.md §3 "(ADDED) Run
// record" / §6 "(ADDED) Run history store"): metadata about one pipeline
// invocation — never packer state — kept for later audit by `fpgapack
// history` and `GET /v1/runs`.
//
// Grounded on the teacher's pkg/session file/store split: a Store
// interface with pluggable backends, a JSON-lines file store for local
// CLI use (the teacher's FileStore, adapted from one-file-per-record to
// one-line-per-record since runs are append-only and listed in bulk), and
// a MongoDB-backed store for shared/production use.
package runstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stats summarizes one run's outcome for the Run record (spec §3 ADDED).
type Stats struct {
	ClustersOpened    int           `json:"clusters_opened"`
	ClustersFinalized int           `json:"clusters_finalized"`
	ClustersDiscarded int           `json:"clusters_discarded"`
	MoleculesPacked   int           `json:"molecules_packed"`
	Duration          time.Duration `json:"duration"`
}

// Run is one pipeline invocation's record.
type Run struct {
	ID         string      `json:"id" bson:"_id"`
	Options    interface{} `json:"options" bson:"options"`
	StartedAt  time.Time   `json:"started_at" bson:"started_at"`
	FinishedAt time.Time   `json:"finished_at" bson:"finished_at"`
	Stats      Stats       `json:"stats" bson:"stats"`
	Outcome    string      `json:"outcome" bson:"outcome"` // "ok" or "error"
	Error      string      `json:"error,omitempty" bson:"error,omitempty"`
}

// NewRun starts a Run record with a fresh UUID and StartedAt set to now.
// Callers fill in Options, then call Finish once the pipeline completes.
func NewRun(opts interface{}) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Options:   opts,
		StartedAt: time.Now(),
	}
}

// Finish records the run's outcome and stats at completion time.
func (r *Run) Finish(stats Stats, err error) {
	r.FinishedAt = time.Now()
	r.Stats = stats
	if err != nil {
		r.Outcome = "error"
		r.Error = err.Error()
		return
	}
	r.Outcome = "ok"
}

// Store is the run-history persistence contract. Records are append-only:
// once written, a Run is never mutated.
type Store interface {
	// Append persists one completed Run record.
	Append(ctx context.Context, run *Run) error

	// List returns every recorded Run, most recent first.
	List(ctx context.Context) ([]*Run, error)

	// Get fetches one Run by ID, or nil if it doesn't exist.
	Get(ctx context.Context, id string) (*Run, error)

	// Close releases any resources (connections, file handles) held by
	// the store.
	Close() error
}
