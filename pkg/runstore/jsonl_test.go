package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

var errFailed = errors.New("pack failed")

func TestJSONLStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.jsonl")

	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	defer store.Close()

	r1 := NewRun(map[string]int{"seed": 1})
	r1.Finish(Stats{ClustersFinalized: 3}, nil)
	r2 := NewRun(map[string]int{"seed": 2})
	r2.Finish(Stats{ClustersFinalized: 5}, nil)

	if err := store.Append(ctx, r1); err != nil {
		t.Fatalf("Append r1: %v", err)
	}
	if err := store.Append(ctx, r2); err != nil {
		t.Fatalf("Append r2: %v", err)
	}

	runs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != r2.ID {
		t.Errorf("List should return most recent first: got %s, want %s", runs[0].ID, r2.ID)
	}
}

func TestJSONLStoreGet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	defer store.Close()

	r := NewRun(nil)
	r.Finish(Stats{}, nil)
	if err := store.Append(ctx, r); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != r.ID {
		t.Fatalf("Get(%s) = %+v, want matching run", r.ID, got)
	}

	missing, err := store.Get(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing != nil {
		t.Error("Get on unknown ID should return nil, nil")
	}
}

func TestJSONLStoreListEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	defer store.Close()

	runs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}

func TestRunFinishRecordsError(t *testing.T) {
	r := NewRun(nil)
	r.Finish(Stats{}, errFailed)
	if r.Outcome != "error" {
		t.Errorf("Outcome = %q, want error", r.Outcome)
	}
	if r.Error != errFailed.Error() {
		t.Errorf("Error = %q, want %q", r.Error, errFailed.Error())
	}
}
