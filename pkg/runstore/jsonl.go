package runstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLStore is a file-based run-history store for CLI/local use: every
// Run is appended as one JSON object per line, following the teacher's
// session.FileStore convention of a config-directory-backed store, adapted
// from one-file-per-record to one-line-per-record since runs are
// append-only and always listed in bulk rather than looked up
// individually at high frequency.
type JSONLStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONLStore opens (creating if necessary) a JSON-lines run-history
// file at path. If path is empty, it defaults to
// ~/.config/fpgapack/runs.jsonl, mirroring session.NewFileStore's default.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		path = filepath.Join(home, ".config", "fpgapack", "runs.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create run-history dir: %w", err)
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) Append(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open run-history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

func (s *JSONLStore) List(ctx context.Context) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open run-history file: %w", err)
	}
	defer f.Close()

	var runs []*Run
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var run Run
		if err := json.Unmarshal(line, &run); err != nil {
			continue
		}
		runs = append(runs, &run)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan run-history file: %w", err)
	}

	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}

func (s *JSONLStore) Get(ctx context.Context, id string) (*Run, error) {
	runs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *JSONLStore) Close() error { return nil }

var _ Store = (*JSONLStore)(nil)
