package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fpgapack/pkg/rescache"
	"github.com/matzehuels/fpgapack/pkg/runstore"
)

// Runner encapsulates pipeline execution with result caching and run
// history recording. Both internal/cli and internal/api use one Runner
// to avoid duplicating that logic (spec §6's shared Options/Result
// contract).
//
// Runner is stateless except for its cache, run store and logger - it
// doesn't retain any one run's result. Multiple goroutines can safely
// share a Runner across concurrent Execute calls.
type Runner struct {
	Cache  rescache.Cache
	Runs   runstore.Store
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and run store. If c is
// nil, a NullCache is used (caching disabled). If runs is nil, run
// history is not recorded.
func NewRunner(c rescache.Cache, runs runstore.Store, logger *log.Logger) *Runner {
	if c == nil {
		c = rescache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Runs: runs, Logger: logger}
}

// Execute runs the complete read → pack → summarize pipeline with
// caching. When a run store is configured it records a run-history entry
// for every run that reaches the pack stage; a read failure or a cache
// hit records none.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	l, err := Read(opts)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	cacheKey := rescache.Key(l.netlistFingerprint, l.archFingerprint, opts.Config)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var result Result
			if err := json.Unmarshal(data, &result); err == nil {
				result.CacheHit = true
				return &result, nil
			}
		}
	}

	run := runstore.NewRun(opts)
	start := time.Now()

	clusters, pc, err := Pack(ctx, l, opts)
	if err != nil {
		run.Finish(runstore.Stats{Duration: time.Since(start)}, err)
		r.recordRun(ctx, run)
		return nil, fmt.Errorf("pack: %w", err)
	}

	result := &Result{
		Clusters:           Summarize(clusters, pc),
		NetlistFingerprint: l.netlistFingerprint,
		ArchFingerprint:    l.archFingerprint,
	}

	run.Finish(runstore.Stats{
		ClustersFinalized: len(clusters),
		Duration:          time.Since(start),
	}, nil)
	r.recordRun(ctx, run)

	if !opts.Refresh {
		if data, err := json.Marshal(result); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, rescache.DefaultTTL)
		}
	}

	r.Logger.Info("packed design",
		"clusters", len(clusters),
		"netlist_fingerprint", l.netlistFingerprint,
	)

	return result, nil
}

func (r *Runner) recordRun(ctx context.Context, run *runstore.Run) {
	if r.Runs == nil {
		return
	}
	if err := r.Runs.Append(ctx, run); err != nil {
		r.Logger.Warn("record run history", "err", err)
	}
}

// applyLogger sets the runner's logger on opts if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Close releases resources held by the runner (the cache and, if
// configured, the run store).
func (r *Runner) Close() error {
	if err := r.Cache.Close(); err != nil {
		return err
	}
	if r.Runs != nil {
		return r.Runs.Close()
	}
	return nil
}
