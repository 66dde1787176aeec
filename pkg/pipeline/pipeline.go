// Package pipeline provides the complete read → pack → summarize pipeline
// that internal/cli and internal/api both drive, mirroring the teacher's
// "one Options/Result contract shared by CLI, API and worker" design
// (SPEC_FULL.md §1, §6's (ADDED) HTTP API note).
//
// # Architecture
//
// The pipeline has three stages:
//
//  1. Read: load the atom netlist and architecture view from disk
//     (pkg/netlistio), each producing a content fingerprint.
//  2. Pack: run the cluster controller (pkg/cluster) over the loaded
//     netlist/architecture/config.
//  3. Summarize: reduce the in-memory Cluster arenas to a serializable
//     ClusterSummary slice suitable for caching, JSON output and the
//     run-history store.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, runs, logger)
//	opts := pipeline.Options{NetlistPath: "design.json", ArchPath: "arch.json"}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Clusters)
package pipeline

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fpgapack/pkg/pctx"
)

// Options configures one pipeline invocation. It is JSON-serializable so
// internal/api can accept it as a request body.
type Options struct {
	NetlistPath string `json:"netlist_path"`
	ArchPath    string `json:"arch_path"`

	// PlacementPath, if set, is checked against NetlistFingerprint via
	// VerifyDigests once the netlist is loaded (spec §6's
	// verify_file_digests); the pipeline itself never reads placement
	// coordinates back into packer state.
	PlacementPath string `json:"placement_path,omitempty"`
	VerifyDigests bool   `json:"verify_digests,omitempty"`

	// TimingPath, if set, loads a timing.Static criticality table from a
	// JSON file; otherwise a timing.Zero source is used (spec §4.8).
	TimingPath string `json:"timing_path,omitempty"`

	Config pctx.Config `json:"config"`

	// Refresh bypasses the result cache even if a matching entry exists.
	Refresh bool `json:"refresh,omitempty"`

	// Logger is not serialized; defaults to a discarding logger.
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains one pipeline run's output.
type Result struct {
	Clusters           []ClusterSummary `json:"clusters"`
	NetlistFingerprint string           `json:"netlist_fingerprint"`
	ArchFingerprint    string           `json:"arch_fingerprint"`
	CacheHit           bool             `json:"cache_hit"`
}

// ClusterSummary is the serializable projection of one cluster.Cluster:
// enough to report, cache and audit without keeping its pb arena alive.
type ClusterSummary struct {
	Name      string   `json:"name"`
	BlockType string   `json:"block_type"`
	Atoms     []string `json:"atoms"`
}

// ValidateAndSetDefaults checks required fields and fills in defaults.
// Idempotent, matching the teacher's Options.ValidateAndSetDefaults
// convention.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.NetlistPath == "" {
		return fmt.Errorf("netlist_path is required")
	}
	if o.ArchPath == "" {
		return fmt.Errorf("arch_path is required")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	var zero pctx.Config
	if o.Config == zero {
		o.Config = pctx.DefaultConfig()
	}
	o.validated = true
	return nil
}
