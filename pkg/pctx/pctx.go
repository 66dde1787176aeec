// Package pctx wires together the read-only collaborators and
// configuration every other packer component needs, the way the
// teacher's pipeline wires a context.Context carrying a logger through
// its stages — except the packer's shared state is data, not a
// cancellation signal, so it is passed as an explicit struct instead.
package pctx

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/router"
	"github.com/matzehuels/fpgapack/pkg/timing"
)

// SeedPolicy selects the seed selector's atom-ordering heuristic (spec
// §4.5).
type SeedPolicy string

const (
	MaxInputs SeedPolicy = "max_inputs"
	Timing    SeedPolicy = "timing"
	Blend     SeedPolicy = "blend"
)

// Config holds the packer's tunables, one field per CLI flag listed in
// spec §6.
type Config struct {
	Seed                     int64
	ClusterSeed              SeedPolicy
	Alpha                    float64
	Beta                     float64
	AllowUnrelatedClustering bool
	ConnectionDrivenClustering bool
	TimingDrivenClustering   bool
	InterClusterNetDelay     float64
}

// DefaultConfig returns VPR's documented defaults for the flags spec §6
// enumerates.
func DefaultConfig() Config {
	return Config{
		Seed:                       1,
		ClusterSeed:                Blend,
		Alpha:                      0.75,
		Beta:                       0.9,
		AllowUnrelatedClustering:   true,
		ConnectionDrivenClustering: true,
		TimingDrivenClustering:     true,
		InterClusterNetDelay:       1.0,
	}
}

// RouterFactory creates a fresh router.Router for one packing run. Most
// callers pass a closure that returns a singleton; it exists as a factory
// so tests can hand out a differently-configured router.Fake per run.
type RouterFactory func() router.Router

// Context bundles every read-only collaborator and mutable cross-cutting
// resource the packer components share, plus the per-pb-id allocator
// (spec §9: pbs are keyed by non-owning arena index, allocated by
// whichever component first needs the slot).
type Context struct {
	Netlist   *atom.Netlist
	Molecules *atom.Store
	Arch      *arch.View
	Locations *atom.Locations
	Timing    timing.Source
	Router    router.Router
	Config    Config
	Log       *log.Logger

	nextPbID int
}

// New creates a Context. logger may be nil, in which case a discarding
// logger is installed so callers never need a nil check.
func New(nl *atom.Netlist, molecules *atom.Store, av *arch.View, loc *atom.Locations, ts timing.Source, r router.Router, cfg Config, logger *log.Logger) *Context {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Context{
		Netlist:   nl,
		Molecules: molecules,
		Arch:      av,
		Locations: loc,
		Timing:    ts,
		Router:    r,
		Config:    cfg,
		Log:       logger,
	}
}

// AllocPbID returns a fresh, process-unique pb identifier for a new
// arena slot. IDs only ever increase; they are never reused even across
// discarded clusters, so a stale reference is always distinguishable
// from a live one by comparison against the arena that minted it.
func (c *Context) AllocPbID() int {
	id := c.nextPbID
	c.nextPbID++
	return id
}
