package pipeline

import (
	"fmt"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/netlistio"
	"github.com/matzehuels/fpgapack/pkg/timing"
)

// loaded bundles everything Read produces: the two file-backed
// collaborators plus their fingerprints and the timing source. A supplied
// placement file is read only for digest verification; its records are
// not kept, and the pipeline never seeds packer state from a placement.
type loaded struct {
	netlist            *atom.Netlist
	molecules          *atom.Store
	archView           *arch.View
	netlistFingerprint string
	archFingerprint    string
	timingSource       timing.Source
}

// Read loads the netlist and architecture files named by opts, verifying
// the placement file's provenance header against the netlist fingerprint
// when one is supplied.
func Read(opts Options) (*loaded, error) {
	nl, molecules, netlistFP, err := netlistio.ReadNetlist(opts.NetlistPath)
	if err != nil {
		return nil, fmt.Errorf("read netlist: %w", err)
	}

	av, archFP, err := netlistio.ReadArchitecture(opts.ArchPath)
	if err != nil {
		return nil, fmt.Errorf("read architecture: %w", err)
	}
	netlistio.ResolveChainRootPins(molecules, nl, av)

	if opts.PlacementPath != "" {
		warn := func(msg string) { opts.Logger.Warn(msg) }
		if _, err := netlistio.ReadPlacement(opts.PlacementPath, netlistFP, opts.VerifyDigests, warn); err != nil {
			return nil, fmt.Errorf("read placement: %w", err)
		}
	}

	ts, err := loadTimingSource(opts, nl)
	if err != nil {
		return nil, fmt.Errorf("load timing source: %w", err)
	}

	return &loaded{
		netlist:            nl,
		molecules:          molecules,
		archView:           av,
		netlistFingerprint: netlistFP,
		archFingerprint:    archFP,
		timingSource:       ts,
	}, nil
}

// loadTimingSource returns a timing.Zero source unless opts both requests
// timing-driven clustering and names a criticality file, in which case it
// loads a timing.Static table (spec §4.8).
func loadTimingSource(opts Options, nl *atom.Netlist) (timing.Source, error) {
	if !opts.Config.TimingDrivenClustering || opts.TimingPath == "" {
		return timing.Zero{}, nil
	}
	return netlistio.ReadTimingTable(opts.TimingPath, nl)
}
