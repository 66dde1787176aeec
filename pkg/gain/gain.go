// Package gain implements the per-cluster incremental scoring engine
// (spec §4.4, component 4): every time an atom commits to the cluster
// under construction, it walks the atom's incident nets and updates a
// blended gain score for every still-unclustered neighbour, then
// maintains a bounded priority queue the controller's grow loop pops
// from.
//
// Ported from original_source's update_connection_gain_values,
// update_timing_gain_values, mark_and_update_partial_gain and
// update_total_gain (vpr/SRC/pack/cluster.cpp), adapted to this
// module's single-pb-stats-per-cluster-root design: VPR keeps pb_stats
// on every ancestor pb and walks from an atom's immediate parent up to
// the cluster root, but this repo only allocates Stats on the root
// (pkg/pb's Pb.Stats doc comment), so that walk collapses to one
// update of the root's Stats.
package gain

import (
	"sort"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/pb"
	"github.com/matzehuels/fpgapack/pkg/pctx"
)

// relation mirrors e_net_relation_to_clustered_block: whether the net
// being walked is an output or input of the atom that was just
// committed.
type relation int

const (
	relOutput relation = iota
	relInput
)

// TransitiveSource supplies the cross-cluster neighbour lookups needed
// for transitive-fanout exploration (spec §4.4's final paragraph). The
// cluster controller owns the set of finalized clusters and their
// nets_in_lb lists, so it implements this interface rather than gain
// importing the cluster package.
type TransitiveSource interface {
	// TransitiveNeighbors returns unclustered atoms reachable from netID
	// via another finalized cluster's recorded low-fanout nets.
	TransitiveNeighbors(netID atom.NetID) []atom.ID
}

// Engine computes and queues candidate gains for one packer run.
type Engine struct {
	ctx *pctx.Context
}

// New creates an Engine bound to ctx.
func New(ctx *pctx.Context) *Engine {
	return &Engine{ctx: ctx}
}

// CommitAtom updates root's pb-stats to reflect atomID having just been
// placed in the cluster: walks its output, input and clock pins'
// incident nets, marks neighbouring unclustered atoms, and recomputes
// their blended total gain (spec §4.4; VPR's update_cluster_stats).
func (e *Engine) CommitAtom(root *pb.Pb, atomID atom.ID) {
	stats := root.Stats
	if stats == nil {
		return
	}
	a, ok := e.ctx.Netlist.Atom(atomID)
	if !ok {
		return
	}

	for _, p := range a.Ports {
		for _, netID := range p.Nets {
			if netID == atom.NoNet {
				continue
			}
			if p.Dir == arch.Out {
				e.markAndUpdate(stats, netID, atomID, relOutput)
			} else {
				e.markAndUpdate(stats, netID, atomID, relInput)
			}
		}
	}

	e.updateTotalGain(stats)
}

// markAndUpdate is mark_and_update_partial_gain, specialized to a
// single root pb-stats. Global nets (spec §3: "do not participate in
// gain computation") still advance the touch counter so
// num_pins_of_net_in_pb stays accurate, but never mutate a gain map —
// this folds VPR's separate global_clocks GAIN/NO_GAIN toggle into one
// rule keyed off Net.Global, since spec §3 already bans global nets
// from gain computation outright.
func (e *Engine) markAndUpdate(stats *pb.Stats, netID atom.NetID, clusteredAtom atom.ID, rel relation) {
	net, ok := e.ctx.Netlist.Net(netID)
	if !ok {
		return
	}

	if len(net.Sinks) > pb.MaxNetSinksIgnore {
		if !net.Global {
			if stats.TieBreakHighFanoutNet == atom.NoNet || len(net.Sinks) < e.sinkCount(stats.TieBreakHighFanoutNet) {
				stats.TieBreakHighFanoutNet = netID
			}
		}
		return
	}

	firstTouch := stats.NumPinsOfNetInPb[netID] == 0
	if firstTouch {
		stats.MarkedNets = append(stats.MarkedNets, netID)
	}

	if !net.Global {
		if firstTouch {
			for _, sink := range net.Sinks {
				e.markNeighbour(stats, sink.Atom)
			}
			if net.Driver != nil {
				e.markNeighbour(stats, net.Driver.Atom)
			}
		}

		if e.ctx.Config.ConnectionDrivenClustering {
			e.updateConnectionGain(stats, netID, clusteredAtom, rel)
		}
		if e.ctx.Config.TimingDrivenClustering {
			e.updateTimingGain(stats, netID, rel)
		}
	}

	stats.NumPinsOfNetInPb[netID]++
}

func (e *Engine) sinkCount(netID atom.NetID) int {
	if n, ok := e.ctx.Netlist.Net(netID); ok {
		return len(n.Sinks)
	}
	return 0
}

// markNeighbour registers an unclustered atom as sharing a net with the
// cluster, initializing sharinggain/hillgain on first touch (spec
// §4.4).
func (e *Engine) markNeighbour(stats *pb.Stats, a atom.ID) {
	if a == atom.NoAtom || e.ctx.Locations.AtomCluster(a) != atom.NoCluster {
		return
	}
	if _, seen := stats.SharingGain[a]; !seen {
		stats.MarkedAtoms = append(stats.MarkedAtoms, a)
		stats.SharingGain[a] = 1
		if n, ok := e.ctx.Netlist.Atom(a); ok {
			stats.HillGain[a] = 1 - float64(n.NumExtInputs())
		}
		return
	}
	stats.SharingGain[a]++
	stats.HillGain[a]++
}

// updateConnectionGain is update_connection_gain_values.
func (e *Engine) updateConnectionGain(stats *pb.Stats, netID atom.NetID, clusteredAtom atom.ID, rel relation) {
	net, ok := e.ctx.Netlist.Net(netID)
	if !ok {
		return
	}
	clusterID := e.ctx.Locations.AtomCluster(clusteredAtom)

	internal, open, stuck := 0, 0, 0
	for _, pin := range e.ctx.Netlist.NetPins(netID) {
		switch {
		case e.ctx.Locations.AtomCluster(pin.Atom) == clusterID:
			internal++
		case e.ctx.Locations.AtomCluster(pin.Atom) == atom.NoCluster:
			open++
		default:
			stuck++
		}
	}

	denom := float64(open) + 1.5*float64(stuck)

	apply := func(b atom.ID) {
		if _, ok := stats.ConnectionGain[b]; !ok {
			stats.ConnectionGain[b] = 0
		}
		if internal > 1 {
			stats.ConnectionGain[b] -= 1 / (denom + 1 + 0.1)
		}
		stats.ConnectionGain[b] += 1 / (denom + 0.1)
	}

	if rel == relOutput {
		for _, sink := range net.Sinks {
			if e.ctx.Locations.AtomCluster(sink.Atom) == atom.NoCluster {
				apply(sink.Atom)
			}
		}
	} else if net.Driver != nil && e.ctx.Locations.AtomCluster(net.Driver.Atom) == atom.NoCluster {
		apply(net.Driver.Atom)
	}
}

// updateTimingGain is update_timing_gain_values: timinggain[b] becomes
// the maximum setup-pin criticality seen on any incident pin of b.
func (e *Engine) updateTimingGain(stats *pb.Stats, netID atom.NetID, rel relation) {
	net, ok := e.ctx.Netlist.Net(netID)
	if !ok {
		return
	}

	consider := func(b atom.ID, pin atom.PinRef) {
		if e.ctx.Locations.AtomCluster(b) != atom.NoCluster {
			return
		}
		g := e.ctx.Timing.SetupPinCriticality(pin)
		if g > stats.TimingGain[b] {
			stats.TimingGain[b] = g
		}
	}

	if rel == relOutput {
		for _, sink := range net.Sinks {
			consider(sink.Atom, sink)
		}
	} else if net.Driver != nil {
		for _, sink := range net.Sinks {
			consider(net.Driver.Atom, sink)
		}
	}
}

// updateTotalGain is update_total_gain: blends sharing/connection gain
// with timing gain per spec §4.4's formula.
func (e *Engine) updateTotalGain(stats *pb.Stats) {
	alpha, beta := e.ctx.Config.Alpha, e.ctx.Config.Beta
	for _, b := range stats.MarkedAtoms {
		a, ok := e.ctx.Netlist.Atom(b)
		if !ok {
			continue
		}
		usedPins := a.InputPinCount() + a.OutputPinCount()
		if usedPins < 1 {
			usedPins = 1
		}

		var g float64
		if e.ctx.Config.ConnectionDrivenClustering {
			g = ((1-beta)*stats.SharingGain[b] + beta*stats.ConnectionGain[b]) / float64(usedPins)
		} else {
			g = stats.SharingGain[b] / float64(usedPins)
		}
		if e.ctx.Config.TimingDrivenClustering {
			g = alpha*stats.TimingGain[b] + (1-alpha)*g
		}
		stats.Gain[b] = g
	}
}

// InsertFeasible inserts candidate into stats.FeasibleBlocks, maintaining
// ascending order by stats.Gain and capping the array at
// pb.MaxFeasibleBlocks (spec §4.4's bounded priority array and
// insertion sort). A candidate already queued is a no-op; one whose
// gain falls below the current minimum of a full array is dropped.
func (e *Engine) InsertFeasible(stats *pb.Stats, candidate atom.ID) {
	for _, c := range stats.FeasibleBlocks {
		if c == candidate {
			return
		}
	}
	g := stats.Gain[candidate]

	if len(stats.FeasibleBlocks) >= pb.MaxFeasibleBlocks {
		if g <= stats.Gain[stats.FeasibleBlocks[0]] {
			return
		}
		j := 0
		for ; j < len(stats.FeasibleBlocks)-1; j++ {
			if g <= stats.Gain[stats.FeasibleBlocks[j+1]] {
				stats.FeasibleBlocks[j] = candidate
				return
			}
			stats.FeasibleBlocks[j] = stats.FeasibleBlocks[j+1]
		}
		stats.FeasibleBlocks[j] = candidate
		return
	}

	i := sort.Search(len(stats.FeasibleBlocks), func(i int) bool {
		return stats.Gain[stats.FeasibleBlocks[i]] > g
	})
	stats.FeasibleBlocks = append(stats.FeasibleBlocks, atom.NoAtom)
	copy(stats.FeasibleBlocks[i+1:], stats.FeasibleBlocks[i:])
	stats.FeasibleBlocks[i] = candidate
}

// PopBest removes and returns the highest-gain queued candidate, or
// false if the queue is empty.
func (e *Engine) PopBest(stats *pb.Stats) (atom.ID, bool) {
	n := len(stats.FeasibleBlocks)
	if n == 0 {
		return atom.NoAtom, false
	}
	best := stats.FeasibleBlocks[n-1]
	stats.FeasibleBlocks = stats.FeasibleBlocks[:n-1]
	return best, true
}

// BuildCandidates refills stats.FeasibleBlocks from every currently
// marked, still-unclustered atom with at least one valid molecule
// (spec §4.4's normal candidate source; VPR's
// add_molecule_to_pb_stats_candidates driven from the marked-blocks
// list built by CommitAtom).
func (e *Engine) BuildCandidates(stats *pb.Stats) {
	for _, a := range stats.MarkedAtoms {
		if e.ctx.Locations.AtomCluster(a) != atom.NoCluster {
			continue
		}
		if len(e.ctx.Molecules.ValidMoleculesFor(a)) == 0 {
			continue
		}
		e.InsertFeasible(stats, a)
	}
}

// TransitiveCandidates implements spec §4.4's final paragraph: when the
// normal queue and the high-fanout tie-break are both exhausted, scan
// every net marked in this cluster with fewer than
// pb.MaxTransitiveFanoutExplore sinks and pull in unclustered neighbours
// reachable through other finalized clusters, bounded by
// pb.MaxTransitiveExplore.
func (e *Engine) TransitiveCandidates(stats *pb.Stats, src TransitiveSource) []atom.ID {
	var out []atom.ID
	for _, netID := range stats.MarkedNets {
		net, ok := e.ctx.Netlist.Net(netID)
		if !ok || len(net.Sinks) >= pb.MaxTransitiveFanoutExplore {
			continue
		}
		for _, cand := range src.TransitiveNeighbors(netID) {
			if e.ctx.Locations.AtomCluster(cand) != atom.NoCluster {
				continue
			}
			out = append(out, cand)
			if len(out) >= pb.MaxTransitiveExplore {
				return out
			}
		}
	}
	return out
}
