// Package cluster implements the cluster controller (spec §4.7,
// component 7): the top-level loop that opens one cluster at a time,
// grows it by gain until no candidate remains, finalizes it through the
// external router, and discards and retries on a finalize failure.
package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/gain"
	"github.com/matzehuels/fpgapack/pkg/observability"
	"github.com/matzehuels/fpgapack/pkg/pb"
	"github.com/matzehuels/fpgapack/pkg/pctx"
	"github.com/matzehuels/fpgapack/pkg/perr"
	"github.com/matzehuels/fpgapack/pkg/placement"
	"github.com/matzehuels/fpgapack/pkg/router"
	"github.com/matzehuels/fpgapack/pkg/seed"
	"github.com/matzehuels/fpgapack/pkg/trypack"
)

// MaxHighFanoutExplore is MAX_HIGH_FANOUT_EXPLORE (spec §4.4, §8
// scenario 6): once the strong-neighbour queue is exhausted, the grow
// loop samples at most this many sinks of the cluster's tie-break
// high-fanout net before moving on to transitive exploration.
const MaxHighFanoutExplore = 10

// Cluster is one finalized CLB (spec §3): its chosen block type, its pb
// tree's arena, and the low-fanout nets recorded for other clusters'
// transitive-fanout exploration (spec §4.7 step 5).
type Cluster struct {
	ID        atom.ClusterID
	Name      string
	BlockType string
	Arena     *pb.Arena
	RootRef   pb.Ref
	NetsInLB  []atom.NetID
}

// Controller runs the packer's top-level loop (spec §4.7) against one
// packer context.
type Controller struct {
	ctx     *pctx.Context
	seed    *seed.Selector
	gain    *gain.Engine
	trypack *trypack.Engine

	clusters []*Cluster
}

// New creates a Controller. Every collaborator (seed selector, gain
// engine, try-pack engine) is built fresh over ctx.
func New(ctx *pctx.Context) *Controller {
	return &Controller{
		ctx:     ctx,
		seed:    seed.New(ctx),
		gain:    gain.New(ctx),
		trypack: trypack.New(ctx),
	}
}

// Run packs every atom in the netlist into clusters, returning them in
// open order, or the first fatal error encountered (spec §4.7).
func (c *Controller) Run(ctx context.Context) ([]*Cluster, error) {
	start := time.Now()
	observability.Pack().OnRunStart(ctx, len(c.ctx.Netlist.Atoms()))

	clusters, err := c.run(ctx)
	observability.Pack().OnRunComplete(ctx, len(clusters), time.Since(start), err)
	return clusters, err
}

func (c *Controller) run(ctx context.Context) ([]*Cluster, error) {
	for {
		seedMolecule, ok := c.seed.Next()
		if !ok {
			break
		}
		mark := c.seed.Mark()
		cl, err := c.buildCluster(ctx, seedMolecule, mark)
		if err != nil {
			return nil, err
		}
		c.clusters = append(c.clusters, cl)
	}

	if err := c.checkClocks(); err != nil {
		return nil, err
	}
	if err := c.checkInvariants(); err != nil {
		return nil, err
	}
	return c.clusters, nil
}

// buildCluster opens, grows and finalizes one cluster around
// seedMolecule, first under the end-of-cluster routing policy and, if
// that finalize fails, discarding and retrying the whole cluster under
// the slower per-atom policy (spec §4.7 step 4).
func (c *Controller) buildCluster(ctx context.Context, seedMolecule *atom.Molecule, seedMark int) (*Cluster, error) {
	for _, policy := range []router.Policy{router.AtEndOnly, router.PerAtom} {
		cl, ok, err := c.tryBuildCluster(ctx, seedMolecule, policy)
		if err != nil {
			return nil, err
		}
		if ok {
			return cl, nil
		}
		c.seed.Restore(seedMark)
	}
	return nil, perr.New(perr.PackError, "cluster around seed molecule %d failed to finalize under both routing policies", seedMolecule.ID)
}

// tryBuildCluster opens a cluster, growing it with policy's routing
// discipline. It reports ok=false (with all state already rolled back)
// when the end-of-cluster finalize route fails, and returns a PackError
// when no block type/mode accepts the seed.
func (c *Controller) tryBuildCluster(ctx context.Context, seedMolecule *atom.Molecule, policy router.Policy) (*Cluster, bool, error) {
	clusterID := atom.ClusterID(len(c.clusters))
	start := time.Now()
	observability.Pack().OnClusterOpen(ctx, seedMolecule.Pattern)

	for _, root := range c.ctx.Arch.Roots() {
		arena := pb.NewArena()
		rootRef := arena.Alloc(root, pb.NoRef)
		rootPb := arena.Get(rootRef)
		stats := placement.NewStats(c.ctx.Arch)

		numModes := root.PbType.NumModes()
		if numModes == 0 {
			numModes = 1
		}
		for mode := 0; mode < numModes; mode++ {
			stats.Reset(root)
			if root.PbType.NumModes() > 0 {
				stats.SetMode(root, mode)
			}
			rootPb.Mode = mode
			rootPb.Stats = pb.NewStats()

			routerData := c.ctx.Router.AllocAndLoad(root.PbType.Name)
			status := c.trypack.TryPackMolecule(arena, rootRef, clusterID, stats, seedMolecule, policy, routerData)
			if status != trypack.Passed {
				c.ctx.Router.FreeRouterData(routerData)
				continue
			}

			placed := append([]atom.ID{}, seedMolecule.Atoms()...)
			for _, a := range placed {
				c.gain.CommitAtom(rootPb, a)
			}

			c.growCluster(ctx, arena, rootRef, clusterID, stats, rootPb, policy, routerData, &placed)

			if policy == router.AtEndOnly {
				if !c.ctx.Router.TryIntraLbRoute(routerData) {
					c.ctx.Router.FreeRouterData(routerData)
					c.discardCluster(placed)
					observability.Pack().OnClusterDiscard(ctx, len(placed), "end-of-cluster route failed")
					return nil, false, nil
				}
			}

			cl := c.finalize(clusterID, arena, rootRef, rootPb, placed)
			c.ctx.Router.FreeRouterData(routerData)
			observability.Pack().OnClusterFinalize(ctx, len(placed), time.Since(start))
			return cl, true, nil
		}
	}

	return nil, false, perr.New(perr.PackError, "no block type can host seed molecule %d", seedMolecule.ID)
}

// growCluster repeatedly picks the best candidate molecule by gain
// (spec §4.4's three progressive sources plus the optional unrelated
// fetch) and try-packs it, continuing regardless of failure status
// until no candidate source yields anything more (spec §4.7 step 3).
func (c *Controller) growCluster(ctx context.Context, arena *pb.Arena, rootRef pb.Ref, clusterID atom.ClusterID, stats *placement.Stats, rootPb *pb.Pb, policy router.Policy, routerData router.Data, placed *[]atom.ID) {
	pbStats := rootPb.Stats
	c.gain.BuildCandidates(pbStats)

	for {
		candidateAtom, ok := c.gain.PopBest(pbStats)
		if !ok {
			candidateAtom, ok = c.nextHighFanoutCandidate(pbStats)
		}
		if !ok {
			candidateAtom, ok = c.nextTransitiveCandidate(pbStats)
		}
		if !ok {
			if !c.ctx.Config.AllowUnrelatedClustering {
				return
			}
			candidateAtom, ok = c.nextUnrelatedCandidate(stats)
		}
		if !ok {
			return
		}

		m := c.bestMoleculeFor(candidateAtom)
		if m == nil {
			continue
		}

		status := c.trypack.TryPackMolecule(arena, rootRef, clusterID, stats, m, policy, routerData)
		if status != trypack.Passed {
			continue
		}

		for _, a := range m.Atoms() {
			*placed = append(*placed, a)
			c.gain.CommitAtom(rootPb, a)
		}
		observability.Pack().OnClusterGrow(ctx, len(*placed))
		c.gain.BuildCandidates(pbStats)
	}
}

// nextHighFanoutCandidate samples up to MaxHighFanoutExplore sinks of
// pbStats's tie-break high-fanout net (spec §8 scenario 6), clearing the
// field once it has been used.
func (c *Controller) nextHighFanoutCandidate(pbStats *pb.Stats) (atom.ID, bool) {
	netID := pbStats.TieBreakHighFanoutNet
	if netID == atom.NoNet {
		return atom.NoAtom, false
	}
	defer func() { pbStats.TieBreakHighFanoutNet = atom.NoNet }()

	net, ok := c.ctx.Netlist.Net(netID)
	if !ok {
		return atom.NoAtom, false
	}
	explored := 0
	for _, sink := range net.Sinks {
		if explored >= MaxHighFanoutExplore {
			break
		}
		explored++
		if c.ctx.Locations.AtomCluster(sink.Atom) == atom.NoCluster && len(c.ctx.Molecules.ValidMoleculesFor(sink.Atom)) > 0 {
			return sink.Atom, true
		}
	}
	return atom.NoAtom, false
}

// nextTransitiveCandidate is spec §4.4's final progressive source.
func (c *Controller) nextTransitiveCandidate(pbStats *pb.Stats) (atom.ID, bool) {
	cands := c.gain.TransitiveCandidates(pbStats, c)
	if len(cands) == 0 {
		return atom.NoAtom, false
	}
	return cands[0], true
}

// nextUnrelatedCandidate is the "unrelated clustering" fallback (spec
// §4.7 step 3): the largest-num_ext_inputs unclustered atom that still
// fits a free primitive, capped at unclustered_list_head_size - 1 atoms
// examined (spec §8's boundary behaviour), here taken as a sample of
// MaxHighFanoutExplore*3 eligible atoms in the netlist's stable atom order.
func (c *Controller) nextUnrelatedCandidate(stats *placement.Stats) (atom.ID, bool) {
	best := atom.NoAtom
	bestInputs := -1
	examined := 0
	for _, a := range c.ctx.Netlist.Atoms() {
		if c.ctx.Locations.AtomCluster(a.ID) != atom.NoCluster {
			continue
		}
		if len(c.ctx.Molecules.ValidMoleculesFor(a.ID)) == 0 {
			continue
		}
		if !stats.ExistsFreePrimitiveForAtom(a) {
			continue
		}
		examined++
		if a.NumExtInputs() > bestInputs {
			bestInputs = a.NumExtInputs()
			best = a.ID
		}
		if examined >= MaxHighFanoutExplore*3 {
			break
		}
	}
	return best, best != atom.NoAtom
}

// bestMoleculeFor returns the highest-BaseGain still-valid molecule
// containing atomID, or nil if none remain.
func (c *Controller) bestMoleculeFor(atomID atom.ID) *atom.Molecule {
	molecules := c.ctx.Molecules.ValidMoleculesFor(atomID)
	if len(molecules) == 0 {
		return nil
	}
	best := molecules[0]
	for _, m := range molecules[1:] {
		if m.BaseGain > best.BaseGain {
			best = m
		}
	}
	return best
}

// TransitiveNeighbors implements gain.TransitiveSource: any unclustered
// atom touching netID is a transitive candidate once netID has been
// recorded in some already-finalized cluster's nets_in_lb list (spec
// §4.7 step 5).
func (c *Controller) TransitiveNeighbors(netID atom.NetID) []atom.ID {
	recorded := false
	for _, cl := range c.clusters {
		for _, n := range cl.NetsInLB {
			if n == netID {
				recorded = true
				break
			}
		}
		if recorded {
			break
		}
	}
	if !recorded {
		return nil
	}

	var out []atom.ID
	for _, p := range c.ctx.Netlist.NetPins(netID) {
		if c.ctx.Locations.AtomCluster(p.Atom) == atom.NoCluster {
			out = append(out, p.Atom)
		}
	}
	return out
}

// finalize commits a successfully routed cluster: names it, records its
// nets_in_lb list, and frees its pb-stats (spec §4.7 step 5).
func (c *Controller) finalize(clusterID atom.ClusterID, arena *pb.Arena, rootRef pb.Ref, rootPb *pb.Pb, placed []atom.ID) *Cluster {
	cl := &Cluster{
		ID:        clusterID,
		Name:      fmt.Sprintf("cb.%s", rootPb.Name),
		BlockType: rootPb.Graph.PbType.Name,
		Arena:     arena,
		RootRef:   rootRef,
		NetsInLB:  c.netsInLB(rootPb.Stats),
	}
	rootPb.Stats = nil
	return cl
}

// netsInLB collects every marked net in stats with fewer sinks than
// pb.MaxTransitiveFanoutExplore, bounded by the same constant (spec
// §4.7 step 5).
func (c *Controller) netsInLB(stats *pb.Stats) []atom.NetID {
	var out []atom.NetID
	for _, netID := range stats.MarkedNets {
		net, ok := c.ctx.Netlist.Net(netID)
		if !ok || len(net.Sinks) >= pb.MaxTransitiveFanoutExplore {
			continue
		}
		out = append(out, netID)
		if len(out) >= pb.MaxTransitiveFanoutExplore {
			break
		}
	}
	return out
}

// discardCluster rolls back every atom placed so far in a cluster that
// failed to finalize: unmaps atom↔cluster and atom↔pb, then revalidates
// any molecule all of whose atoms are free again (spec §4.7 step 4).
func (c *Controller) discardCluster(placed []atom.ID) {
	for _, a := range placed {
		c.ctx.Locations.SetAtomCluster(a, atom.NoCluster)
		c.ctx.Locations.SetAtomPb(a, atom.NoPb)
	}
	c.ctx.Molecules.RevalidateAtoms(placed, func(a atom.ID) bool {
		return c.ctx.Locations.AtomCluster(a) == atom.NoCluster
	})
}

// checkClocks is check_clocks (spec §9's open question): forbids a
// global clock net from fanning into a non-clock (combinational or
// data) input pin anywhere in the packed clusters.
func (c *Controller) checkClocks() error {
	for _, net := range c.ctx.Netlist.Nets() {
		if !net.Global {
			continue
		}
		for _, sink := range net.Sinks {
			a, ok := c.ctx.Netlist.Atom(sink.Atom)
			if !ok {
				continue
			}
			port, ok := a.PortByName(sink.Port)
			if !ok {
				continue
			}
			if port.Class != "clock" {
				return perr.New(perr.PackError, "global net %d fans into non-clock input %s.%s[%d]", net.ID, a.Name, sink.Port, sink.Bit)
			}
		}
	}
	return nil
}

// checkInvariants verifies spec §4.7's three final invariants over
// every atom in the netlist.
func (c *Controller) checkInvariants() error {
	for _, a := range c.ctx.Netlist.Atoms() {
		clusterID := c.ctx.Locations.AtomCluster(a.ID)
		if clusterID == atom.NoCluster {
			return perr.New(perr.PackError, "atom %s was never clustered", a.Name)
		}

		pbRef := c.ctx.Locations.AtomPb(a.ID)
		if pbRef == atom.NoPb {
			return perr.New(perr.PackError, "atom %s has a cluster but no pb", a.Name)
		}
		back, ok := c.ctx.Locations.PbAtom(pbRef)
		if !ok || back != a.ID {
			return perr.New(perr.PackError, "pb_atom(atom_pb(%s)) != %s", a.Name, a.Name)
		}

		cl := c.clusterByID(clusterID)
		if cl == nil {
			return perr.New(perr.PackError, "atom %s references unknown cluster %d", a.Name, clusterID)
		}
		ref := pb.Ref(pbRef)
		reachedRoot := false
		for ref != pb.NoRef {
			if ref == cl.RootRef {
				reachedRoot = true
				break
			}
			ref = cl.Arena.Get(ref).Parent
		}
		if !reachedRoot {
			return perr.New(perr.PackError, "atom %s's pb does not reach cluster %d's root", a.Name, clusterID)
		}
	}
	return nil
}

func (c *Controller) clusterByID(id atom.ClusterID) *Cluster {
	for _, cl := range c.clusters {
		if cl.ID == id {
			return cl
		}
	}
	return nil
}
