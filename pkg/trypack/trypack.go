// Package trypack implements try_pack_molecule and its recursive
// descent (spec §4.6, component 6): the single transactional primitive
// every cluster mutation goes through. A call either fully commits a
// molecule or leaves every piece of shared state exactly as it found
// it.
package trypack

import (
	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/pb"
	"github.com/matzehuels/fpgapack/pkg/pctx"
	"github.com/matzehuels/fpgapack/pkg/placement"
	"github.com/matzehuels/fpgapack/pkg/router"
)

// Status is the outcome of a try-pack attempt (spec §4.6).
type Status int

const (
	Passed Status = iota
	FailedFeasible
	FailedRoute
	FailedBlockPack
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "PASSED"
	case FailedFeasible:
		return "FAILED_FEASIBLE"
	case FailedRoute:
		return "FAILED_ROUTE"
	case FailedBlockPack:
		return "FAILED_BLOCK_PACK"
	default:
		return "UNKNOWN"
	}
}

// Engine runs try_pack_molecule against one packer context.
type Engine struct {
	ctx *pctx.Context
}

// New creates an Engine.
func New(ctx *pctx.Context) *Engine {
	return &Engine{ctx: ctx}
}

// TryPackMolecule attempts to place every atom of m into clusterID's
// cluster, rooted at rootRef, trying successive candidate primitive
// assignments from stats until one succeeds or none remain (spec
// §4.6).
func (e *Engine) TryPackMolecule(arena *pb.Arena, rootRef pb.Ref, clusterID atom.ClusterID, stats *placement.Stats, m *atom.Molecule, policy router.Policy, routerData router.Data) Status {
	for {
		primitives, ok := stats.GetNextPrimitiveList(m, e.ctx.Netlist)
		if !ok {
			return FailedFeasible
		}

		atoms := m.Atoms()
		placed := make([]atom.ID, 0, len(atoms))
		status := Passed

		for i, aid := range atoms {
			chainRootPin := m.ChainRootPin
			isChainRoot := m.IsChain && i == m.RootSlot
			if !isChainRoot {
				chainRootPin = nil
			}
			status = e.placeAtomRecursive(arena, rootRef, clusterID, primitives[i], aid, isChainRoot, chainRootPin, routerData)
			if status != Passed {
				break
			}
			placed = append(placed, aid)
		}

		if status == Passed {
			if !e.checkLookahead(arena, rootRef, clusterID, primitives, atoms) {
				status = FailedFeasible
			}
		}

		if status == Passed && policy == router.PerAtom {
			if !e.ctx.Router.TryIntraLbRoute(routerData) {
				status = FailedRoute
			}
		}

		if status == Passed {
			e.commit(arena, rootRef, stats, m, primitives, atoms)
			return Passed
		}

		for i := len(placed) - 1; i >= 0; i-- {
			e.ctx.Router.RemoveAtomFromTarget(routerData, placed[i])
			e.revertPlaceAtom(arena, rootRef, placed[i])
		}
	}
}

// placeAtomRecursive is try_place_atom_block_rec: walks from target up
// to root, lazily allocating parent pbs, then runs primitive
// feasibility once it reaches the leaf.
func (e *Engine) placeAtomRecursive(arena *pb.Arena, rootRef pb.Ref, clusterID atom.ClusterID, target *arch.PbGraphNode, atomID atom.ID, isChainRoot bool, chainRootPin *arch.PbGraphPin, routerData router.Data) Status {
	root := arena.Get(rootRef)
	a, ok := e.ctx.Netlist.Atom(atomID)
	if !ok {
		return FailedBlockPack
	}
	if root.Name == "" {
		root.Name = a.Name
	}

	var chain []*arch.PbGraphNode
	for n := target; n != nil && n != root.Graph; n = n.Parent {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	curRef := rootRef
	for _, node := range chain {
		curPb := arena.Get(curRef)
		mode, childType, instance, ok := findChildPosition(curPb.Graph, node)
		if !ok {
			return FailedBlockPack
		}
		childRef := curPb.Children[mode][childType][instance]
		if childRef == pb.NoRef {
			childRef = arena.Alloc(node, curRef)
			curPb.Children[mode][childType][instance] = childRef
		}
		if curPb.Name == "" {
			curPb.Name = a.Name
			curPb.Mode = mode
		}
		curRef = childRef
	}

	leaf := arena.Get(curRef)
	leaf.Name = a.Name
	e.ctx.Locations.SetAtomCluster(atomID, clusterID)
	e.ctx.Locations.SetAtomPb(atomID, atom.PbRef(curRef))

	e.ctx.Router.AddAtomAsTarget(routerData, atomID)

	if !primitiveFeasible(a, leaf.Graph.PbType) {
		return FailedFeasible
	}
	if leaf.Graph.PbType.Class == arch.MemoryClass {
		if sibling, ok := e.memorySibling(arena, leaf.Graph, curRef); ok && !memorySiblingFeasible(a, sibling) {
			return FailedFeasible
		}
	}

	if isChainRoot && chainRootPin != nil {
		if chainFeasible := e.chainRootFeasible(a, leaf.Graph, chainRootPin); !chainFeasible {
			return FailedFeasible
		}
	}

	return Passed
}

// chainRootFeasible rejects a placement where the chain's root atom
// drives a connected net on its chain port but lands on a pb-graph node
// other than chain_root_pin's parent — the chain would silently cross a
// cluster boundary (spec §4.6 step 3).
func (e *Engine) chainRootFeasible(a *atom.Atom, target *arch.PbGraphNode, chainRootPin *arch.PbGraphPin) bool {
	port, ok := a.PortByName(chainRootPin.Port.Name)
	if !ok {
		return true
	}
	if chainRootPin.Bit >= len(port.Nets) || port.Nets[chainRootPin.Bit] == atom.NoNet {
		return true
	}
	return target == chainRootPin.Node
}

// memorySibling returns an already-placed sibling atom under the same
// parent and mode slot (a different instance of the same memory-class
// primitive type), if one exists.
func (e *Engine) memorySibling(arena *pb.Arena, target *arch.PbGraphNode, leafRef pb.Ref) (*atom.Atom, bool) {
	if target.Parent == nil {
		return nil, false
	}
	parentPb := arena.Get(e.findParentRef(arena, leafRef))
	if parentPb == nil {
		return nil, false
	}
	mode, childType, _, ok := findChildPosition(parentPb.Graph, target)
	if !ok {
		return nil, false
	}
	for _, siblingRef := range parentPb.Children[mode][childType] {
		if siblingRef == leafRef || siblingRef == pb.NoRef {
			continue
		}
		sib := arena.Get(siblingRef)
		if sib.Name == "" {
			continue
		}
		siblingAtomID, ok := e.ctx.Locations.PbAtom(atom.PbRef(siblingRef))
		if !ok {
			continue
		}
		sa, ok := e.ctx.Netlist.Atom(siblingAtomID)
		if !ok {
			continue
		}
		return sa, true
	}
	return nil, false
}

func (e *Engine) findParentRef(arena *pb.Arena, ref pb.Ref) pb.Ref {
	return arena.Get(ref).Parent
}

// primitiveFeasible is primitive_type_feasible: the atom's model must
// match the target primitive's model.
func primitiveFeasible(a *atom.Atom, t *arch.PbType) bool {
	return a.Model == t.Model
}

// memorySiblingFeasible is primitive_memory_sibling_feasible: every
// non-data port-pin of a must match sibling's net on that pin,
// including both being disconnected (spec §4.6 step 3).
func memorySiblingFeasible(a, sibling *atom.Atom) bool {
	for _, p := range a.Ports {
		if p.Class == "data" {
			continue
		}
		sp, ok := sibling.PortByName(p.Name)
		if !ok {
			return false
		}
		for bit, net := range p.Nets {
			var sNet atom.NetID = atom.NoNet
			if bit < len(sp.Nets) {
				sNet = sp.Nets[bit]
			}
			if net != sNet {
				return false
			}
		}
	}
	return true
}

func findChildPosition(parent *arch.PbGraphNode, node *arch.PbGraphNode) (mode, childType, instance int, ok bool) {
	for m, byType := range parent.Children {
		for ct, insts := range byType {
			for i, n := range insts {
				if n == node {
					return m, ct, i, true
				}
			}
		}
	}
	return 0, 0, 0, false
}

// checkLookahead recomputes speculative pin usage for the cluster root
// (spec §4.6 step 4, try_update_lookahead_pins_used) and reports
// whether every boundary pin class stays within capacity. A net that is
// fully absorbed inside the cluster — every one of its pins reachable
// from the other end purely through internal wiring — never touches a
// pin class at all, matching net_sinks_reachable_in_cluster. Ancestor
// pb-level bookkeeping is collapsed to the cluster root's boundary
// pins, the constraint that actually governs whether a molecule still
// fits the CLB once architecture-XML pack patterns (out of scope, spec
// §1) aren't driving per-level pin classes.
func (e *Engine) checkLookahead(arena *pb.Arena, rootRef pb.Ref, clusterID atom.ClusterID, primitives []*arch.PbGraphNode, atoms []atom.ID) bool {
	root := arena.Get(rootRef)
	stats := root.Stats
	if stats == nil {
		return true
	}
	stats.ResetLookahead()

	for i, target := range primitives {
		a, ok := e.ctx.Netlist.Atom(atoms[i])
		if !ok {
			continue
		}
		for _, p := range a.Ports {
			for bit, netID := range p.Nets {
				if netID == atom.NoNet {
					continue
				}
				pin := findGraphPin(target, p.Name, bit)
				if pin == nil {
					continue
				}
				e.markLookahead(stats, arena, root, clusterID, pin, netID)
			}
		}
	}

	for class, nets := range stats.LookaheadInputPinsUsed {
		if len(nets) > e.pinClassCapacity(root.Graph, class, arch.In) {
			return false
		}
	}
	for class, nets := range stats.LookaheadOutputPinsUsed {
		if len(nets) > e.pinClassCapacity(root.Graph, class, arch.Out) {
			return false
		}
	}
	return true
}

func findGraphPin(node *arch.PbGraphNode, portName string, bit int) *arch.PbGraphPin {
	for _, p := range node.AllPins() {
		if p.Port.Name == portName && p.Bit == bit {
			return p
		}
	}
	return nil
}

func (e *Engine) pinClassCapacity(root *arch.PbGraphNode, portIndex int, dir arch.PortDir) int {
	n := 0
	pins := root.InputPins
	if dir == arch.Out {
		pins = root.OutputPins
	}
	for _, p := range pins {
		if p.PortIndex == portIndex {
			n++
		}
	}
	return n
}

// markLookahead is try_update_lookahead_pins_used's per-pin body: find
// pin's ancestor at the cluster root's boundary and record the net
// there, unless the net is already fully absorbed inside the cluster.
func (e *Engine) markLookahead(stats *pb.Stats, arena *pb.Arena, root *pb.Pb, clusterID atom.ClusterID, pin *arch.PbGraphPin, netID atom.NetID) {
	depth := pin.Node.Depth - root.Graph.Depth
	ancestor, ok := e.ctx.Arch.AncestorPin(pin, depth)
	if !ok {
		return
	}
	net, ok := e.ctx.Netlist.Net(netID)
	if !ok {
		return
	}

	if pin.Dir == arch.In || pin.Dir == arch.Clock {
		if e.driverReachesInternally(arena, clusterID, net, root) {
			return
		}
		stats.AddLookaheadInput(ancestor.PortIndex, netID)
		return
	}

	if e.netFullyAbsorbed(arena, clusterID, net, ancestor) {
		return
	}
	stats.AddLookaheadOutput(ancestor.PortIndex, netID)
}

// atomPortPin returns the leaf-level graph pin atomID currently
// occupies for (port, bit), or false if atomID isn't placed yet.
func (e *Engine) atomPortPin(arena *pb.Arena, atomID atom.ID, port string, bit int) (*arch.PbGraphPin, bool) {
	ref := e.ctx.Locations.AtomPb(atomID)
	if ref == atom.NoPb {
		return nil, false
	}
	p := arena.Get(pb.Ref(ref))
	if p == nil {
		return nil, false
	}
	pin := findGraphPin(p.Graph, port, bit)
	return pin, pin != nil
}

// driverReachesInternally reports whether net's driver is already
// committed inside clusterID and the net is fully absorbed from there
// (net_sinks_reachable_in_cluster, viewed from the input side): if so,
// this particular sink need not consume an external input pin class.
func (e *Engine) driverReachesInternally(arena *pb.Arena, clusterID atom.ClusterID, net *atom.Net, root *pb.Pb) bool {
	if net.Driver == nil || e.ctx.Locations.AtomCluster(net.Driver.Atom) != clusterID {
		return false
	}
	driverPin, ok := e.atomPortPin(arena, net.Driver.Atom, net.Driver.Port, net.Driver.Bit)
	if !ok {
		return false
	}
	depth := driverPin.Node.Depth - root.Graph.Depth
	boundary, ok := e.ctx.Arch.AncestorPin(driverPin, depth)
	if !ok {
		return false
	}
	return e.netFullyAbsorbed(arena, clusterID, net, boundary)
}

// netFullyAbsorbed reports whether every sink of net is committed
// inside clusterID and reachable from boundaryOutputPin purely through
// internal wiring (net_sinks_reachable_in_cluster, viewed from the
// output side): if so, the net never needs an external output pin.
func (e *Engine) netFullyAbsorbed(arena *pb.Arena, clusterID atom.ClusterID, net *atom.Net, boundaryOutputPin *arch.PbGraphPin) bool {
	if len(net.Sinks) == 0 {
		return false
	}
	reachable := e.ctx.Arch.ConnectableInputs(boundaryOutputPin, 0)
	for _, sink := range net.Sinks {
		if e.ctx.Locations.AtomCluster(sink.Atom) != clusterID {
			return false
		}
		sinkPin, ok := e.atomPortPin(arena, sink.Atom, sink.Port, sink.Bit)
		if !ok || !containsPin(reachable, sinkPin) {
			return false
		}
	}
	return true
}

func containsPin(pins []*arch.PbGraphPin, target *arch.PbGraphPin) bool {
	for _, p := range pins {
		if p == target {
			return true
		}
	}
	return false
}

// commit is the PASSED tail of try_pack_molecule: invalidate molecules
// sharing an atom with m, commit every primitive and the root's
// speculative pin usage, and (for a chain molecule) rename every
// ancestor pb up to the root to the chain-root atom's name (spec §4.6
// step 6).
func (e *Engine) commit(arena *pb.Arena, rootRef pb.Ref, stats *placement.Stats, m *atom.Molecule, primitives []*arch.PbGraphNode, atoms []atom.ID) {
	for _, aid := range atoms {
		e.ctx.Molecules.InvalidateMoleculesOf(aid)
	}
	for _, node := range primitives {
		stats.CommitPrimitive(node)
	}
	if root := arena.Get(rootRef); root.Stats != nil {
		root.Stats.CommitLookahead()
	}

	if m.IsChain {
		rootAtomID := atoms[m.RootSlot]
		rootAtom, _ := e.ctx.Netlist.Atom(rootAtomID)
		ref := pb.Ref(e.ctx.Locations.AtomPb(rootAtomID))
		for ref != pb.NoRef {
			p := arena.Get(ref)
			p.Name = rootAtom.Name
			ref = p.Parent
		}
	}
}

// revertPlaceAtom is revert_place_atom_block: unmaps atomID, frees its
// leaf pb, revalidates molecules whose atoms are all free again, and
// walks upward freeing any ancestor that's gone fully empty (spec §4.6
// step 7).
func (e *Engine) revertPlaceAtom(arena *pb.Arena, rootRef pb.Ref, atomID atom.ID) {
	e.ctx.Locations.SetAtomCluster(atomID, atom.NoCluster)
	leafRef := e.ctx.Locations.AtomPb(atomID)
	if leafRef == atom.NoPb {
		return
	}
	e.ctx.Locations.SetAtomPb(atomID, atom.NoPb)

	e.revalidate(atomID)
	leaf := pb.Ref(leafRef)
	next := arena.Get(leaf).Parent
	arena.Free(leaf)

	ref := next
	for ref != pb.NoRef && ref != rootRef {
		p := arena.Get(ref)
		next := p.Parent
		if arena.NumChildBlocksInPb(ref) == 0 {
			arena.Free(ref)
		}
		ref = next
	}
}

func (e *Engine) revalidate(atomID atom.ID) {
	e.ctx.Molecules.RevalidateAtoms([]atom.ID{atomID}, func(a atom.ID) bool {
		return e.ctx.Locations.AtomCluster(a) == atom.NoCluster
	})
}
