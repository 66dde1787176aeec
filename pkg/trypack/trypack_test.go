package trypack

import (
	"testing"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/pb"
	"github.com/matzehuels/fpgapack/pkg/pctx"
	"github.com/matzehuels/fpgapack/pkg/placement"
	"github.com/matzehuels/fpgapack/pkg/router"
	"github.com/matzehuels/fpgapack/pkg/timing"
)

func TestPrimitiveFeasibleRequiresMatchingModel(t *testing.T) {
	lut := &atom.Atom{Model: "lut4"}
	t4 := &arch.PbType{Model: "lut4"}
	tOther := &arch.PbType{Model: "dff"}

	if !primitiveFeasible(lut, t4) {
		t.Error("matching models should be feasible")
	}
	if primitiveFeasible(lut, tOther) {
		t.Error("mismatched models should not be feasible")
	}
}

func TestMemorySiblingFeasibleRequiresMatchingNonDataPorts(t *testing.T) {
	a := &atom.Atom{Ports: []atom.Port{
		{Name: "addr", Class: "control", Nets: []atom.NetID{1, 2}},
		{Name: "data", Class: "data", Nets: []atom.NetID{5}},
	}}
	sameSibling := &atom.Atom{Ports: []atom.Port{
		{Name: "addr", Class: "control", Nets: []atom.NetID{1, 2}},
		{Name: "data", Class: "data", Nets: []atom.NetID{9}}, // data ports are exempt
	}}
	if !memorySiblingFeasible(a, sameSibling) {
		t.Error("siblings agreeing on every non-data port should be feasible despite differing data nets")
	}

	mismatchedSibling := &atom.Atom{Ports: []atom.Port{
		{Name: "addr", Class: "control", Nets: []atom.NetID{1, atom.NoNet}},
		{Name: "data", Class: "data", Nets: []atom.NetID{5}},
	}}
	if memorySiblingFeasible(a, mismatchedSibling) {
		t.Error("siblings disagreeing on a non-data port should not be feasible")
	}
}

func TestMemorySiblingFeasibleTreatsBothDisconnectedAsMatch(t *testing.T) {
	a := &atom.Atom{Ports: []atom.Port{
		{Name: "we", Class: "control", Nets: []atom.NetID{atom.NoNet}},
	}}
	sibling := &atom.Atom{Ports: []atom.Port{
		{Name: "we", Class: "control", Nets: []atom.NetID{atom.NoNet}},
	}}
	if !memorySiblingFeasible(a, sibling) {
		t.Error("both atoms leaving the same control pin disconnected should be feasible")
	}
}

func TestFindChildPositionLocatesNode(t *testing.T) {
	child := &arch.PbGraphNode{ID: 2}
	parent := &arch.PbGraphNode{
		Children: [][][]*arch.PbGraphNode{
			{{child}},
		},
	}
	child.Parent = parent

	mode, childType, instance, ok := findChildPosition(parent, child)
	if !ok || mode != 0 || childType != 0 || instance != 0 {
		t.Errorf("findChildPosition = (%d, %d, %d, %v), want (0, 0, 0, true)", mode, childType, instance, ok)
	}

	unrelated := &arch.PbGraphNode{ID: 99}
	if _, _, _, ok := findChildPosition(parent, unrelated); ok {
		t.Error("findChildPosition should report false for a node outside the tree")
	}
}

func TestContainsPin(t *testing.T) {
	a := &arch.PbGraphPin{ID: 1}
	b := &arch.PbGraphPin{ID: 2}
	pins := []*arch.PbGraphPin{a}

	if !containsPin(pins, a) {
		t.Error("expected containsPin to find a")
	}
	if containsPin(pins, b) {
		t.Error("expected containsPin to not find b")
	}
}

func TestChainRootFeasibleRequiresCanonicalNode(t *testing.T) {
	canonical := &arch.PbGraphNode{ID: 1}
	other := &arch.PbGraphNode{ID: 2}
	port := &arch.PortSpec{Name: "cin"}
	chainRootPin := &arch.PbGraphPin{Node: canonical, Port: port, Bit: 0}

	e := &Engine{}

	connected := &atom.Atom{Ports: []atom.Port{{Name: "cin", Nets: []atom.NetID{7}}}}
	if !e.chainRootFeasible(connected, canonical, chainRootPin) {
		t.Error("landing a connected chain root on its canonical node should be feasible")
	}
	if e.chainRootFeasible(connected, other, chainRootPin) {
		t.Error("landing a connected chain root anywhere but its canonical node should be infeasible")
	}

	disconnected := &atom.Atom{Ports: []atom.Port{{Name: "cin", Nets: []atom.NetID{atom.NoNet}}}}
	if !e.chainRootFeasible(disconnected, other, chainRootPin) {
		t.Error("a chain root whose chain input is unconnected may land anywhere")
	}

	noPort := &atom.Atom{Ports: nil}
	if !e.chainRootFeasible(noPort, other, chainRootPin) {
		t.Error("an atom lacking the chain-root port entirely should not be constrained")
	}
}

// TestTryPackMoleculeRollsBackRejectedAttemptBeforeRetrying covers spec
// §8 scenario 5: when the per-atom router rejects the first candidate
// primitive, the atom's placement, router target and cluster/pb mapping
// must be fully undone before the next candidate is tried, leaving no
// trace of the rejected attempt once a later candidate succeeds.
func TestTryPackMoleculeRollsBackRejectedAttemptBeforeRetrying(t *testing.T) {
	lut4 := &arch.PbType{
		Name:  "lut4",
		Model: "lut4",
		Ports: []arch.PortSpec{{Name: "in", Dir: arch.In, Width: 4}, {Name: "out", Dir: arch.Out, Width: 1}},
	}
	clb := &arch.PbType{
		Name: "clb",
		Modes: []arch.Mode{
			{Name: "m", Children: []arch.ChildSpec{{Type: lut4, NumPb: 2}}},
		},
	}
	root := arch.Expand(clb)
	view := arch.Build(root)

	nl := atom.New()
	a := &atom.Atom{ID: 0, Name: "l0", Model: "lut4"}
	nl.AddAtom(a)

	molecules := atom.NewStore()
	m := &atom.Molecule{ID: 0, Pattern: "atom", Slots: []atom.ID{a.ID}, RootSlot: 0, BaseGain: 1}
	molecules.Add(m)

	fakeRouter := &router.Fake{FailAfter: 0}
	ctx := pctx.New(nl, molecules, view, atom.NewLocations(), timing.Zero{}, fakeRouter, pctx.DefaultConfig(), nil)

	arena := pb.NewArena()
	rootRef := arena.Alloc(root, pb.NoRef)
	rootPb := arena.Get(rootRef)
	rootPb.Stats = pb.NewStats()
	stats := placement.NewStats(view)
	stats.Reset(root)

	routerData := fakeRouter.AllocAndLoad("clb")
	engine := New(ctx)
	status := engine.TryPackMolecule(arena, rootRef, atom.ClusterID(0), stats, m, router.PerAtom, routerData)
	if status != Passed {
		t.Fatalf("TryPackMolecule status = %v, want Passed after the rejected first candidate is retried", status)
	}

	siblings := root.ChildrenOf(0, 0)
	if len(siblings) != 2 {
		t.Fatalf("got %d lut4 siblings, want 2", len(siblings))
	}
	committed := siblings[1]

	committedRef := ctx.Locations.AtomPb(a.ID)
	if committedRef == atom.NoPb || arena.Get(pb.Ref(committedRef)).Graph != committed {
		t.Errorf("atom should have landed on the second lut4 slot after the first was rejected")
	}

	rejectedRef := rootPb.Children[0][0][0]
	if rejectedRef != pb.NoRef && arena.Get(rejectedRef).Name != "" {
		t.Error("the rejected first candidate's pb should have been freed by rollback, not left occupied")
	}

	if m.Valid {
		t.Error("a molecule committed via the second candidate should be invalidated, not left valid")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		Passed:          "PASSED",
		FailedFeasible:  "FAILED_FEASIBLE",
		FailedRoute:     "FAILED_ROUTE",
		FailedBlockPack: "FAILED_BLOCK_PACK",
		Status(99):      "UNKNOWN",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
