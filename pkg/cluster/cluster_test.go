package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/netlistio"
	"github.com/matzehuels/fpgapack/pkg/pb"
	"github.com/matzehuels/fpgapack/pkg/pctx"
	"github.com/matzehuels/fpgapack/pkg/router"
	"github.com/matzehuels/fpgapack/pkg/timing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const lutFFArch = `{
	"block_types": [
		{
			"name": "lut4",
			"model": "lut4",
			"blif_model": ".names",
			"ports": [
				{"name": "in", "dir": "in", "width": 4},
				{"name": "out", "dir": "out", "width": 1}
			]
		},
		{
			"name": "dff",
			"model": "dff",
			"blif_model": ".latch",
			"ports": [
				{"name": "d", "dir": "in", "width": 1},
				{"name": "clk", "dir": "clock", "width": 1},
				{"name": "q", "dir": "out", "width": 1}
			]
		},
		{
			"name": "clb",
			"ports": [
				{"name": "in", "dir": "in", "width": 4},
				{"name": "clk", "dir": "clock", "width": 1},
				{"name": "out", "dir": "out", "width": 1}
			],
			"modes": [
				{
					"name": "ble",
					"children": [
						{"type": "lut4", "num_pb": 1},
						{"type": "dff", "num_pb": 1}
					],
					"wires": [
						{"from_child": -1, "from_port": "in", "to_child": 0, "to_port": "in"},
						{"from_child": -1, "from_port": "clk", "to_child": 1, "to_port": "clk"},
						{"from_child": 0, "from_port": "out", "to_child": 1, "to_port": "d"},
						{"from_child": 1, "from_port": "q", "to_child": -1, "to_port": "out"}
					]
				}
			]
		}
	]
}`

func loadContext(t *testing.T, netlistJSON, archJSON string) *pctx.Context {
	t.Helper()
	return loadContextWithRouter(t, netlistJSON, archJSON, router.NewFake())
}

func loadContextWithRouter(t *testing.T, netlistJSON, archJSON string, r router.Router) *pctx.Context {
	t.Helper()
	netPath := writeTemp(t, "net.json", netlistJSON)
	archPath := writeTemp(t, "arch.json", archJSON)

	nl, molecules, _, err := netlistio.ReadNetlist(netPath)
	if err != nil {
		t.Fatalf("ReadNetlist: %v", err)
	}
	av, _, err := netlistio.ReadArchitecture(archPath)
	if err != nil {
		t.Fatalf("ReadArchitecture: %v", err)
	}
	netlistio.ResolveChainRootPins(molecules, nl, av)

	return pctx.New(nl, molecules, av, atom.NewLocations(), timing.Zero{}, r, pctx.DefaultConfig(), nil)
}

// chainArch is a clb holding two adder slots wired as a fixed carry
// chain: slot 0's cin is the only position reachable from the cluster
// boundary, slot 0's cout feeds slot 1 internally, and slot 1's cout
// reaches the boundary so a chain can continue into the next cluster.
const chainArch = `{
	"block_types": [
		{
			"name": "adder",
			"model": "adder",
			"blif_model": ".adder",
			"ports": [
				{"name": "cin", "dir": "in", "width": 1},
				{"name": "cout", "dir": "out", "width": 1}
			]
		},
		{
			"name": "clb",
			"ports": [
				{"name": "cin", "dir": "in", "width": 1},
				{"name": "cout", "dir": "out", "width": 1}
			],
			"modes": [
				{
					"name": "chain",
					"children": [{"type": "adder", "num_pb": 2}],
					"wires": [
						{"from_child": -1, "from_port": "cin", "to_child": 0, "to_instance": 0, "to_port": "cin"},
						{"from_child": 0, "from_instance": 0, "from_port": "cout", "to_child": 0, "to_instance": 1, "to_port": "cin"},
						{"from_child": 0, "from_instance": 1, "from_port": "cout", "to_child": -1, "to_port": "cout"}
					]
				}
			]
		}
	]
}`

// TestRunPacksSingleLUT covers spec §8 scenario 1: one atom, one cluster.
func TestRunPacksSingleLUT(t *testing.T) {
	const netlist = `{
		"atoms": [
			{"name": "lut1", "model": "lut4", "ports": [
				{"name": "in", "dir": "in", "nets": ["a", "b", "", ""]},
				{"name": "out", "dir": "out", "nets": ["n1"]}
			]}
		]
	}`
	pc := loadContext(t, netlist, lutFFArch)
	clusters, err := New(pc).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if clusters[0].BlockType != "clb" {
		t.Errorf("block type = %q, want clb", clusters[0].BlockType)
	}
}

// TestRunPacksLUTAndFFTogether covers spec §8 scenario 2: a combinational
// atom feeding a registered atom should land in the same cluster because
// the net between them only has one sink.
func TestRunPacksLUTAndFFTogether(t *testing.T) {
	const netlist = `{
		"atoms": [
			{"name": "lut1", "model": "lut4", "ports": [
				{"name": "in", "dir": "in", "nets": ["a", "b", "", ""]},
				{"name": "out", "dir": "out", "nets": ["n1"]}
			]},
			{"name": "ff1", "model": "dff", "ports": [
				{"name": "d", "dir": "in", "nets": ["n1"]},
				{"name": "clk", "dir": "clock", "nets": ["clk"]},
				{"name": "q", "dir": "out", "nets": ["n2"]}
			]}
		],
		"global_nets": ["clk"]
	}`
	pc := loadContext(t, netlist, lutFFArch)
	clusters, err := New(pc).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want lut1+ff1 packed into 1", len(clusters))
	}
	atomsByCluster := 0
	for _, a := range pc.Netlist.Atoms() {
		if pc.Locations.AtomCluster(a.ID) == clusters[0].ID {
			atomsByCluster++
		}
	}
	if atomsByCluster != 2 {
		t.Errorf("cluster holds %d atoms, want 2", atomsByCluster)
	}
}

// TestRunSpreadsUnrelatedAtomsAcrossClusters covers two unrelated LUTs
// exhausting a clb's single lut4 slot: with no connecting net and no
// shared inputs, neither pulls the other in via gain, so the second LUT
// always opens a fresh cluster.
func TestRunSpreadsUnrelatedAtomsAcrossClusters(t *testing.T) {
	const netlist = `{
		"atoms": [
			{"name": "lut1", "model": "lut4", "ports": [
				{"name": "in", "dir": "in", "nets": ["a", "b", "c", "d"]},
				{"name": "out", "dir": "out", "nets": ["n1"]}
			]},
			{"name": "lut2", "model": "lut4", "ports": [
				{"name": "in", "dir": "in", "nets": ["e", "f", "g", "h"]},
				{"name": "out", "dir": "out", "nets": ["n2"]}
			]}
		]
	}`
	pc := loadContext(t, netlist, lutFFArch)
	clusters, err := New(pc).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2 (one lut4 primitive per clb)", len(clusters))
	}
}

// TestRunRejectsGlobalNetIntoDataPin covers the check_clocks invariant
// (spec §9's open question): a global net may only fan into a clock pin.
func TestRunRejectsGlobalNetIntoDataPin(t *testing.T) {
	const netlist = `{
		"atoms": [
			{"name": "lut1", "model": "lut4", "ports": [
				{"name": "in", "dir": "in", "nets": ["clk", "b", "", ""]},
				{"name": "out", "dir": "out", "nets": ["n1"]}
			]}
		],
		"global_nets": ["clk"]
	}`
	pc := loadContext(t, netlist, lutFFArch)
	if _, err := New(pc).Run(context.Background()); err == nil {
		t.Fatal("expected an error when a global net fans into a non-clock input")
	}
}

// TestRunLeavesEveryAtomClusteredAndReachable covers spec §4.7's three
// final invariants directly, over a slightly larger fixture.
func TestRunLeavesEveryAtomClusteredAndReachable(t *testing.T) {
	const netlist = `{
		"atoms": [
			{"name": "lut1", "model": "lut4", "ports": [
				{"name": "in", "dir": "in", "nets": ["a", "b", "c", "d"]},
				{"name": "out", "dir": "out", "nets": ["n1"]}
			]},
			{"name": "ff1", "model": "dff", "ports": [
				{"name": "d", "dir": "in", "nets": ["n1"]},
				{"name": "clk", "dir": "clock", "nets": ["clk"]},
				{"name": "q", "dir": "out", "nets": ["n2"]}
			]},
			{"name": "lut2", "model": "lut4", "ports": [
				{"name": "in", "dir": "in", "nets": ["e", "f", "g", "h"]},
				{"name": "out", "dir": "out", "nets": ["n3"]}
			]}
		],
		"global_nets": ["clk"]
	}`
	pc := loadContext(t, netlist, lutFFArch)
	clusters, err := New(pc).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(clusters) == 0 {
		t.Fatal("expected at least one cluster")
	}
	for _, a := range pc.Netlist.Atoms() {
		if pc.Locations.AtomCluster(a.ID) == atom.NoCluster {
			t.Errorf("atom %s was left unclustered", a.Name)
		}
		if pc.Locations.AtomPb(a.ID) == atom.NoPb {
			t.Errorf("atom %s has a cluster but no pb", a.Name)
		}
	}
}

// TestRunSplitsCarryChainAcrossClusters covers spec §8 scenario 3: a
// 3-adder carry chain over a clb that only fits 2 adders. The first two
// links pack together as one chain molecule; the third opens a second
// cluster and must land on the architecture's single chain-root pin,
// the only position wired back to the cluster boundary.
func TestRunSplitsCarryChainAcrossClusters(t *testing.T) {
	const netlist = `{
		"atoms": [
			{"name": "a0", "model": "adder", "ports": [
				{"name": "cin", "dir": "in", "nets": [""]},
				{"name": "cout", "dir": "out", "nets": ["n01"]}
			]},
			{"name": "a1", "model": "adder", "ports": [
				{"name": "cin", "dir": "in", "nets": ["n01"]},
				{"name": "cout", "dir": "out", "nets": ["n12"]}
			]},
			{"name": "a2", "model": "adder", "ports": [
				{"name": "cin", "dir": "in", "nets": ["n12"]},
				{"name": "cout", "dir": "out", "nets": [""]}
			]}
		],
		"molecules": [
			{"pattern": "chain", "is_chain": true, "atoms": ["a0", "a1"], "root_slot": 0, "chain_root_port": "cin", "base_gain": 2},
			{"pattern": "chain", "is_chain": true, "atoms": ["a2"], "root_slot": 0, "chain_root_port": "cin", "base_gain": 1}
		]
	}`
	pc := loadContext(t, netlist, chainArch)
	clusters, err := New(pc).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2 (a0,a1 fill the first, a2 opens a second)", len(clusters))
	}

	var a2ID atom.ID
	for _, a := range pc.Netlist.Atoms() {
		if a.Name == "a2" {
			a2ID = a.ID
		}
	}
	var cluster2 *Cluster
	for _, c := range clusters {
		if c.ID == pc.Locations.AtomCluster(a2ID) {
			cluster2 = c
		}
	}
	leafRef := pb.Ref(pc.Locations.AtomPb(a2ID))
	leaf := cluster2.Arena.Get(leafRef)

	chainRootPin, ok := pc.Arch.ChainRootPin("adder", "cin")
	if !ok {
		t.Fatal("expected the architecture to expose a chain-root pin for model adder")
	}
	if leaf.Graph != chainRootPin.Node {
		t.Error("a2 should land on the chain-root pb-graph node when it opens a fresh cluster")
	}
}

// buildHighFanoutContext returns a controller context with one driver
// atom "d" whose output net fans out to n sink lut4 atoms named
// "s0".."s{n-1}", built directly rather than through JSON since a
// several-hundred-sink net is unwieldy as a literal.
func buildHighFanoutContext(n int) (*pctx.Context, atom.NetID) {
	nl := atom.New()
	molecules := atom.NewStore()

	driver := &atom.Atom{ID: 0, Name: "d", Model: "lut4", Ports: []atom.Port{
		{Name: "out", Dir: arch.Out, Nets: []atom.NetID{0}},
	}}
	nl.AddAtom(driver)
	molecules.Add(&atom.Molecule{ID: 0, Pattern: "atom", Slots: []atom.ID{0}, RootSlot: 0, BaseGain: 1})

	net := &atom.Net{ID: 0, Driver: &atom.PinRef{Atom: 0, Port: "out", Bit: 0}}
	for i := 0; i < n; i++ {
		id := atom.ID(i + 1)
		sink := &atom.Atom{ID: id, Name: fmt.Sprintf("s%d", i), Model: "lut4", Ports: []atom.Port{
			{Name: "in", Dir: arch.In, Nets: []atom.NetID{0, atom.NoNet, atom.NoNet, atom.NoNet}},
		}}
		nl.AddAtom(sink)
		molecules.Add(&atom.Molecule{ID: atom.MoleculeID(i + 1), Pattern: "atom", Slots: []atom.ID{id}, RootSlot: 0, BaseGain: 1})
		net.Sinks = append(net.Sinks, atom.PinRef{Atom: id, Port: "in", Bit: 0})
	}
	nl.AddNet(net)

	return pctx.New(nl, molecules, arch.Build(), atom.NewLocations(), timing.Zero{}, router.NewFake(), pctx.DefaultConfig(), nil), net.ID
}

// TestMarkAndUpdateRecordsHighFanoutNetInsteadOfGain covers the gain
// half of spec §8 scenario 6: a net past MaxNetSinksIgnore sinks is
// never walked for gain and is instead stashed as the cluster's
// tie-break high-fanout net on first touch.
func TestMarkAndUpdateRecordsHighFanoutNetInsteadOfGain(t *testing.T) {
	pc, netID := buildHighFanoutContext(300)
	stats := pb.NewStats()

	root := &pb.Pb{Stats: stats}
	New(pc).gain.CommitAtom(root, atom.ID(0))

	if stats.TieBreakHighFanoutNet != netID {
		t.Errorf("TieBreakHighFanoutNet = %v, want %v", stats.TieBreakHighFanoutNet, netID)
	}
	if len(stats.Gain) != 0 {
		t.Errorf("got %d gain entries, want 0: a 300-sink net must not be walked for gain", len(stats.Gain))
	}
	if stats.NumPinsOfNetInPb[netID] != 0 {
		t.Error("a high-fanout net's touch counter should never be incremented")
	}
}

// TestNextHighFanoutCandidateSamplesBoundedPrefixAndClearsField covers
// the controller half of spec §8 scenario 6: once the strong-neighbour
// queue is exhausted, the grow loop samples at most MaxHighFanoutExplore
// sinks of the recorded net, and the field is cleared after use whether
// or not a candidate was found.
func TestNextHighFanoutCandidateSamplesBoundedPrefixAndClearsField(t *testing.T) {
	pc, netID := buildHighFanoutContext(300)
	c := New(pc)

	stats := pb.NewStats()
	stats.TieBreakHighFanoutNet = netID
	if _, ok := c.nextHighFanoutCandidate(stats); !ok {
		t.Fatal("expected a candidate among the first MaxHighFanoutExplore sinks")
	}
	if stats.TieBreakHighFanoutNet != atom.NoNet {
		t.Error("TieBreakHighFanoutNet should be cleared after being sampled")
	}

	net, _ := pc.Netlist.Net(netID)
	for i := 0; i < MaxHighFanoutExplore; i++ {
		pc.Locations.SetAtomCluster(net.Sinks[i].Atom, atom.ClusterID(0))
	}
	stats.TieBreakHighFanoutNet = netID
	if _, ok := c.nextHighFanoutCandidate(stats); ok {
		t.Error("candidates beyond the first MaxHighFanoutExplore sinks must not be explored")
	}
	if stats.TieBreakHighFanoutNet != atom.NoNet {
		t.Error("TieBreakHighFanoutNet should be cleared even when no candidate is found")
	}
}
