package netlistio

import "testing"

// clb is declared before adder so ReadArchitecture's root order (one
// root per block_types entry, in file order) visits clb's two nested
// adder instances before the standalone adder root below, letting
// ChainRootPin resolve to a sibling inside clb rather than the
// unrelated freestanding instance every declared type also gets.
const chainArch = `{
	"block_types": [
		{
			"name": "clb",
			"ports": [],
			"modes": [
				{"name": "m", "children": [{"type": "adder", "num_pb": 2}]}
			]
		},
		{
			"name": "adder",
			"model": "adder",
			"blif_model": ".adder",
			"ports": [
				{"name": "cin", "dir": "in", "width": 1},
				{"name": "cout", "dir": "out", "width": 1}
			]
		}
	]
}`

func TestResolveChainRootPinsPopulatesChainRootPin(t *testing.T) {
	netPath := writeTemp(t, "net.json", `{
		"atoms": [
			{"name": "a0", "model": "adder", "ports": [
				{"name": "cin", "dir": "in", "nets": [""]},
				{"name": "cout", "dir": "out", "nets": ["n01"]}
			]},
			{"name": "a1", "model": "adder", "ports": [
				{"name": "cin", "dir": "in", "nets": ["n01"]},
				{"name": "cout", "dir": "out", "nets": [""]}
			]}
		],
		"molecules": [
			{"pattern": "chain", "is_chain": true, "atoms": ["a0"], "root_slot": 0, "chain_root_port": "cin"},
			{"pattern": "chain", "is_chain": true, "atoms": ["a1"], "root_slot": 0, "chain_root_port": "cin"}
		]
	}`)
	archPath := writeTemp(t, "arch.json", chainArch)

	nl, store, _, err := ReadNetlist(netPath)
	if err != nil {
		t.Fatalf("ReadNetlist: %v", err)
	}
	view, _, err := ReadArchitecture(archPath)
	if err != nil {
		t.Fatalf("ReadArchitecture: %v", err)
	}

	a0, _ := nl.Atom(0)
	for _, m := range store.AllOf(a0.ID) {
		if m.ChainRootPin != nil {
			t.Error("ChainRootPin should still be nil before ResolveChainRootPins runs")
		}
	}

	ResolveChainRootPins(store, nl, view)

	wantPin, ok := view.ChainRootPin("adder", "cin")
	if !ok {
		t.Fatal("expected the architecture to expose a chain-root pin for model adder")
	}

	for _, m := range store.All() {
		if !m.IsChain {
			continue
		}
		if m.ChainRootPin != wantPin {
			t.Errorf("molecule %q ChainRootPin = %v, want %v", m.Pattern, m.ChainRootPin, wantPin)
		}
	}

	clb := view.Roots()[0]
	siblings := clb.ChildrenOf(0, 0)
	if len(siblings) != 2 {
		t.Fatalf("got %d adder siblings inside clb, want 2", len(siblings))
	}
	if wantPin.Node != siblings[0] {
		t.Error("ChainRootPin should resolve to the adder nested inside clb, not the freestanding adder root")
	}
}

func TestResolveChainRootPinsIgnoresNonChainMolecules(t *testing.T) {
	netPath := writeTemp(t, "net.json", `{
		"atoms": [
			{"name": "a0", "model": "adder", "ports": [{"name": "cin", "dir": "in", "nets": [""]}]}
		]
	}`)
	archPath := writeTemp(t, "arch.json", chainArch)

	nl, store, _, err := ReadNetlist(netPath)
	if err != nil {
		t.Fatalf("ReadNetlist: %v", err)
	}
	view, _, err := ReadArchitecture(archPath)
	if err != nil {
		t.Fatalf("ReadArchitecture: %v", err)
	}

	ResolveChainRootPins(store, nl, view)

	for _, m := range store.All() {
		if m.ChainRootPin != nil {
			t.Error("a default single-atom molecule is never a chain, ChainRootPin should stay nil")
		}
	}
}
