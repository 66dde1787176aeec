package netlistio

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadNetlistBuildsAtomsAndNets(t *testing.T) {
	path := writeTemp(t, "net.json", `{
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
	}`)

	nl, store, fp, err := ReadNetlist(path)
	if err != nil {
		t.Fatalf("ReadNetlist: %v", err)
	}
	if fp == "" {
		t.Fatal("expected non-empty fingerprint")
	}
	if len(nl.Atoms()) != 2 {
		t.Fatalf("got %d atoms, want 2", len(nl.Atoms()))
	}

	lut, ok := nl.Atom(0)
	if !ok || lut.Name != "lut1" {
		t.Fatalf("atom 0 = %+v, ok=%v", lut, ok)
	}
	if lut.NumExtInputs() != 2 {
		t.Errorf("lut1 NumExtInputs() = %d, want 2", lut.NumExtInputs())
	}

	ff, ok := nl.Atom(1)
	if !ok {
		t.Fatal("atom 1 missing")
	}
	n1 := ff.Net("d", 0)
	if n1 == -1 {
		t.Fatal("ff1.d should be connected")
	}
	net, ok := nl.Net(n1)
	if !ok || net.Driver == nil || net.Driver.Atom != lut.ID {
		t.Fatalf("net n1 driver = %+v", net)
	}

	var clkNet bool
	for _, n := range nl.Nets() {
		if n.Global {
			clkNet = true
		}
	}
	if !clkNet {
		t.Error("expected one global net for clk")
	}

	// Every atom not named in an explicit molecule gets a default
	// single-atom molecule (spec §3).
	ms := store.ValidMoleculesFor(lut.ID)
	if len(ms) != 1 || len(ms[0].Atoms()) != 1 {
		t.Fatalf("default molecule for lut1 = %+v", ms)
	}
}

func TestReadNetlistExplicitMolecule(t *testing.T) {
	path := writeTemp(t, "net.json", `{
		"atoms": [
			{"name": "lut1", "model": "lut4", "ports": [{"name": "out", "dir": "out", "nets": ["n1"]}]},
			{"name": "ff1", "model": "dff", "ports": [{"name": "d", "dir": "in", "nets": ["n1"]}]}
		],
		"molecules": [
			{"pattern": "ble", "atoms": ["lut1", "ff1"], "root_slot": 0, "num_ext_inputs": 0}
		]
	}`)

	_, store, _, err := ReadNetlist(path)
	if err != nil {
		t.Fatalf("ReadNetlist: %v", err)
	}
	ms := store.ValidMoleculesFor(0)
	if len(ms) != 1 || ms[0].Pattern != "ble" || len(ms[0].Atoms()) != 2 {
		t.Fatalf("ble molecule = %+v", ms)
	}
}

func TestReadNetlistRejectsDuplicateBlock(t *testing.T) {
	path := writeTemp(t, "net.json", `{
		"atoms": [
			{"name": "lut1", "model": "lut4", "ports": []},
			{"name": "lut1", "model": "lut4", "ports": []}
		]
	}`)
	if _, _, _, err := ReadNetlist(path); err == nil {
		t.Fatal("expected duplicate block error")
	}
}

func TestReadNetlistRejectsMultiDriverNet(t *testing.T) {
	path := writeTemp(t, "net.json", `{
		"atoms": [
			{"name": "a", "model": "lut4", "ports": [{"name": "out", "dir": "out", "nets": ["n1"]}]},
			{"name": "b", "model": "lut4", "ports": [{"name": "out", "dir": "out", "nets": ["n1"]}]}
		]
	}`)
	if _, _, _, err := ReadNetlist(path); err == nil {
		t.Fatal("expected multi-driver net error")
	}
}

func TestReadNetlistMissingFile(t *testing.T) {
	if _, _, _, err := ReadNetlist(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
