package netlistio

import "testing"

func TestReadArchitectureExpandsAndWires(t *testing.T) {
	path := writeTemp(t, "arch.json", `{
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
	}`)

	view, fp, err := ReadArchitecture(path)
	if err != nil {
		t.Fatalf("ReadArchitecture: %v", err)
	}
	if fp == "" {
		t.Fatal("expected non-empty fingerprint")
	}
	roots := view.Roots()
	if len(roots) != 3 {
		t.Fatalf("got %d roots, want 3", len(roots))
	}

	clbRoot := roots[2]
	if clbRoot.PbType.Name != "clb" {
		t.Fatalf("roots[2] = %q, want clb", clbRoot.PbType.Name)
	}

	luts := clbRoot.ChildrenOf(0, 0)
	ffs := clbRoot.ChildrenOf(0, 1)
	if len(luts) != 1 || len(ffs) != 1 {
		t.Fatalf("expected 1 lut and 1 ff child, got %d/%d", len(luts), len(ffs))
	}

	lutOut := luts[0].OutputPins[0]
	ffD := ffs[0].InputPins[0]
	found := false
	for _, d := range lutOut.DrivesInternal() {
		if d == ffD {
			found = true
		}
	}
	if !found {
		t.Error("expected lut.out to wire directly to ff.d")
	}

	ffQ := ffs[0].OutputPins[0]
	clbOut := clbRoot.OutputPins[0]
	found = false
	for _, d := range ffQ.DrivesInternal() {
		if d == clbOut {
			found = true
		}
	}
	if !found {
		t.Error("expected ff.q to wire out to clb.out")
	}
}

func TestReadArchitectureRejectsUnknownChildType(t *testing.T) {
	path := writeTemp(t, "arch.json", `{
		"block_types": [
			{"name": "clb", "ports": [], "modes": [
				{"name": "m", "children": [{"type": "missing", "num_pb": 1}]}
			]}
		]
	}`)
	if _, _, err := ReadArchitecture(path); err == nil {
		t.Fatal("expected error for unknown block type reference")
	}
}

func TestReadArchitectureRejectsDuplicateBlockType(t *testing.T) {
	path := writeTemp(t, "arch.json", `{
		"block_types": [
			{"name": "lut4", "model": "lut4", "ports": []},
			{"name": "lut4", "model": "lut4", "ports": []}
		]
	}`)
	if _, _, err := ReadArchitecture(path); err == nil {
		t.Fatal("expected duplicate block type error")
	}
}
