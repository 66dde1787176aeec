package arch

import "testing"

func TestViewChainRootPinResolvesFirstPrimitiveInstance(t *testing.T) {
	adder := &PbType{
		Name:  "adder",
		Model: "adder",
		Ports: []PortSpec{
			{Name: "cin", Dir: In, Width: 1},
			{Name: "cout", Dir: Out, Width: 1},
		},
	}
	clb := &PbType{
		Name: "clb",
		Modes: []Mode{
			{Name: "m", Children: []ChildSpec{{Type: adder, NumPb: 2}}},
		},
	}
	root := Expand(clb)
	view := Build(root)

	pin, ok := view.ChainRootPin("adder", "cin")
	if !ok {
		t.Fatal("expected a chain-root pin for model adder")
	}
	siblings := root.ChildrenOf(0, 0)
	if len(siblings) != 2 {
		t.Fatalf("got %d adder siblings, want 2", len(siblings))
	}
	if pin.Node != siblings[0] {
		t.Error("ChainRootPin should resolve to the first adder instance, not a later sibling")
	}
	if pin.Bit != 0 {
		t.Errorf("pin.Bit = %d, want 0", pin.Bit)
	}
	if pin.Port.Name != "cin" {
		t.Errorf("pin.Port.Name = %q, want cin", pin.Port.Name)
	}
}

func TestViewChainRootPinReportsMissingModelOrPort(t *testing.T) {
	adder := &PbType{
		Name:  "adder",
		Model: "adder",
		Ports: []PortSpec{{Name: "cin", Dir: In, Width: 1}},
	}
	root := Expand(adder)
	view := Build(root)

	if _, ok := view.ChainRootPin("adder", "no_such_port"); ok {
		t.Error("expected no pin for an unknown port name")
	}
	if _, ok := view.ChainRootPin("no_such_model", "cin"); ok {
		t.Error("expected no pin for a model the architecture never instantiates")
	}
}
