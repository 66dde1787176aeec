package netlistio

import (
	"encoding/json"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/perr"
)

// architectureFile is the thin loader arch's own doc comment invites:
// full architecture-XML ingest is out of scope (spec §1), so this
// format describes only what the packer core actually consults — the
// pb-type hierarchy, its ports and its internal wiring — as JSON rather
// than VPR's XML dialect.
type architectureFile struct {
	BlockTypes []archPbType `json:"block_types"`
}

type archPbType struct {
	Name      string     `json:"name"`
	Ports     []archPort `json:"ports"`
	Model     string     `json:"model,omitempty"`     // set only on a primitive leaf
	BlifModel string     `json:"blif_model,omitempty"`
	Class     string     `json:"class,omitempty"`
	Modes     []archMode `json:"modes,omitempty"` // empty/nil: this type is a primitive
}

type archPort struct {
	Name  string `json:"name"`
	Dir   string `json:"dir"`
	Width int    `json:"width"`
	Class string `json:"class,omitempty"`
}

type archMode struct {
	Name     string      `json:"name"`
	Children []archChild `json:"children"`
	Wires    []archWire  `json:"wires,omitempty"`
}

type archChild struct {
	Type  string `json:"type"` // references a BlockTypes[].Name
	NumPb int    `json:"num_pb"`
}

// archWire names one internal connection a mode's Wire callback installs
// (spec §4.2's pack-pattern interconnect). Child is the zero-based
// position of the child slot within the mode's Children list, or -1 to
// mean the mode's own enclosing pb-type; Instance picks which of that
// slot's NumPb replicas when Child >= 0.
type archWire struct {
	FromChild    int    `json:"from_child"`
	FromInstance int    `json:"from_instance,omitempty"`
	FromPort     string `json:"from_port"`
	ToChild      int    `json:"to_child"`
	ToInstance   int    `json:"to_instance,omitempty"`
	ToPort       string `json:"to_port"`
}

// ReadArchitecture parses a thin architecture description into an
// expanded arch.View, returning its provenance fingerprint alongside.
func ReadArchitecture(path string) (*arch.View, string, error) {
	data, err := readFile(perr.ArchError, path)
	if err != nil {
		return nil, "", err
	}

	var file architectureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, "", perr.WrapAt(perr.ArchError, path, 0, err, "malformed architecture file")
	}

	byName := map[string]*arch.PbType{}
	building := map[string]bool{}
	var build func(name string) (*arch.PbType, error)
	lookup := map[string]archPbType{}
	for _, t := range file.BlockTypes {
		if _, dup := lookup[t.Name]; dup {
			return nil, "", perr.At(perr.ArchError, path, 0, "duplicate block type %q", t.Name)
		}
		lookup[t.Name] = t
	}

	build = func(name string) (*arch.PbType, error) {
		if t, ok := byName[name]; ok {
			return t, nil
		}
		if building[name] {
			return nil, perr.At(perr.ArchError, path, 0, "block type %q recursively references itself", name)
		}
		spec, ok := lookup[name]
		if !ok {
			return nil, perr.At(perr.ArchError, path, 0, "unknown block type %q", name)
		}
		building[name] = true

		t := &arch.PbType{
			Name:      spec.Name,
			Model:     arch.Model(spec.Model),
			BlifModel: spec.BlifModel,
			Class:     arch.Class(spec.Class),
		}
		for _, p := range spec.Ports {
			dir, err := portDir(p.Dir)
			if err != nil {
				return nil, perr.At(perr.ArchError, path, 0, "block type %q port %q: %v", name, p.Name, err)
			}
			t.Ports = append(t.Ports, arch.PortSpec{Name: p.Name, Dir: dir, Width: p.Width, Class: p.Class})
		}
		byName[name] = t // registered before recursing so siblings can share it

		for mi, mf := range spec.Modes {
			mode := arch.Mode{Name: mf.Name}
			for _, cf := range mf.Children {
				childType, err := build(cf.Type)
				if err != nil {
					return nil, err
				}
				mode.Children = append(mode.Children, arch.ChildSpec{Type: childType, NumPb: cf.NumPb})
			}
			wires, modeIndex := mf.Wires, mi
			mode.Wire = func(n *arch.PbGraphNode) { applyWires(n, modeIndex, wires) }
			t.Modes = append(t.Modes, mode)
		}

		building[name] = false
		return t, nil
	}

	roots := make([]*arch.PbType, 0, len(file.BlockTypes))
	for _, t := range file.BlockTypes {
		built, err := build(t.Name)
		if err != nil {
			return nil, "", err
		}
		roots = append(roots, built)
	}

	expanded := arch.ExpandAll(roots)
	return arch.Build(expanded...), Fingerprint(data), nil
}

// applyWires installs one mode's declared internal connections once its
// children have been expanded under n. Bits are connected pairwise up to
// the shorter of the two ports' widths.
func applyWires(n *arch.PbGraphNode, modeIndex int, wires []archWire) {
	for _, w := range wires {
		from := pinsOf(n, modeIndex, w.FromChild, w.FromInstance, w.FromPort)
		to := pinsOf(n, modeIndex, w.ToChild, w.ToInstance, w.ToPort)
		width := len(from)
		if len(to) < width {
			width = len(to)
		}
		for bit := 0; bit < width; bit++ {
			from[bit].ConnectTo(to[bit])
		}
	}
}

// pinsOf resolves every bit of one port on n itself (child == -1) or on
// the instance'th replica of n's mode-th mode's childType'th child slot.
func pinsOf(n *arch.PbGraphNode, mode, childType, instance int, port string) []*arch.PbGraphPin {
	node := n
	if childType >= 0 {
		insts := n.ChildrenOf(mode, childType)
		if instance >= len(insts) {
			return nil
		}
		node = insts[instance]
	}
	var pins []*arch.PbGraphPin
	for _, p := range node.AllPins() {
		if p.Port.Name == port {
			pins = append(pins, p)
		}
	}
	return pins
}
