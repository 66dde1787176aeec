// Package arch represents the read-only, expanded pb-graph view of a
// programmable fabric: block types, modes, primitives, pin classes and
// the edges between them. Everything in this package is immutable once
// built — the packer mutates clusters (package cluster), never the
// architecture.
//
// Architecture XML ingest is out of scope (see spec §1): callers build
// a tree of PbType/Mode values programmatically (or via a thin loader of
// their own), then call Expand to produce the pb-graph the packer walks.
package arch

// PortDir is the direction of a pb-type port.
type PortDir int

const (
	// In is an input port.
	In PortDir = iota
	// Out is an output port.
	Out
	// Clock is a clock port.
	Clock
)

func (d PortDir) String() string {
	switch d {
	case In:
		return "input"
	case Out:
		return "output"
	case Clock:
		return "clock"
	default:
		return "unknown"
	}
}

// Model identifies a primitive's logic model (lut4, dff, adder1, memory_slice, ...).
type Model string

// Class tags a pb-type with an architectural equivalence class. MemoryClass
// is the only class the packer core inspects directly (primitive
// feasibility's memory-sibling check, spec §4.6).
type Class string

// MemoryClass marks a pb-type whose primitive instances under the same
// parent must agree on every non-data port's net (or share disconnection).
const MemoryClass Class = "memory"

// PortSpec describes one named port of a pb-type.
type PortSpec struct {
	Name  string
	Dir   PortDir
	Width int
	// Class distinguishes "data" ports from "clock" ports within the same
	// direction; used by primitive_memory_sibling_feasible to exempt data
	// pins from the sibling-equality check (spec §4.6).
	Class string
}

// ChildSpec is one replicated child slot of a Mode.
type ChildSpec struct {
	Type  *PbType
	NumPb int
}

// Mode is one configuration a non-primitive pb-type can be placed in.
// Wire is called once per expanded node after its children are built; it
// is responsible for adding the internal interconnect edges (pack-pattern
// wiring) between this node's ports and its children's ports. Wire may be
// nil for a mode with no meaningful internal connectivity.
type Mode struct {
	Name     string
	Children []ChildSpec
	Wire     func(n *PbGraphNode)
}

// PbType is the architectural template for a position in the hierarchy:
// either a primitive (Model != "", Modes == nil) or a composite with one
// or more Modes.
type PbType struct {
	Name  string
	Modes []Mode
	Ports []PortSpec
	Model Model
	Class Class
	// BlifModel mirrors the architecture file's primitive identifier
	// (e.g. ".names", ".latch"); empty for composite pb-types.
	BlifModel string
}

// IsPrimitive reports whether t has no modes, i.e. is a leaf of the
// hierarchy that directly instantiates a Model.
func (t *PbType) IsPrimitive() bool { return len(t.Modes) == 0 }

// NumModes returns the number of modes t can be configured in. A
// primitive pb-type always has zero modes, matching spec §3
// ("num_modes == 0" identifies a primitive pb-type).
func (t *PbType) NumModes() int { return len(t.Modes) }

// PortByName returns the port named name and true, or the zero value and
// false if t has no such port.
func (t *PbType) PortByName(name string) (PortSpec, bool) {
	for _, p := range t.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortSpec{}, false
}
