package arch

// PinID uniquely identifies a PbGraphPin within one expanded architecture.
type PinID int

// PbGraphPin is one instantiated port-bit: a single wire at a fixed
// position in the hierarchy.
type PbGraphPin struct {
	ID   PinID
	Node *PbGraphNode
	// Port is the owning port's specification. PortIndex is that port's
	// position in Node's Ports list and doubles as the pin-class index
	// for capacity bookkeeping (spec §3's "pin class"): every bit of the
	// same port shares one class.
	Port      *PortSpec
	PortIndex int
	Bit       int
	Dir       PortDir

	// drivesInternal holds direct wires from this pin to sibling/parent
	// pins within the same enclosing pb, added by a Mode's Wire function.
	// It is the pack-pattern interconnect spec §4.6 refers to ("same
	// internal interconnect as the pattern that produced the molecule").
	drivesInternal []*PbGraphPin
	drivenByParent []*PbGraphPin
}

// ConnectTo records a direct internal wire from p (an output-capable pin)
// to sink (an input-capable pin) within the pb-type mode currently being
// wired. Both pins must belong to nodes under the same parent pb-graph
// node (siblings, or a child and its parent). Called from a Mode's Wire
// function; not meant for use once Expand has returned.
func (p *PbGraphPin) ConnectTo(sink *PbGraphPin) {
	p.drivesInternal = append(p.drivesInternal, sink)
	sink.drivenByParent = append(sink.drivenByParent, p)
}

// DrivesInternal returns the pins p wires directly to within its
// enclosing pb-type mode.
func (p *PbGraphPin) DrivesInternal() []*PbGraphPin { return p.drivesInternal }

// DrivenBy returns the pins that wire directly into p within its
// enclosing pb-type mode.
func (p *PbGraphPin) DrivenBy() []*PbGraphPin { return p.drivenByParent }

// PbGraphNode is an instantiated position in the architecture tree: a
// specific placement index of a PbType under a specific parent. Immutable
// once Expand returns.
type PbGraphNode struct {
	ID             int
	PbType         *PbType
	PlacementIndex int
	Parent         *PbGraphNode

	InputPins  []*PbGraphPin
	OutputPins []*PbGraphPin
	ClockPins  []*PbGraphPin

	// Children is indexed [mode][childType][instance]. Only the slice for
	// the mode actually selected during packing is walked; the others
	// exist so any mode can be attempted (spec §4.7 "try every mode").
	Children [][][]*PbGraphNode

	Depth       int
	TotalPbPins int
}

// AllPins returns every pin owned directly by n, input before output
// before clock, in port-declaration order — the stable order packer
// iteration relies on for determinism (spec §5).
func (n *PbGraphNode) AllPins() []*PbGraphPin {
	out := make([]*PbGraphPin, 0, len(n.InputPins)+len(n.OutputPins)+len(n.ClockPins))
	out = append(out, n.InputPins...)
	out = append(out, n.OutputPins...)
	out = append(out, n.ClockPins...)
	return out
}

// IsPrimitive reports whether n instantiates a primitive (leaf) pb-type.
func (n *PbGraphNode) IsPrimitive() bool { return n.PbType.IsPrimitive() }

// ChildrenOf returns the instantiated children of n under the given mode
// index and child-type index (position within that mode's Children
// list), or nil if out of range.
func (n *PbGraphNode) ChildrenOf(mode, childType int) []*PbGraphNode {
	if mode < 0 || mode >= len(n.Children) {
		return nil
	}
	if childType < 0 || childType >= len(n.Children[mode]) {
		return nil
	}
	return n.Children[mode][childType]
}

// builder expands a PbType tree into a PbGraphNode tree, assigning
// sequential PinID/node IDs for deterministic iteration.
type builder struct {
	nextPin  PinID
	nextNode int
}

// Expand instantiates one PbGraphNode tree rooted at root, replicating
// every mode's children NumPb times and invoking each mode's Wire
// callback after its children are built. depth 0 is the root.
func Expand(root *PbType) *PbGraphNode {
	b := &builder{}
	return b.expand(root, nil, 0, 0)
}

// ExpandAll instantiates one independent PbGraphNode tree per block
// type, sharing a single ID/PinID counter across all of them so every
// node and pin in the resulting set is uniquely identified — used when
// an architecture defines several top-level block types (CLB, DSP,
// BRAM, ...) that the controller tries in turn (spec §4.7 step 2).
func ExpandAll(blockTypes []*PbType) []*PbGraphNode {
	b := &builder{}
	roots := make([]*PbGraphNode, len(blockTypes))
	for i, t := range blockTypes {
		roots[i] = b.expand(t, nil, 0, 0)
	}
	return roots
}

func (b *builder) expand(t *PbType, parent *PbGraphNode, placementIndex, depth int) *PbGraphNode {
	n := &PbGraphNode{
		ID:             b.nextNode,
		PbType:         t,
		PlacementIndex: placementIndex,
		Parent:         parent,
		Depth:          depth,
	}
	b.nextNode++

	for i, p := range t.Ports {
		for bit := 0; bit < p.Width; bit++ {
			pin := &PbGraphPin{ID: b.nextPin, Node: n, Port: &t.Ports[i], PortIndex: i, Bit: bit, Dir: p.Dir}
			b.nextPin++
			switch p.Dir {
			case In:
				n.InputPins = append(n.InputPins, pin)
			case Out:
				n.OutputPins = append(n.OutputPins, pin)
			case Clock:
				n.ClockPins = append(n.ClockPins, pin)
			}
		}
	}
	n.TotalPbPins = len(n.InputPins) + len(n.OutputPins) + len(n.ClockPins)

	if !t.IsPrimitive() {
		n.Children = make([][][]*PbGraphNode, len(t.Modes))
		for m, mode := range t.Modes {
			n.Children[m] = make([][]*PbGraphNode, len(mode.Children))
			for ct, cs := range mode.Children {
				instances := make([]*PbGraphNode, cs.NumPb)
				for inst := 0; inst < cs.NumPb; inst++ {
					instances[inst] = b.expand(cs.Type, n, inst, depth+1)
				}
				n.Children[m][ct] = instances
			}
			if mode.Wire != nil {
				mode.Wire(n)
			}
		}
	}

	return n
}
