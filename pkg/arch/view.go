package arch

// View is the read-only, derived architecture view (spec §4.2): per-type
// feasibility facts and per-pin hierarchy reachability, computed once at
// startup from an expanded pb-graph and then consulted many times per
// packing run without further allocation.
type View struct {
	roots []*PbGraphNode

	hostable      map[Model][]*PbType
	maxPrimitives map[*PbType]int
	maxDepth      map[*PbType]int

	// ancestor[pin.ID][d] is the pin at depth d above pin (0 == pin
	// itself), or nil once the climb runs out of wiring.
	ancestor map[PinID][]*PbGraphPin

	// connectable[pin.ID][d] caches ConnectableInputs(pin, d).
	connectable map[PinID][][]*PbGraphPin

	// primitivesByModel[model] lists every primitive pb-graph node
	// instantiating model, in root-then-depth-first declaration order.
	primitivesByModel map[Model][]*PbGraphNode
}

// Build derives a View from one expanded pb-graph per top-level block
// type (spec §4.7: "Try every block type in order").
func Build(roots ...*PbGraphNode) *View {
	v := &View{
		roots:             roots,
		hostable:          map[Model][]*PbType{},
		maxPrimitives:     map[*PbType]int{},
		maxDepth:          map[*PbType]int{},
		ancestor:          map[PinID][]*PbGraphPin{},
		connectable:       map[PinID][][]*PbGraphPin{},
		primitivesByModel: map[Model][]*PbGraphNode{},
	}
	for _, root := range roots {
		v.indexHostable(root.PbType, map[*PbType]bool{})
		v.maxPrimitivesOf(root.PbType, map[*PbType]bool{})
		v.maxDepthOf(root.PbType, map[*PbType]bool{})
		v.indexPins(root)
	}
	return v
}

// Roots returns the expanded pb-graph root for every block type, in
// architecture declaration order.
func (v *View) Roots() []*PbGraphNode { return v.roots }

func (v *View) indexHostable(t *PbType, seen map[*PbType]bool) {
	if seen[t] {
		return
	}
	seen[t] = true
	if t.IsPrimitive() {
		v.hostable[t.Model] = append(v.hostable[t.Model], t)
		return
	}
	for _, m := range t.Modes {
		for _, c := range m.Children {
			v.indexHostable(c.Type, seen)
		}
	}
}

// CanHost returns every pb-type anywhere in the architecture that can
// directly instantiate model, i.e. "whether any block type can host it"
// (spec §4.2).
func (v *View) CanHost(model Model) []*PbType { return v.hostable[model] }

func (v *View) maxPrimitivesOf(t *PbType, seen map[*PbType]bool) int {
	if n, ok := v.maxPrimitives[t]; ok {
		return n
	}
	if seen[t] {
		return 0 // guard against pathological self-reference; real architectures are trees
	}
	seen[t] = true
	if t.IsPrimitive() {
		v.maxPrimitives[t] = 1
		return 1
	}
	best := 0
	for _, m := range t.Modes {
		total := 0
		for _, c := range m.Children {
			total += c.NumPb * v.maxPrimitivesOf(c.Type, seen)
		}
		if total > best {
			best = total
		}
	}
	v.maxPrimitives[t] = best
	return best
}

// MaxPrimitivesInPbType returns the largest number of primitives any mode
// of t can contain (spec §4.2).
func (v *View) MaxPrimitivesInPbType(t *PbType) int { return v.maxPrimitivesOf(t, map[*PbType]bool{}) }

func (v *View) maxDepthOf(t *PbType, seen map[*PbType]bool) int {
	if n, ok := v.maxDepth[t]; ok {
		return n
	}
	if seen[t] {
		return 0
	}
	seen[t] = true
	if t.IsPrimitive() {
		v.maxDepth[t] = 0
		return 0
	}
	best := 0
	for _, m := range t.Modes {
		for _, c := range m.Children {
			d := 1 + v.maxDepthOf(c.Type, seen)
			if d > best {
				best = d
			}
		}
	}
	v.maxDepth[t] = best
	return best
}

// MaxDepthOfPbType returns the deepest hierarchy level reachable under
// any mode of t (spec §4.2).
func (v *View) MaxDepthOfPbType(t *PbType) int { return v.maxDepthOf(t, map[*PbType]bool{}) }

// indexPins walks the whole expanded tree precomputing, for every pin,
// the chain of ancestor pins produced by following internal wiring
// upward one hierarchy level at a time.
func (v *View) indexPins(n *PbGraphNode) {
	if n.IsPrimitive() {
		v.primitivesByModel[n.PbType.Model] = append(v.primitivesByModel[n.PbType.Model], n)
	}
	for _, p := range n.AllPins() {
		v.ancestor[p.ID] = v.climb(p)
	}
	for _, mode := range n.Children {
		for _, insts := range mode {
			for _, child := range insts {
				v.indexPins(child)
			}
		}
	}
}

// climb returns [p, ancestor-at-1, ancestor-at-2, ...] stopping as soon
// as the wiring doesn't extend one more level up. Output pins climb via
// their drivesInternal edges (a child output wired out to a parent
// output port); input/clock pins climb via drivenByParent edges (a
// parent input port wired down into a child input).
func (v *View) climb(p *PbGraphPin) []*PbGraphPin {
	chain := []*PbGraphPin{p}
	cur := p
	for cur.Node.Parent != nil {
		parent := cur.Node.Parent
		var next *PbGraphPin
		if cur.Dir == Out {
			for _, d := range cur.drivesInternal {
				if d.Node == parent {
					next = d
					break
				}
			}
		} else {
			for _, d := range cur.drivenByParent {
				if d.Node == parent {
					next = d
					break
				}
			}
		}
		if next == nil {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// AncestorPin returns the pin at depth levels above pin, following
// internal wiring, and true if the wiring extends that far. depth 0
// returns pin itself. This is spec §4.2's
// "parent_pin_class[depth]" in pin-pointer form; callers use
// AncestorPin(pin, d).PortIndex for the pin-class index and
// AncestorPin(pin, d).Node for the enclosing pb at that depth.
func (v *View) AncestorPin(pin *PbGraphPin, depth int) (*PbGraphPin, bool) {
	chain := v.ancestor[pin.ID]
	if depth < 0 || depth >= len(chain) {
		return nil, false
	}
	return chain[depth], true
}

// ConnectableInputs returns the primitive input/clock pins reachable
// purely via internal wiring from the ancestor of outPin at the given
// depth (spec §4.2's list_of_connectable_input_pin_ptrs[depth]). Used by
// the lookahead to decide whether a sink can be absorbed entirely inside
// the current cluster without consuming an external pin.
func (v *View) ConnectableInputs(outPin *PbGraphPin, depth int) []*PbGraphPin {
	if cached, ok := v.connectable[outPin.ID]; ok && depth < len(cached) && cached[depth] != nil {
		return cached[depth]
	}
	start, ok := v.AncestorPin(outPin, depth)
	if !ok {
		return nil
	}
	seen := map[PinID]bool{}
	var reachable []*PbGraphPin
	var visit func(p *PbGraphPin)
	visit = func(p *PbGraphPin) {
		if seen[p.ID] {
			return
		}
		seen[p.ID] = true
		if p.Node.IsPrimitive() && p != start && (p.Dir == In || p.Dir == Clock) {
			reachable = append(reachable, p)
		}
		for _, d := range p.drivesInternal {
			visit(d)
		}
	}
	visit(start)

	cached, ok := v.connectable[outPin.ID]
	if !ok {
		cached = make([][]*PbGraphPin, len(v.ancestor[outPin.ID]))
		v.connectable[outPin.ID] = cached
	}
	if depth < len(cached) {
		cached[depth] = reachable
		if reachable == nil {
			cached[depth] = []*PbGraphPin{} // mark computed even if empty
		}
	}
	return reachable
}

// ChainRootPin returns the dedicated chain-root pin (spec §3, §4.6 step
// 3) a chain molecule whose root atom has the given model must land on:
// the named port's bit 0 on the first primitive instantiating model
// found while walking the expanded pb-graph, in root-declaration then
// depth-first order. Every instance of a primitive type is
// structurally identical, so "first found" is an arbitrary but stable
// choice of the one position a chain is allowed to cross a cluster
// boundary through.
func (v *View) ChainRootPin(model Model, port string) (*PbGraphPin, bool) {
	nodes := v.primitivesByModel[model]
	if len(nodes) == 0 {
		return nil, false
	}
	for _, p := range nodes[0].AllPins() {
		if p.Port.Name == port && p.Bit == 0 {
			return p, true
		}
	}
	return nil, false
}
