// Package placement tracks, for the cluster currently under
// construction, which primitive positions in the candidate CLB are
// still free, committed, or merely tried-and-rejected since the last
// reset (spec §4.3, component 3).
package placement

import (
	"sort"
	"strconv"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
)

// Stats is one block type's free/committed primitive bookkeeping for
// the cluster currently open. A fresh Stats is created by Reset each
// time the controller opens a new cluster of a given type (spec §4.3).
type Stats struct {
	view *arch.View
	root *arch.PbGraphNode

	free      map[*arch.PbGraphNode]bool
	committed map[*arch.PbGraphNode]bool

	// parentFreeCount[p] is the number of currently free primitive
	// descendants under parent p, used to prefer combinations that land
	// in an already-partially-used neighborhood (spec §4.3's ordering
	// rule) over spreading molecules across fresh sub-blocks.
	parentFreeCount map[*arch.PbGraphNode]int

	tried map[string]bool
}

// NewStats creates a Stats bound to view, the architecture-derived
// feasibility facts it consults for model compatibility.
func NewStats(view *arch.View) *Stats {
	return &Stats{view: view}
}

// Reset reinitializes Stats for a freshly opened cluster rooted at
// root: every primitive under root starts free, every tried-combination
// record is cleared.
func (s *Stats) Reset(root *arch.PbGraphNode) {
	s.root = root
	s.free = map[*arch.PbGraphNode]bool{}
	s.committed = map[*arch.PbGraphNode]bool{}
	s.parentFreeCount = map[*arch.PbGraphNode]int{}
	s.tried = map[string]bool{}
	s.markFree(root)
}

func (s *Stats) markFree(n *arch.PbGraphNode) {
	if n.IsPrimitive() {
		s.free[n] = true
		if n.Parent != nil {
			s.parentFreeCount[n.Parent]++
		}
		return
	}
	for _, byType := range n.Children {
		for _, insts := range byType {
			for _, c := range insts {
				s.markFree(c)
			}
		}
	}
}

// SetMode restricts the free set to descendants of node's selected
// mode: once a mode is chosen for an ancestor pb, its other modes'
// primitives can never be occupied in this cluster instance (spec §4.3).
func (s *Stats) SetMode(node *arch.PbGraphNode, mode int) {
	for m, byType := range node.Children {
		if m == mode {
			continue
		}
		for _, insts := range byType {
			for _, c := range insts {
				s.removeFree(c)
			}
		}
	}
}

func (s *Stats) removeFree(n *arch.PbGraphNode) {
	if n.IsPrimitive() {
		if s.free[n] {
			delete(s.free, n)
			if n.Parent != nil {
				s.parentFreeCount[n.Parent]--
			}
		}
		return
	}
	for _, byType := range n.Children {
		for _, insts := range byType {
			for _, c := range insts {
				s.removeFree(c)
			}
		}
	}
}

// ExistsFreePrimitiveForAtom is a fast feasibility prefilter: does any
// free primitive anywhere under root accept a's model (spec §4.3).
func (s *Stats) ExistsFreePrimitiveForAtom(a *atom.Atom) bool {
	for _, t := range s.view.CanHost(a.Model) {
		for n := range s.free {
			if n.PbType == t {
				return true
			}
		}
	}
	return false
}

// CommitPrimitive moves node from free to committed.
func (s *Stats) CommitPrimitive(node *arch.PbGraphNode) {
	if s.free[node] {
		delete(s.free, node)
		if node.Parent != nil {
			s.parentFreeCount[node.Parent]--
		}
	}
	s.committed[node] = true
}

// ResetTriedButUnused clears the tried-combination record, letting
// GetNextPrimitiveList revisit combinations it has already returned —
// used when the caller wants to retry a molecule against the same free
// set after an unrelated change (spec §4.3).
func (s *Stats) ResetTriedButUnused() {
	s.tried = map[string]bool{}
}

// GetNextPrimitiveList returns an ordered array of free primitive
// pb-graph nodes, one per non-empty slot of m, that have not been
// returned together since the last ResetTriedButUnused, or ok=false
// once every combination has been tried (spec §4.3).
//
// Shape matching against m's originating pack pattern is simplified to
// a single rule: every slot of a multi-atom molecule must resolve to a
// primitive sharing one common immediate parent pb, so a molecule's
// atoms always consolidate into one sibling group rather than scatter
// across the cluster. A single-atom molecule has no shape constraint
// beyond model compatibility.
func (s *Stats) GetNextPrimitiveList(m *atom.Molecule, nl *atom.Netlist) ([]*arch.PbGraphNode, bool) {
	atoms := m.Atoms()
	if len(atoms) == 0 {
		return nil, false
	}

	candidatesPerSlot := make([][]*arch.PbGraphNode, len(atoms))
	for i, aid := range atoms {
		a, ok := nl.Atom(aid)
		if !ok {
			return nil, false
		}
		candidatesPerSlot[i] = s.freePrimitivesFor(a)
	}

	combos := s.combinations(candidatesPerSlot)
	if len(combos) == 0 {
		return nil, false
	}

	sort.Slice(combos, func(i, j int) bool {
		si, sj := s.comboScore(combos[i]), s.comboScore(combos[j])
		if si != sj {
			return si < sj
		}
		for k := range combos[i] {
			if combos[i][k].ID != combos[j][k].ID {
				return combos[i][k].ID < combos[j][k].ID
			}
		}
		return false
	})

	for _, combo := range combos {
		key := comboKey(combo)
		if s.tried[key] {
			continue
		}
		s.tried[key] = true
		return combo, true
	}
	return nil, false
}

func (s *Stats) freePrimitivesFor(a *atom.Atom) []*arch.PbGraphNode {
	var out []*arch.PbGraphNode
	for _, t := range s.view.CanHost(a.Model) {
		for n := range s.free {
			if n.PbType == t {
				out = append(out, n)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// combinations returns ways to pick one distinct node per slot. For a
// single slot it returns one combination per candidate node. For more
// than one slot all chosen nodes share a single immediate parent, and it
// returns at most one combination per parent, taking for each slot the
// first candidate not already used; other assignments under the same
// parent are not enumerated.
func (s *Stats) combinations(perSlot [][]*arch.PbGraphNode) [][]*arch.PbGraphNode {
	if len(perSlot) == 1 {
		out := make([][]*arch.PbGraphNode, len(perSlot[0]))
		for i, n := range perSlot[0] {
			out[i] = []*arch.PbGraphNode{n}
		}
		return out
	}

	byParent := map[*arch.PbGraphNode][][]*arch.PbGraphNode{}
	for slot, nodes := range perSlot {
		for _, n := range nodes {
			byParent[n.Parent] = appendAt(byParent[n.Parent], slot, n, len(perSlot))
		}
	}

	var out [][]*arch.PbGraphNode
	for _, slots := range byParent {
		combo := make([]*arch.PbGraphNode, len(perSlot))
		used := map[int]bool{}
		ok := true
		for slot, candidates := range slots {
			var pick *arch.PbGraphNode
			for _, c := range candidates {
				if !used[c.ID] {
					pick = c
					break
				}
			}
			if pick == nil {
				ok = false
				break
			}
			combo[slot] = pick
			used[pick.ID] = true
		}
		if ok && allSet(combo) {
			out = append(out, combo)
		}
	}
	return out
}

func appendAt(rows [][]*arch.PbGraphNode, slot int, n *arch.PbGraphNode, numSlots int) [][]*arch.PbGraphNode {
	if rows == nil {
		rows = make([][]*arch.PbGraphNode, numSlots)
	}
	rows[slot] = append(rows[slot], n)
	return rows
}

func allSet(combo []*arch.PbGraphNode) bool {
	for _, c := range combo {
		if c == nil {
			return false
		}
	}
	return true
}

// comboScore prefers combinations landing under a neighborhood that is
// already more heavily used, i.e. has fewer free siblings remaining
// (spec §4.3's consolidation rule).
func (s *Stats) comboScore(combo []*arch.PbGraphNode) int {
	parents := map[*arch.PbGraphNode]bool{}
	for _, n := range combo {
		if n.Parent != nil {
			parents[n.Parent] = true
		}
	}
	total := 0
	for p := range parents {
		total += s.parentFreeCount[p]
	}
	return total
}

func comboKey(combo []*arch.PbGraphNode) string {
	var b []byte
	for _, n := range combo {
		b = strconv.AppendInt(b, int64(n.ID), 10)
		b = append(b, ',')
	}
	return string(b)
}
