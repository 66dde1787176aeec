// Package seed implements the seed selector (spec §4.5, component 5):
// picks the molecule that opens each new cluster, under one of three
// configurable policies.
package seed

import (
	"sort"

	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/pctx"
)

// Selector orders every atom once at construction and advances an index
// into that order as atoms get clustered, matching spec §4.5: "The
// selector maintains an index into its sorted array; when asked for the
// next seed it advances past atoms that are already clustered."
type Selector struct {
	ctx   *pctx.Context
	order []atom.ID
	idx   int
}

// New builds a Selector over every atom in ctx.Netlist, ranked by
// ctx.Config.ClusterSeed.
func New(ctx *pctx.Context) *Selector {
	s := &Selector{ctx: ctx}
	atoms := ctx.Netlist.Atoms()
	s.order = make([]atom.ID, len(atoms))
	for i, a := range atoms {
		s.order[i] = a.ID
	}

	switch ctx.Config.ClusterSeed {
	case pctx.MaxInputs:
		s.sortByMaxInputs()
	case pctx.Timing:
		s.sortByTiming()
	default:
		s.sortByBlend()
	}
	return s
}

func (s *Selector) sortByMaxInputs() {
	sort.SliceStable(s.order, func(i, j int) bool {
		ai, _ := s.ctx.Netlist.Atom(s.order[i])
		aj, _ := s.ctx.Netlist.Atom(s.order[j])
		if ai.NumExtInputs() != aj.NumExtInputs() {
			return ai.NumExtInputs() > aj.NumExtInputs()
		}
		return s.order[i] < s.order[j]
	})
}

func (s *Selector) maxCriticality(a *atom.Atom) float64 {
	best := 0.0
	for _, p := range a.Ports {
		for bit, netID := range p.Nets {
			if netID == atom.NoNet {
				continue
			}
			g := s.ctx.Timing.SetupPinCriticality(atom.PinRef{Atom: a.ID, Port: p.Name, Bit: bit})
			if g > best {
				best = g
			}
		}
	}
	return best
}

func (s *Selector) sortByTiming() {
	sort.SliceStable(s.order, func(i, j int) bool {
		ai, _ := s.ctx.Netlist.Atom(s.order[i])
		aj, _ := s.ctx.Netlist.Atom(s.order[j])
		ci, cj := s.maxCriticality(ai), s.maxCriticality(aj)
		if ci != cj {
			return ci > cj
		}
		return s.order[i] < s.order[j]
	})
}

// blendFactor is VPR's fixed f = 0.5 weight between criticality and
// normalized external-input count (spec §4.5).
const blendFactor = 0.5

func (s *Selector) sortByBlend() {
	maxInputs := 1
	for _, a := range s.ctx.Netlist.Atoms() {
		if n := a.NumExtInputs(); n > maxInputs {
			maxInputs = n
		}
	}

	blend := make(map[atom.ID]float64, len(s.order))
	for _, a := range s.ctx.Netlist.Atoms() {
		crit := s.maxCriticality(a)
		best := 0.0
		for _, m := range s.ctx.Molecules.ValidMoleculesFor(a.ID) {
			v := (blendFactor*crit + (1-blendFactor)*float64(m.NumExtInputs)/float64(maxInputs)) *
				(1 + 0.2*float64(len(m.Atoms())-1))
			if v > best {
				best = v
			}
		}
		blend[a.ID] = best
	}

	sort.SliceStable(s.order, func(i, j int) bool {
		if blend[s.order[i]] != blend[s.order[j]] {
			return blend[s.order[i]] > blend[s.order[j]]
		}
		return s.order[i] < s.order[j]
	})
}

// Next advances past already-clustered atoms and returns the highest
// remaining-priority molecule of the next seed atom: among that atom's
// valid molecules, the one with the largest BaseGain (spec §4.5). ok is
// false once every atom has been clustered.
func (s *Selector) Next() (*atom.Molecule, bool) {
	for s.idx < len(s.order) {
		a := s.order[s.idx]
		if s.ctx.Locations.AtomCluster(a) != atom.NoCluster {
			s.idx++
			continue
		}
		molecules := s.ctx.Molecules.ValidMoleculesFor(a)
		if len(molecules) == 0 {
			s.idx++
			continue
		}
		best := molecules[0]
		for _, m := range molecules[1:] {
			if m.BaseGain > best.BaseGain {
				best = m
			}
		}
		return best, true
	}
	return nil, false
}

// Mark saves the current index so it can be restored by Restore — used
// when the controller discards a cluster and must retry from the same
// seed (spec §4.7 step 4: "unadvance the seed index to the saved
// value").
func (s *Selector) Mark() int { return s.idx }

// Restore resets the selector's index to a value previously returned by
// Mark.
func (s *Selector) Restore(mark int) { s.idx = mark }
