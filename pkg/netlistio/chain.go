package netlistio

import (
	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
)

// ResolveChainRootPins populates ChainRootPin on every chain molecule in
// store now that av's expanded pb-graph is available. ReadNetlist runs
// before the architecture is parsed, so buildMolecules can only stash
// the root port's name (spec §4.6 step 3's chain_root_pin); callers
// that load both files must call this once, after both, before packing.
func ResolveChainRootPins(store *atom.Store, nl *atom.Netlist, av *arch.View) {
	for _, m := range store.All() {
		if !m.IsChain || m.ChainRootPort == "" {
			continue
		}
		if m.RootSlot < 0 || m.RootSlot >= len(m.Slots) {
			continue
		}
		rootAtomID := m.Slots[m.RootSlot]
		a, ok := nl.Atom(rootAtomID)
		if !ok {
			continue
		}
		pin, ok := av.ChainRootPin(a.Model, m.ChainRootPort)
		if !ok {
			continue
		}
		m.ChainRootPin = pin
	}
}
