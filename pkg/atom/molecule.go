package atom

import "github.com/matzehuels/fpgapack/pkg/arch"

// MoleculeID identifies a molecule.
type MoleculeID int

// NoAtom marks an empty molecule slot.
const NoAtom ID = -1

// Molecule is a maximal rigid group of atoms that must be packed
// together (spec §3), e.g. a carry chain or a LUT+FF BLE pair.
type Molecule struct {
	ID      MoleculeID
	Pattern string // pack-pattern identifier, e.g. "ble", "chain"
	IsChain bool

	// Slots is the ordered array of atom slots; NoAtom marks an empty
	// slot.
	Slots    []ID
	RootSlot int

	// ChainRootPin is the dedicated inter-cluster carry input pin a
	// chain molecule's root atom must land on when its chain input
	// connects to a net (spec §3, §4.6). Nil for non-chain molecules or
	// chains whose root never needs to cross a cluster boundary.
	ChainRootPin *arch.PbGraphPin
	// ChainRootPort names the root atom's port that carries the chain
	// signal into ChainRootPin.
	ChainRootPort string

	BaseGain     float64
	NumExtInputs int

	// Valid is false once any atom of this molecule has been committed
	// to a cluster (spec §3's invariant).
	Valid bool
}

// Atoms returns the non-empty atom IDs in slot order.
func (m *Molecule) Atoms() []ID {
	out := make([]ID, 0, len(m.Slots))
	for _, a := range m.Slots {
		if a != NoAtom {
			out = append(out, a)
		}
	}
	return out
}

// Store is the multimap from atom to the molecules containing it, with
// valid-flag mutation rights held by the packer (spec §4.1, §6).
type Store struct {
	molecules map[MoleculeID]*Molecule
	byAtom    map[ID][]*Molecule
	order     []MoleculeID
}

// NewStore creates an empty molecule store.
func NewStore() *Store {
	return &Store{molecules: map[MoleculeID]*Molecule{}, byAtom: map[ID][]*Molecule{}}
}

// Add registers a molecule and indexes it by every atom it contains.
// Molecules start Valid.
func (s *Store) Add(m *Molecule) {
	m.Valid = true
	s.molecules[m.ID] = m
	s.order = append(s.order, m.ID)
	for _, a := range m.Atoms() {
		s.byAtom[a] = append(s.byAtom[a], m)
	}
}

// Molecule returns the molecule with the given ID.
func (s *Store) Molecule(id MoleculeID) (*Molecule, bool) {
	m, ok := s.molecules[id]
	return m, ok
}

// All returns every registered molecule (valid or not) in registration
// order, the order ReadNetlist's file declarations were processed in.
func (s *Store) All() []*Molecule {
	out := make([]*Molecule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.molecules[id])
	}
	return out
}

// AllOf returns every molecule (valid or not) containing atom a, in
// registration order.
func (s *Store) AllOf(a ID) []*Molecule { return s.byAtom[a] }

// ValidMoleculesFor yields every still-valid molecule containing atom a
// (spec §4.1): "Used by the gain engine to turn 'this atom looks good'
// into concrete molecule candidates."
func (s *Store) ValidMoleculesFor(a ID) []*Molecule {
	var out []*Molecule
	for _, m := range s.byAtom[a] {
		if m.Valid {
			out = append(out, m)
		}
	}
	return out
}

// InvalidateMoleculesOf marks every molecule containing atom a as
// invalid. Called when a is committed to a cluster (spec §4.1).
func (s *Store) InvalidateMoleculesOf(a ID) {
	for _, m := range s.byAtom[a] {
		m.Valid = false
	}
}

// RevalidateAtoms re-validates every molecule all of whose atoms are
// currently free, for each atom in atoms. Called on rollback with the
// atoms recovered by walking back up a discarded pb subtree (spec
// §4.1's revalidate_molecules_of); the free-check itself is supplied by
// isFree so this package stays independent of the cluster package.
func (s *Store) RevalidateAtoms(atoms []ID, isFree func(ID) bool) {
	seen := map[MoleculeID]bool{}
	for _, a := range atoms {
		for _, m := range s.byAtom[a] {
			if seen[m.ID] || m.Valid {
				continue
			}
			seen[m.ID] = true
			allFree := true
			for _, atomID := range m.Atoms() {
				if !isFree(atomID) {
					allFree = false
					break
				}
			}
			if allFree {
				m.Valid = true
			}
		}
	}
}
