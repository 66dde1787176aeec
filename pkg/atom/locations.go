package atom

// ClusterID identifies a cluster (CLB) by its position in the
// controller's output list. NoCluster marks an atom not yet committed.
type ClusterID int

// NoCluster is the sentinel ClusterID for an unplaced atom.
const NoCluster ClusterID = -1

// PbRef is an opaque, non-owning reference to a pb instance inside some
// cluster's arena (spec §9: "back-references are non-owning indices into
// a per-cluster arena, not raw pointers"). The cluster package assigns
// these; atom package only stores and looks them up. NoPb marks an atom
// not currently assigned to any pb.
type PbRef int

// NoPb is the sentinel PbRef for an atom with no current pb.
const NoPb PbRef = -1

// Locations is the mutable atom→cluster and atom↔pb mapping (spec §4.1).
// SetAtomPb always keeps the reverse pb→atom map in lockstep so
// PbAtom(AtomPb(a)) == a holds for every mapped atom (spec §3's
// lifetimes invariant) — the two directions are never writable
// independently (spec §9's design note).
type Locations struct {
	atomCluster map[ID]ClusterID
	atomPb      map[ID]PbRef
	pbAtom      map[PbRef]ID
}

// NewLocations creates an empty mapping.
func NewLocations() *Locations {
	return &Locations{
		atomCluster: map[ID]ClusterID{},
		atomPb:      map[ID]PbRef{},
		pbAtom:      map[PbRef]ID{},
	}
}

// SetAtomCluster maps atom a to cluster c, or to NoCluster to unmap it.
func (l *Locations) SetAtomCluster(a ID, c ClusterID) { l.atomCluster[a] = c }

// AtomCluster returns the cluster atom a is committed to, or NoCluster.
func (l *Locations) AtomCluster(a ID) ClusterID {
	if c, ok := l.atomCluster[a]; ok {
		return c
	}
	return NoCluster
}

// SetAtomPb maps atom a to pb p (or to NoPb to unmap it), updating the
// reverse mapping in the same call so the two sides never diverge.
func (l *Locations) SetAtomPb(a ID, p PbRef) {
	if old, ok := l.atomPb[a]; ok && old != NoPb {
		delete(l.pbAtom, old)
	}
	if p == NoPb {
		delete(l.atomPb, a)
		return
	}
	l.atomPb[a] = p
	l.pbAtom[p] = a
}

// AtomPb returns the pb atom a currently occupies, or NoPb.
func (l *Locations) AtomPb(a ID) PbRef {
	if p, ok := l.atomPb[a]; ok {
		return p
	}
	return NoPb
}

// PbAtom returns the atom occupying pb p, and true if p is occupied.
func (l *Locations) PbAtom(p PbRef) (ID, bool) {
	a, ok := l.pbAtom[p]
	return a, ok
}
