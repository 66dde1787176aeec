// Package router defines the delegated intra-cluster router contract
// (spec §6). The packer core never routes a cluster itself — it hands a
// scoped handle to an external router and asks it to prove (or refute)
// routability, both mid-build (per-atom policy) and at cluster
// finalization (end-of-cluster policy).
package router

import "github.com/matzehuels/fpgapack/pkg/atom"

// Data is an opaque handle to one cluster's speculative routing state.
// Its lifetime is scoped: created on cluster open, destroyed on cluster
// finalize or discard (spec §5's "Scoped acquisition").
type Data interface{}

// Policy selects when the router is invoked during a cluster's build
// (spec §4.6 step 5, §4.7 step 4): AtEndOnly checks once at finalize,
// PerAtom checks after every successfully try-packed molecule — slower,
// but surfaces dead ends before the cluster is fully grown.
type Policy int

const (
	// AtEndOnly routes once, when the cluster is finalized.
	AtEndOnly Policy = iota
	// PerAtom routes after every successfully try-packed molecule.
	PerAtom
)

// Router is the external intra-cluster router contract (spec §6). Calls
// must nest in a stack discipline matching try_place_atom_recursive:
// AddAtomAsTarget/RemoveAtomFromTarget calls for one molecule's atoms are
// balanced before the next molecule is attempted.
type Router interface {
	// AllocAndLoad creates router data for a newly opened cluster of the
	// given block type.
	AllocAndLoad(blockType string) Data

	// SetResetPbModes toggles whether pb mode selections under root are
	// considered fixed (enable=false) or free to explore (enable=true)
	// for routing purposes.
	SetResetPbModes(d Data, enable bool)

	// AddAtomAsTarget adds atom a as a routing target.
	AddAtomAsTarget(d Data, a atom.ID)

	// RemoveAtomFromTarget removes atom a as a routing target — called
	// during rollback, LIFO with respect to AddAtomAsTarget (spec §4.6
	// step 7).
	RemoveAtomFromTarget(d Data, a atom.ID)

	// TryIntraLbRoute attempts to route every current target and
	// reports whether routing succeeded.
	TryIntraLbRoute(d Data) bool

	// FreeRouterData releases d. Guaranteed to be called exactly once
	// per AllocAndLoad, on either the finalize or the discard path.
	FreeRouterData(d Data)
}
