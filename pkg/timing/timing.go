// Package timing models the external timing analyzer the packer reads
// setup-pin criticalities from (spec §4.4, §6). The analyzer itself —
// delay calculation, slack propagation — is out of scope (spec §1); this
// package only defines the contract and two adapters simple enough to
// drive from a file or from nothing at all.
package timing

import "github.com/matzehuels/fpgapack/pkg/atom"

// Source reports setup-pin criticality in [0, 1] for a sink pin,
// mirroring original_source's SetupTimingInfo::setup_pin_criticality.
type Source interface {
	SetupPinCriticality(pin atom.PinRef) float64
}

// Zero is the Source used when --timing_driven_clustering=false: every
// pin has zero criticality, so timing never influences gain or seeding.
type Zero struct{}

// SetupPinCriticality always returns 0.
func (Zero) SetupPinCriticality(atom.PinRef) float64 { return 0 }

// Static serves criticalities from a fixed table, for tests and for
// standalone runs driven by a side file of precomputed values (spec
// §4.8's StaticTimingSource).
type Static struct {
	values map[atom.PinRef]float64
}

// NewStatic creates a Static source from a pin→criticality table.
func NewStatic(values map[atom.PinRef]float64) *Static {
	cp := make(map[atom.PinRef]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Static{values: cp}
}

// Set assigns pin's criticality.
func (s *Static) Set(pin atom.PinRef, criticality float64) {
	if s.values == nil {
		s.values = map[atom.PinRef]float64{}
	}
	s.values[pin] = criticality
}

// SetupPinCriticality returns the stored criticality for pin, or 0 if
// unset.
func (s *Static) SetupPinCriticality(pin atom.PinRef) float64 {
	return s.values[pin]
}

var (
	_ Source = Zero{}
	_ Source = (*Static)(nil)
)
