// Package atom holds the immutable atom netlist and the pre-computed
// rigid molecules it packs into, plus the mutable atom→cluster mapping
// the controller advances as it commits and rolls back placements
// (spec §4.1, component 1).
package atom

import "github.com/matzehuels/fpgapack/pkg/arch"

// ID identifies an atom. IDs are assigned in netlist load order and that
// order is the stable iteration order spec §5 requires ("stable atom-id
// ordering, never iteration orders over hash tables").
type ID int

// NetID identifies an atom net. NoNet marks an unconnected pin.
type NetID int

// NoNet is the sentinel NetID for an unconnected pin.
const NoNet NetID = -1

// Pin is one bit of one named port on one atom.
type Pin struct {
	Port string
	Bit  int
}

// Port mirrors arch.PortSpec but scoped to one atom: its width and
// direction come from the model, its per-bit net connections are the
// netlist data.
type Port struct {
	Name  string
	Dir   arch.PortDir
	Width int
	Class string
	// Nets holds one NetID per bit, NoNet where unconnected.
	Nets []NetID
}

// Atom is an immutable primitive logic element: a model identifier plus
// an ordered list of named, typed, connected ports (spec §3). Name is
// the netlist instance name a placed pb inherits (spec §3's Pb "name"
// field, VPR's block_name) and purely cosmetic for packing decisions.
type Atom struct {
	ID    ID
	Name  string
	Model arch.Model
	Ports []Port
}

// PortByName returns the named port and true, or the zero value and
// false.
func (a *Atom) PortByName(name string) (Port, bool) {
	for _, p := range a.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Net returns the net connected to (port, bit), or NoNet if unconnected
// or the pin doesn't exist.
func (a *Atom) Net(port string, bit int) NetID {
	p, ok := a.PortByName(port)
	if !ok || bit < 0 || bit >= len(p.Nets) {
		return NoNet
	}
	return p.Nets[bit]
}

// UsedPins returns the number of connected pins across all ports —
// used_pins(b) in the gain blend (spec §4.4), never less than 1 for a
// connected atom.
func (a *Atom) UsedPins() int {
	n := 0
	for _, p := range a.Ports {
		for _, net := range p.Nets {
			if net != NoNet {
				n++
			}
		}
	}
	return n
}

// NumExtInputs returns the count of connected input pins (used as the
// per-atom external-input count feeding the seed selector's MAX_INPUTS
// policy and the gain engine's hillgain baseline).
func (a *Atom) NumExtInputs() int {
	n := 0
	for _, p := range a.Ports {
		if p.Dir != arch.In {
			continue
		}
		for _, net := range p.Nets {
			if net != NoNet {
				n++
			}
		}
	}
	return n
}

// InputPinCount and OutputPinCount mirror VPR's block_input_pins /
// block_output_pins used_pins denominator (spec §4.4's update_total_gain
// normalizes by input+output pin count, not just connected ones).
func (a *Atom) InputPinCount() int  { return a.countDir(arch.In) }
func (a *Atom) OutputPinCount() int { return a.countDir(arch.Out) }

func (a *Atom) countDir(dir arch.PortDir) int {
	n := 0
	for _, p := range a.Ports {
		if p.Dir == dir {
			n += p.Width
		}
	}
	return n
}

// PinRef names one connected pin instance: an atom, a port, a bit.
type PinRef struct {
	Atom ID
	Port string
	Bit  int
}

// Net is a directed hyperedge: one driver pin, zero or more sink pins.
// Global nets (spec §3) are typically clocks; they do not participate in
// gain computation and must not mix with non-global signals.
type Net struct {
	ID     NetID
	Driver *PinRef // nil if the net has no driver (e.g. a true primary input)
	Sinks  []PinRef
	Global bool
}

// Netlist is the full, immutable atom graph.
type Netlist struct {
	atoms  map[ID]*Atom
	order  []ID // load order, stable iteration order
	nets   map[NetID]*Net
	netOrd []NetID
}

// New creates an empty Netlist for incremental construction.
func New() *Netlist {
	return &Netlist{atoms: map[ID]*Atom{}, nets: map[NetID]*Net{}}
}

// AddAtom registers an atom. Atoms are immutable once added; callers
// must fully populate Ports (including net connections) before calling.
func (nl *Netlist) AddAtom(a *Atom) {
	if _, exists := nl.atoms[a.ID]; !exists {
		nl.order = append(nl.order, a.ID)
	}
	nl.atoms[a.ID] = a
}

// AddNet registers a net.
func (nl *Netlist) AddNet(n *Net) {
	if _, exists := nl.nets[n.ID]; !exists {
		nl.netOrd = append(nl.netOrd, n.ID)
	}
	nl.nets[n.ID] = n
}

// Atom returns the atom with the given ID and true, or nil and false.
func (nl *Netlist) Atom(id ID) (*Atom, bool) {
	a, ok := nl.atoms[id]
	return a, ok
}

// Net returns the net with the given ID and true, or nil and false.
func (nl *Netlist) Net(id NetID) (*Net, bool) {
	n, ok := nl.nets[id]
	return n, ok
}

// Atoms returns every atom in stable load order.
func (nl *Netlist) Atoms() []*Atom {
	out := make([]*Atom, 0, len(nl.order))
	for _, id := range nl.order {
		out = append(out, nl.atoms[id])
	}
	return out
}

// Nets returns every net in stable load order.
func (nl *Netlist) Nets() []*Net {
	out := make([]*Net, 0, len(nl.netOrd))
	for _, id := range nl.netOrd {
		out = append(out, nl.nets[id])
	}
	return out
}

// NetPins returns every pin on a net, driver first then sinks in order —
// mirrors AtomNetlist::net_pins in original_source.
func (nl *Netlist) NetPins(id NetID) []PinRef {
	n, ok := nl.nets[id]
	if !ok {
		return nil
	}
	out := make([]PinRef, 0, len(n.Sinks)+1)
	if n.Driver != nil {
		out = append(out, *n.Driver)
	}
	out = append(out, n.Sinks...)
	return out
}
