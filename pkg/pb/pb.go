// Package pb holds the mutable cluster-construction tree (spec §3's "Pb
// (cluster node)"): a per-cluster arena of Pb instances mirroring the
// architecture's pb-graph shape, their routing entries, and the
// pb-stats gain-engine scratch state that lives only while a cluster is
// being built.
package pb

import (
	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
)

// Ref is a non-owning index into an Arena (spec §9: "back-references
// are non-owning indices into a per-cluster arena, not raw pointers").
// The zero value refers to an arena's first pb; NoRef marks "no pb".
type Ref int

// NoRef is the sentinel Ref for "no pb".
const NoRef Ref = -1

// RouteEntry is one cluster pin's routing record (spec §3's "Pb-route
// entry"): which pb-pin drove it, which atom net it carries, and which
// pb-pins it in turn drives.
type RouteEntry struct {
	Pin    *arch.PbGraphPin
	Driver Ref // pb owning the driving pin, or NoRef
	Net    atom.NetID
	Sinks  []Ref
}

// Pb is one mutable position in a cluster's pb tree, shaped after an
// arch.PbGraphNode but allocated only as the cluster grows (spec §3:
// "lazily allocated").
type Pb struct {
	Graph *arch.PbGraphNode // the architecture position this instantiates
	Name  string            // "" when unoccupied
	Mode  int               // selected mode index, meaningful once occupied
	Parent Ref

	// Children mirrors Graph.Children's shape: [mode][childType][instance],
	// lazily populated as atoms are placed under them.
	Children [][][]Ref

	// Route has one entry per Graph.TotalPbPins, indexed the same way
	// AllPins() enumerates them.
	Route []RouteEntry

	Stats *Stats // non-nil only while this pb is the cluster root under construction
}

// Stats is the pb-stats gain-engine scratch state (spec §3, §4.4),
// present only on a cluster's root pb while it is being built and freed
// at finalize.
type Stats struct {
	// InputPinsUsed/OutputPinsUsed list, per pin-class index, the nets
	// committed to that class; LookaheadInputPinsUsed/
	// LookaheadOutputPinsUsed list the speculative equivalent,
	// recomputed by every try_pack_molecule attempt (spec §4.6 step 4).
	// Capacity checks compare list length against the class's pin count.
	InputPinsUsed           map[int][]atom.NetID
	OutputPinsUsed          map[int][]atom.NetID
	LookaheadInputPinsUsed  map[int][]atom.NetID
	LookaheadOutputPinsUsed map[int][]atom.NetID

	// NumPinsOfNetInPb counts touches per net for the current cluster
	// (spec §4.4); a net enters MarkedNets on first touch.
	NumPinsOfNetInPb map[atom.NetID]int
	MarkedNets       []atom.NetID
	MarkedAtoms      []atom.ID

	Gain           map[atom.ID]float64
	TimingGain     map[atom.ID]float64
	ConnectionGain map[atom.ID]float64
	SharingGain    map[atom.ID]float64
	HillGain       map[atom.ID]float64

	// FeasibleBlocks is the bounded priority array (spec §4.4), ascending
	// by Gain, capped at MaxFeasibleBlocks entries.
	FeasibleBlocks []atom.ID

	TieBreakHighFanoutNet   atom.NetID
	ExploreTransitiveFanout bool
	TransitiveFanoutCands   []atom.ID
}

// MaxFeasibleBlocks is MAX_FEASIBLE_BLOCK_ARRAY_SIZE (spec §4.4).
const MaxFeasibleBlocks = 30

// MaxNetSinksIgnore is MAX_NET_SINKS_IGNORE (spec §4.4): nets with more
// sinks than this are excluded from gain walks.
const MaxNetSinksIgnore = 256

// MaxTransitiveFanoutExplore bounds both the per-net pin count eligible
// for transitive exploration and the nets_in_lb list recorded at commit
// (spec §4.4, §4.7 step 5).
const MaxTransitiveFanoutExplore = 4

// MaxTransitiveExplore bounds the number of transitive-fanout candidates
// added per pass (spec §4.4).
const MaxTransitiveExplore = 4

// NewStats creates empty pb-stats.
func NewStats() *Stats {
	return &Stats{
		InputPinsUsed:           map[int][]atom.NetID{},
		OutputPinsUsed:          map[int][]atom.NetID{},
		LookaheadInputPinsUsed:  map[int][]atom.NetID{},
		LookaheadOutputPinsUsed: map[int][]atom.NetID{},
		NumPinsOfNetInPb:        map[atom.NetID]int{},
		Gain:                    map[atom.ID]float64{},
		TimingGain:              map[atom.ID]float64{},
		ConnectionGain:          map[atom.ID]float64{},
		SharingGain:             map[atom.ID]float64{},
		HillGain:                map[atom.ID]float64{},
		TieBreakHighFanoutNet:   atom.NoNet,
	}
}

// ResetLookahead clears the speculative pin-usage lists ahead of a
// fresh try_pack_molecule attempt (spec §4.6 step 4's
// reset_lookahead_pins_used).
func (s *Stats) ResetLookahead() {
	s.LookaheadInputPinsUsed = map[int][]atom.NetID{}
	s.LookaheadOutputPinsUsed = map[int][]atom.NetID{}
}

// AddLookaheadInput records net as using an input pin of class, unless
// it is already recorded there.
func (s *Stats) AddLookaheadInput(class int, net atom.NetID) {
	if !containsNet(s.LookaheadInputPinsUsed[class], net) {
		s.LookaheadInputPinsUsed[class] = append(s.LookaheadInputPinsUsed[class], net)
	}
}

// AddLookaheadOutput records net as using an output pin of class,
// unless it is already recorded there.
func (s *Stats) AddLookaheadOutput(class int, net atom.NetID) {
	if !containsNet(s.LookaheadOutputPinsUsed[class], net) {
		s.LookaheadOutputPinsUsed[class] = append(s.LookaheadOutputPinsUsed[class], net)
	}
}

// CommitLookahead copies the speculative pin-usage lists into the
// committed ones, called once routing proves a try-pack attempt
// legal (VPR's commit_lookahead_pins_used).
func (s *Stats) CommitLookahead() {
	s.InputPinsUsed = s.LookaheadInputPinsUsed
	s.OutputPinsUsed = s.LookaheadOutputPinsUsed
}

func containsNet(nets []atom.NetID, net atom.NetID) bool {
	for _, n := range nets {
		if n == net {
			return true
		}
	}
	return false
}

// Arena owns every Pb allocated for one cluster under construction. Refs
// are indices into Slots and stay valid for the arena's lifetime; the
// arena itself is discarded whole on cluster discard (spec §3's
// lifetimes: "Pbs and pb-stats are created on cluster open, freed on
// either finalize ... or discard").
type Arena struct {
	Slots []*Pb
}

// NewArena creates an empty arena.
func NewArena() *Arena { return &Arena{} }

// Alloc creates a new Pb instantiating graph under parent, returning its
// Ref.
func (a *Arena) Alloc(graph *arch.PbGraphNode, parent Ref) Ref {
	p := &Pb{
		Graph:  graph,
		Parent: parent,
		Route:  make([]RouteEntry, graph.TotalPbPins),
	}
	for i := range p.Route {
		p.Route[i].Driver = NoRef
	}
	if !graph.IsPrimitive() {
		p.Children = make([][][]Ref, len(graph.Children))
		for m, byType := range graph.Children {
			p.Children[m] = make([][]Ref, len(byType))
			for ct, insts := range byType {
				row := make([]Ref, len(insts))
				for i := range row {
					row[i] = NoRef
				}
				p.Children[m][ct] = row
			}
		}
	}
	a.Slots = append(a.Slots, p)
	return Ref(len(a.Slots) - 1)
}

// Get returns the Pb for ref.
func (a *Arena) Get(ref Ref) *Pb {
	if ref == NoRef {
		return nil
	}
	return a.Slots[ref]
}

// NumChildBlocksInPb counts ref's currently allocated, occupied
// children — used by revert to decide whether an ancestor pb has gone
// fully empty (spec §4.6 step 7: "num_child_blocks_in_pb == 0").
func (a *Arena) NumChildBlocksInPb(ref Ref) int {
	p := a.Get(ref)
	if p == nil {
		return 0
	}
	n := 0
	for _, byType := range p.Children {
		for _, insts := range byType {
			for _, child := range insts {
				if child != NoRef && a.Get(child).Name != "" {
					n++
				}
			}
		}
	}
	return n
}

// Free removes ref's Pb from bookkeeping use by clearing its occupancy;
// the slot itself stays allocated for the arena's lifetime (arenas are
// discarded whole, never compacted — spec §9's non-owning-index design
// depends on Refs never being reused or invalidated mid-cluster).
func (a *Arena) Free(ref Ref) {
	p := a.Get(ref)
	if p == nil {
		return
	}
	p.Name = ""
	p.Stats = nil
	for _, byType := range p.Children {
		for _, insts := range byType {
			for i := range insts {
				insts[i] = NoRef
			}
		}
	}
}
