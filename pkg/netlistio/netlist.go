package netlistio

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/perr"
)

// netlistFile is the on-disk packed-netlist format: one JSON document
// describing every atom, its ports and their net connections, plus the
// global net flags and (optionally) pre-formed molecules. Molecule
// formation (pack-pattern matching) is itself an external collaborator
// (spec §6's "Molecule store (read)"); atoms this file does not assign
// to an explicit molecule each get a default single-atom molecule.
type netlistFile struct {
	Atoms     []netlistAtom     `json:"atoms"`
	Globals   []string          `json:"global_nets,omitempty"`
	Molecules []netlistMolecule `json:"molecules,omitempty"`
}

type netlistAtom struct {
	Name  string         `json:"name"`
	Model string         `json:"model"`
	Ports []netlistPort  `json:"ports"`
}

type netlistPort struct {
	Name  string   `json:"name"`
	Dir   string   `json:"dir"` // "in" | "out" | "clock"
	Class string   `json:"class,omitempty"`
	// Nets holds one entry per bit; "" marks an unconnected bit. Two
	// pins sharing the same net name are wired together.
	Nets []string `json:"nets"`
}

type netlistMolecule struct {
	Pattern       string   `json:"pattern"`
	IsChain       bool     `json:"is_chain,omitempty"`
	Atoms         []string `json:"atoms"` // atom names, slot order, "" for an empty slot
	RootSlot      int      `json:"root_slot,omitempty"`
	ChainRootPort string   `json:"chain_root_port,omitempty"`
	BaseGain      float64  `json:"base_gain,omitempty"`
	NumExtInputs  int      `json:"num_ext_inputs,omitempty"`
}

func portDir(s string) (arch.PortDir, error) {
	switch s {
	case "in":
		return arch.In, nil
	case "out":
		return arch.Out, nil
	case "clock":
		return arch.Clock, nil
	default:
		return 0, fmt.Errorf("unknown port direction %q", s)
	}
}

// ReadNetlist parses a packed-netlist file into a Netlist and its
// default molecule Store, returning the file's provenance fingerprint
// alongside (spec §6's "provenance headers (a netlist fingerprint...)").
func ReadNetlist(path string) (*atom.Netlist, *atom.Store, string, error) {
	data, err := readFile(perr.NetlistError, path)
	if err != nil {
		return nil, nil, "", err
	}

	var file netlistFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, "", perr.WrapAt(perr.NetlistError, path, 0, err, "malformed packed-netlist file")
	}

	nl := atom.New()
	nameToID := map[string]atom.ID{}
	globals := map[string]bool{}
	for _, g := range file.Globals {
		globals[g] = true
	}

	// netID assigns a stable, increasing NetID per distinct net name
	// in first-sight order, matching the netlist's own atom-order
	// determinism requirement (spec §5).
	netIDs := map[string]atom.NetID{}
	nextNetID := atom.NetID(0)
	netID := func(name string) atom.NetID {
		if name == "" {
			return atom.NoNet
		}
		if id, ok := netIDs[name]; ok {
			return id
		}
		id := nextNetID
		nextNetID++
		netIDs[name] = id
		return id
	}

	type pinEntry struct {
		ref  atom.PinRef
		port arch.PortDir
	}
	netPins := map[atom.NetID][]pinEntry{}
	netGlobal := map[atom.NetID]bool{}

	for i, af := range file.Atoms {
		if af.Name == "" {
			return nil, nil, "", perr.At(perr.NetlistError, path, 0, "atom %d: missing name", i)
		}
		if _, exists := nameToID[af.Name]; exists {
			return nil, nil, "", perr.At(perr.NetlistError, path, 0, "duplicate block %q", af.Name)
		}
		id := atom.ID(i)
		nameToID[af.Name] = id

		a := &atom.Atom{ID: id, Name: af.Name, Model: arch.Model(af.Model)}
		for _, pf := range af.Ports {
			dir, err := portDir(pf.Dir)
			if err != nil {
				return nil, nil, "", perr.At(perr.NetlistError, path, 0, "atom %q port %q: %v", af.Name, pf.Name, err)
			}
			p := atom.Port{Name: pf.Name, Dir: dir, Width: len(pf.Nets), Class: pf.Class, Nets: make([]atom.NetID, len(pf.Nets))}
			for bit, netName := range pf.Nets {
				nid := netID(netName)
				p.Nets[bit] = nid
				if nid == atom.NoNet {
					continue
				}
				if globals[netName] {
					netGlobal[nid] = true
				}
				ref := atom.PinRef{Atom: id, Port: pf.Name, Bit: bit}
				netPins[nid] = append(netPins[nid], pinEntry{ref: ref, port: dir})
			}
			a.Ports = append(a.Ports, p)
		}
		nl.AddAtom(a)
	}

	for name, nid := range netIDs {
		n := &atom.Net{ID: nid, Global: netGlobal[nid]}
		for _, pe := range netPins[nid] {
			ref := pe.ref
			if pe.port == arch.Out {
				if n.Driver != nil {
					return nil, nil, "", perr.At(perr.NetlistError, path, 0, "net %q has more than one driver", name)
				}
				n.Driver = &ref
			} else {
				n.Sinks = append(n.Sinks, ref)
			}
		}
		nl.AddNet(n)
	}

	store, err := buildMolecules(nl, nameToID, file.Molecules, path)
	if err != nil {
		return nil, nil, "", err
	}

	return nl, store, Fingerprint(data), nil
}

// buildMolecules turns the file's explicit molecule declarations into a
// Store, defaulting every atom this file never assigns to a multi-atom
// molecule into its own single-atom molecule (spec §3: every atom is a
// member of exactly one molecule).
func buildMolecules(nl *atom.Netlist, nameToID map[string]atom.ID, decls []netlistMolecule, path string) (*atom.Store, error) {
	store := atom.NewStore()
	covered := map[atom.ID]bool{}
	nextID := atom.MoleculeID(0)

	for _, md := range decls {
		slots := make([]atom.ID, len(md.Atoms))
		for i, name := range md.Atoms {
			if name == "" {
				slots[i] = atom.NoAtom
				continue
			}
			id, ok := nameToID[name]
			if !ok {
				return nil, perr.At(perr.NetlistError, path, 0, "molecule %q: unknown atom %q", md.Pattern, name)
			}
			slots[i] = id
			covered[id] = true
		}
		m := &atom.Molecule{
			ID:            nextID,
			Pattern:       md.Pattern,
			IsChain:       md.IsChain,
			Slots:         slots,
			RootSlot:      md.RootSlot,
			ChainRootPort: md.ChainRootPort,
			BaseGain:      md.BaseGain,
			NumExtInputs:  md.NumExtInputs,
		}
		nextID++
		store.Add(m)
	}

	for _, a := range nl.Atoms() {
		if covered[a.ID] {
			continue
		}
		m := &atom.Molecule{
			ID:           nextID,
			Pattern:      "atom",
			Slots:        []atom.ID{a.ID},
			RootSlot:     0,
			BaseGain:     1,
			NumExtInputs: a.NumExtInputs(),
		}
		nextID++
		store.Add(m)
	}

	return store, nil
}
