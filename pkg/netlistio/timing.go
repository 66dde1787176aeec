package netlistio

import (
	"encoding/json"

	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/perr"
	"github.com/matzehuels/fpgapack/pkg/timing"
)

// timingEntry names one sink pin and its setup-pin criticality (spec
// §4.8): the atom by its netlist name (not its load-assigned ID, which a
// side file authored before a run cannot know), the port name and bit.
type timingEntry struct {
	Atom         string  `json:"atom"`
	Port         string  `json:"port"`
	Bit          int     `json:"bit"`
	Criticality  float64 `json:"criticality"`
}

// ReadTimingTable loads a JSON array of timingEntry values into a
// timing.Static source, resolving each entry's atom name against nl.
func ReadTimingTable(path string, nl *atom.Netlist) (*timing.Static, error) {
	data, err := readFile(perr.NetlistError, path)
	if err != nil {
		return nil, err
	}

	var entries []timingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, perr.Wrap(perr.NetlistError, err, "parse timing table %q", path)
	}

	byName := make(map[string]atom.ID, len(nl.Atoms()))
	for _, a := range nl.Atoms() {
		byName[a.Name] = a.ID
	}

	src := timing.NewStatic(nil)
	for _, e := range entries {
		id, ok := byName[e.Atom]
		if !ok {
			return nil, perr.New(perr.NetlistError, "timing table references unknown atom %q", e.Atom)
		}
		src.Set(atom.PinRef{Atom: id, Port: e.Port, Bit: e.Bit}, e.Criticality)
	}
	return src, nil
}
