package netlistio

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/fpgapack/pkg/perr"
)

// PlacementRecord is one placed block (spec §6: "one record per block of
// the form `<name> <x> <y> <subblock> [# <index>]`").
type PlacementRecord struct {
	Name     string
	X, Y     int
	SubBlock int
	Index    int // -1 when the file carried no trailing "# <index>" comment
}

// Placement is a parsed placement file: its device-grid extent and one
// record per placed block, in file order.
type Placement struct {
	NX, NY  int
	Records []PlacementRecord
}

// ReadPlacement parses a placement file line by line (grounded on
// original_source's read_place.cpp token scan). netlistFingerprint is
// the digest ReadNetlist returned for the currently loaded netlist; a
// mismatched "Netlist_File:"/"Netlist_ID:" header either fails with
// PlacementFileError or, when verifyDigests is false, is reported through
// warn and otherwise ignored. warn may be nil.
func ReadPlacement(path, netlistFingerprint string, verifyDigests bool, warn func(string)) (*Placement, error) {
	data, err := readFile(perr.PlacementFileError, path)
	if err != nil {
		return nil, err
	}
	if warn == nil {
		warn = func(string) {}
	}

	var p Placement
	seenID := false
	seenGrid := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch {
		case len(fields) == 4 && fields[0] == "Netlist_File:" && fields[2] == "Netlist_ID:":
			if seenID {
				return nil, perr.At(perr.PlacementFileError, path, lineno, "duplicate Netlist_File/Netlist_ID specification")
			}
			seenID = true
			fileID := fields[3]
			if fileID != netlistFingerprint {
				msg := fmt.Sprintf("placement file's netlist ID %q does not match the loaded netlist (%q)", fileID, netlistFingerprint)
				if verifyDigests {
					return nil, perr.At(perr.PlacementFileError, path, lineno, "%s", msg)
				}
				warn(msg)
			}

		case len(fields) == 7 && fields[0] == "Array" && fields[1] == "size:" && fields[3] == "x" && fields[5] == "logic" && fields[6] == "blocks":
			if seenGrid {
				return nil, perr.At(perr.PlacementFileError, path, lineno, "duplicate device grid dimensions specification")
			}
			nx, errX := strconv.Atoi(fields[2])
			ny, errY := strconv.Atoi(fields[4])
			if errX != nil || errY != nil {
				return nil, perr.At(perr.PlacementFileError, path, lineno, "malformed grid dimensions")
			}
			p.NX, p.NY = nx, ny
			seenGrid = true

		case len(fields) == 4 || (len(fields) == 6 && fields[4] == "#"):
			if !seenGrid {
				return nil, perr.At(perr.PlacementFileError, path, lineno, "missing device grid size specification")
			}
			rec, err := parseBlockLine(fields)
			if err != nil {
				return nil, perr.At(perr.PlacementFileError, path, lineno, "%v", err)
			}
			if rec.X < 0 || rec.X >= p.NX || rec.Y < 0 || rec.Y >= p.NY {
				return nil, perr.At(perr.PlacementFileError, path, lineno, "block %q coordinates (%d, %d) out of range", rec.Name, rec.X, rec.Y)
			}
			p.Records = append(p.Records, rec)

		default:
			return nil, perr.At(perr.PlacementFileError, path, lineno, "malformed placement record %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, perr.WrapAt(perr.PlacementFileError, path, lineno, err, "error scanning placement file")
	}
	if !seenGrid {
		return nil, perr.At(perr.PlacementFileError, path, 0, "missing device grid size specification")
	}

	return &p, nil
}

func parseBlockLine(fields []string) (PlacementRecord, error) {
	x, errX := strconv.Atoi(fields[1])
	y, errY := strconv.Atoi(fields[2])
	sub, errS := strconv.Atoi(fields[3])
	if errX != nil || errY != nil || errS != nil {
		return PlacementRecord{}, fmt.Errorf("non-integer coordinate in %q", strings.Join(fields, " "))
	}
	rec := PlacementRecord{Name: fields[0], X: x, Y: y, SubBlock: sub, Index: -1}
	if len(fields) == 6 {
		idx, err := strconv.Atoi(fields[5])
		if err != nil {
			return PlacementRecord{}, fmt.Errorf("non-integer block index in %q", strings.Join(fields, " "))
		}
		rec.Index = idx
	}
	return rec, nil
}
