package netlistio

import "testing"

const samplePlacement = "Netlist_File: design.net Netlist_ID: abc123\n" +
	"Array size: 4 x 4 logic blocks\n" +
	"\n" +
	"# a comment line\n" +
	"cb.lut1 1 2 0\n" +
	"cb.ff1 2 2 0 # 7\n"

func TestReadPlacementParsesRecords(t *testing.T) {
	path := writeTemp(t, "design.place", samplePlacement)

	p, err := ReadPlacement(path, "abc123", true, nil)
	if err != nil {
		t.Fatalf("ReadPlacement: %v", err)
	}
	if p.NX != 4 || p.NY != 4 {
		t.Fatalf("grid = %dx%d, want 4x4", p.NX, p.NY)
	}
	if len(p.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(p.Records))
	}
	if p.Records[0] != (PlacementRecord{Name: "cb.lut1", X: 1, Y: 2, SubBlock: 0, Index: -1}) {
		t.Errorf("record 0 = %+v", p.Records[0])
	}
	if p.Records[1] != (PlacementRecord{Name: "cb.ff1", X: 2, Y: 2, SubBlock: 0, Index: 7}) {
		t.Errorf("record 1 = %+v", p.Records[1])
	}
}

func TestReadPlacementDigestMismatchFatal(t *testing.T) {
	path := writeTemp(t, "design.place", samplePlacement)
	if _, err := ReadPlacement(path, "different-id", true, nil); err == nil {
		t.Fatal("expected fatal error on fingerprint mismatch when verifyDigests is true")
	}
}

func TestReadPlacementDigestMismatchWarnsOnly(t *testing.T) {
	path := writeTemp(t, "design.place", samplePlacement)
	var warned string
	p, err := ReadPlacement(path, "different-id", false, func(msg string) { warned = msg })
	if err != nil {
		t.Fatalf("ReadPlacement: %v", err)
	}
	if warned == "" {
		t.Error("expected a warning callback on fingerprint mismatch")
	}
	if len(p.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(p.Records))
	}
}

func TestReadPlacementRejectsDuplicateGridHeader(t *testing.T) {
	path := writeTemp(t, "design.place", "Array size: 4 x 4 logic blocks\nArray size: 4 x 4 logic blocks\n")
	if _, err := ReadPlacement(path, "", true, nil); err == nil {
		t.Fatal("expected duplicate grid header error")
	}
}

func TestReadPlacementRejectsOutOfRangeCoordinates(t *testing.T) {
	path := writeTemp(t, "design.place", "Array size: 2 x 2 logic blocks\ncb.x 5 5 0\n")
	if _, err := ReadPlacement(path, "", true, nil); err == nil {
		t.Fatal("expected out-of-range coordinate error")
	}
}

func TestReadPlacementRejectsMissingGridHeader(t *testing.T) {
	path := writeTemp(t, "design.place", "cb.x 0 0 0\n")
	if _, err := ReadPlacement(path, "", true, nil); err == nil {
		t.Fatal("expected missing grid header error")
	}
}
