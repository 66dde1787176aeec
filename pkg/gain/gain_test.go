package gain

import (
	"testing"

	"github.com/matzehuels/fpgapack/pkg/atom"
	"github.com/matzehuels/fpgapack/pkg/pb"
)

func TestInsertFeasibleOrdersAscendingByGain(t *testing.T) {
	e := &Engine{}
	stats := pb.NewStats()
	stats.Gain[1] = 0.5
	stats.Gain[2] = 0.9
	stats.Gain[3] = 0.1

	e.InsertFeasible(stats, 1)
	e.InsertFeasible(stats, 2)
	e.InsertFeasible(stats, 3)

	want := []atom.ID{3, 1, 2}
	if len(stats.FeasibleBlocks) != len(want) {
		t.Fatalf("got %v, want %v", stats.FeasibleBlocks, want)
	}
	for i, id := range want {
		if stats.FeasibleBlocks[i] != id {
			t.Errorf("FeasibleBlocks[%d] = %d, want %d", i, stats.FeasibleBlocks[i], id)
		}
	}
}

func TestInsertFeasibleSkipsDuplicate(t *testing.T) {
	e := &Engine{}
	stats := pb.NewStats()
	stats.Gain[1] = 0.5

	e.InsertFeasible(stats, 1)
	e.InsertFeasible(stats, 1)

	if len(stats.FeasibleBlocks) != 1 {
		t.Fatalf("got %d entries, want 1 (duplicate insert should be a no-op)", len(stats.FeasibleBlocks))
	}
}

func TestInsertFeasibleCapsAtMaxAndDropsLowestGain(t *testing.T) {
	e := &Engine{}
	stats := pb.NewStats()

	for i := 0; i < pb.MaxFeasibleBlocks; i++ {
		id := atom.ID(i)
		stats.Gain[id] = float64(i)
		e.InsertFeasible(stats, id)
	}
	if len(stats.FeasibleBlocks) != pb.MaxFeasibleBlocks {
		t.Fatalf("got %d entries, want %d", len(stats.FeasibleBlocks), pb.MaxFeasibleBlocks)
	}

	// A candidate with gain below the current minimum is dropped outright.
	belowMin := atom.ID(1000)
	stats.Gain[belowMin] = -1
	e.InsertFeasible(stats, belowMin)
	for _, c := range stats.FeasibleBlocks {
		if c == belowMin {
			t.Fatal("candidate below the array minimum should have been dropped")
		}
	}

	// A candidate above the current minimum displaces it.
	best := atom.ID(2000)
	stats.Gain[best] = float64(pb.MaxFeasibleBlocks + 10)
	e.InsertFeasible(stats, best)
	if len(stats.FeasibleBlocks) != pb.MaxFeasibleBlocks {
		t.Fatalf("array should stay capped at %d, got %d", pb.MaxFeasibleBlocks, len(stats.FeasibleBlocks))
	}
	if stats.FeasibleBlocks[len(stats.FeasibleBlocks)-1] != best {
		t.Errorf("highest-gain candidate should be last, got %v", stats.FeasibleBlocks)
	}
}

// TestInsertFeasibleTieAtCapLeavesQueueUnchanged covers spec §8's
// boundary behaviour: once the array is at MaxFeasibleBlocks, a
// candidate whose gain exactly ties the current minimum must not
// displace it.
func TestInsertFeasibleTieAtCapLeavesQueueUnchanged(t *testing.T) {
	e := &Engine{}
	stats := pb.NewStats()

	for i := 0; i < pb.MaxFeasibleBlocks; i++ {
		id := atom.ID(i)
		stats.Gain[id] = float64(i)
		e.InsertFeasible(stats, id)
	}
	before := append([]atom.ID{}, stats.FeasibleBlocks...)

	tied := atom.ID(9000)
	stats.Gain[tied] = stats.Gain[stats.FeasibleBlocks[0]]
	e.InsertFeasible(stats, tied)

	if len(stats.FeasibleBlocks) != len(before) {
		t.Fatalf("got %d entries, want %d unchanged", len(stats.FeasibleBlocks), len(before))
	}
	for i, id := range before {
		if stats.FeasibleBlocks[i] != id {
			t.Errorf("FeasibleBlocks[%d] = %d, want unchanged %d (a gain tie at the cap must not displace the incumbent)", i, stats.FeasibleBlocks[i], id)
		}
	}
}

func TestPopBestReturnsHighestGainFirst(t *testing.T) {
	e := &Engine{}
	stats := pb.NewStats()
	stats.Gain[1] = 0.5
	stats.Gain[2] = 0.9
	e.InsertFeasible(stats, 1)
	e.InsertFeasible(stats, 2)

	got, ok := e.PopBest(stats)
	if !ok || got != 2 {
		t.Fatalf("PopBest() = (%d, %v), want (2, true)", got, ok)
	}
	got, ok = e.PopBest(stats)
	if !ok || got != 1 {
		t.Fatalf("PopBest() = (%d, %v), want (1, true)", got, ok)
	}

	if _, ok := e.PopBest(stats); ok {
		t.Error("PopBest on an empty queue should report ok=false")
	}
}
