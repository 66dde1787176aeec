package router

import "github.com/matzehuels/fpgapack/pkg/atom"

// Fake is an in-memory Router for tests and standalone runs that have no
// real lb_rr_graph to route against. It tracks target-set size per
// handle and reports success unless the caller configured it to fail on
// a specific (or every) attempt, letting tests exercise the controller's
// rollback and discard-and-retry paths deterministically.
type Fake struct {
	// FailAfter, if >= 0, makes the N'th call to TryIntraLbRoute (0-
	// indexed, per handle) fail; all others succeed. -1 disables forced
	// failures.
	FailAfter int

	handles map[*fakeData]bool
}

type fakeData struct {
	blockType string
	targets   map[atom.ID]bool
	attempts  int
}

// NewFake creates a Fake router that always succeeds.
func NewFake() *Fake {
	return &Fake{FailAfter: -1, handles: map[*fakeData]bool{}}
}

func (f *Fake) AllocAndLoad(blockType string) Data {
	d := &fakeData{blockType: blockType, targets: map[atom.ID]bool{}}
	if f.handles == nil {
		f.handles = map[*fakeData]bool{}
	}
	f.handles[d] = true
	return d
}

func (f *Fake) SetResetPbModes(Data, bool) {}

func (f *Fake) AddAtomAsTarget(d Data, a atom.ID) {
	d.(*fakeData).targets[a] = true
}

func (f *Fake) RemoveAtomFromTarget(d Data, a atom.ID) {
	delete(d.(*fakeData).targets, a)
}

func (f *Fake) TryIntraLbRoute(d Data) bool {
	fd := d.(*fakeData)
	ok := f.FailAfter < 0 || fd.attempts != f.FailAfter
	fd.attempts++
	return ok
}

func (f *Fake) FreeRouterData(d Data) {
	delete(f.handles, d.(*fakeData))
}

// Pending returns the number of currently open (un-freed) router
// handles — tests use this to confirm every AllocAndLoad was matched by
// a FreeRouterData (spec §5's guaranteed release).
func (f *Fake) Pending() int { return len(f.handles) }

var _ Router = (*Fake)(nil)
