package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fpgapack/pkg/observability"
	"github.com/matzehuels/fpgapack/pkg/pipeline"
)

// =============================================================================
// progressMsg - events forwarded from the packer to the TUI
// =============================================================================

// progressMsg is one observability.PackHooks event, relayed to the
// bubbletea program over a buffered channel. The hooks run on the
// packer's own goroutine; the TUI only ever reads msgs, so no packer
// state is shared across goroutines (spec §5 ADDED).
type progressMsg struct {
	opened, finalized, discarded, atoms int
	done                                bool
	result                              *pipeline.Result
	err                                 error
}

// tuiHooks implements observability.PackHooks by forwarding every cluster
// open/grow/finalize/discard event as a progressMsg on ch; OnRunStart and
// OnRunComplete do nothing. Cache/HTTP hooks are untouched (left at their
// no-op defaults).
type tuiHooks struct {
	ch        chan progressMsg
	opened    int
	finalized int
	discarded int
}

func (h *tuiHooks) OnRunStart(ctx context.Context, atomCount int) {}

func (h *tuiHooks) OnRunComplete(ctx context.Context, clusterCount int, duration time.Duration, err error) {
}

func (h *tuiHooks) OnClusterOpen(ctx context.Context, seedPattern string) {
	h.opened++
	h.send(0)
}

func (h *tuiHooks) OnClusterGrow(ctx context.Context, atomCount int) {
	h.send(atomCount)
}

func (h *tuiHooks) OnClusterFinalize(ctx context.Context, atomCount int, duration time.Duration) {
	h.finalized++
	h.send(atomCount)
}

func (h *tuiHooks) OnClusterDiscard(ctx context.Context, atomCount int, reason string) {
	h.discarded++
	h.send(atomCount)
}

func (h *tuiHooks) send(atoms int) {
	select {
	case h.ch <- progressMsg{opened: h.opened, finalized: h.finalized, discarded: h.discarded, atoms: atoms}:
	default:
		// Drop the update rather than block the packer goroutine; the
		// next event carries the current totals anyway.
	}
}

// =============================================================================
// progressModel - the bubbletea program
// =============================================================================

type progressModel struct {
	ch                          chan progressMsg
	opened, finalized, discarded, atoms int
	start                       time.Time
	done                        bool
	result                      *pipeline.Result
	err                         error
}

func newProgressModel(ch chan progressMsg) progressModel {
	return progressModel{ch: ch, start: time.Now()}
}

func (m progressModel) Init() tea.Cmd {
	return m.waitForMsg()
}

func (m progressModel) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.ch
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.opened, m.finalized, m.discarded, m.atoms = msg.opened, msg.finalized, msg.discarded, msg.atoms
		if msg.done {
			m.done = true
			m.result = msg.result
			m.err = msg.err
			return m, tea.Quit
		}
		return m, m.waitForMsg()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("fpgapack"))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(time.Since(m.start).Round(time.Millisecond).String()))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  opened:    %s\n", StyleNumber.Render(fmt.Sprintf("%d", m.opened)))
	fmt.Fprintf(&b, "  finalized: %s\n", StyleSuccess.Render(fmt.Sprintf("%d", m.finalized)))
	fmt.Fprintf(&b, "  discarded: %s\n", StyleWarning.Render(fmt.Sprintf("%d", m.discarded)))
	fmt.Fprintf(&b, "  atoms placed (current cluster): %d\n", m.atoms)

	b.WriteString("\n")
	b.WriteString(StyleDim.Render("ctrl+c to cancel"))
	return b.String()
}

// runPackWithTUI runs runner.Execute while a bubbletea progress view
// renders cluster open/grow/finalize/discard events live, grounded in
// the teacher's internal/cli/tui.go bubbletea/lipgloss pattern (spec §5
// ADDED, §10 "TUI").
func (c *CLI) runPackWithTUI(cmd *cobra.Command, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	ch := make(chan progressMsg, 64)
	hooks := &tuiHooks{ch: ch}

	prevHooks := observability.Pack()
	observability.SetPackHooks(hooks)
	defer observability.SetPackHooks(prevHooks)

	model := newProgressModel(ch)
	program := tea.NewProgram(model)

	var result *pipeline.Result
	var runErr error
	go func() {
		result, runErr = runner.Execute(cmd.Context(), opts)
		ch <- progressMsg{
			opened: hooks.opened, finalized: hooks.finalized, discarded: hooks.discarded,
			done: true, result: result, err: runErr,
		}
	}()

	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("run progress view: %w", err)
	}
	return result, runErr
}
