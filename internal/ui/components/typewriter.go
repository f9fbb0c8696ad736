// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/ui/styles"
)

// =============================================================================
// TYPEWRITER STATE
// =============================================================================

// TypewriterState is the reveal state of a Typewriter.
type TypewriterState int

const (
	// TypewriterIdle has no text; nothing is drawn.
	TypewriterIdle TypewriterState = iota
	// TypewriterRevealing is appending one rune per tick.
	TypewriterRevealing
	// TypewriterComplete shows the whole text.
	TypewriterComplete
)

func (s TypewriterState) String() string {
	switch s {
	case TypewriterRevealing:
		return "revealing"
	case TypewriterComplete:
		return "complete"
	default:
		return "idle"
	}
}

// TypewriterTickMsg advances the typewriter identified by ID, but only while
// Gen still matches its generation. Ticks scheduled before the last Start,
// Skip, Stop or Reset carry an older Gen and are dropped.
type TypewriterTickMsg struct {
	ID  int64
	Gen uint64
}

var lastTypewriterID atomic.Int64

func nextTypewriterID() int64 {
	return lastTypewriterID.Add(1)
}

// =============================================================================
// TYPEWRITER
// =============================================================================

// Typewriter reveals a string one rune at a time on a tea.Tick chain.
//
// At most one tick chain is live per Typewriter: every operation that
// abandons a reveal bumps the generation, which orphans whatever tick is
// still in flight.
type Typewriter struct {
	id       int64
	gen      uint64
	interval time.Duration

	text  []rune
	shown int
	state TypewriterState
}

// NewTypewriter creates an idle typewriter. A non-positive interval uses
// styles.DefaultTypewriterInterval.
func NewTypewriter(interval time.Duration) Typewriter {
	if interval <= 0 {
		interval = styles.DefaultTypewriterInterval
	}
	return Typewriter{
		id:       nextTypewriterID(),
		interval: interval,
	}
}

// Start replaces the text and begins revealing it from an empty prefix.
// Any reveal in progress is abandoned. Empty text completes immediately.
func (t *Typewriter) Start(text string) tea.Cmd {
	t.gen++
	t.text = []rune(text)
	t.shown = 0

	if len(t.text) == 0 {
		t.state = TypewriterComplete
		return nil
	}
	t.state = TypewriterRevealing
	return t.tick()
}

// Skip reveals the rest of the text at once.
func (t *Typewriter) Skip() {
	if t.state != TypewriterRevealing {
		return
	}
	t.gen++
	t.shown = len(t.text)
	t.state = TypewriterComplete
}

// Stop cancels the outstanding tick. The revealed prefix stays as it is.
func (t *Typewriter) Stop() {
	t.gen++
}

// Reset clears the text and returns to idle.
func (t *Typewriter) Reset() {
	t.gen++
	t.text = nil
	t.shown = 0
	t.state = TypewriterIdle
}

// SetInterval changes the delay between runes. It applies from the next tick.
func (t *Typewriter) SetInterval(d time.Duration) {
	if d > 0 {
		t.interval = d
	}
}

// Interval returns the delay between runes.
func (t *Typewriter) Interval() time.Duration {
	return t.interval
}

func (t *Typewriter) tick() tea.Cmd {
	id, gen := t.id, t.gen
	return tea.Tick(t.interval, func(time.Time) tea.Msg {
		return TypewriterTickMsg{ID: id, Gen: gen}
	})
}

// Update handles TypewriterTickMsg. Everything else is ignored.
func (t Typewriter) Update(msg tea.Msg) (Typewriter, tea.Cmd) {
	tick, ok := msg.(TypewriterTickMsg)
	if !ok || tick.ID != t.id || tick.Gen != t.gen || t.state != TypewriterRevealing {
		return t, nil
	}

	t.shown++
	if t.shown >= len(t.text) {
		t.shown = len(t.text)
		t.state = TypewriterComplete
		return t, nil
	}
	return t, t.tick()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Visible returns the revealed prefix.
func (t Typewriter) Visible() string {
	return string(t.text[:t.shown])
}

// Text returns the full text being revealed.
func (t Typewriter) Text() string {
	return string(t.text)
}

// State returns the reveal state.
func (t Typewriter) State() TypewriterState {
	return t.state
}

// IsComplete reports whether the full text is visible.
func (t Typewriter) IsComplete() bool {
	return t.state == TypewriterComplete
}

// IsRevealing reports whether a reveal is in progress.
func (t Typewriter) IsRevealing() bool {
	return t.state == TypewriterRevealing
}

// View renders the revealed prefix, followed by a cursor while revealing.
func (t Typewriter) View() string {
	switch t.state {
	case TypewriterIdle:
		return ""
	case TypewriterRevealing:
		return t.Visible() + styles.TypingCursor
	default:
		return t.Visible()
	}
}
