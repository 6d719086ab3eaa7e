// Package tape implements a simulated cassette-tape transport. A Deck
// drives one audio resource at a time while emulating tape physics
// (side flips, scrub speed, motor overheat, random playback glitches)
// and broadcasting immutable state snapshots to any number of
// observers. Rendering, persistence and audio decoding live elsewhere;
// the deck only produces the numbers a renderer needs.
package tape

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Listener receives a state snapshot after every mutation.
type Listener func(State)

type listenerEntry struct {
	fn Listener
}

// Deck is the transport controller. One logical owner per deck; all
// commands are safe to call from any goroutine.
type Deck struct {
	opts     Options
	provider Provider
	now      func() time.Time // swapped out by tests

	mu       sync.Mutex
	mixtape  *Mixtape
	state    State
	resource Resource
	// gen invalidates in-flight resource opens. Load, FlipSide and
	// Cleanup bump it; an open that resolves under a different value
	// than it captured discards itself.
	gen uint64
	// wasPlaying remembers whether plain playback was active when a
	// scrub began, so releasing the scrub can restore it.
	wasPlaying bool
	heat       overheatRegulator
	glitches   glitchDirector
	tickerOn   bool
	closed     bool
	closedCh   chan struct{}

	subMu     sync.Mutex
	listeners []*listenerEntry
}

// NewDeck creates a stopped, unloaded deck using the given audio
// provider.
func NewDeck(provider Provider, opts Options) *Deck {
	o := opts.normalized()
	return &Deck{
		opts:     o,
		provider: provider,
		now:      time.Now,
		heat:     newOverheatRegulator(o),
		glitches: newGlitchDirector(o),
		closedCh: make(chan struct{}),
	}
}

// State returns the current snapshot.
func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// OnStateChange registers a listener and returns its unsubscribe
// function. Listeners are invoked in registration order, outside the
// deck lock, once per mutation. Unsubscribing takes effect for
// subsequent notifications and is safe from within a listener.
func (d *Deck) OnStateChange(fn Listener) (unsubscribe func()) {
	e := &listenerEntry{fn: fn}
	d.subMu.Lock()
	d.listeners = append(d.listeners, e)
	d.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subMu.Lock()
			defer d.subMu.Unlock()
			for i, cur := range d.listeners {
				if cur == e {
					d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

func (d *Deck) notify(s State) {
	d.subMu.Lock()
	list := slices.Clone(d.listeners)
	d.subMu.Unlock()
	for _, e := range list {
		e.fn(s)
	}
}

// Load resets the deck onto m: side A, first track, cold motor, no
// glitch. When side A is empty the deck starts on side B instead. A
// mixtape with no tracks at all loads into a stopped, trackless state
// without error. A Load or FlipSide issued while this one's resource
// open is still in flight supersedes it.
func (d *Deck) Load(m *Mixtape) error {
	if m == nil {
		return ErrNoMixtape
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.gen++
	gen := d.gen
	d.pauseResourceLocked()

	side, ok := m.firstPlayableSide()
	if !ok {
		old := d.resource
		d.resource = nil
		d.mixtape = m
		d.heat.reset()
		d.wasPlaying = false
		d.state = State{MixtapeID: m.ID, Side: SideA}
		s := d.state
		d.mu.Unlock()
		d.disposeResource(old)
		d.notify(s)
		return nil
	}
	track := m.Tracks(side)[0]
	d.mu.Unlock()

	res, err := d.provider.Open(track)

	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		d.disposeResource(res)
		slog.Debug("discarding superseded load", "mixtape", m.ID)
		return nil
	}
	if err != nil {
		// last-known-good state stays; resume audio if it was rolling
		if d.state.Playing {
			d.playResourceLocked()
		}
		d.mu.Unlock()
		return fmt.Errorf("open track %q: %w", track.Title, err)
	}
	old := d.resource
	d.resource = res
	d.mixtape = m
	d.heat.reset()
	d.wasPlaying = false
	d.state = State{
		MixtapeID: m.ID,
		Side:      side,
		Duration:  track.Duration,
	}
	s := d.state
	d.mu.Unlock()

	d.disposeResource(old)
	d.notify(s)
	return nil
}

// Cleanup releases the deck: stops the ticker, disposes any open
// resource and drops all listeners. Safe to call repeatedly and while
// a Load or FlipSide is still in flight; their opens discard
// themselves. All commands after Cleanup are no-ops.
func (d *Deck) Cleanup() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.gen++
	close(d.closedCh)
	old := d.resource
	d.resource = nil
	d.state.Playing = false
	d.state.FastForwarding = false
	d.state.Rewinding = false
	d.mu.Unlock()

	d.disposeResource(old)

	d.subMu.Lock()
	d.listeners = nil
	d.subMu.Unlock()
}

// disposeResource releases res. Disposal failures are logged and
// swallowed; cleanup paths have no one left to hand an error to.
func (d *Deck) disposeResource(res Resource) {
	if res == nil {
		return
	}
	if err := res.Dispose(); err != nil {
		slog.Warn("audio resource disposal failed", "error", err)
	}
}

func (d *Deck) pauseResourceLocked() {
	if d.resource == nil {
		return
	}
	if err := d.resource.Pause(); err != nil {
		slog.Warn("pausing audio failed", "error", err)
	}
}

func (d *Deck) playResourceLocked() {
	if d.resource == nil {
		return
	}
	if err := d.resource.Play(); err != nil {
		slog.Warn("resuming audio failed", "error", err)
	}
}

// reconcileSeekLocked moves the audio resource to the simulated
// position. The simulation is authoritative; a failed seek is logged
// and playback continues from wherever the stream ended up.
func (d *Deck) reconcileSeekLocked() {
	if d.resource == nil {
		return
	}
	if err := d.resource.Seek(d.state.Position); err != nil {
		slog.Warn("seek reconciliation failed", "position", d.state.Position, "error", err)
	}
}
