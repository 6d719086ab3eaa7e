package tape

import (
	"log/slog"
	"time"
)

// ensureTickerLocked starts the tick goroutine unless one is already
// running. Called with the deck lock held by every command that sets a
// motion flag.
func (d *Deck) ensureTickerLocked() {
	if d.tickerOn || d.closed {
		return
	}
	d.tickerOn = true
	go d.runTicker()
}

// runTicker drives tick at the configured interval until the deck
// stops moving or is cleaned up. Elapsed time is measured per wakeup
// rather than assumed, so a late tick still advances the position by
// the right amount.
func (d *Deck) runTicker() {
	t := time.NewTicker(d.opts.TickInterval)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-d.closedCh:
			return
		case now := <-t.C:
			elapsed := now.Sub(last)
			last = now
			if !d.tick(elapsed) {
				return
			}
		}
	}
}

// tick advances all time-based state by elapsed and publishes one
// snapshot: position at the effective speed, track boundaries, the
// overheat and glitch models. Returns false when the ticker goroutine
// should exit. The goroutine feeds it measured wall time; tests call
// it directly with synthetic values.
func (d *Deck) tick(elapsed time.Duration) bool {
	d.mu.Lock()
	if d.closed || !d.state.Moving() {
		d.tickerOn = false
		d.mu.Unlock()
		return false
	}

	speed := 1.0
	switch {
	case d.state.FastForwarding:
		speed = d.opts.ScrubSpeed
	case d.state.Rewinding:
		speed = -d.opts.ScrubSpeed
	}
	d.state.Position += time.Duration(float64(elapsed) * speed)

	switch {
	case d.state.Rewinding && d.state.Position < 0 && d.state.TrackIndex > 0:
		// rewound across the boundary into the previous track
		overshoot := d.state.Position
		d.state.Position = 0
		return d.advanceTrackLocked(d.state.TrackIndex-1, overshoot, elapsed)

	case d.state.Rewinding && d.state.Position <= 0 && d.state.TrackIndex == 0:
		// start of the side: the reel is fully wound
		d.state.Position = 0
		d.releaseScrubLocked()

	case speed > 0 && d.state.Position >= d.state.Duration:
		overshoot := d.state.Position - d.state.Duration
		d.state.Position = d.state.Duration
		if next := d.state.TrackIndex + 1; next < len(d.mixtape.Tracks(d.state.Side)) {
			return d.advanceTrackLocked(next, overshoot, elapsed)
		}
		// end of the side: stop everything and leave the terminal
		// position so the UI can offer the flip
		d.state.Playing = false
		d.state.FastForwarding = false
		d.state.Rewinding = false
		d.wasPlaying = false
		d.pauseResourceLocked()
	}

	s, cont := d.finishTickLocked(elapsed)
	d.mu.Unlock()
	d.notify(s)
	return cont
}

// finishTickLocked feeds the overheat and glitch models, mirrors them
// into the state and decides whether the ticker keeps running. Called
// with the lock held; the caller unlocks and publishes the returned
// snapshot.
func (d *Deck) finishTickLocked(elapsed time.Duration) (State, bool) {
	if d.heat.update(elapsed, d.state.Scrubbing()) {
		// motor capped out: forced release, same semantics as an
		// explicit stop
		d.releaseScrubLocked()
	}
	d.state.OverheatLevel = d.heat.level
	d.state.Overheated = d.heat.overheated
	d.state.Glitch = d.glitches.update(d.now(), d.state.Playing, d.state.Glitch)

	cont := d.state.Moving()
	if !cont {
		d.tickerOn = false
	}
	return d.state, cont
}

// advanceTrackLocked moves onto another track of the active side after
// the position crossed a boundary mid-tick. overshoot is how far past
// the boundary the position ran, negative when rewinding; it carries
// into the new track so scrubs keep their momentum. The resource open
// happens outside the lock under the generation guard, and the
// observable state stays clamped at the boundary until it resolves.
// Called with the lock held; releases it. Returns whether the ticker
// keeps running.
func (d *Deck) advanceTrackLocked(index int, overshoot, elapsed time.Duration) bool {
	gen := d.gen
	track := d.mixtape.Tracks(d.state.Side)[index]
	d.mu.Unlock()

	res, err := d.provider.Open(track)

	d.mu.Lock()
	if d.closed || gen != d.gen {
		// a load or flip superseded this advance; it owns the state now
		cont := !d.closed && d.state.Moving()
		if !cont {
			d.tickerOn = false
		}
		d.mu.Unlock()
		d.disposeResource(res)
		return cont
	}
	if err != nil {
		// degrade to stopped, keeping the last good track and position
		slog.Warn("track advance failed",
			"side", string(d.state.Side),
			"track", track.Title,
			"error", err)
		d.state.Playing = false
		d.state.FastForwarding = false
		d.state.Rewinding = false
		d.wasPlaying = false
		d.pauseResourceLocked()
		d.tickerOn = false
		s := d.state
		d.mu.Unlock()
		d.notify(s)
		return false
	}

	pos := overshoot
	if overshoot < 0 {
		pos = track.Duration + overshoot
	}
	if pos < 0 {
		pos = 0
	}
	if pos > track.Duration {
		pos = track.Duration
	}

	old := d.resource
	d.resource = res
	d.state.TrackIndex = index
	d.state.Position = pos
	d.state.Duration = track.Duration
	if d.state.Playing {
		d.playResourceLocked()
	}

	s, cont := d.finishTickLocked(elapsed)
	d.mu.Unlock()
	d.disposeResource(old)
	d.notify(s)
	return cont
}
