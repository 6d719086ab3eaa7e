package tape

import (
	"fmt"
	"log/slog"
)

// Play resumes playback of the current track. It is a silent no-op
// when the deck is unloaded, trackless or already playing; button
// mashing never errors. Pressing play during a fast-forward or rewind
// releases the scrub first.
func (d *Deck) Play() error {
	d.mu.Lock()
	if d.closed || d.resource == nil || d.state.Playing {
		d.mu.Unlock()
		return nil
	}
	if d.state.Scrubbing() {
		d.state.FastForwarding = false
		d.state.Rewinding = false
		d.wasPlaying = false
		d.reconcileSeekLocked()
	}
	if err := d.resource.Play(); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("start playback: %w", err)
	}
	d.state.Playing = true
	d.ensureTickerLocked()
	s := d.state
	d.mu.Unlock()
	d.notify(s)
	return nil
}

// Pause stops plain playback. No-op unless playing; an active
// fast-forward or rewind is ended by its own stop command, not Pause.
func (d *Deck) Pause() {
	d.mu.Lock()
	if d.closed || !d.state.Playing {
		d.mu.Unlock()
		return
	}
	d.state.Playing = false
	d.pauseResourceLocked()
	s := d.state
	d.mu.Unlock()
	d.notify(s)
}

// StartFastForward begins a forward scrub at the configured speed
// multiplier. Silent no-op while overheated, trackless or already
// fast-forwarding. The audio resource is paused during the scrub; the
// deck simulates the moving position and reconciles the stream on
// release.
func (d *Deck) StartFastForward() {
	d.startScrub(false)
}

// StopFastForward releases the forward scrub, seeks the audio to the
// simulated position and restores whatever play state was active when
// the scrub began.
func (d *Deck) StopFastForward() {
	d.stopScrub(false)
}

// StartRewind begins a backward scrub. Same rules as StartFastForward.
func (d *Deck) StartRewind() {
	d.startScrub(true)
}

// StopRewind releases the backward scrub. Same rules as
// StopFastForward.
func (d *Deck) StopRewind() {
	d.stopScrub(true)
}

func (d *Deck) startScrub(rewind bool) {
	d.mu.Lock()
	if d.closed || d.resource == nil || d.state.Overheated {
		d.mu.Unlock()
		return
	}
	if d.state.Rewinding == rewind && d.state.FastForwarding == !rewind {
		d.mu.Unlock()
		return
	}
	// switching scrub direction keeps the original pre-scrub memory
	if !d.state.Scrubbing() {
		d.wasPlaying = d.state.Playing
	}
	d.state.Playing = false
	d.state.FastForwarding = !rewind
	d.state.Rewinding = rewind
	d.pauseResourceLocked()
	d.ensureTickerLocked()
	s := d.state
	d.mu.Unlock()
	d.notify(s)
}

func (d *Deck) stopScrub(rewind bool) {
	d.mu.Lock()
	active := d.state.Rewinding == rewind && d.state.FastForwarding == !rewind
	if d.closed || !active {
		d.mu.Unlock()
		return
	}
	d.releaseScrubLocked()
	s := d.state
	d.mu.Unlock()
	d.notify(s)
}

// releaseScrubLocked ends any active scrub: clears the flags, seeks
// the audio to the simulated position and restores the play state
// remembered when the scrub began. Also invoked by the ticker when a
// rewind hits the start of the side and when the motor overheats.
func (d *Deck) releaseScrubLocked() {
	d.state.FastForwarding = false
	d.state.Rewinding = false
	d.reconcileSeekLocked()
	d.state.Playing = d.wasPlaying
	d.wasPlaying = false
	if d.state.Playing {
		d.playResourceLocked()
		d.ensureTickerLocked()
	}
}

// FlipSide turns the cassette over: other side, first track, position
// zero. Whether the deck was playing carries across the flip; a flip
// during a scrub releases the scrub and carries the pre-scrub play
// state instead. Flipping onto an empty side leaves the deck trackless
// and stopped. Motor heat is not reset; flipping is not a way to skip
// the cooldown. A newer Load or FlipSide supersedes one whose resource
// open has not yet resolved.
func (d *Deck) FlipSide() error {
	d.mu.Lock()
	if d.closed || d.mixtape == nil {
		d.mu.Unlock()
		return nil
	}
	d.gen++
	gen := d.gen
	resume := d.state.Playing || (d.state.Scrubbing() && d.wasPlaying)
	side := d.state.Side.Other()
	tracks := d.mixtape.Tracks(side)
	d.pauseResourceLocked()

	if len(tracks) == 0 {
		old := d.resource
		d.resource = nil
		d.wasPlaying = false
		d.state.Side = side
		d.state.TrackIndex = 0
		d.state.Position = 0
		d.state.Duration = 0
		d.state.Playing = false
		d.state.FastForwarding = false
		d.state.Rewinding = false
		s := d.state
		d.mu.Unlock()
		d.disposeResource(old)
		d.notify(s)
		return nil
	}
	track := tracks[0]
	d.mu.Unlock()

	res, err := d.provider.Open(track)

	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		d.disposeResource(res)
		slog.Debug("discarding superseded side flip", "side", string(side))
		return nil
	}
	if err != nil {
		// last-known-good state stays; resume audio if it was rolling
		if d.state.Playing {
			d.playResourceLocked()
		}
		d.mu.Unlock()
		return fmt.Errorf("open track %q on side %s: %w", track.Title, side, err)
	}
	old := d.resource
	d.resource = res
	d.wasPlaying = false
	d.state.Side = side
	d.state.TrackIndex = 0
	d.state.Position = 0
	d.state.Duration = track.Duration
	d.state.Playing = resume
	d.state.FastForwarding = false
	d.state.Rewinding = false
	if resume {
		d.playResourceLocked()
		d.ensureTickerLocked()
	}
	s := d.state
	d.mu.Unlock()

	d.disposeResource(old)
	d.notify(s)
	return nil
}
