package tape

import (
	"time"
)

// GlitchKind selects the visual treatment of a glitch episode.
type GlitchKind string

const (
	GlitchCRTScanline   GlitchKind = "crt-scanline"
	GlitchPhosphorGreen GlitchKind = "phosphor-green"
	GlitchUIShake       GlitchKind = "ui-shake"
	GlitchTapeJitter    GlitchKind = "tape-jitter"
)

// glitchKinds lists every kind the director can pick from.
var glitchKinds = []GlitchKind{
	GlitchCRTScanline,
	GlitchPhosphorGreen,
	GlitchUIShake,
	GlitchTapeJitter,
}

// Glitch is one transient glitch episode. At most one is active per deck
// at any time. Instances are immutable once created; the director swaps
// the pointer rather than mutating fields, so snapshots stay consistent.
type Glitch struct {
	Kind      GlitchKind
	Jumpscare string // optional sound reference played by the renderer
	Start     time.Time
	Duration  time.Duration
}

// Expired reports whether the episode has run its course at the given time.
func (g *Glitch) Expired(now time.Time) bool {
	return now.Sub(g.Start) >= g.Duration
}

// State is the deck's externally visible snapshot. A new value replaces
// the previous one on every transition, so observers always see a
// consistent configuration.
type State struct {
	MixtapeID  string
	Side       Side
	TrackIndex int

	Position time.Duration // 0 <= Position <= Duration
	Duration time.Duration // duration of the current track

	Playing        bool
	FastForwarding bool
	Rewinding      bool

	OverheatLevel float64 // 0..100, clamped
	Overheated    bool    // latched at 100 until cooldown completes

	Glitch *Glitch // nil when no glitch episode is active
}

// Moving reports whether any transport flag is driving the reels.
func (s State) Moving() bool {
	return s.Playing || s.FastForwarding || s.Rewinding
}

// Scrubbing reports whether the deck is fast-forwarding or rewinding.
func (s State) Scrubbing() bool {
	return s.FastForwarding || s.Rewinding
}

// Loaded reports whether a mixtape has been loaded into the deck.
func (s State) Loaded() bool {
	return s.MixtapeID != ""
}

// Progress returns playback progress through the current track as a
// fraction in [0, 1]. A track-less side reports 0.
func (s State) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Position) / float64(s.Duration)
}
