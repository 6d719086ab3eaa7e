package tape

import (
	"math/rand"
	"time"
)

// Tape physics defaults. These are tuning knobs, not contracts: callers
// may override any of them through Options, and the config file exposes
// them to users.
const (
	// DefaultTickInterval is how often the deck advances time-based state.
	DefaultTickInterval = 200 * time.Millisecond

	// DefaultScrubSpeed is the position multiplier while fast-forwarding
	// or rewinding (negative for rewind).
	DefaultScrubSpeed = 2.0

	// DefaultHeatRate is how many overheat points one second of
	// fast-forward/rewind adds. 25/s means four seconds of sustained
	// scrubbing trips the overheat latch.
	DefaultHeatRate = 25.0

	// DefaultCoolRate is how many overheat points one second of normal
	// operation sheds.
	DefaultCoolRate = 10.0

	// DefaultCooldownThreshold is the level the heat must decay below
	// before an overheated deck accepts scrub commands again.
	DefaultCooldownThreshold = 30.0

	// DefaultGlitchChance is the per-tick probability of a glitch episode
	// starting during normal playback.
	DefaultGlitchChance = 0.008

	// DefaultGlitchMinDuration and DefaultGlitchMaxDuration bound the
	// randomized length of a glitch episode.
	DefaultGlitchMinDuration = 2 * time.Second
	DefaultGlitchMaxDuration = 6 * time.Second
)

// Options tunes a Deck. The zero value of any field selects its default.
type Options struct {
	TickInterval time.Duration

	ScrubSpeed float64

	HeatRate          float64
	CoolRate          float64
	CooldownThreshold float64

	// GlitchChance is the per-tick trigger probability. Negative
	// disables glitches entirely.
	GlitchChance      float64
	GlitchMinDuration time.Duration
	GlitchMaxDuration time.Duration

	// Jumpscares is an optional pool of sound references attached to
	// glitch episodes. An empty pool means glitches carry none.
	Jumpscares []string

	// Rand is the randomness source for the glitch director. Nil selects
	// a time-seeded source. Tests inject a fixed seed for determinism.
	Rand *rand.Rand
}

// DefaultOptions returns the stock tape physics.
func DefaultOptions() Options {
	return Options{
		TickInterval:      DefaultTickInterval,
		ScrubSpeed:        DefaultScrubSpeed,
		HeatRate:          DefaultHeatRate,
		CoolRate:          DefaultCoolRate,
		CooldownThreshold: DefaultCooldownThreshold,
		GlitchChance:      DefaultGlitchChance,
		GlitchMinDuration: DefaultGlitchMinDuration,
		GlitchMaxDuration: DefaultGlitchMaxDuration,
	}
}

// normalized fills zero-valued fields with their defaults.
func (o Options) normalized() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.ScrubSpeed <= 0 {
		o.ScrubSpeed = DefaultScrubSpeed
	}
	if o.HeatRate <= 0 {
		o.HeatRate = DefaultHeatRate
	}
	if o.CoolRate <= 0 {
		o.CoolRate = DefaultCoolRate
	}
	if o.CooldownThreshold <= 0 {
		o.CooldownThreshold = DefaultCooldownThreshold
	}
	if o.GlitchChance == 0 {
		o.GlitchChance = DefaultGlitchChance
	}
	if o.GlitchMinDuration <= 0 {
		o.GlitchMinDuration = DefaultGlitchMinDuration
	}
	if o.GlitchMaxDuration < o.GlitchMinDuration {
		o.GlitchMaxDuration = o.GlitchMinDuration
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}
