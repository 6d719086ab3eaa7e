package tape

import (
	"math/rand"
	"time"
)

// glitchDirector rolls for VHS-era playback artifacts. At most one
// glitch episode is active at a time; new rolls only happen during
// normal playback, but a running episode keeps counting down through
// pauses and scrubs.
type glitchDirector struct {
	rng        *rand.Rand
	chance     float64
	minDur     time.Duration
	maxDur     time.Duration
	jumpscares []string
}

func newGlitchDirector(o Options) glitchDirector {
	return glitchDirector{
		rng:        o.Rand,
		chance:     o.GlitchChance,
		minDur:     o.GlitchMinDuration,
		maxDur:     o.GlitchMaxDuration,
		jumpscares: o.Jumpscares,
	}
}

// update returns the glitch that should be active after this tick:
// the current one while it lasts, a fresh roll when playback is rolling
// and the dice land, nil otherwise.
func (g *glitchDirector) update(now time.Time, playing bool, current *Glitch) *Glitch {
	if current != nil {
		if !current.Expired(now) {
			return current
		}
		current = nil
	}
	if !playing {
		return nil
	}
	if g.rng.Float64() >= g.chance {
		return nil
	}
	return g.roll(now)
}

func (g *glitchDirector) roll(now time.Time) *Glitch {
	dur := g.minDur
	if span := g.maxDur - g.minDur; span > 0 {
		dur += time.Duration(g.rng.Int63n(int64(span) + 1))
	}
	gl := &Glitch{
		Kind:     glitchKinds[g.rng.Intn(len(glitchKinds))],
		Start:    now,
		Duration: dur,
	}
	if len(g.jumpscares) > 0 {
		gl.Jumpscare = g.jumpscares[g.rng.Intn(len(g.jumpscares))]
	}
	return gl
}
