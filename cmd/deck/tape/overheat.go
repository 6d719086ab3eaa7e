package tape

import "time"

// overheatRegulator models motor heat from fast-forward/rewind abuse.
// Heat builds while scrubbing and decays otherwise. Hitting the cap
// trips a latch that blocks further scrubbing until the level decays
// below the cooldown threshold.
type overheatRegulator struct {
	heatRate  float64 // points per second while scrubbing
	coolRate  float64 // points per second otherwise
	threshold float64 // latch releases below this level

	level      float64 // 0..100
	overheated bool
}

func newOverheatRegulator(o Options) overheatRegulator {
	return overheatRegulator{
		heatRate:  o.HeatRate,
		coolRate:  o.CoolRate,
		threshold: o.CooldownThreshold,
	}
}

// update advances the heat model by elapsed wall time. It returns true
// on the tick the level caps out, which forces the deck to release any
// held scrub.
func (r *overheatRegulator) update(elapsed time.Duration, scrubbing bool) (forcedRelease bool) {
	secs := elapsed.Seconds()
	if scrubbing {
		r.level += r.heatRate * secs
	} else {
		r.level -= r.coolRate * secs
	}

	if r.level >= 100 {
		r.level = 100
		if !r.overheated {
			r.overheated = true
			forcedRelease = true
		}
	}
	if r.level < 0 {
		r.level = 0
	}
	if r.overheated && r.level < r.threshold {
		r.overheated = false
	}
	return forcedRelease
}

func (r *overheatRegulator) reset() {
	r.level = 0
	r.overheated = false
}
