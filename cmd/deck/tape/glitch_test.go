package tape

import (
	"math/rand"
	"testing"
	"time"
)

func testGlitchDirector(chance float64, seed int64) glitchDirector {
	return glitchDirector{
		rng:        rand.New(rand.NewSource(seed)),
		chance:     chance,
		minDur:     2 * time.Second,
		maxDur:     6 * time.Second,
		jumpscares: []string{"tape-scream", "vhs-static"},
	}
}

func TestGlitchDirector_TriggersOnlyWhilePlaying(t *testing.T) {
	g := testGlitchDirector(1, 1)
	base := time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)

	if gl := g.update(base, false, nil); gl != nil {
		t.Errorf("a paused deck must not glitch")
	}

	gl := g.update(base, true, nil)
	if gl == nil {
		t.Fatalf("chance 1 while playing must trigger")
	}
	if !gl.Start.Equal(base) {
		t.Errorf("glitch start should stamp the trigger time, got %v", gl.Start)
	}
	if gl.Duration < 2*time.Second || gl.Duration > 6*time.Second {
		t.Errorf("duration %v outside the configured band", gl.Duration)
	}
	known := false
	for _, k := range glitchKinds {
		if gl.Kind == k {
			known = true
		}
	}
	if !known {
		t.Errorf("unknown glitch kind %q", gl.Kind)
	}
	if gl.Jumpscare != "tape-scream" && gl.Jumpscare != "vhs-static" {
		t.Errorf("jumpscare %q not from the pool", gl.Jumpscare)
	}
}

func TestGlitchDirector_SingleActiveEpisode(t *testing.T) {
	g := testGlitchDirector(1, 7)
	base := time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)

	gl := g.update(base, true, nil)
	if gl == nil {
		t.Fatalf("expected a glitch")
	}
	if got := g.update(base.Add(gl.Duration/2), true, gl); got != gl {
		t.Errorf("an active episode must not be replaced")
	}
}

func TestGlitchDirector_Expiry(t *testing.T) {
	g := testGlitchDirector(-1, 3) // never re-rolls
	base := time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)
	gl := &Glitch{Kind: GlitchTapeJitter, Start: base, Duration: 2 * time.Second}

	if got := g.update(base.Add(time.Second), true, gl); got != gl {
		t.Errorf("episode expired early")
	}
	if got := g.update(base.Add(2*time.Second), true, gl); got != nil {
		t.Errorf("episode must expire once its duration has elapsed")
	}
	// expiry does not depend on the transport moving
	if got := g.update(base.Add(2*time.Second), false, gl); got != nil {
		t.Errorf("a paused deck must still expire episodes")
	}
}

func TestGlitchDirector_EmptyJumpscarePool(t *testing.T) {
	g := testGlitchDirector(1, 5)
	g.jumpscares = nil

	gl := g.update(time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC), true, nil)
	if gl == nil {
		t.Fatalf("expected a glitch")
	}
	if gl.Jumpscare != "" {
		t.Errorf("empty pool must produce no jumpscare, got %q", gl.Jumpscare)
	}
}

func TestDeck_GlitchLifecycle(t *testing.T) {
	p := newFakeProvider()
	d := NewDeck(p, Options{
		TickInterval:      time.Hour,
		GlitchChance:      1,
		GlitchMinDuration: 2 * time.Second,
		GlitchMaxDuration: 2 * time.Second,
		Rand:              rand.New(rand.NewSource(42)),
	})
	t.Cleanup(d.Cleanup)

	clock := time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	d.Load(testMixtape())
	d.Play()
	d.tick(time.Second)

	first := d.State().Glitch
	if first == nil {
		t.Fatalf("chance 1 must glitch on the first playing tick")
	}

	// the active episode rides through further ticks untouched
	clock = clock.Add(time.Second)
	d.tick(time.Second)
	if got := d.State().Glitch; got != first {
		t.Errorf("active glitch must persist until expiry")
	}

	// stop new rolls and let the episode run out mid-scrub
	d.mu.Lock()
	d.glitches.chance = -1
	d.mu.Unlock()
	d.StartFastForward()
	clock = clock.Add(time.Second)
	d.tick(time.Second)
	if got := d.State().Glitch; got != nil {
		t.Errorf("expired glitch must clear even during a scrub, got %+v", got)
	}
}
