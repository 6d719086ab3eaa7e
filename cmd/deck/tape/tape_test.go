package tape

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeResource records transport calls so tests can assert on them.
type fakeResource struct {
	mu       sync.Mutex
	track    Track
	playing  bool
	lastSeek time.Duration
	plays    int
	pauses   int
	seeks    int
	disposes int

	playErr    error
	disposeErr error
}

func (r *fakeResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plays++
	if r.playErr != nil {
		return r.playErr
	}
	r.playing = true
	return nil
}

func (r *fakeResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses++
	r.playing = false
	return nil
}

func (r *fakeResource) Seek(pos time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks++
	r.lastSeek = pos
	return nil
}

func (r *fakeResource) Position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeek
}

func (r *fakeResource) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposes++
	return r.disposeErr
}

func (r *fakeResource) disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposes > 0
}

func (r *fakeResource) isPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

func (r *fakeResource) seekedTo() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeek
}

// fakeProvider scripts resource opens. openErrs fails opens by track ID.
// blockCall parks the n-th open until release is closed; entered signals
// that the call is parked, so tests can interleave deterministically.
type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	opened   []*fakeResource
	openErrs map[string]error

	blockCall int
	entered   chan struct{}
	release   chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{openErrs: map[string]error{}}
}

func (p *fakeProvider) blockNthOpen(n int) {
	p.blockCall = n
	p.entered = make(chan struct{}, 1)
	p.release = make(chan struct{})
}

func (p *fakeProvider) Open(track Track) (Resource, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	if call == p.blockCall {
		p.entered <- struct{}{}
		<-p.release
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.openErrs[track.ID]; err != nil {
		return nil, err
	}
	r := &fakeResource{track: track}
	p.opened = append(p.opened, r)
	return r, nil
}

func (p *fakeProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, r := range p.opened {
		if !r.disposed() {
			n++
		}
	}
	return n
}

func (p *fakeProvider) resource(i int) *fakeResource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened[i]
}

// countingListener collects every snapshot it receives.
type countingListener struct {
	mu    sync.Mutex
	calls []State
}

func (c *countingListener) fn(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func (c *countingListener) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *countingListener) last() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[len(c.calls)-1]
}

func testMixtape() *Mixtape {
	return &Mixtape{
		ID:    "tape-1",
		Title: "roadtrip",
		SideA: []Track{
			{ID: "a1", Title: "Opening Theme", Duration: 10 * time.Second, Source: LocalSource("/music/a1.mp3")},
			{ID: "a2", Title: "Night Drive", Duration: 20 * time.Second, Source: LocalSource("/music/a2.mp3")},
		},
		SideB: []Track{
			{ID: "b1", Title: "Side Two Opener", Duration: 15 * time.Second, Source: LocalSource("/music/b1.mp3")},
		},
	}
}

// testDeck builds a deck whose ticks are driven manually and whose
// glitch rolls never fire.
func testDeck(t *testing.T, p *fakeProvider) *Deck {
	t.Helper()
	d := NewDeck(p, Options{
		TickInterval: time.Hour,
		GlitchChance: -1,
	})
	t.Cleanup(d.Cleanup)
	return d
}

// invariantListener fails the test if any published snapshot violates
// the state invariants.
func invariantListener(t *testing.T) Listener {
	return func(s State) {
		if s.Position < 0 || s.Position > s.Duration {
			t.Errorf("position %v out of bounds [0, %v]", s.Position, s.Duration)
		}
		if s.OverheatLevel < 0 || s.OverheatLevel > 100 {
			t.Errorf("overheat level %v out of bounds [0, 100]", s.OverheatLevel)
		}
		moving := 0
		for _, f := range []bool{s.Playing, s.FastForwarding, s.Rewinding} {
			if f {
				moving++
			}
		}
		if moving > 1 {
			t.Errorf("transport flags not mutually exclusive: %+v", s)
		}
		if s.Overheated && s.Scrubbing() {
			t.Errorf("scrubbing while overheated: %+v", s)
		}
	}
}

func TestLoad_StartsOnSideA(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	if err := d.Load(testMixtape()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s := d.State()
	if s.MixtapeID != "tape-1" || s.Side != SideA || s.TrackIndex != 0 {
		t.Errorf("unexpected state after load: %+v", s)
	}
	if s.Position != 0 || s.Duration != 10*time.Second {
		t.Errorf("expected position 0 of 10s, got %v of %v", s.Position, s.Duration)
	}
	if s.Playing {
		t.Errorf("deck should not play before Play is pressed")
	}
	if p.openCount() != 1 {
		t.Errorf("expected 1 resource open, got %d", p.openCount())
	}
}

func TestLoad_EmptySideAStartsOnB(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	m := testMixtape()
	m.SideA = nil
	if err := d.Load(m); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s := d.State()
	if s.Side != SideB || s.Duration != 15*time.Second {
		t.Errorf("expected side B with 15s track, got %+v", s)
	}
}

func TestLoad_EmptyMixtapeIsValid(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	if err := d.Load(&Mixtape{ID: "blank"}); err != nil {
		t.Fatalf("empty mixtape should load without error: %v", err)
	}
	s := d.State()
	if s.MixtapeID != "blank" || s.Side != SideA || s.Duration != 0 {
		t.Errorf("unexpected state: %+v", s)
	}
	if p.openCount() != 0 {
		t.Errorf("no resource should be opened for an empty mixtape")
	}

	// unplayable but every command stays calm
	if err := d.Play(); err != nil {
		t.Fatalf("Play on empty mixtape: %v", err)
	}
	if d.State().Playing {
		t.Errorf("empty mixtape must not start playing")
	}
}

func TestLoad_NilMixtape(t *testing.T) {
	d := testDeck(t, newFakeProvider())
	if err := d.Load(nil); !errors.Is(err, ErrNoMixtape) {
		t.Errorf("expected ErrNoMixtape, got %v", err)
	}
}

func TestLoad_OpenFailureKeepsLastGoodState(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	if err := d.Load(testMixtape()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := d.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	bad := &Mixtape{ID: "tape-2", SideA: []Track{
		{ID: "x1", Title: "Missing", Duration: time.Second, Source: LocalSource("/gone.mp3")},
	}}
	cause := errors.New("file not found")
	p.openErrs["x1"] = cause

	err := d.Load(bad)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
	s := d.State()
	if s.MixtapeID != "tape-1" || !s.Playing {
		t.Errorf("failed load must keep the previous tape playing, got %+v", s)
	}
	if p.resource(0).disposed() {
		t.Errorf("previous resource must survive a failed load")
	}
	if !p.resource(0).isPlaying() {
		t.Errorf("previous resource should resume after the failed open")
	}
}

func TestLoad_ReplacesPreviousResource(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	d.Load(testMixtape())
	d.Load(testMixtape())

	if !p.resource(0).disposed() {
		t.Errorf("reload must dispose the previous resource")
	}
	if p.liveCount() != 1 {
		t.Errorf("expected exactly 1 live resource, got %d", p.liveCount())
	}
}

func TestPlayPause(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)
	l := &countingListener{}
	d.OnStateChange(l.fn)
	d.OnStateChange(invariantListener(t))

	d.Load(testMixtape())
	if err := d.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !d.State().Playing {
		t.Errorf("expected playing state")
	}
	if !p.resource(0).isPlaying() {
		t.Errorf("resource should be playing")
	}

	before := l.count()
	if err := d.Play(); err != nil {
		t.Fatalf("second Play errored: %v", err)
	}
	if l.count() != before {
		t.Errorf("Play while playing must not notify")
	}

	d.Pause()
	if d.State().Playing {
		t.Errorf("expected paused state")
	}
	if p.resource(0).isPlaying() {
		t.Errorf("resource should be paused")
	}
	d.Pause()
	if l.count() != before+1 {
		t.Errorf("Pause while paused must not notify")
	}
}

func TestPlay_UnloadedIsNoop(t *testing.T) {
	d := testDeck(t, newFakeProvider())
	l := &countingListener{}
	d.OnStateChange(l.fn)

	if err := d.Play(); err != nil {
		t.Fatalf("Play on unloaded deck must not error, got %v", err)
	}
	if l.count() != 0 {
		t.Errorf("no-op command must not notify")
	}
}

func TestSubscribers_ExactlyOncePerCommand(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	l1 := &countingListener{}
	l2 := &countingListener{}
	d.OnStateChange(l1.fn)
	unsub := d.OnStateChange(l2.fn)

	d.Load(testMixtape())
	if err := d.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if l1.count() != 2 || l2.count() != 2 {
		t.Fatalf("expected 2 notifications each, got %d and %d", l1.count(), l2.count())
	}
	if l1.last() != l2.last() {
		t.Errorf("listeners saw different snapshots: %+v vs %+v", l1.last(), l2.last())
	}

	unsub()
	d.Pause()
	if l1.count() != 3 {
		t.Errorf("remaining listener should see the pause, got %d", l1.count())
	}
	if l2.count() != 2 {
		t.Errorf("unsubscribed listener must stay silent, got %d", l2.count())
	}

	// second unsubscribe is a no-op
	unsub()
	d.Play()
	if l1.count() != 4 {
		t.Errorf("double unsubscribe must not affect other listeners")
	}
}

func TestSubscribers_UnsubscribeDuringNotification(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	l2 := &countingListener{}
	var unsub2 func()
	first := true
	d.OnStateChange(func(State) {
		if first {
			first = false
			unsub2()
		}
	})
	unsub2 = d.OnStateChange(l2.fn)

	d.Load(testMixtape())
	// the current fan-out still includes l2; it goes quiet afterwards
	if l2.count() != 1 {
		t.Errorf("expected 1 notification before unsubscribe took effect, got %d", l2.count())
	}
	d.Play()
	if l2.count() != 1 {
		t.Errorf("unsubscribed listener notified again: %d", l2.count())
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)
	l := &countingListener{}
	d.OnStateChange(l.fn)

	d.Load(testMixtape())
	d.Play()
	d.Cleanup()
	d.Cleanup()

	if got := p.resource(0).disposes; got != 1 {
		t.Errorf("resource disposed %d times, want exactly 1", got)
	}
	if d.State().Playing {
		t.Errorf("cleanup must stop playback")
	}

	// everything after cleanup is a silent no-op
	before := l.count()
	if err := d.Load(testMixtape()); err != nil {
		t.Errorf("Load after cleanup must be a no-op, got %v", err)
	}
	if err := d.Play(); err != nil {
		t.Errorf("Play after cleanup must be a no-op, got %v", err)
	}
	if err := d.FlipSide(); err != nil {
		t.Errorf("FlipSide after cleanup must be a no-op, got %v", err)
	}
	d.Pause()
	d.StartFastForward()
	if l.count() != before {
		t.Errorf("commands after cleanup must not notify")
	}
	if p.openCount() != 1 {
		t.Errorf("commands after cleanup must not open resources")
	}
}

func TestCleanup_NeverLoaded(t *testing.T) {
	d := NewDeck(newFakeProvider(), Options{})
	d.Cleanup()
	d.Cleanup()
}

func TestCleanup_DisposalFailureSwallowed(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	d.Load(testMixtape())
	p.resource(0).disposeErr = errors.New("device wedged")
	d.Cleanup()

	if got := p.resource(0).disposes; got != 1 {
		t.Errorf("dispose attempted %d times, want 1", got)
	}
}

func TestCleanup_SupersedesInFlightOpen(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	d.Load(testMixtape())
	p.blockNthOpen(2)

	done := make(chan error, 1)
	go func() { done <- d.FlipSide() }()
	<-p.entered

	d.Cleanup()
	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("superseded flip must not error, got %v", err)
	}
	if p.liveCount() != 0 {
		t.Errorf("expected all resources disposed after cleanup, %d still live", p.liveCount())
	}
}

func TestFlipSide_PreservesPlaying(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)
	d.OnStateChange(invariantListener(t))

	d.Load(testMixtape())
	d.Play()
	if err := d.FlipSide(); err != nil {
		t.Fatalf("FlipSide failed: %v", err)
	}

	s := d.State()
	if s.Side != SideB || s.TrackIndex != 0 || s.Position != 0 {
		t.Errorf("unexpected state after flip: %+v", s)
	}
	if s.Duration != 15*time.Second {
		t.Errorf("expected side B track duration, got %v", s.Duration)
	}
	if !s.Playing {
		t.Errorf("playing must carry across the flip")
	}
	if !p.resource(0).disposed() {
		t.Errorf("side A resource must be disposed")
	}
	if !p.resource(1).isPlaying() {
		t.Errorf("side B resource should be playing")
	}
}

func TestFlipSide_PausedStaysPaused(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	d.Load(testMixtape())
	if err := d.FlipSide(); err != nil {
		t.Fatalf("FlipSide failed: %v", err)
	}
	if s := d.State(); s.Playing {
		t.Errorf("paused deck must stay paused after flip: %+v", s)
	}
	if p.resource(1).isPlaying() {
		t.Errorf("resource must not start on its own")
	}
}

func TestFlipSide_EmptySideGoesTrackless(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)
	d.OnStateChange(invariantListener(t))

	m := testMixtape()
	m.SideB = nil
	d.Load(m)
	d.Play()

	if err := d.FlipSide(); err != nil {
		t.Fatalf("FlipSide failed: %v", err)
	}
	s := d.State()
	if s.Side != SideB || s.Duration != 0 || s.Position != 0 || s.Playing {
		t.Errorf("expected stopped trackless side B, got %+v", s)
	}
	if !p.resource(0).disposed() {
		t.Errorf("side A resource must be disposed")
	}
	if p.openCount() != 1 {
		t.Errorf("no open for an empty side, got %d", p.openCount())
	}

	// play on the empty side stays a no-op; flipping back recovers
	if err := d.Play(); err != nil || d.State().Playing {
		t.Errorf("Play on empty side must be a no-op")
	}
	if err := d.FlipSide(); err != nil {
		t.Fatalf("flip back failed: %v", err)
	}
	if s := d.State(); s.Side != SideA || s.Duration != 10*time.Second {
		t.Errorf("expected side A restored, got %+v", s)
	}
}

func TestFlipSide_Unloaded(t *testing.T) {
	d := testDeck(t, newFakeProvider())
	if err := d.FlipSide(); err != nil {
		t.Errorf("FlipSide on unloaded deck must be a no-op, got %v", err)
	}
}

func TestFlipSide_OpenFailureKeepsSide(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	d.Load(testMixtape())
	d.Play()
	cause := errors.New("tape chewed")
	p.openErrs["b1"] = cause

	err := d.FlipSide()
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
	s := d.State()
	if s.Side != SideA || !s.Playing {
		t.Errorf("failed flip must keep side A playing, got %+v", s)
	}
	if p.resource(0).disposed() {
		t.Errorf("current resource must survive a failed flip")
	}
	if !p.resource(0).isPlaying() {
		t.Errorf("current resource should resume after the failed open")
	}
}

func TestFlipSide_SecondFlipSupersedesFirst(t *testing.T) {
	p := newFakeProvider()
	d := testDeck(t, p)

	d.Load(testMixtape())
	p.blockNthOpen(2)

	done := make(chan error, 1)
	go func() { done <- d.FlipSide() }()
	<-p.entered // first flip parked inside its resource open

	if err := d.FlipSide(); err != nil {
		t.Fatalf("second flip failed: %v", err)
	}
	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("superseded flip must not error, got %v", err)
	}

	s := d.State()
	if s.Side != SideB {
		t.Errorf("expected the second flip's side to win, got %v", s.Side)
	}
	if p.liveCount() != 1 {
		t.Errorf("expected exactly 1 live resource, got %d", p.liveCount())
	}
	// the parked flip's late open resolved into a disposal
	if !p.resource(2).disposed() {
		t.Errorf("superseded flip must dispose its own resource")
	}
	if p.resource(1).disposed() {
		t.Errorf("winning flip's resource must stay live")
	}
}
