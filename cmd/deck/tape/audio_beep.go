//go:build (linux && cgo) || windows || darwin

package tape

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// speakerRate is the fixed output rate; every track is resampled onto it
// so tracks with different native rates can share the one speaker.
const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker initializes the process-wide speaker once, on first open.
func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// BeepProvider opens local audio files with beep decoders. URL sources
// are declined; this provider does not stream.
type BeepProvider struct{}

func NewBeepProvider() *BeepProvider {
	return &BeepProvider{}
}

func (BeepProvider) Open(track Track) (Resource, error) {
	if track.Source.Kind != SourceLocal {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, track.Source.Kind)
	}
	f, err := os.Open(track.Source.Path)
	if err != nil {
		return nil, err
	}
	streamer, format, err := decodeAudio(track.Source.Path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := initSpeaker(); err != nil {
		streamer.Close()
		f.Close()
		return nil, err
	}

	// Paused from the start; the deck decides when tape actually rolls.
	ctrl := &beep.Ctrl{
		Streamer: beep.Resample(4, format.SampleRate, speakerRate, streamer),
		Paused:   true,
	}
	speaker.Play(ctrl)

	return &beepResource{
		file:     f,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
	}, nil
}

// decodeAudio picks a decoder from the file extension.
func decodeAudio(path string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: unrecognized audio file %q", ErrUnsupportedSource, filepath.Base(path))
	}
}

// ProbeDuration decodes just enough of a local audio file to report its
// length. Used when tracks are added to the library.
func ProbeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	streamer, format, err := decodeAudio(path, f)
	if err != nil {
		f.Close()
		return 0, err
	}
	d := format.SampleRate.D(streamer.Len())
	err = streamer.Close()
	// decoders differ on whether Close also closes the source file
	_ = f.Close()
	if err != nil {
		return 0, err
	}
	return d, nil
}

// beepResource is one open track routed through the shared speaker.
type beepResource struct {
	mu       sync.Mutex
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	disposed bool
}

func (r *beepResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil
	}
	speaker.Lock()
	r.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (r *beepResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil
	}
	speaker.Lock()
	r.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (r *beepResource) Seek(pos time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	n := r.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if l := r.streamer.Len(); n >= l {
		n = l - 1
	}
	if n < 0 {
		return nil
	}
	return r.streamer.Seek(n)
}

func (r *beepResource) Position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return 0
	}
	speaker.Lock()
	n := r.streamer.Position()
	speaker.Unlock()
	return r.format.SampleRate.D(n)
}

func (r *beepResource) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil
	}
	r.disposed = true

	// Detaching the streamer drains the ctrl, so the mixer drops it on
	// the next pull.
	speaker.Lock()
	r.ctrl.Paused = true
	r.ctrl.Streamer = nil
	speaker.Unlock()

	err := r.streamer.Close()
	// decoders differ on whether Close also closes the source file
	_ = r.file.Close()
	if err != nil {
		return fmt.Errorf("close audio stream: %w", err)
	}
	return nil
}
