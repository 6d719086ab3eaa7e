//go:build !((linux && cgo) || windows || darwin)

package tape

import (
	"fmt"
	"os"
	"time"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// BeepProvider is a silent provider for builds without audio support.
// Decks still work; the transport runs on simulated time without sound.
type BeepProvider struct{}

func NewBeepProvider() *BeepProvider {
	return &BeepProvider{}
}

// Open hands out a silent resource. Missing files and URL sources fail
// the same way they do on audio builds.
func (BeepProvider) Open(track Track) (Resource, error) {
	if track.Source.Kind != SourceLocal {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, track.Source.Kind)
	}
	if _, err := os.Stat(track.Source.Path); err != nil {
		return nil, err
	}
	return silentResource{}, nil
}

// ProbeDuration cannot decode without audio support.
func ProbeDuration(path string) (time.Duration, error) {
	return 0, ErrAudioUnavailable
}

type silentResource struct{}

func (silentResource) Play() error              { return nil }
func (silentResource) Pause() error             { return nil }
func (silentResource) Seek(time.Duration) error { return nil }
func (silentResource) Position() time.Duration  { return 0 }
func (silentResource) Dispose() error           { return nil }
