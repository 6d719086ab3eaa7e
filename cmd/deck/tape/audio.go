package tape

import (
	"errors"
	"time"
)

var (
	// ErrNoMixtape is returned by Load when given a nil mixtape.
	ErrNoMixtape = errors.New("no mixtape")

	// ErrUnsupportedSource is returned by a Provider that cannot open
	// the given track source, e.g. a URL source on a local-only provider.
	ErrUnsupportedSource = errors.New("unsupported track source")

	// ErrAudioUnavailable is returned by the stub provider on builds
	// without audio support.
	ErrAudioUnavailable = errors.New("audio playback not available in this build")
)

// Provider opens track sources into playable resources. Open may block
// on I/O and is always called outside the deck lock.
type Provider interface {
	Open(track Track) (Resource, error)
}

// Resource is one opened track. The deck owns exactly zero or one at a
// time and disposes the old one before adopting a replacement.
//
// Position reports the underlying stream position. The deck keeps its
// own simulated position and treats that as authoritative; the stream
// position is reconciled on seeks and consulted only for diagnostics.
type Resource interface {
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Position() time.Duration
	Dispose() error
}
