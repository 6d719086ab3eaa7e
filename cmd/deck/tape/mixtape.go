package tape

import (
	"fmt"
	"strings"
	"time"
)

// Side identifies one of the two track lists of a mixtape.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideB {
		return SideA
	}
	return SideB
}

// ParseSide parses a user-supplied side name ("a", "A", "b", "B").
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "":
		return SideA, nil
	case "B":
		return SideB, nil
	default:
		return SideA, fmt.Errorf("invalid side %q (use A or B)", s)
	}
}

// SourceKind describes where a track's audio comes from.
type SourceKind string

const (
	SourceLocal SourceKind = "local"
	SourceURL   SourceKind = "url"
)

// Source describes the audio origin of a track.
type Source struct {
	Kind     SourceKind `json:"kind"`
	Path     string     `json:"path,omitempty"`     // set when Kind == SourceLocal
	URL      string     `json:"url,omitempty"`      // set when Kind == SourceURL
	Provider string     `json:"provider,omitempty"` // optional provider metadata for URL sources
}

// LocalSource returns a Source pointing at a file on disk.
func LocalSource(path string) Source {
	return Source{Kind: SourceLocal, Path: path}
}

// URLSource returns a Source pointing at a remote address.
func URLSource(url, provider string) Source {
	return Source{Kind: SourceURL, URL: url, Provider: provider}
}

// Track is one entry on a mixtape side. The deck treats tracks as
// read-only input; it never mutates or persists them.
type Track struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Duration time.Duration `json:"duration"`
	Source   Source        `json:"source"`
}

// Mixtape is an ordered collection of tracks split across two sides.
// It is owned by the caller and must not be modified after being handed
// to Deck.Load.
type Mixtape struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	SideA []Track `json:"side_a"`
	SideB []Track `json:"side_b"`
}

// Tracks returns the track list of the given side.
func (m *Mixtape) Tracks(side Side) []Track {
	if side == SideB {
		return m.SideB
	}
	return m.SideA
}

// IsEmpty reports whether both sides have no tracks.
func (m *Mixtape) IsEmpty() bool {
	return len(m.SideA) == 0 && len(m.SideB) == 0
}

// TrackCount returns the total number of tracks across both sides.
func (m *Mixtape) TrackCount() int {
	return len(m.SideA) + len(m.SideB)
}

// Runtime returns the combined duration of all tracks on both sides.
func (m *Mixtape) Runtime() time.Duration {
	var total time.Duration
	for _, t := range m.SideA {
		total += t.Duration
	}
	for _, t := range m.SideB {
		total += t.Duration
	}
	return total
}

// SideRuntime returns the combined duration of one side.
func (m *Mixtape) SideRuntime(side Side) time.Duration {
	var total time.Duration
	for _, t := range m.Tracks(side) {
		total += t.Duration
	}
	return total
}

// firstPlayableSide returns the first side that has at least one track,
// preferring side A. ok is false when both sides are empty.
func (m *Mixtape) firstPlayableSide() (side Side, ok bool) {
	if len(m.SideA) > 0 {
		return SideA, true
	}
	if len(m.SideB) > 0 {
		return SideB, true
	}
	return SideA, false
}
