// Package store persists mixtapes as JSON files in the library directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/gigurra/ferrite/cmd/common/config"
	"github.com/gigurra/ferrite/cmd/deck/tape"
)

var (
	// ErrNotFound means no mixtape matched the given reference.
	ErrNotFound = errors.New("mixtape not found")
	// ErrAmbiguous means a reference matched more than one mixtape.
	ErrAmbiguous = errors.New("ambiguous mixtape reference")
)

// Store reads and writes mixtapes in a single directory, one JSON file
// per mixtape named <id>.json.
type Store struct {
	dir string
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Default returns a store rooted at the user's library directory.
func Default() *Store {
	return New(config.LibraryDir())
}

// Dir returns the directory the store reads from.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// List loads all mixtapes in the library, sorted by title.
// Unreadable files are skipped with a warning so one corrupt mixtape
// doesn't take the whole library down.
func (s *Store) List() ([]tape.Mixtape, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []tape.Mixtape{}, nil
		}
		return nil, fmt.Errorf("read library dir: %w", err)
	}

	mixtapes := make([]tape.Mixtape, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			slog.Warn("skipping unreadable mixtape file", "file", entry.Name(), "error", err)
			continue
		}
		var m tape.Mixtape
		if err := json.Unmarshal(data, &m); err != nil {
			slog.Warn("skipping corrupt mixtape file", "file", entry.Name(), "error", err)
			continue
		}
		mixtapes = append(mixtapes, m)
	}

	sort.Slice(mixtapes, func(i, j int) bool {
		if mixtapes[i].Title != mixtapes[j].Title {
			return mixtapes[i].Title < mixtapes[j].Title
		}
		return mixtapes[i].ID < mixtapes[j].ID
	})
	return mixtapes, nil
}

// Load loads a single mixtape by its exact ID.
func (s *Store) Load(id string) (*tape.Mixtape, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read mixtape %s: %w", id, err)
	}
	var m tape.Mixtape
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mixtape %s: %w", id, err)
	}
	return &m, nil
}

// Exists reports whether a mixtape with the exact ID is in the library.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Resolve finds a mixtape by exact ID, ID prefix, or exact title
// (case-insensitive). Prefix and title matches must be unique.
func (s *Store) Resolve(ref string) (*tape.Mixtape, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	// Exact ID hit skips the directory scan
	if m, err := s.Load(ref); err == nil {
		return m, nil
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var matches []tape.Mixtape
	for _, m := range all {
		if strings.HasPrefix(m.ID, ref) || strings.EqualFold(m.Title, ref) {
			matches = append(matches, m)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d mixtapes", ErrAmbiguous, ref, len(matches))
	}
}

// Save writes a mixtape to the library, assigning an ID if it has none.
func (s *Store) Save(m *tape.Mixtape) error {
	if m == nil {
		return errors.New("nil mixtape")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mixtape %s: %w", m.ID, err)
	}
	if err := atomicWrite(s.path(m.ID), data); err != nil {
		return fmt.Errorf("write mixtape %s: %w", m.ID, err)
	}
	return nil
}

// Delete removes a mixtape file by its exact ID.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete mixtape %s: %w", id, err)
	}
	return nil
}

// atomicWrite writes data to a temp file then renames it to path, avoiding partial reads.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	_ = os.MkdirAll(dir, 0755)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
