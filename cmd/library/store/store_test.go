package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gigurra/ferrite/cmd/deck/tape"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir())
}

func sampleMixtape(id, title string) *tape.Mixtape {
	return &tape.Mixtape{
		ID:    id,
		Title: title,
		SideA: []tape.Track{
			{ID: "t1", Title: "opener", Duration: 3 * time.Minute, Source: tape.LocalSource("/music/opener.mp3")},
		},
		SideB: []tape.Track{
			{ID: "t2", Title: "closer", Duration: 4 * time.Minute, Source: tape.LocalSource("/music/closer.mp3")},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := testStore(t)

	m := sampleMixtape("tape-1", "road trip 94")
	if err := s.Save(m); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load("tape-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Title != "road trip 94" {
		t.Errorf("expected title preserved, got %q", loaded.Title)
	}
	if len(loaded.SideA) != 1 || loaded.SideA[0].Duration != 3*time.Minute {
		t.Errorf("side A not preserved: %+v", loaded.SideA)
	}
	if loaded.SideB[0].Source.Kind != tape.SourceLocal {
		t.Errorf("expected local source kind, got %q", loaded.SideB[0].Source.Kind)
	}
}

func TestSave_AssignsID(t *testing.T) {
	s := testStore(t)

	m := sampleMixtape("", "untitled no. 5")
	if err := s.Save(m); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if m.ID == "" {
		t.Fatal("expected Save to assign an ID")
	}
	if _, err := s.Load(m.ID); err != nil {
		t.Errorf("saved mixtape not loadable by assigned ID: %v", err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Load("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	s := testStore(t)

	if err := s.Save(sampleMixtape("tape-1", "road trip 94")); err != nil {
		t.Fatal(err)
	}
	if !s.Exists("tape-1") {
		t.Error("expected saved mixtape to exist")
	}
	if s.Exists("tape-2") {
		t.Error("expected unknown ID to not exist")
	}
}

func TestList_SortsByTitleAndSkipsCorrupt(t *testing.T) {
	s := testStore(t)

	if err := s.Save(sampleMixtape("b", "zebra crossing")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(sampleMixtape("a", "autumn leaves")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}

	mixtapes, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(mixtapes) != 2 {
		t.Fatalf("expected 2 mixtapes, got %d", len(mixtapes))
	}
	if mixtapes[0].Title != "autumn leaves" || mixtapes[1].Title != "zebra crossing" {
		t.Errorf("expected title sort order, got %q then %q", mixtapes[0].Title, mixtapes[1].Title)
	}
}

func TestList_MissingDirIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist"))

	mixtapes, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(mixtapes) != 0 {
		t.Errorf("expected empty library, got %d", len(mixtapes))
	}
}

func TestResolve(t *testing.T) {
	s := testStore(t)

	if err := s.Save(sampleMixtape("aabb-1111", "road trip 94")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(sampleMixtape("aacc-2222", "late night drive")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		ref     string
		wantID  string
		wantErr error
	}{
		{"exact id", "aabb-1111", "aabb-1111", nil},
		{"unique prefix", "aab", "aabb-1111", nil},
		{"title case insensitive", "Road Trip 94", "aabb-1111", nil},
		{"ambiguous prefix", "aa", "", ErrAmbiguous},
		{"no match", "zzz", "", ErrNotFound},
		{"empty ref", "", "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := s.Resolve(tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if m.ID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, m.ID)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)

	if err := s.Save(sampleMixtape("tape-1", "road trip 94")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("tape-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load("tape-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected mixtape gone, got %v", err)
	}
	if err := s.Delete("tape-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
