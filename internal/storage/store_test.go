package storage_test

import (
	"bytes"
	"errors"
	"testing"

	"wikipath/internal/storage"
)

func buildStore(t *testing.T, fill func(t *testing.T, s *storage.Store)) string {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Create(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	fill(t, s)
	if err := s.MarkComplete(); err != nil {
		t.Fatalf("Failed to mark complete: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}
	return dir
}

func savePages(t *testing.T, s *storage.Store, pages ...struct {
	id       storage.PageID
	ns       int32
	title    string
	redirect bool
}) {
	t.Helper()
	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}
	for _, p := range pages {
		if _, err := s.SavePage(tx, p.id, p.ns, []byte(p.title), p.redirect); err != nil {
			t.Fatalf("Failed to save page %d: %v", p.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}

type pageRow = struct {
	id       storage.PageID
	ns       int32
	title    string
	redirect bool
}

func TestInternerRoundTrip(t *testing.T) {
	dir := buildStore(t, func(t *testing.T, s *storage.Store) {
		savePages(t, s,
			pageRow{1, 0, "Alpha", false},
			pageRow{2, 0, "Beta", false},
			pageRow{70000, 14, "Category_page", false},
		)
	})

	s, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	id, isRedirect, found, err := s.LookupPage(0, []byte("Alpha"))
	if err != nil || !found {
		t.Fatalf("Expected to find Alpha, found=%v err=%v", found, err)
	}
	if id != 1 || isRedirect {
		t.Errorf("Expected id 1 non-redirect, got %d %v", id, isRedirect)
	}

	ns, title, found, err := s.LookupTitle(70000)
	if err != nil || !found {
		t.Fatalf("Expected to find page 70000, found=%v err=%v", found, err)
	}
	if ns != 14 || !bytes.Equal(title, []byte("Category_page")) {
		t.Errorf("Expected ns 14 Category_page, got %d %q", ns, title)
	}

	_, _, found, err = s.LookupPage(0, []byte("Nope"))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found {
		t.Error("Expected Nope to be absent")
	}

	max, err := s.MaxPageID()
	if err != nil {
		t.Fatalf("MaxPageID failed: %v", err)
	}
	if max != 70000 {
		t.Errorf("Expected max id 70000, got %d", max)
	}
}

func TestBinaryTitles(t *testing.T) {
	title := []byte{0xff, 0x00, 'x', 0x1a}
	dir := buildStore(t, func(t *testing.T, s *storage.Store) {
		tx, err := s.Begin()
		if err != nil {
			t.Fatalf("Failed to begin: %v", err)
		}
		if _, err := s.SavePage(tx, 5, 0, title, false); err != nil {
			t.Fatalf("Failed to save page: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Failed to commit: %v", err)
		}
	})

	s, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	id, _, found, err := s.LookupPage(0, title)
	if err != nil || !found {
		t.Fatalf("Expected to find binary title, found=%v err=%v", found, err)
	}
	if id != 5 {
		t.Errorf("Expected id 5, got %d", id)
	}
	_, got, found, err := s.LookupTitle(5)
	if err != nil || !found {
		t.Fatalf("Expected reverse lookup to succeed, found=%v err=%v", found, err)
	}
	if !bytes.Equal(got, title) {
		t.Errorf("Expected %v back, got %v", title, got)
	}
}

func TestConflictingRowsLaterWins(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.Create(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}
	if _, err := s.SavePage(tx, 1, 0, []byte("Alpha"), false); err != nil {
		t.Fatalf("Failed to save page: %v", err)
	}
	replaced, err := s.SavePage(tx, 2, 0, []byte("Alpha"), false)
	if err != nil {
		t.Fatalf("Failed to save conflicting page: %v", err)
	}
	if !replaced {
		t.Error("Expected the conflicting row to be reported as a replacement")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	id, _, found, err := s.LookupPage(0, []byte("Alpha"))
	if err != nil || !found {
		t.Fatalf("Expected Alpha present, found=%v err=%v", found, err)
	}
	if id != 2 {
		t.Errorf("Expected later row to win with id 2, got %d", id)
	}
	// The displaced id must be gone from the reverse map too.
	_, _, found, err = s.LookupTitle(1)
	if err != nil {
		t.Fatalf("LookupTitle failed: %v", err)
	}
	if found {
		t.Error("Expected id 1 to be removed by the replacement")
	}
}

func TestResolveFollowsRedirect(t *testing.T) {
	dir := buildStore(t, func(t *testing.T, s *storage.Store) {
		savePages(t, s,
			pageRow{1, 0, "Article", false},
			pageRow{2, 0, "Shortcut", true},
			pageRow{3, 0, "Orphan_redirect", true},
		)
		tx, err := s.Begin()
		if err != nil {
			t.Fatalf("Failed to begin: %v", err)
		}
		if err := s.SaveRedirect(tx, 2, 1); err != nil {
			t.Fatalf("Failed to save redirect: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Failed to commit: %v", err)
		}
	})

	s, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	id, ok, err := s.Resolve(0, []byte("Shortcut"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ok || id != 1 {
		t.Errorf("Expected Shortcut to resolve to 1, got %d ok=%v", id, ok)
	}

	id, ok, err = s.Resolve(0, []byte("Article"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ok || id != 1 {
		t.Errorf("Expected Article to resolve to itself, got %d ok=%v", id, ok)
	}

	// A redirect page whose map entry was dropped resolves to nothing.
	_, ok, err = s.Resolve(0, []byte("Orphan_redirect"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ok {
		t.Error("Expected orphan redirect to resolve to nothing")
	}
}

func TestOpenIncompleteIndexFails(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.Create(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	// No MarkComplete: simulates a build that died partway.
	if err := s.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	if _, err := storage.Open(dir); !errors.Is(err, storage.ErrIncomplete) {
		t.Fatalf("Expected ErrIncomplete, got %v", err)
	}

	if _, err := storage.Open(t.TempDir()); !errors.Is(err, storage.ErrIncomplete) {
		t.Fatalf("Expected ErrIncomplete for empty dir, got %v", err)
	}
}

func TestSearchTitles(t *testing.T) {
	dir := buildStore(t, func(t *testing.T, s *storage.Store) {
		savePages(t, s,
			pageRow{1, 0, "Go_(programming_language)", false},
			pageRow{2, 0, "Go_board", false},
			pageRow{3, 0, "Chess", false},
		)
	})

	s, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	matches, err := s.SearchTitles("Go%", 10)
	if err != nil {
		t.Fatalf("SearchTitles failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != 1 || matches[1].ID != 2 {
		t.Errorf("Expected ids 1,2 in order, got %d,%d", matches[0].ID, matches[1].ID)
	}
}

func TestMetadata(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.Create(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if done, err := s.Complete(); err != nil || done {
		t.Fatalf("Expected fresh store incomplete, done=%v err=%v", done, err)
	}
	if err := s.SetMeta("dump", "enwiki"); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	v, found, err := s.GetMeta("dump")
	if err != nil || !found || v != "enwiki" {
		t.Fatalf("Expected dump=enwiki, got %q found=%v err=%v", v, found, err)
	}
	if err := s.MarkComplete(); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	if done, err := s.Complete(); err != nil || !done {
		t.Fatalf("Expected complete, done=%v err=%v", done, err)
	}
}
