package index

import (
	"testing"

	"wikipath/internal/storage"
)

func collectMerged(t *testing.T, s *edgeSorter) [][2]storage.PageID {
	t.Helper()
	var out [][2]storage.PageID
	err := s.Merge(func(from, to storage.PageID) error {
		out = append(out, [2]storage.PageID{from, to})
		return nil
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	return out
}

func TestEdgeSorterInMemory(t *testing.T) {
	s := newEdgeSorter(t.TempDir(), 1000)
	input := [][2]storage.PageID{{3, 1}, {1, 2}, {1, 2}, {2, 9}, {1, 1}, {3, 1}}
	for _, e := range input {
		if err := s.Add(e[0], e[1]); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	got := collectMerged(t, s)
	want := [][2]storage.PageID{{1, 1}, {1, 2}, {2, 9}, {3, 1}}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestEdgeSorterSpills(t *testing.T) {
	// Tiny chunks force several runs plus a final in-memory chunk.
	s := newEdgeSorter(t.TempDir(), 4)
	var want [][2]storage.PageID
	for i := 100; i > 0; i-- {
		from := storage.PageID(i)
		if err := s.Add(from, from+1); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		// Duplicates across chunk boundaries must still collapse.
		if err := s.Add(from, from+1); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	for i := 1; i <= 100; i++ {
		want = append(want, [2]storage.PageID{storage.PageID(i), storage.PageID(i + 1)})
	}

	got := collectMerged(t, s)
	if len(got) != len(want) {
		t.Fatalf("Expected %d merged edges, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("At %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestEdgeSorterEmpty(t *testing.T) {
	s := newEdgeSorter(t.TempDir(), 4)
	if got := collectMerged(t, s); len(got) != 0 {
		t.Fatalf("Expected no edges, got %v", got)
	}
}
