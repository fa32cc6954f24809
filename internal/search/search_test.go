package search_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"wikipath/internal/search"
	"wikipath/internal/storage"
)

func writeGraph(t *testing.T, dir, name string, maxID storage.PageID, edges [][2]storage.PageID) {
	t.Helper()
	sorted := append([][2]storage.PageID(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})
	w, err := storage.NewCSRWriter(dir, name, maxID)
	if err != nil {
		t.Fatalf("Failed to create CSR writer: %v", err)
	}
	for _, e := range sorted {
		if err := w.Append(e[0], e[1]); err != nil {
			t.Fatalf("Failed to append edge %v: %v", e, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close CSR writer: %v", err)
	}
}

// openGraphs materializes forward and reverse CSR graphs for an edge list.
func openGraphs(t *testing.T, maxID storage.PageID, edges [][2]storage.PageID) (*storage.Graph, *storage.Graph) {
	t.Helper()
	dir := t.TempDir()
	writeGraph(t, dir, storage.ForwardGraph, maxID, edges)
	reversed := make([][2]storage.PageID, len(edges))
	for i, e := range edges {
		reversed[i] = [2]storage.PageID{e[1], e[0]}
	}
	writeGraph(t, dir, storage.ReverseGraph, maxID, reversed)

	fwd, err := storage.OpenGraph(dir, storage.ForwardGraph)
	if err != nil {
		t.Fatalf("Failed to open forward graph: %v", err)
	}
	t.Cleanup(func() { fwd.Close() })
	rev, err := storage.OpenGraph(dir, storage.ReverseGraph)
	if err != nil {
		t.Fatalf("Failed to open reverse graph: %v", err)
	}
	t.Cleanup(func() { rev.Close() })
	return fwd, rev
}

func TestShortestTrivial(t *testing.T) {
	fwd, _ := openGraphs(t, 2, [][2]storage.PageID{{1, 2}})
	path, err := search.Shortest(context.Background(), fwd, 1, 2)
	if err != nil {
		t.Fatalf("Shortest failed: %v", err)
	}
	if !reflect.DeepEqual(path, []storage.PageID{1, 2}) {
		t.Errorf("Expected [1 2], got %v", path)
	}
}

func TestShortestSameEndpoints(t *testing.T) {
	fwd, rev := openGraphs(t, 2, [][2]storage.PageID{{1, 2}})
	for _, name := range []string{"forward", "bidirectional"} {
		var path []storage.PageID
		var err error
		if name == "forward" {
			path, err = search.Shortest(context.Background(), fwd, 1, 1)
		} else {
			path, err = search.ShortestBidirectional(context.Background(), fwd, rev, 1, 1)
		}
		if err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		if !reflect.DeepEqual(path, []storage.PageID{1}) {
			t.Errorf("%s: expected [1], got %v", name, path)
		}
	}
}

func TestShortestTieBreak(t *testing.T) {
	// Two length-2 routes from 1 to 4; the smaller first hop must win.
	edges := [][2]storage.PageID{{1, 3}, {1, 2}, {2, 4}, {3, 4}}
	fwd, rev := openGraphs(t, 4, edges)

	path, err := search.Shortest(context.Background(), fwd, 1, 4)
	if err != nil {
		t.Fatalf("Shortest failed: %v", err)
	}
	if !reflect.DeepEqual(path, []storage.PageID{1, 2, 4}) {
		t.Errorf("Expected [1 2 4], got %v", path)
	}

	path, err = search.ShortestBidirectional(context.Background(), fwd, rev, 1, 4)
	if err != nil {
		t.Fatalf("ShortestBidirectional failed: %v", err)
	}
	if !reflect.DeepEqual(path, []storage.PageID{1, 2, 4}) {
		t.Errorf("Expected [1 2 4] from bidirectional, got %v", path)
	}
}

func TestShortestNoPath(t *testing.T) {
	fwd, rev := openGraphs(t, 3, [][2]storage.PageID{{1, 2}})
	if _, err := search.Shortest(context.Background(), fwd, 1, 3); !errors.Is(err, search.ErrNoPath) {
		t.Fatalf("Expected ErrNoPath, got %v", err)
	}
	if _, err := search.ShortestBidirectional(context.Background(), fwd, rev, 1, 3); !errors.Is(err, search.ErrNoPath) {
		t.Fatalf("Expected ErrNoPath from bidirectional, got %v", err)
	}
	// Direction matters: 2 cannot reach 1.
	if _, err := search.Shortest(context.Background(), fwd, 2, 1); !errors.Is(err, search.ErrNoPath) {
		t.Fatalf("Expected ErrNoPath against edge direction, got %v", err)
	}
}

// A fixed graph with enough structure to compare the two searches.
var meshEdges = [][2]storage.PageID{
	{1, 2}, {1, 3}, {2, 3}, {3, 4}, {4, 5}, {5, 1}, {5, 2},
	{2, 6}, {6, 7}, {7, 8}, {4, 8}, {8, 9}, {9, 3}, {6, 9},
}

func bfsDistance(t *testing.T, g *storage.Graph, from, to storage.PageID) int {
	t.Helper()
	path, err := search.Shortest(context.Background(), g, from, to)
	if err != nil {
		if errors.Is(err, search.ErrNoPath) {
			return -1
		}
		t.Fatalf("Shortest failed: %v", err)
	}
	return len(path) - 1
}

func TestBidirectionalOptimality(t *testing.T) {
	fwd, rev := openGraphs(t, 9, meshEdges)
	for from := storage.PageID(1); from <= 9; from++ {
		for to := storage.PageID(1); to <= 9; to++ {
			want := bfsDistance(t, fwd, from, to)
			path, err := search.ShortestBidirectional(context.Background(), fwd, rev, from, to)
			if errors.Is(err, search.ErrNoPath) {
				if want != -1 {
					t.Errorf("%d->%d: bidirectional found no path, BFS found length %d", from, to, want)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%d->%d: bidirectional failed: %v", from, to, err)
			}
			if want == -1 {
				t.Errorf("%d->%d: bidirectional found %v, BFS found none", from, to, path)
				continue
			}
			if len(path)-1 != want {
				t.Errorf("%d->%d: expected length %d, got %v", from, to, want, path)
			}
			// Every hop must be a real edge.
			for i := 0; i+1 < len(path); i++ {
				if !hasEdge(meshEdges, path[i], path[i+1]) {
					t.Errorf("%d->%d: %d->%d is not an edge (path %v)", from, to, path[i], path[i+1], path)
				}
			}
		}
	}
}

func hasEdge(edges [][2]storage.PageID, from, to storage.PageID) bool {
	for _, e := range edges {
		if e[0] == from && e[1] == to {
			return true
		}
	}
	return false
}

func TestSearchDeterminism(t *testing.T) {
	fwd, rev := openGraphs(t, 9, meshEdges)

	first, err := search.Shortest(context.Background(), fwd, 1, 8)
	if err != nil {
		t.Fatalf("Shortest failed: %v", err)
	}
	// 1 -> {2,3}; 6 via 2, 4 via 3; 8 discovered from 4.
	if !reflect.DeepEqual(first, []storage.PageID{1, 3, 4, 8}) {
		t.Fatalf("Expected [1 3 4 8], got %v", first)
	}
	firstBidi, err := search.ShortestBidirectional(context.Background(), fwd, rev, 1, 8)
	if err != nil {
		t.Fatalf("ShortestBidirectional failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := search.Shortest(context.Background(), fwd, 1, 8)
		if err != nil {
			t.Fatalf("Shortest failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("BFS output changed between runs: %v vs %v", first, again)
		}
		againBidi, err := search.ShortestBidirectional(context.Background(), fwd, rev, 1, 8)
		if err != nil {
			t.Fatalf("ShortestBidirectional failed: %v", err)
		}
		if !reflect.DeepEqual(firstBidi, againBidi) {
			t.Fatalf("Bidirectional output changed between runs: %v vs %v", firstBidi, againBidi)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	fwd, rev := openGraphs(t, 9, meshEdges)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := search.Shortest(ctx, fwd, 1, 8); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if _, err := search.ShortestBidirectional(ctx, fwd, rev, 1, 8); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled from bidirectional, got %v", err)
	}
}
