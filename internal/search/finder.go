package search

import (
	"context"
	"fmt"
	"strings"

	"wikipath/internal/storage"
)

// Finder answers title-level path queries against a complete index
// directory. It resolves titles through the interner and the redirect map,
// then searches the CSR graphs.
type Finder struct {
	store *storage.Store
	fwd   *storage.Graph
	rev   *storage.Graph
}

// Open loads the store and both graphs from dir. Fails with
// storage.ErrIncomplete when the index never finished building.
func Open(dir string) (*Finder, error) {
	store, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}
	fwd, err := storage.OpenGraph(dir, storage.ForwardGraph)
	if err != nil {
		store.Close()
		return nil, err
	}
	rev, err := storage.OpenGraph(dir, storage.ReverseGraph)
	if err != nil {
		fwd.Close()
		store.Close()
		return nil, err
	}
	return &Finder{store: store, fwd: fwd, rev: rev}, nil
}

func (f *Finder) Close() error {
	f.fwd.Close()
	f.rev.Close()
	return f.store.Close()
}

// Store exposes the underlying read-only store, for title search.
func (f *Finder) Store() *storage.Store {
	return f.store
}

// NormalizeTitle converts a user-facing title to dump form: spaces become
// underscores, and the first letter is left alone (the dump is
// case-sensitive past the first character anyway).
func NormalizeTitle(title string) []byte {
	return []byte(strings.ReplaceAll(title, " ", "_"))
}

// ResolveTitle maps a main-namespace title to its terminal page id.
func (f *Finder) ResolveTitle(title string) (storage.PageID, error) {
	id, ok, err := f.store.Resolve(0, NormalizeTitle(title))
	if err != nil {
		return storage.None, err
	}
	if !ok {
		return storage.None, fmt.Errorf("%w: %s", storage.ErrUnknownTitle, title)
	}
	return id, nil
}

// Path returns the titles along a shortest path between two articles,
// endpoints included. Redirect titles resolve to their targets first, so
// the endpoints in the result are always terminal pages. With forwardOnly
// set the plain BFS is used instead of the bidirectional search.
func (f *Finder) Path(ctx context.Context, fromTitle, toTitle string, forwardOnly bool) ([]string, error) {
	from, err := f.ResolveTitle(fromTitle)
	if err != nil {
		return nil, err
	}
	to, err := f.ResolveTitle(toTitle)
	if err != nil {
		return nil, err
	}

	var ids []storage.PageID
	if forwardOnly {
		ids, err = Shortest(ctx, f.fwd, from, to)
	} else {
		ids, err = ShortestBidirectional(ctx, f.fwd, f.rev, from, to)
	}
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(ids))
	for i, id := range ids {
		_, title, found, err := f.store.LookupTitle(id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("page %d is on the path but missing from the interner", id)
		}
		titles[i] = string(title)
	}
	return titles, nil
}
