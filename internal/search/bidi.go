package search

import (
	"context"
	"sort"

	"wikipath/internal/storage"
)

// front is one side of a bidirectional search: the nodes discovered in the
// last expansion (sorted), and the tree of first-discovery parents leading
// back to the origin.
type front struct {
	origin storage.PageID
	edge   []storage.PageID
	parent map[storage.PageID]storage.PageID
	buf    []storage.PageID
}

func newFront(origin storage.PageID) *front {
	return &front{
		origin: origin,
		edge:   []storage.PageID{origin},
		parent: make(map[storage.PageID]storage.PageID),
	}
}

func (f *front) size() int {
	return len(f.parent)
}

// expand advances the frontier one level through g.
func (f *front) expand(g *storage.Graph) error {
	var next []storage.PageID
	for _, old := range f.edge {
		neighbors, err := g.Neighbors(old, f.buf)
		if err != nil {
			return err
		}
		for _, n := range neighbors {
			if n == f.origin {
				continue
			}
			if _, seen := f.parent[n]; seen {
				continue
			}
			f.parent[n] = old
			next = append(next, n)
		}
		f.buf = neighbors
	}
	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
	f.edge = next
	return nil
}

// pathToOrigin walks the parent tree from meet back to the origin,
// returning origin..meet order when reverse is true.
func (f *front) pathToOrigin(meet storage.PageID, reverse bool) []storage.PageID {
	path := []storage.PageID{meet}
	for cur := meet; cur != f.origin; {
		cur = f.parent[cur]
		path = append(path, cur)
	}
	if reverse {
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
	}
	return path
}

// meet finds the smallest id present in both sorted frontiers.
func meet(xs, ys []storage.PageID) (storage.PageID, bool) {
	for len(xs) > 0 && len(ys) > 0 {
		switch {
		case xs[0] < ys[0]:
			xs = xs[1:]
		case xs[0] > ys[0]:
			ys = ys[1:]
		default:
			return xs[0], true
		}
	}
	return storage.None, false
}

// ShortestBidirectional searches from both endpoints at once, expanding
// whichever side has seen fewer nodes and meeting in the middle. Requires
// the reverse graph. Among simultaneous meeting candidates the smallest
// page id wins, keeping the output deterministic.
func ShortestBidirectional(ctx context.Context, g, rg *storage.Graph, from, to storage.PageID) ([]storage.PageID, error) {
	if from == to {
		return []storage.PageID{from}, nil
	}

	fw := newFront(from)
	bw := newFront(to)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m, ok := meet(fw.edge, bw.edge); ok {
			path := fw.pathToOrigin(m, true)
			path = append(path, bw.pathToOrigin(m, false)[1:]...)
			return path, nil
		}
		if len(fw.edge) == 0 || len(bw.edge) == 0 {
			return nil, ErrNoPath
		}
		if fw.size() <= bw.size() {
			if err := fw.expand(g); err != nil {
				return nil, err
			}
		} else {
			if err := bw.expand(rg); err != nil {
				return nil, err
			}
		}
	}
}
