package search

import (
	"context"
	"errors"

	"wikipath/internal/storage"
)

// ErrNoPath means the whole reachable component was explored without
// finding the target.
var ErrNoPath = errors.New("no path between the given pages")

// Shortest runs a breadth-first search over the forward graph and returns
// a minimum-length path from `from` to `to`, both endpoints included.
// Neighbors are expanded in ascending id order, so among equally short
// paths the result is deterministic: the first-discovered parent wins.
func Shortest(ctx context.Context, g *storage.Graph, from, to storage.PageID) ([]storage.PageID, error) {
	if from == to {
		return []storage.PageID{from}, nil
	}

	visited := newBitset(g.MaxID())
	parent := make(map[storage.PageID]storage.PageID)
	queue := []storage.PageID{from}
	if from <= g.MaxID() {
		visited.set(from)
	}

	var buf []storage.PageID
	for head := 0; head < len(queue); head++ {
		if head%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cur := queue[head]
		neighbors, err := g.Neighbors(cur, buf)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if visited.get(n) {
				continue
			}
			visited.set(n)
			parent[n] = cur
			if n == to {
				return reconstruct(parent, from, to), nil
			}
			queue = append(queue, n)
		}
		buf = neighbors
	}
	return nil, ErrNoPath
}

func reconstruct(parent map[storage.PageID]storage.PageID, from, to storage.PageID) []storage.PageID {
	path := []storage.PageID{to}
	for cur := to; cur != from; {
		cur = parent[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
