package index

import (
	"wikipath/internal/storage"
)

// rawTarget is a redirect destination before chain collapse: the page id
// the interner gave for the target title, and whether that page is itself
// flagged as a redirect.
type rawTarget struct {
	id         storage.PageID
	isRedirect bool
}

// collapseRedirects turns the direct redirect map into a fully collapsed
// one: every value is a terminal, non-redirect page, and no value is a key.
// Cycles are dropped whole; redirects whose chain dead-ends on a dropped or
// still-redirect page are dropped as dangling. Counters are updated in
// place.
func collapseRedirects(direct map[storage.PageID]rawTarget, c *Counters) map[storage.PageID]storage.PageID {
	resolved := make(map[storage.PageID]storage.PageID, len(direct))
	dropped := make(map[storage.PageID]bool)

	var path []storage.PageID
	for from := range direct {
		if _, done := resolved[from]; done {
			continue
		}
		if dropped[from] {
			continue
		}

		path = path[:0]
		pos := map[storage.PageID]int{from: 0}
		path = append(path, from)

		terminal := storage.None
		ok := false
		cur := direct[from]
		for {
			if t, done := resolved[cur.id]; done {
				terminal, ok = t, true
				break
			}
			if dropped[cur.id] {
				break
			}
			next, chained := direct[cur.id]
			if !chained {
				// End of the chain. A target that is flagged as a
				// redirect but never got a redirect row cannot be
				// followed anywhere, so the whole chain dangles.
				if !cur.isRedirect {
					terminal, ok = cur.id, true
				}
				break
			}
			if at, seen := pos[cur.id]; seen {
				// Revisited a node on this walk: path[at:] is the cycle.
				for _, id := range path[at:] {
					dropped[id] = true
					c.RedirectCycles++
				}
				for _, id := range path[:at] {
					dropped[id] = true
					c.DanglingRedirects++
				}
				path = path[:0]
				break
			}
			pos[cur.id] = len(path)
			path = append(path, cur.id)
			cur = next
		}

		if ok {
			for _, id := range path {
				resolved[id] = terminal
			}
		} else {
			for _, id := range path {
				dropped[id] = true
				c.DanglingRedirects++
			}
		}
	}
	return resolved
}
