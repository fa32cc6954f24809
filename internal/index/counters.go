package index

import "fmt"

// Counters tracks what the ingest stages kept and dropped. Dangling
// references and redirect cycles are expected in real dumps; they are
// counted rather than treated as errors.
type Counters struct {
	Pages             int64
	TitleConflicts    int64
	Redirects         int64
	DanglingRedirects int64
	RedirectCycles    int64
	Links             int64
	SkippedNamespace  int64
	DanglingLinks     int64
	RetargetedSources int64
	SelfLoops         int64
	Edges             int64
	ReverseEdges      int64
}

func (c *Counters) Summary() string {
	return fmt.Sprintf(
		"pages=%d conflicts=%d redirects=%d dangling_redirects=%d redirect_cycles=%d "+
			"links=%d skipped_ns=%d dangling_links=%d retargeted_sources=%d self_loops=%d edges=%d",
		c.Pages, c.TitleConflicts, c.Redirects, c.DanglingRedirects, c.RedirectCycles,
		c.Links, c.SkippedNamespace, c.DanglingLinks, c.RetargetedSources, c.SelfLoops, c.Edges,
	)
}
