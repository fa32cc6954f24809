package index

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"wikipath/internal/sqldump"
	"wikipath/internal/storage"
)

// Config tunes an index build.
type Config struct {
	// Namespaces is the set of page namespaces to index. Defaults to
	// {0}, the main article namespace.
	Namespaces []int32

	// BatchSize is the number of rows per write transaction.
	BatchSize int

	// ChunkSize is the number of edges the sorter holds in memory
	// before spilling a run to disk.
	ChunkSize int

	// Logf receives progress output. Defaults to log.Printf.
	Logf func(format string, args ...interface{})
}

const (
	defaultBatchSize = 10000
	defaultChunkSize = 1 << 22

	pageProgress = 1000000
	linkProgress = 5000000
)

// Builder runs the three ingest stages against a freshly created store.
// Stages must run in order: pages, then redirects, then links.
type Builder struct {
	store *storage.Store
	cfg   Config

	allowed map[int32]bool
	// pages flagged is_redirect in the page table
	redirectPages map[storage.PageID]bool
	// materialized terminal-redirect map, built by IngestRedirects
	redirects map[storage.PageID]storage.PageID

	counters Counters
}

func NewBuilder(store *storage.Store, cfg *Config) *Builder {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if len(c.Namespaces) == 0 {
		c.Namespaces = []int32{0}
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
	allowed := make(map[int32]bool, len(c.Namespaces))
	for _, ns := range c.Namespaces {
		allowed[ns] = true
	}
	return &Builder{
		store:         store,
		cfg:           c,
		allowed:       allowed,
		redirectPages: make(map[storage.PageID]bool),
	}
}

// Counters returns a snapshot of the ingest counters.
func (b *Builder) Counters() Counters {
	return b.counters
}

// stream pipelines the dump reader and the consumer across two goroutines
// with a bounded hand-off queue. Tuples arrive at the consumer in input
// order.
func stream(ctx context.Context, r *sqldump.Reader, fn func([]sqldump.Value) error) error {
	g, ctx := errgroup.WithContext(ctx)
	tuples := make(chan []sqldump.Value, 1024)

	g.Go(func() error {
		defer close(tuples)
		for {
			tuple, err := r.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			cp := make([]sqldump.Value, len(tuple))
			copy(cp, tuple)
			select {
			case tuples <- cp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for tuple := range tuples {
			if err := fn(tuple); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// IngestPages loads the page table into the interner.
func (b *Builder) IngestPages(ctx context.Context, src io.Reader) error {
	tx, err := b.store.Begin()
	if err != nil {
		return err
	}
	batch := 0

	err = stream(ctx, sqldump.NewReader(src, "page"), func(tuple []sqldump.Value) error {
		row, err := bindPage(tuple)
		if err != nil {
			return err
		}
		if !b.allowed[row.ns] {
			return nil
		}
		replaced, err := b.store.SavePage(tx, row.id, row.ns, row.title, row.isRedirect)
		if err != nil {
			return err
		}
		if replaced {
			b.counters.TitleConflicts++
			b.cfg.Logf("page %d displaced an earlier row for ns=%d title=%q", row.id, row.ns, row.title)
		}
		if row.isRedirect {
			b.redirectPages[row.id] = true
		}
		b.counters.Pages++
		if b.counters.Pages%pageProgress == 0 {
			b.cfg.Logf("loaded %d pages", b.counters.Pages)
		}
		batch++
		if batch >= b.cfg.BatchSize {
			batch = 0
			if tx, err = recommit(tx, b.store); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to ingest pages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to ingest pages: %w", err)
	}
	b.cfg.Logf("page table done: %d pages interned", b.counters.Pages)
	return nil
}

func recommit(tx *sql.Tx, s *storage.Store) (*sql.Tx, error) {
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Begin()
}

// IngestRedirects loads the redirect table, collapses chains and flushes
// the terminal map. IngestPages must have run first.
func (b *Builder) IngestRedirects(ctx context.Context, src io.Reader) error {
	direct := make(map[storage.PageID]rawTarget)

	err := stream(ctx, sqldump.NewReader(src, "redirect"), func(tuple []sqldump.Value) error {
		row, err := bindRedirect(tuple)
		if err != nil {
			return err
		}
		id, isRedirect, found, err := b.store.LookupPage(row.ns, row.title)
		if err != nil {
			return err
		}
		if !found {
			b.counters.DanglingRedirects++
			return nil
		}
		direct[row.from] = rawTarget{id: id, isRedirect: isRedirect}
		b.counters.Redirects++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ingest redirects: %w", err)
	}

	b.redirects = collapseRedirects(direct, &b.counters)

	tx, err := b.store.Begin()
	if err != nil {
		return err
	}
	batch := 0
	for from, to := range b.redirects {
		if err := b.store.SaveRedirect(tx, from, to); err != nil {
			tx.Rollback()
			return err
		}
		batch++
		if batch >= b.cfg.BatchSize {
			batch = 0
			if tx, err = recommit(tx, b.store); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to flush redirects: %w", err)
	}
	b.cfg.Logf("redirect table done: %d kept, %d dangling, %d on cycles",
		int64(len(b.redirects)), b.counters.DanglingRedirects, b.counters.RedirectCycles)
	return nil
}

// IngestLinks streams the pagelinks table into the forward and reverse CSR
// files. IngestPages and IngestRedirects must have run first.
func (b *Builder) IngestLinks(ctx context.Context, src io.Reader) error {
	maxID, err := b.store.MaxPageID()
	if err != nil {
		return err
	}
	tmp, err := tempRunDir(b.store.Dir())
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	fwd := newEdgeSorter(tmp, b.cfg.ChunkSize)
	rev := newEdgeSorter(tmp, b.cfg.ChunkSize)

	err = stream(ctx, sqldump.NewReader(src, "pagelinks"), func(tuple []sqldump.Value) error {
		row, err := bindLink(tuple)
		if err != nil {
			return err
		}
		b.counters.Links++
		if b.counters.Links%linkProgress == 0 {
			b.cfg.Logf("scanned %d links, kept %d edges so far",
				b.counters.Links, b.counters.Links-b.counters.SkippedNamespace-b.counters.DanglingLinks-b.counters.SelfLoops)
		}
		if !b.allowed[row.ns] {
			b.counters.SkippedNamespace++
			return nil
		}

		to, ok, err := b.resolveTarget(row.ns, row.title)
		if err != nil {
			return err
		}
		if !ok {
			b.counters.DanglingLinks++
			return nil
		}

		from := row.from
		if t, ok := b.redirects[from]; ok {
			// The dump occasionally has outgoing links on redirect
			// pages; move them to the redirect's terminal.
			from = t
			b.counters.RetargetedSources++
		} else if b.redirectPages[from] {
			b.counters.DanglingLinks++
			return nil
		}

		if from == to {
			b.counters.SelfLoops++
			return nil
		}
		if err := fwd.Add(from, to); err != nil {
			return err
		}
		return rev.Add(to, from)
	})
	if err != nil {
		return fmt.Errorf("failed to ingest pagelinks: %w", err)
	}

	b.counters.Edges, err = writeGraph(b.store.Dir(), storage.ForwardGraph, maxID, fwd)
	if err != nil {
		return fmt.Errorf("failed to write forward graph: %w", err)
	}
	b.counters.ReverseEdges, err = writeGraph(b.store.Dir(), storage.ReverseGraph, maxID, rev)
	if err != nil {
		return fmt.Errorf("failed to write reverse graph: %w", err)
	}
	b.cfg.Logf("pagelinks done: %d rows scanned, %d edges kept", b.counters.Links, b.counters.Edges)
	return nil
}

func (b *Builder) resolveTarget(ns int32, title []byte) (storage.PageID, bool, error) {
	id, isRedirect, found, err := b.store.LookupPage(ns, title)
	if err != nil || !found {
		return storage.None, false, err
	}
	if !isRedirect {
		return id, true, nil
	}
	t, ok := b.redirects[id]
	return t, ok, nil
}

func writeGraph(dir, name string, maxID storage.PageID, s *edgeSorter) (int64, error) {
	w, err := storage.NewCSRWriter(dir, name, maxID)
	if err != nil {
		return 0, err
	}
	if err := s.Merge(w.Append); err != nil {
		w.Close()
		return 0, err
	}
	count := int64(w.EdgeCount())
	return count, w.Close()
}

// Finish persists the counter summary and stamps the index complete. This
// is the last write of a build; without it the index stays unusable.
func (b *Builder) Finish() error {
	maxID, err := b.store.MaxPageID()
	if err != nil {
		return err
	}
	if err := b.store.SetMeta("max_page_id", strconv.FormatUint(uint64(maxID), 10)); err != nil {
		return err
	}
	if err := b.store.SetMeta("counters", b.counters.Summary()); err != nil {
		return err
	}
	if err := b.store.MarkComplete(); err != nil {
		return fmt.Errorf("failed to mark build complete: %w", err)
	}
	b.cfg.Logf("index complete: %s", b.counters.Summary())
	return nil
}

// Run executes the whole pipeline over the three dump streams.
func (b *Builder) Run(ctx context.Context, pages, redirects, links io.Reader) error {
	if err := b.IngestPages(ctx, pages); err != nil {
		return err
	}
	if err := b.IngestRedirects(ctx, redirects); err != nil {
		return err
	}
	if err := b.IngestLinks(ctx, links); err != nil {
		return err
	}
	return b.Finish()
}
