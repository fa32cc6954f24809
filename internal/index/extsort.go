package index

import (
	"bufio"
	"container/heap"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"wikipath/internal/storage"
)

// edgeSorter sorts an edge stream that is far too large for memory. Edges
// are packed into uint64s (from in the high half) so an ascending sort
// groups them by source with sorted, dedupable neighbor lists. Full chunks
// are sorted and spilled to run files; Merge k-way merges the runs.
type edgeSorter struct {
	dir     string
	chunk   []uint64
	maxSize int
	runs    []string
}

func newEdgeSorter(dir string, chunkSize int) *edgeSorter {
	return &edgeSorter{
		dir:     dir,
		chunk:   make([]uint64, 0, chunkSize),
		maxSize: chunkSize,
	}
}

func packEdge(from, to storage.PageID) uint64 {
	return uint64(from)<<32 | uint64(to)
}

func unpackEdge(e uint64) (from, to storage.PageID) {
	return storage.PageID(e >> 32), storage.PageID(e)
}

func (s *edgeSorter) Add(from, to storage.PageID) error {
	s.chunk = append(s.chunk, packEdge(from, to))
	if len(s.chunk) >= s.maxSize {
		return s.spill()
	}
	return nil
}

func (s *edgeSorter) spill() error {
	sort.Slice(s.chunk, func(i, j int) bool { return s.chunk[i] < s.chunk[j] })

	f, err := os.CreateTemp(s.dir, "edges-*.run")
	if err != nil {
		return fmt.Errorf("failed to create run file: %w", err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	var buf [8]byte
	for _, e := range s.chunk {
		binary.BigEndian.PutUint64(buf[:], e)
		if _, err := w.Write(buf[:]); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.runs = append(s.runs, f.Name())
	s.chunk = s.chunk[:0]
	return nil
}

// runReader streams one spilled run back in.
type runReader struct {
	f   *os.File
	r   *bufio.Reader
	cur uint64
	eof bool
}

func openRun(path string) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rr := &runReader{f: f, r: bufio.NewReaderSize(f, 1<<20)}
	if err := rr.advance(); err != nil {
		f.Close()
		return nil, err
	}
	return rr, nil
}

func (rr *runReader) advance() error {
	var buf [8]byte
	if _, err := io.ReadFull(rr.r, buf[:]); err != nil {
		if err == io.EOF {
			rr.eof = true
			return nil
		}
		return err
	}
	rr.cur = binary.BigEndian.Uint64(buf[:])
	return nil
}

type runHeap []*runReader

func (h runHeap) Len() int            { return len(h) }
func (h runHeap) Less(i, j int) bool  { return h[i].cur < h[j].cur }
func (h runHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x interface{}) { *h = append(*h, x.(*runReader)) }
func (h *runHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Merge emits the full edge set in ascending order with duplicates
// removed, then deletes the run files. The sorter is spent afterwards.
func (s *edgeSorter) Merge(emit func(from, to storage.PageID) error) error {
	defer s.cleanup()

	// The current chunk becomes the final, in-memory run.
	sort.Slice(s.chunk, func(i, j int) bool { return s.chunk[i] < s.chunk[j] })
	mem := s.chunk
	memPos := 0

	h := make(runHeap, 0, len(s.runs))
	for _, path := range s.runs {
		rr, err := openRun(path)
		if err != nil {
			return fmt.Errorf("failed to reopen run: %w", err)
		}
		defer rr.f.Close()
		if !rr.eof {
			h = append(h, rr)
		}
	}
	heap.Init(&h)

	var last uint64
	first := true
	next := func() (uint64, bool, error) {
		if h.Len() == 0 {
			if memPos >= len(mem) {
				return 0, false, nil
			}
			e := mem[memPos]
			memPos++
			return e, true, nil
		}
		top := h[0]
		if memPos < len(mem) && mem[memPos] <= top.cur {
			e := mem[memPos]
			memPos++
			return e, true, nil
		}
		e := top.cur
		if err := top.advance(); err != nil {
			return 0, false, err
		}
		if top.eof {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
		return e, true, nil
	}

	for {
		e, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !first && e == last {
			continue
		}
		first = false
		last = e
		from, to := unpackEdge(e)
		if err := emit(from, to); err != nil {
			return err
		}
	}
}

func (s *edgeSorter) cleanup() {
	for _, path := range s.runs {
		os.Remove(path)
	}
	s.runs = nil
	s.chunk = nil
}

// tempRunDir picks a scratch directory for run files inside the index
// directory so spills land on the same filesystem as the output.
func tempRunDir(indexDir string) (string, error) {
	dir := filepath.Join(indexDir, "tmp-sort")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
