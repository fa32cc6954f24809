package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Adjacency lists are stored CSR-style in two flat files next to the
// database: <name>.edges is the concatenation of all neighbor IDs as
// big-endian u32, <name>.offsets holds maxID+2 big-endian u64 entries
// where offsets[u]..offsets[u+1] delimits the neighbors of page u.

// Names of the two CSR file pairs an index build produces.
const (
	ForwardGraph = "graph"
	ReverseGraph = "rgraph"
)

// CSRWriter streams a sorted edge sequence into a CSR file pair. Append
// must be called with non-decreasing from IDs and strictly ascending to
// IDs within each from.
type CSRWriter struct {
	edges    *bufio.Writer
	offsets  *bufio.Writer
	edgeF    *os.File
	offsetF  *os.File
	maxID    PageID
	nextFrom PageID
	count    uint64
}

// NewCSRWriter creates <name>.edges and <name>.offsets in dir, sized for
// page IDs up to maxID.
func NewCSRWriter(dir, name string, maxID PageID) (*CSRWriter, error) {
	edgeF, err := os.Create(filepath.Join(dir, name+".edges"))
	if err != nil {
		return nil, fmt.Errorf("failed to create edge file: %w", err)
	}
	offsetF, err := os.Create(filepath.Join(dir, name+".offsets"))
	if err != nil {
		edgeF.Close()
		return nil, fmt.Errorf("failed to create offset file: %w", err)
	}
	return &CSRWriter{
		edges:   bufio.NewWriterSize(edgeF, 1<<20),
		offsets: bufio.NewWriterSize(offsetF, 1<<20),
		edgeF:   edgeF,
		offsetF: offsetF,
		maxID:   maxID,
	}, nil
}

// Append adds one edge. Gaps in the from sequence get empty adjacency.
func (w *CSRWriter) Append(from, to PageID) error {
	if w.nextFrom > 0 && from < w.nextFrom-1 {
		return fmt.Errorf("edge source %d out of order (at %d)", from, w.nextFrom-1)
	}
	for w.nextFrom <= from {
		if err := w.writeOffset(); err != nil {
			return err
		}
		w.nextFrom++
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(to))
	if _, err := w.edges.Write(buf[:]); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *CSRWriter) writeOffset() error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], w.count)
	_, err := w.offsets.Write(buf[:])
	return err
}

// Close pads the offset table out to maxID+2 entries and flushes both
// files.
func (w *CSRWriter) Close() error {
	for w.nextFrom <= w.maxID+1 {
		if err := w.writeOffset(); err != nil {
			return err
		}
		w.nextFrom++
	}
	if err := w.edges.Flush(); err != nil {
		return err
	}
	if err := w.offsets.Flush(); err != nil {
		return err
	}
	if err := w.edgeF.Close(); err != nil {
		return err
	}
	return w.offsetF.Close()
}

// EdgeCount returns the number of edges written so far.
func (w *CSRWriter) EdgeCount() uint64 {
	return w.count
}

// Graph serves adjacency queries over a CSR file pair. The offset table is
// held in memory; neighbor lists are read from the edge file on demand, so
// opening a graph costs 8 bytes per page id and a BFS touches only the
// lists it visits.
type Graph struct {
	offsets []uint64
	edges   *os.File
}

// OpenGraph loads the offset table for <name> from dir.
func OpenGraph(dir, name string) (*Graph, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name+".offsets"))
	if err != nil {
		return nil, fmt.Errorf("failed to read offset table: %w", err)
	}
	if len(raw)%8 != 0 || len(raw) < 16 {
		return nil, fmt.Errorf("offset table %s is malformed (%d bytes)", name, len(raw))
	}
	offsets := make([]uint64, len(raw)/8)
	for i := range offsets {
		offsets[i] = binary.BigEndian.Uint64(raw[i*8:])
	}
	edges, err := os.Open(filepath.Join(dir, name+".edges"))
	if err != nil {
		return nil, fmt.Errorf("failed to open edge file: %w", err)
	}
	return &Graph{offsets: offsets, edges: edges}, nil
}

func (g *Graph) Close() error {
	return g.edges.Close()
}

// MaxID returns the largest addressable page id.
func (g *Graph) MaxID() PageID {
	return PageID(len(g.offsets) - 2)
}

// Degree returns the out-degree of id, zero for ids outside the table.
func (g *Graph) Degree(id PageID) int {
	if int(id) >= len(g.offsets)-1 {
		return 0
	}
	return int(g.offsets[id+1] - g.offsets[id])
}

// Neighbors returns the sorted neighbor list of id, reusing buf when it is
// large enough. IDs outside the offset table have no neighbors.
func (g *Graph) Neighbors(id PageID, buf []PageID) ([]PageID, error) {
	if int(id) >= len(g.offsets)-1 {
		return buf[:0], nil
	}
	start, end := g.offsets[id], g.offsets[id+1]
	n := int(end - start)
	if n == 0 {
		return buf[:0], nil
	}
	raw := make([]byte, n*4)
	if _, err := g.edges.ReadAt(raw, int64(start)*4); err != nil {
		return nil, fmt.Errorf("failed to read adjacency of %d: %w", id, err)
	}
	if cap(buf) < n {
		buf = make([]PageID, n)
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = PageID(binary.BigEndian.Uint32(raw[i*4:]))
	}
	return buf, nil
}
