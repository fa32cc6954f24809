// Package dumps locates, downloads and opens the three Wikipedia SQL
// dumps the indexer consumes.
package dumps

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Tables are the dump tables the pipeline needs, in ingest order.
var Tables = []string{"page", "redirect", "pagelinks"}

const defaultMirror = "https://dumps.wikimedia.org"

// MirrorEnv overrides the dump mirror base URL when set.
const MirrorEnv = "WIKIPATH_MIRROR"

// FileName returns the on-disk name of one table's dump, e.g.
// enwiki-latest-page.sql.gz.
func FileName(wiki, table string) string {
	return fmt.Sprintf("%s-latest-%s.sql.gz", wiki, table)
}

// URL returns the mirror URL for one table's dump.
func URL(wiki, table string) string {
	base := os.Getenv(MirrorEnv)
	if base == "" {
		base = defaultMirror
	}
	return fmt.Sprintf("%s/%s/latest/%s", base, wiki, FileName(wiki, table))
}

// Open opens one table's compressed dump for streaming. The returned
// reader yields the decompressed SQL text; closing it closes the file.
func Open(dir, wiki, table string) (io.ReadCloser, error) {
	path := filepath.Join(dir, FileName(wiki, table))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open dump %s: %w", path, err)
	}
	return &dumpReader{gz: gz, f: f}, nil
}

type dumpReader struct {
	gz *gzip.Reader
	f  *os.File
}

func (r *dumpReader) Read(p []byte) (int, error) {
	return r.gz.Read(p)
}

func (r *dumpReader) Close() error {
	if err := r.gz.Close(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}
