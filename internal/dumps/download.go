package dumps

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config tunes a download run.
type Config struct {
	// Wiki is the dump to fetch, e.g. "enwiki".
	Wiki string

	// Dir is where the .sql.gz files land.
	Dir string

	// Client defaults to a client with no overall timeout; the dumps
	// are tens of gigabytes and transfer as long as bytes keep moving.
	Client *http.Client

	// Logf receives progress output. Defaults to log.Printf.
	Logf func(format string, args ...interface{})
}

// Download fetches the three dumps concurrently, resuming partial files
// with HTTP range requests and skipping files that already match the
// remote size.
func Download(ctx context.Context, cfg *Config) error {
	c := *cfg
	if c.Wiki == "" {
		c.Wiki = "enwiki"
	}
	if c.Client == nil {
		c.Client = &http.Client{}
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, table := range Tables {
		table := table
		g.Go(func() error {
			return fetch(ctx, &c, table)
		})
	}
	return g.Wait()
}

func fetch(ctx context.Context, cfg *Config, table string) error {
	url := URL(cfg.Wiki, table)
	path := filepath.Join(cfg.Dir, FileName(cfg.Wiki, table))

	local := int64(0)
	if info, err := os.Stat(path); err == nil {
		local = info.Size()
	}

	if remote, err := remoteSize(ctx, cfg.Client, url); err == nil && remote > 0 && remote == local {
		cfg.Logf("%s up to date (%d bytes)", filepath.Base(path), local)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if local > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", local))
	}

	resp, err := cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	var offset int64
	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the range; start over.
		offset = 0
	case http.StatusPartialContent:
		offset = local
	case http.StatusRequestedRangeNotSatisfiable:
		// Nothing past our offset: the file is complete.
		cfg.Logf("%s already complete (%d bytes)", filepath.Base(path), local)
		return nil
	default:
		return fmt.Errorf("failed to fetch %s: status %s", url, resp.Status)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Truncate(offset); err != nil {
		return err
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	if offset > 0 {
		cfg.Logf("resuming %s at byte %d", filepath.Base(path), offset)
	} else {
		cfg.Logf("downloading %s", filepath.Base(path))
	}

	written, err := copyWithProgress(cfg, filepath.Base(path), f, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	cfg.Logf("%s done (%d bytes this run)", filepath.Base(path), written)
	return nil
}

func remoteSize(ctx context.Context, client *http.Client, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %s", resp.Status)
	}
	return strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
}

// copyWithProgress is io.Copy with a periodic byte-count log line, since a
// multi-gigabyte fetch with no feedback looks hung.
func copyWithProgress(cfg *Config, name string, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 1<<20)
	var written int64
	lastReport := time.Now()
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if time.Since(lastReport) >= 10*time.Second {
				cfg.Logf("%s: %d MiB", name, written>>20)
				lastReport = time.Now()
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
