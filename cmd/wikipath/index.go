package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"wikipath/internal/dumps"
	"wikipath/internal/index"
	"wikipath/internal/sqldump"
	"wikipath/internal/storage"
)

const (
	exitParse = 3
	exitIO    = 4
)

func newIndexCmd(flags *rootFlags) *cobra.Command {
	var (
		dumpDir    string
		out        string
		namespaces []int32
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the path index from downloaded dumps",
		Long: `Streams the page, redirect and pagelinks dumps into the index
directory: the title interner, the collapsed redirect map and the
forward and reverse link graphs. The index only becomes queryable once
the build runs to completion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := out
			if dir == "" {
				dir = flags.index()
			}
			if err := buildIndex(cmd, flags.wiki, dumpDir, dir, namespaces); err != nil {
				var pe *sqldump.ParseError
				var se *sqldump.SchemaError
				if errors.As(err, &pe) || errors.As(err, &se) {
					return exitWith(exitParse, err)
				}
				return exitWith(exitIO, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dumpDir, "dumps", ".", "directory holding the .sql.gz dumps")
	cmd.Flags().StringVar(&out, "out", "", "index directory to build (default --index)")
	cmd.Flags().Int32SliceVar(&namespaces, "namespaces", []int32{0}, "page namespaces to include")
	return cmd
}

func buildIndex(cmd *cobra.Command, wiki, dumpDir, indexDir string, namespaces []int32) error {
	store, err := storage.Create(indexDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetMeta("wiki", wiki); err != nil {
		return err
	}

	b := index.NewBuilder(store, &index.Config{
		Namespaces: namespaces,
		Logf:       log.Printf,
	})

	stages := []struct {
		table string
		run   func() error
	}{
		{"page", func() error {
			return withDump(dumpDir, wiki, "page", func(r io.Reader) error {
				return b.IngestPages(cmd.Context(), r)
			})
		}},
		{"redirect", func() error {
			return withDump(dumpDir, wiki, "redirect", func(r io.Reader) error {
				return b.IngestRedirects(cmd.Context(), r)
			})
		}},
		{"pagelinks", func() error {
			return withDump(dumpDir, wiki, "pagelinks", func(r io.Reader) error {
				return b.IngestLinks(cmd.Context(), r)
			})
		}},
	}
	for _, stage := range stages {
		log.Printf("ingesting %s table", stage.table)
		if err := stage.run(); err != nil {
			return fmt.Errorf("%s stage: %w", stage.table, err)
		}
	}
	return b.Finish()
}

func withDump(dir, wiki, table string, fn func(io.Reader) error) error {
	r, err := dumps.Open(dir, wiki, table)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}
