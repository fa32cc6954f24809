package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wikipath/internal/storage"
)

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search PATTERN",
		Short: "Search stored titles with a SQL LIKE pattern",
		Long: `Matches article titles against a SQL LIKE pattern (% and _ wildcards)
and prints id, title and redirect status. Useful for finding the exact
title an article is stored under.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(flags.index())
			if err != nil {
				return exitWith(exitIO, err)
			}
			defer store.Close()

			matches, err := store.SearchTitles(args[0], limit)
			if err != nil {
				return exitWith(exitIO, err)
			}
			if len(matches) == 0 {
				return exitWith(exitUnknownTitle, errors.New("no titles match"))
			}
			for _, m := range matches {
				if m.IsRedirect {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t(redirect)\n", m.ID, m.Title)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", m.ID, m.Title)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of matches to print")
	return cmd
}
