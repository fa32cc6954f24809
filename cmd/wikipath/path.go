package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wikipath/internal/search"
	"wikipath/internal/storage"
)

const (
	exitUnknownTitle = 5
	exitNoPath       = 6
)

func newPathCmd(flags *rootFlags) *cobra.Command {
	var forwardOnly bool

	cmd := &cobra.Command{
		Use:   "path TITLE_A TITLE_B",
		Short: "Print the shortest link path between two articles",
		Long: `Resolves both titles (following redirects) and prints the articles on
a shortest link path, one per line, endpoints included. Spaces in
titles may be given as spaces or underscores.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			finder, err := search.Open(flags.index())
			if err != nil {
				return exitWith(exitIO, err)
			}
			defer finder.Close()

			path, err := finder.Path(cmd.Context(), args[0], args[1], forwardOnly)
			switch {
			case errors.Is(err, storage.ErrUnknownTitle):
				return exitWith(exitUnknownTitle, err)
			case errors.Is(err, search.ErrNoPath):
				return exitWith(exitNoPath, err)
			case err != nil:
				return exitWith(exitIO, err)
			}

			for _, title := range path {
				fmt.Fprintln(cmd.OutOrStdout(), title)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&forwardOnly, "forward-only", false, "use plain BFS instead of the bidirectional search")
	return cmd
}
