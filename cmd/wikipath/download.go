package main

import (
	"log"

	"github.com/spf13/cobra"

	"wikipath/internal/dumps"
)

const exitNetwork = 2

func newDownloadCmd(flags *rootFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch the page, redirect and pagelinks dumps from the mirror",
		Long: `Downloads the three SQL dumps the indexer needs. Partial files are
resumed with HTTP range requests, and files that already match the
mirror's size are skipped. Set ` + dumps.MirrorEnv + ` to use another mirror.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := dumps.Download(cmd.Context(), &dumps.Config{
				Wiki: flags.wiki,
				Dir:  out,
				Logf: log.Printf,
			})
			if err != nil {
				return exitWith(exitNetwork, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "directory to store the dumps in")
	return cmd
}
