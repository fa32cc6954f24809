package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// IndexEnv overrides the default index directory when set.
const IndexEnv = "WIKIPATH_INDEX"

const defaultIndexDir = "wikipath-index"

type rootFlags struct {
	indexDir string
	wiki     string
	logFile  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "wikipath",
		Short: "Shortest link paths between Wikipedia articles",
		Long: `wikipath builds a link graph from Wikipedia's published SQL dumps and
answers shortest-path queries between articles.

Typical use:

  wikipath download --out dumps
  wikipath index --dumps dumps
  wikipath path Linguistics Coffee`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(flags.logFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.indexDir, "index", "", "index directory (default $WIKIPATH_INDEX or ./"+defaultIndexDir+")")
	pf.StringVar(&flags.wiki, "wiki", "enwiki", "which wiki's dumps to use")
	pf.StringVar(&flags.logFile, "log", "", "also append log output to this file")

	root.AddCommand(
		newDownloadCmd(flags),
		newIndexCmd(flags),
		newPathCmd(flags),
		newSearchCmd(flags),
		newServeCmd(flags),
	)
	return root
}

func (f *rootFlags) index() string {
	if f.indexDir != "" {
		return f.indexDir
	}
	if dir := os.Getenv(IndexEnv); dir != "" {
		return dir
	}
	return defaultIndexDir
}

func setupLogging(logFile string) error {
	log.SetFlags(log.LstdFlags)
	if logFile == "" {
		return nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}
