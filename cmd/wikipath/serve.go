package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"wikipath/internal/search"
	"wikipath/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve path queries over HTTP",
		Long: `Starts a read-only HTTP server over a complete index:

  GET /path?from=TITLE&to=TITLE
  GET /search?q=PATTERN
  GET /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			finder, err := search.Open(flags.index())
			if err != nil {
				return exitWith(exitIO, err)
			}
			defer finder.Close()

			srv := &http.Server{
				Addr:    addr,
				Handler: server.New(finder),
			}

			errc := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return exitWith(exitIO, err)
				}
				return nil
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return exitWith(exitIO, err)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}
