package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fpgapack/internal/api"
	"github.com/matzehuels/fpgapack/pkg/pipeline"
)

// serveCommand runs the HTTP API (spec §6 ADDED "fpgapack serve").
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the packer over HTTP",
		Long: `Serve starts an HTTP server exposing POST /v1/pack, GET /v1/runs and
GET /v1/runs/{id}, backed by the same Options/Result pipeline the pack
command drives.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cache, err := newCache(noCache)
			if err != nil {
				return fmt.Errorf("init cache: %w", err)
			}
			runs, err := newRunStore()
			if err != nil {
				logger.Warn("run history disabled", "err", err)
				runs = nil
			}
			runner := pipeline.NewRunner(cache, runs, logger)
			defer runner.Close()

			srv := &api.Server{Runner: runner, Runs: runs, Logger: logger}
			httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("serving", "addr", addr)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down")
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache entirely")
	return cmd
}
