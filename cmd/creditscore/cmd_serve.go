package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/api"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the selection API",
		Long: `Start the HTTP API.

Endpoints:
  GET  /healthz                      liveness
  GET  /metrics                      Prometheus metrics
  POST /v1/select                    select among posted candidates
  GET  /v1/runs/{runID}/candidates   candidates registered by a run
  POST /v1/runs/{runID}/select       select among a run's candidates`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := openServices(ctx, opts.settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			if addr == "" {
				addr = opts.settings.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(svc.registry, svc.gatherer),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("serving API", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				slog.Info("shutting down API")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: HTTP_ADDR)")

	return cmd
}
