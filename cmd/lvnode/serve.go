package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jbweber/lvnode/internal/api"
	"github.com/jbweber/lvnode/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the node API over HTTP",
	Long: `Serve the node API over HTTP until interrupted.

Routes:
  GET  /healthz
  GET  /metrics
  GET  /api/v1/nodes
  GET  /api/v1/nodes/{uuid}
  POST /api/v1/nodes/{uuid}/{action}
  GET  /api/v1/operations

When server.jwt_secret is set, /api/v1 requires a bearer token issued
with "lvnode token".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenFlag != "" {
			cfg.Server.Listen = listenFlag
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder, err := metrics.NewRecorder(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}

		s, err := openSession(recorder)
		if err != nil {
			return err
		}
		defer s.Close()

		opts := []api.Option{
			api.WithMetrics(reg),
			api.WithLogger(log.WithName("api")),
		}
		if s.journal != nil {
			opts = append(opts, api.WithHistory(s.journal))
		}
		if cfg.Server.JWTSecret != "" {
			opts = append(opts, api.WithJWTSecret([]byte(cfg.Server.JWTSecret)))
		} else {
			log.Info("API authentication is disabled, set server.jwt_secret to enable it")
		}

		srv := &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           api.New(s.driver, opts...).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
		defer stop()

		return serveUntilDone(ctx, srv, s.driver.URI())
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "listen address (overrides server.listen)")
}

// serveUntilDone runs srv until ctx is cancelled, then shuts it down.
func serveUntilDone(ctx context.Context, srv *http.Server, uri string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("serving", "addr", srv.Addr, "uri", uri)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info("✅ gracefully stopped")
	return nil
}
