// Package lifecycle implements the Lifecycle Controller (C11):
// signal-driven startup sequencing and graceful shutdown, grounded on
// mini-50's cmd/service/main.go signal-and-Shutdown block and
// minis/09-http-server-graceful's GracefulShutdown helper, generalized
// to additionally broadcast job cancellation and stop the durable
// worker pool before the HTTP server itself stops accepting.
package lifecycle

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevichi7/bench-sort/internal/job"
)

// Stoppable is satisfied by worker.Pool; kept as an interface here so
// lifecycle never imports the worker package directly (nil in
// in-memory mode, where there is no pool to stop).
type Stoppable interface {
	Start(ctx context.Context)
	Stop()
}

// Run blocks until the server stops: it starts the optional worker
// pool, begins serving, and on the first SIGINT/SIGTERM broadcasts
// cancellation to every non-terminal job before calling
// Server.Shutdown with shutdownTimeout as its grace period.
func Run(ctx context.Context, srv *http.Server, store job.Store, pool Stoppable, shutdownTimeout time.Duration, logger zerolog.Logger) error {
	if pool != nil {
		pool.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	store.CancelAll()
	if pool != nil {
		pool.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}

	logger.Info().Msg("server stopped gracefully")
	return nil
}
