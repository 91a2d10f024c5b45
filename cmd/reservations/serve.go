package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/reservation-availability/internal/application"
	"github.com/example/reservation-availability/internal/config"
	httptransport "github.com/example/reservation-availability/internal/http"
	"github.com/example/reservation-availability/internal/logging"
	"github.com/example/reservation-availability/internal/persistence"
	"github.com/example/reservation-availability/internal/persistence/sqlite"
	"github.com/example/reservation-availability/internal/submission"
	"github.com/example/reservation-availability/internal/telemetry"
)

const (
	serviceName  = "reservation-availability"
	maxBodyBytes = 1 << 20
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the availability HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger, migrateUp)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "apply database migrations on startup")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, migrateUp bool) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg.SQLitePath, logger, migrateUp)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	source := persistence.Source{Units: store, OpenSpans: store, Reservations: store, Blackouts: store}
	submitter := submission.NewSubmitter(
		persistence.ReservationCreator{Reservations: store},
		submission.WithLogger(logger),
		submission.WithBatchIDGenerator(uuid.NewString),
	)
	service := application.NewAvailabilityService(source, submitter,
		application.WithLogger(logger),
		application.WithLocation(cfg.Timezone),
		application.WithIndexCache(cfg.IndexCacheTTL, 0),
	)

	traceName := ""
	if cfg.OTelEnabled {
		traceName = serviceName
	}
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Availability: httptransport.NewAvailabilityHandler(service, logger),
		Health:       store,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger), httptransport.BodyLimit(maxBodyBytes)},
		TraceName:    traceName,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("availability API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, path string, logger *slog.Logger, migrateUp bool) (*sqlite.Store, error) {
	store, err := sqlite.Open(ctx, sqlite.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if migrateUp {
		if err := store.Migrate(ctx, logger); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return store, nil
}
