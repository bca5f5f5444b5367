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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	handler "github.com/neomorfeo/providerhub/internal/adapter/http"
	"github.com/neomorfeo/providerhub/internal/config"
	"github.com/neomorfeo/providerhub/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the lifecycle event worker",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP port (PORT)")
	mustBind(v, config.KeyPort, cmd.Flags().Lookup("port"))
	return cmd
}

// run serves until SIGINT or SIGTERM, then drains HTTP requests and the
// event worker.
func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	s, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.close(closeCtx); err != nil {
			logger.Error("closing resources", "error", err)
		}
	}()

	// The worker must outlive the signal so it can be stopped gracefully.
	if err := s.jobs.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting event worker: %w", err)
	}

	// --- Adapters (in) ---
	router, api := handler.NewRouter(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
	handler.Register(api, s.service, s.imports, s.lifecycle, handler.Options{
		DisplayLimit:   cfg.Import.DisplayLimit,
		MaxUploadBytes: cfg.Import.MaxBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("providerhub listening", "addr", srv.Addr, "docs", fmt.Sprintf("http://localhost%s/docs", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.jobs.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("event worker shutdown: %w", err))
	}

	logger.Info("stopped")
	return errors.Join(errs...)
}
