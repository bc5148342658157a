// Command geofetchd serves location search, current conditions and forecasts
// from Open-Meteo through the geofetch coordination layer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/clycites/geofetch/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("GEOFETCH_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "geofetchd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}

	root, err := newRoot(ctx, cfg)
	if err != nil {
		return err
	}
	defer root.cleanup()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      root.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		root.logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	root.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		root.logger.Error().Err(err).Msg("http server forced to shut down")
	}
	root.coordinator.Stop()

	if err := root.observer.Shutdown(shutdownCtx); err != nil {
		root.logger.Error().Err(err).Msg("telemetry shutdown failed")
	}
	root.logger.Info().Msg("stopped")
	return nil
}
