package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/upb/nse-market-bot/routes"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			cfg := deps.Config
			logger := deps.Logger

			srv := &http.Server{
				Addr:              cfg.Server.Address(),
				Handler:           routes.SetupRoutes(deps),
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("market bot listening",
					zap.String("addr", srv.Addr),
					zap.String("environment", cfg.Environment),
					zap.String("version", version))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			var serveErr error
			select {
			case serveErr = <-errCh:
				if serveErr != nil {
					logger.Error("server error", zap.Error(serveErr))
				}
			case <-ctx.Done():
				logger.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", zap.Error(err))
			}
			if err := deps.Close(shutdownCtx); err != nil {
				logger.Error("failed to close dependencies", zap.Error(err))
			}

			logger.Info("server stopped")
			return serveErr
		},
	}
}
