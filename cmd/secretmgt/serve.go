/*
 * Copyright (c) 2026, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/wso2/identity-secret-mgt/pkg/api/handlers"
	"github.com/wso2/identity-secret-mgt/pkg/logger"
	"github.com/wso2/identity-secret-mgt/pkg/metrics"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the secret management REST server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, c)
		},
	}
}

func runServe(ctx context.Context, c *cli) error {
	cfg := c.cfg
	log := logger.NewLogger(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	log.Info("Starting secret management server",
		slog.String("config_file", c.configPath),
		slog.String("version", version),
		slog.String("storage_type", cfg.Storage.Type),
		slog.Bool("secret_management_enabled", cfg.SecretManagement.Enabled),
		slog.Bool("resolution_api_enabled", cfg.Server.ResolutionAPIEnabled),
		slog.Int("tenants", len(cfg.Tenants)+1),
	)
	switch {
	case !cfg.Auth.Basic.Enabled && cfg.Server.ResolutionAPIEnabled:
		log.Warn("Basic auth is disabled; resolved secrets of every tenant are readable without credentials")
	case cfg.Auth.Basic.Enabled && len(cfg.Auth.Basic.Users) == 0:
		log.Warn("Basic auth has no users configured; every API request will be rejected")
	}

	metrics.SetEnabled(cfg.Metrics.Enabled)
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.Init()
		metricsServer = metrics.NewServer(&cfg.Metrics, log)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		metrics.StartMemoryMetricsUpdater(ctx, cfg.Metrics.MemoryUpdateInterval)
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("Failed to close storage", slog.Any("error", err))
		}
	}()

	if err := a.oracle.HealthCheck(); err != nil {
		return fmt.Errorf("encryption self-check failed: %w", err)
	}

	server, err := handlers.NewSecretServer(a.manager, a.resolver, log)
	if err != nil {
		return err
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(server, handlers.RouterOptions{
		Tenants:           a.tenants,
		Auth:              cfg.Auth.Basic,
		ResolutionEnabled: cfg.Server.ResolutionAPIEnabled,
		ResolveRateLimit:  cfg.Server.ResolveRateLimit,
	}, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.APIPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting REST API server", slog.Int("port", cfg.Server.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	metrics.Up.Set(1)
	metrics.Info.WithLabelValues(version, cfg.Storage.Type).Set(1)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info("Shutting down secret management server")
	metrics.Up.Set(0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", slog.Any("error", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop metrics server", slog.Any("error", err))
		}
	}

	log.Info("Secret management server stopped")
	if serveErr != nil {
		return fmt.Errorf("REST API server failed: %w", serveErr)
	}
	return nil
}
