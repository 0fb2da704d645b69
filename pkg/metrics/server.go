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

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wso2/identity-secret-mgt/pkg/config"
)

// Server serves /metrics and /health on a port separate from the API.
type Server struct {
	cfg    *config.MetricsConfig
	srv    *http.Server
	logger *slog.Logger
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(Init(), promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// NewServer registers the collectors and builds the scrape server.
func NewServer(cfg *config.MetricsConfig, logger *slog.Logger) *Server {
	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
			Handler:           newMux(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		logger: logger.With(slog.String("component", "metrics")),
	}
}

// Handler returns the scrape mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start binds the port synchronously and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("Metrics server listening", slog.String("address", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Stop drains in-flight scrapes until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping metrics server")
	return s.srv.Shutdown(ctx)
}

// StartMemoryMetricsUpdater refreshes the memory gauges every interval until
// ctx is cancelled. A non-positive interval disables the updater.
func StartMemoryMetricsUpdater(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				UpdateMemoryMetrics()
			case <-ctx.Done():
				return
			}
		}
	}()
}
