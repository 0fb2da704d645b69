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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wso2/identity-secret-mgt/pkg/config"
)

// reset returns the package to its uninitialized state.
func reset(enabled bool) {
	once = sync.Once{}
	registry = nil
	Enabled = enabled
}

func TestInitDisabled(t *testing.T) {
	reset(false)

	reg := Init()
	if reg == nil {
		t.Fatal("Init() returned nil even when metrics disabled")
	}

	// Noop metrics must not panic.
	SecretOperationsTotal.WithLabelValues("add", "success").Inc()
	CryptoOperationDurationSeconds.WithLabelValues("encrypt", "aesgcm").Observe(0.01)
	ConcurrentRequests.Inc()
	ConcurrentRequests.Dec()
	Info.WithLabelValues("test", "memory").Set(1)
	UpdateMemoryMetrics()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 0 {
		t.Errorf("disabled registry gathered %d families, want 0", len(families))
	}
}

func TestInitEnabled(t *testing.T) {
	reset(true)
	t.Cleanup(func() { reset(false) })

	reg := Init()
	if reg == nil {
		t.Fatal("Init() returned nil when metrics enabled")
	}

	SecretOperationsTotal.WithLabelValues("add", "success").Inc()
	SecretOperationsTotal.WithLabelValues("add", "success").Add(2)

	c, ok := SecretOperationsTotal.WithLabelValues("add", "success").(prometheus.Counter)
	if !ok {
		t.Fatal("enabled counter is not a prometheus.Counter")
	}
	if got := testutil.ToFloat64(c); got != 3 {
		t.Errorf("secret_operations_total = %v, want 3", got)
	}

	up, ok := Up.(prometheus.Gauge)
	if !ok {
		t.Fatal("enabled gauge is not a prometheus.Gauge")
	}
	if got := testutil.ToFloat64(up); got != 1 {
		t.Errorf("up = %v, want 1", got)
	}

	UpdateMemoryMetrics()
}

func TestGetRegistry(t *testing.T) {
	reset(true)
	t.Cleanup(func() { reset(false) })

	reg := GetRegistry()
	if reg == nil {
		t.Fatal("GetRegistry() returned nil")
	}
	if reg2 := GetRegistry(); reg != reg2 {
		t.Error("GetRegistry() returned different registry on second call")
	}
}

func TestStatus(t *testing.T) {
	if got := Status(nil); got != "success" {
		t.Errorf("Status(nil) = %q", got)
	}
	if got := Status(errors.New("boom")); got != "error" {
		t.Errorf("Status(err) = %q", got)
	}
}

func TestNewServer(t *testing.T) {
	reset(true)
	t.Cleanup(func() { reset(false) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(&config.MetricsConfig{Enabled: true, Port: 9091}, logger)
	if server.cfg.Port != 9091 {
		t.Errorf("NewServer port = %d, want 9091", server.cfg.Port)
	}

	SecretOperationsTotal.WithLabelValues("get", "success").Inc()

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "secret_mgt_secret_operations_total") {
		t.Error("/metrics output does not contain secret_mgt_secret_operations_total")
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("/health = %d %q", rec.Code, rec.Body.String())
	}
}
