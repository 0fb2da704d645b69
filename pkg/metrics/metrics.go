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
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "secret_mgt"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	SecretOperationsTotal          CounterVec
	SecretOperationDurationSeconds HistogramVec
	ValidationErrorsTotal          CounterVec

	CryptoOperationsTotal          CounterVec
	CryptoOperationDurationSeconds HistogramVec

	DatabaseOperationsTotal          CounterVec
	DatabaseOperationDurationSeconds HistogramVec
	StorageErrorsTotal               CounterVec

	HTTPRequestsTotal          CounterVec
	HTTPRequestDurationSeconds HistogramVec
	ConcurrentRequests         Gauge
	RateLimitedRequestsTotal   CounterVec
	AuthFailuresTotal          CounterVec

	Up                   Gauge
	Info                 GaugeVec
	MemoryBytes          GaugeVec
	PanicRecoveriesTotal CounterVec
)

func init() {
	// Noop instances until Init runs, so callers never see nil metrics.
	initMetrics()
}

var (
	fastBuckets   = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}
	storeBuckets  = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0}
	secretBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5}
)

func counter(name, help string, labels ...string) CounterVec {
	return newCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	return newHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

func gauge(name, help string, labels ...string) GaugeVec {
	return newGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

// initMetrics (re)creates every metric according to Enabled.
func initMetrics() {
	SecretOperationsTotal = counter("secret_operations_total",
		"Secret management and resolution operations", "operation", "status")
	SecretOperationDurationSeconds = histogram("secret_operation_duration_seconds",
		"Latency of secret operations", secretBuckets, "operation")
	ValidationErrorsTotal = counter("validation_errors_total",
		"Rejected secret inputs", "operation", "field")

	CryptoOperationsTotal = counter("crypto_operations_total",
		"Encrypt and decrypt calls per provider", "operation", "provider", "status")
	CryptoOperationDurationSeconds = histogram("crypto_operation_duration_seconds",
		"Latency of encrypt and decrypt calls", fastBuckets, "operation", "provider")

	DatabaseOperationsTotal = counter("database_operations_total",
		"Secret store calls per backend", "operation", "backend", "status")
	DatabaseOperationDurationSeconds = histogram("database_operation_duration_seconds",
		"Latency of secret store calls", storeBuckets, "operation", "backend")
	StorageErrorsTotal = counter("storage_errors_total",
		"Failed secret store calls by error class", "backend", "error_type")

	HTTPRequestsTotal = counter("http_requests_total",
		"REST requests served", "method", "endpoint", "status_code")
	HTTPRequestDurationSeconds = histogram("http_request_duration_seconds",
		"Latency of REST requests", prometheus.DefBuckets, "method", "endpoint")
	ConcurrentRequests = newGauge(prometheus.GaugeOpts{Namespace: namespace,
		Name: "concurrent_requests", Help: "REST requests in flight"})
	RateLimitedRequestsTotal = counter("rate_limited_requests_total",
		"Resolution requests rejected by the per-tenant limiter", "tenant_domain")
	AuthFailuresTotal = counter("auth_failures_total",
		"Rejected authentication attempts", "reason")

	Up = newGauge(prometheus.GaugeOpts{Namespace: namespace,
		Name: "up", Help: "1 while the service is serving"})
	Info = gauge("info", "Build and storage information", "version", "storage_backend")
	MemoryBytes = gauge("memory_bytes", "Go runtime memory usage", "type")
	PanicRecoveriesTotal = counter("panic_recoveries_total",
		"Recovered panics per component", "component")
}

func register(m any) {
	if !Enabled {
		return
	}
	var c prometheus.Collector
	switch v := m.(type) {
	case interface{ Collector() prometheus.Collector }:
		c = v.Collector()
	case prometheus.Collector:
		c = v
	}
	if c != nil {
		// Already registered collectors are ignored.
		_ = registry.Register(c)
	}
}

func initRegistry() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	for _, c := range []any{
		SecretOperationsTotal,
		SecretOperationDurationSeconds,
		ValidationErrorsTotal,
		CryptoOperationsTotal,
		CryptoOperationDurationSeconds,
		DatabaseOperationsTotal,
		DatabaseOperationDurationSeconds,
		StorageErrorsTotal,
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		ConcurrentRequests,
		RateLimitedRequestsTotal,
		AuthFailuresTotal,
		Up,
		Info,
		MemoryBytes,
		PanicRecoveriesTotal,
	} {
		register(c)
	}

	Up.Set(1)
}

// Init initializes the metrics registry with all collectors.
// This must be called after SetEnabled() has been called.
func Init() *prometheus.Registry {
	once.Do(func() {
		initMetrics()

		if !Enabled {
			registry = prometheus.NewRegistry()
			return
		}
		initRegistry()
	})

	return registry
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return Init()
	}
	return registry
}

// UpdateMemoryMetrics updates memory-related metrics
func UpdateMemoryMetrics() {
	if !Enabled {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryBytes.WithLabelValues("heap_alloc").Set(float64(m.HeapAlloc))
	MemoryBytes.WithLabelValues("heap_sys").Set(float64(m.HeapSys))
	MemoryBytes.WithLabelValues("stack_inuse").Set(float64(m.StackInuse))
}

// Status returns the status label for an operation outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
