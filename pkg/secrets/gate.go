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

package secrets

import (
	"context"
	"log/slog"
	"time"

	"github.com/wso2/identity-secret-mgt/pkg/logger"
	"github.com/wso2/identity-secret-mgt/pkg/metrics"
	"github.com/wso2/identity-secret-mgt/pkg/secreterr"
	"github.com/wso2/identity-secret-mgt/pkg/storage"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

// CoreConfig is built once by the host at boot and handed to NewManager and
// NewResolver. Only the first store is used.
type CoreConfig struct {
	Enabled bool
	Stores  []storage.SecretStore
}

// Option customizes a Manager or Resolver
type Option func(*Gate)

// WithLimits overrides the default input limits
func WithLimits(l Limits) Option {
	return func(g *Gate) { g.limits = l.normalized() }
}

// WithTenantProvider overrides how the calling tenant is resolved
func WithTenantProvider(p tenant.Provider) Option {
	return func(g *Gate) { g.tenants = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// Gate holds what the manager and resolver share: the component switch, the
// store, the tenant source and the clock. It is immutable after NewGate.
type Gate struct {
	enabled bool
	stores  []storage.SecretStore
	tenants tenant.Provider
	limits  Limits
	now     func() time.Time
	logger  *slog.Logger
}

// NewGate builds the gate for core. The store list is copied.
func NewGate(core CoreConfig, log *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		enabled: core.Enabled,
		stores:  append([]storage.SecretStore(nil), core.Stores...),
		tenants: tenant.ContextProvider{},
		limits:  DefaultLimits(),
		now:     time.Now,
		logger:  log,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled reports whether the component is switched on
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Acquire runs the checks every operation starts with: the component must be
// enabled, a store must be registered and the caller's tenant must be known.
func (g *Gate) Acquire(ctx context.Context, op string) (storage.SecretStore, tenant.Context, error) {
	if !g.enabled {
		return nil, tenant.Context{}, secreterr.New(secreterr.ReasonDisabled,
			"secret management is disabled", "operation", op)
	}
	if len(g.stores) == 0 {
		return nil, tenant.Context{}, secreterr.New(secreterr.ReasonUnexpectedState,
			"no secret store is registered", "operation", op)
	}
	tc, err := g.tenants.CurrentTenant(ctx)
	if err != nil {
		return nil, tenant.Context{}, secreterr.Wrap(err, secreterr.ReasonUnexpectedState,
			"tenant context is not available", "operation", op)
	}
	return g.stores[0], tc, nil
}

func (g *Gate) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, g.logger)
}

// storeError converts a store failure into the error model.
func storeError(err error, msg string, fields ...any) error {
	if storage.IsNotFoundError(err) {
		return secreterr.Wrap(err, secreterr.ReasonNotFound, "secret not found", fields...)
	}
	return secreterr.Wrap(err, secreterr.ReasonStoreFailure, msg, fields...)
}

func isConflict(err error) bool {
	return storage.IsConflictError(err)
}

// track records the outcome of one operation.
func track(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = string(secreterr.ReasonOf(err))
	}
	metrics.SecretOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.SecretOperationDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
