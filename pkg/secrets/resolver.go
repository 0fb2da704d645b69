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

	"github.com/wso2/identity-secret-mgt/pkg/encryption"
	"github.com/wso2/identity-secret-mgt/pkg/models"
	"github.com/wso2/identity-secret-mgt/pkg/secreterr"
	"github.com/wso2/identity-secret-mgt/pkg/storage"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

// Resolver is the resolution surface. It decrypts on demand and never writes.
type Resolver struct {
	gate   *Gate
	oracle encryption.CryptoOracle
}

// NewResolver creates a secret resolver
func NewResolver(core CoreConfig, oracle encryption.CryptoOracle, logger *slog.Logger, opts ...Option) *Resolver {
	return &Resolver{
		gate:   NewGate(core, logger, opts...),
		oracle: oracle,
	}
}

// GetResolvedSecret returns the plaintext of a secret by name
func (r *Resolver) GetResolvedSecret(ctx context.Context, name string) (resolved *models.ResolvedSecret, err error) {
	const op = "resolve"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	return r.resolve(ctx, op, "name", name, func(store storage.SecretStore, tc tenant.Context) (*models.Secret, error) {
		return store.FindByName(ctx, tc.ID, name)
	})
}

// GetResolvedSecretByID returns the plaintext of a secret by id
func (r *Resolver) GetResolvedSecretByID(ctx context.Context, id string) (resolved *models.ResolvedSecret, err error) {
	const op = "resolve"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	return r.resolve(ctx, op, "id", id, func(store storage.SecretStore, tc tenant.Context) (*models.Secret, error) {
		return store.FindByID(ctx, tc.ID, id)
	})
}

func (r *Resolver) resolve(ctx context.Context, op, field, key string,
	find func(storage.SecretStore, tenant.Context) (*models.Secret, error)) (*models.ResolvedSecret, error) {
	store, tc, err := r.gate.Acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, secreterr.Newf(secreterr.ReasonInvalidInput, "secret %s is required", field)
	}

	secret, err := find(store, tc)
	if err != nil {
		return nil, storeError(err, "failed to load secret", "secret_"+field, key, "tenant_id", tc.ID)
	}

	plaintext, err := r.oracle.DecodeAndDecrypt(secret.Ciphertext)
	if err != nil {
		r.gate.log(ctx).Error("Failed to decrypt secret",
			slog.String("secret_id", secret.ID),
			slog.String("secret_name", secret.Name),
			slog.Int("tenant_id", tc.ID),
			slog.Any("error", err))
		return nil, secreterr.Wrap(err, secreterr.ReasonCryptoFailure, "failed to decrypt secret value",
			"secret_name", secret.Name, "tenant_id", tc.ID)
	}

	r.gate.log(ctx).Debug("Secret resolved",
		slog.String("secret_id", secret.ID),
		slog.String("tenant_domain", tc.Domain))

	return &models.ResolvedSecret{
		ID:            secret.ID,
		TenantID:      secret.TenantID,
		Name:          secret.Name,
		ResolvedValue: string(plaintext),
	}, nil
}
