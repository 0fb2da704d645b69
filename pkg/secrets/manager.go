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

	"github.com/google/uuid"

	"github.com/wso2/identity-secret-mgt/pkg/encryption"
	"github.com/wso2/identity-secret-mgt/pkg/metrics"
	"github.com/wso2/identity-secret-mgt/pkg/models"
	"github.com/wso2/identity-secret-mgt/pkg/secreterr"
)

// Manager is the management surface. None of its results carry plaintext.
type Manager struct {
	gate   *Gate
	oracle encryption.CryptoOracle
}

// NewManager creates a secret manager
func NewManager(core CoreConfig, oracle encryption.CryptoOracle, logger *slog.Logger, opts ...Option) *Manager {
	return &Manager{
		gate:   NewGate(core, logger, opts...),
		oracle: oracle,
	}
}

func (m *Manager) validate(op string, add *models.SecretAdd) error {
	errs := m.gate.limits.validateAdd(add)
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		metrics.ValidationErrorsTotal.WithLabelValues(op, e.Field).Inc()
	}
	return secreterr.New(secreterr.ReasonInvalidInput, joinValidationErrors(errs), "operation", op)
}

func (m *Manager) validateKey(op, field, value string) error {
	if value != "" {
		return nil
	}
	metrics.ValidationErrorsTotal.WithLabelValues(op, field).Inc()
	return secreterr.Newf(secreterr.ReasonInvalidInput, "secret %s is required", field)
}

// AddSecret encrypts and stores a new secret under the caller's tenant
func (m *Manager) AddSecret(ctx context.Context, add *models.SecretAdd) (view *models.SecretView, err error) {
	const op = "add"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	store, tc, err := m.gate.Acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := m.validate(op, add); err != nil {
		return nil, err
	}
	log := m.gate.log(ctx)

	ciphertext, err := m.oracle.EncryptAndEncode(add.Value)
	if err != nil {
		log.Error("Failed to encrypt secret",
			slog.String("secret_name", add.Name),
			slog.Int("tenant_id", tc.ID),
			slog.Any("error", err))
		return nil, secreterr.Wrap(err, secreterr.ReasonCryptoFailure, "failed to encrypt secret value",
			"secret_name", add.Name, "tenant_id", tc.ID)
	}

	now := m.gate.now().UTC()
	secret := &models.Secret{
		ID:           uuid.NewString(),
		TenantID:     tc.ID,
		Name:         add.Name,
		Type:         add.Type,
		Description:  add.Description,
		Ciphertext:   ciphertext,
		CreatedTime:  now,
		LastModified: now,
	}

	if err := store.Insert(ctx, secret); err != nil {
		if isConflict(err) {
			log.Debug("Secret name already taken",
				slog.String("secret_name", add.Name),
				slog.Int("tenant_id", tc.ID))
			return nil, secreterr.Wrap(err, secreterr.ReasonDuplicateName, "a secret with this name already exists",
				"secret_name", add.Name, "tenant_id", tc.ID)
		}
		log.Error("Failed to store secret",
			slog.String("secret_name", add.Name),
			slog.Int("tenant_id", tc.ID),
			slog.Any("error", err))
		return nil, storeError(err, "failed to store secret", "secret_name", add.Name, "tenant_id", tc.ID)
	}

	log.Info("Secret added",
		slog.String("secret_id", secret.ID),
		slog.String("secret_name", secret.Name),
		slog.String("tenant_domain", tc.Domain))

	return secret.View(), nil
}

// ReplaceSecret re-encrypts the value of an existing secret. The id and
// creation time are preserved; type and description are kept when not supplied.
func (m *Manager) ReplaceSecret(ctx context.Context, add *models.SecretAdd) (view *models.SecretView, err error) {
	const op = "replace"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	store, tc, err := m.gate.Acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := m.validate(op, add); err != nil {
		return nil, err
	}
	log := m.gate.log(ctx)

	existing, err := store.FindByName(ctx, tc.ID, add.Name)
	if err != nil {
		return nil, storeError(err, "failed to load secret", "secret_name", add.Name, "tenant_id", tc.ID)
	}

	ciphertext, err := m.oracle.EncryptAndEncode(add.Value)
	if err != nil {
		log.Error("Failed to encrypt secret",
			slog.String("secret_name", add.Name),
			slog.Int("tenant_id", tc.ID),
			slog.Any("error", err))
		return nil, secreterr.Wrap(err, secreterr.ReasonCryptoFailure, "failed to encrypt secret value",
			"secret_name", add.Name, "tenant_id", tc.ID)
	}

	secretType := add.Type
	if secretType == "" {
		secretType = existing.Type
	}
	description := add.Description
	if description == "" {
		description = existing.Description
	}

	// last_modified strictly increases even if the clock does not move forward
	lastModified := m.gate.now().UTC()
	if !lastModified.After(existing.LastModified) {
		lastModified = existing.LastModified.Add(time.Microsecond)
	}

	affected, err := store.UpdateByName(ctx, tc.ID, add.Name, ciphertext, secretType, description, lastModified)
	if err != nil {
		log.Error("Failed to update secret",
			slog.String("secret_name", add.Name),
			slog.Int("tenant_id", tc.ID),
			slog.Any("error", err))
		return nil, storeError(err, "failed to update secret", "secret_name", add.Name, "tenant_id", tc.ID)
	}
	if affected == 0 {
		return nil, secreterr.New(secreterr.ReasonNotFound, "secret not found",
			"secret_name", add.Name, "tenant_id", tc.ID)
	}

	existing.Ciphertext = ciphertext
	existing.Type = secretType
	existing.Description = description
	existing.LastModified = lastModified

	log.Info("Secret replaced",
		slog.String("secret_id", existing.ID),
		slog.String("secret_name", existing.Name),
		slog.String("tenant_domain", tc.Domain))

	return existing.View(), nil
}

// GetSecret returns the metadata of a secret by name
func (m *Manager) GetSecret(ctx context.Context, name string) (view *models.SecretView, err error) {
	const op = "get"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	store, tc, err := m.gate.Acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := m.validateKey(op, "name", name); err != nil {
		return nil, err
	}

	secret, err := store.FindByName(ctx, tc.ID, name)
	if err != nil {
		return nil, storeError(err, "failed to load secret", "secret_name", name, "tenant_id", tc.ID)
	}
	return secret.View(), nil
}

// GetSecretByID returns the metadata of a secret by id
func (m *Manager) GetSecretByID(ctx context.Context, id string) (view *models.SecretView, err error) {
	const op = "get"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	store, tc, err := m.gate.Acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := m.validateKey(op, "id", id); err != nil {
		return nil, err
	}

	secret, err := store.FindByID(ctx, tc.ID, id)
	if err != nil {
		return nil, storeError(err, "failed to load secret", "secret_id", id, "tenant_id", tc.ID)
	}
	return secret.View(), nil
}

// DeleteSecret removes a secret by name. Deleting an absent secret is an error.
func (m *Manager) DeleteSecret(ctx context.Context, name string) (err error) {
	const op = "delete"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	store, tc, err := m.gate.Acquire(ctx, op)
	if err != nil {
		return err
	}
	if err := m.validateKey(op, "name", name); err != nil {
		return err
	}

	affected, err := store.DeleteByName(ctx, tc.ID, name)
	if err != nil {
		return storeError(err, "failed to delete secret", "secret_name", name, "tenant_id", tc.ID)
	}
	if affected == 0 {
		return secreterr.New(secreterr.ReasonNotFound, "secret not found", "secret_name", name, "tenant_id", tc.ID)
	}

	m.gate.log(ctx).Info("Secret deleted",
		slog.String("secret_name", name),
		slog.String("tenant_domain", tc.Domain))
	return nil
}

// DeleteSecretByID removes a secret by id
func (m *Manager) DeleteSecretByID(ctx context.Context, id string) (err error) {
	const op = "delete"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	store, tc, err := m.gate.Acquire(ctx, op)
	if err != nil {
		return err
	}
	if err := m.validateKey(op, "id", id); err != nil {
		return err
	}

	affected, err := store.DeleteByID(ctx, tc.ID, id)
	if err != nil {
		return storeError(err, "failed to delete secret", "secret_id", id, "tenant_id", tc.ID)
	}
	if affected == 0 {
		return secreterr.New(secreterr.ReasonNotFound, "secret not found", "secret_id", id, "tenant_id", tc.ID)
	}

	m.gate.log(ctx).Info("Secret deleted",
		slog.String("secret_id", id),
		slog.String("tenant_domain", tc.Domain))
	return nil
}

// GetSecrets lists the caller tenant's secrets in insertion order
func (m *Manager) GetSecrets(ctx context.Context) (list *models.Secrets, err error) {
	const op = "list"
	defer func(start time.Time) { track(op, start, err) }(time.Now())

	store, tc, err := m.gate.Acquire(ctx, op)
	if err != nil {
		return nil, err
	}

	records, err := store.ListByTenant(ctx, tc.ID)
	if err != nil {
		return nil, storeError(err, "failed to list secrets", "tenant_id", tc.ID)
	}

	views := make([]*models.SecretView, 0, len(records))
	for _, r := range records {
		views = append(views, r.View())
	}

	m.gate.log(ctx).Debug("Secrets listed",
		slog.String("tenant_domain", tc.Domain),
		slog.Int("count", len(views)))

	return &models.Secrets{Secrets: views}, nil
}
