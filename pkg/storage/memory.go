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

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wso2/identity-secret-mgt/pkg/models"
)

const memoryBackend = "memory"

func init() {
	RegisterBackend(memoryBackend, func(_ context.Context, _ Options, logger *slog.Logger) (SecretStore, error) {
		logger.Info("Using in-memory secret storage; secrets are lost on restart")
		return NewMemoryStore(), nil
	})
}

type tenantKey struct {
	tenantID int
	key      string
}

// MemoryStore holds secrets in memory. Records are kept in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.Secret
	byName  map[tenantKey]*models.Secret
	byID    map[tenantKey]*models.Secret
	closed  bool
}

var _ SecretStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName: make(map[tenantKey]*models.Secret),
		byID:   make(map[tenantKey]*models.Secret),
	}
}

func clone(s *models.Secret) *models.Secret {
	c := *s
	return &c
}

// Insert stores a new secret
func (ms *MemoryStore) Insert(ctx context.Context, secret *models.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrDatabaseUnavailable
	}

	nameKey := tenantKey{secret.TenantID, secret.Name}
	idKey := tenantKey{secret.TenantID, secret.ID}
	if _, exists := ms.byName[nameKey]; exists {
		return fmt.Errorf("%w: secret with name '%s'", ErrConflict, secret.Name)
	}
	if _, exists := ms.byID[idKey]; exists {
		return fmt.Errorf("%w: secret with id '%s'", ErrConflict, secret.ID)
	}

	rec := clone(secret)
	ms.records = append(ms.records, rec)
	ms.byName[nameKey] = rec
	ms.byID[idKey] = rec
	return nil
}

// UpdateByName overwrites ciphertext, type, description and last modified time
func (ms *MemoryStore) UpdateByName(ctx context.Context, tenantID int, name, ciphertext, secretType, description string, lastModified time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return 0, ErrDatabaseUnavailable
	}

	rec, exists := ms.byName[tenantKey{tenantID, name}]
	if !exists {
		return 0, nil
	}
	rec.Ciphertext = ciphertext
	rec.Type = secretType
	rec.Description = description
	rec.LastModified = lastModified.UTC()
	return 1, nil
}

// DeleteByName removes a secret by name
func (ms *MemoryStore) DeleteByName(ctx context.Context, tenantID int, name string) (int64, error) {
	return ms.delete(ctx, ms.byName, tenantKey{tenantID, name})
}

// DeleteByID removes a secret by id
func (ms *MemoryStore) DeleteByID(ctx context.Context, tenantID int, id string) (int64, error) {
	return ms.delete(ctx, ms.byID, tenantKey{tenantID, id})
}

func (ms *MemoryStore) delete(ctx context.Context, index map[tenantKey]*models.Secret, key tenantKey) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return 0, ErrDatabaseUnavailable
	}

	rec, exists := index[key]
	if !exists {
		return 0, nil
	}
	delete(ms.byName, tenantKey{rec.TenantID, rec.Name})
	delete(ms.byID, tenantKey{rec.TenantID, rec.ID})
	for i, r := range ms.records {
		if r == rec {
			ms.records = append(ms.records[:i], ms.records[i+1:]...)
			break
		}
	}
	return 1, nil
}

// FindByName retrieves a secret by name
func (ms *MemoryStore) FindByName(ctx context.Context, tenantID int, name string) (*models.Secret, error) {
	return ms.find(ctx, ms.byName, tenantKey{tenantID, name})
}

// FindByID retrieves a secret by id
func (ms *MemoryStore) FindByID(ctx context.Context, tenantID int, id string) (*models.Secret, error) {
	return ms.find(ctx, ms.byID, tenantKey{tenantID, id})
}

func (ms *MemoryStore) find(ctx context.Context, index map[tenantKey]*models.Secret, key tenantKey) (*models.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.closed {
		return nil, ErrDatabaseUnavailable
	}

	rec, exists := index[key]
	if !exists {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

// ListByTenant returns the tenant's secrets in insertion order
func (ms *MemoryStore) ListByTenant(ctx context.Context, tenantID int) ([]*models.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.closed {
		return nil, ErrDatabaseUnavailable
	}

	result := make([]*models.Secret, 0)
	for _, rec := range ms.records {
		if rec.TenantID == tenantID {
			result = append(result, clone(rec))
		}
	}
	return result, nil
}

// Name returns the backend name
func (ms *MemoryStore) Name() string {
	return memoryBackend
}

// Close marks the store unavailable
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	return nil
}
