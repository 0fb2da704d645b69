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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/wso2/identity-secret-mgt/pkg/models"
)

const (
	superTenant = -1234
	otherTenant = 1
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "secrets.db")
	store, err := NewSQLiteStore(context.Background(), Options{SQLitePath: dbPath}, testLogger())
	assert.NilError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// backends returns one fresh store per backend that runs without external services.
func backends(t *testing.T) map[string]SecretStore {
	return map[string]SecretStore{
		"memory": NewMemoryStore(),
		"sqlite": newTestSQLiteStore(t),
	}
}

func newSecret(tenantID int, name string) *models.Secret {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Secret{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Name:         name,
		Type:         "ADAPTIVE_AUTH_CALL_CHOREO",
		Description:  "test secret",
		Ciphertext:   "dummy_encrypted1",
		CreatedTime:  now,
		LastModified: now,
	}
}

func TestSecretStore_InsertAndFind(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			secret := newSecret(superTenant, "secret1")
			assert.NilError(t, store.Insert(ctx, secret))

			byName, err := store.FindByName(ctx, superTenant, "secret1")
			assert.NilError(t, err)
			assert.Equal(t, byName.ID, secret.ID)
			assert.Equal(t, byName.Ciphertext, "dummy_encrypted1")
			assert.Equal(t, byName.Type, secret.Type)
			assert.Equal(t, byName.Description, secret.Description)
			assert.Assert(t, byName.CreatedTime.Equal(secret.CreatedTime))
			assert.Assert(t, byName.LastModified.Equal(secret.LastModified))
			assert.Equal(t, byName.CreatedTime.Location(), time.UTC)

			byID, err := store.FindByID(ctx, superTenant, secret.ID)
			assert.NilError(t, err)
			assert.Equal(t, byID.Name, "secret1")

			_, err = store.FindByName(ctx, superTenant, "missing")
			assert.Assert(t, errors.Is(err, ErrNotFound))
			_, err = store.FindByID(ctx, superTenant, uuid.NewString())
			assert.Assert(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestSecretStore_UniquenessIsPerTenant(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.NilError(t, store.Insert(ctx, newSecret(superTenant, "shared")))

			err := store.Insert(ctx, newSecret(superTenant, "shared"))
			assert.Assert(t, IsConflictError(err))

			assert.NilError(t, store.Insert(ctx, newSecret(otherTenant, "shared")))

			_, err = store.FindByName(ctx, otherTenant, "shared")
			assert.NilError(t, err)
		})
	}
}

func TestSecretStore_DuplicateIDInTenant(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := newSecret(superTenant, "a")
			assert.NilError(t, store.Insert(ctx, first))

			second := newSecret(superTenant, "b")
			second.ID = first.ID
			assert.Assert(t, IsConflictError(store.Insert(ctx, second)))
		})
	}
}

func TestSecretStore_UpdateByName(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			secret := newSecret(superTenant, "secret1")
			assert.NilError(t, store.Insert(ctx, secret))

			later := secret.LastModified.Add(time.Second)
			n, err := store.UpdateByName(ctx, superTenant, "secret1", "dummy_encrypted2", "NEW_TYPE", "", later)
			assert.NilError(t, err)
			assert.Equal(t, n, int64(1))

			got, err := store.FindByName(ctx, superTenant, "secret1")
			assert.NilError(t, err)
			assert.Equal(t, got.ID, secret.ID)
			assert.Equal(t, got.Ciphertext, "dummy_encrypted2")
			assert.Equal(t, got.Type, "NEW_TYPE")
			assert.Equal(t, got.Description, "")
			assert.Assert(t, got.CreatedTime.Equal(secret.CreatedTime))
			assert.Assert(t, got.LastModified.Equal(later))

			n, err = store.UpdateByName(ctx, otherTenant, "secret1", "x", "", "", later)
			assert.NilError(t, err)
			assert.Equal(t, n, int64(0))
		})
	}
}

func TestSecretStore_Delete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := newSecret(superTenant, "a")
			b := newSecret(superTenant, "b")
			assert.NilError(t, store.Insert(ctx, a))
			assert.NilError(t, store.Insert(ctx, b))

			n, err := store.DeleteByName(ctx, otherTenant, "a")
			assert.NilError(t, err)
			assert.Equal(t, n, int64(0))

			n, err = store.DeleteByName(ctx, superTenant, "a")
			assert.NilError(t, err)
			assert.Equal(t, n, int64(1))

			n, err = store.DeleteByName(ctx, superTenant, "a")
			assert.NilError(t, err)
			assert.Equal(t, n, int64(0))

			n, err = store.DeleteByID(ctx, superTenant, b.ID)
			assert.NilError(t, err)
			assert.Equal(t, n, int64(1))

			list, err := store.ListByTenant(ctx, superTenant)
			assert.NilError(t, err)
			assert.Equal(t, len(list), 0)

			// The name is free again after delete.
			assert.NilError(t, store.Insert(ctx, newSecret(superTenant, "a")))
		})
	}
}

func TestSecretStore_ListInsertionOrder(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			names := []string{"zeta", "alpha", "mid", "beta"}
			for _, n := range names {
				assert.NilError(t, store.Insert(ctx, newSecret(superTenant, n)))
			}
			assert.NilError(t, store.Insert(ctx, newSecret(otherTenant, "foreign")))

			// Replacing does not move a record.
			_, err := store.UpdateByName(ctx, superTenant, "zeta", "c", "", "", time.Now())
			assert.NilError(t, err)

			list, err := store.ListByTenant(ctx, superTenant)
			assert.NilError(t, err)
			assert.Equal(t, len(list), len(names))
			for i, s := range list {
				assert.Equal(t, s.Name, names[i])
				assert.Equal(t, s.TenantID, superTenant)
			}

			empty, err := store.ListByTenant(ctx, 42)
			assert.NilError(t, err)
			assert.Assert(t, empty != nil)
			assert.Equal(t, len(empty), 0)
		})
	}
}

func TestSecretStore_ConcurrentInsertSameName(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers = 8

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- store.Insert(ctx, newSecret(superTenant, "race"))
				}()
			}
			wg.Wait()
			close(errs)

			var ok, conflicts int
			for err := range errs {
				switch {
				case err == nil:
					ok++
				case IsConflictError(err):
					conflicts++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, ok, 1)
			assert.Equal(t, conflicts, workers-1)
		})
	}
}

func TestSecretStore_Closed(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.NilError(t, store.Close())
			assert.NilError(t, store.Close())

			err := store.Insert(ctx, newSecret(superTenant, "late"))
			assert.Assert(t, IsDatabaseUnavailableError(err), fmt.Sprintf("got %v", err))
			_, err = store.ListByTenant(ctx, superTenant)
			assert.Assert(t, IsDatabaseUnavailableError(err))
		})
	}
}

func TestSecretStore_CancelledContext(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := store.Insert(ctx, newSecret(superTenant, "cancelled"))
			assert.Assert(t, err != nil)

			list, err := store.ListByTenant(context.Background(), superTenant)
			assert.NilError(t, err)
			assert.Equal(t, len(list), 0)
		})
	}
}
