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
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wso2/identity-secret-mgt/pkg/models"
	"github.com/wso2/identity-secret-mgt/pkg/storage"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

// fakeOracle maps dummy_valueN to dummy_encryptedN and back.
type fakeOracle struct {
	mu          sync.Mutex
	failEncrypt bool
	failDecrypt bool
}

func (o *fakeOracle) setFailures(encrypt, decrypt bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failEncrypt = encrypt
	o.failDecrypt = decrypt
}

func (o *fakeOracle) EncryptAndEncode(plaintext []byte) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failEncrypt {
		return "", errors.New("keystore unavailable")
	}
	return strings.Replace(string(plaintext), "dummy_value", "dummy_encrypted", 1), nil
}

func (o *fakeOracle) DecodeAndDecrypt(token string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failDecrypt {
		return nil, errors.New("mac verification failed")
	}
	return []byte(strings.Replace(token, "dummy_encrypted", "dummy_value", 1)), nil
}

// failingStore fails every call with err.
type failingStore struct {
	storage.SecretStore
	err error
}

func (s *failingStore) Insert(context.Context, *models.Secret) error { return s.err }
func (s *failingStore) FindByName(context.Context, int, string) (*models.Secret, error) {
	return nil, s.err
}
func (s *failingStore) ListByTenant(context.Context, int) ([]*models.Secret, error) {
	return nil, s.err
}

// vanishingStore reports zero affected rows on update, as if a concurrent
// delete won the race between lookup and update.
type vanishingStore struct {
	*storage.MemoryStore
}

func (s *vanishingStore) UpdateByName(context.Context, int, string, string, string, string, time.Time) (int64, error) {
	return 0, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func superCtx() context.Context {
	return tenant.WithContext(context.Background(), tenant.Super(tenant.SuperTenantAdmin))
}

func tenantCtx(id int, domain string) context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{ID: id, Domain: domain, Username: "admin"})
}

type fixture struct {
	store    storage.SecretStore
	oracle   *fakeOracle
	manager  *Manager
	resolver *Resolver
}

func newFixture(opts ...Option) *fixture {
	store := storage.NewMemoryStore()
	return newFixtureWithStore(store, opts...)
}

func newFixtureWithStore(store storage.SecretStore, opts ...Option) *fixture {
	oracle := &fakeOracle{}
	core := CoreConfig{Enabled: true, Stores: []storage.SecretStore{store}}
	return &fixture{
		store:    store,
		oracle:   oracle,
		manager:  NewManager(core, oracle, quietLogger(), opts...),
		resolver: NewResolver(core, oracle, quietLogger(), opts...),
	}
}

func sample(name, value string) *models.SecretAdd {
	return &models.SecretAdd{Name: name, Value: []byte(value)}
}
