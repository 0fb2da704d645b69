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
	"time"

	"github.com/wso2/identity-secret-mgt/pkg/metrics"
	"github.com/wso2/identity-secret-mgt/pkg/models"
)

// instrumentedStore records database metrics around another store.
type instrumentedStore struct {
	next SecretStore
}

func instrument(s SecretStore) SecretStore {
	if _, ok := s.(*instrumentedStore); ok {
		return s
	}
	return &instrumentedStore{next: s}
}

func (s *instrumentedStore) observe(operation string, start time.Time, err error) {
	backend := s.next.Name()
	metrics.DatabaseOperationDurationSeconds.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
	metrics.DatabaseOperationsTotal.WithLabelValues(operation, backend, metrics.Status(err)).Inc()
	if err != nil && !IsNotFoundError(err) {
		metrics.StorageErrorsTotal.WithLabelValues(backend, errorType(err)).Inc()
	}
}

func (s *instrumentedStore) Insert(ctx context.Context, secret *models.Secret) (err error) {
	defer func(start time.Time) { s.observe("insert", start, err) }(time.Now())
	return s.next.Insert(ctx, secret)
}

func (s *instrumentedStore) UpdateByName(ctx context.Context, tenantID int, name, ciphertext, secretType, description string, lastModified time.Time) (n int64, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	return s.next.UpdateByName(ctx, tenantID, name, ciphertext, secretType, description, lastModified)
}

func (s *instrumentedStore) DeleteByName(ctx context.Context, tenantID int, name string) (n int64, err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.DeleteByName(ctx, tenantID, name)
}

func (s *instrumentedStore) DeleteByID(ctx context.Context, tenantID int, id string) (n int64, err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.DeleteByID(ctx, tenantID, id)
}

func (s *instrumentedStore) FindByName(ctx context.Context, tenantID int, name string) (secret *models.Secret, err error) {
	defer func(start time.Time) { s.observe("select", start, err) }(time.Now())
	return s.next.FindByName(ctx, tenantID, name)
}

func (s *instrumentedStore) FindByID(ctx context.Context, tenantID int, id string) (secret *models.Secret, err error) {
	defer func(start time.Time) { s.observe("select", start, err) }(time.Now())
	return s.next.FindByID(ctx, tenantID, id)
}

func (s *instrumentedStore) ListByTenant(ctx context.Context, tenantID int) (secrets []*models.Secret, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.next.ListByTenant(ctx, tenantID)
}

func (s *instrumentedStore) Name() string {
	return s.next.Name()
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
