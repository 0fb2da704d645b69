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

	"github.com/wso2/identity-secret-mgt/pkg/models"
)

// SecretStore is the transactional persistence of encrypted secrets.
//
// Records are keyed by (tenant_id, name) with a secondary unique key
// (tenant_id, id). Every method runs as its own unit of work; nothing is
// left partially applied when a call fails.
type SecretStore interface {
	// Insert stores a new secret. It returns ErrConflict when the tenant
	// already has a secret with the same name or id.
	Insert(ctx context.Context, secret *models.Secret) error

	// UpdateByName overwrites the mutable columns of a secret and reports
	// the number of affected rows (0 when absent).
	UpdateByName(ctx context.Context, tenantID int, name, ciphertext, secretType, description string, lastModified time.Time) (int64, error)

	// DeleteByName removes a secret by name and reports the affected rows.
	DeleteByName(ctx context.Context, tenantID int, name string) (int64, error)

	// DeleteByID removes a secret by id and reports the affected rows.
	DeleteByID(ctx context.Context, tenantID int, id string) (int64, error)

	// FindByName returns ErrNotFound when absent.
	FindByName(ctx context.Context, tenantID int, name string) (*models.Secret, error)

	// FindByID returns ErrNotFound when absent.
	FindByID(ctx context.Context, tenantID int, id string) (*models.Secret, error)

	// ListByTenant returns every secret of the tenant in insertion order.
	ListByTenant(ctx context.Context, tenantID int) ([]*models.Secret, error)

	// Name returns the backend name the store was opened with.
	Name() string

	// Close releases the store's resources.
	Close() error
}
