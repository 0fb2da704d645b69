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

package models

import (
	"log/slog"
	"time"
)

// Secret represents a secret in the storage layer
type Secret struct {
	ID           string    // UUID, stable across replacements
	TenantID     int       // Owning tenant
	Name         string    // Caller-chosen name, unique within the tenant
	Type         string    // Optional category tag
	Description  string    // Optional free text
	Ciphertext   string    // Crypto oracle token (never plaintext)
	CreatedTime  time.Time // First insertion (UTC)
	LastModified time.Time // Latest write (UTC)
}

// View returns the plaintext-free projection of the stored secret.
func (s *Secret) View() *SecretView {
	return &SecretView{
		ID:           s.ID,
		TenantID:     s.TenantID,
		Name:         s.Name,
		Type:         s.Type,
		Description:  s.Description,
		CreatedTime:  s.CreatedTime,
		LastModified: s.LastModified,
	}
}

// SecretView is what the management surface returns. It has no value field.
type SecretView struct {
	ID           string    `json:"secretId" yaml:"secretId"`
	TenantID     int       `json:"tenantId" yaml:"tenantId"`
	Name         string    `json:"secretName" yaml:"secretName"`
	Type         string    `json:"type,omitempty" yaml:"type,omitempty"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedTime  time.Time `json:"created" yaml:"created"`
	LastModified time.Time `json:"lastModified" yaml:"lastModified"`
}

// Secrets is the ordered listing of a tenant's secrets.
type Secrets struct {
	Secrets []*SecretView `json:"secrets" yaml:"secrets"`
}

// Len returns the number of secrets in the listing.
func (s *Secrets) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Secrets)
}

// SecretAdd carries the input of add and replace operations.
type SecretAdd struct {
	Name        string
	Value       []byte
	Type        string
	Description string
}

// ResolvedSecret is what the resolution surface returns. It is transient and
// must not be persisted or logged.
type ResolvedSecret struct {
	ID            string `json:"secretId" yaml:"secretId"`
	TenantID      int    `json:"tenantId" yaml:"tenantId"`
	Name          string `json:"secretName" yaml:"secretName"`
	ResolvedValue string `json:"resolvedSecretValue" yaml:"resolvedSecretValue"`
}

// String redacts the plaintext so accidental formatting does not leak it.
func (r *ResolvedSecret) String() string {
	if r == nil {
		return "<nil>"
	}
	return "ResolvedSecret{ID:" + r.ID + " Name:" + r.Name + " ResolvedValue:[REDACTED]}"
}

// LogValue keeps the plaintext out of structured logs.
func (r *ResolvedSecret) LogValue() slog.Value {
	if r == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("secret_id", r.ID),
		slog.String("secret_name", r.Name),
		slog.Int("tenant_id", r.TenantID),
	)
}

// Zero drops the reference to the plaintext once the caller is done with it.
func (r *ResolvedSecret) Zero() {
	if r != nil {
		r.ResolvedValue = ""
	}
}
