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

// Package tenant carries the per-request tenant identity through context.Context.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const (
	// SuperTenantID is the id of the default super tenant.
	SuperTenantID = -1234
	// SuperTenantDomain is the domain of the default super tenant.
	SuperTenantDomain = "carbon.super"
	// SuperTenantAdmin is the default administrative user of the super tenant.
	SuperTenantAdmin = "admin"
)

var (
	// ErrNoTenant is returned when the context has no tenant attached.
	ErrNoTenant = errors.New("tenant context not set")
	// ErrUnknownTenant is returned when a domain is not registered.
	ErrUnknownTenant = errors.New("unknown tenant domain")
)

// Context identifies the tenant and user an operation runs on behalf of.
type Context struct {
	ID       int
	Domain   string
	Username string
}

// Super returns the super tenant context for the given user.
func Super(username string) Context {
	return Context{ID: SuperTenantID, Domain: SuperTenantDomain, Username: username}
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying t.
func WithContext(ctx context.Context, t Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the tenant attached to ctx.
func FromContext(ctx context.Context) (Context, error) {
	if ctx == nil {
		return Context{}, ErrNoTenant
	}
	t, ok := ctx.Value(ctxKey{}).(Context)
	if !ok {
		return Context{}, ErrNoTenant
	}
	return t, nil
}

// Provider resolves the tenant of the current operation.
type Provider interface {
	CurrentTenant(ctx context.Context) (Context, error)
}

// ContextProvider reads the tenant from the request context.
type ContextProvider struct{}

// CurrentTenant implements Provider.
func (ContextProvider) CurrentTenant(ctx context.Context) (Context, error) {
	return FromContext(ctx)
}

// Registry maps tenant domains to tenant ids.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]int
	byID   map[int]string
}

// NewRegistry creates a registry that always knows the super tenant.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]int),
		byID:   make(map[int]string),
	}
	r.byName[SuperTenantDomain] = SuperTenantID
	r.byID[SuperTenantID] = SuperTenantDomain
	return r
}

// Register adds a tenant. A domain or id can only be registered once.
func (r *Registry) Register(id int, domain string) error {
	if domain == "" {
		return fmt.Errorf("tenant domain is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[domain]; ok {
		if existing == id {
			return nil
		}
		return fmt.Errorf("tenant domain %q already registered with id %d", domain, existing)
	}
	if existing, ok := r.byID[id]; ok {
		return fmt.Errorf("tenant id %d already registered for domain %q", id, existing)
	}
	r.byName[domain] = id
	r.byID[id] = domain
	return nil
}

// Lookup returns the tenant id registered for domain.
func (r *Registry) Lookup(domain string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[domain]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTenant, domain)
	}
	return id, nil
}

// Resolve builds the tenant context for a domain and user.
func (r *Registry) Resolve(domain, username string) (Context, error) {
	if domain == "" {
		domain = SuperTenantDomain
	}
	id, err := r.Lookup(domain)
	if err != nil {
		return Context{}, err
	}
	return Context{ID: id, Domain: domain, Username: username}, nil
}
