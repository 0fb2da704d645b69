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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wso2/identity-secret-mgt/pkg/config"
	"github.com/wso2/identity-secret-mgt/pkg/encryption"
	"github.com/wso2/identity-secret-mgt/pkg/encryption/aesgcm"
	"github.com/wso2/identity-secret-mgt/pkg/secrets"
	"github.com/wso2/identity-secret-mgt/pkg/storage"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

// app holds the wired core shared by the server and the secret commands
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.SecretStore
	oracle   *encryption.ProviderManager
	tenants  *tenant.Registry
	manager  *secrets.Manager
	resolver *secrets.Resolver
}

// newApp opens the store, loads the keys and builds the manager and resolver.
// The caller owns the returned app and must Close it.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	tenants, err := tenantRegistry(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := aesgcm.NewAESGCMProvider(keyConfigs(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AES-GCM provider: %w", err)
	}
	oracle, err := encryption.NewProviderManager([]encryption.EncryptionProvider{provider}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryption providers: %w", err)
	}

	log.Info("Initializing storage", slog.String("storage_type", cfg.Storage.Type))
	store, err := storage.Open(ctx, storageOptions(cfg), log)
	if err != nil {
		return nil, err
	}

	core := secrets.CoreConfig{
		Enabled: cfg.SecretManagement.Enabled,
		Stores:  []storage.SecretStore{store},
	}
	limits := secrets.Limits{
		MaxNameLength: cfg.SecretManagement.MaxNameLength,
		MaxValueSize:  cfg.SecretManagement.MaxValueSize,
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		store:    store,
		oracle:   oracle,
		tenants:  tenants,
		manager:  secrets.NewManager(core, oracle, log, secrets.WithLimits(limits)),
		resolver: secrets.NewResolver(core, oracle, log, secrets.WithLimits(limits)),
	}, nil
}

// Close releases the store
func (a *app) Close() error {
	return a.store.Close()
}

// tenantContext attaches the tenant of domain and username to ctx
func (a *app) tenantContext(ctx context.Context, domain, username string) (context.Context, error) {
	tc, err := a.tenants.Resolve(domain, username)
	if err != nil {
		return nil, err
	}
	return tenant.WithContext(ctx, tc), nil
}

func storageOptions(cfg *config.Config) storage.Options {
	pg := cfg.Storage.Postgres
	return storage.Options{
		Backend:    cfg.Storage.Type,
		SQLitePath: cfg.Storage.SQLite.Path,
		Postgres: storage.PostgresOptions{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			Database: pg.Database,
			SSLMode:  pg.SSLMode,
		},
		MaxOpenConns:    pg.MaxOpenConns,
		MaxIdleConns:    pg.MaxIdleConns,
		ConnMaxLifetime: pg.ConnMaxLifetime,
		ConnectTimeout:  cfg.Storage.ConnectTimeout,
	}
}

func keyConfigs(cfg *config.Config) []aesgcm.KeyConfig {
	keys := make([]aesgcm.KeyConfig, 0, len(cfg.Encryption.AESGCM.Keys))
	for _, k := range cfg.Encryption.AESGCM.Keys {
		keys = append(keys, aesgcm.KeyConfig{
			Version:        k.Version,
			FilePath:       k.File,
			KeyringService: k.KeyringService,
			KeyringUser:    k.Keyring,
			PassphraseEnv:  k.PassphraseEnv,
			PassphraseSalt: k.PassphraseSalt,
		})
	}
	return keys
}

func tenantRegistry(cfg *config.Config) (*tenant.Registry, error) {
	reg := tenant.NewRegistry()
	for _, t := range cfg.Tenants {
		if err := reg.Register(t.ID, t.Domain); err != nil {
			return nil, fmt.Errorf("failed to register tenant: %w", err)
		}
	}
	return reg, nil
}
