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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/identity-secret-mgt/pkg/config"
	"github.com/wso2/identity-secret-mgt/pkg/models"
	"github.com/wso2/identity-secret-mgt/pkg/secreterr"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

// writeTestConfig creates a key file and a config using a temp SQLite database
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "keys", "key-v1.bin")
	require.NoError(t, runKeygen(&keygenOptions{out: keyPath}))

	content := fmt.Sprintf(`
[storage]
type = "sqlite"

[storage.sqlite]
path = %q

[[encryption.aesgcm.keys]]
version = "key-v1"
file = %q

[[tenants]]
id = 1
domain = "wso2.com"

[logging]
level = "error"
`, filepath.Join(dir, "secrets.db"), keyPath)

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSecretCommands(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := run(t, "", "secret", "add", "sample-secret1", "--value", "dummy_value",
		"--type", "ADAPTIVE_AUTH_CALL_CHOREO", "--format", "json", "--config", cfgPath)
	require.NoError(t, err)
	var added models.SecretView
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, "sample-secret1", added.Name)
	assert.Equal(t, tenant.SuperTenantID, added.TenantID)
	assert.NotContains(t, out, "dummy_value")

	_, err = run(t, "piped_value\n", "secret", "add", "sample-secret2", "--config", cfgPath)
	require.NoError(t, err)

	out, err = run(t, "", "secret", "list", "--format", "json", "--config", cfgPath)
	require.NoError(t, err)
	var list models.Secrets
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Equal(t, 2, list.Len())
	assert.Equal(t, "sample-secret1", list.Secrets[0].Name)

	out, err = run(t, "", "secret", "get", "--id", added.ID, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "secretName: sample-secret1")

	out, err = run(t, "", "secret", "resolve", "sample-secret2", "--format", "json", "--config", cfgPath)
	require.NoError(t, err)
	var resolved models.ResolvedSecret
	require.NoError(t, json.Unmarshal([]byte(out), &resolved))
	assert.Equal(t, "piped_value", resolved.ResolvedValue)

	_, err = run(t, "", "secret", "replace", "sample-secret1", "--value", "new_value", "--config", cfgPath)
	require.NoError(t, err)
	out, err = run(t, "", "secret", "resolve", "--id", added.ID, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "resolvedSecretValue: new_value")

	_, err = run(t, "", "secret", "add", "sample-secret1", "--value", "x", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, secreterr.IsDuplicateName(err))

	out, err = run(t, "", "secret", "delete", "sample-secret1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Secret deleted")

	_, err = run(t, "", "secret", "get", "sample-secret1", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, secreterr.IsNotFound(err))
}

func TestSecretCommands_TenantIsolation(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := run(t, "", "secret", "add", "sample-secret1", "--value", "tenant_value",
		"--tenant-domain", "wso2.com", "--config", cfgPath)
	require.NoError(t, err)

	_, err = run(t, "", "secret", "get", "sample-secret1", "--config", cfgPath)
	assert.True(t, secreterr.IsNotFound(err))

	out, err := run(t, "", "secret", "resolve", "sample-secret1", "-t", "wso2.com", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "tenant_value")
	assert.Contains(t, out, "tenantId: 1")

	_, err = run(t, "", "secret", "list", "-t", "unknown.com", "--config", cfgPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, tenant.ErrUnknownTenant)
}

func TestSecretCommands_ArgumentErrors(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := run(t, "", "secret", "get", "--config", cfgPath)
	assert.ErrorContains(t, err, "either a name or --id")

	_, err = run(t, "", "secret", "get", "n", "--id", "x", "--config", cfgPath)
	assert.ErrorContains(t, err, "cannot specify both")

	_, err = run(t, "", "secret", "add", "s1", "--config", cfgPath)
	assert.ErrorContains(t, err, "no secret value")

	_, err = run(t, "", "secret", "list", "--format", "xml", "--config", cfgPath)
	assert.ErrorContains(t, err, "invalid format")
}

func TestRunKeygen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "key.bin")
	require.NoError(t, runKeygen(&keygenOptions{out: path}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(32), info.Size())
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	err = runKeygen(&keygenOptions{out: path})
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, runKeygen(&keygenOptions{out: path, force: true}))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	assert.Error(t, runKeygen(&keygenOptions{}))
	assert.Error(t, runKeygen(&keygenOptions{out: path, keyringUser: "k"}))
}

func TestStorageOptions(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:           "postgres",
		ConnectTimeout: 5 * time.Second,
		SQLite:         config.SQLiteConfig{Path: "/tmp/x.db"},
		Postgres: config.PostgresConfig{
			Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require",
			MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: time.Minute,
		},
	}}

	opts := storageOptions(cfg)
	assert.Equal(t, "postgres", opts.Backend)
	assert.Equal(t, "/tmp/x.db", opts.SQLitePath)
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", opts.Postgres.DSN())
	assert.Equal(t, 7, opts.MaxOpenConns)
	assert.Equal(t, 3, opts.MaxIdleConns)
	assert.Equal(t, time.Minute, opts.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
}

func TestKeyConfigs(t *testing.T) {
	cfg := &config.Config{Encryption: config.EncryptionConfig{AESGCM: config.AESGCMConfig{
		Keys: []config.EncryptionKeyConfig{
			{Version: "key-v2", PassphraseEnv: "PASS", PassphraseSalt: "site-a"},
			{Version: "key-v1", Keyring: "entry", KeyringService: "svc"},
		},
	}}}

	keys := keyConfigs(cfg)
	require.Len(t, keys, 2)
	assert.Equal(t, "key-v2", keys[0].Version)
	assert.Equal(t, "PASS", keys[0].PassphraseEnv)
	assert.Equal(t, "site-a", keys[0].PassphraseSalt)
	assert.Equal(t, "entry", keys[1].KeyringUser)
	assert.Equal(t, "svc", keys[1].KeyringService)
}

func TestTenantRegistry(t *testing.T) {
	reg, err := tenantRegistry(&config.Config{Tenants: []config.TenantConfig{{ID: 1, Domain: "wso2.com"}}})
	require.NoError(t, err)

	id, err := reg.Lookup("wso2.com")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = reg.Lookup(tenant.SuperTenantDomain)
	require.NoError(t, err)
	assert.Equal(t, tenant.SuperTenantID, id)

	_, err = tenantRegistry(&config.Config{Tenants: []config.TenantConfig{{ID: 1, Domain: "a.com"}, {ID: 1, Domain: "b.com"}}})
	assert.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := run(t, "admin-pw\n", "hash-password", "--config", cfgPath)
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), hash)
	assert.NotContains(t, hash, "admin-pw")

	_, err = run(t, "", "hash-password", "--config", cfgPath)
	assert.Error(t, err)
}
