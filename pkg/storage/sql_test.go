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
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestNewSQLiteStore_SchemaInitialization(t *testing.T) {
	store := newTestSQLiteStore(t)

	var version int
	err := store.db.Get(&version, "PRAGMA user_version")
	assert.NilError(t, err)
	assert.Equal(t, version, schemaVersion)

	var count int
	err = store.db.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='idn_secret'")
	assert.NilError(t, err)
	assert.Equal(t, count, 1)
	assert.Equal(t, store.Name(), "sqlite")
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "secrets.db")

	first, err := NewSQLiteStore(ctx, Options{SQLitePath: dbPath}, testLogger())
	assert.NilError(t, err)
	secret := newSecret(superTenant, "persisted")
	assert.NilError(t, first.Insert(ctx, secret))
	assert.NilError(t, first.Close())

	second, err := NewSQLiteStore(ctx, Options{SQLitePath: dbPath}, testLogger())
	assert.NilError(t, err)
	defer second.Close()

	got, err := second.FindByName(ctx, superTenant, "persisted")
	assert.NilError(t, err)
	assert.Equal(t, got.ID, secret.ID)
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), Options{}, testLogger())
	assert.ErrorContains(t, err, "sqlite path is required")
}

func TestNewPostgresStore_RequiresHost(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), Options{}, testLogger())
	assert.ErrorContains(t, err, "postgres host and database are required")
}

func TestPostgresOptions_DSN(t *testing.T) {
	dsn := PostgresOptions{Host: "db", Port: 5432, User: "u", Password: "p", Database: "secrets"}.DSN()
	assert.Equal(t, dsn, "host=db port=5432 user=u password=p dbname=secrets sslmode=disable")
}

func TestIsCommentOnly(t *testing.T) {
	assert.Assert(t, isCommentOnly("-- heading\n  -- more"))
	assert.Assert(t, !isCommentOnly("-- heading\nCREATE TABLE x (a INT)"))
}
