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

import "errors"

// Common storage errors - implementation agnostic
var (
	// ErrNotFound is returned when a secret is not found
	ErrNotFound = errors.New("secret not found")

	// ErrConflict is returned when a secret with the same name or id already exists in the tenant
	ErrConflict = errors.New("secret already exists")

	// ErrDatabaseLocked is returned when the database is locked (SQLite specific)
	ErrDatabaseLocked = errors.New("database is locked")

	// ErrDatabaseUnavailable is returned when the database storage is unavailable
	ErrDatabaseUnavailable = errors.New("database storage is unavailable")

	// ErrUnknownBackend is returned when no factory is registered for a backend name
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDatabaseUnavailableError(err error) bool {
	return errors.Is(err, ErrDatabaseUnavailable)
}

// errorType is the metric label for a storage error.
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFoundError(err):
		return "not_found"
	case IsConflictError(err):
		return "conflict"
	case errors.Is(err, ErrDatabaseLocked):
		return "locked"
	case IsDatabaseUnavailableError(err):
		return "unavailable"
	default:
		return "internal"
	}
}
