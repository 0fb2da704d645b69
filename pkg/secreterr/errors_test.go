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

package secreterr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilies(t *testing.T) {
	tests := []struct {
		reason Reason
		family Family
		status int
		code   string
	}{
		{ReasonInvalidInput, FamilyClient, http.StatusBadRequest, "SECRETM-60001"},
		{ReasonDuplicateName, FamilyClient, http.StatusConflict, "SECRETM-60002"},
		{ReasonNotFound, FamilyClient, http.StatusNotFound, "SECRETM-60003"},
		{ReasonDisabled, FamilyClient, http.StatusForbidden, "SECRETM-60004"},
		{ReasonCryptoFailure, FamilyServer, http.StatusInternalServerError, "SECRETM-65001"},
		{ReasonStoreFailure, FamilyServer, http.StatusInternalServerError, "SECRETM-65002"},
		{ReasonUnexpectedState, FamilyServer, http.StatusInternalServerError, "SECRETM-65003"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			err := New(tt.reason, "boom", "secret_name", "sample-secret1")
			require.Error(t, err)
			assert.Equal(t, tt.reason, ReasonOf(err))
			assert.Equal(t, tt.family, FamilyOf(err))
			assert.Equal(t, tt.status, HTTPStatus(err))
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Equal(t, tt.family == FamilyClient, IsClient(err))
			assert.Equal(t, tt.family == FamilyServer, IsServer(err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Wrap(cause, ReasonStoreFailure, "failed to insert secret")

	require.Error(t, err)
	assert.True(t, IsStoreFailure(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to insert secret")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, ReasonStoreFailure, "ignored"))
}

func TestUnclassifiedErrorsAreServerFaults(t *testing.T) {
	err := fmt.Errorf("plain failure")

	assert.Equal(t, Reason(""), ReasonOf(err))
	assert.True(t, IsServer(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Equal(t, "SECRETM-65003", CodeOf(err))
}

func TestNilError(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(nil))
	assert.Equal(t, Family(""), FamilyOf(nil))
	assert.False(t, IsClient(nil))
	assert.False(t, IsServer(nil))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}

func TestFieldsOf(t *testing.T) {
	err := New(ReasonNotFound, "secret not found", "secret_name", "db-password", "tenant_id", -1234)

	fields := FieldsOf(err)
	assert.Equal(t, "db-password", fields["secret_name"])
	assert.Equal(t, -1234, fields["tenant_id"])
	assert.Equal(t, "SECRETM-60003", fields["error_code"])
}

func TestNewf(t *testing.T) {
	err := Newf(ReasonInvalidInput, "secret name must not exceed %d characters", 255)
	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "255")
}
