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

package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType string
		body        string
		want        *SecretRequest
		wantField   string
	}{
		{
			name:        "json",
			contentType: "application/json; charset=utf-8",
			body:        `{"name":"s1","value":"v1","type":"t","description":"d"}`,
			want:        &SecretRequest{Name: "s1", Value: "v1", Type: "t", Description: "d"},
		},
		{
			name:        "yaml",
			contentType: "application/x-yaml",
			body:        "name: s1\nvalue: v1\n",
			want:        &SecretRequest{Name: "s1", Value: "v1"},
		},
		{
			name: "json without content type",
			body: `{"value":"v1"}`,
			want: &SecretRequest{Value: "v1"},
		},
		{
			name: "yaml without content type",
			body: "value: v1\ntype: t\n",
			want: &SecretRequest{Value: "v1", Type: "t"},
		},
		{
			name:        "numeric yaml value",
			contentType: "text/yaml",
			body:        "name: s1\nvalue: 12345\n",
			wantField:   "value",
		},
		{
			name:        "description too long",
			contentType: "application/json",
			body:        `{"value":"v","description":"` + longString(1024) + `"}`,
			wantField:   "description",
		},
		{
			name:        "array body",
			contentType: "application/json",
			body:        `["value"]`,
			wantField:   "body",
		},
		{
			name:        "null body",
			contentType: "application/json",
			body:        `null`,
			wantField:   "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse([]byte(tt.body), tt.contentType)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			var bodyErr *BodyError
			require.True(t, errors.As(err, &bodyErr))
			require.NotEmpty(t, bodyErr.Errors)
			assert.Equal(t, tt.wantField, bodyErr.Errors[0].Field)
		})
	}
}

func TestParser_DecodeErrorsOmitInput(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	_, err = p.Parse([]byte("hunter2-value"), "application/yaml")
	require.Error(t, err)
	assert.Equal(t, "body: failed to parse YAML at line 1", err.Error())

	_, err = p.Parse([]byte(`{"value":hunter2}`), "application/json")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.Contains(t, err.Error(), "offset")
}

func TestSecretRequest_ToSecretAdd(t *testing.T) {
	add := (&SecretRequest{Name: "s1", Value: "v1", Type: "t", Description: "d"}).ToSecretAdd()
	assert.Equal(t, "s1", add.Name)
	assert.Equal(t, []byte("v1"), add.Value)
	assert.Equal(t, "t", add.Type)
	assert.Equal(t, "d", add.Description)
}

func longString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
