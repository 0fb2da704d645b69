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

package encryption

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseProvider is a trivial reversible provider for chain tests.
type reverseProvider struct {
	name      string
	failWrite bool
}

func (p *reverseProvider) Name() string { return p.name }

func (p *reverseProvider) Encrypt(plaintext []byte) (*EncryptedPayload, error) {
	if p.failWrite {
		return nil, errors.New("hsm offline")
	}
	out := make([]byte, len(plaintext))
	for i, b := range plaintext {
		out[len(plaintext)-1-i] = b
	}
	return &EncryptedPayload{Provider: p.name, KeyVersion: "k1", Ciphertext: out}, nil
}

func (p *reverseProvider) Decrypt(payload *EncryptedPayload) ([]byte, error) {
	if payload.KeyVersion != "k1" {
		return nil, errors.New("unknown key")
	}
	out := make([]byte, len(payload.Ciphertext))
	for i, b := range payload.Ciphertext {
		out[len(payload.Ciphertext)-1-i] = b
	}
	return out, nil
}

func (p *reverseProvider) HealthCheck() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewProviderManagerRequiresProvider(t *testing.T) {
	_, err := NewProviderManager(nil, testLogger())
	assert.Error(t, err)
}

func TestProviderChain(t *testing.T) {
	m, err := NewProviderManager([]EncryptionProvider{
		&reverseProvider{name: "primary"},
		&reverseProvider{name: "legacy"},
	}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "primary", m.GetPrimaryProvider().Name())

	token, err := m.EncryptAndEncode([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "enc:primary:v1:k1:Y2Jh", token)

	plaintext, err := m.DecodeAndDecrypt("enc:legacy:v1:k1:Y2Jh")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(plaintext))

	_, err = m.DecodeAndDecrypt("enc:legacy:v1:k9:Y2Jh")
	var failed *ErrDecryptionFailed
	assert.ErrorAs(t, err, &failed)

	assert.NoError(t, m.HealthCheck())
}

func TestEncryptFailure(t *testing.T) {
	m, err := NewProviderManager([]EncryptionProvider{&reverseProvider{name: "p", failWrite: true}}, testLogger())
	require.NoError(t, err)

	_, err = m.EncryptAndEncode([]byte("abc"))
	var failed *ErrEncryptionFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "p", failed.ProviderName)
	assert.NotContains(t, err.Error(), "abc")
}

func TestUnmarshalPayloadErrorOmitsToken(t *testing.T) {
	_, err := UnmarshalPayload("plaintext-password:b:c:d:e")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "plaintext-password")

	_, err = UnmarshalPayload("enc:aesgcm:v9-leak:key-v1:AAEC")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "v9-leak")
}

func TestUnmarshalPayload(t *testing.T) {
	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"valid", "enc:aesgcm:v1:key-v1:AAEC", true},
		{"too few parts", "enc:aesgcm:v1", false},
		{"wrong prefix", "raw:aesgcm:v1:key-v1:AAEC", false},
		{"wrong version", "enc:aesgcm:v2:key-v1:AAEC", false},
		{"bad base64", "enc:aesgcm:v1:key-v1:***", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := UnmarshalPayload(tt.token)
			if !tt.ok {
				var malformed *ErrMalformedToken
				assert.ErrorAs(t, err, &malformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "aesgcm", payload.Provider)
			assert.Equal(t, "key-v1", payload.KeyVersion)
			assert.Equal(t, []byte{0, 1, 2}, payload.Ciphertext)
			assert.Equal(t, tt.token, MarshalPayload(payload))
		})
	}
}
