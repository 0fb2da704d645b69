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
	"fmt"
	"log/slog"
	"time"

	"github.com/wso2/identity-secret-mgt/pkg/metrics"
)

// CryptoOracle turns plaintext secret values into opaque tokens and back.
// Any error it returns is a crypto failure.
type CryptoOracle interface {
	EncryptAndEncode(plaintext []byte) (string, error)
	DecodeAndDecrypt(token string) ([]byte, error)
}

// EncryptionProvider is one cipher implementation behind the manager.
type EncryptionProvider interface {
	Name() string
	// Encrypt seals plaintext with the provider's active key.
	Encrypt(plaintext []byte) (*EncryptedPayload, error)
	// Decrypt opens a payload sealed by any key the provider still holds.
	Decrypt(payload *EncryptedPayload) ([]byte, error)
	HealthCheck() error
}

// ProviderManager routes encryption to the first provider and decryption to
// whichever provider a token names.
type ProviderManager struct {
	primary EncryptionProvider
	byName  map[string]EncryptionProvider
	order   []string
	logger  *slog.Logger
}

var _ CryptoOracle = (*ProviderManager)(nil)

// NewProviderManager health-checks every provider and builds the chain.
func NewProviderManager(providers []EncryptionProvider, logger *slog.Logger) (*ProviderManager, error) {
	if len(providers) == 0 {
		return nil, errors.New("no encryption providers configured")
	}

	m := &ProviderManager{
		primary: providers[0],
		byName:  make(map[string]EncryptionProvider, len(providers)),
		logger:  logger,
	}
	for _, p := range providers {
		if _, dup := m.byName[p.Name()]; dup {
			return nil, fmt.Errorf("encryption provider %q registered twice", p.Name())
		}
		m.byName[p.Name()] = p
		m.order = append(m.order, p.Name())
	}
	if err := m.HealthCheck(); err != nil {
		return nil, err
	}

	logger.Info("Encryption providers ready",
		slog.Any("providers", m.order),
		slog.String("primary_provider", m.primary.Name()))
	return m, nil
}

// observe records duration and outcome of one provider call.
func observe(op, provider string, start time.Time, err error) {
	metrics.CryptoOperationDurationSeconds.WithLabelValues(op, provider).Observe(time.Since(start).Seconds())
	metrics.CryptoOperationsTotal.WithLabelValues(op, provider, metrics.Status(err)).Inc()
}

// Encrypt seals plaintext with the primary provider.
func (m *ProviderManager) Encrypt(plaintext []byte) (*EncryptedPayload, error) {
	name := m.primary.Name()
	start := time.Now()
	payload, err := m.primary.Encrypt(plaintext)
	observe("encrypt", name, start, err)
	if err != nil {
		m.logger.Error("Encryption failed", slog.String("provider", name), slog.Any("error", err))
		return nil, &ErrEncryptionFailed{providerFault{ProviderName: name, Cause: err}}
	}
	return payload, nil
}

// Decrypt opens payload with the provider recorded in it.
func (m *ProviderManager) Decrypt(payload *EncryptedPayload) ([]byte, error) {
	if payload == nil {
		return nil, malformed("nil payload")
	}

	provider, ok := m.byName[payload.Provider]
	if !ok {
		m.logger.Error("Token references an unknown provider",
			slog.String("provider", payload.Provider),
			slog.String("key_version", payload.KeyVersion))
		metrics.CryptoOperationsTotal.WithLabelValues("decrypt", payload.Provider, "error").Inc()
		return nil, &ErrProviderNotFound{ProviderName: payload.Provider}
	}

	start := time.Now()
	plaintext, err := provider.Decrypt(payload)
	observe("decrypt", payload.Provider, start, err)
	if err != nil {
		m.logger.Error("Decryption failed",
			slog.String("provider", payload.Provider),
			slog.String("key_version", payload.KeyVersion),
			slog.Any("error", err))
		return nil, &ErrDecryptionFailed{providerFault{ProviderName: payload.Provider, Cause: err}}
	}
	return plaintext, nil
}

// EncryptAndEncode encrypts plaintext and renders it as a storable token.
func (m *ProviderManager) EncryptAndEncode(plaintext []byte) (string, error) {
	payload, err := m.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return MarshalPayload(payload), nil
}

// DecodeAndDecrypt parses a stored token and decrypts it.
func (m *ProviderManager) DecodeAndDecrypt(token string) ([]byte, error) {
	payload, err := UnmarshalPayload(token)
	if err != nil {
		return nil, err
	}
	return m.Decrypt(payload)
}

// HealthCheck runs every provider's self check in chain order.
func (m *ProviderManager) HealthCheck() error {
	for _, name := range m.order {
		if err := m.byName[name].HealthCheck(); err != nil {
			return fmt.Errorf("encryption provider %q unhealthy: %w", name, err)
		}
	}
	return nil
}

// GetPrimaryProvider returns the provider new values are sealed with.
func (m *ProviderManager) GetPrimaryProvider() EncryptionProvider {
	return m.primary
}
