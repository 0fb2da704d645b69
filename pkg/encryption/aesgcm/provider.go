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

package aesgcm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wso2/identity-secret-mgt/pkg/encryption"
)

const (
	// ProviderName is the provider field written into tokens.
	ProviderName = "aesgcm"

	// NonceSize is the standard 96-bit GCM nonce.
	NonceSize = 12
)

var selfTestValue = []byte("aesgcm-self-test")

// AESGCMProvider seals values with AES-256-GCM. The key version is used as
// additional authenticated data so a ciphertext cannot be replayed under a
// different version label.
type AESGCMProvider struct {
	keys    *KeyManager
	aeads   map[string]cipher.AEAD
	primary string
	logger  *slog.Logger
}

var _ encryption.EncryptionProvider = (*AESGCMProvider)(nil)

// NewAESGCMProvider loads keyConfigs and prepares one AEAD per key version.
func NewAESGCMProvider(keyConfigs []KeyConfig, logger *slog.Logger) (*AESGCMProvider, error) {
	keys, err := NewKeyManager(keyConfigs, logger)
	if err != nil {
		return nil, fmt.Errorf("loading AES-GCM keys: %w", err)
	}

	p := &AESGCMProvider{
		keys:    keys,
		aeads:   make(map[string]cipher.AEAD, len(keyConfigs)),
		primary: keys.GetPrimaryVersion(),
		logger:  logger,
	}
	for _, version := range keys.Versions() {
		key, _ := keys.GetKey(version)
		if p.aeads[version], err = newGCM(key.Data); err != nil {
			return nil, fmt.Errorf("key %s: %w", version, err)
		}
	}

	logger.Info("AES-GCM provider initialized", slog.String("primary_key_version", p.primary))
	return p, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

func (p *AESGCMProvider) Name() string { return ProviderName }

// Encrypt seals plaintext with the primary key under a fresh random nonce.
func (p *AESGCMProvider) Encrypt(plaintext []byte) (*encryption.EncryptedPayload, error) {
	aead := p.aeads[p.primary]

	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}

	return &encryption.EncryptedPayload{
		Provider:   ProviderName,
		KeyVersion: p.primary,
		Ciphertext: aead.Seal(nonce, nonce, plaintext, []byte(p.primary)),
	}, nil
}

// Decrypt opens a payload with the key version it names.
func (p *AESGCMProvider) Decrypt(payload *encryption.EncryptedPayload) ([]byte, error) {
	aead, ok := p.aeads[payload.KeyVersion]
	if !ok {
		return nil, fmt.Errorf("unknown key version %q", payload.KeyVersion)
	}

	sealed := payload.Ciphertext
	if len(sealed) < NonceSize+aead.Overhead() {
		return nil, fmt.Errorf("ciphertext is %d bytes, shorter than nonce and tag", len(sealed))
	}

	plaintext, err := aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], []byte(payload.KeyVersion))
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return plaintext, nil
}

// HealthCheck seals and reopens a fixed value with the primary key.
func (p *AESGCMProvider) HealthCheck() error {
	key := p.keys.GetPrimaryKey()
	if key == nil {
		return errors.New("no primary key loaded")
	}
	if len(key.Data) != AESKeySize {
		return &encryption.ErrInvalidKeySize{Expected: AESKeySize, Actual: len(key.Data)}
	}

	sealed, err := p.Encrypt(selfTestValue)
	if err != nil {
		return fmt.Errorf("self-test encrypt: %w", err)
	}
	opened, err := p.Decrypt(sealed)
	if err != nil {
		return fmt.Errorf("self-test decrypt: %w", err)
	}
	if !bytes.Equal(opened, selfTestValue) {
		return errors.New("self-test round trip mismatch")
	}
	return nil
}
