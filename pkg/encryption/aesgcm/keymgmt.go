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
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"

	"github.com/wso2/identity-secret-mgt/pkg/encryption"
)

const (
	// AESKeySize is the AES-256 key length in bytes.
	AESKeySize = 32

	// DefaultKeyringService is used when a key config leaves the service empty.
	DefaultKeyringService = "identity-secret-mgt"
)

// Argon2id parameters for passphrase keys. Changing any of them changes
// every derived key.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltLen      = 16
)

// KeyConfig describes one key version. Exactly one of FilePath, KeyringUser
// or PassphraseEnv is set.
type KeyConfig struct {
	Version string

	FilePath string

	KeyringService string
	KeyringUser    string

	PassphraseEnv string
	// PassphraseSalt seeds the Argon2id salt. Leave it empty only to keep
	// keys derived before it was introduced; an empty seed gives the same
	// key for the same passphrase on every deployment.
	PassphraseSalt string
}

// Key is loaded key material.
type Key struct {
	Version string
	Data    []byte
}

type keySource struct {
	name string
	set  func(KeyConfig) bool
	load func(*KeyManager, KeyConfig) ([]byte, error)
}

var keySources = []keySource{
	{"file", func(c KeyConfig) bool { return c.FilePath != "" }, (*KeyManager).readKeyFile},
	{"keyring", func(c KeyConfig) bool { return c.KeyringUser != "" }, func(_ *KeyManager, c KeyConfig) ([]byte, error) { return readKeyring(c) }},
	{"passphrase", func(c KeyConfig) bool { return c.PassphraseEnv != "" }, (*KeyManager).derivePassphrase},
}

func sourceOf(c KeyConfig) (keySource, bool) {
	for _, s := range keySources {
		if s.set(c) {
			return s, true
		}
	}
	return keySource{}, false
}

// KeyManager holds every configured key version. The first configured
// version is primary and is used for new encryptions.
type KeyManager struct {
	keys     map[string]*Key
	versions []string
	logger   *slog.Logger
}

// NewKeyManager loads every key in keyConfigs.
func NewKeyManager(keyConfigs []KeyConfig, logger *slog.Logger) (*KeyManager, error) {
	if len(keyConfigs) == 0 {
		return nil, errors.New("no encryption keys configured")
	}

	km := &KeyManager{keys: make(map[string]*Key, len(keyConfigs)), logger: logger}
	for i, cfg := range keyConfigs {
		switch {
		case cfg.Version == "":
			return nil, fmt.Errorf("key #%d: version is empty", i+1)
		case strings.Contains(cfg.Version, ":"):
			return nil, fmt.Errorf("key %q: version may not contain ':'", cfg.Version)
		case km.keys[cfg.Version] != nil:
			return nil, fmt.Errorf("key %q: version configured twice", cfg.Version)
		}

		src, ok := sourceOf(cfg)
		if !ok {
			return nil, fmt.Errorf("key %q: no source configured", cfg.Version)
		}
		data, err := src.load(km, cfg)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", cfg.Version, err)
		}
		if len(data) != AESKeySize {
			return nil, fmt.Errorf("key %q: %w", cfg.Version,
				&encryption.ErrInvalidKeySize{Expected: AESKeySize, Actual: len(data)})
		}

		km.keys[cfg.Version] = &Key{Version: cfg.Version, Data: data}
		km.versions = append(km.versions, cfg.Version)
		logger.Debug("Loaded encryption key",
			slog.String("key_version", cfg.Version),
			slog.String("source", src.name),
			slog.Bool("primary", i == 0))
	}

	logger.Info("Encryption keys loaded",
		slog.Int("count", len(km.versions)),
		slog.String("primary_key_version", km.versions[0]))
	return km, nil
}

func (km *KeyManager) readKeyFile(cfg KeyConfig) ([]byte, error) {
	info, err := os.Stat(cfg.FilePath)
	if err != nil {
		return nil, &encryption.ErrKeyNotFound{Source: cfg.FilePath}
	}
	if perm := info.Mode().Perm(); perm&0o004 != 0 {
		km.logger.Warn("Key file is world-readable",
			slog.String("key_version", cfg.Version),
			slog.String("file_path", cfg.FilePath),
			slog.String("permissions", perm.String()))
	}
	return os.ReadFile(cfg.FilePath)
}

func keyringService(service string) string {
	if service == "" {
		return DefaultKeyringService
	}
	return service
}

func readKeyring(cfg KeyConfig) ([]byte, error) {
	service := keyringService(cfg.KeyringService)
	encoded, err := keyring.Get(service, cfg.KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, &encryption.ErrKeyNotFound{Source: fmt.Sprintf("keyring %s/%s", service, cfg.KeyringUser)}
	}
	if err != nil {
		return nil, fmt.Errorf("keyring lookup: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("keyring entry %s/%s: %w", service, cfg.KeyringUser, err)
	}
	return data, nil
}

func (km *KeyManager) derivePassphrase(cfg KeyConfig) ([]byte, error) {
	passphrase := os.Getenv(cfg.PassphraseEnv)
	if passphrase == "" {
		return nil, &encryption.ErrKeyNotFound{Source: "$" + cfg.PassphraseEnv}
	}
	if cfg.PassphraseSalt == "" {
		km.logger.Warn("Passphrase key has no salt seed; the derived key is the same on every deployment",
			slog.String("key_version", cfg.Version))
	}
	return DeriveKey(passphrase, cfg.Version, cfg.PassphraseSalt), nil
}

// DeriveKey stretches passphrase into an AES-256 key with Argon2id. The salt
// is hashed from seed and the key version, so one passphrase gives a different
// key per version. An empty seed falls back to the service name.
func DeriveKey(passphrase, version, seed string) []byte {
	if seed == "" {
		seed = DefaultKeyringService
	}
	salt := sha256.Sum256([]byte(seed + "/" + version))
	return argon2.IDKey([]byte(passphrase), salt[:saltLen], argonTime, argonMemory, argonThreads, AESKeySize)
}

// StoreInKeyring saves key base64 encoded under service/user, the layout
// read back by a KeyConfig with KeyringUser set.
func StoreInKeyring(service, user string, key []byte) error {
	if len(key) != AESKeySize {
		return &encryption.ErrInvalidKeySize{Expected: AESKeySize, Actual: len(key)}
	}
	if err := keyring.Set(keyringService(service), user, base64.StdEncoding.EncodeToString(key)); err != nil {
		return fmt.Errorf("keyring store: %w", err)
	}
	return nil
}

// GetPrimaryKey returns the key new values are sealed with.
func (km *KeyManager) GetPrimaryKey() *Key {
	return km.keys[km.versions[0]]
}

// GetPrimaryVersion returns the version label of the primary key.
func (km *KeyManager) GetPrimaryVersion() string {
	return km.versions[0]
}

// GetKey returns the key for version.
func (km *KeyManager) GetKey(version string) (*Key, error) {
	if key, ok := km.keys[version]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("key version %q not loaded", version)
}

// Versions lists loaded key versions, primary first.
func (km *KeyManager) Versions() []string {
	return append([]string(nil), km.versions...)
}
