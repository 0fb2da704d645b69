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

package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var errPasswordMismatch = errors.New("password mismatch")

// Parameters used by HashPassword.
const (
	hashMemory  = 64 * 1024
	hashTime    = 3
	hashThreads = 4
	hashSaltLen = 16
	hashKeyLen  = 32
)

// HashPassword returns an Argon2id hash of password in the form accepted for
// users configured with password_hashed = true.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, hashTime, hashMemory, hashThreads, hashKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, hashMemory, hashTime, hashThreads,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key)), nil
}

// verifyPassword checks password against a PHC-style Argon2id string or a
// bcrypt hash.
func verifyPassword(stored, password string) error {
	switch {
	case strings.HasPrefix(stored, "$argon2id$"):
		return verifyArgon2id(stored, password)
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	default:
		return errors.New("unrecognised password hash")
	}
}

// argon2Hash is a decoded $argon2id$v=19$m=<kib>,t=<iter>,p=<lanes>$<salt>$<key> string.
type argon2Hash struct {
	memory, time uint32
	threads      uint8
	salt, key    []byte
}

func parseArgon2id(encoded string) (*argon2Hash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 {
		return nil, errors.New("argon2id hash must have 6 '$' separated fields")
	}

	var v int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &v); err != nil || v != argon2.Version {
		return nil, fmt.Errorf("argon2id version %q not supported", fields[2])
	}

	var h argon2Hash
	var lanes uint32
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &lanes); err != nil {
		return nil, fmt.Errorf("argon2id parameters %q: %w", fields[3], err)
	}
	if lanes == 0 || lanes > 255 {
		return nil, fmt.Errorf("argon2id parallelism %d out of range", lanes)
	}
	h.threads = uint8(lanes)

	var err error
	if h.salt, err = unpadded(fields[4]); err != nil {
		return nil, fmt.Errorf("argon2id salt: %w", err)
	}
	if h.key, err = unpadded(fields[5]); err != nil {
		return nil, fmt.Errorf("argon2id key: %w", err)
	}
	return &h, nil
}

func verifyArgon2id(encoded, password string) error {
	h, err := parseArgon2id(encoded)
	if err != nil {
		return err
	}
	derived := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	if subtle.ConstantTimeCompare(derived, h.key) != 1 {
		return errPasswordMismatch
	}
	return nil
}

// unpadded decodes base64 with or without padding.
func unpadded(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
