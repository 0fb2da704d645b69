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

import "fmt"

// providerFault is the common shape of errors raised while a provider was
// running. The cause is wrapped so callers can match on it.
type providerFault struct {
	ProviderName string
	Cause        error
}

func (f providerFault) describe(op string) string {
	return fmt.Sprintf("%s via %q: %v", op, f.ProviderName, f.Cause)
}

func (f providerFault) Unwrap() error { return f.Cause }

type (
	// ErrEncryptionFailed is returned when the primary provider cannot seal a value.
	ErrEncryptionFailed struct{ providerFault }

	// ErrDecryptionFailed is returned when a provider rejects a payload it owns.
	ErrDecryptionFailed struct{ providerFault }
)

func (e *ErrEncryptionFailed) Error() string { return e.describe("encrypt") }
func (e *ErrDecryptionFailed) Error() string { return e.describe("decrypt") }

// ErrProviderNotFound means a token names a provider that is not configured.
type ErrProviderNotFound struct {
	ProviderName string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q is not configured", e.ProviderName)
}

// ErrMalformedToken means a stored value does not parse as an envelope.
type ErrMalformedToken struct {
	Reason string
}

func (e *ErrMalformedToken) Error() string {
	return "malformed token: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &ErrMalformedToken{Reason: fmt.Sprintf(format, args...)}
}

// ErrInvalidKeySize means key material has the wrong length for the cipher.
type ErrInvalidKeySize struct {
	Expected int
	Actual   int
}

func (e *ErrInvalidKeySize) Error() string {
	return fmt.Sprintf("key is %d bytes, want %d", e.Actual, e.Expected)
}

// ErrKeyNotFound means the configured key source produced nothing.
type ErrKeyNotFound struct {
	Source string
}

func (e *ErrKeyNotFound) Error() string {
	return "no key material at " + e.Source
}
