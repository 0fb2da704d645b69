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
	"encoding/base64"
	"strings"
)

// Stored tokens look like enc:<provider>:v1:<key-version>:<base64 ciphertext>.
const (
	tokenPrefix  = "enc"
	tokenVersion = "v1"
	tokenSep     = ":"
	tokenFields  = 5
)

// EncryptedPayload is a sealed value plus the metadata needed to open it.
type EncryptedPayload struct {
	Provider   string
	KeyVersion string
	// Ciphertext is provider specific. For AES-GCM it is nonce||sealed||tag.
	Ciphertext []byte
}

// MarshalPayload renders a payload as a storable token.
func MarshalPayload(payload *EncryptedPayload) string {
	return strings.Join([]string{
		tokenPrefix,
		payload.Provider,
		tokenVersion,
		payload.KeyVersion,
		base64.StdEncoding.EncodeToString(payload.Ciphertext),
	}, tokenSep)
}

// UnmarshalPayload parses a token produced by MarshalPayload.
func UnmarshalPayload(token string) (*EncryptedPayload, error) {
	fields := strings.SplitN(token, tokenSep, tokenFields)
	switch {
	case len(fields) != tokenFields:
		return nil, malformed("%d of %d fields present", len(fields), tokenFields)
	case fields[0] != tokenPrefix:
		return nil, malformed("field 1 is not %q", tokenPrefix)
	case fields[2] != tokenVersion:
		return nil, malformed("field 3 is not %q", tokenVersion)
	}

	raw, err := base64.StdEncoding.DecodeString(fields[4])
	if err != nil {
		return nil, malformed("ciphertext is not base64")
	}
	return &EncryptedPayload{Provider: fields[1], KeyVersion: fields[3], Ciphertext: raw}, nil
}
