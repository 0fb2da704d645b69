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

// Package secreterr classifies secret management failures into a client
// family (the caller must change the request) and a server family
// (infrastructure fault, possibly retryable).
package secreterr

import (
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

// Family is the fault partition an error belongs to.
type Family string

const (
	FamilyClient Family = "client"
	FamilyServer Family = "server"
)

// Reason is the machine-readable tag of an error.
type Reason string

const (
	ReasonNotFound      Reason = "not_found"
	ReasonDuplicateName Reason = "duplicate_name"
	ReasonInvalidInput  Reason = "invalid_input"
	ReasonDisabled      Reason = "disabled"

	ReasonCryptoFailure   Reason = "crypto_failure"
	ReasonStoreFailure    Reason = "store_failure"
	ReasonUnexpectedState Reason = "unexpected_state"
)

// Descriptor holds the stable, caller-facing details of a reason.
type Descriptor struct {
	Family      Family
	Code        string
	Message     string
	Description string
	Status      int
}

var descriptors = map[Reason]Descriptor{
	ReasonInvalidInput: {
		Family:      FamilyClient,
		Code:        "SECRETM-60001",
		Message:     "Invalid input.",
		Description: "The secret request contains missing or malformed fields.",
		Status:      http.StatusBadRequest,
	},
	ReasonDuplicateName: {
		Family:      FamilyClient,
		Code:        "SECRETM-60002",
		Message:     "Secret already exists.",
		Description: "A secret with the same name already exists in the tenant.",
		Status:      http.StatusConflict,
	},
	ReasonNotFound: {
		Family:      FamilyClient,
		Code:        "SECRETM-60003",
		Message:     "Secret not found.",
		Description: "No secret matches the given name or id in the tenant.",
		Status:      http.StatusNotFound,
	},
	ReasonDisabled: {
		Family:      FamilyClient,
		Code:        "SECRETM-60004",
		Message:     "Secret management is disabled.",
		Description: "Secret management is not enabled on this server.",
		Status:      http.StatusForbidden,
	},
	ReasonCryptoFailure: {
		Family:      FamilyServer,
		Code:        "SECRETM-65001",
		Message:     "Cryptographic operation failed.",
		Description: "The secret value could not be encrypted or decrypted.",
		Status:      http.StatusInternalServerError,
	},
	ReasonStoreFailure: {
		Family:      FamilyServer,
		Code:        "SECRETM-65002",
		Message:     "Secret store operation failed.",
		Description: "The secret store could not complete the operation.",
		Status:      http.StatusInternalServerError,
	},
	ReasonUnexpectedState: {
		Family:      FamilyServer,
		Code:        "SECRETM-65003",
		Message:     "Unexpected server state.",
		Description: "The server is not configured to serve secret operations.",
		Status:      http.StatusInternalServerError,
	},
}

// Describe returns the descriptor of a reason. Unknown reasons are reported
// as an unexpected server state.
func Describe(reason Reason) Descriptor {
	if d, ok := descriptors[reason]; ok {
		return d
	}
	return descriptors[ReasonUnexpectedState]
}

func builder(reason Reason, fields []any) oops.OopsErrorBuilder {
	d := Describe(reason)
	return oops.
		In(string(d.Family)).
		Code(string(reason)).
		With("error_code", d.Code).
		With(fields...)
}

// New creates an error tagged with reason. Fields are key/value pairs of
// non-sensitive context (secret name, tenant id, operation).
func New(reason Reason, msg string, fields ...any) error {
	return builder(reason, fields).New(msg)
}

// Newf is New with a formatted message.
func Newf(reason Reason, format string, args ...any) error {
	return builder(reason, nil).Errorf(format, args...)
}

// Wrap tags cause with reason. A nil cause yields nil.
func Wrap(cause error, reason Reason, msg string, fields ...any) error {
	if cause == nil {
		return nil
	}
	return builder(reason, fields).Wrapf(cause, "%s", msg)
}

// ReasonOf returns the reason of err, or "" when err is not classified.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := fmt.Sprint(oopsErr.Code())
	if code == "" || code == "<nil>" {
		return ""
	}
	return Reason(code)
}

// Is reports whether err carries reason.
func Is(err error, reason Reason) bool {
	return err != nil && ReasonOf(err) == reason
}

// FamilyOf returns the family of err. Unclassified non-nil errors belong to
// the server family.
func FamilyOf(err error) Family {
	if err == nil {
		return ""
	}
	reason := ReasonOf(err)
	if reason == "" {
		return FamilyServer
	}
	return Describe(reason).Family
}

// IsClient reports whether err is the caller's fault.
func IsClient(err error) bool {
	return FamilyOf(err) == FamilyClient
}

// IsServer reports whether err is an infrastructure fault.
func IsServer(err error) bool {
	return FamilyOf(err) == FamilyServer
}

// CodeOf returns the stable error code of err.
func CodeOf(err error) string {
	return Describe(ReasonOf(err)).Code
}

// HTTPStatus maps err to the response status surrounding layers should use.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Describe(ReasonOf(err)).Status
}

// FieldsOf returns the structured context attached to err.
func FieldsOf(err error) map[string]any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func IsNotFound(err error) bool      { return Is(err, ReasonNotFound) }
func IsDuplicateName(err error) bool { return Is(err, ReasonDuplicateName) }
func IsInvalidInput(err error) bool  { return Is(err, ReasonInvalidInput) }
func IsDisabled(err error) bool      { return Is(err, ReasonDisabled) }
func IsCryptoFailure(err error) bool { return Is(err, ReasonCryptoFailure) }
func IsStoreFailure(err error) bool  { return Is(err, ReasonStoreFailure) }
