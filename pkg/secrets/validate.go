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

package secrets

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/wso2/identity-secret-mgt/pkg/models"
)

const (
	// DefaultMaxNameLength is the default upper bound of a secret name
	DefaultMaxNameLength = 255

	// DefaultMaxValueSize is the default maximum secret value size (10KB)
	DefaultMaxValueSize = 10 * 1024

	// MaxTypeLength bounds the optional type tag
	MaxTypeLength = 255

	// MaxDescriptionLength bounds the optional description
	MaxDescriptionLength = 1023
)

var secretNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidationError describes one rejected input field
type ValidationError struct {
	Field   string
	Message string
}

// Limits bounds the size of secret inputs
type Limits struct {
	MaxNameLength int
	MaxValueSize  int
}

// DefaultLimits returns the limits applied when none are configured
func DefaultLimits() Limits {
	return Limits{
		MaxNameLength: DefaultMaxNameLength,
		MaxValueSize:  DefaultMaxValueSize,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxNameLength <= 0 {
		l.MaxNameLength = DefaultMaxNameLength
	}
	if l.MaxValueSize <= 0 {
		l.MaxValueSize = DefaultMaxValueSize
	}
	return l
}

func (l Limits) validateName(name string) []ValidationError {
	switch {
	case name == "":
		return []ValidationError{{Field: "name", Message: "Secret name is required"}}
	case len(name) > l.MaxNameLength:
		return []ValidationError{{Field: "name", Message: fmt.Sprintf("Secret name must be at most %d characters", l.MaxNameLength)}}
	case !secretNamePattern.MatchString(name):
		return []ValidationError{{Field: "name", Message: "Secret name may only contain letters, digits, dots, hyphens and underscores"}}
	}
	return nil
}

// validateAdd checks the input of add and replace operations
func (l Limits) validateAdd(add *models.SecretAdd) []ValidationError {
	if add == nil {
		return []ValidationError{{Field: "secret", Message: "Secret input is required"}}
	}

	errs := l.validateName(add.Name)

	if len(add.Value) == 0 {
		errs = append(errs, ValidationError{Field: "value", Message: "Secret value is required"})
	} else if len(add.Value) > l.MaxValueSize {
		errs = append(errs, ValidationError{Field: "value", Message: fmt.Sprintf("Secret value must be at most %d bytes", l.MaxValueSize)})
	}

	if utf8.RuneCountInString(add.Type) > MaxTypeLength {
		errs = append(errs, ValidationError{Field: "type", Message: fmt.Sprintf("Secret type must be at most %d characters", MaxTypeLength)})
	}
	if utf8.RuneCountInString(add.Description) > MaxDescriptionLength {
		errs = append(errs, ValidationError{Field: "description", Message: fmt.Sprintf("Secret description must be at most %d characters", MaxDescriptionLength)})
	}

	return errs
}

func joinValidationErrors(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for i, e := range errs {
		parts = append(parts, fmt.Sprintf("%d. %s: %s", i+1, e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}
