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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/wso2/identity-secret-mgt/pkg/models"
)

//go:embed secret_request.schema.json
var secretRequestSchema []byte

// SecretRequest is the body of add and replace requests
type SecretRequest struct {
	Name        string `json:"name" yaml:"name"`
	Value       string `json:"value" yaml:"value"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ToSecretAdd converts the request into the manager input
func (r *SecretRequest) ToSecretAdd() *models.SecretAdd {
	return &models.SecretAdd{
		Name:        r.Name,
		Value:       []byte(r.Value),
		Type:        r.Type,
		Description: r.Description,
	}
}

// FieldError is one schema violation of a request body
type FieldError struct {
	Field   string
	Message string
}

// BodyError reports a body that could not be parsed or failed the schema
type BodyError struct {
	Errors []FieldError
}

func (e *BodyError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(parts, "; ")
}

// Parser decodes secret request bodies given as JSON or YAML and checks them
// against the request schema.
type Parser struct {
	schema *gojsonschema.Schema
}

// NewParser compiles the embedded request schema
func NewParser() (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(secretRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile secret request schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse decodes data according to contentType. Unknown or missing content
// types are tried as JSON first, then YAML.
func (p *Parser) Parse(data []byte, contentType string) (*SecretRequest, error) {
	doc, err := decodeDocument(data, mediaType(contentType))
	if err != nil {
		return nil, &BodyError{Errors: []FieldError{{Field: "body", Message: err.Error()}}}
	}

	result, err := p.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &BodyError{Errors: []FieldError{{Field: "body", Message: err.Error()}}}
	}
	if !result.Valid() {
		var fieldErrs []FieldError
		for _, re := range result.Errors() {
			field := strings.TrimPrefix(re.Field(), "(root).")
			if field == "(root)" {
				field = "body"
			}
			fieldErrs = append(fieldErrs, FieldError{Field: field, Message: re.Description()})
		}
		return nil, &BodyError{Errors: fieldErrs}
	}

	// The schema guarantees every present property is a string
	req := &SecretRequest{}
	req.Name, _ = doc["name"].(string)
	req.Value, _ = doc["value"].(string)
	req.Type, _ = doc["type"].(string)
	req.Description, _ = doc["description"].(string)
	return req, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

func decodeDocument(data []byte, mt string) (map[string]any, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("request body is empty")
	}

	switch mt {
	case "application/json":
		return parseJSON(data)
	case "application/yaml", "application/x-yaml", "text/yaml":
		return parseYAML(data)
	default:
		if doc, err := parseJSON(data); err == nil {
			return doc, nil
		}
		if doc, err := parseYAML(data); err == nil {
			return doc, nil
		}
		return nil, errors.New("failed to parse body as JSON or YAML")
	}
}

func parseJSON(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, jsonSyntaxError(err)
	}
	if doc == nil {
		return nil, errors.New("request body must be an object")
	}
	return doc, nil
}

func parseYAML(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, yamlSyntaxError(err)
	}
	if doc == nil {
		return nil, errors.New("request body must be an object")
	}
	return doc, nil
}

// jsonSyntaxError and yamlSyntaxError keep only the position of a decode
// failure. The decoder messages quote the input, which may be the value.
func jsonSyntaxError(err error) error {
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return fmt.Errorf("failed to parse JSON at offset %d", syntax.Offset)
	}
	return errors.New("failed to parse JSON: request body must be an object")
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func yamlSyntaxError(err error) error {
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		return fmt.Errorf("failed to parse YAML at line %s", m[1])
	}
	return errors.New("failed to parse YAML")
}
