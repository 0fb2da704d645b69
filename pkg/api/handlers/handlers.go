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
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wso2/identity-secret-mgt/pkg/api/middleware"
	"github.com/wso2/identity-secret-mgt/pkg/models"
	"github.com/wso2/identity-secret-mgt/pkg/secreterr"
)

const maxBodyBytes = 1 << 20

// SecretManager is the management surface the handlers call
type SecretManager interface {
	AddSecret(ctx context.Context, add *models.SecretAdd) (*models.SecretView, error)
	ReplaceSecret(ctx context.Context, add *models.SecretAdd) (*models.SecretView, error)
	GetSecret(ctx context.Context, name string) (*models.SecretView, error)
	GetSecretByID(ctx context.Context, id string) (*models.SecretView, error)
	DeleteSecret(ctx context.Context, name string) error
	DeleteSecretByID(ctx context.Context, id string) error
	GetSecrets(ctx context.Context) (*models.Secrets, error)
}

// SecretResolver is the resolution surface the handlers call
type SecretResolver interface {
	GetResolvedSecret(ctx context.Context, name string) (*models.ResolvedSecret, error)
	GetResolvedSecretByID(ctx context.Context, id string) (*models.ResolvedSecret, error)
}

// SecretServer serves the secret management REST API
type SecretServer struct {
	manager  SecretManager
	resolver SecretResolver
	parser   *Parser
	logger   *slog.Logger
}

// NewSecretServer creates the REST handlers over manager and resolver
func NewSecretServer(manager SecretManager, resolver SecretResolver, logger *slog.Logger) (*SecretServer, error) {
	parser, err := NewParser()
	if err != nil {
		return nil, err
	}
	return &SecretServer{
		manager:  manager,
		resolver: resolver,
		parser:   parser,
		logger:   logger,
	}, nil
}

// HealthCheck (GET /health)
func (s *SecretServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ListSecrets (GET /secrets)
func (s *SecretServer) ListSecrets(c *gin.Context) {
	list, err := s.manager.GetSecrets(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AddSecret (POST /secrets)
func (s *SecretServer) AddSecret(c *gin.Context) {
	req, ok := s.readRequest(c)
	if !ok {
		return
	}

	view, err := s.manager.AddSecret(c.Request.Context(), req.ToSecretAdd())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Location", c.Request.URL.Path+"/id/"+view.ID)
	c.JSON(http.StatusCreated, view)
}

// GetSecret (GET /secrets/name/{name})
func (s *SecretServer) GetSecret(c *gin.Context) {
	view, err := s.manager.GetSecret(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ReplaceSecret (PUT /secrets/name/{name})
func (s *SecretServer) ReplaceSecret(c *gin.Context) {
	name := c.Param("name")
	req, ok := s.readRequest(c)
	if !ok {
		return
	}
	if req.Name == "" {
		req.Name = name
	}
	if req.Name != name {
		s.writeError(c, secreterr.New(secreterr.ReasonInvalidInput,
			"secret name in the body does not match the path", "secret_name", name))
		return
	}

	view, err := s.manager.ReplaceSecret(c.Request.Context(), req.ToSecretAdd())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteSecret (DELETE /secrets/name/{name})
func (s *SecretServer) DeleteSecret(c *gin.Context) {
	if err := s.manager.DeleteSecret(c.Request.Context(), c.Param("name")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSecretByID (GET /secrets/id/{id})
func (s *SecretServer) GetSecretByID(c *gin.Context) {
	view, err := s.manager.GetSecretByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteSecretByID (DELETE /secrets/id/{id})
func (s *SecretServer) DeleteSecretByID(c *gin.Context) {
	if err := s.manager.DeleteSecretByID(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResolveSecret (GET /resolved-secrets/name/{name})
func (s *SecretServer) ResolveSecret(c *gin.Context) {
	resolved, err := s.resolver.GetResolvedSecret(c.Request.Context(), c.Param("name"))
	s.writeResolved(c, resolved, err)
}

// ResolveSecretByID (GET /resolved-secrets/id/{id})
func (s *SecretServer) ResolveSecretByID(c *gin.Context) {
	resolved, err := s.resolver.GetResolvedSecretByID(c.Request.Context(), c.Param("id"))
	s.writeResolved(c, resolved, err)
}

func (s *SecretServer) writeResolved(c *gin.Context, resolved *models.ResolvedSecret, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer resolved.Zero()

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, resolved)
}

func (s *SecretServer) readRequest(c *gin.Context) (*SecretRequest, bool) {
	log := middleware.GetLogger(c, s.logger)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Warn("Failed to read request body", slog.Any("error", err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(c, secreterr.New(secreterr.ReasonInvalidInput, "request body is too large"))
			return nil, false
		}
		s.writeError(c, secreterr.New(secreterr.ReasonInvalidInput, "failed to read request body"))
		return nil, false
	}

	req, err := s.parser.Parse(body, c.GetHeader("Content-Type"))
	if err != nil {
		log.Debug("Rejected secret request body", slog.String("reason", err.Error()))
		s.writeError(c, secreterr.New(secreterr.ReasonInvalidInput, err.Error()))
		return nil, false
	}
	return req, true
}

// writeError maps a classified error to its response. Server-side failures
// are logged here and described only by their stable text.
func (s *SecretServer) writeError(c *gin.Context, err error) {
	reason := secreterr.ReasonOf(err)
	d := secreterr.Describe(reason)

	description := d.Description
	if secreterr.IsClient(err) {
		description = err.Error()
	} else {
		middleware.GetLogger(c, s.logger).Error("Secret operation failed",
			slog.String("error_code", d.Code),
			slog.String("path", c.FullPath()),
			slog.Any("error", err))
	}

	middleware.AbortWithError(c, secreterr.HTTPStatus(err), d.Code, d.Message, description)
}
