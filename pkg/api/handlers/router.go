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
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/wso2/identity-secret-mgt/pkg/api/middleware"
	"github.com/wso2/identity-secret-mgt/pkg/config"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

// BasePath is the root of the secret management API. Tenant-qualified
// requests prefix it with /t/{tenant-domain}.
const BasePath = "/api/server/v1"

// RouterOptions configures the HTTP surface
type RouterOptions struct {
	Tenants           *tenant.Registry
	Auth              config.BasicAuth
	ResolutionEnabled bool
	ResolveRateLimit  config.RateLimitConfig
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(s *SecretServer, opts RouterOptions, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.CorrelationIDMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", s.HealthCheck)

	var limiter *middleware.RateLimiter
	if opts.ResolveRateLimit.Enabled {
		limiter = middleware.NewRateLimiter(opts.ResolveRateLimit, logger)
	}

	for _, prefix := range []string{BasePath, "/t/:" + middleware.TenantParam + BasePath} {
		api := router.Group(prefix,
			middleware.TenantMiddleware(opts.Tenants, logger),
			middleware.BasicAuthMiddleware(opts.Auth, logger),
		)

		api.GET("/secrets", s.ListSecrets)
		api.POST("/secrets", s.AddSecret)
		api.GET("/secrets/name/:name", s.GetSecret)
		api.PUT("/secrets/name/:name", s.ReplaceSecret)
		api.DELETE("/secrets/name/:name", s.DeleteSecret)
		api.GET("/secrets/id/:id", s.GetSecretByID)
		api.DELETE("/secrets/id/:id", s.DeleteSecretByID)

		if !opts.ResolutionEnabled {
			continue
		}
		resolved := api.Group("/resolved-secrets")
		if limiter != nil {
			resolved.Use(limiter.Middleware())
		}
		resolved.GET("/name/:name", s.ResolveSecret)
		resolved.GET("/id/:id", s.ResolveSecretByID)
	}

	return router
}
