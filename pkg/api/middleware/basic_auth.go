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
	"crypto/subtle"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wso2/identity-secret-mgt/pkg/config"
	"github.com/wso2/identity-secret-mgt/pkg/metrics"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

// AuthUserKey is the context key for the authenticated username
const AuthUserKey = "auth_user"

// BasicAuthMiddleware authenticates requests against the configured users.
// Every user belongs to one tenant domain and may only act on that tenant.
// Plain-text passwords and Argon2id or bcrypt hashes (PasswordHashed) are supported.
// Must run after TenantMiddleware.
func BasicAuthMiddleware(cfg config.BasicAuth, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}
		log := GetLogger(c, logger)

		username, password, ok := c.Request.BasicAuth()
		if !ok {
			unauthorized(c, "missing_credentials")
			return
		}
		matched, reason := authenticate(cfg.Users, username, password)
		if matched == nil {
			log.Debug("Basic authentication rejected", slog.String("user", username), slog.String("reason", reason))
			unauthorized(c, reason)
			return
		}

		t, ok := currentTenant(c)
		if !ok {
			t = tenant.Super(tenant.SuperTenantAdmin)
		}
		userDomain := matched.TenantDomain
		if userDomain == "" {
			userDomain = tenant.SuperTenantDomain
		}
		if userDomain != t.Domain {
			metrics.AuthFailuresTotal.WithLabelValues("tenant_mismatch").Inc()
			log.Warn("user is not a member of the requested tenant",
				slog.String("user", matched.Username),
				slog.String("tenant_domain", t.Domain))
			AbortWithError(c, http.StatusForbidden, CodeForbidden,
				"Access denied.", "The user is not allowed to access secrets of this tenant.")
			return
		}

		t.Username = matched.Username
		setTenant(c, t)
		c.Set(AuthUserKey, matched.Username)
		c.Set(LoggerKey, log.With(slog.String("auth_user", matched.Username)))

		c.Next()
	}
}

func unauthorized(c *gin.Context, reason string) {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	c.Header("WWW-Authenticate", `Basic realm="Restricted"`)
	AbortWithError(c, http.StatusUnauthorized, CodeUnauthorized,
		"Unauthorized.", "Valid credentials are required to access this resource.")
}

// authenticate returns the configured user matching the credentials, or nil
// and the failure reason used as the auth_failures metric label.
func authenticate(users []config.AuthUser, username, password string) (*config.AuthUser, string) {
	idx := slices.IndexFunc(users, func(u config.AuthUser) bool {
		return strings.EqualFold(u.Username, username)
	})
	if idx < 0 {
		return nil, "unknown_user"
	}
	u := &users[idx]

	var ok bool
	if u.PasswordHashed {
		ok = verifyPassword(u.Password, password) == nil
	} else {
		ok = subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
	}
	if !ok {
		return nil, "password_mismatch"
	}
	return u, ""
}
