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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

const (
	// TenantParam is the path parameter of tenant-qualified routes (/t/{tenant-domain}/...)
	TenantParam = "tenant"
	// TenantKey is the context key for storing the resolved tenant
	TenantKey = "tenant"
)

// TenantMiddleware resolves the tenant domain of the request path against the
// registry. Routes without the /t/{tenant-domain} prefix act on the super tenant.
// The tenant is attached to the request context with the tenant admin as user;
// authentication replaces the user when enabled.
func TenantMiddleware(registry *tenant.Registry, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		domain := c.Param(TenantParam)

		t, err := registry.Resolve(domain, tenant.SuperTenantAdmin)
		if err != nil {
			GetLogger(c, logger).Debug("unknown tenant domain", slog.String("tenant_domain", domain))
			AbortWithError(c, http.StatusNotFound, CodeUnknownTenant,
				"Tenant not found.", "The tenant domain "+domain+" is not registered.")
			return
		}

		setTenant(c, t)
		c.Next()
	}
}

func setTenant(c *gin.Context, t tenant.Context) {
	c.Set(TenantKey, t)
	c.Request = c.Request.WithContext(tenant.WithContext(c.Request.Context(), t))
}

func currentTenant(c *gin.Context) (tenant.Context, bool) {
	v, ok := c.Get(TenantKey)
	if !ok {
		return tenant.Context{}, false
	}
	t, ok := v.(tenant.Context)
	return t, ok
}
