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
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wso2/identity-secret-mgt/pkg/config"
	"github.com/wso2/identity-secret-mgt/pkg/metrics"
)

// RateLimiter keeps one token bucket per tenant
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   *slog.Logger
}

// NewRateLimiter creates a per-tenant limiter from the resolution rate limit config
func NewRateLimiter(cfg config.RateLimitConfig, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[int]*rate.Limiter),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) limiter(tenantID int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[tenantID]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[tenantID] = l
	}
	return l
}

// Middleware rejects requests of a tenant that exhausted its bucket with 429.
// Must run after TenantMiddleware.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := currentTenant(c)
		if !ok {
			c.Next()
			return
		}

		if !rl.limiter(t.ID).Allow() {
			metrics.RateLimitedRequestsTotal.WithLabelValues(t.Domain).Inc()
			GetLogger(c, rl.logger).Warn("rate limit exceeded", slog.String("tenant_domain", t.Domain))

			retryAfter := 1
			if rl.limit > 0 {
				retryAfter = int(math.Ceil(1 / float64(rl.limit)))
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, http.StatusTooManyRequests, CodeTooManyRequests,
				"Too many requests.", "The tenant exceeded the secret resolution rate limit.")
			return
		}

		c.Next()
	}
}
