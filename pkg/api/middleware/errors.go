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

	"github.com/wso2/identity-secret-mgt/pkg/metrics"
)

// Error codes raised by the HTTP layer itself. Secret operation failures carry
// the codes of pkg/secreterr.
const (
	CodeUnauthorized    = "SECRETM-60101"
	CodeForbidden       = "SECRETM-60102"
	CodeUnknownTenant   = "SECRETM-60103"
	CodeTooManyRequests = "SECRETM-60104"
	CodeInternal        = "SECRETM-65101"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	TraceID     string `json:"traceId,omitempty"`
}

// AbortWithError writes an ErrorResponse carrying the request correlation ID
// and stops the handler chain.
func AbortWithError(c *gin.Context, status int, code, message, description string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:        code,
		Message:     message,
		Description: description,
		TraceID:     GetCorrelationID(c),
	})
}

// ErrorHandlingMiddleware recovers from panics and returns a 500 response
func ErrorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				metrics.PanicRecoveriesTotal.WithLabelValues("http").Inc()

				log := GetLogger(c, logger)
				log.Error("Panic recovered",
					slog.Any("error", err),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
				)

				AbortWithError(c, http.StatusInternalServerError, CodeInternal,
					"Internal server error.", "The server failed to process the request.")
			}
		}()

		c.Next()
	}
}
