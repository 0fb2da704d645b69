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

package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected slog.Level
	}{
		{"debug lowercase", "debug", slog.LevelDebug},
		{"debug uppercase", "DEBUG", slog.LevelDebug},
		{"info lowercase", "info", slog.LevelInfo},
		{"warn lowercase", "warn", slog.LevelWarn},
		{"warning lowercase", "warning", slog.LevelWarn},
		{"error uppercase", "ERROR", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ParseLevel(tt.level); result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, result, tt.expected)
			}
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter(&buf, Config{Level: "info", Format: "json"}).Info("hello", slog.String("secret_name", "s1"))
	if !strings.Contains(buf.String(), `"secret_name":"s1"`) {
		t.Errorf("json output = %s", buf.String())
	}

	buf.Reset()
	NewLoggerWithWriter(&buf, Config{Level: "info", Format: "TEXT"}).Info("hello", slog.String("secret_name", "s1"))
	if !strings.Contains(buf.String(), "secret_name=s1") {
		t.Errorf("text output = %s", buf.String())
	}

	buf.Reset()
	NewLoggerWithWriter(&buf, Config{Level: "warn"}).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %s", buf.String())
	}

	if NewLogger(Config{}) == nil {
		t.Error("NewLogger() returned nil")
	}
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(empty) = %q", got)
	}

	ctx := WithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationID(ctx); got != "abc-123" {
		t.Errorf("CorrelationID() = %q", got)
	}

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	FromContext(ctx, base).Info("op")
	if !strings.Contains(buf.String(), `"correlation_id":"abc-123"`) {
		t.Errorf("log output missing correlation id: %s", buf.String())
	}

	if FromContext(context.Background(), base) != base {
		t.Error("FromContext without id should return the base logger")
	}
}
