package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func findEntry(logs *observer.ObservedLogs, message string) (map[string]interface{}, bool) {
	for _, e := range logs.All() {
		if e.Message == message {
			return e.ContextMap(), true
		}
	}
	return nil, false
}

// Request logs carry method, path, user and timing but never the query
// string, which holds e-mail and ID number on appointment lookups
func TestProperty_RequestLogging(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("request log has required fields and no query string", prop.ForAll(
		func(method, path, userID, idNumber string) bool {
			core, logs := observer.New(zapcore.InfoLevel)

			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(RequestLoggingMiddleware(zap.New(core)))
			router.Handle(method, path, func(c *gin.Context) {
				if userID != "" {
					c.Set("user_id", userID)
				}
				c.Status(http.StatusOK)
			})

			target := fmt.Sprintf("%s?email=someone%%40example.com&id_number=%s", path, idNumber)
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, target, nil))

			fields, ok := findEntry(logs, "Request completed")
			if !ok {
				t.Logf("request log entry not found")
				return false
			}

			wantUser := userID
			if wantUser == "" {
				wantUser = "anonymous"
			}
			if fields["method"] != method || fields["path"] != path || fields["user_id"] != wantUser {
				t.Logf("unexpected fields: %v", fields)
				return false
			}
			for _, key := range []string{"status", "duration", "timestamp"} {
				if _, ok := fields[key]; !ok {
					t.Logf("%s field missing", key)
					return false
				}
			}
			for key, v := range fields {
				if s, ok := v.(string); ok && (strings.Contains(s, idNumber) || strings.Contains(s, "example.com")) {
					t.Logf("query data leaked into %s: %q", key, s)
					return false
				}
			}
			return true
		},
		gen.OneConstOf(http.MethodGet, http.MethodPost, http.MethodPatch),
		gen.OneConstOf("/api/appointments/query/", "/api/assessments/results/", "/health"),
		gen.OneGenOf(gen.Const(""), gen.Identifier()),
		gen.RegexMatch(`^[A-Z][12][0-9]{8}$`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Errors attached to the context are logged with a stack trace and the
// request ID the client sent
func TestProperty_ErrorLoggingDetail(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("errors are logged with stack trace and request id", prop.ForAll(
		func(message, path, requestID string) bool {
			core, logs := observer.New(zapcore.ErrorLevel)

			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(RequestIDMiddleware(), ErrorLoggingMiddleware(zap.New(core)))
			router.GET(path, func(c *gin.Context) {
				_ = c.Error(errors.New(message))
				c.Status(http.StatusInternalServerError)
			})

			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set(requestIDHeader, requestID)
			router.ServeHTTP(httptest.NewRecorder(), req)

			fields, ok := findEntry(logs, "Request error occurred")
			if !ok {
				t.Logf("error log entry not found")
				return false
			}
			if fields["error"] != message || fields["path"] != path || fields["request_id"] != requestID {
				t.Logf("unexpected fields: %v", fields)
				return false
			}
			_, hasStack := fields["stack_trace"]
			return hasStack
		},
		gen.AlphaString(),
		gen.OneConstOf("/api/appointments/query/", "/api/therapists/profiles/", "/api/assessments/tests/"),
		gen.Identifier(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
