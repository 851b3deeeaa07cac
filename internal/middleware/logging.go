package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// requestFields describes the request without its query string, since
// appointment lookups may carry identity data there
func requestFields(c *gin.Context) []zap.Field {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
	}
	if requestID := c.GetString("request_id"); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return fields
}

// RequestLoggingMiddleware logs every request once it has been served
func RequestLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		// set by AuthMiddleware further down the chain
		userID := c.GetString("user_id")
		if userID == "" {
			userID = "anonymous"
		}

		status := c.Writer.Status()
		fields := append(requestFields(c),
			zap.String("user_id", userID),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(startTime)),
			zap.Time("timestamp", startTime),
		)

		switch {
		case status >= 500:
			logger.Error("Request completed with server error", fields...)
		case status >= 400:
			logger.Warn("Request completed with client error", fields...)
		default:
			logger.Info("Request completed", fields...)
		}
	}
}

// ErrorLoggingMiddleware logs errors attached with c.Error, with stack traces and request context
func ErrorLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, err := range c.Errors {
			fields := append(requestFields(c),
				zap.Error(err.Err),
				zap.Uint64("error_type", uint64(err.Type)),
				zap.Stack("stack_trace"),
			)
			logger.Error("Request error occurred", fields...)
		}
	}
}

// RecoveryMiddleware turns panics into a 500 INTERNAL_ERROR response
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := append(requestFields(c),
					zap.Any("error", err),
					zap.Stack("stack_trace"),
				)
				logger.Error("Panic recovered", fields...)

				c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{
					Code:    api.ErrorCodeInternal,
					Message: "Internal server error",
				})
			}
		}()

		c.Next()
	}
}

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one,
// and echoes it on the response
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// BodyLimitMiddleware caps request bodies at maxBytes
func BodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
				Code:    api.ErrorCodeValidation,
				Message: "Request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
