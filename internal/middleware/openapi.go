package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"go.uber.org/zap"
)

var registerDecoders sync.Once

// photo parts arrive with their own image content type inside multipart bodies
func registerPhotoDecoders() {
	for _, ct := range []string{"image/jpeg", "image/png", "image/webp"} {
		openapi3filter.RegisterBodyDecoder(ct, openapi3filter.FileBodyDecoder)
	}
}

// OpenAPIValidator checks each request against the OpenAPI document before
// it reaches a handler. Security requirements are evaluated against the
// claims attached by AuthMiddleware. Paths outside the document pass through.
func OpenAPIValidator(swagger *openapi3.T, logger *zap.Logger) (gin.HandlerFunc, error) {
	registerDecoders.Do(registerPhotoDecoders)

	// match requests regardless of host
	swagger.Servers = nil

	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: func(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
			return Authorize(ctx, input.Scopes)
		},
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
				c.Next()
				return
			}
			logger.Error("openapi route lookup failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{
				Code:    api.ErrorCodeInternal,
				Message: "Internal server error",
			})
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			status, body := validationFailure(err)
			logger.Debug("request rejected by openapi validation",
				zap.Error(err),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", status),
			)
			if status == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", `Bearer realm="mindcare"`)
			}
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Next()
	}, nil
}

func validationFailure(err error) (int, api.ErrorResponse) {
	var secErr *openapi3filter.SecurityRequirementsError
	if errors.As(err, &secErr) {
		for _, e := range secErr.Errors {
			if errors.Is(e, ErrForbidden) {
				return http.StatusForbidden, api.ErrorResponse{
					Code:    api.ErrorCodeAuthorization,
					Message: "Staff access required",
				}
			}
		}
		return http.StatusUnauthorized, api.ErrorResponse{
			Code:    api.ErrorCodeUnauthorized,
			Message: "Authentication required",
		}
	}

	details := err.Error()
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.Parameter != nil && reqErr.Reason != "":
			details = fmt.Sprintf("parameter %q: %s", reqErr.Parameter.Name, reqErr.Reason)
		case reqErr.Err != nil:
			details = reqErr.Err.Error()
		}
	}
	return http.StatusBadRequest, api.ErrorResponse{
		Code:    api.ErrorCodeValidation,
		Message: "Request does not match the API contract",
		Details: &details,
	}
}
