package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mindcare-tw/mindcare-backend/internal/security"
	"github.com/mindcare-tw/mindcare-backend/internal/service"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// RegisterValidators adds the twid tag to gin's binding validator and makes
// validation errors report JSON field names. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("gin binding validator is not go-playground/validator")
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("twid", func(fl validator.FieldLevel) bool {
			return security.ValidIDNumber(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	})
}

// bindError reports a request body that could not be bound
func bindError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.Error(err), zap.String("path", c.Request.URL.Path))

	details := err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+": failed "+fe.Tag())
		}
		details = strings.Join(fields, "; ")
	}

	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Code:    api.ErrorCodeValidation,
		Message: "Invalid request body",
		Details: stringPtr(details),
	})
}

// respondError maps service errors to HTTP responses. action names the
// operation, e.g. "cancel appointment".
func respondError(c *gin.Context, logger *zap.Logger, err error, action string) {
	var verr *service.ValidationError
	var serr *service.StateError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    api.ErrorCodeValidation,
			Message: verr.Message,
			Details: optionalString(verr.Field),
		})
	case errors.Is(err, service.ErrAuthorization):
		// never say which identity field mismatched
		c.JSON(http.StatusForbidden, api.ErrorResponse{
			Code:    api.ErrorCodeAuthorization,
			Message: "Cannot " + action,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    api.ErrorCodeNotFound,
			Message: "Resource not found",
		})
	case errors.As(err, &serr):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Code:    api.ErrorCodeState,
			Message: serr.Error(),
			Details: stringPtr(string(serr.From)),
		})
	default:
		_ = c.Error(err)
		logger.Error("failed to "+action,
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:    api.ErrorCodeInternal,
			Message: "Failed to " + action,
		})
	}
}
