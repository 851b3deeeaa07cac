package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
)

// Server implements api.ServerInterface by delegating to the individual handlers
type Server struct {
	*AssessmentHandler
	*AppointmentHandler
	*StaffHandler
	*TherapistHandler
	*ContentHandler
	*HealthHandler
}

var _ api.ServerInterface = (*Server)(nil)

// NewServer bundles the handlers and registers the custom binding validators
func NewServer(assessments *AssessmentHandler, appointments *AppointmentHandler, staff *StaffHandler, therapists *TherapistHandler, content *ContentHandler, health *HealthHandler) *Server {
	RegisterValidators()
	return &Server{
		AssessmentHandler:  assessments,
		AppointmentHandler: appointments,
		StaffHandler:       staff,
		TherapistHandler:   therapists,
		ContentHandler:     content,
		HealthHandler:      health,
	}
}

// ValidationErrorHandler renders parameter binding failures from the router
func ValidationErrorHandler(c *gin.Context, err error, status int) {
	c.JSON(status, api.ErrorResponse{
		Code:    api.ErrorCodeValidation,
		Message: "Invalid request parameters",
		Details: stringPtr(err.Error()),
	})
}
