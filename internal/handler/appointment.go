package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mindcare-tw/mindcare-backend/internal/service"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// AppointmentService is the appointment resolver and staff workflow
type AppointmentService interface {
	CreateAppointment(ctx context.Context, req service.CreateAppointmentRequest) (*model.Appointment, error)
	QueryAppointments(ctx context.Context, email, idNumber string) ([]model.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID, email, idNumber string) (*model.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID string) (*model.Appointment, error)
	ListPending(ctx context.Context, therapistID *string) ([]model.Appointment, error)
	Confirm(ctx context.Context, appointmentID string, slot time.Time, room *string) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID string, next model.AppointmentStatus, reason *string) (*model.Appointment, error)
}

// AppointmentHandler implements the client-facing appointment endpoints
type AppointmentHandler struct {
	service AppointmentService
	logger  *zap.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler
func NewAppointmentHandler(service AppointmentService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		logger:  logger,
	}
}

// CreateAppointment books a pending appointment
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req api.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	detail := model.AppointmentDetail{
		Name:            req.Detail.Name,
		Phone:           req.Detail.Phone,
		MainConcerns:    req.Detail.MainConcerns,
		PreviousTherapy: req.Detail.PreviousTherapy,
	}
	if req.Detail.Urgency != nil {
		detail.Urgency = model.Urgency(*req.Detail.Urgency)
	}
	if req.Detail.SpecialNeeds != nil {
		detail.SpecialNeeds = *req.Detail.SpecialNeeds
	}

	appt, err := h.service.CreateAppointment(c.Request.Context(), service.CreateAppointmentRequest{
		Email:            req.Email,
		IDNumber:         req.IdNumber,
		TherapistID:      req.TherapistId,
		SpecialtyID:      req.SpecialtyId,
		ConsultationType: model.ConsultationType(req.ConsultationType),
		PreferredPeriods: toModelPeriods(req.PreferredPeriods),
		Detail:           detail,
	})
	if err != nil {
		respondError(c, h.logger, err, "create appointment")
		return
	}

	h.logger.Info("appointment created", zap.String("appointment_id", appt.ID))
	c.JSON(http.StatusCreated, toAPIAppointment(appt))
}

// QueryAppointments lists the appointments of an identity pair
func (h *AppointmentHandler) QueryAppointments(c *gin.Context) {
	var req api.IdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	appts, err := h.service.QueryAppointments(c.Request.Context(), req.Email, req.IdNumber)
	if err != nil {
		respondError(c, h.logger, err, "query appointments")
		return
	}

	c.JSON(http.StatusOK, toAPIAppointments(appts))
}

// CancelAppointment lets a client cancel their own pending appointment
func (h *AppointmentHandler) CancelAppointment(c *gin.Context, id string) {
	var req api.IdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	appt, err := h.service.CancelAppointment(c.Request.Context(), id, req.Email, req.IdNumber)
	if err != nil {
		respondError(c, h.logger, err, "cancel appointment")
		return
	}

	h.logger.Info("appointment cancelled by client", zap.String("appointment_id", appt.ID))
	c.JSON(http.StatusOK, toAPIAppointment(appt))
}
