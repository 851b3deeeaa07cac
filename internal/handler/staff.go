package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// StaffHandler implements the staff appointment workflow. Access control
// happens in middleware.
type StaffHandler struct {
	service AppointmentService
	logger  *zap.Logger
}

// NewStaffHandler creates a new StaffHandler
func NewStaffHandler(service AppointmentService, logger *zap.Logger) *StaffHandler {
	return &StaffHandler{
		service: service,
		logger:  logger,
	}
}

// ListPendingAppointments lists pending appointments, optionally for one therapist
func (h *StaffHandler) ListPendingAppointments(c *gin.Context, params api.ListPendingAppointmentsParams) {
	appts, err := h.service.ListPending(c.Request.Context(), params.Therapist)
	if err != nil {
		respondError(c, h.logger, err, "list pending appointments")
		return
	}
	c.JSON(http.StatusOK, toAPIAppointments(appts))
}

// GetAppointment returns one appointment
func (h *StaffHandler) GetAppointment(c *gin.Context, id string) {
	appt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "get appointment")
		return
	}
	c.JSON(http.StatusOK, toAPIAppointment(appt))
}

// ConfirmAppointmentTime binds a pending appointment to a concrete slot
func (h *StaffHandler) ConfirmAppointmentTime(c *gin.Context, id string) {
	var req api.ConfirmTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	appt, err := h.service.Confirm(c.Request.Context(), id, req.ConfirmedDatetime, req.ConsultationRoom)
	if err != nil {
		respondError(c, h.logger, err, "confirm appointment")
		return
	}

	h.logger.Info("appointment confirmed",
		zap.String("appointment_id", appt.ID),
		zap.String("staff_id", c.GetString("user_id")),
		zap.Time("slot", req.ConfirmedDatetime),
	)
	c.JSON(http.StatusOK, toAPIAppointment(appt))
}

// UpdateAppointmentStatus rejects, completes or cancels an appointment
func (h *StaffHandler) UpdateAppointmentStatus(c *gin.Context, id string) {
	var req api.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	appt, err := h.service.UpdateStatus(c.Request.Context(), id, model.AppointmentStatus(req.Status), req.RejectionReason)
	if err != nil {
		respondError(c, h.logger, err, "update appointment status")
		return
	}

	h.logger.Info("appointment status updated",
		zap.String("appointment_id", appt.ID),
		zap.String("staff_id", c.GetString("user_id")),
		zap.String("status", string(appt.Status)),
	)
	c.JSON(http.StatusOK, toAPIAppointment(appt))
}
