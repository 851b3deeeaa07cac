package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mindcare-tw/mindcare-backend/internal/azure"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// TherapistService is the therapist directory
type TherapistService interface {
	ListTherapists(ctx context.Context, specialtyID string) ([]model.Therapist, error)
	GetTherapist(ctx context.Context, therapistID string) (*model.Therapist, error)
	ListSpecialties(ctx context.Context) ([]model.Specialty, error)
	UploadPhoto(ctx context.Context, therapistID, contentType string, data io.Reader) (*model.Therapist, error)
}

// TherapistHandler implements therapist directory endpoints
type TherapistHandler struct {
	service TherapistService
	logger  *zap.Logger
}

// NewTherapistHandler creates a new TherapistHandler
func NewTherapistHandler(service TherapistService, logger *zap.Logger) *TherapistHandler {
	return &TherapistHandler{
		service: service,
		logger:  logger,
	}
}

// ListTherapists lists profiles, filtered by ?specialty= when given
func (h *TherapistHandler) ListTherapists(c *gin.Context, params api.ListTherapistsParams) {
	var specialty string
	if params.Specialty != nil {
		specialty = *params.Specialty
	}

	therapists, err := h.service.ListTherapists(c.Request.Context(), specialty)
	if err != nil {
		respondError(c, h.logger, err, "list therapists")
		return
	}

	response := make([]api.Therapist, 0, len(therapists))
	for i := range therapists {
		response = append(response, toAPITherapist(&therapists[i]))
	}
	c.JSON(http.StatusOK, response)
}

// GetTherapist returns one profile
func (h *TherapistHandler) GetTherapist(c *gin.Context, id string) {
	therapist, err := h.service.GetTherapist(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "get therapist")
		return
	}
	c.JSON(http.StatusOK, toAPITherapist(therapist))
}

// ListSpecialties lists active specialties
func (h *TherapistHandler) ListSpecialties(c *gin.Context) {
	specialties, err := h.service.ListSpecialties(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "list specialties")
		return
	}

	response := make([]api.Specialty, 0, len(specialties))
	for _, s := range specialties {
		response = append(response, toAPISpecialty(s))
	}
	c.JSON(http.StatusOK, response)
}

// UploadTherapistPhoto stores the multipart "photo" field as the therapist's photo
func (h *TherapistHandler) UploadTherapistPhoto(c *gin.Context, id string) {
	header, err := c.FormFile("photo")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
				Code:    api.ErrorCodeValidation,
				Message: "Photo too large",
			})
			return
		}
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    api.ErrorCodeValidation,
			Message: "Multipart field photo is required",
			Details: stringPtr("photo"),
		})
		return
	}

	if header.Size > azure.MaxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
			Code:    api.ErrorCodeValidation,
			Message: "Photo too large",
			Details: stringPtr("photo"),
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err, "read photo")
		return
	}
	defer file.Close()

	therapist, err := h.service.UploadPhoto(c.Request.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(c, h.logger, err, "upload photo")
		return
	}

	h.logger.Info("therapist photo uploaded",
		zap.String("therapist_id", therapist.ID),
		zap.Int64("size", header.Size),
	)
	c.JSON(http.StatusOK, toAPITherapist(therapist))
}
