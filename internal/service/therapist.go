package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/internal/audit"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// TherapistStore reads the therapist directory
type TherapistStore interface {
	List(ctx context.Context) ([]model.Therapist, error)
	FindByID(ctx context.Context, therapistID string) (*model.Therapist, error)
	ListSpecialties(ctx context.Context) ([]model.Specialty, error)
	FindSpecialty(ctx context.Context, specialtyID string) (*model.Specialty, error)
	UpdatePhotoURL(ctx context.Context, therapistID, photoURL string) error
}

// PhotoStorage stores therapist profile photos
type PhotoStorage interface {
	UploadPhoto(ctx context.Context, blobName, contentType string, data io.Reader) (string, error)
}

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// TherapistService serves the therapist directory
type TherapistService struct {
	store   TherapistStore
	photos  PhotoStorage
	auditor audit.Recorder
	logger  *zap.Logger
}

// NewTherapistService creates a new TherapistService. photos may be nil
// when blob storage is not configured.
func NewTherapistService(store TherapistStore, photos PhotoStorage, auditor audit.Recorder, logger *zap.Logger) *TherapistService {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &TherapistService{
		store:   store,
		photos:  photos,
		auditor: auditor,
		logger:  logger,
	}
}

// FilterTherapistsBySpecialty keeps the therapists that list specialtyID,
// preserving input order. An empty specialtyID keeps everyone.
func FilterTherapistsBySpecialty(therapists []model.Therapist, specialtyID string) []model.Therapist {
	out := make([]model.Therapist, 0, len(therapists))
	for i := range therapists {
		if specialtyID == "" || therapists[i].HasSpecialty(specialtyID) {
			out = append(out, therapists[i])
		}
	}
	return out
}

// ListTherapists returns the directory, optionally narrowed to a specialty
func (s *TherapistService) ListTherapists(ctx context.Context, specialtyID string) ([]model.Therapist, error) {
	therapists, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("failed to list therapists", zap.Error(err))
		return nil, fmt.Errorf("failed to list therapists: %w", err)
	}
	return FilterTherapistsBySpecialty(therapists, strings.TrimSpace(specialtyID)), nil
}

// GetTherapist returns a single profile
func (s *TherapistService) GetTherapist(ctx context.Context, therapistID string) (*model.Therapist, error) {
	if _, err := uuid.Parse(therapistID); err != nil {
		return nil, fmt.Errorf("therapist %q: %w", therapistID, ErrNotFound)
	}
	t, err := s.store.FindByID(ctx, therapistID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get therapist: %w", err)
	}
	return t, nil
}

// ListSpecialties returns the active specialties
func (s *TherapistService) ListSpecialties(ctx context.Context) ([]model.Specialty, error) {
	specialties, err := s.store.ListSpecialties(ctx)
	if err != nil {
		s.logger.Error("failed to list specialties", zap.Error(err))
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}
	return specialties, nil
}

// UploadPhoto stores a new profile photo and points the profile at it
func (s *TherapistService) UploadPhoto(ctx context.Context, therapistID, contentType string, data io.Reader) (*model.Therapist, error) {
	if s.photos == nil {
		return nil, errors.New("photo storage is not configured")
	}

	ext, ok := photoExtensions[contentType]
	if !ok {
		return nil, invalid("photo", "unsupported content type %q", contentType)
	}

	t, err := s.GetTherapist(ctx, therapistID)
	if err != nil {
		return nil, err
	}

	blobName := path.Join("therapists", t.ID, uuid.NewString()+ext)
	url, err := s.photos.UploadPhoto(ctx, blobName, contentType, data)
	if err != nil {
		s.logger.Error("failed to upload therapist photo",
			zap.Error(err),
			zap.String("therapist_id", t.ID),
		)
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	if err := s.store.UpdatePhotoURL(ctx, t.ID, url); err != nil {
		return nil, fmt.Errorf("failed to save photo url: %w", err)
	}
	t.PhotoURL = &url

	actor := audit.ActorFrom(ctx)
	if err := s.auditor.Log(ctx, audit.AuditLog{
		UserID:         actor.UserID,
		OperationType:  audit.OperationUpdate,
		ResourceType:   audit.ResourceTherapist,
		ResourceID:     t.ID,
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
		AdditionalData: map[string]interface{}{"photo_url": url},
	}); err != nil {
		s.logger.Warn("failed to audit photo upload", zap.Error(err))
	}

	s.logger.Info("therapist photo updated", zap.String("therapist_id", t.ID))
	return t, nil
}
