package handler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mindcare-tw/mindcare-backend/internal/service"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"github.com/stretchr/testify/mock"
)

type MockAssessmentService struct {
	mock.Mock
}

func (m *MockAssessmentService) ListTests(ctx context.Context) ([]model.Test, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Test), args.Error(1)
}

func (m *MockAssessmentService) ListQuestions(ctx context.Context, code model.TestCode) ([]model.Question, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Question), args.Error(1)
}

func (m *MockAssessmentService) SubmitResponse(ctx context.Context, code model.TestCode, items []model.AssessmentResponseItem, userID *string) (*model.AssessmentResult, error) {
	args := m.Called(ctx, code, items, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AssessmentResult), args.Error(1)
}

func (m *MockAssessmentService) ListResults(ctx context.Context, userID string) ([]model.AssessmentResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AssessmentResult), args.Error(1)
}

type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) CreateAppointment(ctx context.Context, req service.CreateAppointmentRequest) (*model.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentService) QueryAppointments(ctx context.Context, email, idNumber string) ([]model.Appointment, error) {
	args := m.Called(ctx, email, idNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *MockAppointmentService) CancelAppointment(ctx context.Context, appointmentID, email, idNumber string) (*model.Appointment, error) {
	args := m.Called(ctx, appointmentID, email, idNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentService) GetAppointment(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentService) ListPending(ctx context.Context, therapistID *string) ([]model.Appointment, error) {
	args := m.Called(ctx, therapistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *MockAppointmentService) Confirm(ctx context.Context, appointmentID string, slot time.Time, room *string) (*model.Appointment, error) {
	args := m.Called(ctx, appointmentID, slot, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentService) UpdateStatus(ctx context.Context, appointmentID string, next model.AppointmentStatus, reason *string) (*model.Appointment, error) {
	args := m.Called(ctx, appointmentID, next, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

type MockTherapistService struct {
	mock.Mock
}

func (m *MockTherapistService) ListTherapists(ctx context.Context, specialtyID string) ([]model.Therapist, error) {
	args := m.Called(ctx, specialtyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Therapist), args.Error(1)
}

func (m *MockTherapistService) GetTherapist(ctx context.Context, therapistID string) (*model.Therapist, error) {
	args := m.Called(ctx, therapistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Therapist), args.Error(1)
}

func (m *MockTherapistService) ListSpecialties(ctx context.Context) ([]model.Specialty, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Specialty), args.Error(1)
}

// UploadPhoto drains the reader so the recorded call carries the bytes
func (m *MockTherapistService) UploadPhoto(ctx context.Context, therapistID, contentType string, data io.Reader) (*model.Therapist, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	args := m.Called(ctx, therapistID, contentType, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Therapist), args.Error(1)
}

type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) ListArticles(ctx context.Context) ([]model.Article, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Article), args.Error(1)
}

func (m *MockContentService) GetArticle(ctx context.Context, articleID string) (*model.Article, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Article), args.Error(1)
}

func (m *MockContentService) ListCategories(ctx context.Context) ([]model.AnnouncementCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnnouncementCategory), args.Error(1)
}

func (m *MockContentService) ListAnnouncements(ctx context.Context, filter model.AnnouncementFilter) ([]model.Announcement, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Announcement), args.Error(1)
}

func (m *MockContentService) ViewAnnouncement(ctx context.Context, announcementID string) (*model.Announcement, error) {
	args := m.Called(ctx, announcementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Announcement), args.Error(1)
}

func (m *MockContentService) Homepage(ctx context.Context) (*service.Homepage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Homepage), args.Error(1)
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

var errDatabaseDown = errors.New("connection refused")
