package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mindcare-tw/mindcare-backend/internal/notify"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"github.com/stretchr/testify/mock"
)

// Mock implementations for testing

type MockAssessmentStore struct {
	mock.Mock
}

func (m *MockAssessmentStore) ListTests(ctx context.Context) ([]model.Test, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Test), args.Error(1)
}

func (m *MockAssessmentStore) FindTest(ctx context.Context, code model.TestCode) (*model.Test, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Test), args.Error(1)
}

func (m *MockAssessmentStore) ListQuestions(ctx context.Context, code model.TestCode) ([]model.Question, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Question), args.Error(1)
}

func (m *MockAssessmentStore) SaveResult(ctx context.Context, result *model.AssessmentResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockAssessmentStore) ListResultsByUser(ctx context.Context, userID string) ([]model.AssessmentResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AssessmentResult), args.Error(1)
}

type MockTherapistStore struct {
	mock.Mock
}

func (m *MockTherapistStore) List(ctx context.Context) ([]model.Therapist, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Therapist), args.Error(1)
}

func (m *MockTherapistStore) FindByID(ctx context.Context, therapistID string) (*model.Therapist, error) {
	args := m.Called(ctx, therapistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Therapist), args.Error(1)
}

func (m *MockTherapistStore) ListSpecialties(ctx context.Context) ([]model.Specialty, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Specialty), args.Error(1)
}

func (m *MockTherapistStore) FindSpecialty(ctx context.Context, specialtyID string) (*model.Specialty, error) {
	args := m.Called(ctx, specialtyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Specialty), args.Error(1)
}

func (m *MockTherapistStore) UpdatePhotoURL(ctx context.Context, therapistID, photoURL string) error {
	args := m.Called(ctx, therapistID, photoURL)
	return args.Error(0)
}

type MockScheduledEmailStore struct {
	mock.Mock
}

func (m *MockScheduledEmailStore) Schedule(ctx context.Context, email *model.ScheduledEmail) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockScheduledEmailStore) CancelPending(ctx context.Context, appointmentID string) (int64, error) {
	args := m.Called(ctx, appointmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduledEmailStore) ClaimDue(ctx context.Context, now time.Time, maxRetries, limit int, lease time.Duration) ([]model.ScheduledEmail, error) {
	args := m.Called(ctx, now, maxRetries, limit, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScheduledEmail), args.Error(1)
}

func (m *MockScheduledEmailStore) MarkSent(ctx context.Context, emailID string, sentAt time.Time) error {
	args := m.Called(ctx, emailID, sentAt)
	return args.Error(0)
}

func (m *MockScheduledEmailStore) MarkFailed(ctx context.Context, emailID, message string) error {
	args := m.Called(ctx, emailID, message)
	return args.Error(0)
}

func (m *MockScheduledEmailStore) MarkCancelled(ctx context.Context, emailID string) error {
	args := m.Called(ctx, emailID)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Created(ctx context.Context, appt *model.Appointment) error {
	return m.Called(ctx, appt).Error(0)
}

func (m *MockNotifier) Confirmed(ctx context.Context, appt *model.Appointment) error {
	return m.Called(ctx, appt).Error(0)
}

func (m *MockNotifier) Rejected(ctx context.Context, appt *model.Appointment) error {
	return m.Called(ctx, appt).Error(0)
}

func (m *MockNotifier) Cancelled(ctx context.Context, appt *model.Appointment, therapistEmail *string) error {
	return m.Called(ctx, appt, therapistEmail).Error(0)
}

type MockReminderScheduler struct {
	mock.Mock
}

func (m *MockReminderScheduler) ScheduleFor(ctx context.Context, appt *model.Appointment, therapistEmail *string) error {
	return m.Called(ctx, appt, therapistEmail).Error(0)
}

func (m *MockReminderScheduler) CancelFor(ctx context.Context, appointmentID string) error {
	return m.Called(ctx, appointmentID).Error(0)
}

// plainHasher compares ID numbers verbatim so tests do not pay for bcrypt
type plainHasher struct{}

func (plainHasher) Hash(idNumber string) ([]byte, error) { return []byte("h:" + idNumber), nil }

func (plainHasher) Matches(hash []byte, idNumber string) bool {
	return string(hash) == "h:"+idNumber
}

// memoryAppointmentStore keeps clients and appointments in memory with the
// same compare-and-set semantics as the PostgreSQL repository
type memoryAppointmentStore struct {
	mu           sync.Mutex
	clients      map[string]*model.Client
	appointments map[string]*model.Appointment
	therapists   map[string]*model.Therapist
	seq          int
}

func newMemoryAppointmentStore(therapists ...*model.Therapist) *memoryAppointmentStore {
	s := &memoryAppointmentStore{
		clients:      make(map[string]*model.Client),
		appointments: make(map[string]*model.Appointment),
		therapists:   make(map[string]*model.Therapist),
	}
	for _, t := range therapists {
		s.therapists[t.ID] = t
	}
	return s
}

func (s *memoryAppointmentStore) EnsureClient(ctx context.Context, client *model.Client) (*model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.clients[client.Email]; ok {
		c := *existing
		return &c, nil
	}
	c := *client
	s.clients[client.Email] = &c
	out := c
	return &out, nil
}

func (s *memoryAppointmentStore) FindClientByEmail(ctx context.Context, email string) (*model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[email]
	if !ok {
		return nil, fmt.Errorf("client: %w", ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *memoryAppointmentStore) Create(ctx context.Context, appt *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := *appt
	s.seq++
	a.CreatedAt = a.CreatedAt.Add(time.Duration(s.seq) * time.Millisecond)
	if a.TherapistID != nil {
		if t, ok := s.therapists[*a.TherapistID]; ok {
			a.TherapistName = &t.Name
		}
	}
	s.appointments[a.ID] = &a
	return nil
}

func (s *memoryAppointmentStore) FindByID(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[appointmentID]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	out := *a
	return &out, nil
}

func (s *memoryAppointmentStore) filter(keep func(*model.Appointment) bool) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memoryAppointmentStore) ListByClient(ctx context.Context, clientID string) ([]model.Appointment, error) {
	return s.filter(func(a *model.Appointment) bool { return a.ClientID == clientID }), nil
}

func (s *memoryAppointmentStore) ListPending(ctx context.Context, therapistID *string) ([]model.Appointment, error) {
	return s.filter(func(a *model.Appointment) bool {
		if a.Status != model.AppointmentPending {
			return false
		}
		return therapistID == nil || (a.TherapistID != nil && *a.TherapistID == *therapistID)
	}), nil
}

func (s *memoryAppointmentStore) CompareAndSetStatus(ctx context.Context, appointmentID string, from, to model.AppointmentStatus, reason *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[appointmentID]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	if reason != nil {
		a.RejectionReason = reason
	}
	return true, nil
}

func (s *memoryAppointmentStore) Confirm(ctx context.Context, appointmentID string, slot time.Time, room *string, confirmedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[appointmentID]
	if !ok || a.Status != model.AppointmentPending {
		return false, nil
	}
	a.Status = model.AppointmentConfirmed
	a.ConfirmedSlot = &slot
	a.ConsultationRoom = room
	a.ConfirmedAt = &confirmedAt
	return true, nil
}

// setStatus forces a status for test setup
func (s *memoryAppointmentStore) setStatus(appointmentID string, status model.AppointmentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[appointmentID].Status = status
}

// lookupFromStore adapts the in-memory therapists to TherapistLookup
type lookupFromStore struct {
	store       *memoryAppointmentStore
	specialties map[string]model.Specialty
}

func (l lookupFromStore) FindByID(ctx context.Context, therapistID string) (*model.Therapist, error) {
	t, ok := l.store.therapists[therapistID]
	if !ok {
		return nil, fmt.Errorf("therapist %s: %w", therapistID, ErrNotFound)
	}
	out := *t
	return &out, nil
}

func (l lookupFromStore) FindSpecialty(ctx context.Context, specialtyID string) (*model.Specialty, error) {
	s, ok := l.specialties[specialtyID]
	if !ok {
		return nil, fmt.Errorf("specialty %s: %w", specialtyID, ErrNotFound)
	}
	return &s, nil
}

// questionSet builds a test with n questions whose choices score 0..maxScore
func questionSet(code model.TestCode, n, maxScore int) []model.Question {
	questions := make([]model.Question, n)
	for i := range questions {
		q := model.Question{
			ID:       fmt.Sprintf("%s-q%d", code, i+1),
			TestCode: code,
			Order:    i + 1,
			Text:     fmt.Sprintf("question %d", i+1),
		}
		for score := 0; score <= maxScore; score++ {
			q.Choices = append(q.Choices, model.Choice{
				ID:    fmt.Sprintf("%s-c%d", q.ID, score),
				Text:  fmt.Sprintf("choice %d", score),
				Score: score,
			})
		}
		questions[i] = q
	}
	return questions
}

// answers picks, for each question, the choice scoring scores[i]
func answers(questions []model.Question, scores ...int) []model.AssessmentResponseItem {
	items := make([]model.AssessmentResponseItem, len(scores))
	for i, score := range scores {
		items[i] = model.AssessmentResponseItem{
			QuestionID: questions[i].ID,
			ChoiceID:   questions[i].Choices[score].ID,
		}
	}
	return items
}

type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) ListPublishedArticles(ctx context.Context) ([]model.Article, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Article), args.Error(1)
}

func (m *MockContentStore) FindPublishedArticle(ctx context.Context, articleID string) (*model.Article, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Article), args.Error(1)
}

func (m *MockContentStore) ListActiveCategories(ctx context.Context) ([]model.AnnouncementCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnnouncementCategory), args.Error(1)
}

func (m *MockContentStore) ListVisibleAnnouncements(ctx context.Context, now time.Time, filter model.AnnouncementFilter) ([]model.Announcement, error) {
	args := m.Called(ctx, now, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Announcement), args.Error(1)
}

func (m *MockContentStore) ViewAnnouncement(ctx context.Context, announcementID string, now time.Time) (*model.Announcement, error) {
	args := m.Called(ctx, announcementID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Announcement), args.Error(1)
}
