package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/internal/audit"
	"github.com/mindcare-tw/mindcare-backend/internal/security"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// AppointmentStore persists clients and appointments
type AppointmentStore interface {
	EnsureClient(ctx context.Context, client *model.Client) (*model.Client, error)
	FindClientByEmail(ctx context.Context, email string) (*model.Client, error)
	Create(ctx context.Context, appt *model.Appointment) error
	FindByID(ctx context.Context, appointmentID string) (*model.Appointment, error)
	ListByClient(ctx context.Context, clientID string) ([]model.Appointment, error)
	ListPending(ctx context.Context, therapistID *string) ([]model.Appointment, error)
	CompareAndSetStatus(ctx context.Context, appointmentID string, from, to model.AppointmentStatus, reason *string) (bool, error)
	Confirm(ctx context.Context, appointmentID string, slot time.Time, room *string, confirmedAt time.Time) (bool, error)
}

// TherapistLookup resolves the therapist and specialty of a booking
type TherapistLookup interface {
	FindByID(ctx context.Context, therapistID string) (*model.Therapist, error)
	FindSpecialty(ctx context.Context, specialtyID string) (*model.Specialty, error)
}

// IdentityHasher hashes and verifies national ID numbers
type IdentityHasher interface {
	Hash(idNumber string) ([]byte, error)
	Matches(hash []byte, idNumber string) bool
}

// AppointmentNotifier sends lifecycle e-mails
type AppointmentNotifier interface {
	Created(ctx context.Context, appt *model.Appointment) error
	Confirmed(ctx context.Context, appt *model.Appointment) error
	Rejected(ctx context.Context, appt *model.Appointment) error
	Cancelled(ctx context.Context, appt *model.Appointment, therapistEmail *string) error
}

// ReminderScheduler queues and cancels appointment reminders
type ReminderScheduler interface {
	ScheduleFor(ctx context.Context, appt *model.Appointment, therapistEmail *string) error
	CancelFor(ctx context.Context, appointmentID string) error
}

// CreateAppointmentRequest is a client booking
type CreateAppointmentRequest struct {
	Email            string
	IDNumber         string
	TherapistID      *string
	SpecialtyID      *string
	ConsultationType model.ConsultationType
	PreferredPeriods []model.PreferredPeriod
	Detail           model.AppointmentDetail
}

// AppointmentOption customises an AppointmentService
type AppointmentOption func(*AppointmentService)

// WithEncryptor encrypts sensitive intake fields at rest
func WithEncryptor(e *security.Encryptor) AppointmentOption {
	return func(s *AppointmentService) { s.encryptor = e }
}

// WithNotifier enables lifecycle e-mails
func WithNotifier(n AppointmentNotifier) AppointmentOption {
	return func(s *AppointmentService) { s.notifier = n }
}

// WithReminders enables reminder scheduling on confirmation
func WithReminders(r ReminderScheduler) AppointmentOption {
	return func(s *AppointmentService) { s.reminders = r }
}

// WithAuditRecorder records status transitions
func WithAuditRecorder(r audit.Recorder) AppointmentOption {
	return func(s *AppointmentService) { s.auditor = r }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) AppointmentOption {
	return func(s *AppointmentService) { s.now = now }
}

// WithLocation sets the clinic time zone used to decide what "today" is
func WithLocation(loc *time.Location) AppointmentOption {
	return func(s *AppointmentService) { s.loc = loc }
}

// AppointmentService turns client preferences into pending appointments and
// drives the appointment state machine
type AppointmentService struct {
	store      AppointmentStore
	therapists TherapistLookup
	hasher     IdentityHasher
	encryptor  *security.Encryptor
	notifier   AppointmentNotifier
	reminders  ReminderScheduler
	auditor    audit.Recorder
	logger     *zap.Logger
	now        func() time.Time
	loc        *time.Location
}

// NewAppointmentService creates a new AppointmentService
func NewAppointmentService(store AppointmentStore, therapists TherapistLookup, hasher IdentityHasher, logger *zap.Logger, opts ...AppointmentOption) *AppointmentService {
	s := &AppointmentService{
		store:      store,
		therapists: therapists,
		hasher:     hasher,
		auditor:    audit.Nop{},
		logger:     logger,
		now:        time.Now,
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var validate = validator.New()

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", invalid("email", "must be a valid e-mail address")
	}
	return email, nil
}

func normalizeIdentity(email, idNumber string) (string, string, error) {
	e, err := normalizeEmail(email)
	if err != nil {
		return "", "", err
	}
	if !security.ValidIDNumber(idNumber) {
		return "", "", invalid("id_number", "must be a valid national ID number")
	}
	return e, security.NormalizeIDNumber(idNumber), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizePreferences validates preferred periods against today and
// collapses duplicates. Output is ordered by date, then morning, afternoon,
// evening.
func NormalizePreferences(prefs []model.PreferredPeriod, today time.Time) ([]model.PreferredPeriod, error) {
	today = dateOnly(today)
	byDate := make(map[time.Time]map[model.Period]bool)

	for i, pp := range prefs {
		field := fmt.Sprintf("preferred_periods[%d]", i)
		if pp.Date.IsZero() {
			return nil, invalid(field+".date", "is required")
		}
		d := dateOnly(pp.Date)
		if d.Before(today) {
			return nil, invalid(field+".date", "must not be in the past")
		}
		if len(pp.Periods) == 0 {
			return nil, invalid(field+".periods", "must not be empty")
		}
		set, ok := byDate[d]
		if !ok {
			set = make(map[model.Period]bool)
			byDate[d] = set
		}
		for _, p := range pp.Periods {
			if p.Rank() < 0 {
				return nil, invalid(field+".periods", "unknown period %q", p)
			}
			set[p] = true
		}
	}

	out := make([]model.PreferredPeriod, 0, len(byDate))
	for d, set := range byDate {
		periods := make([]model.Period, 0, len(set))
		for p := range set {
			periods = append(periods, p)
		}
		sort.Slice(periods, func(i, j int) bool { return periods[i].Rank() < periods[j].Rank() })
		out = append(out, model.PreferredPeriod{Date: d, Periods: periods})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func normalizeDetail(d model.AppointmentDetail) (model.AppointmentDetail, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.MainConcerns = strings.TrimSpace(d.MainConcerns)
	d.SpecialNeeds = strings.TrimSpace(d.SpecialNeeds)

	switch {
	case d.Name == "":
		return d, invalid("detail.name", "is required")
	case d.Phone == "":
		return d, invalid("detail.phone", "is required")
	case d.MainConcerns == "":
		return d, invalid("detail.main_concerns", "is required")
	}

	if d.Urgency == "" {
		d.Urgency = model.UrgencyMedium
	}
	if !d.Urgency.Valid() {
		return d, invalid("detail.urgency", "must be low, medium or high")
	}
	return d, nil
}

// CreateAppointment validates a booking and stores it as pending. The first
// booking for an e-mail registers the client; later bookings must present
// the same ID number.
func (s *AppointmentService) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*model.Appointment, error) {
	email, idNumber, err := normalizeIdentity(req.Email, req.IDNumber)
	if err != nil {
		return nil, err
	}
	if !req.ConsultationType.Valid() {
		return nil, invalid("consultation_type", "must be online or offline")
	}
	detail, err := normalizeDetail(req.Detail)
	if err != nil {
		return nil, err
	}
	prefs, err := NormalizePreferences(req.PreferredPeriods, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		ID:               uuid.NewString(),
		Email:            email,
		ConsultationType: req.ConsultationType,
		Status:           model.AppointmentPending,
		PreferredPeriods: prefs,
		Detail:           detail,
		CreatedAt:        s.now(),
	}
	appt.UpdatedAt = appt.CreatedAt

	var therapist *model.Therapist
	if req.TherapistID != nil && *req.TherapistID != "" {
		therapist, err = s.lookupTherapist(ctx, *req.TherapistID)
		if err != nil {
			return nil, err
		}
		if !therapist.Offers(req.ConsultationType) {
			return nil, invalid("consultation_type", "therapist does not offer %s consultations", req.ConsultationType)
		}
		appt.TherapistID = &therapist.ID
		appt.TherapistName = &therapist.Name
		appt.Price = therapist.Pricing[string(req.ConsultationType)]
	}

	if req.SpecialtyID != nil && *req.SpecialtyID != "" {
		if err := s.lookupSpecialty(ctx, *req.SpecialtyID); err != nil {
			return nil, err
		}
		appt.SpecialtyID = req.SpecialtyID
	}

	client, err := s.resolveClient(ctx, email, idNumber)
	if err != nil {
		return nil, err
	}
	appt.ClientID = client.ID

	stored := *appt
	stored.Detail, err = s.encryptor.SealDetail(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt appointment detail: %w", err)
	}
	if err := s.store.Create(ctx, &stored); err != nil {
		s.logger.Error("failed to create appointment",
			zap.Error(err),
			zap.String("appointment_id", appt.ID),
		)
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID),
		zap.String("consultation_type", string(appt.ConsultationType)),
		zap.Int("preferred_dates", len(prefs)),
	)
	s.record(ctx, audit.OperationCreate, appt, nil)

	if s.notifier != nil {
		if err := s.notifier.Created(ctx, appt); err != nil {
			s.logger.Warn("failed to send appointment created notification",
				zap.Error(err),
				zap.String("appointment_id", appt.ID),
			)
		}
	}

	return appt, nil
}

func (s *AppointmentService) lookupTherapist(ctx context.Context, therapistID string) (*model.Therapist, error) {
	if _, err := uuid.Parse(therapistID); err != nil {
		return nil, invalid("therapist_id", "unknown therapist")
	}
	t, err := s.therapists.FindByID(ctx, therapistID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("therapist_id", "unknown therapist")
		}
		return nil, fmt.Errorf("failed to load therapist: %w", err)
	}
	return t, nil
}

func (s *AppointmentService) lookupSpecialty(ctx context.Context, specialtyID string) error {
	if _, err := uuid.Parse(specialtyID); err != nil {
		return invalid("specialty_id", "unknown specialty")
	}
	if _, err := s.therapists.FindSpecialty(ctx, specialtyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("specialty_id", "unknown specialty")
		}
		return fmt.Errorf("failed to load specialty: %w", err)
	}
	return nil
}

func (s *AppointmentService) resolveClient(ctx context.Context, email, idNumber string) (*model.Client, error) {
	hash, err := s.hasher.Hash(idNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to hash id number: %w", err)
	}

	candidate := &model.Client{ID: uuid.NewString(), Email: email, IDNumberHash: hash}
	client, err := s.store.EnsureClient(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client: %w", err)
	}
	if client.ID == candidate.ID {
		s.logger.Info("client registered", zap.String("client_id", client.ID))
		return client, nil
	}
	if !s.hasher.Matches(client.IDNumberHash, idNumber) {
		s.logger.Warn("booking with mismatched identity rejected", zap.String("client_id", client.ID))
		return nil, ErrAuthorization
	}
	return client, nil
}

// verifiedClient returns the client owning the identity pair, or
// ErrAuthorization when the pair does not match a registered client
func (s *AppointmentService) verifiedClient(ctx context.Context, email, idNumber string) (*model.Client, error) {
	client, err := s.store.FindClientByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrAuthorization
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	if !s.hasher.Matches(client.IDNumberHash, idNumber) {
		return nil, ErrAuthorization
	}
	return client, nil
}

func (s *AppointmentService) open(appts []model.Appointment) ([]model.Appointment, error) {
	for i := range appts {
		d, err := s.encryptor.OpenDetail(appts[i].Detail)
		if err != nil {
			s.logger.Error("failed to decrypt appointment detail",
				zap.Error(err),
				zap.String("appointment_id", appts[i].ID),
			)
			return nil, fmt.Errorf("failed to decrypt appointment detail: %w", err)
		}
		appts[i].Detail = d
	}
	return appts, nil
}

func (s *AppointmentService) openOne(appt *model.Appointment) (*model.Appointment, error) {
	list, err := s.open([]model.Appointment{*appt})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// QueryAppointments returns the appointments of an exact identity pair,
// most recent first. A pair that matches nobody yields an empty list.
func (s *AppointmentService) QueryAppointments(ctx context.Context, email, idNumber string) ([]model.Appointment, error) {
	email, idNumber, err := normalizeIdentity(email, idNumber)
	if err != nil {
		return nil, err
	}

	client, err := s.verifiedClient(ctx, email, idNumber)
	if err != nil {
		if errors.Is(err, ErrAuthorization) {
			return []model.Appointment{}, nil
		}
		return nil, err
	}

	appts, err := s.store.ListByClient(ctx, client.ID)
	if err != nil {
		s.logger.Error("failed to query appointments", zap.Error(err), zap.String("client_id", client.ID))
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	return s.open(appts)
}

func (s *AppointmentService) find(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	if _, err := uuid.Parse(appointmentID); err != nil {
		return nil, fmt.Errorf("appointment %q: %w", appointmentID, ErrNotFound)
	}
	appt, err := s.store.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}
	return appt, nil
}

// CancelAppointment lets a client cancel their own pending appointment.
// The identity pair is checked before the appointment is looked up, and an
// unknown appointment fails like a mismatch, so the response never reveals
// whether an id exists or what state it is in.
func (s *AppointmentService) CancelAppointment(ctx context.Context, appointmentID, email, idNumber string) (*model.Appointment, error) {
	email, idNumber, err := normalizeIdentity(email, idNumber)
	if err != nil {
		return nil, err
	}

	client, err := s.verifiedClient(ctx, email, idNumber)
	if err != nil {
		if errors.Is(err, ErrAuthorization) {
			s.logger.Warn("cancellation with mismatched identity rejected", zap.String("appointment_id", appointmentID))
		}
		return nil, err
	}

	appt, err := s.find(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("cancellation of unknown appointment rejected",
				zap.String("appointment_id", appointmentID),
				zap.String("client_id", client.ID),
			)
			return nil, ErrAuthorization
		}
		return nil, err
	}
	if client.ID != appt.ClientID {
		s.logger.Warn("cancellation with mismatched identity rejected", zap.String("appointment_id", appointmentID))
		return nil, ErrAuthorization
	}

	return s.transition(ctx, appt, model.AppointmentCancelled, model.ActorClient, nil)
}

// GetAppointment returns a single appointment for staff
func (s *AppointmentService) GetAppointment(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	appt, err := s.find(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return s.openOne(appt)
}

// ListPending returns pending appointments for staff, most recent first
func (s *AppointmentService) ListPending(ctx context.Context, therapistID *string) ([]model.Appointment, error) {
	if therapistID != nil {
		if _, err := uuid.Parse(*therapistID); err != nil {
			return nil, invalid("therapist", "must be a therapist id")
		}
	}
	appts, err := s.store.ListPending(ctx, therapistID)
	if err != nil {
		s.logger.Error("failed to list pending appointments", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending appointments: %w", err)
	}
	return s.open(appts)
}

// Confirm binds a pending appointment to a concrete slot and schedules
// reminders. The slot does not have to match the client's preferences.
func (s *AppointmentService) Confirm(ctx context.Context, appointmentID string, slot time.Time, room *string) (*model.Appointment, error) {
	if slot.IsZero() {
		return nil, invalid("confirmed_datetime", "is required")
	}
	if !slot.After(s.now()) {
		return nil, invalid("confirmed_datetime", "must be in the future")
	}
	if room != nil {
		trimmed := strings.TrimSpace(*room)
		room = &trimmed
		if trimmed == "" {
			room = nil
		}
	}

	appt, err := s.find(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransition(model.AppointmentConfirmed, model.ActorStaff) {
		return nil, &StateError{From: appt.Status, To: model.AppointmentConfirmed}
	}

	ok, err := s.store.Confirm(ctx, appt.ID, slot, room, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to confirm appointment: %w", err)
	}
	if !ok {
		return nil, s.lostRace(ctx, appt.ID, model.AppointmentConfirmed)
	}

	updated, err := s.find(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	if updated, err = s.openOne(updated); err != nil {
		return nil, err
	}

	s.logger.Info("appointment confirmed",
		zap.String("appointment_id", updated.ID),
		zap.Time("slot", slot),
	)
	s.record(ctx, audit.OperationUpdate, updated, map[string]interface{}{
		"from":           string(appt.Status),
		"to":             string(updated.Status),
		"confirmed_slot": slot,
	})

	therapistEmail := s.therapistEmail(ctx, updated)
	if s.reminders != nil {
		if err := s.reminders.ScheduleFor(ctx, updated, therapistEmail); err != nil {
			s.logger.Error("failed to schedule reminders", zap.Error(err), zap.String("appointment_id", updated.ID))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Confirmed(ctx, updated); err != nil {
			s.logger.Warn("failed to send confirmation notification", zap.Error(err), zap.String("appointment_id", updated.ID))
		}
	}

	return updated, nil
}

// UpdateStatus applies a staff transition other than confirmation
func (s *AppointmentService) UpdateStatus(ctx context.Context, appointmentID string, next model.AppointmentStatus, reason *string) (*model.Appointment, error) {
	if !next.Valid() {
		return nil, invalid("status", "unknown status %q", next)
	}
	if next == model.AppointmentConfirmed {
		return nil, invalid("status", "use confirm-time to confirm an appointment")
	}

	appt, err := s.find(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if next != model.AppointmentRejected {
		reason = nil
	}
	return s.transition(ctx, appt, next, model.ActorStaff, reason)
}

func (s *AppointmentService) transition(ctx context.Context, appt *model.Appointment, next model.AppointmentStatus, actor model.Actor, reason *string) (*model.Appointment, error) {
	if !appt.Status.CanTransition(next, actor) {
		return nil, &StateError{From: appt.Status, To: next}
	}

	ok, err := s.store.CompareAndSetStatus(ctx, appt.ID, appt.Status, next, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	if !ok {
		return nil, s.lostRace(ctx, appt.ID, next)
	}

	updated, err := s.find(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	if updated, err = s.openOne(updated); err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed",
		zap.String("appointment_id", appt.ID),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(next)),
		zap.String("actor", string(actor)),
	)
	s.record(ctx, audit.OperationUpdate, updated, map[string]interface{}{
		"from":  string(appt.Status),
		"to":    string(next),
		"actor": string(actor),
	})

	switch next {
	case model.AppointmentCancelled, model.AppointmentRejected:
		if s.reminders != nil {
			if err := s.reminders.CancelFor(ctx, updated.ID); err != nil {
				s.logger.Error("failed to cancel reminders", zap.Error(err), zap.String("appointment_id", updated.ID))
			}
		}
	}

	if s.notifier != nil {
		var err error
		switch next {
		case model.AppointmentCancelled:
			err = s.notifier.Cancelled(ctx, updated, s.therapistEmail(ctx, updated))
		case model.AppointmentRejected:
			err = s.notifier.Rejected(ctx, updated)
		}
		if err != nil {
			s.logger.Warn("failed to send status notification", zap.Error(err), zap.String("appointment_id", updated.ID))
		}
	}

	return updated, nil
}

// lostRace builds the error for a compare-and-set that matched no row
func (s *AppointmentService) lostRace(ctx context.Context, appointmentID string, next model.AppointmentStatus) error {
	current, err := s.find(ctx, appointmentID)
	if err != nil {
		return err
	}
	return &StateError{From: current.Status, To: next}
}

func (s *AppointmentService) therapistEmail(ctx context.Context, appt *model.Appointment) *string {
	if appt.TherapistID == nil {
		return nil
	}
	t, err := s.therapists.FindByID(ctx, *appt.TherapistID)
	if err != nil {
		s.logger.Warn("failed to load therapist for notification", zap.Error(err), zap.String("therapist_id", *appt.TherapistID))
		return nil
	}
	return t.Email
}

func (s *AppointmentService) record(ctx context.Context, op audit.OperationType, appt *model.Appointment, data map[string]interface{}) {
	actor := audit.ActorFrom(ctx)
	err := s.auditor.Log(ctx, audit.AuditLog{
		UserID:         actor.UserID,
		OperationType:  op,
		ResourceType:   audit.ResourceAppointment,
		ResourceID:     appt.ID,
		Timestamp:      s.now(),
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
		AdditionalData: data,
	})
	if err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err), zap.String("appointment_id", appt.ID))
	}
}
