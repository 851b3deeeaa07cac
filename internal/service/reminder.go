package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/internal/notify"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// ScheduledEmailStore persists queued reminders
type ScheduledEmailStore interface {
	Schedule(ctx context.Context, email *model.ScheduledEmail) error
	CancelPending(ctx context.Context, appointmentID string) (int64, error)
	ClaimDue(ctx context.Context, now time.Time, maxRetries, limit int, lease time.Duration) ([]model.ScheduledEmail, error)
	MarkSent(ctx context.Context, emailID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, emailID, message string) error
	MarkCancelled(ctx context.Context, emailID string) error
}

// AppointmentReader loads a single appointment
type AppointmentReader interface {
	FindByID(ctx context.Context, appointmentID string) (*model.Appointment, error)
}

// ReminderConfig tunes the dispatcher
type ReminderConfig struct {
	Interval   time.Duration
	Lead       time.Duration
	MaxRetries int
	BatchSize  int
	// ClaimLease is how long a claimed reminder stays reserved for this
	// dispatcher before another may pick it up
	ClaimLease time.Duration
}

func (c ReminderConfig) withDefaults() ReminderConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Lead <= 0 {
		c.Lead = 24 * time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = 5 * time.Minute
	}
	return c
}

// ReminderService schedules and sends 24-hour appointment reminders
type ReminderService struct {
	store        ScheduledEmailStore
	appointments AppointmentReader
	mailer       notify.Mailer
	cfg          ReminderConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewReminderService creates a new ReminderService
func NewReminderService(store ScheduledEmailStore, appointments AppointmentReader, mailer notify.Mailer, cfg ReminderConfig, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		store:        store,
		appointments: appointments,
		mailer:       mailer,
		cfg:          cfg.withDefaults(),
		logger:       logger,
		now:          time.Now,
	}
}

// ScheduleFor queues the client and therapist reminders of a confirmed
// appointment. Reminders whose send time has already passed are skipped.
func (s *ReminderService) ScheduleFor(ctx context.Context, appt *model.Appointment, therapistEmail *string) error {
	if appt.ConfirmedSlot == nil {
		return fmt.Errorf("appointment %s has no confirmed slot", appt.ID)
	}

	at := appt.ConfirmedSlot.Add(-s.cfg.Lead)
	if !at.After(s.now()) {
		s.logger.Info("reminder window already passed",
			zap.String("appointment_id", appt.ID),
			zap.Time("slot", *appt.ConfirmedSlot),
		)
		return nil
	}

	recipients := map[model.EmailType]string{model.EmailReminderUser: appt.Email}
	if therapistEmail != nil && *therapistEmail != "" {
		recipients[model.EmailReminderTherapist] = *therapistEmail
	}

	for _, kind := range []model.EmailType{model.EmailReminderUser, model.EmailReminderTherapist} {
		to, ok := recipients[kind]
		if !ok {
			continue
		}
		err := s.store.Schedule(ctx, &model.ScheduledEmail{
			ID:            uuid.NewString(),
			AppointmentID: appt.ID,
			EmailType:     kind,
			Recipient:     to,
			ScheduledTime: at,
			Status:        model.EmailPending,
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", kind, err)
		}
	}

	s.logger.Info("reminders scheduled",
		zap.String("appointment_id", appt.ID),
		zap.Time("send_at", at),
		zap.Int("count", len(recipients)),
	)
	return nil
}

// CancelFor cancels the unsent reminders of an appointment
func (s *ReminderService) CancelFor(ctx context.Context, appointmentID string) error {
	n, err := s.store.CancelPending(ctx, appointmentID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("reminders cancelled",
			zap.String("appointment_id", appointmentID),
			zap.Int64("count", n),
		)
	}
	return nil
}

// DispatchDue claims the due reminders, sends each once and returns how
// many were sent. Several dispatchers may run against the same database.
func (s *ReminderService) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.store.ClaimDue(ctx, s.now(), s.cfg.MaxRetries, s.cfg.BatchSize, s.cfg.ClaimLease)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due reminders: %w", err)
	}

	sent := 0
	for _, email := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if s.dispatch(ctx, email) {
			sent++
		}
	}
	return sent, nil
}

func (s *ReminderService) dispatch(ctx context.Context, email model.ScheduledEmail) bool {
	log := s.logger.With(
		zap.String("email_id", email.ID),
		zap.String("appointment_id", email.AppointmentID),
		zap.String("email_type", string(email.EmailType)),
	)

	appt, err := s.appointments.FindByID(ctx, email.AppointmentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("reminder for missing appointment cancelled")
			if err := s.store.MarkCancelled(ctx, email.ID); err != nil {
				log.Error("failed to cancel reminder", zap.Error(err))
			}
			return false
		}
		log.Error("failed to load appointment for reminder", zap.Error(err))
		return false
	}

	if appt.Status != model.AppointmentConfirmed {
		log.Info("reminder for non-confirmed appointment cancelled", zap.String("status", string(appt.Status)))
		if err := s.store.MarkCancelled(ctx, email.ID); err != nil {
			log.Error("failed to cancel reminder", zap.Error(err))
		}
		return false
	}

	msg, err := notify.Reminder(email, appt)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		log.Warn("reminder delivery failed",
			zap.Error(err),
			zap.Int("retry_count", email.RetryCount+1),
		)
		if err := s.store.MarkFailed(ctx, email.ID, err.Error()); err != nil {
			log.Error("failed to record reminder failure", zap.Error(err))
		}
		return false
	}

	if err := s.store.MarkSent(ctx, email.ID, s.now()); err != nil {
		log.Error("failed to mark reminder sent", zap.Error(err))
	}
	log.Info("reminder sent")
	return true
}

// Run dispatches due reminders on every tick until ctx is cancelled
func (s *ReminderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("reminder dispatcher started", zap.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder dispatcher stopped")
			return
		case <-ticker.C:
			if n, err := s.DispatchDue(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("reminder dispatch failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Info("reminders dispatched", zap.Int("sent", n))
			}
		}
	}
}
