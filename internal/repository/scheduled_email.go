package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// ScheduledEmailRepository manages queued reminder e-mails
type ScheduledEmailRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewScheduledEmailRepository creates a new ScheduledEmailRepository
func NewScheduledEmailRepository(db *pgxpool.Pool, logger *zap.Logger) *ScheduledEmailRepository {
	return &ScheduledEmailRepository{
		db:     db,
		logger: logger,
	}
}

// Schedule queues a reminder. An existing unsent reminder of the same type
// for the appointment is rescheduled in place.
func (r *ScheduledEmailRepository) Schedule(ctx context.Context, email *model.ScheduledEmail) error {
	query := `
		INSERT INTO scheduled_emails (
			id, appointment_id, email_type, recipient, scheduled_time,
			status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 'pending', 0, NOW(), NOW())
		ON CONFLICT (appointment_id, email_type) DO UPDATE
		SET recipient = EXCLUDED.recipient,
			scheduled_time = EXCLUDED.scheduled_time,
			status = 'pending',
			retry_count = 0,
			error_message = '',
			updated_at = NOW()
		WHERE scheduled_emails.status <> 'sent'
	`

	_, err := r.db.Exec(ctx, query,
		email.ID,
		email.AppointmentID,
		email.EmailType,
		email.Recipient,
		email.ScheduledTime,
	)
	if err != nil {
		r.logger.Error("failed to schedule email",
			zap.Error(err),
			zap.String("appointment_id", email.AppointmentID),
			zap.String("email_type", string(email.EmailType)),
		)
		return fmt.Errorf("failed to schedule email: %w", err)
	}

	return nil
}

// CancelPending cancels every unsent reminder of an appointment
func (r *ScheduledEmailRepository) CancelPending(ctx context.Context, appointmentID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE scheduled_emails
		SET status = 'cancelled', updated_at = NOW()
		WHERE appointment_id = $1 AND status IN ('pending', 'failed')
	`, appointmentID)
	if err != nil {
		r.logger.Error("failed to cancel scheduled emails",
			zap.Error(err),
			zap.String("appointment_id", appointmentID),
		)
		return 0, fmt.Errorf("failed to cancel scheduled emails: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimDue atomically takes up to limit reminders whose time has come and
// marks them 'sending' until now+lease. Candidates are pending rows, failed
// rows with retries left and claims whose lease has run out. Rows locked by
// a concurrent claim are skipped, so each reminder goes to one dispatcher.
func (r *ScheduledEmailRepository) ClaimDue(ctx context.Context, now time.Time, maxRetries, limit int, lease time.Duration) ([]model.ScheduledEmail, error) {
	query := `
		UPDATE scheduled_emails AS se
		SET status = 'sending', claimed_until = $4, updated_at = NOW()
		WHERE se.id IN (
			SELECT id FROM scheduled_emails
			WHERE scheduled_time <= $1
				AND (status = 'pending'
					OR (status = 'failed' AND retry_count < $2)
					OR (status = 'sending' AND claimed_until <= $1))
			ORDER BY scheduled_time
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING
			se.id, se.appointment_id, se.email_type, se.recipient, se.scheduled_time, se.status,
			se.sent_at, se.error_message, se.retry_count, se.created_at, se.updated_at
	`

	rows, err := r.db.Query(ctx, query, now, maxRetries, limit, now.Add(lease))
	if err != nil {
		r.logger.Error("failed to claim due emails", zap.Error(err))
		return nil, fmt.Errorf("failed to claim due emails: %w", err)
	}
	defer rows.Close()

	emails := []model.ScheduledEmail{}
	for rows.Next() {
		var e model.ScheduledEmail
		err := rows.Scan(
			&e.ID,
			&e.AppointmentID,
			&e.EmailType,
			&e.Recipient,
			&e.ScheduledTime,
			&e.Status,
			&e.SentAt,
			&e.ErrorMessage,
			&e.RetryCount,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled email: %w", err)
		}
		emails = append(emails, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduled emails: %w", err)
	}

	sort.Slice(emails, func(i, j int) bool { return emails[i].ScheduledTime.Before(emails[j].ScheduledTime) })
	return emails, nil
}

// MarkSent records a successful delivery
func (r *ScheduledEmailRepository) MarkSent(ctx context.Context, emailID string, sentAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE scheduled_emails
		SET status = 'sent', sent_at = $2, error_message = '', claimed_until = NULL, updated_at = NOW()
		WHERE id = $1
	`, emailID, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt
func (r *ScheduledEmailRepository) MarkFailed(ctx context.Context, emailID, message string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE scheduled_emails
		SET status = 'failed', error_message = $2, retry_count = retry_count + 1, claimed_until = NULL, updated_at = NOW()
		WHERE id = $1
	`, emailID, message)
	if err != nil {
		return fmt.Errorf("failed to mark email failed: %w", err)
	}
	return nil
}

// MarkCancelled cancels a single reminder
func (r *ScheduledEmailRepository) MarkCancelled(ctx context.Context, emailID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE scheduled_emails SET status = 'cancelled', claimed_until = NULL, updated_at = NOW() WHERE id = $1
	`, emailID)
	if err != nil {
		return fmt.Errorf("failed to cancel email: %w", err)
	}
	return nil
}
