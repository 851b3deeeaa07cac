package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// AppointmentRepository manages clients, appointments and their preferred periods
type AppointmentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAppointmentRepository creates a new AppointmentRepository
func NewAppointmentRepository(db *pgxpool.Pool, logger *zap.Logger) *AppointmentRepository {
	return &AppointmentRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureClient registers a client unless the e-mail is already taken and
// returns the stored row. The caller compares IDs to tell the cases apart.
func (r *AppointmentRepository) EnsureClient(ctx context.Context, client *model.Client) (*model.Client, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO clients (id, email, id_number_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email) DO NOTHING
	`, client.ID, client.Email, client.IDNumberHash)
	if err != nil {
		r.logger.Error("failed to register client", zap.Error(err), zap.String("client_id", client.ID))
		return nil, fmt.Errorf("failed to register client: %w", err)
	}

	return r.FindClientByEmail(ctx, client.Email)
}

// FindClientByEmail retrieves a client by normalised e-mail
func (r *AppointmentRepository) FindClientByEmail(ctx context.Context, email string) (*model.Client, error) {
	var c model.Client
	err := r.db.QueryRow(ctx,
		`SELECT id, email, id_number_hash, created_at FROM clients WHERE email = $1`,
		email,
	).Scan(&c.ID, &c.Email, &c.IDNumberHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client: %w", ErrNotFound)
		}
		r.logger.Error("failed to find client", zap.Error(err))
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return &c, nil
}

// Create inserts an appointment and its preferred periods in one transaction
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			id, client_id, therapist_id, specialty_id, consultation_type, price, status,
			detail_name, detail_phone, detail_main_concerns, detail_previous_therapy,
			detail_urgency, detail_special_needs, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`,
		appt.ID,
		appt.ClientID,
		appt.TherapistID,
		appt.SpecialtyID,
		appt.ConsultationType,
		appt.Price,
		appt.Status,
		appt.Detail.Name,
		appt.Detail.Phone,
		appt.Detail.MainConcerns,
		appt.Detail.PreviousTherapy,
		appt.Detail.Urgency,
		appt.Detail.SpecialNeeds,
		appt.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create appointment",
			zap.Error(err),
			zap.String("appointment_id", appt.ID),
		)
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	for _, pp := range appt.PreferredPeriods {
		for _, p := range pp.Periods {
			_, err := tx.Exec(ctx, `
				INSERT INTO appointment_preferred_periods (appointment_id, date, period)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, appt.ID, pp.Date, p)
			if err != nil {
				r.logger.Error("failed to store preferred period",
					zap.Error(err),
					zap.String("appointment_id", appt.ID),
				)
				return fmt.Errorf("failed to store preferred period: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit appointment: %w", err)
	}
	return nil
}

const appointmentSelect = `
	SELECT
		a.id, a.client_id, c.email, a.therapist_id, t.name, a.specialty_id,
		a.consultation_type, a.price, a.status, a.confirmed_slot,
		a.consultation_room, a.confirmed_at, a.rejection_reason,
		a.detail_name, a.detail_phone, a.detail_main_concerns,
		a.detail_previous_therapy, a.detail_urgency, a.detail_special_needs,
		a.created_at, a.updated_at
	FROM appointments a
	JOIN clients c ON c.id = a.client_id
	LEFT JOIN therapists t ON t.id = a.therapist_id
`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.Email,
		&a.TherapistID,
		&a.TherapistName,
		&a.SpecialtyID,
		&a.ConsultationType,
		&a.Price,
		&a.Status,
		&a.ConfirmedSlot,
		&a.ConsultationRoom,
		&a.ConfirmedAt,
		&a.RejectionReason,
		&a.Detail.Name,
		&a.Detail.Phone,
		&a.Detail.MainConcerns,
		&a.Detail.PreviousTherapy,
		&a.Detail.Urgency,
		&a.Detail.SpecialNeeds,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.PreferredPeriods = []model.PreferredPeriod{}
	return &a, nil
}

// FindByID retrieves an appointment with its preferred periods
func (r *AppointmentRepository) FindByID(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
		}
		r.logger.Error("failed to find appointment", zap.Error(err), zap.String("appointment_id", appointmentID))
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	list := []model.Appointment{*appt}
	if err := r.attachPeriods(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListByClient retrieves a client's appointments, most recent first
func (r *AppointmentRepository) ListByClient(ctx context.Context, clientID string) ([]model.Appointment, error) {
	return r.list(ctx, appointmentSelect+` WHERE a.client_id = $1 ORDER BY a.created_at DESC, a.id DESC`, clientID)
}

// ListPending retrieves pending appointments, most recent first, optionally
// restricted to one therapist
func (r *AppointmentRepository) ListPending(ctx context.Context, therapistID *string) ([]model.Appointment, error) {
	return r.list(ctx, appointmentSelect+`
		WHERE a.status = 'pending' AND ($1::uuid IS NULL OR a.therapist_id = $1::uuid)
		ORDER BY a.created_at DESC, a.id DESC
	`, therapistID)
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list appointments", zap.Error(err))
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	appointments := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating appointments", zap.Error(err))
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	if err := r.attachPeriods(ctx, appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *AppointmentRepository) attachPeriods(ctx context.Context, appointments []model.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}

	ids := make([]string, len(appointments))
	index := make(map[string]int, len(appointments))
	for i, a := range appointments {
		ids[i] = a.ID
		index[a.ID] = i
	}

	rows, err := r.db.Query(ctx, `
		SELECT appointment_id, date, period
		FROM appointment_preferred_periods
		WHERE appointment_id = ANY($1::uuid[])
		ORDER BY appointment_id, date,
			CASE period WHEN 'morning' THEN 0 WHEN 'afternoon' THEN 1 ELSE 2 END
	`, ids)
	if err != nil {
		r.logger.Error("failed to load preferred periods", zap.Error(err))
		return fmt.Errorf("failed to load preferred periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			appointmentID string
			date          time.Time
			period        model.Period
		)
		if err := rows.Scan(&appointmentID, &date, &period); err != nil {
			return fmt.Errorf("failed to scan preferred period: %w", err)
		}

		a := &appointments[index[appointmentID]]
		n := len(a.PreferredPeriods)
		if n > 0 && a.PreferredPeriods[n-1].Date.Equal(date) {
			a.PreferredPeriods[n-1].Periods = append(a.PreferredPeriods[n-1].Periods, period)
			continue
		}
		a.PreferredPeriods = append(a.PreferredPeriods, model.PreferredPeriod{Date: date, Periods: []model.Period{period}})
	}

	return rows.Err()
}

// CompareAndSetStatus moves an appointment from one status to another.
// It reports false when the appointment was not in the expected status.
func (r *AppointmentRepository) CompareAndSetStatus(ctx context.Context, appointmentID string, from, to model.AppointmentStatus, reason *string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = $3,
			rejection_reason = COALESCE($4, rejection_reason),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, appointmentID, from, to, reason)
	if err != nil {
		r.logger.Error("failed to update appointment status",
			zap.Error(err),
			zap.String("appointment_id", appointmentID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Confirm moves a pending appointment to confirmed with a concrete slot.
// It reports false when the appointment was no longer pending.
func (r *AppointmentRepository) Confirm(ctx context.Context, appointmentID string, slot time.Time, room *string, confirmedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'confirmed',
			confirmed_slot = $2,
			consultation_room = $3,
			confirmed_at = $4,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, appointmentID, slot, room, confirmedAt)
	if err != nil {
		r.logger.Error("failed to confirm appointment",
			zap.Error(err),
			zap.String("appointment_id", appointmentID),
		)
		return false, fmt.Errorf("failed to confirm appointment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
