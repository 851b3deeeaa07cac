package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// TherapistRepository manages the therapist directory
type TherapistRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewTherapistRepository creates a new TherapistRepository
func NewTherapistRepository(db *pgxpool.Pool, logger *zap.Logger) *TherapistRepository {
	return &TherapistRepository{
		db:     db,
		logger: logger,
	}
}

const therapistColumns = `
	id, name, title, license_number, education, experience, beliefs,
	email, photo_url, consultation_modes, pricing, created_at
`

func scanTherapist(row pgx.Row) (*model.Therapist, error) {
	var (
		t     model.Therapist
		modes []string
	)
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Title,
		&t.LicenseNumber,
		&t.Education,
		&t.Experience,
		&t.Beliefs,
		&t.Email,
		&t.PhotoURL,
		&modes,
		&t.Pricing,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ConsultationModes = make([]model.ConsultationType, 0, len(modes))
	for _, m := range modes {
		t.ConsultationModes = append(t.ConsultationModes, model.ConsultationType(m))
	}
	if t.Pricing == nil {
		t.Pricing = map[string]int{}
	}
	t.Specialties = []model.Specialty{}
	return &t, nil
}

// Create inserts a therapist and its specialty links
func (r *TherapistRepository) Create(ctx context.Context, t *model.Therapist) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	modes := make([]string, 0, len(t.ConsultationModes))
	for _, m := range t.ConsultationModes {
		modes = append(modes, string(m))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO therapists (
			id, name, title, license_number, education, experience, beliefs,
			email, photo_url, consultation_modes, pricing, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`,
		t.ID,
		t.Name,
		t.Title,
		t.LicenseNumber,
		t.Education,
		t.Experience,
		t.Beliefs,
		t.Email,
		t.PhotoURL,
		modes,
		t.Pricing,
	)
	if err != nil {
		r.logger.Error("failed to create therapist", zap.Error(err), zap.String("therapist_id", t.ID))
		return fmt.Errorf("failed to create therapist: %w", err)
	}

	for _, s := range t.Specialties {
		_, err := tx.Exec(ctx,
			`INSERT INTO therapist_specialties (therapist_id, specialty_id) VALUES ($1, $2)`,
			t.ID, s.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to link specialty %s: %w", s.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// List retrieves all therapists with their specialties, ordered by name
func (r *TherapistRepository) List(ctx context.Context) ([]model.Therapist, error) {
	rows, err := r.db.Query(ctx, `SELECT `+therapistColumns+` FROM therapists ORDER BY name, id`)
	if err != nil {
		r.logger.Error("failed to list therapists", zap.Error(err))
		return nil, fmt.Errorf("failed to list therapists: %w", err)
	}
	defer rows.Close()

	therapists := []model.Therapist{}
	index := make(map[string]int)
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan therapist: %w", err)
		}
		index[t.ID] = len(therapists)
		therapists = append(therapists, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating therapists: %w", err)
	}

	links, err := r.specialtyLinks(ctx, nil)
	if err != nil {
		return nil, err
	}
	for therapistID, specialties := range links {
		if i, ok := index[therapistID]; ok {
			therapists[i].Specialties = specialties
		}
	}

	return therapists, nil
}

// FindByID retrieves a therapist with specialties
func (r *TherapistRepository) FindByID(ctx context.Context, therapistID string) (*model.Therapist, error) {
	row := r.db.QueryRow(ctx, `SELECT `+therapistColumns+` FROM therapists WHERE id = $1`, therapistID)
	t, err := scanTherapist(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("therapist %s: %w", therapistID, ErrNotFound)
		}
		r.logger.Error("failed to find therapist", zap.Error(err), zap.String("therapist_id", therapistID))
		return nil, fmt.Errorf("failed to find therapist: %w", err)
	}

	links, err := r.specialtyLinks(ctx, &therapistID)
	if err != nil {
		return nil, err
	}
	if s, ok := links[therapistID]; ok {
		t.Specialties = s
	}

	return t, nil
}

func (r *TherapistRepository) specialtyLinks(ctx context.Context, therapistID *string) (map[string][]model.Specialty, error) {
	query := `
		SELECT ts.therapist_id, s.id, s.name, s.description, s.is_active
		FROM therapist_specialties ts
		JOIN specialties s ON s.id = ts.specialty_id
		WHERE $1::uuid IS NULL OR ts.therapist_id = $1::uuid
		ORDER BY s.name
	`

	rows, err := r.db.Query(ctx, query, therapistID)
	if err != nil {
		r.logger.Error("failed to load therapist specialties", zap.Error(err))
		return nil, fmt.Errorf("failed to load therapist specialties: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Specialty)
	for rows.Next() {
		var (
			owner string
			s     model.Specialty
		)
		if err := rows.Scan(&owner, &s.ID, &s.Name, &s.Description, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan specialty: %w", err)
		}
		out[owner] = append(out[owner], s)
	}

	return out, rows.Err()
}

// UpdatePhotoURL sets the profile photo location of a therapist
func (r *TherapistRepository) UpdatePhotoURL(ctx context.Context, therapistID, photoURL string) error {
	tag, err := r.db.Exec(ctx, `UPDATE therapists SET photo_url = $2 WHERE id = $1`, therapistID, photoURL)
	if err != nil {
		r.logger.Error("failed to update therapist photo", zap.Error(err), zap.String("therapist_id", therapistID))
		return fmt.Errorf("failed to update therapist photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("therapist %s: %w", therapistID, ErrNotFound)
	}
	return nil
}

// ListSpecialties retrieves active specialties ordered by name
func (r *TherapistRepository) ListSpecialties(ctx context.Context) ([]model.Specialty, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, is_active
		FROM specialties
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		r.logger.Error("failed to list specialties", zap.Error(err))
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}
	defer rows.Close()

	specialties := []model.Specialty{}
	for rows.Next() {
		var s model.Specialty
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan specialty: %w", err)
		}
		specialties = append(specialties, s)
	}

	return specialties, rows.Err()
}

// FindSpecialty retrieves a specialty by ID
func (r *TherapistRepository) FindSpecialty(ctx context.Context, specialtyID string) (*model.Specialty, error) {
	var s model.Specialty
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, is_active FROM specialties WHERE id = $1`,
		specialtyID,
	).Scan(&s.ID, &s.Name, &s.Description, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("specialty %s: %w", specialtyID, ErrNotFound)
		}
		r.logger.Error("failed to find specialty", zap.Error(err), zap.String("specialty_id", specialtyID))
		return nil, fmt.Errorf("failed to find specialty: %w", err)
	}
	return &s, nil
}
