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

// AssessmentRepository manages questionnaires and scored results
type AssessmentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAssessmentRepository creates a new AssessmentRepository
func NewAssessmentRepository(db *pgxpool.Pool, logger *zap.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:     db,
		logger: logger,
	}
}

// ListTests retrieves all questionnaires ordered by code
func (r *AssessmentRepository) ListTests(ctx context.Context) ([]model.Test, error) {
	query := `
		SELECT code, name, description
		FROM assessment_tests
		ORDER BY code DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list tests", zap.Error(err))
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	tests := []model.Test{}
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.Code, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tests: %w", err)
	}

	return tests, nil
}

// FindTest retrieves a questionnaire by code
func (r *AssessmentRepository) FindTest(ctx context.Context, code model.TestCode) (*model.Test, error) {
	query := `SELECT code, name, description FROM assessment_tests WHERE code = $1`

	var t model.Test
	err := r.db.QueryRow(ctx, query, code).Scan(&t.Code, &t.Name, &t.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("test %s: %w", code, ErrNotFound)
		}
		r.logger.Error("failed to find test", zap.Error(err), zap.String("test_code", string(code)))
		return nil, fmt.Errorf("failed to find test: %w", err)
	}

	return &t, nil
}

// ListQuestions retrieves the questions of a test with their choices,
// ordered by question order then choice position
func (r *AssessmentRepository) ListQuestions(ctx context.Context, code model.TestCode) ([]model.Question, error) {
	query := `
		SELECT q.id, q.test_code, q.q_order, q.text, c.id, c.text, c.score
		FROM assessment_questions q
		JOIN assessment_choices c ON c.question_id = q.id
		WHERE q.test_code = $1
		ORDER BY q.q_order, c.position
	`

	rows, err := r.db.Query(ctx, query, code)
	if err != nil {
		r.logger.Error("failed to list questions", zap.Error(err), zap.String("test_code", string(code)))
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q model.Question
			c model.Choice
		)
		if err := rows.Scan(&q.ID, &q.TestCode, &q.Order, &q.Text, &c.ID, &c.Text, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}

		if n := len(questions); n > 0 && questions[n-1].ID == q.ID {
			questions[n-1].Choices = append(questions[n-1].Choices, c)
			continue
		}
		q.Choices = []model.Choice{c}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// SaveResult stores a result and its items in one transaction
func (r *AssessmentRepository) SaveResult(ctx context.Context, result *model.AssessmentResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO assessment_results (
			id, test_code, user_id, total_score, risk_level,
			has_suicide_risk, recommendation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		result.ID,
		result.TestCode,
		result.UserID,
		result.TotalScore,
		result.RiskLevel,
		result.HasSuicideRisk,
		result.Recommendation,
		result.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert assessment result",
			zap.Error(err),
			zap.String("result_id", result.ID),
		)
		return fmt.Errorf("failed to insert assessment result: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range result.Items {
		batch.Queue(`
			INSERT INTO assessment_result_items (result_id, question_id, choice_id, score)
			VALUES ($1, $2, $3, $4)
		`, result.ID, item.QuestionID, item.ChoiceID, item.Score)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("failed to insert assessment result items",
			zap.Error(err),
			zap.String("result_id", result.ID),
		)
		return fmt.Errorf("failed to insert assessment result items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit assessment result: %w", err)
	}

	return nil
}

// ListResultsByUser retrieves a user's results, most recent first
func (r *AssessmentRepository) ListResultsByUser(ctx context.Context, userID string) ([]model.AssessmentResult, error) {
	query := `
		SELECT
			r.id, r.test_code, r.user_id, r.total_score, r.risk_level,
			r.has_suicide_risk, r.recommendation, r.created_at,
			i.question_id, i.choice_id, i.score
		FROM assessment_results r
		LEFT JOIN assessment_result_items i ON i.result_id = r.id
		LEFT JOIN assessment_questions q ON q.id = i.question_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id, q.q_order
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list assessment results", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to list assessment results: %w", err)
	}
	defer rows.Close()

	results := []model.AssessmentResult{}
	for rows.Next() {
		var (
			res        model.AssessmentResult
			questionID *string
			choiceID   *string
			score      *int
		)
		err := rows.Scan(
			&res.ID,
			&res.TestCode,
			&res.UserID,
			&res.TotalScore,
			&res.RiskLevel,
			&res.HasSuicideRisk,
			&res.Recommendation,
			&res.CreatedAt,
			&questionID,
			&choiceID,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment result: %w", err)
		}

		n := len(results)
		if n == 0 || results[n-1].ID != res.ID {
			res.Items = []model.AssessmentResultItem{}
			results = append(results, res)
			n++
		}
		if questionID != nil {
			results[n-1].Items = append(results[n-1].Items, model.AssessmentResultItem{
				QuestionID: *questionID,
				ChoiceID:   *choiceID,
				Score:      *score,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assessment results: %w", err)
	}

	return results, nil
}
