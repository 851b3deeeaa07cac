package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// AssessmentStore persists questionnaires and results
type AssessmentStore interface {
	ListTests(ctx context.Context) ([]model.Test, error)
	FindTest(ctx context.Context, code model.TestCode) (*model.Test, error)
	ListQuestions(ctx context.Context, code model.TestCode) ([]model.Question, error)
	SaveResult(ctx context.Context, result *model.AssessmentResult) error
	ListResultsByUser(ctx context.Context, userID string) ([]model.AssessmentResult, error)
}

// AssessmentService scores self-assessment submissions
type AssessmentService struct {
	store  AssessmentStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAssessmentService creates a new AssessmentService
func NewAssessmentService(store AssessmentStore, logger *zap.Logger) *AssessmentService {
	return &AssessmentService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ParseTestCode normalises a test code from a URL path
func ParseTestCode(raw string) (model.TestCode, error) {
	code := model.TestCode(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := RuleFor(code); !ok {
		return "", fmt.Errorf("unknown test %q: %w", raw, ErrNotFound)
	}
	return code, nil
}

// ListTests returns all questionnaires
func (s *AssessmentService) ListTests(ctx context.Context) ([]model.Test, error) {
	tests, err := s.store.ListTests(ctx)
	if err != nil {
		s.logger.Error("failed to list tests", zap.Error(err))
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

// ListQuestions returns the ordered question set of a test
func (s *AssessmentService) ListQuestions(ctx context.Context, code model.TestCode) ([]model.Question, error) {
	if _, ok := RuleFor(code); !ok {
		return nil, fmt.Errorf("unknown test %q: %w", code, ErrNotFound)
	}

	questions, err := s.store.ListQuestions(ctx, code)
	if err != nil {
		s.logger.Error("failed to list questions",
			zap.Error(err),
			zap.String("test_code", string(code)),
		)
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// SubmitResponse scores a complete response set and stores the result.
// Every call creates a new result.
func (s *AssessmentService) SubmitResponse(ctx context.Context, code model.TestCode, items []model.AssessmentResponseItem, userID *string) (*model.AssessmentResult, error) {
	rule, ok := RuleFor(code)
	if !ok {
		return nil, fmt.Errorf("unknown test %q: %w", code, ErrNotFound)
	}

	questions, err := s.store.ListQuestions(ctx, code)
	if err != nil {
		s.logger.Error("failed to load questions for scoring",
			zap.Error(err),
			zap.String("test_code", string(code)),
		)
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	eval, err := Evaluate(rule, questions, items)
	if err != nil {
		return nil, err
	}

	result := &model.AssessmentResult{
		ID:             uuid.New().String(),
		TestCode:       code,
		UserID:         userID,
		TotalScore:     eval.TotalScore,
		RiskLevel:      eval.RiskLevel,
		HasSuicideRisk: eval.HasSuicideRisk,
		Recommendation: eval.Recommendation,
		Items:          eval.Items,
		CreatedAt:      s.now(),
	}

	if err := s.store.SaveResult(ctx, result); err != nil {
		s.logger.Error("failed to save assessment result",
			zap.Error(err),
			zap.String("test_code", string(code)),
		)
		return nil, fmt.Errorf("failed to save assessment result: %w", err)
	}

	fields := []zap.Field{
		zap.String("result_id", result.ID),
		zap.String("test_code", string(code)),
		zap.Int("total_score", result.TotalScore),
		zap.String("risk_level", result.RiskLevel),
	}
	if result.HasSuicideRisk {
		s.logger.Warn("assessment submitted with suicide-risk flag", fields...)
	} else {
		s.logger.Info("assessment submitted", fields...)
	}

	return result, nil
}

// ListResults returns the caller's results, most recent first. Anonymous
// callers get an empty list.
func (s *AssessmentService) ListResults(ctx context.Context, userID string) ([]model.AssessmentResult, error) {
	if userID == "" {
		return []model.AssessmentResult{}, nil
	}

	results, err := s.store.ListResultsByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []model.AssessmentResult{}, nil
		}
		s.logger.Error("failed to list assessment results",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to list assessment results: %w", err)
	}
	if results == nil {
		results = []model.AssessmentResult{}
	}
	return results, nil
}
