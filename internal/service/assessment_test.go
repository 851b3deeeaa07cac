package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseTestCode(t *testing.T) {
	code, err := ParseTestCode(" who5 ")
	require.NoError(t, err)
	assert.Equal(t, model.TestCodeWHO5, code)

	_, err = ParseTestCode("phq9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitResponse_StoresScoredResult(t *testing.T) {
	ctx := context.Background()
	store := new(MockAssessmentStore)
	questions := questionSet(model.TestCodeWHO5, 5, 5)

	store.On("ListQuestions", ctx, model.TestCodeWHO5).Return(questions, nil)
	store.On("SaveResult", ctx, mock.AnythingOfType("*model.AssessmentResult")).Return(nil)

	svc := NewAssessmentService(store, zap.NewNop())
	userID := "user-1"

	result, err := svc.SubmitResponse(ctx, model.TestCodeWHO5, answers(questions, 5, 5, 5, 5, 5), &userID)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 100, result.TotalScore)
	assert.Equal(t, RiskWHO5Good, result.RiskLevel)
	assert.Equal(t, &userID, result.UserID)
	store.AssertExpectations(t)
}

func TestSubmitResponse_EachCallCreatesNewResult(t *testing.T) {
	ctx := context.Background()
	store := new(MockAssessmentStore)
	questions := questionSet(model.TestCodeWHO5, 5, 5)

	store.On("ListQuestions", ctx, model.TestCodeWHO5).Return(questions, nil)
	store.On("SaveResult", ctx, mock.Anything).Return(nil).Twice()

	svc := NewAssessmentService(store, zap.NewNop())
	items := answers(questions, 2, 2, 2, 2, 2)

	first, err := svc.SubmitResponse(ctx, model.TestCodeWHO5, items, nil)
	require.NoError(t, err)
	second, err := svc.SubmitResponse(ctx, model.TestCodeWHO5, items, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.TotalScore, second.TotalScore)
	store.AssertNumberOfCalls(t, "SaveResult", 2)
}

func TestSubmitResponse_InvalidItemsNotSaved(t *testing.T) {
	ctx := context.Background()
	store := new(MockAssessmentStore)
	questions := questionSet(model.TestCodeWHO5, 5, 5)
	store.On("ListQuestions", ctx, model.TestCodeWHO5).Return(questions, nil)

	svc := NewAssessmentService(store, zap.NewNop())

	_, err := svc.SubmitResponse(ctx, model.TestCodeWHO5, answers(questions, 1, 1), nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	store.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
}

func TestSubmitResponse_UnknownTest(t *testing.T) {
	svc := NewAssessmentService(new(MockAssessmentStore), zap.NewNop())
	_, err := svc.SubmitResponse(context.Background(), "PHQ9", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitResponse_FlaggedResultLogsWarning(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	store := new(MockAssessmentStore)
	questions := questionSet(model.TestCodeBSRS5, 6, 4)

	store.On("ListQuestions", ctx, model.TestCodeBSRS5).Return(questions, nil)
	store.On("SaveResult", ctx, mock.Anything).Return(nil)

	svc := NewAssessmentService(store, zap.New(core))
	result, err := svc.SubmitResponse(ctx, model.TestCodeBSRS5, answers(questions, 0, 0, 0, 0, 0, 3), nil)
	require.NoError(t, err)
	assert.True(t, result.HasSuicideRisk)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "assessment submitted with suicide-risk flag", warnings[0].Message)
}

func TestSubmitResponse_StoreFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockAssessmentStore)
	questions := questionSet(model.TestCodeWHO5, 5, 5)

	store.On("ListQuestions", ctx, model.TestCodeWHO5).Return(questions, nil)
	store.On("SaveResult", ctx, mock.Anything).Return(errors.New("connection refused"))

	svc := NewAssessmentService(store, zap.NewNop())
	_, err := svc.SubmitResponse(ctx, model.TestCodeWHO5, answers(questions, 0, 0, 0, 0, 0), nil)
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "failed to save assessment result")
}

func TestListResults_AnonymousIsEmpty(t *testing.T) {
	store := new(MockAssessmentStore)
	svc := NewAssessmentService(store, zap.NewNop())

	results, err := svc.ListResults(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	store.AssertNotCalled(t, "ListResultsByUser", mock.Anything, mock.Anything)
}

func TestListResults_ReturnsStoreOrder(t *testing.T) {
	ctx := context.Background()
	store := new(MockAssessmentStore)
	stored := []model.AssessmentResult{{ID: "newer"}, {ID: "older"}}
	store.On("ListResultsByUser", ctx, "user-1").Return(stored, nil)

	svc := NewAssessmentService(store, zap.NewNop())
	results, err := svc.ListResults(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, stored, results)
}

func TestListQuestions_UnknownTest(t *testing.T) {
	svc := NewAssessmentService(new(MockAssessmentStore), zap.NewNop())
	_, err := svc.ListQuestions(context.Background(), "X")
	assert.ErrorIs(t, err, ErrNotFound)
}
