package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mindcare-tw/mindcare-backend/internal/service"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// AssessmentService is the assessment engine used by AssessmentHandler
type AssessmentService interface {
	ListTests(ctx context.Context) ([]model.Test, error)
	ListQuestions(ctx context.Context, code model.TestCode) ([]model.Question, error)
	SubmitResponse(ctx context.Context, code model.TestCode, items []model.AssessmentResponseItem, userID *string) (*model.AssessmentResult, error)
	ListResults(ctx context.Context, userID string) ([]model.AssessmentResult, error)
}

// AssessmentHandler implements assessment API endpoints
type AssessmentHandler struct {
	service AssessmentService
	logger  *zap.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler
func NewAssessmentHandler(service AssessmentService, logger *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger,
	}
}

// ListAssessmentTests lists the available questionnaires
func (h *AssessmentHandler) ListAssessmentTests(c *gin.Context) {
	tests, err := h.service.ListTests(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "list tests")
		return
	}

	response := make([]api.Test, 0, len(tests))
	for _, t := range tests {
		response = append(response, api.Test{Code: string(t.Code), Name: t.Name, Description: t.Description})
	}
	c.JSON(http.StatusOK, response)
}

// ListAssessmentQuestions returns the ordered questions of a test
func (h *AssessmentHandler) ListAssessmentQuestions(c *gin.Context, code string) {
	testCode, err := service.ParseTestCode(code)
	if err != nil {
		respondError(c, h.logger, err, "list questions")
		return
	}

	questions, err := h.service.ListQuestions(c.Request.Context(), testCode)
	if err != nil {
		respondError(c, h.logger, err, "list questions")
		return
	}

	response := make([]api.Question, 0, len(questions))
	for _, q := range questions {
		choices := make([]api.Choice, 0, len(q.Choices))
		for _, ch := range q.Choices {
			choices = append(choices, api.Choice{Id: ch.ID, Text: ch.Text, Score: ch.Score})
		}
		response = append(response, api.Question{Id: q.ID, Order: q.Order, Text: q.Text, Choices: choices})
	}
	c.JSON(http.StatusOK, response)
}

// SubmitAssessmentResponse scores a submission. Authenticated callers get
// the result linked to their account.
func (h *AssessmentHandler) SubmitAssessmentResponse(c *gin.Context, code string) {
	testCode, err := service.ParseTestCode(code)
	if err != nil {
		respondError(c, h.logger, err, "submit assessment")
		return
	}

	var req api.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	items := make([]model.AssessmentResponseItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.AssessmentResponseItem{QuestionID: it.Question, ChoiceID: it.Choice})
	}

	var userID *string
	if uid := c.GetString("user_id"); uid != "" {
		userID = &uid
	}

	result, err := h.service.SubmitResponse(c.Request.Context(), testCode, items, userID)
	if err != nil {
		respondError(c, h.logger, err, "submit assessment")
		return
	}

	c.JSON(http.StatusCreated, toAPIResult(result))
}

// ListAssessmentResults returns the caller's results; anonymous callers get an empty list
func (h *AssessmentHandler) ListAssessmentResults(c *gin.Context) {
	results, err := h.service.ListResults(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, h.logger, err, "list assessment results")
		return
	}

	response := make([]api.AssessmentResult, 0, len(results))
	for i := range results {
		response = append(response, toAPIResult(&results[i]))
	}
	c.JSON(http.StatusOK, response)
}
