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

// ContentService serves articles and announcements
type ContentService interface {
	ListArticles(ctx context.Context) ([]model.Article, error)
	GetArticle(ctx context.Context, articleID string) (*model.Article, error)
	ListCategories(ctx context.Context) ([]model.AnnouncementCategory, error)
	ListAnnouncements(ctx context.Context, filter model.AnnouncementFilter) ([]model.Announcement, error)
	ViewAnnouncement(ctx context.Context, announcementID string) (*model.Announcement, error)
	Homepage(ctx context.Context) (*service.Homepage, error)
}

// ContentHandler implements the public article and announcement endpoints
type ContentHandler struct {
	service ContentService
	logger  *zap.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(service ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		service: service,
		logger:  logger,
	}
}

// ListArticles lists published articles
func (h *ContentHandler) ListArticles(c *gin.Context) {
	articles, err := h.service.ListArticles(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "list articles")
		return
	}

	response := make([]api.Article, 0, len(articles))
	for i := range articles {
		response = append(response, toAPIArticle(&articles[i]))
	}
	c.JSON(http.StatusOK, response)
}

// GetArticle returns one published article
func (h *ContentHandler) GetArticle(c *gin.Context, id string) {
	article, err := h.service.GetArticle(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "get article")
		return
	}
	c.JSON(http.StatusOK, toAPIArticle(article))
}

// ListAnnouncements lists visible announcements narrowed by the query filters
func (h *ContentHandler) ListAnnouncements(c *gin.Context, params api.ListAnnouncementsParams) {
	filter := model.AnnouncementFilter{Pinned: params.Pinned}
	if params.Category != nil {
		filter.CategoryID = *params.Category
	}
	if params.Priority != nil {
		filter.Priority = model.AnnouncementPriority(*params.Priority)
	}
	if params.Q != nil {
		filter.Search = *params.Q
	}

	announcements, err := h.service.ListAnnouncements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, "list announcements")
		return
	}
	c.JSON(http.StatusOK, toAPIAnnouncements(announcements))
}

// ListAnnouncementCategories lists active categories
func (h *ContentHandler) ListAnnouncementCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "list announcement categories")
		return
	}

	response := make([]api.AnnouncementCategory, 0, len(categories))
	for _, category := range categories {
		response = append(response, toAPICategory(category))
	}
	c.JSON(http.StatusOK, response)
}

// GetHomepageAnnouncements returns the pinned and recent homepage blocks
func (h *ContentHandler) GetHomepageAnnouncements(c *gin.Context) {
	page, err := h.service.Homepage(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "load homepage announcements")
		return
	}
	c.JSON(http.StatusOK, api.HomepageAnnouncements{
		PinnedAnnouncements: toAPIAnnouncements(page.Pinned),
		RecentAnnouncements: toAPIAnnouncements(page.Recent),
	})
}

// GetAnnouncement returns one visible announcement and counts the view
func (h *ContentHandler) GetAnnouncement(c *gin.Context, id string) {
	announcement, err := h.service.ViewAnnouncement(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "get announcement")
		return
	}
	c.JSON(http.StatusOK, toAPIAnnouncement(announcement))
}
