package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// Homepage limits
const (
	HomepagePinnedLimit = 3
	HomepageRecentLimit = 5
)

// ContentStore reads published articles and announcements
type ContentStore interface {
	ListPublishedArticles(ctx context.Context) ([]model.Article, error)
	FindPublishedArticle(ctx context.Context, articleID string) (*model.Article, error)
	ListActiveCategories(ctx context.Context) ([]model.AnnouncementCategory, error)
	ListVisibleAnnouncements(ctx context.Context, now time.Time, filter model.AnnouncementFilter) ([]model.Announcement, error)
	ViewAnnouncement(ctx context.Context, announcementID string, now time.Time) (*model.Announcement, error)
}

// Homepage is the announcement block of the landing page
type Homepage struct {
	Pinned []model.Announcement
	Recent []model.Announcement
}

// ContentService serves the public articles and announcements
type ContentService struct {
	store  ContentStore
	logger *zap.Logger
	now    func() time.Time
}

// NewContentService creates a new ContentService
func NewContentService(store ContentStore, logger *zap.Logger) *ContentService {
	return &ContentService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ListArticles returns the published articles, newest first
func (s *ContentService) ListArticles(ctx context.Context) ([]model.Article, error) {
	articles, err := s.store.ListPublishedArticles(ctx)
	if err != nil {
		s.logger.Error("failed to list articles", zap.Error(err))
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// GetArticle returns one published article
func (s *ContentService) GetArticle(ctx context.Context, articleID string) (*model.Article, error) {
	if _, err := uuid.Parse(articleID); err != nil {
		return nil, fmt.Errorf("article %q: %w", articleID, ErrNotFound)
	}
	a, err := s.store.FindPublishedArticle(ctx, articleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return a, nil
}

// ListCategories returns the active announcement categories
func (s *ContentService) ListCategories(ctx context.Context) ([]model.AnnouncementCategory, error) {
	categories, err := s.store.ListActiveCategories(ctx)
	if err != nil {
		s.logger.Error("failed to list announcement categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list announcement categories: %w", err)
	}
	return categories, nil
}

// ListAnnouncements returns the currently visible announcements matching
// filter, pinned first
func (s *ContentService) ListAnnouncements(ctx context.Context, filter model.AnnouncementFilter) ([]model.Announcement, error) {
	filter.CategoryID = strings.TrimSpace(filter.CategoryID)
	filter.Search = strings.TrimSpace(filter.Search)

	if filter.CategoryID != "" {
		if _, err := uuid.Parse(filter.CategoryID); err != nil {
			return nil, invalid("category", "must be a UUID")
		}
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, invalid("priority", "unknown priority %q", filter.Priority)
	}

	announcements, err := s.store.ListVisibleAnnouncements(ctx, s.now(), filter)
	if err != nil {
		s.logger.Error("failed to list announcements", zap.Error(err))
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return announcements, nil
}

// ViewAnnouncement returns a visible announcement and counts the view
func (s *ContentService) ViewAnnouncement(ctx context.Context, announcementID string) (*model.Announcement, error) {
	if _, err := uuid.Parse(announcementID); err != nil {
		return nil, fmt.Errorf("announcement %q: %w", announcementID, ErrNotFound)
	}
	a, err := s.store.ViewAnnouncement(ctx, announcementID, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}
	return a, nil
}

// Homepage returns up to three pinned homepage announcements and the five
// most recent of the rest
func (s *ContentService) Homepage(ctx context.Context) (*Homepage, error) {
	announcements, err := s.store.ListVisibleAnnouncements(ctx, s.now(), model.AnnouncementFilter{HomepageOnly: true})
	if err != nil {
		s.logger.Error("failed to list homepage announcements", zap.Error(err))
		return nil, fmt.Errorf("failed to list homepage announcements: %w", err)
	}
	return SelectHomepage(announcements), nil
}

// SelectHomepage splits homepage announcements into the pinned block and the
// recent block. Pinned announcements that did not fit their block compete
// for the recent one. Recent entries are ordered by publish date, undated last.
func SelectHomepage(announcements []model.Announcement) *Homepage {
	page := &Homepage{
		Pinned: []model.Announcement{},
		Recent: []model.Announcement{},
	}

	rest := make([]model.Announcement, 0, len(announcements))
	for _, a := range announcements {
		if a.IsPinned && len(page.Pinned) < HomepagePinnedLimit {
			page.Pinned = append(page.Pinned, a)
			continue
		}
		rest = append(rest, a)
	}

	sort.SliceStable(rest, func(i, j int) bool {
		pi, pj := rest[i].PublishDate, rest[j].PublishDate
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})
	if len(rest) > HomepageRecentLimit {
		rest = rest[:HomepageRecentLimit]
	}
	page.Recent = append(page.Recent, rest...)
	return page
}
