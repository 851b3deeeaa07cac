package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"go.uber.org/zap"
)

// ContentRepository reads articles and announcements
type ContentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewContentRepository creates a new ContentRepository
func NewContentRepository(db *pgxpool.Pool, logger *zap.Logger) *ContentRepository {
	return &ContentRepository{
		db:     db,
		logger: logger,
	}
}

const articleColumns = `
	id, title, excerpt, content, featured_image_url, tags, author, is_published, published_at
`

func scanArticle(row pgx.Row) (*model.Article, error) {
	var a model.Article
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Excerpt,
		&a.Content,
		&a.FeaturedImageURL,
		&a.Tags,
		&a.Author,
		&a.IsPublished,
		&a.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

// CreateArticle inserts an article. A zero PublishedAt means now.
func (r *ContentRepository) CreateArticle(ctx context.Context, a *model.Article) error {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	var publishedAt *time.Time
	if !a.PublishedAt.IsZero() {
		publishedAt = &a.PublishedAt
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO articles (id, title, excerpt, content, featured_image_url, tags, author, is_published, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::timestamptz, NOW()))
		RETURNING published_at
	`,
		a.ID,
		a.Title,
		a.Excerpt,
		a.Content,
		a.FeaturedImageURL,
		tags,
		a.Author,
		a.IsPublished,
		publishedAt,
	).Scan(&a.PublishedAt)
	if err != nil {
		r.logger.Error("failed to create article", zap.Error(err), zap.String("article_id", a.ID))
		return fmt.Errorf("failed to create article: %w", err)
	}
	return nil
}

// ListPublishedArticles retrieves published articles, newest first
func (r *ContentRepository) ListPublishedArticles(ctx context.Context) ([]model.Article, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE is_published
		ORDER BY published_at DESC, id
	`)
	if err != nil {
		r.logger.Error("failed to list articles", zap.Error(err))
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *a)
	}

	return articles, rows.Err()
}

// FindPublishedArticle retrieves a published article. Unpublished articles
// are reported as not found.
func (r *ContentRepository) FindPublishedArticle(ctx context.Context, articleID string) (*model.Article, error) {
	row := r.db.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1 AND is_published`, articleID)
	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("article %s: %w", articleID, ErrNotFound)
		}
		r.logger.Error("failed to find article", zap.Error(err), zap.String("article_id", articleID))
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	return a, nil
}

// ListActiveCategories retrieves active announcement categories by display order, then name
func (r *ContentRepository) ListActiveCategories(ctx context.Context) ([]model.AnnouncementCategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, color, is_active, sort_order
		FROM announcement_categories
		WHERE is_active
		ORDER BY sort_order, name
	`)
	if err != nil {
		r.logger.Error("failed to list announcement categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list announcement categories: %w", err)
	}
	defer rows.Close()

	categories := []model.AnnouncementCategory{}
	for rows.Next() {
		var c model.AnnouncementCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.IsActive, &c.Order); err != nil {
			return nil, fmt.Errorf("failed to scan announcement category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// announcementSelect joins the category so one row carries the whole announcement
const announcementSelect = `
	SELECT
		a.id, a.title, a.summary, a.content, a.featured_image_url,
		a.priority, a.status, a.is_pinned, a.show_on_homepage,
		a.publish_date, a.expire_date, a.views_count, a.created_at, a.updated_at,
		c.id, c.name, c.description, c.color, c.is_active, c.sort_order
	FROM announcements a
	LEFT JOIN announcement_categories c ON c.id = a.category_id
`

// visibleAt restricts a query to announcements readers may see at $1
const visibleAt = `
	a.status = 'published'
	AND (a.publish_date IS NULL OR a.publish_date <= $1)
	AND (a.expire_date IS NULL OR a.expire_date > $1)
`

func scanAnnouncement(row pgx.Row) (*model.Announcement, error) {
	var (
		a        model.Announcement
		priority string
		status   string

		categoryID    *string
		categoryName  *string
		categoryDesc  *string
		categoryColor *string
		categoryOn    *bool
		categoryOrder *int
	)
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Summary,
		&a.Content,
		&a.FeaturedImageURL,
		&priority,
		&status,
		&a.IsPinned,
		&a.ShowOnHomepage,
		&a.PublishDate,
		&a.ExpireDate,
		&a.ViewsCount,
		&a.CreatedAt,
		&a.UpdatedAt,
		&categoryID,
		&categoryName,
		&categoryDesc,
		&categoryColor,
		&categoryOn,
		&categoryOrder,
	)
	if err != nil {
		return nil, err
	}

	a.Priority = model.AnnouncementPriority(priority)
	a.Status = model.AnnouncementStatus(status)
	if categoryID != nil {
		a.Category = &model.AnnouncementCategory{
			ID:          *categoryID,
			Name:        *categoryName,
			Description: *categoryDesc,
			Color:       *categoryColor,
			IsActive:    *categoryOn,
			Order:       *categoryOrder,
		}
	}
	return &a, nil
}

// CreateAnnouncement inserts an announcement. A published announcement
// without a publish date is published now.
func (r *ContentRepository) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	var categoryID *string
	if a.Category != nil {
		categoryID = &a.Category.ID
	}
	if a.Priority == "" {
		a.Priority = model.PriorityLow
	}
	if a.Status == "" {
		a.Status = model.AnnouncementDraft
	}
	if a.Status == model.AnnouncementPublished && a.PublishDate == nil {
		now := time.Now()
		a.PublishDate = &now
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO announcements (
			id, title, summary, content, category_id, featured_image_url,
			priority, status, is_pinned, show_on_homepage, publish_date, expire_date,
			views_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, NOW(), NOW()
		)
		RETURNING publish_date, created_at, updated_at
	`,
		a.ID,
		a.Title,
		a.Summary,
		a.Content,
		categoryID,
		a.FeaturedImageURL,
		string(a.Priority),
		string(a.Status),
		a.IsPinned,
		a.ShowOnHomepage,
		a.PublishDate,
		a.ExpireDate,
	).Scan(&a.PublishDate, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create announcement", zap.Error(err), zap.String("announcement_id", a.ID))
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListVisibleAnnouncements retrieves the announcements visible at now that
// match filter, pinned first and then newest first
func (r *ContentRepository) ListVisibleAnnouncements(ctx context.Context, now time.Time, filter model.AnnouncementFilter) ([]model.Announcement, error) {
	var categoryID *string
	if filter.CategoryID != "" {
		categoryID = &filter.CategoryID
	}

	query := announcementSelect + `
		WHERE ` + visibleAt + `
			AND ($2::uuid IS NULL OR a.category_id = $2::uuid)
			AND ($3::text = '' OR a.priority = $3::text)
			AND ($4::boolean IS NULL OR a.is_pinned = $4::boolean)
			AND ($5::text = '' OR a.title ILIKE '%' || $5::text || '%' OR a.summary ILIKE '%' || $5::text || '%')
			AND (NOT $6::boolean OR a.show_on_homepage)
		ORDER BY a.is_pinned DESC, a.publish_date DESC NULLS LAST, a.created_at DESC
	`

	rows, err := r.db.Query(ctx, query,
		now,
		categoryID,
		string(filter.Priority),
		filter.Pinned,
		likeEscaper.Replace(filter.Search),
		filter.HomepageOnly,
	)
	if err != nil {
		r.logger.Error("failed to list announcements", zap.Error(err))
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	announcements := []model.Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		announcements = append(announcements, *a)
	}

	return announcements, rows.Err()
}

// ViewAnnouncement increments the view counter of an announcement visible
// at now and returns it. Hidden announcements are reported as not found.
func (r *ContentRepository) ViewAnnouncement(ctx context.Context, announcementID string, now time.Time) (*model.Announcement, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE announcements a
		SET views_count = a.views_count + 1
		WHERE a.id = $2 AND `+visibleAt,
		now, announcementID,
	)
	if err != nil {
		r.logger.Error("failed to count announcement view", zap.Error(err), zap.String("announcement_id", announcementID))
		return nil, fmt.Errorf("failed to count announcement view: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("announcement %s: %w", announcementID, ErrNotFound)
	}

	a, err := scanAnnouncement(r.db.QueryRow(ctx, announcementSelect+` WHERE a.id = $1`, announcementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("announcement %s: %w", announcementID, ErrNotFound)
		}
		r.logger.Error("failed to find announcement", zap.Error(err), zap.String("announcement_id", announcementID))
		return nil, fmt.Errorf("failed to find announcement: %w", err)
	}
	return a, nil
}
