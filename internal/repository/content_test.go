package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createAnnouncement(t *testing.T, repo *ContentRepository, a model.Announcement) *model.Announcement {
	t.Helper()
	a.ID = uuid.NewString()
	require.NoError(t, repo.CreateAnnouncement(context.Background(), &a))
	return &a
}

func titles(announcements []model.Announcement) []string {
	out := make([]string, 0, len(announcements))
	for _, a := range announcements {
		out = append(out, a.Title)
	}
	return out
}

func TestContentRepository_Articles(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewContentRepository(db, zap.NewNop())
	now := time.Now()

	older := &model.Article{ID: uuid.NewString(), Title: "認識焦慮", Tags: []string{"焦慮"}, IsPublished: true, PublishedAt: now.Add(-48 * time.Hour)}
	newer := &model.Article{ID: uuid.NewString(), Title: "睡眠與情緒", IsPublished: true}
	draft := &model.Article{ID: uuid.NewString(), Title: "草稿", IsPublished: false}
	for _, a := range []*model.Article{older, newer, draft} {
		require.NoError(t, repo.CreateArticle(ctx, a))
	}
	assert.False(t, newer.PublishedAt.IsZero(), "publish time defaults to now")

	articles, err := repo.ListPublishedArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, newer.ID, articles[0].ID, "newest first")
	assert.Equal(t, []string{"焦慮"}, articles[1].Tags)
	assert.Equal(t, []string{}, articles[0].Tags)

	found, err := repo.FindPublishedArticle(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "認識焦慮", found.Title)

	_, err = repo.FindPublishedArticle(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound, "unpublished articles are hidden")
}

func TestContentRepository_Announcements(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewContentRepository(db, zap.NewNop())

	categories, err := repo.ListActiveCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "中心公告", categories[0].Name, "ordered by display order")
	events := categories[1]

	now := time.Now()
	hoursAgo := func(h int) *time.Time {
		at := now.Add(-time.Duration(h) * time.Hour)
		return &at
	}

	pinned := createAnnouncement(t, repo, model.Announcement{
		Title: "春節休診", Status: model.AnnouncementPublished, IsPinned: true, ShowOnHomepage: true,
		Priority: model.PriorityHigh, PublishDate: hoursAgo(48),
	})
	workshop := createAnnouncement(t, repo, model.Announcement{
		Title: "壓力調適講座", Summary: "名額 100% 開放", Status: model.AnnouncementPublished,
		Category: &events, ShowOnHomepage: true, PublishDate: hoursAgo(1),
	})
	group := createAnnouncement(t, repo, model.Announcement{
		Title: "團體招募", Summary: "人際關係成長團體", Status: model.AnnouncementPublished,
		Category: &events, PublishDate: hoursAgo(5), ExpireDate: timePtr(now.Add(24 * time.Hour)),
	})
	createAnnouncement(t, repo, model.Announcement{Title: "草稿公告", Status: model.AnnouncementDraft})
	createAnnouncement(t, repo, model.Announcement{Title: "排程公告", Status: model.AnnouncementPublished, PublishDate: timePtr(now.Add(time.Hour))})
	createAnnouncement(t, repo, model.Announcement{Title: "過期公告", Status: model.AnnouncementPublished, ExpireDate: hoursAgo(1)})
	createAnnouncement(t, repo, model.Announcement{Title: "封存公告", Status: model.AnnouncementArchived, PublishDate: hoursAgo(3)})

	t.Run("only visible, pinned first then newest", func(t *testing.T) {
		got, err := repo.ListVisibleAnnouncements(ctx, now, model.AnnouncementFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"春節休診", "壓力調適講座", "團體招募"}, titles(got))
		require.NotNil(t, got[1].Category)
		assert.Equal(t, "活動訊息", got[1].Category.Name)
		assert.Nil(t, got[0].Category)
	})

	t.Run("published without date is published at creation", func(t *testing.T) {
		a := createAnnouncement(t, repo, model.Announcement{Title: "即時公告", Status: model.AnnouncementPublished})
		require.NotNil(t, a.PublishDate)

		got, err := repo.ListVisibleAnnouncements(ctx, time.Now().Add(time.Second), model.AnnouncementFilter{Search: "即時"})
		require.NoError(t, err)
		assert.Equal(t, []string{"即時公告"}, titles(got))
	})

	t.Run("filters", func(t *testing.T) {
		notPinned := false
		tests := []struct {
			name   string
			filter model.AnnouncementFilter
			want   []string
		}{
			{"category", model.AnnouncementFilter{CategoryID: events.ID}, []string{"壓力調適講座", "團體招募"}},
			{"priority", model.AnnouncementFilter{Priority: model.PriorityHigh}, []string{"春節休診"}},
			{"not pinned", model.AnnouncementFilter{Pinned: &notPinned, Search: "團"}, []string{"團體招募"}},
			{"search matches summary", model.AnnouncementFilter{Search: "成長"}, []string{"團體招募"}},
			{"percent is literal", model.AnnouncementFilter{Search: "100%"}, []string{"壓力調適講座"}},
			{"underscore is literal", model.AnnouncementFilter{Search: "_"}, []string{}},
			{"homepage only", model.AnnouncementFilter{HomepageOnly: true}, []string{"春節休診", "壓力調適講座"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.ListVisibleAnnouncements(ctx, now, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, titles(got))
			})
		}
	})

	t.Run("expiry is exclusive", func(t *testing.T) {
		got, err := repo.ListVisibleAnnouncements(ctx, *group.ExpireDate, model.AnnouncementFilter{CategoryID: events.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"壓力調適講座"}, titles(got))
	})

	t.Run("view counts", func(t *testing.T) {
		first, err := repo.ViewAnnouncement(ctx, workshop.ID, now)
		require.NoError(t, err)
		assert.Equal(t, 1, first.ViewsCount)

		second, err := repo.ViewAnnouncement(ctx, workshop.ID, now)
		require.NoError(t, err)
		assert.Equal(t, 2, second.ViewsCount)
		require.NotNil(t, second.Category)
		assert.Equal(t, events.ID, second.Category.ID)

		_, err = repo.ViewAnnouncement(ctx, pinned.ID, pinned.PublishDate.Add(-time.Minute))
		assert.ErrorIs(t, err, ErrNotFound, "not yet published at that time")

		_, err = repo.ViewAnnouncement(ctx, uuid.NewString(), now)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
