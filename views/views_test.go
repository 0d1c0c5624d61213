package views

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamtour/tourism/listing"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/services"
	"github.com/kamtour/tourism/utils"
)

func TestSummary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	published := now.Add(-time.Hour)
	key := "posts/3/a.png"
	pr := Presenter{Images: &utils.LocalStore{Root: t.TempDir(), BaseURL: "/storage"}, Now: func() time.Time { return now }}

	s := pr.Summary(listing.Item{
		Post: models.Post{
			ID: 3, Title: "Angkor Wat", Slug: "angkor-wat",
			Content:     "<p>" + strings.Repeat("stone ", 100) + "</p>",
			Image:       &key,
			PublishedAt: &published,
		},
		CommentsCount: 4,
		Category:      &models.Category{ID: 1, Name: "Temple"},
	})

	require.NotNil(t, s.ImageURL)
	assert.Equal(t, "/storage/posts/3/a.png", *s.ImageURL)
	assert.True(t, s.Published)
	assert.EqualValues(t, 4, s.CommentsCount)
	assert.Equal(t, "Temple", s.Category.Name)
	assert.Nil(t, s.Province)
	assert.True(t, strings.HasSuffix(s.Excerpt, "..."))
	assert.NotContains(t, s.Excerpt, "<p>")
}

func TestDetailKeepsOrphanedCommentAuthorID(t *testing.T) {
	pr := Presenter{}
	d := pr.Detail(&services.PostDetail{
		Post: models.Post{ID: 9, Title: "Kep", Content: "crab"},
		Comments: []services.CommentWithAuthor{
			{Comment: models.Comment{ID: 1, UserID: 5, Content: "yum"}, Author: &models.User{ID: 5, Name: "alice"}},
			{Comment: models.Comment{ID: 2, UserID: 6, Content: "gone"}},
		},
	})

	assert.Nil(t, d.ImageURL)
	assert.False(t, d.Published)
	assert.EqualValues(t, 2, d.CommentsCount)
	require.Len(t, d.Comments, 2)
	assert.Equal(t, "alice", d.Comments[0].User.Name)
	assert.Equal(t, uint(6), d.Comments[1].User.ID)
	assert.Empty(t, d.Comments[1].User.Name)
}
