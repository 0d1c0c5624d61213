package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamtour/tourism/dbtest"
	"github.com/kamtour/tourism/models"
)

func identityOf(u models.User) models.Identity {
	return models.Identity{UserID: u.ID, Name: u.Name, Role: u.Role}
}

func TestAddComment(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Waterfall")
	post := dbtest.Post(t, db, models.Post{Title: "Bou Sra", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	alice := dbtest.User(t, db, "alice", models.RoleUser)
	svc := NewCommentService(db, 20)
	ctx := context.Background()

	c, err := svc.Add(ctx, identityOf(alice), post.ID, "  <b>Lovely</b><script>x()</script> ")
	require.NoError(t, err)
	assert.Equal(t, "<b>Lovely</b>", c.Content)
	assert.Equal(t, alice.ID, c.UserID)
	assert.Equal(t, post.ID, c.PostID)

	_, err = svc.Add(ctx, identityOf(alice), post.ID, "<script>alert(1)</script>")
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "is required", ve.Fields["content"])

	_, err = svc.Add(ctx, identityOf(alice), post.ID, strings.Repeat("ក", 21))
	ve, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "must be at most 20 characters", ve.Fields["content"])

	_, err = svc.Add(ctx, identityOf(alice), post.ID, strings.Repeat("ក", 20))
	assert.NoError(t, err)

	_, err = svc.Add(ctx, models.Identity{}, post.ID, "hi")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAddCommentRequiresPublishedPost(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Lake")
	draft := dbtest.Post(t, db, models.Post{Title: "Draft", CategoryID: cat.ID})
	alice := dbtest.User(t, db, "alice", models.RoleUser)
	svc := NewCommentService(db, 0)

	_, err := svc.Add(context.Background(), identityOf(alice), draft.ID, "first!")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Add(context.Background(), identityOf(alice), 9999, "first!")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCommentIsOwnerScoped(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "River")
	post := dbtest.Post(t, db, models.Post{Title: "Mekong", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	other := dbtest.Post(t, db, models.Post{Title: "Sangker", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	alice := dbtest.User(t, db, "alice", models.RoleUser)
	bob := dbtest.User(t, db, "bob", models.RoleUser)
	admin := dbtest.User(t, db, "admin", models.RoleAdmin)
	svc := NewCommentService(db, 0)
	ctx := context.Background()

	c, err := svc.Add(ctx, identityOf(alice), post.ID, "dolphins at Kratie")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, identityOf(bob), post.ID, c.ID), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, identityOf(admin), post.ID, c.ID), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, identityOf(alice), other.ID, c.ID), ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Where("id = ?", c.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n, "comment must survive foreign deletes")

	require.NoError(t, svc.Delete(ctx, identityOf(alice), post.ID, c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, identityOf(alice), post.ID, c.ID), ErrNotFound)
}
