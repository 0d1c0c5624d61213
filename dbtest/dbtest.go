// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/models"
)

// NewDB returns a migrated SQLite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=0", uuid.NewString())
	conn, err := config.Open(config.SQLite(dsn), "silent")
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// The in-memory database lives as long as its single connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(conn, models.All()...))
	return conn
}

// Category inserts a category.
func Category(t testing.TB, db *gorm.DB, name string) models.Category {
	t.Helper()
	c := models.Category{Name: name}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// Province inserts a province.
func Province(t testing.TB, db *gorm.DB, nameEN, nameKM string) models.Province {
	t.Helper()
	p := models.Province{NameEN: nameEN, NameKM: nameKM}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// User inserts a user with the given role.
func User(t testing.TB, db *gorm.DB, name, role string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Post inserts p, filling a unique slug when empty.
func Post(t testing.TB, db *gorm.DB, p models.Post) models.Post {
	t.Helper()
	if p.Slug == "" {
		p.Slug = "post-" + uuid.NewString()
	}
	if p.Content == "" {
		p.Content = "content of " + p.Title
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// Comments inserts n comments by userID on postID.
func Comments(t testing.TB, db *gorm.DB, postID, userID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		c := models.Comment{PostID: postID, UserID: userID, Content: fmt.Sprintf("comment %d", i+1)}
		require.NoError(t, db.Create(&c).Error)
	}
}

// Ago returns a UTC time d before now, for published_at fixtures.
func Ago(d time.Duration) *time.Time {
	ts := time.Now().UTC().Add(-d).Truncate(time.Microsecond)
	return &ts
}
