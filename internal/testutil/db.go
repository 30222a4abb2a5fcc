// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"karmafeed/internal/database"
	"karmafeed/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB returns a migrated in-memory SQLite database private to the test.
// A single connection keeps every goroutine on the same in-memory database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts an actor.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post authored by userID.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, body string) *models.Post {
	t.Helper()
	p := &models.Post{UserID: userID, Body: body}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateComment inserts a comment; parentID may be nil. A zero createdAt means now.
func CreateComment(t testing.TB, db *gorm.DB, postID, userID uint, parentID *uint, body string, createdAt time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, UserID: userID, ParentID: parentID, Body: body, CreatedAt: createdAt}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateKarmaEvent inserts a post-targeted ledger row at a fixed time.
func CreateKarmaEvent(t testing.TB, db *gorm.DB, beneficiaryID, actorID, postID uint, delta int, at time.Time) *models.KarmaEvent {
	t.Helper()
	pid := postID
	eventType := models.EventPostLike
	if delta < 0 {
		eventType = models.EventPostUnlike
	}
	ev := &models.KarmaEvent{
		BeneficiaryID: beneficiaryID,
		ActorID:       actorID,
		EventType:     eventType,
		Delta:         delta,
		PostID:        &pid,
		CauseLikeID:   1,
		CreatedAt:     at.UTC(),
	}
	require.NoError(t, db.Create(ev).Error)
	return ev
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
