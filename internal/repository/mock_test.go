package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"karmafeed/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestKarmaRepository_Append(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewKarmaRepository(db)
	ctx := context.Background()

	ev, err := models.NewKarmaEvent(models.TargetPost, true, 1, 2, 3, 4)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "karma_events"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	require.NoError(t, repo.Append(ctx, ev))
	assert.Equal(t, uint(11), ev.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKarmaRepository_TopKarmaQueryShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewKarmaRepository(db)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT karma_events\.beneficiary_id, users\.username, SUM\(karma_events\.delta\) AS karma FROM "karma_events" ` +
		`JOIN users ON users\.id = karma_events\.beneficiary_id WHERE karma_events\.created_at >= \$1 ` +
		`GROUP BY karma_events\.beneficiary_id, users\.username HAVING SUM\(karma_events\.delta\) <> 0 ` +
		`ORDER BY karma DESC, karma_events\.beneficiary_id ASC LIMIT \$2`).
		WithArgs(since, 5).
		WillReturnRows(sqlmock.NewRows([]string{"beneficiary_id", "username", "karma"}).
			AddRow(1, "alice", 10).
			AddRow(2, "bob", 3))

	rows, err := repo.TopKarma(context.Background(), since, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.KarmaTotal{BeneficiaryID: 1, Username: "alice", Karma: 10}, rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	post := &models.Post{Body: "hello", UserID: 1}
	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepository_InsertTranslatesUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "post_likes"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), models.TargetPost, 1, 2)
	assert.ErrorIs(t, err, ErrLikeExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: post_likes.post_id, post_likes.user_id")))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(nil))
}
