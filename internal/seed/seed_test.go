package seed

import (
	"context"
	"testing"

	"karmafeed/internal/models"
	"karmafeed/internal/repository"
	"karmafeed/internal/service"
	"karmafeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLikeService(db *gorm.DB) *service.LikeService {
	return service.NewLikeService(db,
		repository.NewUserRepository(db),
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
		repository.NewLikeRepository(db),
		repository.NewKarmaRepository(db),
	)
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewTestDB(t)
	opts := Options{
		NumUsers:        6,
		NumPosts:        5,
		CommentsPerPost: 4,
		LikesPerPost:    4,
		Concurrency:     4,
		RandSeed:        42,
	}

	summary, err := NewSeeder(db, newLikeService(db), opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Users)
	assert.Equal(t, 5, summary.Posts)
	assert.Equal(t, 20, summary.Comments)
	assert.Equal(t, int64(6), count(t, db, &models.User{}))
	assert.Equal(t, int64(20), count(t, db, &models.Comment{}))

	likes := count(t, db, &models.PostLike{}) + count(t, db, &models.CommentLike{})
	assert.Equal(t, summary.Likes, likes)
	assert.Equal(t, likes, count(t, db, &models.KarmaEvent{}), "one ledger entry per seeded like")

	var orphaned int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM comments c JOIN comments p ON p.id = c.parent_id WHERE p.post_id <> c.post_id`).Scan(&orphaned).Error)
	assert.Zero(t, orphaned, "replies stay within their post")
}

func TestSeeder_ClearAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	likes := newLikeService(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice.ID, "hello")
	_, err := likes.LikePost(context.Background(), bob.ID, post.ID)
	require.NoError(t, err)

	require.NoError(t, NewSeeder(db, likes, DefaultOptions()).ClearAll(context.Background()))

	assert.Zero(t, count(t, db, &models.User{}))
	assert.Zero(t, count(t, db, &models.Post{}))
	assert.Zero(t, count(t, db, &models.KarmaEvent{}))
}
