package repository

import (
	"context"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, actorID uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int, actorID uint) ([]*models.Post, error)
	GetAuthorID(ctx context.Context, id uint) (uint, error)
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "user_id": post.UserID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, actorID uint) (*models.Post, error) {
	var post models.Post
	err := applyPostDetails(r.db.WithContext(ctx), actorID).
		Preload("User").
		First(&post, "posts.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns posts newest first, with counts and liked_by_me computed in the same query.
func (r *postRepository) List(ctx context.Context, limit, offset int, actorID uint) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	var posts []*models.Post
	err := applyPostDetails(r.db.WithContext(ctx), actorID).
		Preload("User").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) GetAuthorID(ctx context.Context, id uint) (uint, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&post, id).Error; err != nil {
		return 0, err
	}
	return post.UserID, nil
}

// applyPostDetails adds subqueries to fetch counts and liked status in a single query.
func applyPostDetails(db *gorm.DB, actorID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count, " +
		"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS like_count"

	if actorID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS liked_by_me", actorID)
	}
	return db.Select(selectQuery + ", false AS liked_by_me")
}
