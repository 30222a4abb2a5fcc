package repository

import (
	"context"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	GetAuthorID(ctx context.Context, id uint) (uint, error)
	ListForTree(ctx context.Context, postID uint, actorID uint) ([]models.CommentRow, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{
		"comment_id": comment.ID,
		"post_id":    comment.PostID,
		"parent_id":  comment.ParentID,
	})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) GetAuthorID(ctx context.Context, id uint) (uint, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&comment, id).Error; err != nil {
		return 0, err
	}
	return comment.UserID, nil
}

// ListForTree fetches every comment of a post in one round trip: author
// username, like count and the actor's liked flag are joined in, and rows come
// back in creation order with id as the tiebreak.
func (r *commentRepository) ListForTree(ctx context.Context, postID uint, actorID uint) ([]models.CommentRow, error) {
	defer observability.TrackQuery("list_tree", "comments")()

	var rows []models.CommentRow
	err := r.db.WithContext(ctx).
		Table("comments").
		Select(
			"comments.id, comments.post_id, comments.parent_id, comments.body, comments.user_id, users.username, comments.created_at, "+
				"(SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id) AS like_count, "+
				"EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.user_id = ?) AS liked_by_me",
			actorID,
		).
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.created_at ASC, comments.id ASC").
		Scan(&rows).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_tree")
		return nil, err
	}

	r.log.LogRead(ctx, map[string]interface{}{"post_id": postID, "rows": len(rows)})
	return rows, nil
}
