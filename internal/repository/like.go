package repository

import (
	"context"
	"fmt"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository manages post and comment like rows.
// Insert and Delete are meant to run on a transaction handle obtained via WithTx.
type LikeRepository interface {
	WithTx(tx *gorm.DB) LikeRepository
	// Insert adds the like and returns its id, or ErrLikeExists when the
	// (target, actor) row is already present.
	Insert(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (uint, error)
	// Delete removes the like and returns the removed row's id and true, or 0
	// and false when there was nothing to remove.
	Delete(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (uint, bool, error)
	Count(ctx context.Context, kind models.TargetKind, targetID uint) (int64, error)
}

type likeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, log: observability.NewRepoLogger("likes")}
}

func (r *likeRepository) WithTx(tx *gorm.DB) LikeRepository {
	return &likeRepository{db: tx, log: r.log}
}

type likeTable struct {
	model     interface{}
	targetCol string
}

func tableFor(kind models.TargetKind) (likeTable, error) {
	switch kind {
	case models.TargetPost:
		return likeTable{model: &models.PostLike{}, targetCol: "post_id"}, nil
	case models.TargetComment:
		return likeTable{model: &models.CommentLike{}, targetCol: "comment_id"}, nil
	default:
		return likeTable{}, fmt.Errorf("unknown like target kind %q", kind)
	}
}

func (r *likeRepository) Insert(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (uint, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	var (
		id     *uint
		record interface{}
	)
	switch kind {
	case models.TargetPost:
		row := &models.PostLike{PostID: targetID, UserID: actorID}
		id, record = &row.ID, row
	default:
		row := &models.CommentLike{CommentID: targetID, UserID: actorID}
		id, record = &row.ID, row
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: t.targetCol}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		if IsUniqueViolation(result.Error) {
			return 0, ErrLikeExists
		}
		r.log.LogError(ctx, result.Error, "insert")
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrLikeExists
	}

	r.log.LogCreate(ctx, map[string]interface{}{
		"target":    string(kind),
		"target_id": targetID,
		"actor_id":  actorID,
		"like_id":   *id,
	})
	return *id, nil
}

func (r *likeRepository) Delete(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (uint, bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, false, err
	}

	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(t.model).
		Where(t.targetCol+" = ? AND user_id = ?", targetID, actorID).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}

	// A concurrent unlike may have removed the row since the read; only the
	// statement that actually deletes it reports true.
	result := r.db.WithContext(ctx).
		Where("id = ?", ids[0]).
		Delete(t.model)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "delete")
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}

	r.log.LogDelete(ctx, map[string]interface{}{
		"target":    string(kind),
		"target_id": targetID,
		"actor_id":  actorID,
		"like_id":   ids[0],
	})
	return ids[0], true, nil
}

func (r *likeRepository) Count(ctx context.Context, kind models.TargetKind, targetID uint) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).Model(t.model).Where(t.targetCol+" = ?", targetID).Count(&count).Error
	return count, err
}
