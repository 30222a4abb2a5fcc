package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"
	"karmafeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// LikeService applies like and unlike transitions and keeps the karma ledger in step.
type LikeService struct {
	db        *gorm.DB
	userRepo  repository.UserRepository
	postRepo  repository.PostRepository
	commRepo  repository.CommentRepository
	likeRepo  repository.LikeRepository
	karmaRepo repository.KarmaRepository
}

// LikeOutcome is the result of one transition. Event is set only when the
// like state changed and a ledger entry was appended.
type LikeOutcome struct {
	models.LikeState
	Kind          models.TargetKind
	TargetID      uint
	BeneficiaryID uint
	Changed       bool
	Event         *models.KarmaEvent
}

func NewLikeService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	commRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	karmaRepo repository.KarmaRepository,
) *LikeService {
	return &LikeService{
		db:        db,
		userRepo:  userRepo,
		postRepo:  postRepo,
		commRepo:  commRepo,
		likeRepo:  likeRepo,
		karmaRepo: karmaRepo,
	}
}

func (s *LikeService) LikePost(ctx context.Context, actorID, postID uint) (*LikeOutcome, error) {
	return s.EnsureLiked(ctx, models.TargetPost, actorID, postID)
}

func (s *LikeService) UnlikePost(ctx context.Context, actorID, postID uint) (*LikeOutcome, error) {
	return s.EnsureUnliked(ctx, models.TargetPost, actorID, postID)
}

func (s *LikeService) LikeComment(ctx context.Context, actorID, commentID uint) (*LikeOutcome, error) {
	return s.EnsureLiked(ctx, models.TargetComment, actorID, commentID)
}

func (s *LikeService) UnlikeComment(ctx context.Context, actorID, commentID uint) (*LikeOutcome, error) {
	return s.EnsureUnliked(ctx, models.TargetComment, actorID, commentID)
}

// EnsureLiked makes actorID like the target. Repeating the call is a no-op:
// the like row and its +reward ledger entry are written together, at most once.
func (s *LikeService) EnsureLiked(ctx context.Context, kind models.TargetKind, actorID, targetID uint) (*LikeOutcome, error) {
	return s.transition(ctx, kind, true, actorID, targetID)
}

// EnsureUnliked removes actorID's like. Without a like it changes nothing and
// writes no ledger entry.
func (s *LikeService) EnsureUnliked(ctx context.Context, kind models.TargetKind, actorID, targetID uint) (*LikeOutcome, error) {
	return s.transition(ctx, kind, false, actorID, targetID)
}

func (s *LikeService) transition(ctx context.Context, kind models.TargetKind, liked bool, actorID, targetID uint) (*LikeOutcome, error) {
	span, ctx := observability.NewSpan(ctx, "LikeService."+transitionName(liked),
		attribute.String("like.target", string(kind)),
		attribute.Int64("like.target_id", int64(targetID)),
		attribute.Int64("actor.id", int64(actorID)),
	)
	defer span.End()

	out, err := s.apply(ctx, kind, liked, actorID, targetID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	span.AddAttributes(attribute.Bool("like.changed", out.Changed))
	observability.RecordLikeTransition(string(kind), liked, out.Changed)
	return out, nil
}

func (s *LikeService) apply(ctx context.Context, kind models.TargetKind, liked bool, actorID, targetID uint) (*LikeOutcome, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown like target %q", kind))
	}
	if err := s.resolveActor(ctx, actorID); err != nil {
		return nil, err
	}
	ownerID, err := s.targetOwner(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}

	out := &LikeOutcome{Kind: kind, TargetID: targetID, BeneficiaryID: ownerID}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes := s.likeRepo.WithTx(tx)

		var (
			likeID  uint
			changed bool
		)
		if liked {
			// The savepoint keeps the outer transaction usable when the insert
			// loses a uniqueness race on drivers that abort on constraint errors.
			insertErr := tx.Transaction(func(sp *gorm.DB) error {
				id, err := likes.WithTx(sp).Insert(ctx, kind, targetID, actorID)
				likeID = id
				return err
			})
			switch {
			case errors.Is(insertErr, repository.ErrLikeExists):
			case insertErr != nil:
				return insertErr
			default:
				changed = true
			}
		} else {
			id, removed, err := likes.Delete(ctx, kind, targetID, actorID)
			if err != nil {
				return err
			}
			likeID, changed = id, removed
		}

		if changed {
			event, err := models.NewKarmaEvent(kind, liked, ownerID, actorID, targetID, likeID)
			if err != nil {
				return err
			}
			if err := s.karmaRepo.WithTx(tx).Append(ctx, event); err != nil {
				return err
			}
			out.Event = event
		}

		count, err := likes.Count(ctx, kind, targetID)
		if err != nil {
			return err
		}
		out.Changed = changed
		out.LikeState = models.LikeState{Liked: liked, LikeCount: count}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return out, nil
}

func (s *LikeService) resolveActor(ctx context.Context, actorID uint) error {
	if actorID == 0 {
		return models.NewInvalidActorError("An actor is required to like")
	}
	if _, err := s.userRepo.GetByID(ctx, actorID); err != nil {
		if repository.IsNotFound(err) {
			return models.NewInvalidActorError(fmt.Sprintf("Actor %d does not exist", actorID))
		}
		return storeError(err)
	}
	return nil
}

func (s *LikeService) targetOwner(ctx context.Context, kind models.TargetKind, targetID uint) (uint, error) {
	var (
		ownerID uint
		err     error
	)
	if kind == models.TargetPost {
		ownerID, err = s.postRepo.GetAuthorID(ctx, targetID)
	} else {
		ownerID, err = s.commRepo.GetAuthorID(ctx, targetID)
	}
	if err != nil {
		return 0, lookupError(err, resourceName(kind), targetID)
	}
	return ownerID, nil
}

func resourceName(kind models.TargetKind) string {
	s := string(kind)
	return strings.ToUpper(s[:1]) + s[1:]
}

func transitionName(liked bool) string {
	if liked {
		return "Like"
	}
	return "Unlike"
}
