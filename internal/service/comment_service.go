package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"
	"karmafeed/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	ActorID  uint
	PostID   uint
	ParentID *uint
	Body     string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// CreateComment adds a comment, optionally as a reply to a comment of the same post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.CommentNode, error) {
	if in.ActorID == 0 {
		return nil, models.NewInvalidActorError("An actor is required to comment")
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewValidationError("Body is required")
	}
	if utf8.RuneCountInString(body) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	if _, err := s.postRepo.GetAuthorID(ctx, in.PostID); err != nil {
		return nil, lookupError(err, "Post", in.PostID)
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, lookupError(err, "Comment", *in.ParentID)
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		Body:     body,
		PostID:   in.PostID,
		UserID:   in.ActorID,
		ParentID: in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, storeError(err)
	}

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return models.NewCommentNode(models.CommentRow{
		ID:        created.ID,
		PostID:    created.PostID,
		ParentID:  created.ParentID,
		Body:      created.Body,
		UserID:    created.UserID,
		Username:  created.User.Username,
		CreatedAt: created.CreatedAt,
	}), nil
}

// GetCommentTree returns the reply forest of a post as seen by actorID (0 for anonymous).
func (s *CommentService) GetCommentTree(ctx context.Context, postID, actorID uint) ([]*models.CommentNode, error) {
	if _, err := s.postRepo.GetAuthorID(ctx, postID); err != nil {
		return nil, lookupError(err, "Post", postID)
	}
	return s.forest(ctx, postID, actorID)
}

// forest assumes the post exists.
func (s *CommentService) forest(ctx context.Context, postID, actorID uint) ([]*models.CommentNode, error) {
	rows, err := s.commentRepo.ListForTree(ctx, postID, actorID)
	if err != nil {
		return nil, storeError(err)
	}
	observability.CommentTreeSize.Observe(float64(len(rows)))
	return BuildCommentForest(rows), nil
}
