package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"karmafeed/internal/models"
	"karmafeed/internal/repository"
)

const (
	maxPostLen       = 50000
	defaultPostLimit = 20
	maxPostLimit     = 100
)

type PostService struct {
	postRepo repository.PostRepository
	comments *CommentService
}

type ListPostsInput struct {
	ActorID uint
	Limit   int
	Offset  int
}

func NewPostService(postRepo repository.PostRepository, comments *CommentService) *PostService {
	return &PostService{postRepo: postRepo, comments: comments}
}

func (s *PostService) CreatePost(ctx context.Context, actorID uint, body string) (*models.Post, error) {
	if actorID == 0 {
		return nil, models.NewInvalidActorError("An actor is required to post")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Body is required")
	}
	if utf8.RuneCountInString(body) > maxPostLen {
		return nil, models.NewValidationError("Post too long (max 50000 characters)")
	}

	post := &models.Post{Body: body, UserID: actorID}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, storeError(err)
	}

	created, err := s.postRepo.GetByID(ctx, post.ID, actorID)
	if err != nil {
		return nil, storeError(err)
	}
	return created, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	if in.Limit <= 0 {
		in.Limit = defaultPostLimit
	}
	if in.Limit > maxPostLimit {
		in.Limit = maxPostLimit
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	posts, err := s.postRepo.List(ctx, in.Limit, in.Offset, in.ActorID)
	if err != nil {
		return nil, storeError(err)
	}
	return posts, nil
}

// GetPostDetail returns a post with its full comment forest.
func (s *PostService) GetPostDetail(ctx context.Context, postID, actorID uint) (*models.PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, postID, actorID)
	if err != nil {
		return nil, lookupError(err, "Post", postID)
	}

	forest, err := s.comments.forest(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}

	return &models.PostDetail{
		ID:        post.ID,
		Body:      post.Body,
		Author:    post.User.Summary(),
		CreatedAt: post.CreatedAt,
		LikeCount: post.LikeCount,
		LikedByMe: post.LikedByMe,
		Comments:  forest,
	}, nil
}
