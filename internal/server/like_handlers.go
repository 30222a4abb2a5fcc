package server

import (
	"context"

	"karmafeed/internal/models"
	"karmafeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

type likeFunc func(ctx context.Context, actorID, targetID uint) (*service.LikeOutcome, error)

// toggle runs one ensure-liked/unliked operation and renders {liked, like_count}.
func (s *Server) toggle(c *fiber.Ctx, fn likeFunc) error {
	ctx := c.UserContext()
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actorID := c.Locals("userID").(uint)

	out, err := fn(ctx, actorID, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishLikeOutcome(ctx, actorID, out)
	return c.JSON(out.LikeState)
}

// LikePost handles POST /api/posts/:id/like
//
// @Summary Like a post
// @Description Idempotent: liking an already liked post changes nothing.
// @Tags likes
// @Produce json
// @Param X-User header string false "Acting username"
// @Param id path int true "Post ID"
// @Success 200 {object} models.LikeState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggle(c, s.likeService.LikePost)
}

// UnlikePost handles DELETE /api/posts/:id/like
//
// @Summary Remove a like from a post
// @Tags likes
// @Produce json
// @Param X-User header string false "Acting username"
// @Param id path int true "Post ID"
// @Success 200 {object} models.LikeState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.toggle(c, s.likeService.UnlikePost)
}

// LikeComment handles POST /api/comments/:id/like
//
// @Summary Like a comment
// @Tags likes
// @Produce json
// @Param X-User header string false "Acting username"
// @Param id path int true "Comment ID"
// @Success 200 {object} models.LikeState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/like [post]
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.toggle(c, s.likeService.LikeComment)
}

// UnlikeComment handles DELETE /api/comments/:id/like
//
// @Summary Remove a like from a comment
// @Tags likes
// @Produce json
// @Param X-User header string false "Acting username"
// @Param id path int true "Comment ID"
// @Success 200 {object} models.LikeState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/like [delete]
func (s *Server) UnlikeComment(c *fiber.Ctx) error {
	return s.toggle(c, s.likeService.UnlikeComment)
}
