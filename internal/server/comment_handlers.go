package server

import (
	"karmafeed/internal/models"
	"karmafeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateCommentRequest is the body of POST /api/posts/:id/comments.
type CreateCommentRequest struct {
	Body     string `json:"body"`
	ParentID *uint  `json:"parent_id,omitempty"`
}

// CreateComment handles POST /api/posts/:id/comments
//
// @Summary Comment on a post
// @Description parent_id, when set, must name a comment of the same post.
// @Tags comments
// @Accept json
// @Produce json
// @Param X-User header string false "Acting username"
// @Param id path int true "Post ID"
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} models.CommentNode
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := c.Locals("userID").(uint)

	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	node, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		ActorID:  userID,
		PostID:   postID,
		ParentID: req.ParentID,
		Body:     req.Body,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

// GetComments handles GET /api/posts/:id/comments
//
// @Summary Get the comment forest of a post
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.CommentNode
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.UserContext()
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	forest, err := s.commentService.GetCommentTree(ctx, postID, actorOrZero(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(forest)
}
