package server

import (
	"karmafeed/internal/models"
	"karmafeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body of POST /api/posts.
type CreatePostRequest struct {
	Body string `json:"body"`
}

// CreatePost handles POST /api/posts
//
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param X-User header string false "Acting username"
// @Param request body CreatePostRequest true "Post body"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(ctx, userID, req.Body)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
//
// @Summary List posts
// @Description Newest first, with like_count, comment_count and liked_by_me for the caller.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Failure 503 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c, 20)

	posts, err := s.postService.ListPosts(ctx, service.ListPostsInput{
		ActorID: actorOrZero(c),
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
//
// @Summary Get a post with its comment tree
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.postService.GetPostDetail(ctx, id, actorOrZero(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(detail)
}
