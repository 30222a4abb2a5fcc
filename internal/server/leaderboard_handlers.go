package server

import (
	"karmafeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard handles GET /api/leaderboard
//
// @Summary Top karma earners
// @Description Net karma per actor over the trailing window. Ties rank the lower user id first.
// @Tags leaderboard
// @Produce json
// @Param window query string false "Trailing window as a duration" default(24h)
// @Param limit query int false "Number of entries (max 100)" default(5)
// @Success 200 {array} models.LeaderboardEntry
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /leaderboard [get]
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	window, err := s.parseWindow(c)
	if err != nil {
		return nil
	}
	limit, err := s.parseLimit(c)
	if err != nil {
		return nil
	}

	entries, err := s.leaderboardService.TopKarma(ctx, window, limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(entries)
}

// GetUserKarma handles GET /api/users/:id/karma
//
// @Summary Karma of one actor
// @Tags leaderboard
// @Produce json
// @Param id path int true "User ID"
// @Param window query string false "Trailing window as a duration" default(24h)
// @Success 200 {object} models.ActorKarma
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/karma [get]
func (s *Server) GetUserKarma(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	window, err := s.parseWindow(c)
	if err != nil {
		return nil
	}

	karma, err := s.leaderboardService.ActorKarma(ctx, userID, window)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(karma)
}
