package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"karmafeed/internal/models"
	"karmafeed/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ActorHeader carries a username; the actor is provisioned on first use.
const ActorHeader = "X-User"

// ActorProvisioner returns the actor for a username, creating it if needed.
type ActorProvisioner interface {
	EnsureByUsername(ctx context.Context, username string) (*models.User, error)
}

// ResolveActor identifies the acting user without rejecting anonymous requests.
// A Bearer token wins over the X-User header. On success the actor id is
// stored in c.Locals("userID").
func ResolveActor(jwtSecret string, actors ActorProvisioner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			actorID, err := actorFromBearer(authHeader, jwtSecret)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewInvalidActorError(err.Error()))
			}
			c.Locals("userID", actorID)
			return c.Next()
		}

		username := strings.TrimSpace(c.Get(ActorHeader))
		if username == "" {
			return c.Next()
		}
		if err := validation.ValidateUsername(username); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewInvalidActorError("invalid X-User header: "+err.Error()))
		}

		user, err := actors.EnsureByUsername(c.UserContext(), username)
		if err != nil {
			Logger.ErrorContext(c.UserContext(), "failed to provision actor",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			return models.RespondWithAppError(c, err)
		}
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

// ActorRequired rejects requests for which no actor could be resolved.
func ActorRequired(c *fiber.Ctx) error {
	if _, ok := ActorID(c); !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewInvalidActorError("An X-User header or bearer token is required"))
	}
	return c.Next()
}

// ActorID returns the resolved actor id, if any.
func ActorID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

func actorFromBearer(authHeader, secret string) (uint, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, errors.New("invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid or expired token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("invalid token structure - missing subject")
	}

	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid actor id in token")
	}
	return uint(id), nil
}

// IssueToken signs a token whose subject is the actor id.
func IssueToken(secret string, actorID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(actorID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
