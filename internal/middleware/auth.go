// Package middleware provides request logging, authentication, metrics, tracing and
// rate limiting middleware for the application.
package middleware

import (
	"context"
	"strings"

	"inkd/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionResolver turns a bearer token into the session it belongs to.
// A nil session with a nil error means the token is unknown, expired or revoked.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// When allowQuery is set, a `token` query parameter is accepted as a fallback (WebSocket upgrades).
func BearerToken(c *fiber.Ctx, allowQuery bool) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1]
		}
		return ""
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// SessionRequired enforces a valid session and stores userID, sessionID and accessToken in locals.
func SessionRequired(resolver SessionResolver, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c, allowQuery)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		session, err := resolver.GetSession(c.UserContext(), token)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if session == nil || session.User == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals("userID", session.User.ID)
		c.Locals("sessionID", session.ID)
		c.Locals("accessToken", token)
		c.SetUserContext(WithUser(c.UserContext(), session.User.ID, session.ID))

		return c.Next()
	}
}

// OptionalSession behaves like SessionRequired but lets anonymous requests through.
func OptionalSession(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c, false)
		if token == "" {
			return c.Next()
		}
		session, err := resolver.GetSession(c.UserContext(), token)
		if err == nil && session != nil && session.User != nil {
			c.Locals("userID", session.User.ID)
			c.Locals("sessionID", session.ID)
			c.Locals("accessToken", token)
			c.SetUserContext(WithUser(c.UserContext(), session.User.ID, session.ID))
		}
		return c.Next()
	}
}
