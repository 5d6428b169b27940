// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the fiber application.
package middleware

import (
	"context"
	"strings"

	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Fiber locals written by the middleware in this package.
const (
	LocalExternalID   = "externalID"
	LocalNicknameHint = "nicknameHint"
	LocalProfileID    = "profileID"
)

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: message,
		Code:  "UNAUTHENTICATED",
	})
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired validates an HMAC-signed JWT and stores its subject, the
// caller's external identity, in c.Locals(LocalExternalID). A "nickname" or
// "name" claim is kept as a hint for first-login profile creation.
func AuthRequired(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header required")
		}
		tokenString, ok := bearerToken(authHeader)
		if !ok {
			return unauthorized(c, "Invalid authorization header format")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			return unauthorized(c, "Invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid token claims")
		}

		sub, ok := claims["sub"].(string)
		if !ok || strings.TrimSpace(sub) == "" {
			return unauthorized(c, "Invalid token subject")
		}

		c.Locals(LocalExternalID, strings.TrimSpace(sub))
		for _, claim := range []string{"nickname", "name"} {
			if hint, ok := claims[claim].(string); ok && hint != "" {
				c.Locals(LocalNicknameHint, hint)
				break
			}
		}
		return c.Next()
	}
}

// ExternalID returns the identity stored by AuthRequired.
func ExternalID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalExternalID).(string)
	return id
}

// NicknameHint returns the display name carried by the token, if any.
func NicknameHint(c *fiber.Ctx) string {
	hint, _ := c.Locals(LocalNicknameHint).(string)
	return hint
}

// ProfileID returns the profile ID resolved for the caller.
func ProfileID(c *fiber.Ctx) uint64 {
	id, _ := c.Locals(LocalProfileID).(uint64)
	return id
}

// SetProfileID stores the caller's profile ID in the locals and in the user
// context so that log records carry it.
func SetProfileID(c *fiber.Ctx, id uint64) {
	c.Locals(LocalProfileID, id)
	c.SetUserContext(context.WithValue(c.UserContext(), ProfileIDKey, id))
}
