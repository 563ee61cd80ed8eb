package api

import (
	"strings"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.config.Security.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return c.Status(401).JSON(fiber.Map{"error": "token has no subject"})
		}
		c.Locals(userIDKey, sub)

		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// statusFor maps application error codes onto HTTP statuses
func statusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrInvalidDifficulty.Code, apperrors.ErrInvalidDate.Code,
		apperrors.ErrInvalidCron.Code, apperrors.ErrBadRequest.Code:
		return fiber.StatusBadRequest
	case apperrors.ErrPlanNotFound.Code, apperrors.ErrJobNotFound.Code, apperrors.ErrNotFound.Code:
		return fiber.StatusNotFound
	case apperrors.ErrUnauthorized.Code:
		return fiber.StatusUnauthorized
	case apperrors.ErrForbidden.Code:
		return fiber.StatusForbidden
	case apperrors.ErrRateLimited.Code:
		return fiber.StatusTooManyRequests
	}
	return fiber.StatusInternalServerError
}

// fail writes err as a JSON error, logging anything that maps to a 5xx
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= 500 {
		msg := "Request failed"
		if !apperrors.IsAppError(err) {
			msg = "Request failed with unclassified error"
		}
		s.logger.Error(msg,
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("user_id", userID(c)),
			zap.Error(err),
		)
		return c.Status(status).JSON(fiber.Map{"error": "internal error", "code": apperrors.GetCode(err)})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": apperrors.GetCode(err)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
