package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

// RequireStaff ensures a staff principal is authenticated.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.SubjectType != domain.SubjectTypeStaff {
			return apperrors.NewForbidden("staff required")
		}
		return c.Next()
	}
}
