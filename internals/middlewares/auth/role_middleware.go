package middleware

import (
	"github.com/gofiber/fiber/v2"

	helperAuth "admissions_backend/internals/helpers/auth"
	"admissions_backend/internals/helpers/apperr"
)

// RequireStaff lets staff and admins through. Mount it after AuthJWT.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := helperAuth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if !actor.IsStaff() {
			return apperr.New(apperr.ErrForbidden, "staff access required")
		}
		return c.Next()
	}
}
