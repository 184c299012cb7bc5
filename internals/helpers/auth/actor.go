package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"admissions_backend/internals/constants"
	"admissions_backend/internals/helpers/apperr"
)

// Locals keys written by the JWT middleware.
const (
	LocUserID = "user_id"
	LocEmail  = "email"
	LocRole   = "role"
)

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (a Actor) IsStaff() bool {
	for _, r := range constants.StaffRoles {
		if strings.EqualFold(a.Role, r) {
			return true
		}
	}
	return false
}

// ActorFromCtx reads the caller from fiber locals. It fails with
// UNAUTHORIZED when the token carried no usable user id.
func ActorFromCtx(c *fiber.Ctx) (Actor, error) {
	raw, _ := c.Locals(LocUserID).(string)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return Actor{}, apperr.New(apperr.ErrUnauthorized, "user id missing from token")
	}
	email, _ := c.Locals(LocEmail).(string)
	role, _ := c.Locals(LocRole).(string)
	if role == "" {
		role = constants.RoleApplicant
	}
	return Actor{ID: id, Email: email, Role: strings.ToLower(role)}, nil
}
