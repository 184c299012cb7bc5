package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"admissions_backend/internals/helpers/apperr"
)

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperr.Newf(apperr.ErrBadRequest, "invalid %s", name)
	}
	return id, nil
}

// ParseBody decodes the JSON body into dst. An empty body leaves dst
// untouched.
func ParseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperr.Wrap(apperr.ErrBadRequest, "invalid json body", err)
	}
	return nil
}

// ParseQuery binds query parameters into dst.
func ParseQuery(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return apperr.Wrap(apperr.ErrBadRequest, "invalid query", err)
	}
	return nil
}
