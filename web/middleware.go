package web

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"epharma/auth"
)

const callerKey = "caller"

// requireAuth resolves the bearer token into a Caller with fresh
// permissions, so a revoked permission takes effect on the next request.
func (s *server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.ErrUnauthenticated
	}

	claims, err := s.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return err
	}

	caller, err := s.auth.Resolve(c.Context(), claims.UserID)
	if err != nil {
		return auth.ErrUnauthenticated
	}

	c.Locals(callerKey, caller)

	return c.Next()
}

func (s *server) requirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !caller(c).Can(permission) {
			return auth.ErrPermissionDenied
		}

		return c.Next()
	}
}

func caller(c *fiber.Ctx) auth.Caller {
	cl, _ := c.Locals(callerKey).(auth.Caller)
	return cl
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}

	return id, nil
}
