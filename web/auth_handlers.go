package web

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func (s *server) register(c *fiber.Ctx) error {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return fiber.NewError(fiber.StatusBadRequest, "valid email is required")
	}
	if len(req.Password) < 8 {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	u, err := s.auth.Register(c.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return err
	}

	token, err := s.auth.IssueToken(u)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  u,
	})
}

func (s *server) login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	token, u, err := s.auth.Login(c.Context(),
		strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  u,
	})
}

func (s *server) currentUser(c *fiber.Ctx) error {
	u, err := s.auth.User(c.Context(), caller(c).UserID)
	if err != nil {
		return err
	}

	return c.JSON(u)
}

func (s *server) grantPermission(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Permission string `json:"permission"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Permission == "" {
		return fiber.NewError(fiber.StatusBadRequest, "permission is required")
	}

	err = s.auth.GrantPermission(c.Context(), caller(c), userID, req.Permission)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "permission granted"})
}

func (s *server) revokePermission(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	err = s.auth.RevokePermission(c.Context(), caller(c), userID, c.Params("permission"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "permission revoked"})
}
