package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

func (s *server) getCart(c *fiber.Ctx) error {
	items, err := s.cart.Items(c.Context(), caller(c).UserID)
	if err != nil {
		return err
	}

	return c.JSON(items)
}

type cartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

func (s *server) addToCart(c *fiber.Ctx) error {
	var req cartRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	item, err := s.cart.Add(c.Context(), caller(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (s *server) updateCartItem(c *fiber.Ctx) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}

	var req cartRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	item, err := s.cart.Update(c.Context(), caller(c).UserID, productID, req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(item)
}

func (s *server) removeFromCart(c *fiber.Ctx) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}

	if err := s.cart.Remove(c.Context(), caller(c).UserID, productID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "item removed"})
}

func (s *server) clearCart(c *fiber.Ctx) error {
	if err := s.cart.Clear(c.Context(), caller(c).UserID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "cart cleared"})
}
