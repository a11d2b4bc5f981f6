package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"epharma/metrics"
)

func (s *server) listOrders(c *fiber.Ctx) error {
	os, err := s.checkout.Orders(c.Context(), caller(c).UserID)
	if err != nil {
		return err
	}

	return c.JSON(os)
}

func (s *server) getOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	o, err := s.checkout.Order(c.Context(), caller(c).UserID, id)
	if err != nil {
		return err
	}

	return c.JSON(o)
}

func (s *server) createOrder(c *fiber.Ctx) error {
	o, err := s.checkout.CreateOrder(c.Context(), caller(c).UserID)
	if err != nil {
		return err
	}

	metrics.OrdersCreated.Inc()

	return c.Status(fiber.StatusCreated).JSON(o)
}

func (s *server) updateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	o, err := s.checkout.UpdateStatus(c.Context(), id, req.Status, req.PaymentStatus)
	if err != nil {
		return err
	}

	return c.JSON(o)
}
