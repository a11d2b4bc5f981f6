// Package web exposes the storefront over HTTP. Handlers stay thin:
// they parse the request, resolve the caller and delegate to the
// services; the error handler maps service errors to status codes.
package web

import (
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"epharma/auth"
	"epharma/cart"
	"epharma/checkout"
	"epharma/ent"
	"epharma/metrics"
	"epharma/rx"
	"epharma/store"
)

type Config struct {
	Auth     *auth.Service
	Cart     *cart.Service
	Checkout *checkout.Service
	Rx       *rx.Service
	Catalog  store.CatalogStore

	// UploadDir, when set, is served at /uploads for the disk-backed
	// object store.
	UploadDir string
}

type server struct {
	auth     *auth.Service
	cart     *cart.Service
	checkout *checkout.Service
	rx       *rx.Service
	catalog  store.CatalogStore
	hub      *hub
}

func New(cfg Config) *fiber.App {
	s := &server{
		auth:     cfg.Auth,
		cart:     cfg.Cart,
		checkout: cfg.Checkout,
		rx:       cfg.Rx,
		catalog:  cfg.Catalog,
		hub:      newHub(),
	}

	cfg.Rx.OnReview(func(p *ent.Prescription) {
		metrics.PrescriptionsReviewed.WithLabelValues(p.Status).Inc()
		s.hub.push(p.UserID, fiber.Map{
			"type":         "prescription_update",
			"id":           p.ID,
			"status":       p.Status,
			"review_notes": p.ReviewNotes,
		})
	})

	// Room for a multi-file prescription submission; each file is
	// checked against its own 5MB cap during validation.
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    32 << 20,
	})

	app.Use(recover.New(), logger.New(), cors.New(), metrics.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Post("/auth/register", s.register)
	api.Post("/auth/login", s.login)
	api.Get("/auth/user", s.requireAuth, s.currentUser)

	api.Get("/products", s.listProducts)
	api.Get("/products/slug/:slug", s.productBySlug)
	api.Get("/products/:id", s.productByID)
	api.Post("/products", s.requireAuth, s.requirePermission(ent.PermEditProducts), s.createProduct)
	api.Put("/products/:id", s.requireAuth, s.requirePermission(ent.PermEditProducts), s.updateProduct)
	api.Delete("/products/:id", s.requireAuth, s.requirePermission(ent.PermEditProducts), s.deactivateProduct)

	api.Get("/categories", s.listCategories)
	api.Post("/categories", s.requireAuth, s.requirePermission(ent.PermEditProducts), s.createCategory)
	api.Get("/brands", s.listBrands)
	api.Post("/brands", s.requireAuth, s.requirePermission(ent.PermEditProducts), s.createBrand)

	api.Get("/cart", s.requireAuth, s.getCart)
	api.Post("/cart", s.requireAuth, s.addToCart)
	api.Put("/cart/:productId", s.requireAuth, s.updateCartItem)
	api.Delete("/cart/:productId", s.requireAuth, s.removeFromCart)
	api.Delete("/cart", s.requireAuth, s.clearCart)

	api.Get("/orders", s.requireAuth, s.listOrders)
	api.Get("/orders/:id", s.requireAuth, s.getOrder)
	api.Post("/orders", s.requireAuth, s.createOrder)

	api.Post("/prescriptions/submit", s.requireAuth, s.submitPrescription)
	api.Get("/prescriptions/history", s.requireAuth, s.prescriptionHistory)
	api.Get("/prescriptions/:id", s.requireAuth, s.getPrescription)

	admin := api.Group("/admin", s.requireAuth)
	admin.Get("/prescriptions", s.requirePermission(ent.PermViewPrescriptions), s.adminListPrescriptions)
	admin.Put("/prescriptions/:id/status", s.requirePermission(ent.PermViewPrescriptions), s.reviewPrescription)
	admin.Put("/orders/:id/status", s.requirePermission(ent.PermManageOrders), s.updateOrderStatus)
	admin.Post("/users/:id/permissions", s.requirePermission(ent.PermManageUsers), s.grantPermission)
	admin.Delete("/users/:id/permissions/:permission", s.requirePermission(ent.PermManageUsers), s.revokePermission)

	app.Get("/ws/notifier", s.wsNotifier())

	if cfg.UploadDir != "" {
		app.Static("/uploads", cfg.UploadDir)
	}

	return app
}

func errorHandler(ctx *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
	}

	var code int
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials):
		code = fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrPermissionDenied):
		code = fiber.StatusForbidden
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrAlreadyReviewed):
		code = fiber.StatusConflict
	case errors.Is(err, rx.ErrValidation),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, checkout.ErrProductUnavailable),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrPrescriptionRequired),
		errors.Is(err, checkout.ErrInvalidStatus),
		errors.Is(err, store.ErrInsufficientStock):
		code = fiber.StatusBadRequest
	case errors.Is(err, rx.ErrStorage):
		code = fiber.StatusBadGateway
	default:
		logrus.WithError(err).Error("request failed")
		return ctx.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "internal server error"})
	}

	return ctx.Status(code).JSON(fiber.Map{"message": err.Error()})
}
