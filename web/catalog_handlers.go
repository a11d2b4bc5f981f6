package web

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"epharma/ent"
	"epharma/store"
)

const defaultPageSize = 12

func (s *server) listProducts(c *fiber.Ctx) error {
	f := store.ProductFilter{
		CategoryID: int64(c.QueryInt("category_id", 0)),
		BrandID:    int64(c.QueryInt("brand_id", 0)),
		Search:     c.Query("search", ""),
		MinPrice:   int64(c.QueryInt("min_price", 0)),
		MaxPrice:   int64(c.QueryInt("max_price", 0)),
		InStock:    c.Query("in_stock", "") == "true",
		Limit:      c.QueryInt("limit", defaultPageSize),
		Offset:     c.QueryInt("offset", 0),
	}

	ps, err := s.catalog.Products(c.Context(), f)
	if err != nil {
		return err
	}

	return c.JSON(ps)
}

func (s *server) productByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	p, err := s.catalog.Product(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(p)
}

func (s *server) productBySlug(c *fiber.Ctx) error {
	p, err := s.catalog.ProductBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return err
	}

	return c.JSON(p)
}

type productRequest struct {
	CategoryID           *int64 `json:"category_id"`
	BrandID              *int64 `json:"brand_id"`
	Name                 string `json:"name"`
	Slug                 string `json:"slug"`
	Description          string `json:"description"`
	ShortDescription     string `json:"short_description"`
	Dosage               string `json:"dosage"`
	ImageURL             string `json:"image_url"`
	Price                int64  `json:"price"`
	OriginalPrice        *int64 `json:"original_price"`
	StockQuantity        int32  `json:"stock_quantity"`
	RequiresPrescription bool   `json:"requires_prescription"`
	IsActive             *bool  `json:"is_active"`
}

func (r *productRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if strings.TrimSpace(r.Slug) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "slug is required")
	}
	if r.Price < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "price must not be negative")
	}
	if r.OriginalPrice != nil && *r.OriginalPrice < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "original price must not be negative")
	}
	if r.StockQuantity < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "stock quantity must not be negative")
	}

	return nil
}

func (r *productRequest) apply(p *ent.Product) {
	p.CategoryID = r.CategoryID
	p.BrandID = r.BrandID
	p.Name = r.Name
	p.Slug = r.Slug
	p.Description = r.Description
	p.ShortDescription = r.ShortDescription
	p.Dosage = r.Dosage
	p.ImageURL = r.ImageURL
	p.Price = r.Price
	p.OriginalPrice = r.OriginalPrice
	p.StockQuantity = r.StockQuantity
	p.RequiresPrescription = r.RequiresPrescription
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}

func (s *server) createProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return err
	}

	p := ent.Product{IsActive: true}
	req.apply(&p)

	if err := s.catalog.CreateProduct(c.Context(), &p); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *server) updateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req productRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return err
	}

	p, err := s.catalog.Product(c.Context(), id)
	if err != nil {
		return err
	}
	req.apply(p)

	if err := s.catalog.UpdateProduct(c.Context(), p); err != nil {
		return err
	}

	return c.JSON(p)
}

func (s *server) deactivateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := s.catalog.DeactivateProduct(c.Context(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "product deactivated"})
}

func (s *server) listCategories(c *fiber.Ctx) error {
	cs, err := s.catalog.Categories(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(cs)
}

func (s *server) createCategory(c *fiber.Ctx) error {
	var cat ent.Category
	if err := json.Unmarshal(c.Body(), &cat); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(cat.Name) == "" || strings.TrimSpace(cat.Slug) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and slug are required")
	}

	if err := s.catalog.CreateCategory(c.Context(), &cat); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(cat)
}

func (s *server) listBrands(c *fiber.Ctx) error {
	bs, err := s.catalog.Brands(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(bs)
}

func (s *server) createBrand(c *fiber.Ctx) error {
	var b ent.Brand
	if err := json.Unmarshal(c.Body(), &b); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(b.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	if err := s.catalog.CreateBrand(c.Context(), &b); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(b)
}
