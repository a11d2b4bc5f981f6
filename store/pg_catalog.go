package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"epharma/ent"
)

const productColumns = `
	p.*, c.name as category_name, b.name as brand_name
	from product p
	    left join category c on p.category_id = c.id
	    left join brand b on p.brand_id = b.id`

func (s *PG) Products(ctx context.Context, f ProductFilter) ([]ent.Product, error) {
	q := `select` + productColumns + ` where p.is_active`

	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategoryID != 0 {
		q += " and p.category_id = " + arg(f.CategoryID)
	}
	if f.BrandID != 0 {
		q += " and p.brand_id = " + arg(f.BrandID)
	}
	if f.Search != "" {
		pat := arg("%" + f.Search + "%")
		q += fmt.Sprintf(" and (p.name ilike %s or p.description ilike %s)", pat, pat)
	}
	if f.MinPrice > 0 {
		q += " and p.price >= " + arg(f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q += " and p.price <= " + arg(f.MaxPrice)
	}
	if f.InStock {
		q += " and p.stock_quantity > 0"
	}

	q += " order by p.created_at desc"

	if f.Limit > 0 {
		q += " limit " + arg(f.Limit)
	}
	if f.Offset > 0 {
		q += " offset " + arg(f.Offset)
	}

	var ps []ent.Product
	err := s.db.SelectContext(ctx, &ps, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	return ps, nil
}

func (s *PG) Product(ctx context.Context, id int64) (*ent.Product, error) {
	var p ent.Product

	err := s.db.GetContext(ctx, &p, `select`+productColumns+` where p.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

func (s *PG) ProductBySlug(ctx context.Context, slug string) (*ent.Product, error) {
	var p ent.Product

	err := s.db.GetContext(ctx, &p, `select`+productColumns+` where p.slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	return &p, nil
}

func (s *PG) CreateProduct(ctx context.Context, p *ent.Product) error {
	err := s.db.QueryRowxContext(ctx, `
		insert into product (category_id, brand_id, name, slug, description,
		                     short_description, dosage, image_url, price,
		                     original_price, stock_quantity,
		                     requires_prescription, is_active, rating,
		                     review_count)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		returning *
	`, p.CategoryID, p.BrandID, p.Name, p.Slug, p.Description,
		p.ShortDescription, p.Dosage, p.ImageURL, p.Price,
		p.OriginalPrice, p.StockQuantity, p.RequiresPrescription,
		p.IsActive, p.Rating, p.ReviewCount).StructScan(p)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug %q", ErrDuplicate, p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (s *PG) UpdateProduct(ctx context.Context, p *ent.Product) error {
	err := s.db.QueryRowxContext(ctx, `
		update product
		set category_id           = $2,
		    brand_id              = $3,
		    name                  = $4,
		    slug                  = $5,
		    description           = $6,
		    short_description     = $7,
		    dosage                = $8,
		    image_url             = $9,
		    price                 = $10,
		    original_price        = $11,
		    stock_quantity        = $12,
		    requires_prescription = $13,
		    is_active             = $14,
		    updated_at            = now()
		where id = $1
		returning *
	`, p.ID, p.CategoryID, p.BrandID, p.Name, p.Slug, p.Description,
		p.ShortDescription, p.Dosage, p.ImageURL, p.Price,
		p.OriginalPrice, p.StockQuantity, p.RequiresPrescription,
		p.IsActive).StructScan(p)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug %q", ErrDuplicate, p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

func (s *PG) DeactivateProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		update product set is_active = false, updated_at = now() where id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PG) Categories(ctx context.Context) ([]ent.Category, error) {
	var cs []ent.Category

	err := s.db.SelectContext(ctx, &cs, `select * from category order by name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}

	return cs, nil
}

func (s *PG) CreateCategory(ctx context.Context, c *ent.Category) error {
	err := s.db.QueryRowxContext(ctx, `
		insert into category (name, slug, description)
		values ($1, $2, $3)
		returning *
	`, c.Name, c.Slug, c.Description).StructScan(c)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug %q", ErrDuplicate, c.Slug)
		}
		return fmt.Errorf("insert category: %w", err)
	}

	return nil
}

func (s *PG) Brands(ctx context.Context) ([]ent.Brand, error) {
	var bs []ent.Brand

	err := s.db.SelectContext(ctx, &bs, `select * from brand order by name`)
	if err != nil {
		return nil, fmt.Errorf("select brands: %w", err)
	}

	return bs, nil
}

func (s *PG) CreateBrand(ctx context.Context, b *ent.Brand) error {
	err := s.db.QueryRowxContext(ctx, `
		insert into brand (name, description)
		values ($1, $2)
		returning *
	`, b.Name, b.Description).StructScan(b)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: brand %q", ErrDuplicate, b.Name)
		}
		return fmt.Errorf("insert brand: %w", err)
	}

	return nil
}

// productsByIDs loads products (with category and brand names) keyed by id.
func (s *PG) productsByIDs(ctx context.Context, ids []int64) (map[int64]ent.Product, error) {
	if len(ids) == 0 {
		return map[int64]ent.Product{}, nil
	}

	var ps []ent.Product
	err := s.db.SelectContext(ctx, &ps, `
		select`+productColumns+` where p.id = any($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select products by ids: %w", err)
	}

	m := make(map[int64]ent.Product, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}

	return m, nil
}
