// Package store persists the storefront's relational state. Two
// implementations exist: PG over Postgres and Memory for tests.
package store

import (
	"context"

	"epharma/ent"
)

// ProductFilter narrows a catalog listing. Zero values mean "no filter";
// prices are minor units.
type ProductFilter struct {
	CategoryID int64
	BrandID    int64
	Search     string
	MinPrice   int64
	MaxPrice   int64
	InStock    bool
	Limit      int
	Offset     int
}

type CatalogStore interface {
	Products(ctx context.Context, f ProductFilter) ([]ent.Product, error)
	Product(ctx context.Context, id int64) (*ent.Product, error)
	ProductBySlug(ctx context.Context, slug string) (*ent.Product, error)
	CreateProduct(ctx context.Context, p *ent.Product) error
	UpdateProduct(ctx context.Context, p *ent.Product) error
	DeactivateProduct(ctx context.Context, id int64) error

	Categories(ctx context.Context) ([]ent.Category, error)
	CreateCategory(ctx context.Context, c *ent.Category) error
	Brands(ctx context.Context) ([]ent.Brand, error)
	CreateBrand(ctx context.Context, b *ent.Brand) error
}

// ProductInvalidator is implemented by catalog stores that keep a read
// cache. Callers that change product rows outside the CatalogStore
// methods use it to keep the cache honest.
type ProductInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...int64)
}

type CartStore interface {
	// CartItems returns the user's rows with current product data attached.
	CartItems(ctx context.Context, userID int64) ([]ent.CartItem, error)
	// AddCartItem merges qty into an existing (user, product) row or
	// inserts a new one. The merge is atomic: concurrent adds for the
	// same pair never produce two rows.
	AddCartItem(ctx context.Context, userID, productID int64, qty int32) (*ent.CartItem, error)
	// SetCartQuantity overwrites the quantity of an existing row.
	// Returns ErrNotFound if the row does not exist; it never inserts.
	SetCartQuantity(ctx context.Context, userID, productID int64, qty int32) (*ent.CartItem, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type OrderStore interface {
	// CreateOrder persists the order with its frozen items, decrements
	// product stock and clears the user's cart, all in one transaction.
	// On any failure nothing is applied and the cart is left untouched.
	CreateOrder(ctx context.Context, o *ent.Order, items []ent.OrderItem) error
	Orders(ctx context.Context, userID int64) ([]ent.Order, error)
	Order(ctx context.Context, id int64) (*ent.Order, error)
	// UpdateOrderStatus sets status and, when paymentStatus is non-empty,
	// payment_status.
	UpdateOrderStatus(ctx context.Context, id int64, status, paymentStatus string) (*ent.Order, error)
}

type PrescriptionStore interface {
	CreatePrescription(ctx context.Context, p *ent.Prescription, files []ent.PrescriptionFile) error
	Prescriptions(ctx context.Context, userID int64) ([]ent.Prescription, error)
	// PrescriptionsByStatus lists all records, newest first. An empty
	// status means no status filter.
	PrescriptionsByStatus(ctx context.Context, status string) ([]ent.Prescription, error)
	Prescription(ctx context.Context, id int64) (*ent.Prescription, error)
	// ReviewPrescription transitions a pending record to the given
	// status. Returns ErrAlreadyReviewed when the record has left
	// pending; the stored verdict is never changed after that.
	ReviewPrescription(ctx context.Context, id int64, status, notes string, reviewerID int64) (*ent.Prescription, error)
	HasVerifiedPrescription(ctx context.Context, userID int64) (bool, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *ent.User) error
	User(ctx context.Context, id int64) (*ent.User, error)
	UserByEmail(ctx context.Context, email string) (*ent.User, error)
	Permissions(ctx context.Context, userID int64) ([]string, error)
	GrantPermission(ctx context.Context, userID int64, permission string) error
	RevokePermission(ctx context.Context, userID int64, permission string) error
}
