// Package cart implements the per-user product ledger behind the
// shopping cart: repeated adds merge quantities, explicit updates
// overwrite them, removals are idempotent.
package cart

import (
	"context"
	"errors"
	"fmt"

	"epharma/ent"
	"epharma/store"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrProductUnavailable = errors.New("product is not available")
)

type Service struct {
	catalog store.CatalogStore
	carts   store.CartStore
}

func NewService(catalog store.CatalogStore, carts store.CartStore) *Service {
	return &Service{catalog: catalog, carts: carts}
}

// Add merges qty into the user's row for the product, creating the row
// on first add. Safe to call repeatedly: N adds of q yield quantity N*q.
func (s *Service) Add(ctx context.Context, userID, productID int64, qty int32) (*ent.CartItem, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, productID)
	}

	return s.carts.AddCartItem(ctx, userID, productID, qty)
}

// Update overwrites the quantity of an existing row. Unlike Add it never
// creates a row: updating an absent item is a not-found error.
func (s *Service) Update(ctx context.Context, userID, productID int64, qty int32) (*ent.CartItem, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	return s.carts.SetCartQuantity(ctx, userID, productID, qty)
}

// Remove deletes the row if present. Removing an absent item is not an
// error.
func (s *Service) Remove(ctx context.Context, userID, productID int64) error {
	return s.carts.RemoveCartItem(ctx, userID, productID)
}

// Clear empties the user's cart. Idempotent.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.carts.ClearCart(ctx, userID)
}

// Items returns the cart joined with current product data. Totals
// computed from it always reflect current prices; prices only freeze at
// checkout.
func (s *Service) Items(ctx context.Context, userID int64) ([]ent.CartItem, error) {
	return s.carts.CartItems(ctx, userID)
}
