package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"epharma/ent"
)

func (s *PG) CartItems(ctx context.Context, userID int64) ([]ent.CartItem, error) {
	var items []ent.CartItem

	err := s.db.SelectContext(ctx, &items, `
		select * from cart_item where user_id = $1 order by created_at desc
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	products, err := s.productsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if p, ok := products[items[i].ProductID]; ok {
			p := p
			items[i].Product = &p
		}
	}

	return items, nil
}

func (s *PG) AddCartItem(ctx context.Context, userID, productID int64, qty int32) (*ent.CartItem, error) {
	var it ent.CartItem

	// The conflict clause is what makes repeated adds merge instead of
	// duplicating rows, including under concurrent requests.
	err := s.db.QueryRowxContext(ctx, `
		insert into cart_item (user_id, product_id, quantity)
		values ($1, $2, $3)
		on conflict (user_id, product_id)
		    do update set quantity   = cart_item.quantity + excluded.quantity,
		                  updated_at = now()
		returning *
	`, userID, productID, qty).StructScan(&it)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return &it, nil
}

func (s *PG) SetCartQuantity(ctx context.Context, userID, productID int64, qty int32) (*ent.CartItem, error) {
	var it ent.CartItem

	err := s.db.QueryRowxContext(ctx, `
		update cart_item
		set quantity = $3, updated_at = now()
		where user_id = $1 and product_id = $2
		returning *
	`, userID, productID, qty).StructScan(&it)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set cart quantity: %w", err)
	}

	return &it, nil
}

func (s *PG) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx, `
		delete from cart_item where user_id = $1 and product_id = $2
	`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	return nil
}

func (s *PG) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `delete from cart_item where user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return nil
}
