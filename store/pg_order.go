package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"epharma/ent"
)

func (s *PG) CreateOrder(ctx context.Context, o *ent.Order, items []ent.OrderItem) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.QueryRowxContext(ctx, `
		insert into "order" (user_id, order_number, status, payment_status, total_amount)
		values ($1, $2, $3, $4, $5)
		returning *
	`, o.UserID, o.OrderNumber, o.Status, o.PaymentStatus, o.TotalAmount).
		StructScan(o)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		res, err2 := tx.ExecContext(ctx, `
			update product
			set stock_quantity = stock_quantity - $2, updated_at = now()
			where id = $1 and stock_quantity >= $2
		`, item.ProductID, item.Quantity)
		if err2 != nil {
			err = fmt.Errorf("decrement stock: %w", err2)
			return err
		}
		n, err2 := res.RowsAffected()
		if err2 != nil {
			err = err2
			return err
		}
		if n == 0 {
			err = fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
			return err
		}

		var saved ent.OrderItem
		err = tx.QueryRowxContext(ctx, `
			insert into order_item (order_id, product_id, product_name, quantity, unit_price)
			values ($1, $2, $3, $4, $5)
			returning *
		`, o.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice).
			StructScan(&saved)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		o.Items = append(o.Items, saved)
	}

	// The clear rides in the same transaction as the freeze: an aborted
	// order leaves the cart exactly as it was.
	_, err = tx.ExecContext(ctx, `delete from cart_item where user_id = $1`, o.UserID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	return nil
}

func (s *PG) Orders(ctx context.Context, userID int64) ([]ent.Order, error) {
	var os []ent.Order

	err := s.db.SelectContext(ctx, &os, `
		select * from "order" where user_id = $1 order by created_at desc
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	if err := s.attachOrderItems(ctx, os); err != nil {
		return nil, err
	}

	return os, nil
}

func (s *PG) Order(ctx context.Context, id int64) (*ent.Order, error) {
	var o ent.Order

	err := s.db.GetContext(ctx, &o, `select * from "order" where id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	os := []ent.Order{o}
	if err := s.attachOrderItems(ctx, os); err != nil {
		return nil, err
	}

	return &os[0], nil
}

func (s *PG) UpdateOrderStatus(ctx context.Context, id int64, status, paymentStatus string) (*ent.Order, error) {
	var (
		o   ent.Order
		err error
	)

	if paymentStatus != "" {
		err = s.db.QueryRowxContext(ctx, `
			update "order"
			set status = $2, payment_status = $3, updated_at = now()
			where id = $1
			returning *
		`, id, status, paymentStatus).StructScan(&o)
	} else {
		err = s.db.QueryRowxContext(ctx, `
			update "order" set status = $2, updated_at = now()
			where id = $1
			returning *
		`, id, status).StructScan(&o)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	os := []ent.Order{o}
	if err := s.attachOrderItems(ctx, os); err != nil {
		return nil, err
	}

	return &os[0], nil
}

func (s *PG) attachOrderItems(ctx context.Context, os []ent.Order) error {
	if len(os) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(os))
	for _, o := range os {
		ids = append(ids, o.ID)
	}

	var items []ent.OrderItem
	err := s.db.SelectContext(ctx, &items, `
		select * from order_item where order_id = any($1) order by id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}

	byOrder := map[int64][]ent.OrderItem{}
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range os {
		os[i].Items = byOrder[os[i].ID]
	}

	return nil
}
