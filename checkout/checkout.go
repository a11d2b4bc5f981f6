// Package checkout converts a live cart into an immutable order. Prices
// are copied at freeze time; the cart is cleared only once the order is
// durably persisted, in the same transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"epharma/ent"
	"epharma/store"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrProductUnavailable   = errors.New("product is not available")
	ErrPrescriptionRequired = errors.New("a verified prescription is required")
	ErrInvalidStatus        = errors.New("invalid status")
)

type Service struct {
	carts   store.CartStore
	catalog store.CatalogStore
	orders  store.OrderStore
	rx      store.PrescriptionStore
}

func NewService(carts store.CartStore, catalog store.CatalogStore, orders store.OrderStore, rxStore store.PrescriptionStore) *Service {
	return &Service{carts: carts, catalog: catalog, orders: orders, rx: rxStore}
}

// CreateOrder freezes the caller's cart into an order. Every item's
// name and unit price are copied from the product as it is right now;
// later catalog changes never alter the order. If persisting the order
// fails for any reason the cart is left untouched.
func (s *Service) CreateOrder(ctx context.Context, userID int64) (*ent.Order, error) {
	items, err := s.carts.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var (
		frozen  []ent.OrderItem
		total   int64
		needsRx bool
	)

	for _, it := range items {
		p := it.Product
		if p == nil {
			p, err = s.catalog.Product(ctx, it.ProductID)
			if err != nil {
				return nil, err
			}
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, p.Name)
		}
		if p.StockQuantity < it.Quantity {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, p.Name)
		}
		if p.RequiresPrescription {
			needsRx = true
		}

		frozen = append(frozen, ent.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		})
		total += p.Price * int64(it.Quantity)
	}

	// Prescription-only items ride in the cart freely; the gate is here,
	// at the point of sale.
	if needsRx {
		ok, err := s.rx.HasVerifiedPrescription(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPrescriptionRequired
		}
	}

	o := &ent.Order{
		UserID:        userID,
		OrderNumber:   "ORD-" + uuid.NewString(),
		Status:        ent.OrderConfirmed,
		PaymentStatus: ent.PaymentPending,
		TotalAmount:   total,
	}

	err = s.orders.CreateOrder(ctx, o, frozen)
	if err != nil {
		return nil, err
	}

	// The stock decrement happened inside the order transaction, behind
	// the catalog store's back.
	if inv, ok := s.catalog.(store.ProductInvalidator); ok {
		ids := make([]int64, 0, len(frozen))
		for _, item := range frozen {
			ids = append(ids, item.ProductID)
		}
		inv.InvalidateProducts(ctx, ids...)
	}

	return o, nil
}

// Orders lists the caller's orders, newest first.
func (s *Service) Orders(ctx context.Context, userID int64) ([]ent.Order, error) {
	return s.orders.Orders(ctx, userID)
}

// Order returns one order; callers only see their own.
func (s *Service) Order(ctx context.Context, userID, id int64) (*ent.Order, error) {
	o, err := s.orders.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, store.ErrNotFound
	}

	return o, nil
}

// UpdateStatus changes an order's fulfilment and payment status.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) (*ent.Order, error) {
	switch status {
	case ent.OrderConfirmed, ent.OrderShipped, ent.OrderDelivered, ent.OrderCancelled:
	default:
		return nil, fmt.Errorf("%w: order status %q", ErrInvalidStatus, status)
	}
	switch paymentStatus {
	case "", ent.PaymentPending, ent.PaymentPaid, ent.PaymentFailed:
	default:
		return nil, fmt.Errorf("%w: payment status %q", ErrInvalidStatus, paymentStatus)
	}

	return s.orders.UpdateOrderStatus(ctx, id, status, paymentStatus)
}
