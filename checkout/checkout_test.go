package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epharma/cart"
	"epharma/ent"
	"epharma/store"
)

type fixture struct {
	svc   *Service
	cart  *cart.Service
	mem   *store.Memory
	otc   *ent.Product
	rxReq *ent.Product
}

func setup(t *testing.T) fixture {
	t.Helper()

	mem := store.NewMemory()
	ctx := context.Background()

	otc := &ent.Product{
		Name:          "Vitamin C 1000mg",
		Slug:          "vitamin-c-1000mg",
		Price:         2500,
		StockQuantity: 50,
		IsActive:      true,
	}
	require.NoError(t, mem.CreateProduct(ctx, otc))

	rxReq := &ent.Product{
		Name:                 "Amoxicillin 500mg",
		Slug:                 "amoxicillin-500mg",
		Price:                4000,
		StockQuantity:        30,
		RequiresPrescription: true,
		IsActive:             true,
	}
	require.NoError(t, mem.CreateProduct(ctx, rxReq))

	return fixture{
		svc:   NewService(mem, mem, mem, mem),
		cart:  cart.NewService(mem, mem),
		mem:   mem,
		otc:   otc,
		rxReq: rxReq,
	}
}

func verifyPrescription(t *testing.T, mem *store.Memory, userID int64) {
	t.Helper()
	ctx := context.Background()

	p := &ent.Prescription{
		UserID:           userID,
		PatientName:      "Ama Mensah",
		DoctorName:       "Dr. Osei",
		DoctorContact:    "+233200000000",
		PrescriptionDate: time.Now(),
	}
	require.NoError(t, mem.CreatePrescription(ctx, p, nil))
	_, err := mem.ReviewPrescription(ctx, p.ID, ent.PrescriptionVerified, "", 99)
	require.NoError(t, err)
}

func TestCreateOrderFreezesPrices(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 2)
	require.NoError(t, err)

	// A price change between add and checkout lands in the order.
	f.otc.Price = 3000
	require.NoError(t, f.mem.UpdateProduct(ctx, f.otc))

	o, err := f.svc.CreateOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(3000), o.Items[0].UnitPrice)
	assert.Equal(t, "Vitamin C 1000mg", o.Items[0].ProductName)
	assert.Equal(t, int64(6000), o.TotalAmount)

	// A change after checkout never does.
	f.otc.Price = 9900
	f.otc.Name = "Renamed"
	require.NoError(t, f.mem.UpdateProduct(ctx, f.otc))

	got, err := f.svc.Order(ctx, 1, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(3000), got.Items[0].UnitPrice)
	assert.Equal(t, "Vitamin C 1000mg", got.Items[0].ProductName)
	assert.Equal(t, int64(6000), got.TotalAmount)
}

func TestCreateOrderClearsCartAndStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 3)
	require.NoError(t, err)

	o, err := f.svc.CreateOrder(ctx, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))
	assert.Equal(t, ent.OrderConfirmed, o.Status)
	assert.Equal(t, ent.PaymentPending, o.PaymentStatus)

	items, err := f.cart.Items(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)

	p, err := f.mem.Product(ctx, f.otc.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(47), p.StockQuantity)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateOrder(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderInsufficientStockLeavesCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 60)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, 1)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	// Failure leaves the cart and the stock exactly as they were.
	items, err := f.cart.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(60), items[0].Quantity)

	p, err := f.mem.Product(ctx, f.otc.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(50), p.StockQuantity)
}

type failingOrders struct {
	store.OrderStore
}

func (failingOrders) CreateOrder(context.Context, *ent.Order, []ent.OrderItem) error {
	return errors.New("connection reset")
}

func TestCreateOrderPersistFailureLeavesCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	svc := NewService(f.mem, f.mem, failingOrders{OrderStore: f.mem}, f.mem)

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 2)
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, 1)
	require.Error(t, err)

	items, err := f.cart.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(2), items[0].Quantity)
}

type invalidatingCatalog struct {
	*store.Memory

	invalidated []int64
}

func (c *invalidatingCatalog) InvalidateProducts(_ context.Context, ids ...int64) {
	c.invalidated = append(c.invalidated, ids...)
}

func TestCreateOrderInvalidatesCachedProducts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	catalog := &invalidatingCatalog{Memory: f.mem}
	svc := NewService(f.mem, catalog, f.mem, f.mem)

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 1)
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.otc.ID}, catalog.invalidated)

	// A failed order changes no stock, so nothing to invalidate.
	catalog.invalidated = nil
	_, err = f.cart.Add(ctx, 1, f.otc.ID, 999)
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, 1)
	require.Error(t, err)
	assert.Empty(t, catalog.invalidated)
}

func TestCreateOrderDeactivatedProduct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.mem.DeactivateProduct(ctx, f.otc.ID))

	_, err = f.svc.CreateOrder(ctx, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestPrescriptionGate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Prescription items ride in the cart freely.
	_, err := f.cart.Add(ctx, 1, f.rxReq.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, 1)
	assert.ErrorIs(t, err, ErrPrescriptionRequired)

	items, err := f.cart.Items(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	verifyPrescription(t, f.mem, 1)

	o, err := f.svc.CreateOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), o.TotalAmount)
}

func TestPrescriptionGateOtherUsersVerification(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	verifyPrescription(t, f.mem, 2)

	_, err := f.cart.Add(ctx, 1, f.rxReq.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, 1)
	assert.ErrorIs(t, err, ErrPrescriptionRequired)
}

func TestOrderVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 1)
	require.NoError(t, err)

	o, err := f.svc.CreateOrder(ctx, 1)
	require.NoError(t, err)

	_, err = f.svc.Order(ctx, 2, o.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	orders, err := f.svc.Orders(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.cart.Add(ctx, 1, f.otc.ID, 1)
	require.NoError(t, err)

	o, err := f.svc.CreateOrder(ctx, 1)
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(ctx, o.ID, ent.OrderShipped, ent.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, ent.OrderShipped, got.Status)
	assert.Equal(t, ent.PaymentPaid, got.PaymentStatus)

	// Empty payment status leaves the current one in place.
	got, err = f.svc.UpdateStatus(ctx, o.ID, ent.OrderDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, ent.OrderDelivered, got.Status)
	assert.Equal(t, ent.PaymentPaid, got.PaymentStatus)

	_, err = f.svc.UpdateStatus(ctx, o.ID, "teleported", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.UpdateStatus(ctx, o.ID, ent.OrderShipped, "iou")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
