package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"epharma/ent"
)

// Memory is an in-process implementation of every store interface with
// the same semantics as PG. It backs the service tests.
type Memory struct {
	mu  sync.Mutex
	seq int64

	users      map[int64]ent.User
	perms      map[int64]map[string]bool
	categories map[int64]ent.Category
	brands     map[int64]ent.Brand
	products   map[int64]ent.Product
	carts      map[int64]map[int64]ent.CartItem
	orders     map[int64]ent.Order
	orderItems map[int64][]ent.OrderItem
	rx         map[int64]ent.Prescription
	rxFiles    map[int64][]ent.PrescriptionFile
}

func NewMemory() *Memory {
	return &Memory{
		users:      map[int64]ent.User{},
		perms:      map[int64]map[string]bool{},
		categories: map[int64]ent.Category{},
		brands:     map[int64]ent.Brand{},
		products:   map[int64]ent.Product{},
		carts:      map[int64]map[int64]ent.CartItem{},
		orders:     map[int64]ent.Order{},
		orderItems: map[int64][]ent.OrderItem{},
		rx:         map[int64]ent.Prescription{},
		rxFiles:    map[int64][]ent.PrescriptionFile{},
	}
}

func (m *Memory) nextID() int64 {
	m.seq++
	return m.seq
}

// Catalog

func (m *Memory) Products(_ context.Context, f ProductFilter) ([]ent.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ps []ent.Product
	for _, p := range m.products {
		if !p.IsActive {
			continue
		}
		if f.CategoryID != 0 && (p.CategoryID == nil || *p.CategoryID != f.CategoryID) {
			continue
		}
		if f.BrandID != 0 && (p.BrandID == nil || *p.BrandID != f.BrandID) {
			continue
		}
		if f.Search != "" {
			s := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(p.Name), s) &&
				!strings.Contains(strings.ToLower(p.Description), s) {
				continue
			}
		}
		if f.MinPrice > 0 && p.Price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && p.Price > f.MaxPrice {
			continue
		}
		if f.InStock && p.StockQuantity <= 0 {
			continue
		}
		ps = append(ps, m.productView(p))
	}

	sort.Slice(ps, func(i, j int) bool { return ps[i].ID > ps[j].ID })

	if f.Offset > 0 {
		if f.Offset >= len(ps) {
			return nil, nil
		}
		ps = ps[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(ps) {
		ps = ps[:f.Limit]
	}

	return ps, nil
}

func (m *Memory) Product(_ context.Context, id int64) (*ent.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.productView(p)

	return &v, nil
}

func (m *Memory) ProductBySlug(_ context.Context, slug string) (*ent.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.products {
		if p.Slug == slug {
			v := m.productView(p)
			return &v, nil
		}
	}

	return nil, ErrNotFound
}

func (m *Memory) CreateProduct(_ context.Context, p *ent.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.products {
		if other.Slug == p.Slug {
			return fmt.Errorf("%w: slug %q", ErrDuplicate, p.Slug)
		}
	}

	p.ID = m.nextID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = *p
	*p = m.productView(m.products[p.ID])

	return nil
}

func (m *Memory) UpdateProduct(_ context.Context, p *ent.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	for _, other := range m.products {
		if other.ID != p.ID && other.Slug == p.Slug {
			return fmt.Errorf("%w: slug %q", ErrDuplicate, p.Slug)
		}
	}

	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now()
	m.products[p.ID] = *p
	*p = m.productView(m.products[p.ID])

	return nil
}

func (m *Memory) DeactivateProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = false
	p.UpdatedAt = time.Now()
	m.products[id] = p

	return nil
}

func (m *Memory) Categories(_ context.Context) ([]ent.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cs []ent.Category
	for _, c := range m.categories {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })

	return cs, nil
}

func (m *Memory) CreateCategory(_ context.Context, c *ent.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.categories {
		if other.Slug == c.Slug {
			return fmt.Errorf("%w: slug %q", ErrDuplicate, c.Slug)
		}
	}

	c.ID = m.nextID()
	m.categories[c.ID] = *c

	return nil
}

func (m *Memory) Brands(_ context.Context) ([]ent.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bs []ent.Brand
	for _, b := range m.brands {
		bs = append(bs, b)
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].Name < bs[j].Name })

	return bs, nil
}

func (m *Memory) CreateBrand(_ context.Context, b *ent.Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.brands {
		if other.Name == b.Name {
			return fmt.Errorf("%w: brand %q", ErrDuplicate, b.Name)
		}
	}

	b.ID = m.nextID()
	m.brands[b.ID] = *b

	return nil
}

func (m *Memory) productView(p ent.Product) ent.Product {
	if p.CategoryID != nil {
		if c, ok := m.categories[*p.CategoryID]; ok {
			name := c.Name
			p.CategoryName = &name
		}
	}
	if p.BrandID != nil {
		if b, ok := m.brands[*p.BrandID]; ok {
			name := b.Name
			p.BrandName = &name
		}
	}

	return p
}

// Cart

func (m *Memory) CartItems(_ context.Context, userID int64) ([]ent.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []ent.CartItem
	for _, it := range m.carts[userID] {
		if p, ok := m.products[it.ProductID]; ok {
			v := m.productView(p)
			it.Product = &v
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })

	return items, nil
}

func (m *Memory) AddCartItem(_ context.Context, userID, productID int64, qty int32) (*ent.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart := m.carts[userID]
	if cart == nil {
		cart = map[int64]ent.CartItem{}
		m.carts[userID] = cart
	}

	it, ok := cart[productID]
	if ok {
		it.Quantity += qty
		it.UpdatedAt = time.Now()
	} else {
		now := time.Now()
		it = ent.CartItem{
			ID:        m.nextID(),
			UserID:    userID,
			ProductID: productID,
			Quantity:  qty,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	cart[productID] = it

	return &it, nil
}

func (m *Memory) SetCartQuantity(_ context.Context, userID, productID int64, qty int32) (*ent.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.carts[userID][productID]
	if !ok {
		return nil, ErrNotFound
	}
	it.Quantity = qty
	it.UpdatedAt = time.Now()
	m.carts[userID][productID] = it

	return &it, nil
}

func (m *Memory) RemoveCartItem(_ context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts[userID], productID)

	return nil
}

func (m *Memory) ClearCart(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, userID)

	return nil
}

// Orders

func (m *Memory) CreateOrder(_ context.Context, o *ent.Order, items []ent.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check everything before touching any state so a failure leaves the
	// cart and stock as they were.
	for _, item := range items {
		p, ok := m.products[item.ProductID]
		if !ok {
			return fmt.Errorf("%w: product %d", ErrNotFound, item.ProductID)
		}
		if p.StockQuantity < item.Quantity {
			return fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
		}
	}

	now := time.Now()
	o.ID = m.nextID()
	o.CreatedAt = now
	o.UpdatedAt = now

	var saved []ent.OrderItem
	for _, item := range items {
		p := m.products[item.ProductID]
		p.StockQuantity -= item.Quantity
		p.UpdatedAt = now
		m.products[item.ProductID] = p

		item.ID = m.nextID()
		item.OrderID = o.ID
		saved = append(saved, item)
	}

	o.Items = saved
	m.orders[o.ID] = *o
	m.orderItems[o.ID] = saved
	delete(m.carts, o.UserID)

	return nil
}

func (m *Memory) Orders(_ context.Context, userID int64) ([]ent.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var os []ent.Order
	for _, o := range m.orders {
		if o.UserID != userID {
			continue
		}
		o.Items = append([]ent.OrderItem(nil), m.orderItems[o.ID]...)
		os = append(os, o)
	}
	sort.Slice(os, func(i, j int) bool { return os[i].ID > os[j].ID })

	return os, nil
}

func (m *Memory) Order(_ context.Context, id int64) (*ent.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Items = append([]ent.OrderItem(nil), m.orderItems[id]...)

	return &o, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id int64, status, paymentStatus string) (*ent.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	if paymentStatus != "" {
		o.PaymentStatus = paymentStatus
	}
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	o.Items = append([]ent.OrderItem(nil), m.orderItems[id]...)

	return &o, nil
}

// Prescriptions

func (m *Memory) CreatePrescription(_ context.Context, p *ent.Prescription, files []ent.PrescriptionFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	p.ID = m.nextID()
	p.Status = ent.PrescriptionPending
	p.CreatedAt = now
	p.UpdatedAt = now

	var saved []ent.PrescriptionFile
	for i, f := range files {
		f.ID = m.nextID()
		f.PrescriptionID = p.ID
		f.Position = int32(i)
		saved = append(saved, f)
	}

	p.Files = saved
	m.rx[p.ID] = *p
	m.rxFiles[p.ID] = saved

	return nil
}

func (m *Memory) Prescriptions(_ context.Context, userID int64) ([]ent.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ps []ent.Prescription
	for _, p := range m.rx {
		if p.UserID != userID {
			continue
		}
		p.Files = append([]ent.PrescriptionFile(nil), m.rxFiles[p.ID]...)
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID > ps[j].ID })

	return ps, nil
}

func (m *Memory) PrescriptionsByStatus(_ context.Context, status string) ([]ent.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ps []ent.Prescription
	for _, p := range m.rx {
		if status != "" && p.Status != status {
			continue
		}
		p.Files = append([]ent.PrescriptionFile(nil), m.rxFiles[p.ID]...)
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID > ps[j].ID })

	return ps, nil
}

func (m *Memory) Prescription(_ context.Context, id int64) (*ent.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.rx[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Files = append([]ent.PrescriptionFile(nil), m.rxFiles[id]...)

	return &p, nil
}

func (m *Memory) ReviewPrescription(_ context.Context, id int64, status, notes string, reviewerID int64) (*ent.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.rx[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != ent.PrescriptionPending {
		return nil, ErrAlreadyReviewed
	}

	p.Status = status
	p.ReviewNotes = &notes
	p.ReviewedBy = &reviewerID
	p.UpdatedAt = time.Now()
	m.rx[id] = p
	p.Files = append([]ent.PrescriptionFile(nil), m.rxFiles[id]...)

	return &p, nil
}

func (m *Memory) HasVerifiedPrescription(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.rx {
		if p.UserID == userID && p.Status == ent.PrescriptionVerified {
			return true, nil
		}
	}

	return false, nil
}

// Users

func (m *Memory) CreateUser(_ context.Context, u *ent.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.users {
		if other.Email == u.Email {
			return fmt.Errorf("%w: email %q", ErrDuplicate, u.Email)
		}
	}

	now := time.Now()
	u.ID = m.nextID()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = *u

	return nil
}

func (m *Memory) User(_ context.Context, id int64) (*ent.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*ent.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}

	return nil, ErrNotFound
}

func (m *Memory) Permissions(_ context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var perms []string
	for p := range m.perms[userID] {
		perms = append(perms, p)
	}
	sort.Strings(perms)

	return perms, nil
}

func (m *Memory) GrantPermission(_ context.Context, userID int64, permission string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.perms[userID] == nil {
		m.perms[userID] = map[string]bool{}
	}
	m.perms[userID][permission] = true

	return nil
}

func (m *Memory) RevokePermission(_ context.Context, userID int64, permission string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.perms[userID], permission)

	return nil
}
