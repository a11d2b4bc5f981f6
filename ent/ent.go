package ent

import "time"

// Prices are stored in minor currency units (pesewas).

const (
	PrescriptionPending  = "pending"
	PrescriptionVerified = "verified"
	PrescriptionRejected = "rejected"
)

const (
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

const (
	PermEditProducts      = "edit_products"
	PermViewPrescriptions = "view_prescriptions"
	PermManageOrders      = "manage_orders"
	PermManageUsers       = "manage_users"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	Permissions []string `json:"permissions,omitempty" db:"-"`
}

type Category struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description" db:"description"`
}

type Brand struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

type Product struct {
	ID                   int64     `json:"id" db:"id"`
	CategoryID           *int64    `json:"category_id" db:"category_id"`
	BrandID              *int64    `json:"brand_id" db:"brand_id"`
	Name                 string    `json:"name" db:"name"`
	Slug                 string    `json:"slug" db:"slug"`
	Description          string    `json:"description" db:"description"`
	ShortDescription     string    `json:"short_description" db:"short_description"`
	Dosage               string    `json:"dosage" db:"dosage"`
	ImageURL             string    `json:"image_url" db:"image_url"`
	Price                int64     `json:"price" db:"price"`
	OriginalPrice        *int64    `json:"original_price" db:"original_price"`
	StockQuantity        int32     `json:"stock_quantity" db:"stock_quantity"`
	RequiresPrescription bool      `json:"requires_prescription" db:"requires_prescription"`
	IsActive             bool      `json:"is_active" db:"is_active"`
	Rating               float64   `json:"rating" db:"rating"`
	ReviewCount          int32     `json:"review_count" db:"review_count"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`

	CategoryName *string `json:"category_name,omitempty" db:"category_name"`
	BrandName    *string `json:"brand_name,omitempty" db:"brand_name"`
}

type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Quantity  int32     `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Product *Product `json:"product,omitempty" db:"-"`
}

type Order struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	OrderNumber   string    `json:"order_number" db:"order_number"`
	Status        string    `json:"status" db:"status"`
	PaymentStatus string    `json:"payment_status" db:"payment_status"`
	TotalAmount   int64     `json:"total_amount" db:"total_amount"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	Items []OrderItem `json:"items,omitempty" db:"-"`
}

// OrderItem is a frozen copy of the product at purchase time. ProductName
// and UnitPrice never re-read the live product row.
type OrderItem struct {
	ID          int64  `json:"id" db:"id"`
	OrderID     int64  `json:"order_id" db:"order_id"`
	ProductID   int64  `json:"product_id" db:"product_id"`
	ProductName string `json:"product_name" db:"product_name"`
	Quantity    int32  `json:"quantity" db:"quantity"`
	UnitPrice   int64  `json:"unit_price" db:"unit_price"`
}

type Prescription struct {
	ID               int64     `json:"id" db:"id"`
	UserID           int64     `json:"user_id" db:"user_id"`
	PatientName      string    `json:"patient_name" db:"patient_name"`
	DoctorName       string    `json:"doctor_name" db:"doctor_name"`
	DoctorContact    string    `json:"doctor_contact" db:"doctor_contact"`
	PrescriptionDate time.Time `json:"prescription_date" db:"prescription_date"`
	Medications      string    `json:"medications" db:"medications"`
	Status           string    `json:"status" db:"status"`
	ReviewNotes      *string   `json:"review_notes" db:"review_notes"`
	ReviewedBy       *int64    `json:"reviewed_by" db:"reviewed_by"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`

	Files []PrescriptionFile `json:"files,omitempty" db:"-"`
}

type PrescriptionFile struct {
	ID             int64  `json:"id" db:"id"`
	PrescriptionID int64  `json:"prescription_id" db:"prescription_id"`
	Filename       string `json:"filename" db:"filename"`
	URL            string `json:"url" db:"url"`
	ContentType    string `json:"content_type" db:"content_type"`
	Size           int64  `json:"size" db:"size"`
	Position       int32  `json:"position" db:"position"`
}
