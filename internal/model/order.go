package model

import "time"

// Order status values. SERVED and CANCELLED are terminal.
const (
	OrderPending   = "PENDING"
	OrderConfirmed = "CONFIRMED"
	OrderPreparing = "PREPARING"
	OrderReady     = "READY"
	OrderServed    = "SERVED"
	OrderCancelled = "CANCELLED"
)

// ValidOrderStatus reports whether s is one of the known status values.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderServed, OrderCancelled:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether s is a terminal status.
func TerminalOrderStatus(s string) bool {
	return s == OrderServed || s == OrderCancelled
}

// Order is created once by a customer and afterwards mutated only through
// status transitions. TotalAmount is computed server-side at creation and
// never changes, whatever happens to product prices later.
type Order struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	StoreID     uint      `json:"store_id" gorm:"not null;uniqueIndex:uidx_orders_store_number"`
	TableID     *uint     `json:"table_id,omitempty" gorm:"index"` // nil for take-away orders
	OrderNumber string    `json:"order_number" gorm:"type:varchar(30);not null;uniqueIndex:uidx_orders_store_number"` // unique per store, not globally
	GuestName   string    `json:"guest_name,omitempty" gorm:"type:varchar(100)"`
	Notes       string    `json:"notes,omitempty" gorm:"type:text"`
	TotalAmount float64   `json:"total_amount" gorm:"not null"`
	Status      string    `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Table *Table      `json:"table,omitempty" gorm:"foreignKey:TableID"`
}

// OrderItem snapshots the product price at order time, decoupled from later
// product price edits.
type OrderItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OrderID   uint      `json:"order_id" gorm:"index;not null"`
	ProductID uint      `json:"product_id" gorm:"index;not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Price     float64   `json:"price" gorm:"not null"`
	Notes     string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// OrderCounter is the per-store order sequence. It is bumped atomically with
// an upsert inside the order-creation transaction, so concurrent placements
// against the same store can never mint the same number.
type OrderCounter struct {
	StoreID    uint `json:"store_id" gorm:"primaryKey"`
	LastNumber int  `json:"last_number" gorm:"not null;default:0"`
}
