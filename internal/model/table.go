package model

import "time"

// Table is a physical table in a store, addressed externally by a T<number>
// token embedded in its QR-encoded menu URL.
type Table struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	StoreID   uint      `json:"store_id" gorm:"uniqueIndex:idx_store_table_number;not null"`
	Number    int       `json:"number" gorm:"uniqueIndex:idx_store_table_number;not null"`
	Label     string    `json:"label,omitempty" gorm:"type:varchar(100)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
