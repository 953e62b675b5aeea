package model

import "time"

// Product is a single menu item. IsAvailable is the piece of mutable state
// driving the realtime stock sync.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CategoryID  uint      `json:"category_id" gorm:"index;not null"`
	StoreID     uint      `json:"store_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(100);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Price       float64   `json:"price" gorm:"not null"`
	Image       *string   `json:"image,omitempty" gorm:"type:varchar(255)"`
	IsAvailable bool      `json:"is_available" gorm:"default:true"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}
