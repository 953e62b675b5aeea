package model

import "time"

// Category groups products on a store's menu, ordered by SortOrder ascending
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	StoreID     uint      `json:"store_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(100);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
}
