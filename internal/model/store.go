package model

import "time"

// Store represents a single restaurant location with its own menu and tables
type Store struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TenantID    uint      `json:"tenant_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Address     string    `json:"address,omitempty" gorm:"type:text"`
	Phone       string    `json:"phone,omitempty" gorm:"type:varchar(30)"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Tenant     *Tenant    `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Categories []Category `json:"categories,omitempty" gorm:"foreignKey:StoreID"`
	Tables     []Table    `json:"tables,omitempty" gorm:"foreignKey:StoreID"`
}
