package model

import "time"

// Tenant status values. Deletion is a soft status flip, the row is retained.
const (
	TenantActive    = "ACTIVE"
	TenantSuspended = "SUSPENDED"
	TenantDeleted   = "DELETED"
)

// Tenant represents a top-level customer account owning stores and users
type Tenant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Slug      string    `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Subscription *Subscription `json:"subscription,omitempty" gorm:"foreignKey:TenantID"`
	Stores       []Store       `json:"stores,omitempty" gorm:"foreignKey:TenantID"`
	Users        []User        `json:"users,omitempty" gorm:"foreignKey:TenantID"`
}

// Subscription caps how many stores a tenant may create
type Subscription struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"uniqueIndex;not null"`
	Plan      string    `json:"plan" gorm:"type:varchar(20);not null;default:'FREE'"`
	MaxStores int       `json:"max_stores" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
