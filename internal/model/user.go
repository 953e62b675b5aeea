package model

import "time"

// User roles
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleOwner      = "OWNER"
	RoleManager    = "MANAGER"
)

// User represents a staff account. TenantID is nil only for SUPER_ADMIN
// accounts, which operate across tenants.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	TenantID     *uint     `json:"tenant_id,omitempty" gorm:"index"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	Email        string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password     string    `json:"-" gorm:"type:varchar(255);not null"`
	Role         string    `json:"role" gorm:"type:varchar(20);not null"`
	RefreshToken string    `json:"-" gorm:"type:text"` // current refresh token, one session per user
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
