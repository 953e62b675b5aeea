// Package authz holds the role and tenant-scoping rules as pure functions,
// so every handler and middleware applies the same capability check instead
// of re-deriving it inline.
package authz

import "menew-api/internal/model"

// Principal is the authenticated identity a capability check runs against.
type Principal struct {
	UserID   uint
	Role     string
	TenantID *uint
}

// HasRole reports whether the principal holds one of the given roles.
func HasRole(p Principal, roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// CanAccessTenant reports whether the principal may touch resources owned by
// tenantID. SUPER_ADMIN bypasses tenant scoping; everyone else is confined to
// their own tenant.
func CanAccessTenant(p Principal, tenantID uint) bool {
	if p.Role == model.RoleSuperAdmin {
		return true
	}
	return p.TenantID != nil && *p.TenantID == tenantID
}

// CanManageStore reports whether the principal may mutate a store's products,
// categories, tables and orders: OWNER/MANAGER scoped to the store's tenant,
// or SUPER_ADMIN.
func CanManageStore(p Principal, storeTenantID uint) bool {
	if p.Role == model.RoleSuperAdmin {
		return true
	}
	if !HasRole(p, model.RoleOwner, model.RoleManager) {
		return false
	}
	return p.TenantID != nil && *p.TenantID == storeTenantID
}
