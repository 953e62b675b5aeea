package handler

import (
	"net/http"

	"menew-api/internal/authz"
	"menew-api/internal/middleware"
	"menew-api/internal/model"
	"menew-api/pkg/database"

	"github.com/labstack/echo/v4"
)

// scopedStore loads a store and enforces the tenant-scoping rule for the
// authenticated principal. On failure the response has already been written;
// callers check for a nil store and return the error as-is.
func scopedStore(c echo.Context, storeID uint) (*model.Store, error) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "authentication required"})
	}

	var store model.Store
	if result := database.GetDB().First(&store, storeID); result.Error != nil {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "store not found"})
	}

	if !authz.CanManageStore(p, store.TenantID) {
		return nil, c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "you do not have access to this store"})
	}

	return &store, nil
}
