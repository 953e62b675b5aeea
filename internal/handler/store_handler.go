package handler

import (
	"net/http"
	"strconv"

	"menew-api/internal/authz"
	"menew-api/internal/middleware"
	"menew-api/internal/model"
	"menew-api/pkg/database"
	"menew-api/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StoreRequest defines the structure for store creation/update requests
type StoreRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// ListStores returns the stores visible to the principal: all of them for
// SUPER_ADMIN, the principal's tenant otherwise.
func ListStores(c echo.Context) error {
	log := logger.FromContext(c)
	p, _ := middleware.GetPrincipal(c)

	query := database.GetDB().Order("created_at desc")
	if p.Role != model.RoleSuperAdmin {
		if p.TenantID == nil {
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "account is not associated with a tenant"})
		}
		query = query.Where("tenant_id = ?", *p.TenantID)
	}

	var stores []model.Store
	if result := query.Find(&stores); result.Error != nil {
		log.Error("Failed to list stores", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to retrieve stores"})
	}

	data := make([]echo.Map, 0, len(stores))
	for _, store := range stores {
		var tableCount, productCount, orderCount int64
		database.GetDB().Model(&model.Table{}).Where("store_id = ?", store.ID).Count(&tableCount)
		database.GetDB().Model(&model.Product{}).Where("store_id = ?", store.ID).Count(&productCount)
		database.GetDB().Model(&model.Order{}).Where("store_id = ?", store.ID).Count(&orderCount)
		data = append(data, echo.Map{
			"id":            store.ID,
			"tenant_id":     store.TenantID,
			"name":          store.Name,
			"slug":          store.Slug,
			"address":       store.Address,
			"phone":         store.Phone,
			"description":   store.Description,
			"is_active":     store.IsActive,
			"table_count":   tableCount,
			"product_count": productCount,
			"order_count":   orderCount,
			"created_at":    store.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

// CreateStore creates a store under the principal's tenant, enforcing the
// subscription store cap.
func CreateStore(c echo.Context) error {
	log := logger.FromContext(c)
	p, _ := middleware.GetPrincipal(c)

	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.Name == "" || !validSlug(req.Slug) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "name and a lowercase slug are required"})
	}

	if p.TenantID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "account is not associated with a tenant"})
	}
	tenantID := *p.TenantID

	var count int64
	database.GetDB().Model(&model.Store{}).Where("slug = ?", req.Slug).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "store slug already in use"})
	}

	// Subscription store cap
	var subscription model.Subscription
	if result := database.GetDB().Where("tenant_id = ?", tenantID).First(&subscription); result.Error == nil {
		var storeCount int64
		database.GetDB().Model(&model.Store{}).Where("tenant_id = ?", tenantID).Count(&storeCount)
		if storeCount >= int64(subscription.MaxStores) {
			log.Warn("Subscription store limit reached",
				zap.Uint("tenant_id", tenantID),
				zap.Int("max_stores", subscription.MaxStores))
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "your plan does not allow more stores"})
		}
	}

	store := model.Store{
		TenantID:    tenantID,
		Name:        req.Name,
		Slug:        req.Slug,
		Address:     req.Address,
		Phone:       req.Phone,
		Description: req.Description,
		IsActive:    true,
	}
	if result := database.GetDB().Create(&store); result.Error != nil {
		log.Error("Failed to create store", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to create store"})
	}

	log.Info("Store created", zap.String("slug", store.Slug), zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": store})
}

// GetStore returns a store with its categories, products and tables
func GetStore(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid store id"})
	}

	p, _ := middleware.GetPrincipal(c)

	var store model.Store
	result := database.GetDB().
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("Categories.Products").
		Preload("Tables").
		First(&store, id)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "store not found"})
	}

	if !authz.CanAccessTenant(p, store.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "you do not have access to this store"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": store})
}

// UpdateStore updates a store's mutable fields
func UpdateStore(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid store id"})
	}

	p, _ := middleware.GetPrincipal(c)

	var store model.Store
	if result := database.GetDB().First(&store, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "store not found"})
	}
	if !authz.CanAccessTenant(p, store.TenantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "you do not have access to this store"})
	}

	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if req.Name != "" {
		store.Name = req.Name
	}
	if req.Slug != "" {
		if !validSlug(req.Slug) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "slug may only contain lowercase letters, digits and dashes"})
		}
		var count int64
		database.GetDB().Model(&model.Store{}).Where("slug = ? AND id != ?", req.Slug, id).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "store slug already in use"})
		}
		store.Slug = req.Slug
	}
	if req.Address != "" {
		store.Address = req.Address
	}
	if req.Phone != "" {
		store.Phone = req.Phone
	}
	if req.Description != "" {
		store.Description = req.Description
	}
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}

	if result := database.GetDB().Save(&store); result.Error != nil {
		log.Error("Failed to update store", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to update store"})
	}

	invalidateMenuCache(c, store.ID)

	log.Info("Store updated", zap.Uint("store_id", store.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": store})
}
