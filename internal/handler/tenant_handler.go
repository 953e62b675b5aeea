package handler

import (
	"net/http"
	"strconv"

	"menew-api/internal/model"
	"menew-api/pkg/database"
	"menew-api/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantRequest defines the structure for tenant creation/update requests
type TenantRequest struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status string `json:"status,omitempty"`
}

// ListTenants returns all tenants with their subscription and store/user counts
func ListTenants(c echo.Context) error {
	log := logger.FromContext(c)

	var tenants []model.Tenant
	result := database.GetDB().Preload("Subscription").Order("created_at desc").Find(&tenants)
	if result.Error != nil {
		log.Error("Failed to list tenants", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to retrieve tenants"})
	}

	data := make([]echo.Map, 0, len(tenants))
	for _, tenant := range tenants {
		var storeCount, userCount int64
		database.GetDB().Model(&model.Store{}).Where("tenant_id = ?", tenant.ID).Count(&storeCount)
		database.GetDB().Model(&model.User{}).Where("tenant_id = ?", tenant.ID).Count(&userCount)
		data = append(data, echo.Map{
			"id":           tenant.ID,
			"name":         tenant.Name,
			"slug":         tenant.Slug,
			"status":       tenant.Status,
			"subscription": tenant.Subscription,
			"store_count":  storeCount,
			"user_count":   userCount,
			"created_at":   tenant.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

// CreateTenant creates a tenant with a default FREE subscription
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.Name == "" || !validSlug(req.Slug) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "name and a lowercase slug are required"})
	}

	var count int64
	database.GetDB().Model(&model.Tenant{}).Where("slug = ?", req.Slug).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "tenant slug already in use"})
	}

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "database error"})
	}

	tenant := model.Tenant{Name: req.Name, Slug: req.Slug, Status: model.TenantActive}
	if err := tx.Create(&tenant).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to create tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to create tenant"})
	}

	subscription := model.Subscription{TenantID: tenant.ID, Plan: "FREE", MaxStores: 1}
	if err := tx.Create(&subscription).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to create subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to create tenant"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit tenant creation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to create tenant"})
	}

	tenant.Subscription = &subscription
	log.Info("Tenant created", zap.String("slug", tenant.Slug))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": tenant})
}

// GetTenant returns a tenant with its stores and users
func GetTenant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid tenant id"})
	}

	var tenant model.Tenant
	result := database.GetDB().
		Preload("Subscription").
		Preload("Stores").
		Preload("Users").
		First(&tenant, id)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "tenant not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": tenant})
}

// UpdateTenant updates a tenant's name, slug or status
func UpdateTenant(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid tenant id"})
	}

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "tenant not found"})
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.Slug != "" {
		if !validSlug(req.Slug) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "slug may only contain lowercase letters, digits and dashes"})
		}
		var count int64
		database.GetDB().Model(&model.Tenant{}).Where("slug = ? AND id != ?", req.Slug, id).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "tenant slug already in use"})
		}
		tenant.Slug = req.Slug
	}
	if req.Status != "" {
		switch req.Status {
		case model.TenantActive, model.TenantSuspended, model.TenantDeleted:
			tenant.Status = req.Status
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid tenant status"})
		}
	}

	if result := database.GetDB().Save(&tenant); result.Error != nil {
		log.Error("Failed to update tenant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to update tenant"})
	}

	log.Info("Tenant updated", zap.Uint("tenant_id", tenant.ID), zap.String("status", tenant.Status))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": tenant})
}

// DeleteTenant soft-deletes a tenant by flipping its status. The row is kept.
func DeleteTenant(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid tenant id"})
	}

	result := database.GetDB().Model(&model.Tenant{}).Where("id = ?", id).Update("status", model.TenantDeleted)
	if result.Error != nil {
		log.Error("Failed to delete tenant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to delete tenant"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "tenant not found"})
	}

	log.Info("Tenant deleted", zap.Int("tenant_id", id))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "tenant deleted"})
}
