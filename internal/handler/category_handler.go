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

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sort_order,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// ListCategories returns a store's categories ordered for display
func ListCategories(c echo.Context) error {
	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	var categories []model.Category
	result := database.GetDB().
		Where("store_id = ?", store.ID).
		Order("sort_order asc").
		Find(&categories)
	if result.Error != nil {
		logger.FromContext(c).Error("Failed to list categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to retrieve categories"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": categories})
}

// CreateCategory creates a category in a store
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)

	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.Name == "" || !validSlug(req.Slug) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "name and a lowercase slug are required"})
	}

	category := model.Category{
		StoreID:     store.ID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsActive:    true,
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if result := database.GetDB().Create(&category); result.Error != nil {
		log.Error("Failed to create category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to create category"})
	}

	invalidateMenuCache(c, store.ID)

	log.Info("Category created",
		zap.Uint("store_id", store.ID),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": category})
}

// UpdateCategory updates a category's mutable fields
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid category id"})
	}

	var category model.Category
	if result := database.GetDB().First(&category, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "category not found"})
	}

	store, serr := scopedStore(c, category.StoreID)
	if store == nil {
		return serr
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if req.Name != "" {
		category.Name = req.Name
	}
	if req.Slug != "" {
		if !validSlug(req.Slug) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "slug may only contain lowercase letters, digits and dashes"})
		}
		category.Slug = req.Slug
	}
	if req.Description != "" {
		category.Description = req.Description
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if result := database.GetDB().Save(&category); result.Error != nil {
		log.Error("Failed to update category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to update category"})
	}

	invalidateMenuCache(c, store.ID)

	log.Info("Category updated", zap.Uint("category_id", category.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": category})
}

// DeleteCategory hard-deletes a category
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid category id"})
	}

	var category model.Category
	if result := database.GetDB().First(&category, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "category not found"})
	}

	store, serr := scopedStore(c, category.StoreID)
	if store == nil {
		return serr
	}

	if result := database.GetDB().Delete(&model.Category{}, id); result.Error != nil {
		log.Error("Failed to delete category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to delete category"})
	}

	invalidateMenuCache(c, store.ID)

	log.Info("Category deleted", zap.Uint("category_id", category.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "category deleted"})
}
