package handler

import (
	"errors"
	"net/http"
	"strconv"

	"menew-api/internal/model"
	"menew-api/internal/realtime"
	"menew-api/pkg/database"
	"menew-api/pkg/logger"
	"menew-api/pkg/upload"
	"menew-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductRequest is the typed multipart form for product creation/update.
// Binding rejects malformed numbers and booleans outright instead of
// coercing them.
type ProductRequest struct {
	Name        string   `json:"name" form:"name"`
	Slug        string   `json:"slug" form:"slug"`
	Description string   `json:"description" form:"description"`
	Price       *float64 `json:"price" form:"price"`
	CategoryID  *uint    `json:"category_id" form:"category_id"`
	SortOrder   *int     `json:"sort_order" form:"sort_order"`
	IsAvailable *bool    `json:"is_available" form:"is_available"`
}

// ListProducts returns a store's products, optionally filtered by category
func ListProducts(c echo.Context) error {
	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	query := database.GetDB().Where("store_id = ?", store.ID)
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var products []model.Product
	result := query.Preload("Category").Order("sort_order asc, name asc").Find(&products)
	if result.Error != nil {
		logger.FromContext(c).Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": products})
}

// CreateProduct creates a product, with an optional multipart "image" field
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid product form", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request data"})
	}
	if req.Name == "" || !validSlug(req.Slug) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "name and a lowercase slug are required"})
	}
	if req.Price == nil || *req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "price must be greater than zero"})
	}
	if req.CategoryID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "category_id is required"})
	}

	// The category must belong to the same store.
	var category model.Category
	if result := database.GetDB().Where("id = ? AND store_id = ?", *req.CategoryID, store.ID).First(&category); result.Error != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "category does not belong to this store"})
	}

	product := model.Product{
		CategoryID:  *req.CategoryID,
		StoreID:     store.ID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       *req.Price,
		IsAvailable: true,
	}
	if req.SortOrder != nil {
		product.SortOrder = *req.SortOrder
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	if file, err := c.FormFile("image"); err == nil {
		path, uerr := upload.SaveProductImage(file)
		if uerr != nil {
			if errors.Is(uerr, upload.ErrTooLarge) || errors.Is(uerr, upload.ErrUnsupportedType) {
				return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": uerr.Error()})
			}
			log.Error("Failed to store product image", zap.Error(uerr))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to store image"})
		}
		product.Image = &path
	}

	if result := database.GetDB().Create(&product); result.Error != nil {
		log.Error("Failed to create product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to create product"})
	}

	invalidateMenuCache(c, store.ID)

	log.Info("Product created",
		zap.Uint("store_id", store.ID),
		zap.String("name", product.Name),
		zap.Float64("price", product.Price))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": product})
}

// UpdateProduct updates a product's fields, with an optional replacement image
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid product id"})
	}

	var product model.Product
	if result := database.GetDB().First(&product, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "product not found"})
	}

	store, serr := scopedStore(c, product.StoreID)
	if store == nil {
		return serr
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid product form", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request data"})
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Slug != "" {
		if !validSlug(req.Slug) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "slug may only contain lowercase letters, digits and dashes"})
		}
		product.Slug = req.Slug
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "price must be greater than zero"})
		}
		product.Price = *req.Price
	}
	if req.CategoryID != nil {
		var category model.Category
		if result := database.GetDB().Where("id = ? AND store_id = ?", *req.CategoryID, store.ID).First(&category); result.Error != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "category does not belong to this store"})
		}
		product.CategoryID = *req.CategoryID
	}
	if req.SortOrder != nil {
		product.SortOrder = *req.SortOrder
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	if file, err := c.FormFile("image"); err == nil {
		path, uerr := upload.SaveProductImage(file)
		if uerr != nil {
			if errors.Is(uerr, upload.ErrTooLarge) || errors.Is(uerr, upload.ErrUnsupportedType) {
				return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": uerr.Error()})
			}
			log.Error("Failed to store product image", zap.Error(uerr))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to store image"})
		}
		product.Image = &path
	}

	if result := database.GetDB().Save(&product); result.Error != nil {
		log.Error("Failed to update product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to update product"})
	}

	invalidateMenuCache(c, store.ID)

	log.Info("Product updated", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": product})
}

// ToggleAvailability flips a product's availability and broadcasts the change
// to every menu session subscribed to the store's stock topic.
func ToggleAvailability(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid product id"})
	}

	var req struct {
		IsAvailable *bool `json:"is_available"`
	}
	if err := c.Bind(&req); err != nil || req.IsAvailable == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "is_available is required"})
	}

	var product model.Product
	if result := database.GetDB().Preload("Category").First(&product, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "product not found"})
	}

	store, serr := scopedStore(c, product.StoreID)
	if store == nil {
		return serr
	}

	product.IsAvailable = *req.IsAvailable
	if result := database.GetDB().Model(&product).Update("is_available", product.IsAvailable); result.Error != nil {
		log.Error("Failed to toggle availability", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to update product"})
	}

	prometheus.StockToggleCounter.Inc()
	invalidateMenuCache(c, store.ID)

	categoryName := ""
	if product.Category != nil {
		categoryName = product.Category.Name
	}
	if hub := realtime.GetHub(); hub != nil {
		hub.Publish(realtime.StoreTopic(product.StoreID), realtime.EventStockUpdate, echo.Map{
			"product_id":   product.ID,
			"name":         product.Name,
			"is_available": product.IsAvailable,
			"category":     categoryName,
		})
	}

	log.Info("Product availability toggled",
		zap.Uint("product_id", product.ID),
		zap.Bool("is_available", product.IsAvailable))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": product})
}

// DeleteProduct hard-deletes a product
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid product id"})
	}

	var product model.Product
	if result := database.GetDB().First(&product, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "product not found"})
	}

	store, serr := scopedStore(c, product.StoreID)
	if store == nil {
		return serr
	}

	if result := database.GetDB().Delete(&model.Product{}, id); result.Error != nil {
		log.Error("Failed to delete product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to delete product"})
	}

	invalidateMenuCache(c, store.ID)

	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "product deleted"})
}
