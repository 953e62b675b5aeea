package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"menew-api/internal/model"
	"menew-api/pkg/cache"
	"menew-api/pkg/database"
	"menew-api/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type menuProduct struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Image       *string `json:"image,omitempty"`
	IsAvailable bool    `json:"is_available"`
}

type menuCategory struct {
	ID       uint          `json:"id"`
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	Products []menuProduct `json:"products"`
}

type menuPayload struct {
	Store      echo.Map       `json:"store"`
	Categories []menuCategory `json:"categories"`
}

func menuCacheKey(storeID uint) string {
	return fmt.Sprintf("menu:store:%d", storeID)
}

// invalidateMenuCache drops the cached public menu for a store. Best-effort;
// a failed invalidation only shortens to the TTL.
func invalidateMenuCache(c echo.Context, storeID uint) {
	if err := cache.GetCache().Delete(c.Request().Context(), menuCacheKey(storeID)); err != nil {
		logger.FromContext(c).Warn("Failed to invalidate menu cache",
			zap.Uint("store_id", storeID),
			zap.Error(err))
	}
}

// GetMenu is the public, unauthenticated menu endpoint customers land on from
// a table QR code. The table token (?table=T5) resolves to a table row when it
// matches; unknown tokens are tolerated and yield a nil table, never an error.
func GetMenu(c echo.Context) error {
	log := logger.FromContext(c)
	storeSlug := c.Param("storeSlug")

	var store model.Store
	result := database.GetDB().Where("slug = ? AND is_active = ?", storeSlug, true).First(&store)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "store not found"})
	}

	// Resolve the table token outside the cached payload, it varies per QR.
	var tableInfo echo.Map
	if token := c.QueryParam("table"); token != "" {
		numStr := strings.TrimPrefix(strings.ToUpper(token), "T")
		if num, err := strconv.Atoi(numStr); err == nil {
			var table model.Table
			if result := database.GetDB().Where("store_id = ? AND number = ?", store.ID, num).First(&table); result.Error == nil {
				tableInfo = echo.Map{"id": table.ID, "number": table.Number, "label": table.Label}
			}
		}
	}

	ctx := c.Request().Context()
	var payload menuPayload
	hit, err := cache.GetCache().Get(ctx, menuCacheKey(store.ID), &payload)
	if err != nil {
		log.Warn("Menu cache read failed", zap.Error(err))
	}

	if !hit {
		var categories []model.Category
		result := database.GetDB().
			Where("store_id = ? AND is_active = ?", store.ID, true).
			Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc, name asc") }).
			Order("sort_order asc").
			Find(&categories)
		if result.Error != nil {
			log.Error("Failed to load menu", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to load menu"})
		}

		payload = menuPayload{
			Store: echo.Map{
				"id":          store.ID,
				"name":        store.Name,
				"slug":        store.Slug,
				"description": store.Description,
				"address":     store.Address,
				"phone":       store.Phone,
			},
			Categories: make([]menuCategory, 0, len(categories)),
		}
		for _, category := range categories {
			mc := menuCategory{
				ID:       category.ID,
				Name:     category.Name,
				Slug:     category.Slug,
				Products: make([]menuProduct, 0, len(category.Products)),
			}
			for _, product := range category.Products {
				mc.Products = append(mc.Products, menuProduct{
					ID:          product.ID,
					Name:        product.Name,
					Slug:        product.Slug,
					Description: product.Description,
					Price:       product.Price,
					Image:       product.Image,
					IsAvailable: product.IsAvailable,
				})
			}
			payload.Categories = append(payload.Categories, mc)
		}

		if err := cache.GetCache().Set(ctx, menuCacheKey(store.ID), payload); err != nil {
			log.Warn("Menu cache write failed", zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"store":      payload.Store,
			"table":      tableInfo,
			"categories": payload.Categories,
		},
	})
}
