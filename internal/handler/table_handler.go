package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"menew-api/internal/model"
	"menew-api/pkg/database"
	"menew-api/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TableRequest defines the structure for table creation requests
type TableRequest struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
}

// ListTables returns a store's tables with their QR menu URLs
func ListTables(c echo.Context) error {
	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	var tables []model.Table
	result := database.GetDB().Where("store_id = ?", store.ID).Order("number asc").Find(&tables)
	if result.Error != nil {
		logger.FromContext(c).Error("Failed to list tables", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to retrieve tables"})
	}

	data := make([]echo.Map, 0, len(tables))
	for _, table := range tables {
		data = append(data, echo.Map{
			"id":         table.ID,
			"store_id":   table.StoreID,
			"number":     table.Number,
			"label":      table.Label,
			"qr_url":     fmt.Sprintf("/menu/%s/T%d", store.Slug, table.Number),
			"created_at": table.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

// CreateTable creates a table in a store. Table numbers are unique per store.
func CreateTable(c echo.Context) error {
	log := logger.FromContext(c)

	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	var req TableRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.Number <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "table number must be positive"})
	}

	var count int64
	database.GetDB().Model(&model.Table{}).Where("store_id = ? AND number = ?", store.ID, req.Number).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "table number already exists in this store"})
	}

	table := model.Table{StoreID: store.ID, Number: req.Number, Label: req.Label}
	if result := database.GetDB().Create(&table); result.Error != nil {
		log.Error("Failed to create table", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to create table"})
	}

	log.Info("Table created",
		zap.Uint("store_id", store.ID),
		zap.Int("number", table.Number))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": table})
}

// DeleteTable hard-deletes a table
func DeleteTable(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid table id"})
	}

	var table model.Table
	if result := database.GetDB().First(&table, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "table not found"})
	}

	store, serr := scopedStore(c, table.StoreID)
	if store == nil {
		return serr
	}

	if result := database.GetDB().Delete(&model.Table{}, id); result.Error != nil {
		log.Error("Failed to delete table", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to delete table"})
	}

	log.Info("Table deleted", zap.Uint("table_id", table.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "table deleted"})
}
