package handler

import (
	"net/http"
	"strconv"
	"time"

	"menew-api/internal/model"
	"menew-api/internal/report"
	"menew-api/pkg/database"
	"menew-api/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// reportOrders fetches the non-cancelled orders feeding a report, items and
// products preloaded. A nil since means all-time.
func reportOrders(storeID uint, since *time.Time) ([]model.Order, error) {
	query := database.GetDB().
		Where("store_id = ? AND status <> ?", storeID, model.OrderCancelled).
		Preload("Items.Product")
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var orders []model.Order
	result := query.Find(&orders)
	return orders, result.Error
}

// GetSalesReport aggregates a store's sales over the requested period
func GetSalesReport(c echo.Context) error {
	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	period := c.QueryParam("period")
	if period == "" {
		period = report.PeriodWeekly
	}
	since := report.PeriodStart(period, time.Now())

	orders, err := reportOrders(store.ID, &since)
	if err != nil {
		logger.FromContext(c).Error("Failed to load orders for sales report",
			zap.Uint("store_id", store.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to build report"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    report.BuildSalesReport(orders),
	})
}

// GetAffinityReport returns the store's all-time product co-purchase pairs
func GetAffinityReport(c echo.Context) error {
	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	orders, err := reportOrders(store.ID, nil)
	if err != nil {
		logger.FromContext(c).Error("Failed to load orders for affinity report",
			zap.Uint("store_id", store.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to build report"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    report.BuildAffinityReport(orders),
	})
}
