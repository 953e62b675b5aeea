package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"menew-api/internal/model"
	"menew-api/internal/realtime"
	"menew-api/pkg/database"
	"menew-api/pkg/logger"
	"menew-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderItemRequest is one cart line of a placement request
type OrderItemRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

// OrderRequest is the public order placement payload
type OrderRequest struct {
	StoreSlug   string             `json:"store_slug"`
	TableNumber *int               `json:"table_number,omitempty"`
	GuestName   string             `json:"guest_name,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Items       []OrderItemRequest `json:"items"`
}

// nextOrderNumber mints the store's next sequential order number inside tx.
// The per-store counter row is bumped with a single atomic upsert, so two
// concurrent placements can never read the same sequence value.
func nextOrderNumber(tx *gorm.DB, store *model.Store) (string, error) {
	var seq int
	err := tx.Raw(
		`INSERT INTO order_counters (store_id, last_number) VALUES (?, 1)
		 ON CONFLICT (store_id) DO UPDATE SET last_number = order_counters.last_number + 1
		 RETURNING last_number`,
		store.ID,
	).Scan(&seq).Error
	if err != nil {
		return "", err
	}

	prefix := strings.ToUpper(store.Slug)
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return fmt.Sprintf("ORD-%s-%05d", prefix, seq), nil
}

// CreateOrder places a guest order: validates the cart against live product
// availability, prices every line from the stored product price, and persists
// the order atomically. Any validation failure leaves no rows behind.
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.StoreSlug == "" || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_slug and at least one item are required"})
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "item quantities must be positive"})
		}
	}

	var store model.Store
	result := database.GetDB().Where("slug = ? AND is_active = ?", req.StoreSlug, true).First(&store)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "store not found"})
	}

	// An unresolved table token is tolerated: the order proceeds as take-away.
	var tableID *uint
	if req.TableNumber != nil {
		var table model.Table
		if result := database.GetDB().Where("store_id = ? AND number = ?", store.ID, *req.TableNumber).First(&table); result.Error == nil {
			tableID = &table.ID
		}
	}

	// Batch-fetch every referenced product, scoped to this store.
	distinct := make(map[uint]bool, len(req.Items))
	productIDs := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		if !distinct[item.ProductID] {
			distinct[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	var products []model.Product
	if result := database.GetDB().Where("id IN ? AND store_id = ?", productIDs, store.ID).Find(&products); result.Error != nil {
		log.Error("Failed to load products for order", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to place order"})
	}

	if len(products) < len(productIDs) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "items reference unknown products"})
	}

	// Availability is re-checked now, never trusted from an earlier page load.
	var unavailable []string
	priceByID := make(map[uint]float64, len(products))
	for _, product := range products {
		if !product.IsAvailable {
			unavailable = append(unavailable, product.Name)
		}
		priceByID[product.ID] = product.Price
	}
	if len(unavailable) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "these products are sold out: " + strings.Join(unavailable, ", "),
		})
	}

	// Totals come from the stored prices, never from the client.
	var totalAmount float64
	items := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		price := priceByID[item.ProductID]
		totalAmount += price * float64(item.Quantity)
		items = append(items, model.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     price,
			Notes:     item.Notes,
		})
	}

	var order model.Order
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		orderNumber, err := nextOrderNumber(tx, &store)
		if err != nil {
			return err
		}

		order = model.Order{
			StoreID:     store.ID,
			TableID:     tableID,
			OrderNumber: orderNumber,
			GuestName:   req.GuestName,
			Notes:       req.Notes,
			TotalAmount: totalAmount,
			Status:      model.OrderPending,
			Items:       items,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		log.Error("Order transaction failed",
			zap.Uint("store_id", store.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to place order"})
	}

	// Reload fully populated for the response and the staff broadcast.
	database.GetDB().Preload("Items.Product").Preload("Table").First(&order, order.ID)

	prometheus.OrderPlacedCounter.Inc()
	if hub := realtime.GetHub(); hub != nil {
		hub.Publish(realtime.OrdersTopic(store.ID), realtime.EventOrderNew, order)
	}

	log.Info("Order placed",
		zap.Uint("store_id", store.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.TotalAmount))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": order})
}

// ListOrders returns a store's orders, newest first, paginated
func ListOrders(c echo.Context) error {
	storeID, err := strconv.Atoi(c.QueryParam("store_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "store_id is required"})
	}

	store, serr := scopedStore(c, uint(storeID))
	if store == nil {
		return serr
	}

	page := 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	limit := 20
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	query := database.GetDB().Model(&model.Order{}).Where("store_id = ?", store.ID)
	if status := c.QueryParam("status"); status != "" {
		if !model.ValidOrderStatus(status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid order status"})
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var orders []model.Order
	result := query.
		Preload("Items.Product").
		Preload("Table").
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders)
	if result.Error != nil {
		logger.FromContext(c).Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to retrieve orders"})
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    orders,
		"pagination": echo.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// UpdateOrderStatus applies a staff-initiated status transition and broadcasts
// the updated order to the store's dashboard topic. Transitions between
// non-terminal states are unrestricted (staff override is a feature), but
// SERVED and CANCELLED orders are immutable.
func UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid order id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if !model.ValidOrderStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid order status"})
	}

	var order model.Order
	if result := database.GetDB().First(&order, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "order not found"})
	}

	store, serr := scopedStore(c, order.StoreID)
	if store == nil {
		return serr
	}

	if model.TerminalOrderStatus(order.Status) {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "order is already " + order.Status})
	}

	if result := database.GetDB().Model(&order).Update("status", req.Status); result.Error != nil {
		log.Error("Failed to update order status", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "failed to update order"})
	}

	database.GetDB().Preload("Items.Product").Preload("Table").First(&order, order.ID)

	prometheus.OrderStatusCounter.WithLabelValues(req.Status).Inc()
	if hub := realtime.GetHub(); hub != nil {
		hub.Publish(realtime.OrdersTopic(order.StoreID), realtime.EventOrderUpdate, order)
	}

	log.Info("Order status updated",
		zap.Uint("order_id", order.ID),
		zap.String("status", req.Status))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": order})
}
