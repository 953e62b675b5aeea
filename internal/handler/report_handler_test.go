package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"menew-api/internal/model"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func seedOrderAt(t *testing.T, db *gorm.DB, f fixture, createdAt time.Time, status string, items ...model.OrderItem) {
	t.Helper()

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	order := model.Order{
		StoreID:     f.store.ID,
		OrderNumber: "ORD-KAFE-" + strconv.Itoa(nextSeedSeq(db)),
		TotalAmount: total,
		Status:      status,
		Items:       items,
		CreatedAt:   createdAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func getReport(t *testing.T, handlerFunc echo.HandlerFunc, path string, f fixture) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path+"?store_id="+strconv.Itoa(int(f.store.ID)), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("principal", ownerPrincipal(f.tenant.ID))

	if err := handlerFunc(c); err != nil {
		t.Fatalf("report handler returned error: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

func TestGetSalesReport_DailyExcludesYesterday(t *testing.T) {
	db := setupTestDB(t)
	f := seedStore(t, db)

	yesterday := time.Now().Add(-24 * time.Hour)
	seedOrderAt(t, db, f, yesterday, model.OrderServed,
		model.OrderItem{ProductID: f.nasi.ID, Quantity: 1, Price: 25000})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/sales?store_id="+strconv.Itoa(int(f.store.ID))+"&period=daily", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("principal", ownerPrincipal(f.tenant.ID))

	if err := GetSalesReport(c); err != nil {
		t.Fatalf("GetSalesReport() returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	data := resp["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	if summary["total_orders"] != float64(0) {
		t.Errorf("daily report total_orders = %v, want 0 with only yesterday's orders", summary["total_orders"])
	}
	if series := data["sales_by_date"].([]interface{}); len(series) != 0 {
		t.Errorf("daily series = %d buckets, want 0", len(series))
	}
}

func TestGetSalesReport_ExcludesCancelled(t *testing.T) {
	db := setupTestDB(t)
	f := seedStore(t, db)

	now := time.Now()
	seedOrderAt(t, db, f, now, model.OrderServed,
		model.OrderItem{ProductID: f.nasi.ID, Quantity: 2, Price: 25000})
	seedOrderAt(t, db, f, now, model.OrderCancelled,
		model.OrderItem{ProductID: f.esTeh.ID, Quantity: 10, Price: 5000})

	rec, resp := getReport(t, GetSalesReport, "/api/reports/sales", f)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	data := resp["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	if summary["total_orders"] != float64(1) {
		t.Errorf("total_orders = %v, want 1 with cancelled excluded", summary["total_orders"])
	}
	if summary["total_revenue"] != float64(50000) {
		t.Errorf("total_revenue = %v, want 50000", summary["total_revenue"])
	}
}

func TestGetAffinityReport(t *testing.T) {
	db := setupTestDB(t)
	f := seedStore(t, db)

	now := time.Now()
	seedOrderAt(t, db, f, now, model.OrderServed,
		model.OrderItem{ProductID: f.nasi.ID, Quantity: 1, Price: 25000},
		model.OrderItem{ProductID: f.esTeh.ID, Quantity: 1, Price: 5000})
	seedOrderAt(t, db, f, now, model.OrderServed,
		model.OrderItem{ProductID: f.nasi.ID, Quantity: 1, Price: 25000},
		model.OrderItem{ProductID: f.esTeh.ID, Quantity: 2, Price: 5000})
	seedOrderAt(t, db, f, now, model.OrderPending,
		model.OrderItem{ProductID: f.nasi.ID, Quantity: 1, Price: 25000})

	rec, resp := getReport(t, GetAffinityReport, "/api/reports/affinity", f)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	data := resp["data"].(map[string]interface{})
	if data["total_orders_analyzed"] != float64(3) {
		t.Errorf("total_orders_analyzed = %v, want 3", data["total_orders_analyzed"])
	}
	pairs := data["affinity_pairs"].([]interface{})
	if len(pairs) != 1 {
		t.Fatalf("affinity_pairs = %d, want 1", len(pairs))
	}
	pair := pairs[0].(map[string]interface{})
	if pair["count"] != float64(2) {
		t.Errorf("pair count = %v, want 2", pair["count"])
	}
	if pair["product_a"] != "Es Teh" || pair["product_b"] != "Nasi Goreng" {
		t.Errorf("pair names = (%v, %v), want canonical (Es Teh, Nasi Goreng)", pair["product_a"], pair["product_b"])
	}
}

func TestReports_ForeignTenant(t *testing.T) {
	db := setupTestDB(t)
	f := seedStore(t, db)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/sales?store_id="+strconv.Itoa(int(f.store.ID)), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("principal", ownerPrincipal(f.tenant.ID+100))

	if err := GetSalesReport(c); err != nil {
		t.Fatalf("GetSalesReport() returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
