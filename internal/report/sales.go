// Package report computes sales and product-affinity aggregations in memory
// over a store's fetched order history. Recomputed from scratch per request;
// fine at menu-scale order volumes.
package report

import (
	"sort"
	"time"

	"menew-api/internal/model"
)

// Report periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// PeriodStart resolves a period token to the start of its reporting window.
// Unknown tokens fall back to weekly.
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case PeriodDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return now.Add(-7 * 24 * time.Hour)
	}
}

// Summary totals over the reporting window.
type Summary struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalOrders       int     `json:"total_orders"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// DailySales is one calendar-date bucket of the revenue series.
type DailySales struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// HourlySales is one hour-of-day bucket of the peak-hours histogram.
type HourlySales struct {
	Hour    int     `json:"hour"` // 0-23
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// ProductSales is one entry of the top-products ranking.
type ProductSales struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// SalesReport is the dashboard sales aggregation output.
type SalesReport struct {
	Summary     Summary        `json:"summary"`
	SalesByDate []DailySales   `json:"sales_by_date"`
	PeakHours   []HourlySales  `json:"peak_hours"`
	TopProducts []ProductSales `json:"top_products"`
}

const topProductsLimit = 10

// BuildSalesReport aggregates the given non-cancelled orders (items and their
// products preloaded) into the sales report.
func BuildSalesReport(orders []model.Order) SalesReport {
	report := SalesReport{
		SalesByDate: []DailySales{},
		PeakHours:   []HourlySales{},
		TopProducts: []ProductSales{},
	}

	byDate := make(map[string]*DailySales)
	byHour := make(map[int]*HourlySales)
	byProduct := make(map[uint]*ProductSales)

	for _, order := range orders {
		report.Summary.TotalRevenue += order.TotalAmount
		report.Summary.TotalOrders++

		dateKey := order.CreatedAt.Format("2006-01-02")
		day, ok := byDate[dateKey]
		if !ok {
			day = &DailySales{Date: dateKey}
			byDate[dateKey] = day
		}
		day.Revenue += order.TotalAmount
		day.Orders++

		hourKey := order.CreatedAt.Hour()
		hour, ok := byHour[hourKey]
		if !ok {
			hour = &HourlySales{Hour: hourKey}
			byHour[hourKey] = hour
		}
		hour.Revenue += order.TotalAmount
		hour.Orders++

		for _, item := range order.Items {
			prod, ok := byProduct[item.ProductID]
			if !ok {
				name := ""
				if item.Product != nil {
					name = item.Product.Name
				}
				prod = &ProductSales{Name: name}
				byProduct[item.ProductID] = prod
			}
			prod.Quantity += item.Quantity
			prod.Revenue += item.Price * float64(item.Quantity)
		}
	}

	if report.Summary.TotalOrders > 0 {
		report.Summary.AverageOrderValue = report.Summary.TotalRevenue / float64(report.Summary.TotalOrders)
	}

	for _, day := range byDate {
		report.SalesByDate = append(report.SalesByDate, *day)
	}
	sort.Slice(report.SalesByDate, func(i, j int) bool {
		return report.SalesByDate[i].Date < report.SalesByDate[j].Date
	})

	for _, hour := range byHour {
		report.PeakHours = append(report.PeakHours, *hour)
	}
	sort.Slice(report.PeakHours, func(i, j int) bool {
		return report.PeakHours[i].Hour < report.PeakHours[j].Hour
	})

	for _, prod := range byProduct {
		report.TopProducts = append(report.TopProducts, *prod)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		return report.TopProducts[i].Revenue > report.TopProducts[j].Revenue
	})
	if len(report.TopProducts) > topProductsLimit {
		report.TopProducts = report.TopProducts[:topProductsLimit]
	}

	return report
}
