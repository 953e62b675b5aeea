package report

import (
	"testing"

	"menew-api/internal/model"
)

func affinityOrder(items ...model.OrderItem) model.Order {
	return model.Order{Items: items}
}

func findPair(report AffinityReport, a, b string) (AffinityPair, bool) {
	for _, pair := range report.AffinityPairs {
		if pair.ProductA == a && pair.ProductB == b {
			return pair, true
		}
	}
	return AffinityPair{}, false
}

func TestBuildAffinityReport_PairCounts(t *testing.T) {
	a := item(1, "Ayam Bakar", 1, 30000)
	b := item(2, "Bakso", 1, 20000)
	c := item(3, "Cendol", 1, 10000)

	orders := []model.Order{
		affinityOrder(a, b),
		affinityOrder(a, b, c),
		affinityOrder(b, c),
	}

	report := BuildAffinityReport(orders)

	if report.TotalOrdersAnalyzed != 3 {
		t.Errorf("TotalOrdersAnalyzed = %d, want 3", report.TotalOrdersAnalyzed)
	}

	tests := []struct {
		a, b  string
		count int
	}{
		{"Ayam Bakar", "Bakso", 2},
		{"Bakso", "Cendol", 2},
		{"Ayam Bakar", "Cendol", 1},
	}
	for _, tt := range tests {
		pair, ok := findPair(report, tt.a, tt.b)
		if !ok {
			t.Errorf("pair (%s, %s) missing from report", tt.a, tt.b)
			continue
		}
		if pair.Count != tt.count {
			t.Errorf("pair (%s, %s) count = %d, want %d", tt.a, tt.b, pair.Count, tt.count)
		}
	}

	// Ties and lower counts still rank below the highest counts.
	if len(report.AffinityPairs) != 3 {
		t.Fatalf("AffinityPairs = %d, want 3", len(report.AffinityPairs))
	}
	if report.AffinityPairs[2].Count != 1 {
		t.Errorf("lowest-ranked pair count = %d, want 1", report.AffinityPairs[2].Count)
	}
}

func TestBuildAffinityReport_DuplicateLinesCollapse(t *testing.T) {
	// Two lines of the same product plus one other product is still one pair,
	// counted once.
	orders := []model.Order{
		affinityOrder(
			item(1, "Ayam Bakar", 1, 30000),
			item(1, "Ayam Bakar", 2, 30000),
			item(2, "Bakso", 1, 20000),
		),
	}

	report := BuildAffinityReport(orders)

	if len(report.AffinityPairs) != 1 {
		t.Fatalf("AffinityPairs = %d, want 1", len(report.AffinityPairs))
	}
	if report.AffinityPairs[0].Count != 1 {
		t.Errorf("pair count = %d, want 1", report.AffinityPairs[0].Count)
	}
}

func TestBuildAffinityReport_SingleItemOrders(t *testing.T) {
	orders := []model.Order{
		affinityOrder(item(1, "Ayam Bakar", 1, 30000)),
		affinityOrder(item(2, "Bakso", 3, 20000)),
	}

	report := BuildAffinityReport(orders)

	if len(report.AffinityPairs) != 0 {
		t.Errorf("AffinityPairs = %d, want 0 for single-item orders", len(report.AffinityPairs))
	}
	if report.TotalOrdersAnalyzed != 2 {
		t.Errorf("TotalOrdersAnalyzed = %d, want 2", report.TotalOrdersAnalyzed)
	}
}

func TestBuildAffinityReport_CanonicalNameOrder(t *testing.T) {
	// Whatever order the items arrive in, the pair's names come out sorted.
	orders := []model.Order{
		affinityOrder(
			item(9, "Zuppa", 1, 15000),
			item(1, "Ayam Bakar", 1, 30000),
		),
	}

	report := BuildAffinityReport(orders)

	if len(report.AffinityPairs) != 1 {
		t.Fatalf("AffinityPairs = %d, want 1", len(report.AffinityPairs))
	}
	pair := report.AffinityPairs[0]
	if pair.ProductA != "Ayam Bakar" || pair.ProductB != "Zuppa" {
		t.Errorf("pair names = (%s, %s), want canonical (Ayam Bakar, Zuppa)", pair.ProductA, pair.ProductB)
	}
}

func TestBuildAffinityReport_PairLimit(t *testing.T) {
	// One order with many distinct products produces C(n,2) pairs, all count 1.
	items := make([]model.OrderItem, 0, 10)
	for i := uint(1); i <= 10; i++ {
		items = append(items, item(i, "P", 1, 1000))
	}

	report := BuildAffinityReport([]model.Order{affinityOrder(items...)})

	if len(report.AffinityPairs) != affinityPairsLimit {
		t.Errorf("AffinityPairs = %d, want capped at %d", len(report.AffinityPairs), affinityPairsLimit)
	}
}
