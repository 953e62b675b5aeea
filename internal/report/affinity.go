package report

import (
	"sort"

	"menew-api/internal/model"
)

// AffinityPair is two distinct products that co-occurred within the same
// order, canonicalized so (A,B) and (B,A) are the same pair.
type AffinityPair struct {
	ProductA string `json:"product_a"`
	ProductB string `json:"product_b"`
	Count    int    `json:"count"`
}

// AffinityReport is the co-purchase analysis output.
type AffinityReport struct {
	AffinityPairs       []AffinityPair `json:"affinity_pairs"`
	TotalOrdersAnalyzed int            `json:"total_orders_analyzed"`
}

const affinityPairsLimit = 20

type pairKey struct {
	a, b uint
}

// BuildAffinityReport counts unordered product pairs across the given
// non-cancelled orders. A pair is counted at most once per order, whatever
// the item ordering or duplication within that order.
func BuildAffinityReport(orders []model.Order) AffinityReport {
	counts := make(map[pairKey]*AffinityPair)

	for _, order := range orders {
		// Distinct products per order; duplicate line items collapse.
		seen := make(map[uint]string, len(order.Items))
		for _, item := range order.Items {
			name := ""
			if item.Product != nil {
				name = item.Product.Name
			}
			seen[item.ProductID] = name
		}

		ids := make([]uint, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				key := pairKey{a: ids[i], b: ids[j]}
				pair, ok := counts[key]
				if !ok {
					nameA, nameB := seen[ids[i]], seen[ids[j]]
					// Canonical display order is by product name.
					if nameB < nameA {
						nameA, nameB = nameB, nameA
					}
					pair = &AffinityPair{ProductA: nameA, ProductB: nameB}
					counts[key] = pair
				}
				pair.Count++
			}
		}
	}

	report := AffinityReport{
		AffinityPairs:       []AffinityPair{},
		TotalOrdersAnalyzed: len(orders),
	}
	for _, pair := range counts {
		report.AffinityPairs = append(report.AffinityPairs, *pair)
	}
	sort.Slice(report.AffinityPairs, func(i, j int) bool {
		if report.AffinityPairs[i].Count != report.AffinityPairs[j].Count {
			return report.AffinityPairs[i].Count > report.AffinityPairs[j].Count
		}
		if report.AffinityPairs[i].ProductA != report.AffinityPairs[j].ProductA {
			return report.AffinityPairs[i].ProductA < report.AffinityPairs[j].ProductA
		}
		return report.AffinityPairs[i].ProductB < report.AffinityPairs[j].ProductB
	})
	if len(report.AffinityPairs) > affinityPairsLimit {
		report.AffinityPairs = report.AffinityPairs[:affinityPairsLimit]
	}

	return report
}
