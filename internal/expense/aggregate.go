package expense

import (
	"sort"

	"github.com/shopspring/decimal"
)

// VendorTotal is one entry in the top-vendor ranking
type VendorTotal struct {
	Vendor string          `json:"vendor"`
	Total  decimal.Decimal `json:"total"`
}

// Summary holds the dashboard aggregates for one record set snapshot.
// All sums are exact decimals; no floating point touches money.
type Summary struct {
	Total      decimal.Decimal              `json:"total"`
	Count      int                          `json:"count"`
	ByCategory map[Category]decimal.Decimal `json:"by_category"`
	ByMonth    map[string]decimal.Decimal   `json:"by_month"`
	TopVendors []VendorTotal                `json:"top_vendors"`
}

// Summarize computes the dashboard aggregates for a record set. It is a pure
// function: read-only, and repeated calls on the same records return
// identical results. Time buckets use the record's date, not created_at.
func Summarize(records []*Record, topN int) *Summary {
	summary := &Summary{
		Total:      decimal.Zero,
		Count:      len(records),
		ByCategory: make(map[Category]decimal.Decimal),
		ByMonth:    make(map[string]decimal.Decimal),
		TopVendors: make([]VendorTotal, 0),
	}

	byVendor := make(map[string]decimal.Decimal)
	for _, r := range records {
		summary.Total = summary.Total.Add(r.Amount)
		summary.ByCategory[r.Category] = summary.ByCategory[r.Category].Add(r.Amount)
		summary.ByMonth[r.Month()] = summary.ByMonth[r.Month()].Add(r.Amount)
		if r.Vendor != "" {
			byVendor[r.Vendor] = byVendor[r.Vendor].Add(r.Amount)
		}
	}

	vendors := make([]VendorTotal, 0, len(byVendor))
	for vendor, total := range byVendor {
		vendors = append(vendors, VendorTotal{Vendor: vendor, Total: total})
	}
	// Highest spend first; ties broken by vendor name for determinism
	sort.Slice(vendors, func(i, j int) bool {
		cmp := vendors[i].Total.Cmp(vendors[j].Total)
		if cmp != 0 {
			return cmp > 0
		}
		return vendors[i].Vendor < vendors[j].Vendor
	})
	if topN > 0 && len(vendors) > topN {
		vendors = vendors[:topN]
	}
	summary.TopVendors = vendors

	return summary
}
