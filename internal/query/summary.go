package query

import "github.com/benjaminwestern/catalog-editor/internal/catalog"

// Summary holds the figures displayed alongside the catalog.
type Summary struct {
	Modified       []catalog.Product `json:"modified"`
	ModifiedCount  int               `json:"modifiedCount"`
	TotalInventory int               `json:"totalInventory"`
	AveragePrice   float64           `json:"averagePrice"`
	TotalCount     int               `json:"totalCount"`
	FilteredCount  int               `json:"filteredCount"`
}

// Summarize computes the summary. The modified list covers the whole
// catalog; inventory and average price cover the filtered view only.
func Summarize(all, filtered []catalog.Product) Summary {
	s := Summary{
		TotalCount:    len(all),
		FilteredCount: len(filtered),
	}
	for _, p := range all {
		if p.Modified {
			s.Modified = append(s.Modified, p)
		}
	}
	s.ModifiedCount = len(s.Modified)

	var priceSum float64
	for _, p := range filtered {
		s.TotalInventory += p.CurrentInventory
		priceSum += p.CurrentPrice
	}
	s.AveragePrice = priceSum / float64(max(len(filtered), 1))
	return s
}
