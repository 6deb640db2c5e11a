// Package query derives the filtered, sorted and paginated view of the
// catalog and the summary figures shown next to it. Everything here is a pure
// function of its inputs.
package query

import (
	"fmt"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 8

// PageSizes are the page sizes offered to the user.
var PageSizes = []int{8, 16, 24}

// SortField names the column a view is ordered by.
type SortField string

const (
	SortNone      SortField = ""
	SortName      SortField = "name"
	SortPrice     SortField = "currentPrice"
	SortInventory SortField = "currentInventory"
)

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// PriceRange is an inclusive range over suggested price.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r PriceRange) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// InventoryRange is an inclusive range over current inventory.
type InventoryRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r InventoryRange) Contains(v int) bool { return v >= r.Min && v <= r.Max }

// Criteria is the user's current view of the catalog.
type Criteria struct {
	Search     string         `json:"search"`
	EditedOnly bool           `json:"editedOnly"`
	Price      PriceRange     `json:"price"`
	Inventory  InventoryRange `json:"inventory"`
	SortField  SortField      `json:"sortField"`
	Direction  Direction      `json:"direction"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
}

// NewCriteria returns criteria with default ranges and the given page size.
func NewCriteria(pageSize int) Criteria {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	price, inv := Bounds(nil)
	return Criteria{
		Price:     price,
		Inventory: inv,
		Direction: Ascending,
		PageSize:  pageSize,
	}
}

// SetPageSize changes the page size and returns to the first page.
func (c *Criteria) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	c.PageSize = n
	c.Page = 0
}

// ResetRanges widens both ranges to the bounds observed in products so no
// product is hidden. An empty list leaves the ranges alone.
func (c *Criteria) ResetRanges(products []catalog.Product) {
	if len(products) == 0 {
		return
	}
	c.Price, c.Inventory = Bounds(products)
}

// ToggleSort orders by field, flipping direction when field is already
// the active one.
func (c *Criteria) ToggleSort(field SortField) {
	if c.SortField == field {
		if c.Direction == Descending {
			c.Direction = Ascending
		} else {
			c.Direction = Descending
		}
		return
	}
	c.SortField = field
	c.Direction = Ascending
}

// Bounds returns the min/max suggested price and current inventory across
// products. An empty list yields [0,1000] and [0,100].
func Bounds(products []catalog.Product) (PriceRange, InventoryRange) {
	if len(products) == 0 {
		return PriceRange{Min: 0, Max: 1000}, InventoryRange{Min: 0, Max: 100}
	}
	price := PriceRange{Min: products[0].SuggestedPrice, Max: products[0].SuggestedPrice}
	inv := InventoryRange{Min: products[0].CurrentInventory, Max: products[0].CurrentInventory}
	for _, p := range products[1:] {
		price.Min = min(price.Min, p.SuggestedPrice)
		price.Max = max(price.Max, p.SuggestedPrice)
		inv.Min = min(inv.Min, p.CurrentInventory)
		inv.Max = max(inv.Max, p.CurrentInventory)
	}
	return price, inv
}

// ParseSortField converts user input to a SortField.
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case SortNone, SortName, SortPrice, SortInventory:
		return SortField(s), nil
	}
	return SortNone, fmt.Errorf("query: unknown sort field %q", s)
}

// ParseDirection converts user input to a Direction; "" is Ascending.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return Ascending, fmt.Errorf("query: unknown sort direction %q", s)
}
