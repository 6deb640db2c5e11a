package query

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
)

// View is one computed page of the catalog.
type View struct {
	Filtered   []catalog.Product
	Rows       []catalog.Product
	Page       int
	PageSize   int
	TotalPages int
}

// Keys returns the keys of the rows on the page.
func (v View) Keys() []string {
	keys := make([]string, len(v.Rows))
	for i, p := range v.Rows {
		keys[i] = p.Key
	}
	return keys
}

// Apply filters products, sorts the whole filtered set and cuts out the
// requested page.
func Apply(products []catalog.Product, c Criteria, names *NameOrder) View {
	filtered := Filter(products, c)
	Sort(filtered, c.SortField, c.Direction, names)
	size := c.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return View{
		Filtered:   filtered,
		Rows:       Paginate(filtered, c.Page, size),
		Page:       c.Page,
		PageSize:   size,
		TotalPages: (len(filtered) + size - 1) / size,
	}
}

// Filter returns the products that satisfy every predicate of c, in input
// order. The result never aliases products.
func Filter(products []catalog.Product, c Criteria) []catalog.Product {
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, c) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether p passes the search, edited-only, price and
// inventory predicates of c.
func Matches(p catalog.Product, c Criteria) bool {
	return matchesSearch(p, c.Search) &&
		(!c.EditedOnly || p.Modified) &&
		c.Price.Contains(p.SuggestedPrice) &&
		c.Inventory.Contains(p.CurrentInventory)
}

func matchesSearch(p catalog.Product, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Code), term)
}

// NameOrder compares product names using the collation rules of a locale,
// ignoring case.
type NameOrder struct {
	col *collate.Collator
}

// NewNameOrder returns a NameOrder for the given BCP 47 tag. Unknown tags
// fall back to the root collation.
func NewNameOrder(locale string) *NameOrder {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &NameOrder{col: collate.New(tag, collate.IgnoreCase)}
}

// Compare returns -1, 0 or 1.
func (n *NameOrder) Compare(a, b string) int {
	return n.col.CompareString(a, b)
}

// Sort orders products in place by field. The sort is stable, so equal keys
// keep their load order. SortNone leaves products untouched. A nil names
// uses the root collation.
func Sort(products []catalog.Product, field SortField, dir Direction, names *NameOrder) {
	var compare func(a, b catalog.Product) int
	switch field {
	case SortName:
		if names == nil {
			names = NewNameOrder("und")
		}
		compare = func(a, b catalog.Product) int { return names.Compare(a.Name, b.Name) }
	case SortPrice:
		compare = func(a, b catalog.Product) int { return cmp.Compare(a.CurrentPrice, b.CurrentPrice) }
	case SortInventory:
		compare = func(a, b catalog.Product) int { return cmp.Compare(a.CurrentInventory, b.CurrentInventory) }
	default:
		return
	}
	if dir == Descending {
		asc := compare
		compare = func(a, b catalog.Product) int { return -asc(a, b) }
	}
	slices.SortStableFunc(products, compare)
}

// Paginate returns the page-th slice of size products. Pages past the end
// are empty.
func Paginate(products []catalog.Product, page, size int) []catalog.Product {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 0 {
		return nil
	}
	start := page * size
	if start >= len(products) {
		return nil
	}
	end := min(start+size, len(products))
	return products[start:end]
}
