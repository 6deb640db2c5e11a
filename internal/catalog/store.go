package catalog

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownProduct is returned when a key does not name a product.
var ErrUnknownProduct = errors.New("catalog: unknown product")

// Store holds the session's products. It is the only place products are
// mutated, and every mutation recomputes Modified on the rows it touches.
// Store is not safe for concurrent use; callers serialise access.
type Store struct {
	products []Product
	index    map[string]int
}

// NewStore returns a store holding a copy of products.
func NewStore(products []Product) *Store {
	s := &Store{}
	s.Replace(products)
	return s
}

// Replace swaps the whole product list, as on a (re)load.
func (s *Store) Replace(products []Product) {
	s.products = make([]Product, len(products))
	s.index = make(map[string]int, len(products))
	copy(s.products, products)
	for i := range s.products {
		s.products[i].refresh()
		s.index[s.products[i].Key] = i
	}
}

// Len is the number of products in the store.
func (s *Store) Len() int { return len(s.products) }

// Products returns a copy of every product in load order.
func (s *Store) Products() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Product returns the product with the given key.
func (s *Store) Product(key string) (Product, bool) {
	i, ok := s.index[key]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// Modified returns every product whose current values diverge from baseline.
func (s *Store) Modified() []Product {
	var out []Product
	for _, p := range s.products {
		if p.Modified {
			out = append(out, p)
		}
	}
	return out
}

// SetPrice parses raw as a price and stores it as the product's current
// price. Unparseable or negative input becomes 0. It reports false when no
// product has the key.
func (s *Store) SetPrice(key, raw string) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	p := &s.products[i]
	p.CurrentPrice = ParsePrice(raw)
	p.refresh()
	return true
}

// SetInventory parses raw as a quantity and stores it as the product's
// current inventory. Unparseable or negative input becomes 0.
func (s *Store) SetInventory(key, raw string) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	p := &s.products[i]
	p.CurrentInventory = ParseInventory(raw)
	p.refresh()
	return true
}

// ApplyMassEdit sets edit.Field to edit.Value on every product matched by
// the edit's target and returns how many products it touched. selected
// reports selection membership for TargetSelection and may be nil otherwise.
func (s *Store) ApplyMassEdit(edit MassEdit, selected func(key string) bool) int {
	if edit.Field == FieldNone {
		return 0
	}
	price := guard(edit.Value)
	inventory := toInventory(price)
	n := 0
	for i := range s.products {
		p := &s.products[i]
		if !edit.matches(*p, selected) {
			continue
		}
		switch edit.Field {
		case FieldPrice:
			p.CurrentPrice = price
		case FieldInventory:
			p.CurrentInventory = inventory
		}
		p.refresh()
		n++
	}
	return n
}

// RevertAll puts every product back to its baseline values and returns how
// many were modified before the call.
func (s *Store) RevertAll() int {
	n := 0
	for i := range s.products {
		if s.products[i].Modified {
			n++
		}
		s.products[i].revert()
	}
	return n
}

// Categories returns the distinct categories present, sorted.
func (s *Store) Categories() []string {
	return s.distinct(Product.CategoryName)
}

// Brands returns the distinct brands present, sorted.
func (s *Store) Brands() []string {
	return s.distinct(Product.BrandName)
}

func (s *Store) distinct(field func(Product) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range s.products {
		v := field(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ParsePrice reads user input as a price. Only the leading number is read,
// so "80abc" is 80. Input without one, or whose number is negative or not
// finite, is 0.
func ParsePrice(raw string) float64 {
	f, err := strconv.ParseFloat(leadingNumber(raw), 64)
	if err != nil {
		return 0
	}
	return guard(f)
}

// ParseInventory reads user input as a whole quantity, with the same
// leading-number rule as ParsePrice. Decimals are truncated.
func ParseInventory(raw string) int {
	return toInventory(ParsePrice(raw))
}

// toInventory truncates a quantity and clamps it to [0, math.MaxInt32].
func toInventory(f float64) int {
	f = guard(f)
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Trunc(f))
}

// leadingNumber returns the longest prefix of s, after leading whitespace,
// that reads as a decimal number: optional sign, digits with an optional
// fraction, and an optional exponent.
func leadingNumber(s string) string {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return ""
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for ; k < len(s) && isDigit(s[k]); k++ {
		}
		if k > j {
			end = k
		}
	}
	return s[:end]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
