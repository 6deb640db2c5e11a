package catalog

import (
	"math"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sample() []Product {
	return []Product{
		{Key: "a", Name: "Alpha", SuggestedPrice: 100, CurrentPrice: 100, CurrentInventory: 10, OriginalInventory: 10, Category: strPtr("X"), Brand: strPtr("Acme")},
		{Key: "b", Name: "Beta", SuggestedPrice: 20, CurrentPrice: 20, CurrentInventory: 3, OriginalInventory: 3, Category: strPtr("X")},
		{Key: "c", Name: "Gamma", SuggestedPrice: 5, CurrentPrice: 5, CurrentInventory: 0, OriginalInventory: 0, Category: strPtr("Y"), Brand: strPtr("Acme")},
	}
}

func get(t *testing.T, s *Store, key string) Product {
	t.Helper()
	p, ok := s.Product(key)
	require.True(t, ok)
	return p
}

func TestSetPriceTogglesModified(t *testing.T) {
	s := NewStore(sample())

	require.True(t, s.SetPrice("a", "80"))
	p := get(t, s, "a")
	assert.Equal(t, 80.0, p.CurrentPrice)
	assert.True(t, p.Modified)

	require.True(t, s.SetPrice("a", "100"))
	p = get(t, s, "a")
	assert.Equal(t, 100.0, p.CurrentPrice)
	assert.False(t, p.Modified)
}

func TestSetPriceIdempotent(t *testing.T) {
	s := NewStore(sample())
	s.SetPrice("b", "15.5")
	once := get(t, s, "b")
	s.SetPrice("b", "15.5")
	assert.Equal(t, once, get(t, s, "b"))
}

func TestSetPriceInvalidInput(t *testing.T) {
	s := NewStore(sample())
	for _, raw := range []string{"abc", "", "-3", "NaN", "Inf"} {
		s.SetPrice("a", raw)
		p := get(t, s, "a")
		assert.Zero(t, p.CurrentPrice, "input %q", raw)
		assert.True(t, p.Modified)
	}
}

func TestSetInventory(t *testing.T) {
	s := NewStore(sample())

	require.True(t, s.SetInventory("b", "7"))
	assert.Equal(t, 7, get(t, s, "b").CurrentInventory)
	assert.True(t, get(t, s, "b").Modified)

	s.SetInventory("b", "3.9")
	assert.Equal(t, 3, get(t, s, "b").CurrentInventory)
	assert.False(t, get(t, s, "b").Modified)

	s.SetInventory("b", "lots")
	assert.Zero(t, get(t, s, "b").CurrentInventory)
}

func TestParseReadsLeadingNumber(t *testing.T) {
	prices := map[string]float64{
		"80abc":   80,
		"  12.5$": 12.5,
		".5":      0.5,
		"1e2x":    100,
		"7e":      7,
		"0x10":    0,
		"-4kg":    0,
		"abc":     0,
		".":       0,
		"":        0,
	}
	for raw, want := range prices {
		assert.Equal(t, want, ParsePrice(raw), "price %q", raw)
	}

	assert.Equal(t, 5, ParseInventory("5 units"))
	assert.Equal(t, 2, ParseInventory("2.99"))
	assert.Zero(t, ParseInventory("units"))
}

func TestInventoryIsClampedToInt32(t *testing.T) {
	s := NewStore(sample())
	s.SetInventory("b", "1e19")
	assert.Equal(t, math.MaxInt32, get(t, s, "b").CurrentInventory)
	s.SetInventory("b", "3000000000")
	assert.Equal(t, math.MaxInt32, get(t, s, "b").CurrentInventory)

	s = NewStore(sample())
	n := s.ApplyMassEdit(MassEdit{Field: FieldInventory, Value: 1e19, Target: TargetCategory, Category: "X"}, nil)
	require.Equal(t, 2, n)
	for _, key := range []string{"a", "b"} {
		p := get(t, s, key)
		assert.Equal(t, math.MaxInt32, p.CurrentInventory, key)
		assert.True(t, p.Modified, key)
	}
	assert.Zero(t, get(t, s, "c").CurrentInventory)
}

func TestUnknownKeyIsNoop(t *testing.T) {
	s := NewStore(sample())
	before := s.Products()
	assert.False(t, s.SetPrice("zzz", "1"))
	assert.False(t, s.SetInventory("zzz", "1"))
	assert.Equal(t, before, s.Products())
}

func TestMassEditScoping(t *testing.T) {
	selected := map[string]bool{"a": true, "c": true}
	isSelected := func(k string) bool { return selected[k] }

	s := NewStore(sample())
	n := s.ApplyMassEdit(MassEdit{Field: FieldPrice, Value: 50, Target: TargetSelection}, isSelected)
	assert.Equal(t, 2, n)
	assert.Equal(t, 50.0, get(t, s, "a").CurrentPrice)
	assert.Equal(t, 20.0, get(t, s, "b").CurrentPrice)
	assert.Equal(t, 50.0, get(t, s, "c").CurrentPrice)

	s = NewStore(sample())
	n = s.ApplyMassEdit(MassEdit{Field: FieldPrice, Value: 50, Target: TargetCategory, Category: "X"}, isSelected)
	assert.Equal(t, 2, n)
	assert.Equal(t, 50.0, get(t, s, "a").CurrentPrice)
	assert.Equal(t, 50.0, get(t, s, "b").CurrentPrice)
	assert.Equal(t, 5.0, get(t, s, "c").CurrentPrice)
}

func TestMassEditBrandSkipsMissingBrand(t *testing.T) {
	s := NewStore(sample())
	n := s.ApplyMassEdit(MassEdit{Field: FieldInventory, Value: 4.7, Target: TargetBrand, Brand: "Acme"}, nil)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, get(t, s, "a").CurrentInventory)
	assert.Equal(t, 3, get(t, s, "b").CurrentInventory)
	assert.Equal(t, 4, get(t, s, "c").CurrentInventory)
	assert.True(t, get(t, s, "c").Modified)
	assert.False(t, get(t, s, "b").Modified)

	assert.Zero(t, s.ApplyMassEdit(MassEdit{Field: FieldPrice, Value: 1, Target: TargetBrand, Brand: ""}, nil))
}

func TestMassEditKeepsOtherFieldEdits(t *testing.T) {
	s := NewStore(sample())
	s.SetPrice("a", "90")
	s.ApplyMassEdit(MassEdit{Field: FieldInventory, Value: 10, Target: TargetCategory, Category: "X"}, nil)
	assert.True(t, get(t, s, "a").Modified, "price edit still pending")
	assert.False(t, get(t, s, "b").Modified)
}

func TestMassEditReady(t *testing.T) {
	assert.False(t, MassEdit{Target: TargetSelection}.Ready(3))
	assert.False(t, MassEdit{Field: FieldPrice}.Ready(0))
	assert.True(t, MassEdit{Field: FieldPrice}.Ready(1))
	assert.False(t, MassEdit{Field: FieldPrice, Target: TargetCategory}.Ready(5))
	assert.True(t, MassEdit{Field: FieldPrice, Target: TargetCategory, Category: "X"}.Ready(0))
	assert.False(t, MassEdit{Field: FieldInventory, Target: TargetBrand}.Ready(5))
	assert.True(t, MassEdit{Field: FieldInventory, Target: TargetBrand, Brand: "Acme"}.Ready(0))
}

func TestRevertAll(t *testing.T) {
	s := NewStore(sample())
	s.SetPrice("a", "1")
	s.SetInventory("b", "99")

	assert.Equal(t, 2, s.RevertAll())
	for _, p := range s.Products() {
		assert.False(t, p.Modified)
		assert.Equal(t, p.SuggestedPrice, p.CurrentPrice)
		assert.Equal(t, p.OriginalInventory, p.CurrentInventory)
	}
	assert.Empty(t, s.Modified())
}

func TestModifiedInvariantUnderRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	s := NewStore(sample())
	keys := []string{"a", "b", "c"}
	for range 500 {
		key := keys[rng.IntN(len(keys))]
		value := strconv.Itoa(rng.IntN(4) * 5)
		switch rng.IntN(4) {
		case 0:
			s.SetPrice(key, value)
		case 1:
			s.SetInventory(key, value)
		case 2:
			s.ApplyMassEdit(MassEdit{Field: FieldPrice, Value: float64(rng.IntN(3) * 50), Target: TargetCategory, Category: "X"}, nil)
		default:
			if rng.IntN(10) == 0 {
				s.RevertAll()
			}
		}
		for _, p := range s.Products() {
			require.Equal(t, p.Diverges(), p.Modified, "product %s", p.Key)
		}
	}
}

func TestReplaceRecomputesModified(t *testing.T) {
	products := sample()
	products[0].CurrentPrice = 1
	s := NewStore(products)
	assert.True(t, get(t, s, "a").Modified)
	assert.Len(t, s.Modified(), 1)
}

func TestFacets(t *testing.T) {
	s := NewStore(sample())
	assert.Equal(t, []string{"X", "Y"}, s.Categories())
	assert.Equal(t, []string{"Acme"}, s.Brands())
}
