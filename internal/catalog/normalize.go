package catalog

import (
	"html"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
)

const (
	tagPrefix  = "val::"
	unitSuffix = " (Unidad)"
)

// Candidate field names, the source's own spelling first.
var (
	idFields       = []string{"id"}
	nameFields     = []string{"nombre", "name"}
	codesFields    = []string{"claves", "codes"}
	codeFields     = []string{"clave", "code"}
	priceFields    = []string{"precio_sugerido", "precioSugerido", "suggested_price"}
	unitFields     = []string{"unidad_medida", "unidadMedida", "unit"}
	categoryFields = []string{"categoria", "catalogo", "category"}
	brandFields    = []string{"marca", "brand"}
	labelFields    = []string{"nombre", "name"}
	taxesFields    = []string{"impuestos", "taxes"}
	taxIDFields    = []string{"satImpuestoId", "satTaxId"}
)

var lower = cases.Lower(language.Und)

// Normalizer turns raw catalog records into Products.
type Normalizer struct {
	keys *KeyGenerator
}

// NewNormalizer returns a Normalizer drawing keys from the given generator.
// A nil generator gets a fresh one.
func NewNormalizer(keys *KeyGenerator) *Normalizer {
	if keys == nil {
		keys = NewKeyGenerator()
	}
	return &Normalizer{keys: keys}
}

// Normalize produces exactly one Product per record, in input order.
func (n *Normalizer) Normalize(records []Record) []Product {
	products := make([]Product, 0, len(records))
	for _, rec := range records {
		products = append(products, n.Product(rec))
	}
	return products
}

// Product normalizes a single record.
func (n *Normalizer) Product(rec Record) Product {
	codes := rec.Get(codesFields...)
	inventory := codes.Len()
	price := guard(rec.Get(priceFields...).Number())

	return Product{
		Key:               n.keys.Next(),
		ID:                rec.Get(idFields...).String(),
		Name:              CleanName(rec.Get(nameFields...).String()),
		Code:              firstCode(codes),
		Unit:              unitLabel(rec.Get(unitFields...)),
		SuggestedPrice:    price,
		CurrentPrice:      price,
		CurrentInventory:  inventory,
		OriginalInventory: inventory,
		Category:          nestedLabel(rec.Get(categoryFields...)),
		Brand:             nestedLabel(rec.Get(brandFields...)),
		TaxID:             taxID(rec.Get(taxesFields...)),
	}
}

// CleanName strips the tag prefix, decodes HTML entities, repairs Latin-1
// mojibake where possible and title-cases the result.
func CleanName(name string) string {
	if len(name) >= len(tagPrefix) && strings.EqualFold(name[:len(tagPrefix)], tagPrefix) {
		name = name[len(tagPrefix):]
	}
	name = html.UnescapeString(name)
	return TitleCase(repairMojibake(name))
}

// repairMojibake undoes text that was UTF-8 encoded and then read back as
// Latin-1 ("CafÃ©" becomes "Café"). Input that is not representable in
// Latin-1, or whose bytes are not valid UTF-8, is returned unchanged.
func repairMojibake(s string) string {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil || !utf8.Valid(b) {
		return s
	}
	return string(b)
}

// TitleCase lowercases s and uppercases the first letter of every word. A
// word starts at the beginning of the string or after whitespace or one of
// . , ( [ { : ; ! ? ' " / -
func TitleCase(s string) string {
	s = lower.String(s)
	var b strings.Builder
	b.Grow(len(s))
	boundary := true
	for _, r := range s {
		if boundary && unicode.IsLower(r) {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		boundary = unicode.IsSpace(r) || strings.ContainsRune(".,([{:;!?'\"/-", r)
	}
	return b.String()
}

func firstCode(codes Value) string {
	list := codes.List()
	if len(list) == 0 {
		return ""
	}
	obj := list[0].Object()
	if obj == nil {
		return ""
	}
	// Only the exact spellings the source uses count here.
	for _, k := range codeFields {
		for _, name := range [...]string{k, strings.ToUpper(k)} {
			if v, ok := obj[name]; ok {
				if s := ValueOf(v).String(); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func unitLabel(v Value) string {
	if v.Kind() != KindString {
		return ""
	}
	u := strings.TrimSpace(v.String())
	if u == "" {
		return ""
	}
	return strings.ToUpper(u) + unitSuffix
}

func nestedLabel(v Value) *string {
	obj := v.Object()
	if obj == nil {
		return nil
	}
	label := obj.Get(labelFields...).String()
	if label == "" {
		return nil
	}
	return &label
}

func taxID(v Value) *float64 {
	list := v.List()
	if len(list) == 0 {
		return nil
	}
	obj := list[0].Object()
	if obj == nil {
		return nil
	}
	raw := obj.Get(taxIDFields...)
	if !raw.Present() {
		return nil
	}
	id := raw.Number()
	if math.IsNaN(id) || math.IsInf(id, 0) || id == 0 {
		return nil
	}
	return &id
}

// guard maps values that make no sense as a price or quantity to 0.
func guard(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
