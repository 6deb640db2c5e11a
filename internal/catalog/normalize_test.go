package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) []Record {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(body))
	dec.UseNumber()
	var raw []map[string]any
	require.NoError(t, dec.Decode(&raw))
	out := make([]Record, len(raw))
	for i, r := range raw {
		out[i] = Record(r)
	}
	return out
}

func TestNormalizeUppercaseRecord(t *testing.T) {
	recs := decode(t, `[{"NOMBRE":"val::MARTILLO de 5KG","CLAVES":[{"CLAVE":"M1"}],"PRECIO_SUGERIDO":"val::100.50"}]`)

	products := NewNormalizer(nil).Normalize(recs)
	require.Len(t, products, 1)
	p := products[0]

	assert.Equal(t, "Martillo De 5kg", p.Name)
	assert.Equal(t, "M1", p.Code)
	assert.Equal(t, 100.5, p.SuggestedPrice)
	assert.Equal(t, 100.5, p.CurrentPrice)
	assert.Equal(t, 1, p.CurrentInventory)
	assert.Equal(t, 1, p.OriginalInventory)
	assert.False(t, p.Modified)
	assert.Len(t, p.Key, 6)
	assert.Nil(t, p.Category)
	assert.Nil(t, p.Brand)
	assert.Nil(t, p.TaxID)
}

func TestNormalizeFullRecord(t *testing.T) {
	recs := decode(t, `[{
		"id": 42,
		"nombre": "taladro inalámbrico",
		"claves": [{"clave": "T-1"}, {"clave": "T-2"}, {"clave": "T-3"}],
		"precioSugerido": 1250,
		"unidadMedida": "  pza ",
		"categoria": {"nombre": "Herramientas"},
		"MARCA": {"NOMBRE": "Truper"},
		"impuestos": [{"satimpuestoid": "002"}]
	}]`)

	p := NewNormalizer(nil).Product(recs[0])

	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "Taladro Inalámbrico", p.Name)
	assert.Equal(t, "T-1", p.Code)
	assert.Equal(t, 3, p.CurrentInventory)
	assert.Equal(t, 1250.0, p.SuggestedPrice)
	assert.Equal(t, "PZA (Unidad)", p.Unit)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Herramientas", *p.Category)
	require.NotNil(t, p.Brand)
	assert.Equal(t, "Truper", *p.Brand)
	require.NotNil(t, p.TaxID)
	assert.Equal(t, 2.0, *p.TaxID)
}

func TestNormalizeMissingFields(t *testing.T) {
	recs := decode(t, `[{}, {"claves": "not-a-list", "precio_sugerido": "abc", "unidad_medida": "   "}, {"precio_sugerido": -4}]`)

	products := NewNormalizer(nil).Normalize(recs)
	require.Len(t, products, 3)
	for _, p := range products {
		assert.Equal(t, "", p.ID)
		assert.Equal(t, "", p.Name)
		assert.Equal(t, "", p.Code)
		assert.Equal(t, "", p.Unit)
		assert.Zero(t, p.SuggestedPrice)
		assert.Zero(t, p.CurrentInventory)
		assert.False(t, p.Modified)
	}
}

func TestNormalizeKeysAreUnique(t *testing.T) {
	recs := make([]Record, 500)
	for i := range recs {
		recs[i] = Record{}
	}
	products := NewNormalizer(nil).Normalize(recs)

	seen := make(map[string]bool)
	for _, p := range products {
		assert.False(t, seen[p.Key], "duplicate key %s", p.Key)
		seen[p.Key] = true
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"VAL::tornillo", "Tornillo"},
		{"CafÃ© molido", "Café Molido"},
		{"niño", "Niño"},
		{"café ☕ negro", "Café ☕ Negro"},
		{"tubo (pvc) 1/2\"", "Tubo (Pvc) 1/2\""},
		{"pinza-de-presion", "Pinza-De-Presion"},
		{"cinta: \"doble\" cara", "Cinta: \"Doble\" Cara"},
		{"aceite &amp; grasa", "Aceite & Grasa"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanName(tt.in), "input %q", tt.in)
	}
}

func TestValueNumber(t *testing.T) {
	rec := Record{
		"a": json.Number("12.5"),
		"b": "val::7",
		"c": "",
		"d": "x1",
		"e": nil,
		"f": []any{1},
	}
	assert.Equal(t, 12.5, rec.Get("a").Number())
	assert.Equal(t, 7.0, rec.Get("b").Number())
	assert.Equal(t, 0.0, rec.Get("c").Number())
	assert.True(t, math.IsNaN(rec.Get("d").Number()))
	assert.Equal(t, 0.0, rec.Get("e").Number())
	assert.True(t, math.IsNaN(rec.Get("f").Number()))
	assert.True(t, math.IsNaN(rec.Get("missing").Number()))
}

func TestRecordGetPriority(t *testing.T) {
	rec := Record{"precio": "1", "PRECIO": "2", "Precio": "3"}
	assert.Equal(t, "3", rec.Get("Precio").String())
	assert.Equal(t, "1", rec.Get("precio").String())

	rec = Record{"PRECIO": "2"}
	assert.Equal(t, "2", rec.Get("Precio").String())
	assert.Equal(t, KindMissing, rec.Get("costo").Kind())
}

func TestKeyGeneratorWidensWhenExhausted(t *testing.T) {
	g := newKeyGenerator(1, rand.New(rand.NewPCG(1, 2)))
	seen := make(map[string]bool)
	for range 9 {
		k := g.Next()
		assert.Len(t, k, 1)
		seen[k] = true
	}
	assert.Len(t, seen, 9)

	k := g.Next()
	assert.Len(t, k, 2)
	assert.False(t, seen[k])
}
