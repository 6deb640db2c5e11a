package catalog

import "fmt"

// Field is the product field a mass edit writes.
type Field string

const (
	FieldNone      Field = ""
	FieldPrice     Field = "price"
	FieldInventory Field = "inventory"
)

// Target selects which products a mass edit applies to.
type Target string

const (
	TargetSelection Target = "selection"
	TargetCategory  Target = "category"
	TargetBrand     Target = "brand"
)

// MassEdit describes one bulk change: set Field to Value on every product
// matched by Target. Category and Brand carry the value to match for the
// corresponding targets. The zero Target means TargetSelection.
type MassEdit struct {
	Field    Field   `json:"field"`
	Value    float64 `json:"value"`
	Target   Target  `json:"target"`
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
}

// Ready reports whether the edit may be applied given the number of
// currently selected products.
func (m MassEdit) Ready(selected int) bool {
	if m.Field != FieldPrice && m.Field != FieldInventory {
		return false
	}
	switch m.target() {
	case TargetSelection:
		return selected > 0
	case TargetCategory:
		return m.Category != ""
	case TargetBrand:
		return m.Brand != ""
	}
	return false
}

func (m MassEdit) target() Target {
	if m.Target == "" {
		return TargetSelection
	}
	return m.Target
}

func (m MassEdit) matches(p Product, selected func(string) bool) bool {
	switch m.target() {
	case TargetSelection:
		return selected != nil && selected(p.Key)
	case TargetCategory:
		return p.Category != nil && *p.Category == m.Category
	case TargetBrand:
		return p.Brand != nil && *p.Brand == m.Brand
	}
	return false
}

// ParseField converts user input to a Field.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case FieldNone, FieldPrice, FieldInventory:
		return Field(s), nil
	}
	return FieldNone, fmt.Errorf("catalog: unknown mass edit field %q", s)
}

// ParseTarget converts user input to a Target; "" is TargetSelection.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case "":
		return TargetSelection, nil
	case TargetSelection, TargetCategory, TargetBrand:
		return Target(s), nil
	}
	return TargetSelection, fmt.Errorf("catalog: unknown mass edit target %q", s)
}
