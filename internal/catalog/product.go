package catalog

// Product is one catalog item. Suggested price and original inventory are the
// baseline; current price and inventory are what the user edits. Modified is
// derived from the two pairs and is only ever written by this package.
type Product struct {
	Key               string   `json:"key"`
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Code              string   `json:"code"`
	Unit              string   `json:"unit"`
	SuggestedPrice    float64  `json:"suggestedPrice"`
	CurrentPrice      float64  `json:"currentPrice"`
	CurrentInventory  int      `json:"currentInventory"`
	OriginalInventory int      `json:"originalInventory"`
	Category          *string  `json:"category,omitempty"`
	Brand             *string  `json:"brand,omitempty"`
	TaxID             *float64 `json:"taxId,omitempty"`
	Modified          bool     `json:"modified"`
}

// Diverges reports whether the current values differ from the baseline.
func (p Product) Diverges() bool {
	return p.CurrentPrice != p.SuggestedPrice || p.CurrentInventory != p.OriginalInventory
}

// CategoryName returns the category or "" when the product has none.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// BrandName returns the brand or "" when the product has none.
func (p Product) BrandName() string {
	if p.Brand == nil {
		return ""
	}
	return *p.Brand
}

func (p *Product) refresh() {
	p.Modified = p.Diverges()
}

func (p *Product) revert() {
	p.CurrentPrice = p.SuggestedPrice
	p.CurrentInventory = p.OriginalInventory
	p.Modified = false
}
