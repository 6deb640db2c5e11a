// Package report builds and renders the change report produced when a
// session is finalized.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/query"
)

// Change is one modified product, baseline next to current values.
type Change struct {
	Key               string  `json:"key"`
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Code              string  `json:"code"`
	Category          string  `json:"category,omitempty"`
	Brand             string  `json:"brand,omitempty"`
	SuggestedPrice    float64 `json:"suggestedPrice"`
	CurrentPrice      float64 `json:"currentPrice"`
	OriginalInventory int     `json:"originalInventory"`
	CurrentInventory  int     `json:"currentInventory"`
	PriceChanged      bool    `json:"priceChanged"`
	InventoryChanged  bool    `json:"inventoryChanged"`
}

// CategoryDetail aggregates the changes of one category.
type CategoryDetail struct {
	Products         int `json:"products"`
	Modified         int `json:"modified"`
	PriceChanges     int `json:"priceChanges"`
	InventoryChanges int `json:"inventoryChanges"`
}

// Totals are the catalog-wide figures of the report.
type Totals struct {
	Products         int     `json:"products"`
	Modified         int     `json:"modified"`
	PriceChanges     int     `json:"priceChanges"`
	InventoryChanges int     `json:"inventoryChanges"`
	PriceDelta       float64 `json:"priceDelta"`
	InventoryDelta   int     `json:"inventoryDelta"`
	TotalInventory   int     `json:"totalInventory"`
	AveragePrice     float64 `json:"averagePrice"`
}

// ChangeReport is the read-only summary shown before changes are committed.
type ChangeReport struct {
	SessionID   string                    `json:"sessionId"`
	Source      string                    `json:"source,omitempty"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	Totals      Totals                    `json:"totals"`
	Changes     []Change                  `json:"changes"`
	Categories  map[string]CategoryDetail `json:"categories"`
}

// noCategory groups products without a category.
const noCategory = "(none)"

var (
	reportStyle      = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
	headerStyle      = lipgloss.NewStyle().Bold(true).MarginBottom(1).Underline(true)
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)

// New builds the report for products, which should be the whole catalog.
func New(sessionID, source string, products []catalog.Product) *ChangeReport {
	sum := query.Summarize(products, products)
	r := &ChangeReport{
		SessionID:   sessionID,
		Source:      source,
		GeneratedAt: time.Now(),
		Changes:     make([]Change, 0, sum.ModifiedCount),
		Categories:  make(map[string]CategoryDetail),
		Totals: Totals{
			Products:       sum.TotalCount,
			Modified:       sum.ModifiedCount,
			TotalInventory: sum.TotalInventory,
			AveragePrice:   sum.AveragePrice,
		},
	}

	for _, p := range products {
		cat := p.CategoryName()
		if cat == "" {
			cat = noCategory
		}
		detail := r.Categories[cat]
		detail.Products++
		if p.Modified {
			c := changeOf(p)
			detail.Modified++
			if c.PriceChanged {
				detail.PriceChanges++
				r.Totals.PriceChanges++
			}
			if c.InventoryChanged {
				detail.InventoryChanges++
				r.Totals.InventoryChanges++
			}
			r.Totals.PriceDelta += p.CurrentPrice - p.SuggestedPrice
			r.Totals.InventoryDelta += p.CurrentInventory - p.OriginalInventory
			r.Changes = append(r.Changes, c)
		}
		r.Categories[cat] = detail
	}
	return r
}

func changeOf(p catalog.Product) Change {
	return Change{
		Key:               p.Key,
		ID:                p.ID,
		Name:              p.Name,
		Code:              p.Code,
		Category:          p.CategoryName(),
		Brand:             p.BrandName(),
		SuggestedPrice:    p.SuggestedPrice,
		CurrentPrice:      p.CurrentPrice,
		OriginalInventory: p.OriginalInventory,
		CurrentInventory:  p.CurrentInventory,
		PriceChanged:      p.CurrentPrice != p.SuggestedPrice,
		InventoryChanged:  p.CurrentInventory != p.OriginalInventory,
	}
}

// String formats the report for display. The full form adds the per-product
// change table.
func (r *ChangeReport) String(full bool) string {
	t := r.Totals
	var b strings.Builder

	b.WriteString(headerStyle.Render("--- Change Summary ---") + "\n")
	summaryContent := fmt.Sprintf(
		"Session:                 %s\nProducts in Catalog:     %d\nModified Products:       %d\nPrice Changes:           %d\nInventory Changes:       %d\nNet Price Change:        %+.2f\nNet Inventory Change:    %+d\nTotal Inventory:         %d\nAverage Price:           %.2f",
		r.SessionID, t.Products, t.Modified, t.PriceChanges, t.InventoryChanges, t.PriceDelta, t.InventoryDelta, t.TotalInventory, t.AveragePrice,
	)
	if r.Source != "" {
		summaryContent = fmt.Sprintf("Source:                  %s\n", r.Source) + summaryContent
	}
	b.WriteString(reportStyle.Render(summaryContent))

	if t.Modified > 0 {
		b.WriteString("\n\n" + headerStyle.Render("--- Per-Category Breakdown ---") + "\n")
		b.WriteString(reportStyle.Render(r.categoryTable()))
	}

	if full && len(r.Changes) > 0 {
		b.WriteString("\n\n" + headerStyle.Render("--- Modified Products ---") + "\n")
		b.WriteString(reportStyle.Render(r.changeTable()))
	}
	return b.String()
}

func (r *ChangeReport) categoryTable() string {
	names := make([]string, 0, len(r.Categories))
	for name, d := range r.Categories {
		if d.Modified > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	headers := []string{"Category", "Products", "Modified", "Price", "Inventory"}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		d := r.Categories[name]
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", d.Products),
			fmt.Sprintf("%d", d.Modified),
			fmt.Sprintf("%d", d.PriceChanges),
			fmt.Sprintf("%d", d.InventoryChanges),
		})
	}
	return renderTable(headers, rows)
}

func (r *ChangeReport) changeTable() string {
	headers := []string{"Code", "Name", "Price", "Inventory"}
	rows := make([][]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		price := fmt.Sprintf("%.2f", c.CurrentPrice)
		if c.PriceChanged {
			price = fmt.Sprintf("%.2f -> %.2f", c.SuggestedPrice, c.CurrentPrice)
		}
		inv := fmt.Sprintf("%d", c.CurrentInventory)
		if c.InventoryChanged {
			inv = fmt.Sprintf("%d -> %d", c.OriginalInventory, c.CurrentInventory)
		}
		rows = append(rows, []string{c.Code, c.Name, price, inv})
	}
	return renderTable(headers, rows)
}

// renderTable lays rows out in padded columns separated by " | ".
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.Join(parts, " | ")
	}

	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(line(headers)) + "\n")
	for _, row := range rows {
		b.WriteString(line(row) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ToJSON converts the report to an indented JSON string.
func (r *ChangeReport) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal json: %w", err)
	}
	return string(bytes), nil
}

// Save writes the report next to baseFilename: a summary and a details
// .txt file and/or a .json file.
func (r *ChangeReport) Save(baseFilename string, enableTxt, enableJSON bool) error {
	var errs []error
	if enableTxt {
		summaryFilename := baseFilename + "_summary.txt"
		detailsFilename := baseFilename + "_details.txt"
		if err := os.WriteFile(summaryFilename, []byte(r.String(false)), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("report: save %s: %w", summaryFilename, err))
		}
		if err := os.WriteFile(detailsFilename, []byte(r.String(true)), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("report: save %s: %w", detailsFilename, err))
		}
	}
	if enableJSON {
		filename := baseFilename + ".json"
		jsonData, err := r.ToJSON()
		if err != nil {
			errs = append(errs, err)
		} else if err := os.WriteFile(filename, []byte(jsonData), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("report: save %s: %w", filename, err))
		}
	}
	return errors.Join(errs...)
}

// SaveAndLog saves the report under a timestamped name inside logPath and
// returns the base filename.
func SaveAndLog(rep *ChangeReport, logPath string, enableTxt, enableJSON bool) (string, error) {
	if err := os.MkdirAll(logPath, 0o755); err != nil {
		return "", fmt.Errorf("report: create %s: %w", logPath, err)
	}
	baseName := "changes-" + rep.GeneratedAt.Format("2006-01-02_15-04-05")
	fullPathBase := filepath.Join(logPath, baseName)
	return fullPathBase, rep.Save(fullPathBase, enableTxt, enableJSON)
}

// Extensions lists the file extensions produced for the given toggles.
func Extensions(enableTxt, enableJSON bool) []string {
	var parts []string
	if enableTxt {
		parts = append(parts, ".txt")
	}
	if enableJSON {
		parts = append(parts, ".json")
	}
	return parts
}
