package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/query"
)

func newTable(pageSize int) table.Model {
	// Paging is ours; the table only moves the cursor.
	km := table.KeyMap{
		LineUp:   key.NewBinding(key.WithKeys("up", "k")),
		LineDown: key.NewBinding(key.WithKeys("down", "j")),
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))

	return table.New(
		table.WithColumns(columns(query.Criteria{})),
		table.WithFocused(true),
		table.WithHeight(pageSize+1),
		table.WithKeyMap(km),
		table.WithStyles(styles),
	)
}

func columns(c query.Criteria) []table.Column {
	title := func(name string, field query.SortField) string {
		if c.SortField != field || field == query.SortNone {
			return name
		}
		if c.Direction == query.Descending {
			return name + " ▼"
		}
		return name + " ▲"
	}
	return []table.Column{
		{Title: "Sel", Width: 3},
		{Title: "Code", Width: 10},
		{Title: title("Name", query.SortName), Width: 28},
		{Title: "Unit", Width: 14},
		{Title: "Suggested", Width: 10},
		{Title: title("Price", query.SortPrice), Width: 10},
		{Title: title("Inv", query.SortInventory), Width: 6},
		{Title: "Category", Width: 14},
		{Title: "Brand", Width: 12},
		{Title: "*", Width: 1},
	}
}

// refresh recomputes the page from the session and rebuilds the table.
func (m *model) refresh() {
	c := m.session.Criteria()
	m.view = m.session.ViewWith(c)

	rows := make([]table.Row, 0, len(m.view.Rows))
	for _, p := range m.view.Rows {
		sel := "[ ]"
		if m.session.IsSelected(p.Key) {
			sel = "[x]"
		}
		mark := ""
		if p.Modified {
			mark = "*"
		}
		rows = append(rows, table.Row{
			sel,
			p.Code,
			p.Name,
			p.Unit,
			fmt.Sprintf("%.2f", p.SuggestedPrice),
			fmt.Sprintf("%.2f", p.CurrentPrice),
			strconv.Itoa(p.CurrentInventory),
			p.CategoryName(),
			p.BrandName(),
			mark,
		})
	}
	m.table.SetColumns(columns(c))
	m.table.SetRows(rows)
	m.table.SetHeight(m.view.PageSize + 1)
	if cur := m.table.Cursor(); cur >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// current returns the product under the cursor.
func (m *model) current() (catalog.Product, bool) {
	cur := m.table.Cursor()
	if cur < 0 || cur >= len(m.view.Rows) {
		return catalog.Product{}, false
	}
	return m.view.Rows[cur], true
}

func updateCatalog(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Help):
		m.viewState = viewHelp
		return m, nil
	case key.Matches(keyMsg, m.keys.PrevPage):
		if m.view.Page > 0 {
			m.session.UpdateCriteria(func(c *query.Criteria) { c.Page-- })
			m.table.SetCursor(0)
			m.refresh()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.NextPage):
		if m.view.Page < m.view.TotalPages-1 {
			m.session.UpdateCriteria(func(c *query.Criteria) { c.Page++ })
			m.table.SetCursor(0)
			m.refresh()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Toggle):
		if p, ok := m.current(); ok {
			_, _ = m.session.ToggleSelected(p.Key)
			m.refresh()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.SelectPage):
		if all, _ := m.session.PageSelection(); all {
			// A fully selected page deselects on the second press.
			for _, k := range m.view.Keys() {
				_, _ = m.session.ToggleSelected(k)
			}
		} else {
			m.session.SelectPage()
		}
		m.refresh()
		return m, nil
	case key.Matches(keyMsg, m.keys.ClearSelection):
		m.session.ClearSelection()
		m.refresh()
		return m, nil
	case key.Matches(keyMsg, m.keys.Search):
		m.searchInput.SetValue(m.session.Criteria().Search)
		m.searchInput.CursorEnd()
		m.viewState = viewSearch
		return m, m.searchInput.Focus()
	case key.Matches(keyMsg, m.keys.EditPrice):
		return m.openEditor(catalog.FieldPrice)
	case key.Matches(keyMsg, m.keys.EditInventory):
		return m.openEditor(catalog.FieldInventory)
	case key.Matches(keyMsg, m.keys.Ranges):
		return m.openRanges()
	case key.Matches(keyMsg, m.keys.EditedOnly):
		m.session.UpdateCriteria(func(c *query.Criteria) { c.EditedOnly = !c.EditedOnly })
		m.refresh()
		return m, nil
	case key.Matches(keyMsg, m.keys.SortName):
		return m.toggleSort(query.SortName)
	case key.Matches(keyMsg, m.keys.SortPrice):
		return m.toggleSort(query.SortPrice)
	case key.Matches(keyMsg, m.keys.SortInventory):
		return m.toggleSort(query.SortInventory)
	case key.Matches(keyMsg, m.keys.PageSize):
		m.pageSize = nextPageSize(m.view.PageSize)
		m.session.UpdateCriteria(func(c *query.Criteria) { c.SetPageSize(m.pageSize) })
		m.table.SetCursor(0)
		m.refresh()
		return m, saveConfigCmd(m.buildConfig(), m.logger)
	case key.Matches(keyMsg, m.keys.MassEdit):
		return m.openMassEdit()
	case key.Matches(keyMsg, m.keys.Revert):
		return m, revertCmd(m.ctx, m.session)
	case key.Matches(keyMsg, m.keys.Finalize):
		return m, finalizeCmd(m.ctx, m.session)
	case key.Matches(keyMsg, m.keys.Options):
		m.viewState = viewOptions
		return m, nil
	case key.Matches(keyMsg, m.keys.Reload):
		m.status = "Reloading catalog..."
		return m, m.startLoad()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) toggleSort(field query.SortField) (tea.Model, tea.Cmd) {
	m.session.UpdateCriteria(func(c *query.Criteria) { c.ToggleSort(field) })
	m.refresh()
	return m, nil
}

func nextPageSize(current int) int {
	for i, n := range query.PageSizes {
		if n == current {
			return query.PageSizes[(i+1)%len(query.PageSizes)]
		}
	}
	return query.PageSizes[0]
}

func updateLoadError(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.Reload) {
		m.status = "Retrying..."
		return m, m.startLoad()
	}
	return m, nil
}

func renderLoading(m *model) string {
	pad := strings.Repeat(" ", 2)
	elapsed := timingStyle.Render(fmt.Sprintf(" (Elapsed: %s)", time.Since(m.loadStart).Round(time.Second)))
	return fmt.Sprintf("\n%s%s%s%s\n\n%s%s\n", pad, m.spinner.View(), statusStyle.Render(m.status), elapsed, pad, m.progress.View()) +
		helpStyle.Render("Press 'q' or 'ctrl+c' to quit.")
}

func renderLoadError(m *model) string {
	var b strings.Builder
	b.WriteString("\n" + headerStyle.Render("Could not load the catalog") + "\n")
	b.WriteString(errorStyle.Render(m.status) + "\n")
	b.WriteString(helpStyle.Render("Press 'r' to retry, 'q' to quit."))
	return b.String()
}

func renderCatalog(m *model) string {
	var b strings.Builder
	c := m.session.Criteria()
	sum := m.session.Summary()

	var filters []string
	if c.Search != "" {
		filters = append(filters, fmt.Sprintf("search %q", c.Search))
	}
	if c.EditedOnly {
		filters = append(filters, "edited only")
	}
	filters = append(filters,
		fmt.Sprintf("price %.2f-%.2f", c.Price.Min, c.Price.Max),
		fmt.Sprintf("inventory %d-%d", c.Inventory.Min, c.Inventory.Max))
	b.WriteString(timingStyle.Render("Filters: "+strings.Join(filters, ", ")) + "\n")

	b.WriteString(m.table.View() + "\n")

	if len(m.view.Rows) == 0 {
		b.WriteString(timingStyle.Render("  No products match the current filters.") + "\n")
	}

	pages := max(m.view.TotalPages, 1)
	all, some := m.session.PageSelection()
	pageSel := ""
	switch {
	case all:
		pageSel = " (whole page)"
	case some:
		pageSel = " (partial)"
	}
	b.WriteString(fmt.Sprintf("Page %d/%d (%d per page) | Showing %d of %d | Selected %d%s\n",
		m.view.Page+1, pages, m.view.PageSize, sum.FilteredCount, sum.TotalCount, len(m.session.Selected()), pageSel))
	b.WriteString(fmt.Sprintf("Modified %s | Inventory %d | Average price %.2f\n",
		modifiedStyle.Render(strconv.Itoa(sum.ModifiedCount)), sum.TotalInventory, sum.AveragePrice))

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}
