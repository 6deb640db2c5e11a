package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/query"
	"github.com/benjaminwestern/catalog-editor/internal/session"
)

// Rows of the mass edit form.
const (
	massRowField = iota
	massRowTarget
	massRowMatch
	massRowValue
	massRowApply
	massRowCount
)

var rangeLabels = []string{"Min price", "Max price", "Min inventory", "Max inventory"}

var massTargets = []catalog.Target{catalog.TargetSelection, catalog.TargetCategory, catalog.TargetBrand}

func updateSearch(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.searchInput.Blur()
			m.viewState = viewCatalog
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	term := m.searchInput.Value()
	m.session.UpdateCriteria(func(c *query.Criteria) { c.Search = term })
	m.refresh()
	return m, cmd
}

func renderSearch(m *model) string {
	return renderCatalog(m) + "\n" + m.searchInput.View() +
		helpStyle.Render("\nFilters as you type. Enter or esc to return to the table.")
}

func (m model) openEditor(field catalog.Field) (tea.Model, tea.Cmd) {
	p, ok := m.current()
	if !ok {
		return m, nil
	}
	m.editField = field
	m.editKey = p.Key
	m.formErr = ""
	if field == catalog.FieldPrice {
		m.valueInput.SetValue(strconv.FormatFloat(p.CurrentPrice, 'f', -1, 64))
	} else {
		m.valueInput.SetValue(strconv.Itoa(p.CurrentInventory))
	}
	m.valueInput.CursorEnd()
	m.viewState = viewEditValue
	return m, m.valueInput.Focus()
}

func updateEditValue(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.valueInput.Blur()
			m.viewState = viewCatalog
			return m, nil
		case tea.KeyEnter:
			m.valueInput.Blur()
			m.viewState = viewCatalog
			return m, editCmd(m.ctx, m.session, m.editField, m.editKey, m.valueInput.Value())
		}
	}
	var cmd tea.Cmd
	m.valueInput, cmd = m.valueInput.Update(msg)
	return m, cmd
}

func renderEditValue(m *model) string {
	p, err := m.session.Product(m.editKey)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	var label, baseline string
	if m.editField == catalog.FieldPrice {
		label = "price"
		baseline = fmt.Sprintf("Suggested price: %.2f", p.SuggestedPrice)
	} else {
		label = "inventory"
		baseline = fmt.Sprintf("Original inventory: %d", p.OriginalInventory)
	}
	pad := strings.Repeat(" ", 2)
	help := helpStyle.Render("Press Enter to save, 'esc' to cancel. Invalid or negative values become 0.")
	return fmt.Sprintf("\n%s%s (%s)\n%s%s\n\n%sNew %s: %s\n\n%s",
		pad, headerStyle.Render(p.Name), p.Code, pad, timingStyle.Render(baseline), pad, label, m.valueInput.View(), help)
}

func (m model) openRanges() (tea.Model, tea.Cmd) {
	c := m.session.Criteria()
	m.fillRanges(c)
	m.formErr = ""
	m.rangeFocus = 0
	m.viewState = viewRanges
	return m, m.rangeInputs[0].Focus()
}

func (m *model) fillRanges(c query.Criteria) {
	values := []string{
		strconv.FormatFloat(c.Price.Min, 'f', -1, 64),
		strconv.FormatFloat(c.Price.Max, 'f', -1, 64),
		strconv.Itoa(c.Inventory.Min),
		strconv.Itoa(c.Inventory.Max),
	}
	for i := range m.rangeInputs {
		m.rangeInputs[i].SetValue(values[i])
		m.rangeInputs[i].CursorEnd()
	}
}

func updateRanges(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.rangeInputs[m.rangeFocus].Blur()
			m.viewState = viewCatalog
			return m, nil
		case "tab", "down", "shift+tab", "up":
			m.rangeInputs[m.rangeFocus].Blur()
			step := 1
			if s := keyMsg.String(); s == "shift+tab" || s == "up" {
				step = len(m.rangeInputs) - 1
			}
			m.rangeFocus = (m.rangeFocus + step) % len(m.rangeInputs)
			return m, m.rangeInputs[m.rangeFocus].Focus()
		case "ctrl+r":
			m.fillRanges(m.session.ResetRanges())
			m.formErr = ""
			m.refresh()
			return m, nil
		case "enter":
			price, inv, err := m.parseRanges()
			if err != nil {
				m.formErr = err.Error()
				return m, nil
			}
			m.session.UpdateCriteria(func(c *query.Criteria) {
				c.Price = price
				c.Inventory = inv
			})
			m.rangeInputs[m.rangeFocus].Blur()
			m.viewState = viewCatalog
			m.refresh()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.rangeInputs[m.rangeFocus], cmd = m.rangeInputs[m.rangeFocus].Update(msg)
	return m, cmd
}

func (m *model) parseRanges() (query.PriceRange, query.InventoryRange, error) {
	var price query.PriceRange
	var inv query.InventoryRange
	floats := []*float64{&price.Min, &price.Max}
	for i, dst := range floats {
		f, err := strconv.ParseFloat(strings.TrimSpace(m.rangeInputs[i].Value()), 64)
		if err != nil {
			return price, inv, fmt.Errorf("%s is not a number", rangeLabels[i])
		}
		*dst = f
	}
	ints := []*int{&inv.Min, &inv.Max}
	for i, dst := range ints {
		n, err := strconv.Atoi(strings.TrimSpace(m.rangeInputs[i+2].Value()))
		if err != nil {
			return price, inv, fmt.Errorf("%s is not a whole number", rangeLabels[i+2])
		}
		*dst = n
	}
	if price.Min > price.Max || inv.Min > inv.Max {
		return price, inv, errors.New("minimum must not exceed maximum")
	}
	return price, inv, nil
}

func renderRanges(m *model) string {
	var b strings.Builder
	price, inv := m.session.Bounds()
	b.WriteString("\n" + headerStyle.Render("Advanced Filters") + "\n")
	b.WriteString(timingStyle.Render(fmt.Sprintf("Catalog bounds: price %.2f-%.2f (suggested), inventory %d-%d", price.Min, price.Max, inv.Min, inv.Max)) + "\n\n")
	for i, in := range m.rangeInputs {
		cursor := " "
		if i == m.rangeFocus {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", menuCursorStyle.Render(cursor), in.View()))
	}
	if m.formErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.formErr) + "\n")
	}
	b.WriteString(helpStyle.Render("Tab/arrows to move, Enter to apply, ctrl+r to reset to catalog bounds, esc to cancel."))
	return b.String()
}

func (m model) openMassEdit() (tea.Model, tea.Cmd) {
	edit := m.session.PendingMassEdit()
	if edit.Target == "" {
		edit.Target = catalog.TargetSelection
		m.session.SetPendingMassEdit(edit)
	}
	m.massCursor = massRowField
	m.formErr = ""
	if edit.Value != 0 {
		m.massInput.SetValue(strconv.FormatFloat(edit.Value, 'f', -1, 64))
	} else {
		m.massInput.SetValue("")
	}
	m.viewState = viewMassEdit
	return m, nil
}

func updateMassEdit(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.massCursor == massRowValue {
			var cmd tea.Cmd
			m.massInput, cmd = m.massInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	edit := m.session.PendingMassEdit()
	switch keyMsg.String() {
	case "esc":
		m.massInput.Blur()
		m.viewState = viewCatalog
		return m, nil
	case "up", "shift+tab":
		m.massCursor = (m.massCursor + massRowCount - 1) % massRowCount
		return m, m.focusMassValue()
	case "down", "tab":
		m.massCursor = (m.massCursor + 1) % massRowCount
		return m, m.focusMassValue()
	case "left", "right":
		if m.massCursor == massRowValue {
			break
		}
		step := 1
		if keyMsg.String() == "left" {
			step = -1
		}
		m.session.SetPendingMassEdit(m.cycleMassEdit(edit, step))
		m.formErr = ""
		return m, nil
	case "enter":
		if m.massCursor != massRowApply && m.massCursor != massRowValue {
			m.session.SetPendingMassEdit(m.cycleMassEdit(edit, 1))
			return m, nil
		}
		edit.Value = catalog.ParsePrice(m.massInput.Value())
		m.session.SetPendingMassEdit(edit)
		return m, massEditCmd(m.ctx, m.session)
	}

	if m.massCursor == massRowValue {
		var cmd tea.Cmd
		m.massInput, cmd = m.massInput.Update(msg)
		edit.Value = catalog.ParsePrice(m.massInput.Value())
		m.session.SetPendingMassEdit(edit)
		return m, cmd
	}
	return m, nil
}

func (m *model) focusMassValue() tea.Cmd {
	if m.massCursor == massRowValue {
		return m.massInput.Focus()
	}
	m.massInput.Blur()
	return nil
}

// cycleMassEdit moves the option on the current row by step.
func (m *model) cycleMassEdit(edit catalog.MassEdit, step int) catalog.MassEdit {
	switch m.massCursor {
	case massRowField:
		fields := []catalog.Field{catalog.FieldNone, catalog.FieldPrice, catalog.FieldInventory}
		edit.Field = fields[cycleIndex(fields, edit.Field, step)]
	case massRowTarget:
		edit.Target = massTargets[cycleIndex(massTargets, edit.Target, step)]
	case massRowMatch:
		categories, brands := m.session.Facets()
		switch edit.Target {
		case catalog.TargetCategory:
			options := append([]string{""}, categories...)
			edit.Category = options[cycleIndex(options, edit.Category, step)]
		case catalog.TargetBrand:
			options := append([]string{""}, brands...)
			edit.Brand = options[cycleIndex(options, edit.Brand, step)]
		}
	}
	return edit
}

func cycleIndex[T comparable](options []T, current T, step int) int {
	for i, o := range options {
		if o == current {
			return (i + step + len(options)) % len(options)
		}
	}
	return 0
}

func handleMassEdited(m model, msg massEditedMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, session.ErrMassEditNotReady) {
		m.formErr = "Choose a field and a target with at least one product (select rows for the selection target)."
		return m, nil
	}
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	m.massInput.SetValue("")
	m.massInput.Blur()
	m.formErr = ""
	m.status = fmt.Sprintf("Mass edit updated %d product(s).", msg.updated)
	m.viewState = viewCatalog
	m.refresh()
	return m, nil
}

func renderMassEdit(m *model) string {
	edit := m.session.PendingMassEdit()
	selected := len(m.session.Selected())

	field := "(choose)"
	if edit.Field != catalog.FieldNone {
		field = string(edit.Field)
	}
	var target, match string
	switch edit.Target {
	case catalog.TargetCategory:
		target = "category"
		match = "Category: " + orChoose(edit.Category)
	case catalog.TargetBrand:
		target = "brand"
		match = "Brand:    " + orChoose(edit.Brand)
	default:
		target = fmt.Sprintf("selection (%d selected)", selected)
		match = timingStyle.Render("(uses the selected rows)")
	}

	rows := []string{
		"Field:    " + field,
		"Target:   " + target,
		match,
		"Value:    " + m.massInput.View(),
		"[ Apply ]",
	}

	var b strings.Builder
	b.WriteString("\n" + headerStyle.Render("Mass Edit") + "\n")
	for i, row := range rows {
		cursor := " "
		if i == m.massCursor {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", menuCursorStyle.Render(cursor), row))
	}
	if !edit.Ready(selected) {
		b.WriteString("\n" + timingStyle.Render("Not ready: pick a field and a target value.") + "\n")
	}
	if m.formErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.formErr) + "\n")
	}
	b.WriteString(helpStyle.Render("Up/down to move, left/right to change, Enter on Apply to run, esc to close."))
	return b.String()
}

func orChoose(s string) string {
	if s == "" {
		return "(choose)"
	}
	return s
}

func updateOptions(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "esc":
		m.viewState = viewCatalog
		return m, nil
	case "up", "k":
		if m.optionsCursor > 0 {
			m.optionsCursor--
		}
	case "down", "j":
		if m.optionsCursor < 4 {
			m.optionsCursor++
		}
	case "left", "right", "enter":
		switch m.optionsCursor {
		case 0:
			m.pageSize = nextPageSize(m.pageSize)
			m.session.UpdateCriteria(func(c *query.Criteria) { c.SetPageSize(m.pageSize) })
			m.refresh()
		case 1:
			m.outputTxt = !m.outputTxt
		case 2:
			m.outputJSON = !m.outputJSON
		case 3:
			if keyMsg.String() != "enter" {
				return m, nil
			}
			m.viewState = viewInputLogPath
			return m, m.logPathInput.Focus()
		case 4:
			if keyMsg.String() == "enter" {
				m.viewState = viewCatalog
			}
			return m, nil
		}
		m.session.SetOutputs(m.logPath, m.outputTxt, m.outputJSON)
		return m, saveConfigCmd(m.buildConfig(), m.logger)
	}
	return m, nil
}

func renderOptions(m *model) string {
	opts := []string{
		fmt.Sprintf("Rows per Page:       %d", m.pageSize),
		fmt.Sprintf("Enable TXT Report:   %t", m.outputTxt),
		fmt.Sprintf("Enable JSON Report:  %t", m.outputJSON),
		fmt.Sprintf("Log/Report Path:     %s", m.logPath),
		"Back to Catalog",
	}
	s := "Configure Options:\n\n"
	for i, choice := range opts {
		cursor := " "
		if m.optionsCursor == i {
			cursor = ">"
		}
		s += fmt.Sprintf("%s %s\n", menuCursorStyle.Render(cursor), choice)
	}
	return s + helpStyle.Render("\nUse up/down arrows, left/right or enter to toggle/change values.\nPress Enter on Log/Report Path to edit.")
}

func updateInputLogPath(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.logPathInput.Blur()
			m.logPathInput.SetValue(m.logPath)
			m.viewState = viewOptions
			return m, nil
		case tea.KeyEnter:
			path := strings.TrimSpace(m.logPathInput.Value())
			if path == "" {
				m.err = errors.New("log path cannot be empty")
				return m, nil
			}
			m.logPath = path
			m.logPathInput.Blur()
			m.viewState = viewOptions
			m.session.SetOutputs(m.logPath, m.outputTxt, m.outputJSON)
			return m, saveConfigCmd(m.buildConfig(), m.logger)
		}
	}
	m.logPathInput, cmd = m.logPathInput.Update(msg)
	return m, cmd
}

func renderInputLogPath(m *model) string {
	pad := strings.Repeat(" ", 2)
	help := helpStyle.Render("Press Enter to submit, 'ctrl+c' to quit, 'esc' to go back.")
	return fmt.Sprintf("\n%sPlease enter the path for logs and reports:\n\n%s%s\n\n%s", pad, pad, m.logPathInput.View(), help)
}
