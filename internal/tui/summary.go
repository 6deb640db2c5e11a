package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/benjaminwestern/catalog-editor/internal/report"
)

func updateSummary(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "n":
			m.viewState = viewCatalog
			return m, nil
		case "enter", "y":
			return m, commitCmd(m.ctx, m.session, m.finalReport)
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func renderSummary(m *model) string {
	if m.finalReport == nil {
		return "Generating report..."
	}
	var b strings.Builder
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(timingStyle.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)))
	b.WriteString(helpStyle.Render("\nConfirm these changes? (y)es / enter to commit, (n)o / esc to keep editing. Arrows scroll."))
	return b.String()
}

func updateReport(m model, msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "b":
			m.viewState = viewCatalog
			m.refresh()
			return m, nil
		case "r":
			m.status = "Reloading catalog..."
			return m, m.startLoad()
		}
	}
	return m, nil
}

func renderReport(m *model) string {
	if m.finalReport == nil {
		return "Generating report..."
	}
	var b strings.Builder
	b.WriteString("\n" + m.finalReport.String(false))
	if parts := report.Extensions(m.outputTxt, m.outputJSON); m.savedFilename != "" && len(parts) > 0 {
		b.WriteString("\n\n" + fmt.Sprintf("Reports saved with base name '%s' and extension(s): %s", m.savedFilename, strings.Join(parts, ", ")))
	} else {
		b.WriteString("\n\nChanges committed. No report files were generated as per configuration.")
	}
	b.WriteString("\n" + helpStyle.Render("Press (b)ack to the catalog, (r)eload, (q)uit."))
	return b.String()
}

func renderHelp(m *model) string {
	var b strings.Builder
	b.WriteString(`
  Help & Command-Line Flags

  Edit prices and inventory of a product catalog. Edits are kept in memory;
  modified products are mirrored to the snapshot store after every change
  and summarised when you finalize.

  --- Interactive Controls ---
`)
	m.help.ShowAll = true
	b.WriteString(m.help.View(m.keys))
	m.help.ShowAll = false
	b.WriteString(`

  --- Command-Line Flags ---
  -source <url|path|gs://>   Catalog location (http(s), local file or GCS).
  -records-field <name>      Field holding the records when the body is an object (default "data").
  -snapshot <target>         Snapshot store: file://dir, redis://host/db, gs://bucket/prefix or none.
  -log-path <path>           Directory to save logs and reports (default "logs").
  -log-level <level>         debug, info, warn or error.
  -page-size <n>             Rows per page (8, 16 or 24 in the UI).
  -output.txt <bool>         Enable .txt report output.
  -output.json <bool>        Enable .json report output.
  -headless                  Run without TUI and print the report to stdout.
  -script <file>             JSON edit script applied in headless mode.
  -output <txt|json>         Output format for headless mode (default "txt").
  -serve                     Serve the JSON HTTP API instead of the TUI.
  -addr <host:port>          Listen address for -serve.
`)
	b.WriteString(helpStyle.Render("Press any key to return."))
	return b.String()
}
