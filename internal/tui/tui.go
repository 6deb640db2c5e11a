// Package tui is the interactive catalog editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/config"
	"github.com/benjaminwestern/catalog-editor/internal/logging"
	"github.com/benjaminwestern/catalog-editor/internal/query"
	"github.com/benjaminwestern/catalog-editor/internal/report"
	"github.com/benjaminwestern/catalog-editor/internal/session"
)

const (
	viewLoading int = iota
	viewLoadError
	viewCatalog
	viewSearch
	viewEditValue
	viewRanges
	viewMassEdit
	viewOptions
	viewInputLogPath
	viewHelp
	viewSummary
	viewReport
)

var (
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	statusStyle     = lipgloss.NewStyle().MarginLeft(1)
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Margin(1, 0)
	timingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle     = lipgloss.NewStyle().Bold(true).MarginBottom(1).Underline(true)
	menuCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	modifiedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
	reportStyle     = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
)

// loadProgressCeiling is as far as the simulated progress bar goes before
// the fetch answers.
const loadProgressCeiling = 0.9

type loadTickMsg struct{}
type catalogLoadedMsg struct{ err error }
type editedMsg struct {
	status string
	err    error
}
type massEditedMsg struct {
	updated int
	err     error
}
type finalizedMsg struct {
	report *report.ChangeReport
	err    error
}
type committedMsg struct {
	savedFilenameBase string
	err               error
}
type errMsg struct{ err error }

type model struct {
	ctx     context.Context
	session *session.Session
	cfg     *config.Config
	logger  *zap.Logger

	viewState int
	quitting  bool
	err       error
	status    string
	width     int
	height    int

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	table    table.Model
	viewport viewport.Model

	searchInput  textinput.Model
	valueInput   textinput.Model
	rangeInputs  []textinput.Model
	rangeFocus   int
	massInput    textinput.Model
	logPathInput textinput.Model

	loadStart   time.Time
	loadPercent float64

	view       query.View
	editField  catalog.Field
	editKey    string
	formErr    string
	massCursor int

	optionsCursor int
	pageSize      int
	logPath       string
	outputTxt     bool
	outputJSON    bool

	finalReport   *report.ChangeReport
	savedFilename string
}

// Run starts the interactive editor and blocks until the user quits.
func Run(ctx context.Context, s *session.Session, cfg *config.Config, logger *zap.Logger) error {
	m := initModel(ctx, s, cfg, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func initModel(ctx context.Context, s *session.Session, cfg *config.Config, logger *zap.Logger) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	searchInput := textinput.New()
	searchInput.Placeholder = "name or code"
	searchInput.Prompt = "/ "

	valueInput := textinput.New()
	valueInput.CharLimit = 16

	rangeInputs := make([]textinput.Model, 4)
	for i, label := range rangeLabels {
		ti := textinput.New()
		ti.Prompt = fmt.Sprintf("%-14s ", label+":")
		ti.CharLimit = 16
		rangeInputs[i] = ti
	}

	massInput := textinput.New()
	massInput.Placeholder = "value"
	massInput.CharLimit = 16

	logPathInput := textinput.New()
	logPathInput.SetValue(cfg.LogPath)

	m := model{
		ctx:          ctx,
		session:      s,
		cfg:          cfg,
		logger:       logging.OrNop(logger).Named("tui"),
		viewState:    viewLoading,
		keys:         defaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		progress:     progress.New(progress.WithDefaultGradient()),
		viewport:     viewport.New(80, 20),
		searchInput:  searchInput,
		valueInput:   valueInput,
		rangeInputs:  rangeInputs,
		massInput:    massInput,
		logPathInput: logPathInput,
		pageSize:     cfg.PageSize,
		logPath:      cfg.LogPath,
		outputTxt:    cfg.EnableTxtOutput,
		outputJSON:   cfg.EnableJSONOutput,
		status:       "Loading catalog from " + cfg.Source + "...",
	}
	m.table = newTable(cfg.PageSize)
	return m
}

func (m model) Init() tea.Cmd {
	return m.startLoad()
}

func (m *model) startLoad() tea.Cmd {
	m.viewState = viewLoading
	m.loadStart = time.Now()
	m.loadPercent = 0
	return tea.Batch(loadCatalogCmd(m.ctx, m.session), m.spinner.Tick, loadTickCmd(), m.progress.SetPercent(0))
}

func (m *model) buildConfig() *config.Config {
	cfg := *m.cfg
	cfg.PageSize = m.pageSize
	cfg.LogPath = m.logPath
	cfg.EnableTxtOutput = m.outputTxt
	cfg.EnableJSONOutput = m.outputJSON
	return &cfg
}

func saveConfigCmd(cfg *config.Config, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		if err := cfg.Save(); err != nil {
			logger.Warn("failed to save config", zap.Error(err))
		}
		return nil
	}
}

// inputFocused reports whether keystrokes belong to a text input.
func (m *model) inputFocused() bool {
	switch m.viewState {
	case viewSearch, viewEditValue, viewRanges, viewInputLogPath:
		return true
	case viewMassEdit:
		return m.massCursor == massRowValue
	}
	return false
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-10, 10), 120)
		m.help.Width = msg.Width
		m.viewport.Width = max(msg.Width-2, 20)
		m.viewport.Height = max(msg.Height-6, 5)
		return m, nil
	case tea.KeyMsg:
		if m.err != nil {
			m.err = nil
			return m, nil
		}
		if msg.String() == "ctrl+c" || (msg.String() == "q" && !m.inputFocused()) {
			m.quitting = true
			return m, tea.Quit
		}
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		if newModel, ok := progressModel.(progress.Model); ok {
			m.progress = newModel
		}
		return m, cmd
	case spinner.TickMsg:
		if m.viewState == viewLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case loadTickMsg:
		if m.viewState != viewLoading {
			return m, nil
		}
		m.loadPercent += (loadProgressCeiling - m.loadPercent) * 0.1
		return m, tea.Batch(m.progress.SetPercent(m.loadPercent), loadTickCmd())
	case catalogLoadedMsg:
		if msg.err != nil {
			m.err = nil
			m.status = msg.err.Error()
			m.viewState = viewLoadError
			return m, nil
		}
		m.viewState = viewCatalog
		m.status = fmt.Sprintf("Loaded %d products in %s.", m.session.Len(), time.Since(m.loadStart).Round(time.Millisecond))
		m.refresh()
		return m, m.progress.SetPercent(1.0)
	case editedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = msg.status
		}
		m.refresh()
		return m, nil
	case massEditedMsg:
		return handleMassEdited(m, msg)
	case finalizedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.finalReport = msg.report
		m.viewport.SetContent(msg.report.String(true))
		m.viewport.GotoTop()
		m.viewState = viewSummary
		return m, nil
	case committedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.savedFilename = msg.savedFilenameBase
		m.viewState = viewReport
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, nil
	}

	switch m.viewState {
	case viewLoadError:
		return updateLoadError(m, msg)
	case viewCatalog:
		return updateCatalog(m, msg)
	case viewSearch:
		return updateSearch(m, msg)
	case viewEditValue:
		return updateEditValue(m, msg)
	case viewRanges:
		return updateRanges(m, msg)
	case viewMassEdit:
		return updateMassEdit(m, msg)
	case viewOptions:
		return updateOptions(m, msg)
	case viewInputLogPath:
		return updateInputLogPath(m, msg)
	case viewHelp:
		if _, ok := msg.(tea.KeyMsg); ok {
			m.viewState = viewCatalog
		}
		return m, nil
	case viewSummary:
		return updateSummary(m, msg)
	case viewReport:
		return updateReport(m, msg)
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}

	if m.err != nil {
		maxContentWidth := 80
		if contentWidth := m.width - 8; m.width > 0 && contentWidth < maxContentWidth {
			maxContentWidth = contentWidth
		}

		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).Render("An Error Occurred")
		errorBody := lipgloss.NewStyle().Width(maxContentWidth).Render(m.err.Error())
		helpText := helpStyle.Render("\nPress any key to continue.")

		content := lipgloss.JoinVertical(lipgloss.Left, errorHeader, "\n", errorBody, "\n", helpText)
		box := lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).
			Render(content)

		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	switch m.viewState {
	case viewLoading:
		return renderLoading(&m)
	case viewLoadError:
		return renderLoadError(&m)
	case viewCatalog:
		return renderCatalog(&m)
	case viewSearch:
		return renderSearch(&m)
	case viewEditValue:
		return renderEditValue(&m)
	case viewRanges:
		return renderRanges(&m)
	case viewMassEdit:
		return renderMassEdit(&m)
	case viewOptions:
		return renderOptions(&m)
	case viewInputLogPath:
		return renderInputLogPath(&m)
	case viewHelp:
		return renderHelp(&m)
	case viewSummary:
		return renderSummary(&m)
	case viewReport:
		return renderReport(&m)
	}
	return ""
}

func loadCatalogCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		err := s.Load(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return catalogLoadedMsg{err: err}
	}
}

func loadTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return loadTickMsg{} })
}

func editCmd(ctx context.Context, s *session.Session, field catalog.Field, key, raw string) tea.Cmd {
	return func() tea.Msg {
		var (
			p   catalog.Product
			err error
		)
		switch field {
		case catalog.FieldPrice:
			p, err = s.SetPrice(ctx, key, raw)
		case catalog.FieldInventory:
			p, err = s.SetInventory(ctx, key, raw)
		default:
			return nil
		}
		if err != nil {
			return editedMsg{err: err}
		}
		return editedMsg{status: fmt.Sprintf("%s: price %.2f, inventory %d", p.Name, p.CurrentPrice, p.CurrentInventory)}
	}
}

func massEditCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		n, err := s.ApplyMassEdit(ctx)
		return massEditedMsg{updated: n, err: err}
	}
}

func revertCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		n, err := s.RevertAll(ctx)
		if err != nil {
			return editedMsg{err: err}
		}
		return editedMsg{status: fmt.Sprintf("Reverted %d product(s).", n)}
	}
}

func finalizeCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		rep, err := s.Finalize(ctx)
		return finalizedMsg{report: rep, err: err}
	}
}

func commitCmd(ctx context.Context, s *session.Session, rep *report.ChangeReport) tea.Cmd {
	return func() tea.Msg {
		base, err := s.Commit(ctx, rep)
		return committedMsg{savedFilenameBase: base, err: err}
	}
}
