package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/config"
	"github.com/benjaminwestern/catalog-editor/internal/session"
)

func testRecords() []catalog.Record {
	recs := []catalog.Record{
		{"nombre": "martillo", "claves": []any{map[string]any{"clave": "M1"}}, "precio_sugerido": 100, "categoria": map[string]any{"nombre": "Tools"}},
		{"nombre": "clavo", "claves": []any{map[string]any{"clave": "C1"}}, "precio_sugerido": 2},
	}
	for i := 0; i < 10; i++ {
		recs = append(recs, catalog.Record{"nombre": "tornillo", "precio_sugerido": 1})
	}
	return recs
}

func newTestModel(t *testing.T, loadErr error) model {
	t.Helper()
	s := session.New(session.Options{
		LogPath: t.TempDir(),
		Loader: func(context.Context) ([]catalog.Record, error) {
			if loadErr != nil {
				return nil, loadErr
			}
			return testRecords(), nil
		},
	})
	cfg := config.Default()
	cfg.LogPath = t.TempDir()
	return initModel(context.Background(), s, cfg, nil)
}

func send(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func loaded(t *testing.T) model {
	t.Helper()
	m := newTestModel(t, nil)
	m, _ = send(t, m, loadCatalogCmd(m.ctx, m.session)())
	require.Equal(t, viewCatalog, m.viewState)
	return m
}

func TestLoadShowsFirstPage(t *testing.T) {
	m := loaded(t)
	assert.Len(t, m.view.Rows, 8)
	assert.Equal(t, 2, m.view.TotalPages)
	assert.Contains(t, m.View(), "Martillo")
}

func TestLoadErrorAndRetry(t *testing.T) {
	m := newTestModel(t, errors.New("503 from upstream"))
	m, _ = send(t, m, loadCatalogCmd(m.ctx, m.session)())
	require.Equal(t, viewLoadError, m.viewState)
	assert.Contains(t, m.View(), "503 from upstream")

	m, cmd := send(t, m, runes("r"))
	assert.Equal(t, viewLoading, m.viewState)
	assert.NotNil(t, cmd)
}

func TestPaging(t *testing.T) {
	m := loaded(t)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, m.view.Page)
	assert.Len(t, m.view.Rows, 4)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, m.view.Page, "stays on the last page")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, m.view.Page)

	m, _ = send(t, m, runes("z"))
	assert.Equal(t, 16, m.view.PageSize)
	assert.Len(t, m.view.Rows, 12)
}

func TestEditPrice(t *testing.T) {
	m := loaded(t)
	p, ok := m.current()
	require.True(t, ok)

	m, _ = send(t, m, runes("p"))
	require.Equal(t, viewEditValue, m.viewState)
	assert.Equal(t, "100", m.valueInput.Value())

	m.valueInput.SetValue("80")
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())

	assert.Equal(t, viewCatalog, m.viewState)
	edited, err := m.session.Product(p.Key)
	require.NoError(t, err)
	assert.Equal(t, 80.0, edited.CurrentPrice)
	assert.True(t, edited.Modified)
	assert.Equal(t, "*", m.table.Rows()[0][9])
}

func TestToggleAndSelectPage(t *testing.T) {
	m := loaded(t)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Len(t, m.session.Selected(), 1)
	assert.Equal(t, "[x]", m.table.Rows()[0][0])

	m, _ = send(t, m, runes("a"))
	assert.Len(t, m.session.Selected(), 8)
	m, _ = send(t, m, runes("a"))
	assert.Empty(t, m.session.Selected())
}

func TestSearchFiltersAsYouType(t *testing.T) {
	m := loaded(t)
	m, _ = send(t, m, runes("/"))
	require.Equal(t, viewSearch, m.viewState)
	for _, r := range "clav" {
		m, _ = send(t, m, runes(string(r)))
	}
	assert.Equal(t, "clav", m.session.Criteria().Search)
	require.Len(t, m.view.Rows, 1)
	assert.Equal(t, "C1", m.view.Rows[0].Code)

	m, _ = send(t, m, runes("q"))
	assert.False(t, m.quitting, "q is typed into the search box")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewCatalog, m.viewState)
}

func TestMassEditFlow(t *testing.T) {
	m := loaded(t)
	m, _ = send(t, m, runes("m"))
	require.Equal(t, viewMassEdit, m.viewState)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, catalog.FieldPrice, m.session.PendingMassEdit().Field)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, catalog.TargetCategory, m.session.PendingMassEdit().Target)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "Tools", m.session.PendingMassEdit().Category)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, massRowValue, m.massCursor)
	m, _ = send(t, m, runes("5"))
	m, _ = send(t, m, runes("0"))
	assert.Equal(t, 50.0, m.session.PendingMassEdit().Value)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())

	assert.Equal(t, viewCatalog, m.viewState)
	assert.Equal(t, "Mass edit updated 1 product(s).", m.status)
	assert.Equal(t, 1, m.session.Summary().ModifiedCount)
	pending := m.session.PendingMassEdit()
	assert.Equal(t, catalog.FieldNone, pending.Field)
	assert.Empty(t, pending.Category)
}

func TestMassEditNotReady(t *testing.T) {
	m := loaded(t)
	m, _ = send(t, m, runes("m"))
	m.massCursor = massRowApply
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())
	assert.Equal(t, viewMassEdit, m.viewState)
	assert.NotEmpty(t, m.formErr)
}

func TestRangesDialog(t *testing.T) {
	m := loaded(t)
	m, _ = send(t, m, runes("f"))
	require.Equal(t, viewRanges, m.viewState)
	assert.Equal(t, "1", m.rangeInputs[0].Value())
	assert.Equal(t, "100", m.rangeInputs[1].Value())

	m.rangeInputs[0].SetValue("50")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, viewCatalog, m.viewState)
	require.Len(t, m.view.Rows, 1)
	assert.Equal(t, "M1", m.view.Rows[0].Code)

	m, _ = send(t, m, runes("f"))
	m.rangeInputs[2].SetValue("ten")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, viewRanges, m.viewState)
	assert.Contains(t, m.formErr, "Min inventory")
}

func TestFinalizeAndCommit(t *testing.T) {
	m := loaded(t)
	m, cmd := send(t, m, runes("F"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())
	require.Equal(t, viewSummary, m.viewState)
	require.NotNil(t, m.finalReport)

	m, cmd = send(t, m, runes("y"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())
	assert.Equal(t, viewReport, m.viewState)
	assert.Contains(t, m.View(), "Change Summary")

	m, _ = send(t, m, runes("b"))
	assert.Equal(t, viewCatalog, m.viewState)
}

func TestQuit(t *testing.T) {
	m := loaded(t)
	m, cmd := send(t, m, runes("q"))
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
}

func TestNextPageSize(t *testing.T) {
	assert.Equal(t, 16, nextPageSize(8))
	assert.Equal(t, 24, nextPageSize(16))
	assert.Equal(t, 8, nextPageSize(24))
	assert.Equal(t, 8, nextPageSize(5))
}
