package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/query"
)

type recordingStore struct {
	mu      sync.Mutex
	saves   [][]catalog.Product
	clears  int
	closed  bool
	failing bool
}

func (r *recordingStore) Save(_ context.Context, products []catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("slot unavailable")
	}
	r.saves = append(r.saves, products)
	return nil
}

func (r *recordingStore) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	return nil
}

func (r *recordingStore) Close() error {
	r.closed = true
	return nil
}

func (r *recordingStore) last() []catalog.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return nil
	}
	return r.saves[len(r.saves)-1]
}

func records() []catalog.Record {
	return []catalog.Record{
		{"nombre": "Martillo", "claves": []any{map[string]any{"clave": "M1"}}, "precio_sugerido": "val::100", "categoria": map[string]any{"nombre": "Tools"}, "marca": map[string]any{"nombre": "Acme"}},
		{"nombre": "Clavo", "claves": []any{map[string]any{"clave": "C1"}, map[string]any{"clave": "C2"}}, "precio_sugerido": 2.5, "categoria": map[string]any{"nombre": "Tools"}},
		{"nombre": "Pintura", "claves": []any{}, "precio_sugerido": 300, "marca": map[string]any{"nombre": "Acme"}},
	}
}

func staticLoader(recs []catalog.Record) Loader {
	return func(context.Context) ([]catalog.Record, error) { return recs, nil }
}

func newLoaded(t *testing.T, opts Options) (*Session, *recordingStore) {
	t.Helper()
	store := &recordingStore{}
	if opts.Loader == nil {
		opts.Loader = staticLoader(records())
	}
	opts.Snapshot = store
	s := New(opts)
	require.NoError(t, s.Load(context.Background()))
	return s, store
}

func keyOf(t *testing.T, s *Session, code string) string {
	t.Helper()
	for _, p := range s.Products() {
		if p.Code == code {
			return p.Key
		}
	}
	t.Fatalf("no product with code %s", code)
	return ""
}

func TestLoad(t *testing.T) {
	s, _ := newLoaded(t, Options{})

	state, err := s.State()
	assert.Equal(t, StateLoaded, state)
	assert.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.NotEmpty(t, s.ID())

	c := s.Criteria()
	assert.Equal(t, query.PriceRange{Min: 2.5, Max: 300}, c.Price)
	assert.Equal(t, query.InventoryRange{Min: 0, Max: 2}, c.Inventory)
	assert.Equal(t, query.DefaultPageSize, c.PageSize)
}

func TestLoadFailureThenRetry(t *testing.T) {
	fail := true
	loader := func(context.Context) ([]catalog.Record, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return records(), nil
	}
	s := New(Options{Loader: loader})

	err := s.Load(context.Background())
	require.Error(t, err)
	state, loadErr := s.State()
	assert.Equal(t, StateFailed, state)
	assert.ErrorContains(t, loadErr, "connection refused")
	assert.Zero(t, s.Len())

	_, err = s.SetPrice(context.Background(), "x", "1")
	assert.ErrorIs(t, err, ErrNotLoaded)

	fail = false
	require.NoError(t, s.Load(context.Background()))
	state, loadErr = s.State()
	assert.Equal(t, StateLoaded, state)
	assert.NoError(t, loadErr)
}

func TestReloadClearsSnapshot(t *testing.T) {
	fail := false
	loader := func(context.Context) ([]catalog.Record, error) {
		if fail {
			return nil, errors.New("connection reset")
		}
		return records(), nil
	}
	s, store := newLoaded(t, Options{Loader: loader})
	assert.Zero(t, store.clears)

	_, err := s.SetPrice(context.Background(), keyOf(t, s, "M1"), "80")
	require.NoError(t, err)
	require.Len(t, store.last(), 1)

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 1, store.clears)

	_, err = s.SetPrice(context.Background(), keyOf(t, s, "M1"), "80")
	require.NoError(t, err)
	fail = true
	require.Error(t, s.Load(context.Background()))
	assert.Equal(t, 2, store.clears)

	// Nothing left to discard after the failure.
	require.Error(t, s.Load(context.Background()))
	assert.Equal(t, 2, store.clears)
}

func TestLoadEmptyCatalogKeepsDefaultRanges(t *testing.T) {
	s, _ := newLoaded(t, Options{Loader: staticLoader([]catalog.Record{})})
	state, _ := s.State()
	assert.Equal(t, StateLoaded, state)
	c := s.Criteria()
	assert.Equal(t, query.PriceRange{Min: 0, Max: 1000}, c.Price)
	assert.Equal(t, query.InventoryRange{Min: 0, Max: 100}, c.Inventory)
}

func TestSetPriceMirrorsSnapshot(t *testing.T) {
	s, store := newLoaded(t, Options{})
	ctx := context.Background()
	key := keyOf(t, s, "M1")

	p, err := s.SetPrice(ctx, key, "80")
	require.NoError(t, err)
	assert.True(t, p.Modified)
	require.Len(t, store.last(), 1)
	assert.Equal(t, key, store.last()[0].Key)

	p, err = s.SetPrice(ctx, key, "100")
	require.NoError(t, err)
	assert.False(t, p.Modified)
	assert.Empty(t, store.last())
}

func TestSetUnknownKey(t *testing.T) {
	s, store := newLoaded(t, Options{})
	_, err := s.SetInventory(context.Background(), "nope", "3")
	assert.ErrorIs(t, err, catalog.ErrUnknownProduct)
	assert.Empty(t, store.saves)
}

func TestSnapshotFailureDoesNotFailEdit(t *testing.T) {
	s, store := newLoaded(t, Options{})
	store.failing = true
	p, err := s.SetInventory(context.Background(), keyOf(t, s, "C1"), "7")
	require.NoError(t, err)
	assert.Equal(t, 7, p.CurrentInventory)
}

func TestApplyMassEditClearsForm(t *testing.T) {
	s, _ := newLoaded(t, Options{})
	ctx := context.Background()

	_, err := s.ApplyMassEdit(ctx)
	assert.ErrorIs(t, err, ErrMassEditNotReady)

	m1, c1 := keyOf(t, s, "M1"), keyOf(t, s, "C1")
	_, err = s.ToggleSelected(m1)
	require.NoError(t, err)
	_, err = s.ToggleSelected(c1)
	require.NoError(t, err)

	s.SetPendingMassEdit(catalog.MassEdit{Field: catalog.FieldPrice, Value: 9, Target: catalog.TargetSelection})
	require.True(t, s.MassEditReady())
	n, err := s.ApplyMassEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Empty(t, s.Selected())
	assert.Equal(t, catalog.MassEdit{Target: catalog.TargetSelection}, s.PendingMassEdit())
	for _, p := range s.Products() {
		if p.Key == m1 || p.Key == c1 {
			assert.Equal(t, 9.0, p.CurrentPrice)
		} else {
			assert.False(t, p.Modified)
		}
	}
}

func TestMassEditByBrand(t *testing.T) {
	s, store := newLoaded(t, Options{})
	n, err := s.MassEdit(context.Background(), catalog.MassEdit{Field: catalog.FieldInventory, Value: 4.9, Target: catalog.TargetBrand, Brand: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.last(), 2)

	p, err := s.Product(keyOf(t, s, "C1"))
	require.NoError(t, err)
	assert.False(t, p.Modified, "product without brand is untouched")
}

func TestRevertAllClearsSnapshot(t *testing.T) {
	s, store := newLoaded(t, Options{})
	ctx := context.Background()
	_, err := s.SetPrice(ctx, keyOf(t, s, "M1"), "1")
	require.NoError(t, err)

	n, err := s.RevertAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.clears)
	assert.Zero(t, s.Summary().ModifiedCount)
}

func TestSelectionHelpers(t *testing.T) {
	s, _ := newLoaded(t, Options{PageSize: 2})

	keys := s.SelectPage()
	assert.Len(t, keys, 2)
	all, some := s.PageSelection()
	assert.True(t, all)
	assert.False(t, some)

	s.UpdateCriteria(func(c *query.Criteria) { c.Page = 1 })
	all, some = s.PageSelection()
	assert.False(t, all)
	assert.True(t, some)

	s.ClearSelection()
	assert.Empty(t, s.Selected())

	assert.Equal(t, 1, s.SelectKeys([]string{keyOf(t, s, "M1"), "missing"}))
	_, err := s.ToggleSelected("missing")
	assert.ErrorIs(t, err, catalog.ErrUnknownProduct)
}

func TestViewAndSummaryFollowCriteria(t *testing.T) {
	s, _ := newLoaded(t, Options{})
	s.UpdateCriteria(func(c *query.Criteria) {
		c.Search = "mar"
	})
	v := s.View()
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "M1", v.Rows[0].Code)

	sum := s.Summary()
	assert.Equal(t, 3, sum.TotalCount)
	assert.Equal(t, 1, sum.FilteredCount)
	assert.Equal(t, 100.0, sum.AveragePrice)

	c := s.UpdateCriteria(func(c *query.Criteria) { c.Page = -3; c.PageSize = 0 })
	assert.Zero(t, c.Page)
	assert.Equal(t, query.DefaultPageSize, c.PageSize)
}

func TestFinalizeAndCommit(t *testing.T) {
	dir := t.TempDir()
	s, store := newLoaded(t, Options{LogPath: dir, EnableTxtOutput: true, EnableJSONOutput: true})
	ctx := context.Background()
	_, err := s.SetPrice(ctx, keyOf(t, s, "M1"), "80")
	require.NoError(t, err)

	rep, err := s.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Totals.Modified)
	assert.Equal(t, s.ID(), rep.SessionID)

	saves := len(store.saves)
	base, err := s.Commit(ctx, rep)
	require.NoError(t, err)
	assert.Equal(t, saves+1, len(store.saves))
	assert.Equal(t, dir, filepath.Dir(base))
	_, err = os.Stat(base + ".json")
	assert.NoError(t, err)
}

func TestCommitWithoutOutputs(t *testing.T) {
	s, _ := newLoaded(t, Options{LogPath: t.TempDir()})
	rep, err := s.Finalize(context.Background())
	require.NoError(t, err)
	base, err := s.Commit(context.Background(), rep)
	require.NoError(t, err)
	assert.Empty(t, base)
}

func TestCloseClearsSnapshot(t *testing.T) {
	s, store := newLoaded(t, Options{})
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, store.clears)
	assert.True(t, store.closed)
}

func TestConcurrentEdits(t *testing.T) {
	s, _ := newLoaded(t, Options{})
	key := keyOf(t, s, "M1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.SetPrice(ctx, key, "50")
		}()
		go func() {
			defer wg.Done()
			_ = s.Summary()
		}()
	}
	wg.Wait()

	p, err := s.Product(key)
	require.NoError(t, err)
	assert.Equal(t, 50.0, p.CurrentPrice)
	assert.True(t, p.Modified)
}
