// Package session owns the one in-memory catalog the user works on. Every
// front end (terminal UI, headless run, HTTP API) drives the same Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/logging"
	"github.com/benjaminwestern/catalog-editor/internal/query"
	"github.com/benjaminwestern/catalog-editor/internal/report"
	"github.com/benjaminwestern/catalog-editor/internal/selection"
	"github.com/benjaminwestern/catalog-editor/internal/snapshot"
)

var (
	// ErrNotLoaded is returned by operations that need a loaded catalog.
	ErrNotLoaded = errors.New("session: catalog not loaded")
	// ErrMassEditNotReady is returned when the pending mass edit lacks a
	// field, a target value or, for selection targets, any selected product.
	ErrMassEditNotReady = errors.New("session: mass edit not ready")
)

// State is the load state of the session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Loader fetches the raw catalog records.
type Loader func(ctx context.Context) ([]catalog.Record, error)

// Options configure a Session.
type Options struct {
	ID       string
	Loader   Loader
	Snapshot snapshot.Store
	Logger   *zap.Logger
	PageSize int
	Locale   string
	Keys     *catalog.KeyGenerator

	// Report outputs used by Commit.
	LogPath          string
	EnableTxtOutput  bool
	EnableJSONOutput bool
}

// Session serialises all access to the catalog with a mutex. The fetch in
// Load runs outside the lock so readers keep working while it is in flight.
type Session struct {
	mu sync.Mutex

	id         string
	loader     Loader
	snap       snapshot.Store
	logger     *zap.Logger
	names      *query.NameOrder
	normalizer *catalog.Normalizer

	logPath    string
	enableTxt  bool
	enableJSON bool

	store    *catalog.Store
	criteria query.Criteria
	selected *selection.Set
	pending  catalog.MassEdit

	state    State
	loadErr  error
	loadedAt time.Time
	source   string
}

// New builds a session. It does not load anything.
func New(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	snap := opts.Snapshot
	if snap == nil {
		snap = snapshot.Discard{}
	}
	locale := opts.Locale
	if locale == "" {
		locale = "es"
	}
	return &Session{
		id:         id,
		loader:     opts.Loader,
		snap:       snap,
		logger:     logging.OrNop(opts.Logger).With(zap.String("session", id)),
		names:      query.NewNameOrder(locale),
		normalizer: catalog.NewNormalizer(opts.Keys),
		logPath:    opts.LogPath,
		enableTxt:  opts.EnableTxtOutput,
		enableJSON: opts.EnableJSONOutput,
		store:      catalog.NewStore(nil),
		criteria:   query.NewCriteria(opts.PageSize),
		selected:   selection.New(),
	}
}

// ID is the session's unique id, also written into snapshots.
func (s *Session) ID() string { return s.id }

// Load fetches and normalises the catalog, replacing whatever was loaded
// before. On failure the product list is emptied and the error is kept for
// State until the next attempt. Reloading over a loaded catalog clears the
// snapshot slot.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loader == nil {
		s.mu.Unlock()
		return errors.New("session: no catalog loader configured")
	}
	s.state = StateLoading
	s.loadErr = nil
	loader := s.loader
	s.mu.Unlock()

	start := time.Now()
	records, err := loader(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.Len() > 0 {
		// The previous catalog's edits are discarded either way.
		if err := s.snap.Clear(ctx); err != nil {
			s.logger.Warn("snapshot clear failed", zap.Error(err))
		}
	}
	if err != nil {
		s.state = StateFailed
		s.loadErr = err
		s.store.Replace(nil)
		s.selected.Clear()
		s.logger.Error("catalog load failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("session: load: %w", err)
	}

	products := s.normalizer.Normalize(records)
	s.store.Replace(products)
	s.criteria.ResetRanges(products)
	s.criteria.Page = 0
	s.selected.Clear()
	s.pending = catalog.MassEdit{}
	s.state = StateLoaded
	s.loadedAt = time.Now()
	s.logger.Info("catalog loaded",
		zap.Int("products", len(products)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// LoadProducts installs already normalised products, as a successful Load
// would. It is used when the caller has the products in hand.
func (s *Session) LoadProducts(products []catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Replace(products)
	s.criteria.ResetRanges(products)
	s.criteria.Page = 0
	s.selected.Clear()
	s.pending = catalog.MassEdit{}
	s.state = StateLoaded
	s.loadErr = nil
	s.loadedAt = time.Now()
}

// State returns the load state and, when it is StateFailed, the error.
func (s *Session) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.loadErr
}

// SetOutputs changes where and in which formats Commit saves reports.
func (s *Session) SetOutputs(logPath string, enableTxt, enableJSON bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logPath = logPath
	s.enableTxt = enableTxt
	s.enableJSON = enableJSON
}

// SetSource records the catalog location shown in reports.
func (s *Session) SetSource(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = location
}

func (s *Session) ready() error {
	if s.state != StateLoaded {
		return ErrNotLoaded
	}
	return nil
}

// Len is the number of products loaded.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Products returns a copy of every product in load order.
func (s *Session) Products() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Products()
}

// Product returns one product by key.
func (s *Session) Product(key string) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.store.Product(key)
	if !ok {
		return catalog.Product{}, fmt.Errorf("session: product %q: %w", key, catalog.ErrUnknownProduct)
	}
	return p, nil
}

// Facets returns the distinct categories and brands of the catalog.
func (s *Session) Facets() (categories, brands []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Categories(), s.store.Brands()
}

// Criteria returns the current filter, sort and page settings.
func (s *Session) Criteria() query.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// UpdateCriteria applies fn to the criteria. A page index past the last page
// is kept and yields an empty page.
func (s *Session) UpdateCriteria(fn func(c *query.Criteria)) query.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.criteria)
	if s.criteria.PageSize <= 0 {
		s.criteria.PageSize = query.DefaultPageSize
	}
	if s.criteria.Page < 0 {
		s.criteria.Page = 0
	}
	return s.criteria
}

// ResetRanges widens both ranges to the bounds of the loaded catalog.
func (s *Session) ResetRanges() query.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria.ResetRanges(s.store.Products())
	return s.criteria
}

// Bounds returns the price and inventory extremes of the loaded catalog.
func (s *Session) Bounds() (query.PriceRange, query.InventoryRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.Bounds(s.store.Products())
}

// View applies the current criteria.
func (s *Session) View() query.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(s.criteria)
}

// ViewWith applies c without storing it.
func (s *Session) ViewWith(c query.Criteria) query.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(c)
}

func (s *Session) view(c query.Criteria) query.View {
	return query.Apply(s.store.Products(), c, s.names)
}

// Summary aggregates the whole catalog and the filtered view of the current
// criteria.
func (s *Session) Summary() query.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view(s.criteria)
	return query.Summarize(s.store.Products(), v.Filtered)
}

// SetPrice edits one product's current price.
func (s *Session) SetPrice(ctx context.Context, key, raw string) (catalog.Product, error) {
	return s.edit(ctx, key, "price", func() bool { return s.store.SetPrice(key, raw) })
}

// SetInventory edits one product's current inventory.
func (s *Session) SetInventory(ctx context.Context, key, raw string) (catalog.Product, error) {
	return s.edit(ctx, key, "inventory", func() bool { return s.store.SetInventory(key, raw) })
}

func (s *Session) edit(ctx context.Context, key, field string, apply func() bool) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return catalog.Product{}, err
	}
	if !apply() {
		return catalog.Product{}, fmt.Errorf("session: product %q: %w", key, catalog.ErrUnknownProduct)
	}
	p, _ := s.store.Product(key)
	s.logger.Debug("product edited",
		zap.String("key", key),
		zap.String("field", field),
		zap.Float64("price", p.CurrentPrice),
		zap.Int("inventory", p.CurrentInventory),
		zap.Bool("modified", p.Modified))
	s.mirror(ctx)
	return p, nil
}

// ToggleSelected adds key to the selection or removes it.
func (s *Session) ToggleSelected(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store.Product(key); !ok {
		return false, fmt.Errorf("session: product %q: %w", key, catalog.ErrUnknownProduct)
	}
	s.selected.Toggle(key)
	return s.selected.Has(key), nil
}

// SelectKeys adds every known key to the selection and returns how many of
// them exist in the catalog.
func (s *Session) SelectKeys(keys []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var known []string
	for _, k := range keys {
		if _, ok := s.store.Product(k); ok {
			known = append(known, k)
		}
	}
	s.selected.SelectAll(known)
	return len(known)
}

// SelectPage selects every product on the current page.
func (s *Session) SelectPage() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.view(s.criteria).Keys()
	s.selected.SelectAll(keys)
	return keys
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.Clear()
}

// IsSelected reports whether key is selected.
func (s *Session) IsSelected(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.Has(key)
}

// Selected returns the selected keys, sorted.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.Keys()
}

// PageSelection reports whether all, or only some, of the current page is
// selected.
func (s *Session) PageSelection() (all, some bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.State(s.view(s.criteria).Keys())
}

// PendingMassEdit returns the mass edit form as the user left it.
func (s *Session) PendingMassEdit() catalog.MassEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SetPendingMassEdit replaces the mass edit form.
func (s *Session) SetPendingMassEdit(edit catalog.MassEdit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = edit
}

// MassEditReady reports whether the pending form may be applied.
func (s *Session) MassEditReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Ready(s.selected.Len())
}

// ApplyMassEdit applies the pending form. Afterwards the form's value,
// field, category and brand are cleared, as is the selection; the target
// is kept. It returns how many products were written.
func (s *Session) ApplyMassEdit(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return 0, err
	}
	edit := s.pending
	if !edit.Ready(s.selected.Len()) {
		return 0, ErrMassEditNotReady
	}
	n := s.store.ApplyMassEdit(edit, s.selected.Has)
	s.logger.Info("mass edit applied",
		zap.String("field", string(edit.Field)),
		zap.Float64("value", edit.Value),
		zap.String("target", string(edit.Target)),
		zap.Int("products", n))

	s.pending = catalog.MassEdit{Target: edit.Target}
	s.selected.Clear()
	s.mirror(ctx)
	return n, nil
}

// MassEdit sets the pending form to edit and applies it.
func (s *Session) MassEdit(ctx context.Context, edit catalog.MassEdit) (int, error) {
	s.SetPendingMassEdit(edit)
	return s.ApplyMassEdit(ctx)
}

// RevertAll returns every product to its baseline and clears the snapshot.
func (s *Session) RevertAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return 0, err
	}
	n := s.store.RevertAll()
	if err := s.snap.Clear(ctx); err != nil {
		s.logger.Warn("snapshot clear failed", zap.Error(err))
	}
	s.logger.Info("all edits reverted", zap.Int("products", n))
	return n, nil
}

// mirror writes the modified products to the snapshot slot. A failure only
// gets logged; the edit itself has already happened.
func (s *Session) mirror(ctx context.Context) {
	if err := s.snap.Save(ctx, s.store.Modified()); err != nil {
		s.logger.Warn("snapshot save failed", zap.Error(err))
	}
}

// Finalize builds the change report for the current state without writing
// anything.
func (s *Session) Finalize(_ context.Context) (*report.ChangeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return report.New(s.id, s.source, s.store.Products()), nil
}

// Commit writes the snapshot and saves rep to the log directory. It returns
// the base path of the report files, or "" when no output is enabled.
func (s *Session) Commit(ctx context.Context, rep *report.ChangeReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return "", err
	}
	if rep == nil {
		return "", errors.New("session: commit: nil report")
	}
	if err := s.snap.Save(ctx, s.store.Modified()); err != nil {
		return "", fmt.Errorf("session: commit snapshot: %w", err)
	}
	if !s.enableTxt && !s.enableJSON {
		s.logger.Info("changes committed", zap.Int("modified", rep.Totals.Modified))
		return "", nil
	}
	base, err := report.SaveAndLog(rep, s.logPath, s.enableTxt, s.enableJSON)
	if err != nil {
		return "", fmt.Errorf("session: commit report: %w", err)
	}
	s.logger.Info("changes committed",
		zap.Int("modified", rep.Totals.Modified),
		zap.String("report", base))
	return base, nil
}

// Close clears the snapshot slot and releases it.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.snap.Clear(ctx)
	if cerr := s.snap.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	return nil
}
