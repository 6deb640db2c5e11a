package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/query"
	"github.com/benjaminwestern/catalog-editor/internal/report"
	"github.com/benjaminwestern/catalog-editor/internal/session"
)

type handler struct {
	session *session.Session
	logger  *zap.Logger
}

var validate = validator.New()

type valueRequest struct {
	Value any `json:"value"`
}

type keyRequest struct {
	Key string `json:"key" validate:"required"`
}

type massEditRequest struct {
	Field    string  `json:"field" validate:"required"`
	Value    float64 `json:"value"`
	Target   string  `json:"target"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
}

type selectionState struct {
	Count   int  `json:"count"`
	PageAll bool `json:"pageAll"`
	Some    bool `json:"some"`
}

type pageResponse struct {
	Products      []catalog.Product `json:"products"`
	Page          int               `json:"page"`
	PageSize      int               `json:"pageSize"`
	TotalPages    int               `json:"totalPages"`
	FilteredCount int               `json:"filteredCount"`
	Criteria      query.Criteria    `json:"criteria"`
	Selection     selectionState    `json:"selection"`
}

type finalizeResponse struct {
	Report     *report.ChangeReport `json:"report"`
	ReportPath string               `json:"reportPath,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	state, _ := h.session.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"catalog":  state.String(),
		"products": h.session.Len(),
	})
}

// requireLoaded answers 503 until the catalog has loaded.
func (h *handler) requireLoaded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, err := h.session.State()
		switch {
		case state == session.StateLoaded:
			next.ServeHTTP(w, r)
		case state == session.StateFailed && err != nil:
			writeError(w, http.StatusServiceUnavailable, "catalog failed to load: "+err.Error())
		default:
			writeError(w, http.StatusServiceUnavailable, "catalog is "+state.String())
		}
	})
}

// reload fetches the catalog again. It is the way out of a failed load.
func (h *handler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Load(r.Context()); err != nil {
		msg := err.Error()
		if state, loadErr := h.session.State(); state == session.StateFailed && loadErr != nil {
			msg = loadErr.Error()
		}
		writeError(w, http.StatusServiceUnavailable, "catalog failed to load: "+msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"products": h.session.Len()})
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	if !h.applyQuery(w, r.URL.Query()) {
		return
	}
	writeJSON(w, http.StatusOK, h.page())
}

func (h *handler) page() pageResponse {
	c := h.session.Criteria()
	v := h.session.ViewWith(c)
	all, some := h.session.PageSelection()
	return pageResponse{
		Products:      v.Rows,
		Page:          v.Page,
		PageSize:      v.PageSize,
		TotalPages:    v.TotalPages,
		FilteredCount: len(v.Filtered),
		Criteria:      c,
		Selection: selectionState{
			Count:   len(h.session.Selected()),
			PageAll: all,
			Some:    some,
		},
	}
}

// applyQuery folds query parameters into the session criteria. It writes a
// 400 and returns false on malformed input.
func (h *handler) applyQuery(w http.ResponseWriter, q url.Values) bool {
	var parseErr error
	h.session.UpdateCriteria(func(c *query.Criteria) {
		parseErr = criteriaFromQuery(q, c)
	})
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, parseErr.Error())
		return false
	}
	return true
}

func criteriaFromQuery(q url.Values, c *query.Criteria) error {
	next := *c
	if q.Has("q") {
		next.Search = q.Get("q")
	}
	if v := q.Get("edited"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid edited: %q", v)
		}
		next.EditedOnly = b
	}
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"priceMin", &next.Price.Min}, {"priceMax", &next.Price.Max}} {
		if v := q.Get(p.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %q", p.name, v)
			}
			*p.dst = f
		}
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid size: %q", v)
		}
		if n != next.PageSize {
			next.SetPageSize(n)
		}
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"invMin", &next.Inventory.Min}, {"invMax", &next.Inventory.Max}, {"page", &next.Page}} {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid %s: %q", p.name, v)
			}
			*p.dst = n
		}
	}
	if q.Has("sort") {
		field, err := query.ParseSortField(q.Get("sort"))
		if err != nil {
			return err
		}
		next.SortField = field
	}
	if q.Has("dir") {
		dir, err := query.ParseDirection(q.Get("dir"))
		if err != nil {
			return err
		}
		next.Direction = dir
	}
	*c = next
	return nil
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.session.Product(chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) setPrice(w http.ResponseWriter, r *http.Request) {
	h.setField(w, r, h.session.SetPrice)
}

func (h *handler) setInventory(w http.ResponseWriter, r *http.Request) {
	h.setField(w, r, h.session.SetInventory)
}

func (h *handler) setField(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, key, raw string) (catalog.Product, error)) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	raw, ok := rawValue(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "value must be a string or number")
		return
	}
	p, err := set(r.Context(), chi.URLParam(r, "key"), raw)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func rawValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func (h *handler) toggleSelection(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decode(w, r, &req) {
		return
	}
	selected, err := h.session.ToggleSelected(req.Key)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": req.Key, "selected": selected})
}

func (h *handler) selectPage(w http.ResponseWriter, r *http.Request) {
	if !h.applyQuery(w, r.URL.Query()) {
		return
	}
	keys := h.session.SelectPage()
	writeJSON(w, http.StatusOK, map[string]any{"selected": keys, "count": len(h.session.Selected())})
}

func (h *handler) clearSelection(w http.ResponseWriter, _ *http.Request) {
	h.session.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) massEdit(w http.ResponseWriter, r *http.Request) {
	var req massEditRequest
	if !decode(w, r, &req) {
		return
	}
	field, err := catalog.ParseField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := catalog.ParseTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.session.MassEdit(r.Context(), catalog.MassEdit{
		Field:    field,
		Value:    req.Value,
		Target:   target,
		Category: req.Category,
		Brand:    req.Brand,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *handler) revert(w http.ResponseWriter, r *http.Request) {
	n, err := h.session.RevertAll(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reverted": n})
}

func (h *handler) summary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Summary())
}

func (h *handler) facets(w http.ResponseWriter, _ *http.Request) {
	categories, brands := h.session.Facets()
	writeJSON(w, http.StatusOK, map[string][]string{
		"categories": nonNil(categories),
		"brands":     nonNil(brands),
	})
}

func (h *handler) finalize(w http.ResponseWriter, r *http.Request) {
	rep, err := h.session.Finalize(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	path, err := h.session.Commit(r.Context(), rep)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeResponse{Report: rep, ReportPath: path})
}

// fail maps session errors to HTTP statuses.
func (h *handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownProduct):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, session.ErrMassEditNotReady):
		writeError(w, http.StatusConflict, "mass edit needs a field and a non-empty target")
	case errors.Is(err, session.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON body into dst and validates it, writing a 400 on
// failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
