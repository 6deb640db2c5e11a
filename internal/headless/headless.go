// Package headless runs the editor without a terminal UI: load, apply an
// optional edit script, finalize and print the change report.
package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/query"
	"github.com/benjaminwestern/catalog-editor/internal/report"
	"github.com/benjaminwestern/catalog-editor/internal/session"
)

// Config holds the settings required for a headless run.
type Config struct {
	Source           string
	LogPath          string
	OutputFormat     string
	ScriptPath       string
	EnableTxtOutput  bool
	EnableJSONOutput bool

	// Criteria applied before the script runs; zero values leave the
	// session's defaults alone.
	Search     string
	EditedOnly bool
	SortField  query.SortField
	Direction  query.Direction
}

// Op is one step of an edit script.
type Op struct {
	Op       string      `json:"op" validate:"required,oneof=price inventory mass select revert"`
	Key      string      `json:"key" validate:"required_if=Op price,required_if=Op inventory"`
	Keys     []string    `json:"keys" validate:"required_if=Op select"`
	Value    ScriptValue `json:"value"`
	Field    string      `json:"field" validate:"required_if=Op mass"`
	Target   string      `json:"target" validate:"omitempty,oneof=selection category brand"`
	Category string      `json:"category"`
	Brand    string      `json:"brand"`
}

// ScriptValue accepts either a JSON string or a JSON number and keeps its
// text, so "80" and 80 mean the same thing.
type ScriptValue string

func (v *ScriptValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = ScriptValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("headless: value must be a string or number: %w", err)
	}
	*v = ScriptValue(n.String())
	return nil
}

var validate = validator.New()

// LoadScript reads and validates an edit script: a JSON array of Ops.
func LoadScript(r io.Reader) ([]Op, error) {
	var ops []Op
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ops); err != nil {
		return nil, fmt.Errorf("headless: decode script: %w", err)
	}
	for i, op := range ops {
		if err := validate.Struct(op); err != nil {
			return nil, fmt.Errorf("headless: script step %d: %w", i+1, err)
		}
	}
	return ops, nil
}

// Apply runs ops against s in order. Unknown product keys fail the step.
func Apply(ctx context.Context, s *session.Session, ops []Op) error {
	for i, op := range ops {
		if err := applyOp(ctx, s, op); err != nil {
			return fmt.Errorf("headless: script step %d (%s): %w", i+1, op.Op, err)
		}
	}
	return nil
}

func applyOp(ctx context.Context, s *session.Session, op Op) error {
	switch op.Op {
	case "price":
		_, err := s.SetPrice(ctx, op.Key, string(op.Value))
		return err
	case "inventory":
		_, err := s.SetInventory(ctx, op.Key, string(op.Value))
		return err
	case "select":
		if n := s.SelectKeys(op.Keys); n != len(op.Keys) {
			return fmt.Errorf("%d of %d keys unknown: %w", len(op.Keys)-n, len(op.Keys), catalog.ErrUnknownProduct)
		}
		return nil
	case "mass":
		field, err := catalog.ParseField(op.Field)
		if err != nil {
			return err
		}
		target, err := catalog.ParseTarget(op.Target)
		if err != nil {
			return err
		}
		_, err = s.MassEdit(ctx, catalog.MassEdit{
			Field:    field,
			Value:    catalog.ParsePrice(string(op.Value)),
			Target:   target,
			Category: op.Category,
			Brand:    op.Brand,
		})
		return err
	case "revert":
		_, err := s.RevertAll(ctx)
		return err
	}
	return fmt.Errorf("unknown op %q", op.Op)
}

// Run executes the full edit in headless mode, writing progress and the
// report to out. A load failure is returned so the caller can exit non-zero.
func Run(ctx context.Context, s *session.Session, cfg *Config, out io.Writer) error {
	fmt.Fprintln(out, "Running in headless mode...")
	startTime := time.Now()

	var ops []Op
	if cfg.ScriptPath != "" {
		f, err := os.Open(cfg.ScriptPath)
		if err != nil {
			return fmt.Errorf("headless: open script: %w", err)
		}
		ops, err = LoadScript(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	if err := s.Load(ctx); err != nil {
		fmt.Fprintf(out, "Error loading catalog from %s: %v\n", cfg.Source, err)
		return err
	}
	fmt.Fprintf(out, "Loaded %d products from %s.\n", s.Len(), cfg.Source)

	s.UpdateCriteria(func(c *query.Criteria) {
		c.Search = cfg.Search
		c.EditedOnly = cfg.EditedOnly
		if cfg.SortField != query.SortNone {
			c.SortField = cfg.SortField
			c.Direction = cfg.Direction
		}
	})

	if err := Apply(ctx, s, ops); err != nil {
		return err
	}
	if len(ops) > 0 {
		fmt.Fprintf(out, "Applied %d script step(s).\n", len(ops))
	}

	rep, err := s.Finalize(ctx)
	if err != nil {
		return err
	}
	filenameBase, err := s.Commit(ctx, rep)
	if err != nil {
		return err
	}

	elapsed := time.Since(startTime).Round(time.Millisecond)
	if parts := report.Extensions(cfg.EnableTxtOutput, cfg.EnableJSONOutput); filenameBase != "" && len(parts) > 0 {
		fmt.Fprintf(out, "Edit complete in %s. Reports saved with base name '%s' and extension(s): %s\n", elapsed, filenameBase, strings.Join(parts, ", "))
	} else {
		fmt.Fprintf(out, "Edit complete in %s. No report files were generated as per configuration.\n", elapsed)
	}

	sum := s.Summary()
	fmt.Fprintf(out, "Filtered view: %d of %d products, total inventory %d, average price %.2f\n",
		sum.FilteredCount, sum.TotalCount, sum.TotalInventory, sum.AveragePrice)

	if cfg.OutputFormat == "json" {
		jsonReport, err := rep.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, jsonReport)
		return nil
	}
	fmt.Fprintln(out, "\n"+rep.String(true))
	return nil
}

// ExitCode maps a Run error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
