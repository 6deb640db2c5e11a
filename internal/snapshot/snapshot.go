// Package snapshot mirrors the currently modified products to a durable
// key-value slot. The slot is a best-effort safety net: it is written after
// every edit and cleared on revert and exit, and nothing reads it back.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
)

// Key is the fixed name of the slot in every backend.
const Key = "catalog-editor:modified-products"

// fileName is Key made safe for file systems and object names.
const fileName = "catalog-editor_modified-products.json"

// Store is a snapshot slot.
type Store interface {
	// Save replaces the slot content with products.
	Save(ctx context.Context, products []catalog.Product) error
	// Clear empties the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context) error
	Close() error
}

// Payload is what gets written to the slot.
type Payload struct {
	SessionID string            `json:"sessionId"`
	SavedAt   time.Time         `json:"savedAt"`
	Products  []catalog.Product `json:"products"`
}

// Open returns the Store for target:
//
//	none                 discard everything
//	redis://host:port/db Redis key
//	gs://bucket/prefix   Cloud Storage object
//	file://dir or dir    local file
func Open(ctx context.Context, target, sessionID string) (Store, error) {
	target = strings.TrimSpace(target)
	switch {
	case target == "" || target == "none":
		return Discard{}, nil
	case strings.HasPrefix(target, "redis://"), strings.HasPrefix(target, "rediss://"):
		return NewRedisStore(ctx, target, sessionID)
	case strings.HasPrefix(target, "gs://"):
		return NewGCSStore(ctx, target, sessionID)
	default:
		return NewFileStore(strings.TrimPrefix(target, "file://"), sessionID)
	}
}

func encode(sessionID string, products []catalog.Product, now time.Time) ([]byte, error) {
	if products == nil {
		products = []catalog.Product{}
	}
	b, err := json.Marshal(Payload{SessionID: sessionID, SavedAt: now.UTC(), Products: products})
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return b, nil
}

// Discard is a Store that keeps nothing.
type Discard struct{}

func (Discard) Save(context.Context, []catalog.Product) error { return nil }
func (Discard) Clear(context.Context) error                   { return nil }
func (Discard) Close() error                                  { return nil }
