package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
)

// GCSStore keeps the slot as an object in a Cloud Storage bucket.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	object    string
	sessionID string
}

// NewGCSStore parses gs://bucket/prefix and creates a storage client.
func NewGCSStore(ctx context.Context, target, sessionID string) (*GCSStore, error) {
	bucket, object, err := gcsObject(target)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create GCS client: %w", err)
	}
	return &GCSStore{
		client:    client,
		bucket:    bucket,
		object:    object,
		sessionID: sessionID,
	}, nil
}

// gcsObject resolves gs://bucket/prefix to the bucket and the slot's object
// name under the prefix.
func gcsObject(target string) (bucket, object string, err error) {
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(target, "gs://"), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("snapshot: invalid GCS target %q: bucket name cannot be empty", target)
	}
	return bucket, path.Join(prefix, fileName), nil
}

// Save uploads the payload, replacing the previous object.
func (g *GCSStore) Save(ctx context.Context, products []catalog.Product) error {
	b, err := encode(g.sessionID, products, time.Now())
	if err != nil {
		return err
	}
	w := g.client.Bucket(g.bucket).Object(g.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(b); err != nil {
		w.Close()
		return fmt.Errorf("snapshot: write gs://%s/%s: %w", g.bucket, g.object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("snapshot: finalize gs://%s/%s: %w", g.bucket, g.object, err)
	}
	return nil
}

// Clear deletes the object.
func (g *GCSStore) Clear(ctx context.Context) error {
	err := g.client.Bucket(g.bucket).Object(g.object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("snapshot: delete gs://%s/%s: %w", g.bucket, g.object, err)
	}
	return nil
}

// Close closes the storage client.
func (g *GCSStore) Close() error { return g.client.Close() }
