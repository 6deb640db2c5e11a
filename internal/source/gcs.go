package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

var allowedMimeTypes = map[string]bool{
	"application/json":     true,
	"application/json-seq": true,
	"application/x-json":   true,
	"text/json":            true,
}

// GCSCatalog reads the catalog from a Cloud Storage object. When the
// location names a prefix (it ends in "/" or is just a bucket) the newest
// JSON object under it is used.
type GCSCatalog struct {
	client *storage.Client
	bucket string
	object string
}

func openGCS(ctx context.Context, location string) (*GCSCatalog, error) {
	bucket, object, err := parseGCSLocation(location)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: create GCS client: %w. Ensure you are authenticated", err)
	}
	return &GCSCatalog{client: client, bucket: bucket, object: object}, nil
}

// parseGCSLocation splits gs://bucket/object. The object may be empty or end
// in "/" to name a prefix.
func parseGCSLocation(location string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(location, "gs://")
	bucket, object, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("source: invalid GCS location %q: bucket name cannot be empty", location)
	}
	return bucket, object, nil
}

// Location returns the gs:// URI as configured.
func (g *GCSCatalog) Location() string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, g.object)
}

// Open returns a streaming reader for the catalog object.
func (g *GCSCatalog) Open(ctx context.Context) (io.ReadCloser, error) {
	name := g.object
	if name == "" || strings.HasSuffix(name, "/") {
		latest, err := g.latest(ctx, name)
		if err != nil {
			return nil, &FetchError{Location: g.Location(), Err: err}
		}
		name = latest
	}
	r, err := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, &FetchError{Location: fmt.Sprintf("gs://%s/%s", g.bucket, name), Err: err}
	}
	return r, nil
}

// Close closes the storage client.
func (g *GCSCatalog) Close() error { return g.client.Close() }

func (g *GCSCatalog) latest(ctx context.Context, prefix string) (string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var objects []*storage.ObjectAttrs
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("list objects in bucket %q: %w", g.bucket, err)
		}
		objects = append(objects, attrs)
	}
	newest := newestCatalog(objects)
	if newest == nil {
		return "", fmt.Errorf("no JSON catalog found in gs://%s with prefix %q", g.bucket, prefix)
	}
	return newest.Name, nil
}

// newestCatalog picks the most recently updated JSON object, skipping
// directory placeholders. Ties go to the greater name. It returns nil when
// nothing qualifies.
func newestCatalog(objects []*storage.ObjectAttrs) *storage.ObjectAttrs {
	var newest *storage.ObjectAttrs
	for _, attrs := range objects {
		if attrs == nil || attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		if !allowedMimeTypes[attrs.ContentType] && !strings.HasSuffix(strings.ToLower(attrs.Name), ".json") {
			continue
		}
		switch {
		case newest == nil, attrs.Updated.After(newest.Updated):
			newest = attrs
		case attrs.Updated.Equal(newest.Updated) && attrs.Name > newest.Name:
			newest = attrs
		}
	}
	return newest
}
