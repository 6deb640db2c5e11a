// Package source fetches the raw catalog from wherever it lives: an HTTP
// endpoint, a Google Cloud Storage object or a local file.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// DefaultRecordsField is the field of a JSON object response holding the
// records when the body is not a bare array.
const DefaultRecordsField = "data"

// Catalog is a place the raw catalog can be read from.
type Catalog interface {
	Location() string
	Open(ctx context.Context) (io.ReadCloser, error)
	Close() error
}

// FetchError reports that the catalog could not be retrieved at all, as
// opposed to being retrieved and found empty or malformed.
type FetchError struct {
	Location   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Location, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Location, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is, or wraps, a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Options tune how a catalog is opened.
type Options struct {
	// HTTPClient is used for http(s) locations. Nil means a client with
	// Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Open returns the Catalog for location, dispatching on its scheme.
func Open(ctx context.Context, location string, opts Options) (Catalog, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, errors.New("source: catalog location is empty")
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: opts.Timeout}
		}
		return &HTTPCatalog{url: location, client: client}, nil
	case strings.HasPrefix(location, "gs://"):
		return openGCS(ctx, location)
	default:
		return FileCatalog{path: location}, nil
	}
}

// HTTPCatalog reads the catalog with a GET request.
type HTTPCatalog struct {
	url    string
	client *http.Client
}

// Location returns the endpoint URL.
func (h *HTTPCatalog) Location() string { return h.url }

// Open performs the request. Any status outside 2xx is a *FetchError.
func (h *HTTPCatalog) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, &FetchError{Location: h.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{Location: h.url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &FetchError{Location: h.url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// Close releases idle connections.
func (h *HTTPCatalog) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// FileCatalog reads the catalog from the local filesystem.
type FileCatalog struct {
	path string
}

// Location returns the file path.
func (f FileCatalog) Location() string { return f.path }

// Open opens the file.
func (f FileCatalog) Open(_ context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, &FetchError{Location: f.path, Err: err}
	}
	return file, nil
}

// Close is a no-op.
func (f FileCatalog) Close() error { return nil }

// GCSAvailable reports whether Google Cloud credentials can be found. The
// check is quick and used to decide whether gs:// locations are offered.
func GCSAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return false
	}
	client.Close()
	return true
}
