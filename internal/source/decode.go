package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
)

// ErrMalformedCatalog is returned when the body was retrieved but does not
// have the shape of a catalog.
var ErrMalformedCatalog = errors.New("source: malformed catalog")

// Fetch opens c and decodes its records. An empty list is returned as a
// non-nil, zero-length slice.
func Fetch(ctx context.Context, c Catalog, field string) ([]catalog.Record, error) {
	body, err := c.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return DecodeRecords(body, field)
}

// DecodeRecords reads either a JSON array of records or a JSON object
// holding the array under field. Field lookup tolerates casing the same way
// record fields do. Array elements that are not objects decode as empty
// records, so every element still yields one product.
func DecodeRecords(r io.Reader, field string) ([]catalog.Record, error) {
	if field == "" {
		field = DefaultRecordsField
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}

	var items []catalog.Value
	switch t := doc.(type) {
	case []any:
		items = catalog.ValueOf(t).List()
	case map[string]any:
		v := catalog.Record(t).Get(field)
		if v.Kind() != catalog.KindList {
			return nil, fmt.Errorf("%w: no list under %q", ErrMalformedCatalog, field)
		}
		items = v.List()
	default:
		return nil, fmt.Errorf("%w: expected an array or an object", ErrMalformedCatalog)
	}

	records := make([]catalog.Record, 0, len(items))
	for _, item := range items {
		rec := item.Object()
		if rec == nil {
			rec = catalog.Record{}
		}
		records = append(records, rec)
	}
	return records, nil
}
