package source

import (
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSLocation(t *testing.T) {
	bucket, object, err := parseGCSLocation("gs://catalogs/exports/2026/items.json")
	require.NoError(t, err)
	assert.Equal(t, "catalogs", bucket)
	assert.Equal(t, "exports/2026/items.json", object)

	bucket, object, err = parseGCSLocation("gs://catalogs")
	require.NoError(t, err)
	assert.Equal(t, "catalogs", bucket)
	assert.Empty(t, object)

	_, object, err = parseGCSLocation("gs://catalogs/exports/")
	require.NoError(t, err)
	assert.Equal(t, "exports/", object)

	_, _, err = parseGCSLocation("gs:///items.json")
	assert.ErrorContains(t, err, "bucket name cannot be empty")
}

func TestNewestCatalog(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	objects := []*storage.ObjectAttrs{
		{Name: "exports/", Updated: base.Add(5 * time.Hour)},
		{Name: "exports/old.json", Updated: base},
		{Name: "exports/notes.txt", ContentType: "text/plain", Updated: base.Add(4 * time.Hour)},
		{Name: "exports/feed", ContentType: "application/json", Updated: base.Add(2 * time.Hour)},
		{Name: "exports/mid.JSON", Updated: base.Add(time.Hour)},
		nil,
	}

	newest := newestCatalog(objects)
	require.NotNil(t, newest)
	assert.Equal(t, "exports/feed", newest.Name)
}

func TestNewestCatalogTieGoesToGreaterName(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	newest := newestCatalog([]*storage.ObjectAttrs{
		{Name: "b.json", Updated: at},
		{Name: "c.json", Updated: at},
		{Name: "a.json", Updated: at},
	})
	require.NotNil(t, newest)
	assert.Equal(t, "c.json", newest.Name)
}

func TestNewestCatalogNothingQualifies(t *testing.T) {
	assert.Nil(t, newestCatalog(nil))
	assert.Nil(t, newestCatalog([]*storage.ObjectAttrs{
		{Name: "readme.md", ContentType: "text/markdown"},
		{Name: "dir/"},
	}))
}
