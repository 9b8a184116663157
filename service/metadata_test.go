package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumeJSON = `{
  "totalItems": 1,
  "items": [{
    "volumeInfo": {
      "title": "Combined Mathematics",
      "subtitle": "Pure Maths",
      "authors": ["A. Silva", "B. Fernando"],
      "publisher": "Methsara",
      "description": "  Past papers and notes.  ",
      "categories": ["Education"],
      "industryIdentifiers": [
        {"type": "ISBN_10", "identifier": "9551234567"},
        {"type": "ISBN_13", "identifier": "9789551234567"}
      ]
    }
  }]
}`

func TestISBNLookup(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if gotQuery == "isbn:9780000000002" {
			w.Write([]byte(`{"totalItems":0}`))
			return
		}
		w.Write([]byte(volumeJSON))
	}))
	defer srv.Close()

	l := &ISBNLookup{client: srv.Client(), baseURL: srv.URL}

	got, err := l.Lookup(context.Background(), "955-123-456-7")
	require.NoError(t, err)
	assert.Equal(t, "isbn:9551234567", gotQuery)
	assert.Equal(t, "Combined Mathematics: Pure Maths", got.Title)
	assert.Equal(t, "A. Silva, B. Fernando", got.Author)
	assert.Equal(t, "9789551234567", got.ISBN)
	assert.Equal(t, "Past papers and notes.", got.Description)
	assert.Equal(t, "Education", got.Category)
	assert.Equal(t, []string{"https://covers.openlibrary.org/b/isbn/9789551234567-L.jpg"}, got.Images)

	_, err = l.Lookup(context.Background(), "9780000000002")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Lookup(context.Background(), "12345")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidISBN(t *testing.T) {
	assert.True(t, validISBN("955123456X"))
	assert.True(t, validISBN("9789551234567"))
	assert.False(t, validISBN("95512X4567"))
	assert.False(t, validISBN("978955123456A"))
	assert.False(t, validISBN(""))
}
