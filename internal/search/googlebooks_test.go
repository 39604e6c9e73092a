package search

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractISBN(t *testing.T) {
	tests := []struct {
		name        string
		identifiers []IndustryIdentifier
		want        string
	}{
		{
			"prefers isbn 13",
			[]IndustryIdentifier{
				{Type: "ISBN_10", Identifier: "0441013597"},
				{Type: "ISBN_13", Identifier: "9780441013593"},
			},
			"9780441013593",
		},
		{
			"falls back to isbn 10",
			[]IndustryIdentifier{
				{Type: "OTHER", Identifier: "OCLC:123"},
				{Type: "ISBN_10", Identifier: "0441013597"},
			},
			"0441013597",
		},
		{
			"falls back to first identifier",
			[]IndustryIdentifier{
				{Type: "OTHER", Identifier: "OCLC:123"},
				{Type: "OTHER", Identifier: "OCLC:456"},
			},
			"OCLC:123",
		},
		{"empty list", nil, ""},
		{
			"skips empty isbn 13",
			[]IndustryIdentifier{
				{Type: "ISBN_13", Identifier: ""},
				{Type: "ISBN_10", Identifier: "0441013597"},
			},
			"0441013597",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractISBN(tt.identifiers))
		})
	}
}

const volumesFixture = `{
	"totalItems": 2,
	"items": [
		{
			"id": "B1MsPx3q9qkC",
			"volumeInfo": {
				"title": "Dune",
				"authors": ["Frank Herbert"],
				"description": "Science fiction classic.",
				"pageCount": 412,
				"categories": ["Fiction"],
				"publishedDate": "1965",
				"publisher": "Chilton Books",
				"language": "en",
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "0441013597"},
					{"type": "ISBN_13", "identifier": "9780441013593"}
				],
				"imageLinks": {
					"thumbnail": "https://books.google.com/thumb",
					"smallThumbnail": "https://books.google.com/small"
				},
				"previewLink": "https://books.google.com/preview",
				"averageRating": 4.5,
				"ratingsCount": 1200
			}
		},
		{
			"id": "sparse",
			"volumeInfo": {}
		}
	]
}`

func newTestClient(t *testing.T, handler http.Handler) *GoogleBooksClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewGoogleBooksClient(srv.URL, "", nil, time.Minute, logger)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSearch(t *testing.T) {
	var gotQuery atomic.Value
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(volumesFixture))
	}))

	result, err := client.Search(context.Background(), "dune herbert", 10, 0)
	require.NoError(t, err)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "dune herbert", q.Get("q"))
	assert.Equal(t, "books", q.Get("printType"))

	assert.Equal(t, 2, result.TotalItems)
	require.Len(t, result.Books, 2)

	dune := result.Books[0]
	assert.Equal(t, "B1MsPx3q9qkC", dune.GoogleID)
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, "Frank Herbert", dune.Author)
	assert.Equal(t, 412, dune.TotalPages)
	assert.Equal(t, "9780441013593", dune.ISBN, "isbn 13 wins over isbn 10")
	assert.Equal(t, "Fiction", dune.Genre)
	assert.Equal(t, "https://books.google.com/thumb", dune.Thumbnail)

	// Volumes with missing fields still produce a usable candidate.
	sparse := result.Books[1]
	assert.Equal(t, "Unknown title", sparse.Title)
	assert.Equal(t, "Unknown author", sparse.Author)
	assert.Zero(t, sparse.TotalPages)
	assert.Empty(t, sparse.ISBN)
	assert.Equal(t, "NOT_MATURE", sparse.MaturityRating)
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	_, err := client.Search(context.Background(), "   ", 10, 0)
	assert.Error(t, err)
}

func TestSearch_CapsMaxResults(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "40", r.URL.Query().Get("maxResults"))
		w.Write([]byte(`{"totalItems": 0}`))
	}))

	result, err := client.Search(context.Background(), "dune", 500, 0)
	require.NoError(t, err)
	assert.Equal(t, 40, result.MaxResults)
	assert.Empty(t, result.Books)
}

func TestSearch_ServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusServiceUnavailable)
	}))

	_, err := client.Search(context.Background(), "dune", 10, 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearch_ClientErrorIsNotUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	_, err := client.Search(context.Background(), "dune", 10, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
