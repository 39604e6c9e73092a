package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	defaultAPIURL = "https://www.googleapis.com/books/v1/volumes"

	// Google Books allows ~100 requests per 100 seconds per user.
	rateLimit = 1 // requests per second
	rateBurst = 5

	maxResultsCap = 40
	cacheKeyspace = "gbooks:search:"
)

// ErrUnavailable is returned when the Google Books API cannot be reached or
// answers with a server error. Callers may retry with backoff.
var ErrUnavailable = errors.New("google books unavailable")

// IndustryIdentifier is a typed identifier as Google Books reports it,
// e.g. {"type": "ISBN_13", "identifier": "9780441013593"}.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ExtractISBN picks the single best identity key from a volume's identifier
// list: ISBN_13 first, then ISBN_10, then whatever came first. Absence yields
// an empty string, never an error.
func ExtractISBN(identifiers []IndustryIdentifier) string {
	if len(identifiers) == 0 {
		return ""
	}
	for _, id := range identifiers {
		if id.Type == "ISBN_13" && id.Identifier != "" {
			return id.Identifier
		}
	}
	for _, id := range identifiers {
		if id.Type == "ISBN_10" && id.Identifier != "" {
			return id.Identifier
		}
	}
	return identifiers[0].Identifier
}

// BookCandidate is a normalized volume record, ready for the catalog resolver.
type BookCandidate struct {
	GoogleID       string   `json:"google_id"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Author         string   `json:"author"`
	Description    string   `json:"description"`
	TotalPages     int      `json:"total_pages"`
	Categories     []string `json:"categories"`
	Genre          string   `json:"genre"`
	PublishedDate  string   `json:"published_date"`
	Publisher      string   `json:"publisher"`
	Language       string   `json:"language"`
	ISBN           string   `json:"isbn"`
	Thumbnail      string   `json:"thumbnail"`
	SmallThumbnail string   `json:"small_thumbnail"`
	PreviewLink    string   `json:"preview_link"`
	InfoLink       string   `json:"info_link"`
	AverageRating  float64  `json:"average_rating"`
	RatingsCount   int      `json:"ratings_count"`
	MaturityRating string   `json:"maturity_rating"`
}

// SearchResult is one page of provider results.
type SearchResult struct {
	Books      []BookCandidate `json:"books"`
	TotalItems int             `json:"total_items"`
	StartIndex int             `json:"start_index"`
	MaxResults int             `json:"max_results"`
	Query      string          `json:"query"`
}

// GoogleBooksClient queries the Google Books volumes API with client-side
// rate limiting and a best-effort redis cache in front of it.
type GoogleBooksClient struct {
	apiURL      string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// NewGoogleBooksClient creates a client. cache may be nil; the client then
// goes straight to the API on every call.
func NewGoogleBooksClient(apiURL, apiKey string, cache *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *GoogleBooksClient {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &GoogleBooksClient{
		apiURL:      apiURL,
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Search runs a volumes query. maxResults is capped at 40 (the API maximum).
func (c *GoogleBooksClient) Search(ctx context.Context, query string, maxResults, startIndex int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}
	if startIndex < 0 {
		startIndex = 0
	}

	cacheKey := fmt.Sprintf("%s%s:%d:%d", cacheKeyspace, query, maxResults, startIndex)
	if cached := c.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("startIndex", fmt.Sprintf("%d", startIndex))
	params.Set("printType", "books")
	params.Set("orderBy", "relevance")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var parsed volumesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("google books: decode response: %w", err)
	}

	result := &SearchResult{
		Books:      make([]BookCandidate, 0, len(parsed.Items)),
		TotalItems: parsed.TotalItems,
		StartIndex: startIndex,
		MaxResults: maxResults,
		Query:      query,
	}
	for _, item := range parsed.Items {
		result.Books = append(result.Books, item.toCandidate())
	}

	c.cacheSet(ctx, cacheKey, result)
	return result, nil
}

func (c *GoogleBooksClient) cacheGet(ctx context.Context, key string) *SearchResult {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("search cache read failed", "err", err)
		}
		return nil
	}
	var result SearchResult
	if json.Unmarshal(raw, &result) != nil {
		return nil
	}
	return &result
}

func (c *GoogleBooksClient) cacheSet(ctx context.Context, key string, result *SearchResult) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.logger.Warn("search cache write failed", "err", err)
	}
}

// ---------- wire format ----------

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string               `json:"title"`
		Authors             []string             `json:"authors"`
		Description         string               `json:"description"`
		PageCount           int                  `json:"pageCount"`
		Categories          []string             `json:"categories"`
		PublishedDate       string               `json:"publishedDate"`
		Publisher           string               `json:"publisher"`
		Language            string               `json:"language"`
		IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
		ImageLinks          struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
		PreviewLink    string  `json:"previewLink"`
		InfoLink       string  `json:"infoLink"`
		AverageRating  float64 `json:"averageRating"`
		RatingsCount   int     `json:"ratingsCount"`
		MaturityRating string  `json:"maturityRating"`
	} `json:"volumeInfo"`
}

func (v volume) toCandidate() BookCandidate {
	info := v.VolumeInfo
	title := info.Title
	if title == "" {
		title = "Unknown title"
	}
	authors := info.Authors
	if len(authors) == 0 {
		authors = []string{"Unknown author"}
	}
	thumbnail := info.ImageLinks.Thumbnail
	if thumbnail == "" {
		thumbnail = info.ImageLinks.SmallThumbnail
	}
	maturity := info.MaturityRating
	if maturity == "" {
		maturity = "NOT_MATURE"
	}
	return BookCandidate{
		GoogleID:       v.ID,
		Title:          title,
		Authors:        authors,
		Author:         strings.Join(authors, ", "),
		Description:    info.Description,
		TotalPages:     info.PageCount,
		Categories:     info.Categories,
		Genre:          strings.Join(info.Categories, ", "),
		PublishedDate:  info.PublishedDate,
		Publisher:      info.Publisher,
		Language:       info.Language,
		ISBN:           ExtractISBN(info.IndustryIdentifiers),
		Thumbnail:      thumbnail,
		SmallThumbnail: info.ImageLinks.SmallThumbnail,
		PreviewLink:    info.PreviewLink,
		InfoLink:       info.InfoLink,
		AverageRating:  info.AverageRating,
		RatingsCount:   info.RatingsCount,
		MaturityRating: maturity,
	}
}
