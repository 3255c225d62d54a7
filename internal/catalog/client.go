// Package catalog looks up books in the Open Library search API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bibliobalance/internal/metrics"
	"bibliobalance/internal/models"
)

const (
	// DefaultLimit is the number of results requested when none is given.
	DefaultLimit = 50
	// MaxLimit caps the number of results per request.
	MaxLimit = 100

	popularGenres   = 6
	popularPerGenre = 10
	popularLimit    = 50

	// DefaultPageCount is used for catalog entries without a page count.
	DefaultPageCount = 200
	unknownAuthor    = "Unknown"

	coverBaseURL = "https://covers.openlibrary.org/b/id/"
)

var (
	// ErrEmptyQuery is returned for blank search terms.
	ErrEmptyQuery = errors.New("search query is required")
	// ErrUnavailable wraps failures talking to Open Library.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Genres are the subjects offered for browsing, in display order.
var Genres = []string{
	"fiction",
	"fantasy",
	"science fiction",
	"mystery",
	"thriller",
	"romance",
	"historical fiction",
	"biography",
	"non-fiction",
	"poetry",
	"horror",
	"adventure",
}

// CoverSize selects one of the Open Library cover renditions.
type CoverSize string

const (
	CoverSmall  CoverSize = "S"
	CoverMedium CoverSize = "M"
	CoverLarge  CoverSize = "L"
)

// CoverURL returns the cover image URL for an Open Library cover id, or ""
// when the id is unset.
func CoverURL(coverID int, size CoverSize) string {
	if coverID <= 0 {
		return ""
	}
	switch size {
	case CoverSmall, CoverMedium, CoverLarge:
	default:
		size = CoverMedium
	}
	return coverBaseURL + strconv.Itoa(coverID) + "-" + string(size) + ".jpg"
}

// Book is one search hit
type Book struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name,omitempty"`
	CoverID             int      `json:"cover_i,omitempty"`
	FirstPublishYear    int      `json:"first_publish_year,omitempty"`
	Subject             []string `json:"subject,omitempty"`
	NumberOfPagesMedian int      `json:"number_of_pages_median,omitempty"`
	CoverURL            string   `json:"cover_url,omitempty"`
}

// Author returns the first listed author or "Unknown".
func (b *Book) Author() string {
	if len(b.AuthorName) > 0 && strings.TrimSpace(b.AuthorName[0]) != "" {
		return b.AuthorName[0]
	}
	return unknownAuthor
}

// NewBook maps the hit to a want-to-read library entry.
func (b *Book) NewBook() models.NewBook {
	nb := models.NewBook{
		Title:     b.Title,
		Author:    b.Author(),
		PageCount: b.NumberOfPagesMedian,
		Status:    models.StatusWantToRead,
	}
	if nb.PageCount <= 0 {
		nb.PageCount = DefaultPageCount
	}
	if cover := CoverURL(b.CoverID, CoverMedium); cover != "" {
		nb.CoverImage = &cover
	}
	if len(b.Subject) > 0 && b.Subject[0] != "" {
		genre := b.Subject[0]
		nb.Genre = &genre
	}
	return nb
}

type searchResponse struct {
	NumFound int    `json:"numFound"`
	Docs     []Book `json:"docs"`
}

// Options configures a Client
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to Open Library. Outbound calls are rate limited and go
// through a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]Book]
	logger     *zap.Logger
}

// NewClient creates a new Open Library client
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}

	metrics.CatalogBreakerState.Set(0)
	c.cb = gobreaker.NewCircuitBreaker[[]Book](gobreaker.Settings{
		Name:        "openlibrary",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Catalog circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CatalogBreakerState.Set(stateToFloat(to))
		},
	})
	return c
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Genres returns the browsable genre list.
func (c *Client) Genres() []string {
	out := make([]string, len(Genres))
	copy(out, Genres)
	return out
}

// Search runs a free-text search.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return c.search(ctx, "search", url.Values{"q": {query}}, limit)
}

// ByGenre lists books for an Open Library subject.
func (c *Client) ByGenre(ctx context.Context, genre string, limit int) ([]Book, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, ErrEmptyQuery
	}
	return c.search(ctx, "genre", url.Values{"subject": {genre}}, limit)
}

// Popular collects a few books from each of the first genres. Genres that
// fail are skipped; an error is returned only when all of them fail.
func (c *Client) Popular(ctx context.Context) ([]Book, error) {
	out := make([]Book, 0, popularLimit)
	var lastErr error
	for _, genre := range Genres[:popularGenres] {
		books, err := c.ByGenre(ctx, genre, popularPerGenre)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("Failed to fetch popular genre", zap.String("genre", genre), zap.Error(err))
			lastErr = err
			continue
		}
		out = append(out, books...)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if len(out) > popularLimit {
		out = out[:popularLimit]
	}
	return out, nil
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

func (c *Client) search(ctx context.Context, operation string, params url.Values, limit int) ([]Book, error) {
	params.Set("limit", strconv.Itoa(normalizeLimit(limit)))
	reqURL := c.baseURL + "/search.json?" + params.Encode()

	start := time.Now()
	books, err := c.cb.Execute(func() ([]Book, error) {
		return c.fetch(ctx, reqURL)
	})
	metrics.RecordCatalogRequest(operation, time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return books, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]Book, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	books := result.Docs
	if books == nil {
		books = []Book{}
	}
	for i := range books {
		books[i].CoverURL = CoverURL(books[i].CoverID, CoverMedium)
	}
	return books, nil
}
