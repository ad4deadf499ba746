package fide

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/flor3z/fide-tracker/internal/storage"
)

const (
	DefaultRatingsURL = "https://ratings.fide.com"
	DefaultSearchURL  = "https://fide.com/search"

	userAgent = "Mozilla/5.0 (compatible; fide-tracker/1.0)"
)

// Fetcher retrieves the markup of a page
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher is a Fetcher over net/http with rate limiting
type HTTPFetcher struct {
	httpClient *http.Client

	// Simple rate limiter
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
	retryAfter  time.Duration
}

// NewHTTPFetcher creates a fetcher spacing requests by minInterval
func NewHTTPFetcher(timeout, minInterval time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		minInterval: minInterval,
		retryAfter:  time.Second,
	}
}

// doRequest performs an HTTP request with rate limiting
func (f *HTTPFetcher) doRequest(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	f.mu.Lock()
	if err := wait(ctx, f.minInterval-time.Since(f.lastRequest)); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.lastRequest = time.Now()
	f.mu.Unlock()

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	// Handle rate limiting (429)
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		// Wait and retry once
		if err := wait(ctx, f.retryAfter); err != nil {
			return nil, err
		}
		return f.httpClient.Do(req)
	}

	return resp, nil
}

// wait blocks for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetch performs a GET request and returns the body as text
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.doRequest(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	return string(body), nil
}

// Client reads FIDE rating pages. Calculation pages go straight to the
// fetcher; profile and search pages go through the lookup cache.
type Client struct {
	ratingsURL string
	searchURL  string
	pages      Fetcher
	lookups    Fetcher
}

// NewClient creates a client. cache may be nil to disable lookup caching.
func NewClient(ratingsURL, searchURL string, fetcher Fetcher, cache *PageCache) *Client {
	if ratingsURL == "" {
		ratingsURL = DefaultRatingsURL
	}
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	c := &Client{
		ratingsURL: strings.TrimRight(ratingsURL, "/"),
		searchURL:  searchURL,
		pages:      fetcher,
		lookups:    fetcher,
	}
	if cache != nil {
		c.lookups = cache
	}
	return c
}

// CalculationURL is the standard-rating calculation page for one period
func (c *Client) CalculationURL(playerID string, month time.Time) string {
	return fmt.Sprintf("%s/a_indv_calculations.php?id_number=%s&rating_period=%s&t=0",
		c.ratingsURL, url.QueryEscape(playerID), storage.FirstOfMonth(month).Format(storage.MonthLayout))
}

// ProfileURL is the public profile page of a player
func (c *Client) ProfileURL(playerID string) string {
	return fmt.Sprintf("%s/profile/%s", c.ratingsURL, url.PathEscape(playerID))
}

// SearchURL is the player search page for a query
func (c *Client) SearchURL(query string) string {
	return c.searchURL + "?query=" + url.QueryEscape(query)
}

// FetchMonth downloads and parses one rating period for a player
func (c *Client) FetchMonth(ctx context.Context, playerID, playerName string, month time.Time) ([]storage.GameRecord, error) {
	markup, err := c.pages.Fetch(ctx, c.CalculationURL(playerID, month))
	if err != nil {
		return nil, err
	}
	return ParseCalculations(markup, month, playerID, playerName)
}

// FetchProfile downloads and parses a player's profile page
func (c *Client) FetchProfile(ctx context.Context, playerID string) (*storage.PlayerProfile, error) {
	markup, err := c.lookups.Fetch(ctx, c.ProfileURL(playerID))
	if err != nil {
		return nil, err
	}
	return ParseProfile(markup, playerID)
}

// SearchPlayers looks up players by name
func (c *Client) SearchPlayers(ctx context.Context, query string) ([]PlayerHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	markup, err := c.lookups.Fetch(ctx, c.SearchURL(query))
	if err != nil {
		return nil, err
	}
	return ParseSearch(markup)
}
