// Package trade is a client for the marketplace search and fetch endpoints
// that absorbs rate limiting and upstream instability with bounded retries.
package trade

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/guarzo/poe2gradegap/internal/logging"
	"github.com/guarzo/poe2gradegap/internal/model"
)

// Config holds connection settings. SessionID is passed through as the
// POESESSID cookie and is otherwise opaque.
type Config struct {
	BaseURL   string
	League    string
	Realm     string
	SessionID string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond <= 0 disables client-side pacing.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the trade API. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	sleep      SleepFunc
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a trade API client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Realm == "" {
		cfg.Realm = "poe2"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		sleep:      Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNew(c.logger, "trade")
	return c
}

// searchRequest is the POST body of a search.
type searchRequest struct {
	Query model.SearchQuery `json:"query"`
	Sort  any               `json:"sort"`
}

// Search runs a query. A "sort" key inside the query is lifted out into the
// request's sort field; without one, results are sorted by ascending price.
func (c *Client) Search(ctx context.Context, q model.SearchQuery) (model.SearchResult, error) {
	query := q.Clone()
	if query == nil {
		query = model.SearchQuery{}
	}
	var sort any = map[string]string{"price": "asc"}
	if s, ok := query["sort"]; ok {
		sort = s
		delete(query, "sort")
	}

	body, err := json.Marshal(searchRequest{Query: query, Sort: sort})
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("encoding search: %w", err)
	}

	u := fmt.Sprintf("%s/search/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.cfg.Realm), url.PathEscape(c.cfg.League))

	raw, err := c.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("search: %w", err)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("decoding search response: %w", err)
	}

	res := model.SearchResult{QueryID: env.ID}
	for _, item := range env.Results {
		var id string
		if err := json.Unmarshal(item, &id); err == nil && id != "" {
			res.IDs = append(res.IDs, id)
		}
	}
	res.Total = len(res.IDs)
	if env.Total != nil {
		res.Total = *env.Total
	}
	return res, nil
}

// Fetch loads listing details. An empty id list returns immediately without
// contacting the server.
func (c *Client) Fetch(ctx context.Context, ids []string, queryID string) ([]model.Listing, error) {
	if len(ids) == 0 {
		return []model.Listing{}, nil
	}

	params := url.Values{}
	params.Set("realm", c.cfg.Realm)
	if queryID != "" {
		params.Set("query", queryID)
	}
	u := fmt.Sprintf("%s/fetch/%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"),
		strings.Join(ids, ","), params.Encode())

	raw, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding fetch response: %w", err)
	}

	listings := make([]model.Listing, 0, len(env.Results))
	for _, item := range env.Results {
		// The API returns null for listings removed since the search.
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			continue
		}
		var l model.Listing
		if err := json.Unmarshal(item, &l); err != nil {
			continue
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// do executes one logical request through the retry state machine.
func (c *Client) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var lastErr *HTTPError

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		status, header, respBody, err := c.send(ctx, method, u, body)
		if err != nil {
			return nil, err
		}

		if status/100 == 2 {
			return respBody, nil
		}

		httpErr := &HTTPError{StatusCode: status, Body: respBody, Attempts: attempt + 1}
		if !IsRetryable(status) {
			return nil, httpErr
		}
		lastErr = httpErr

		if attempt == MaxAttempts-1 {
			break
		}

		wait := backoffDelay(status, attempt, header)
		c.logger.Warn("retrying request",
			slog.Int("status", status),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", MaxAttempts),
			slog.Duration("wait", wait))
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, u string, body []byte) (int, http.Header, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	reader, err := bodyReader(resp)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("creating reader: %w", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, resp.Header, data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.SessionID != "" {
		req.Header.Set("Cookie", "POESESSID="+c.cfg.SessionID)
	}
}

// bodyReader undoes Content-Encoding. Setting Accept-Encoding ourselves turns
// off the transport's transparent gzip handling.
func bodyReader(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// envelope is the normalized response shape: {result, id?, total?}. Bare
// arrays are accepted as the result list.
type envelope struct {
	Results []json.RawMessage `json:"result"`
	ID      string            `json:"id"`
	Total   *int              `json:"total"`
}

func decodeEnvelope(raw []byte) (envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	var env envelope
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return env, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &env.Results); err != nil {
			return envelope{}, err
		}
		return env, nil
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}
