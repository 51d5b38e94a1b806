// Package olx fetches marketplace listings from the OLX GraphQL search gateway.
package olx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"olx-price-index/metrics"
	"olx-price-index/models"
	"olx-price-index/utils"
)

const (
	Endpoint = "https://www.olx.ro/apigateway/graphql"

	PageSize          = 50
	MaxRetries        = 3
	RetryDelayBase    = 2 // seconds, raised to attempt+1
	RateLimitCooldown = 60 * time.Second
	RequestDelay      = 500 * time.Millisecond
	RequestTimeout    = 30 * time.Second

	defaultCurrency = "RON"
	userAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	maxErrorBody    = 512
)

// StatusError is a non-2xx response from the gateway.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("olx: http %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client talks to the search gateway. It is opened once per run, shared by
// all products and released with Close. Not safe for concurrent use.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	logger       *utils.Logger
	pageSize     int
	requestDelay time.Duration
	sleep        utils.SleepFunc
	retry        *utils.RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at another gateway URL.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the blocking sleep used for page delays and retry waits.
func WithSleep(fn utils.SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithPageSize sets the page limit sent with each request. Non-positive
// values are ignored.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New creates a ready-to-use Client.
func New(logger *utils.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = utils.Nop()
	}
	c := &Client{
		endpoint:     Endpoint,
		httpClient:   &http.Client{Timeout: RequestTimeout},
		logger:       logger,
		pageSize:     PageSize,
		requestDelay: RequestDelay,
		sleep:        utils.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.retry = &utils.RetryPolicy{
		MaxAttempts: MaxRetries,
		BackoffBase: RetryDelayBase,
		Cooldown:    RateLimitCooldown,
		Sleep:       c.sleep,
		Logger:      logger,
		OnRetry: func(o utils.Outcome) {
			metrics.RecordRetry(o.String())
		},
	}
	return c
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// FetchAll returns every listing with a price for the product's query.
// Zero results is an empty slice, not an error. An error is returned only
// when a page request exhausts its retries or the response is unreadable.
func (c *Client) FetchAll(ctx context.Context, product models.Product) ([]models.Listing, error) {
	c.logger.Info("[olx] Fetching listings for: %s", product.Name)

	first, err := c.fetchPage(ctx, product.Query, 0)
	if err != nil {
		return nil, err
	}

	total := 0
	if s, ok := first.(*Success); ok {
		total = s.Total
	}
	c.logger.Info("[olx] Total listings found: %d", total)

	if total == 0 {
		c.logResult(first, 0)
		return []models.Listing{}, nil
	}

	listings := c.extract(first, 0)

	for offset := c.pageSize; offset < total; offset += c.pageSize {
		if err := c.sleep(ctx, c.requestDelay); err != nil {
			return nil, err
		}
		page, err := c.fetchPage(ctx, product.Query, offset)
		if err != nil {
			return nil, err
		}
		listings = append(listings, c.extract(page, offset)...)
		c.logger.Debug("[olx] Fetched %d/%d listings", len(listings), total)
	}

	c.logger.Info("[olx] Collected %d listings with valid prices", len(listings))
	metrics.RecordListings(product.Slug, len(listings))
	return listings, nil
}

// extract turns a page result into priced listings. Items without a price
// are dropped; an error variant yields nothing.
func (c *Client) extract(res Result, offset int) []models.Listing {
	s, ok := res.(*Success)
	if !ok {
		c.logResult(res, offset)
		return nil
	}

	out := make([]models.Listing, 0, len(s.Items))
	for _, it := range s.Items {
		price, currency, ok := it.Price()
		if !ok || price <= 0 {
			continue
		}
		if currency == "" {
			currency = defaultCurrency
		}
		out = append(out, models.Listing{
			ID:       string(it.ID),
			Title:    it.Title,
			Price:    price,
			Currency: currency,
			City:     it.Location.City.Name,
			Region:   it.Location.Region.Name,
		})
	}
	return out
}

func (c *Client) logResult(res Result, offset int) {
	if f, ok := res.(*Failure); ok {
		c.logger.Error("[olx] API error at offset %d: %s - %s", offset, f.Code, f.Detail)
	}
}

// fetchPage requests one page with retries and decodes it.
func (c *Client) fetchPage(ctx context.Context, query string, offset int) (Result, error) {
	var req graphQLRequest
	req.Query = searchQuery
	req.Variables.SearchParameters = []searchParameter{
		{Key: "offset", Value: strconv.Itoa(offset)},
		{Key: "limit", Value: strconv.Itoa(c.pageSize)},
		{Key: "query", Value: query},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("olx: encode request: %w", err)
	}

	var body []byte
	op := fmt.Sprintf("olx search %q offset %d", query, offset)
	err = c.retry.Do(ctx, op, func(int) utils.Attempt {
		b, err := c.post(ctx, payload)
		if err != nil {
			return classify(ctx, err)
		}
		body = b
		return utils.Succeeded()
	})
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("olx: decode response at offset %d: %w", offset, err)
	}
	return resp.result(), nil
}

// post performs one HTTP attempt.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("olx: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordRequest(0, time.Since(start))
		return nil, fmt.Errorf("olx: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordRequest(resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("olx: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// classify maps an attempt error to a retry outcome.
func classify(ctx context.Context, err error) utils.Attempt {
	if ctx.Err() != nil {
		return utils.Fatal(ctx.Err())
	}
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return utils.RateLimited(err)
	}
	return utils.Retryable(err)
}
