// Package client provides the HTTP client for one page of the MM Reality
// offer search API: it posts the query, classifies failures and decodes the
// offers list.
package client

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

	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/Sternrassler/mmreality-scraper/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultEndpoint is the offer search endpoint used by mmreality.cz.
const DefaultEndpoint = "https://mediator.stormm.cz/api/offers/query"

// Prometheus metrics for page requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmreality_requests_total",
		Help: "Total offer API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mmreality_request_duration_seconds",
		Help:    "Offer API request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmreality_errors_total",
		Help: "Total offer API errors by class",
	}, []string{"class"})
)

// DefaultHeaders returns the static header set the site's frontend sends.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":             "application/json, text/plain, */*",
		"Accept-Language":    "sk-SK,sk;q=0.9,cs;q=0.8,en-US;q=0.7,en;q=0.6",
		"Content-Type":       "application/json;charset=UTF-8",
		"Origin":             "https://www.mmreality.cz",
		"Referer":            "https://www.mmreality.cz/",
		"Sec-Ch-Ua":          `"Google Chrome";v="123", "Not:A-Brand";v="8", "Chromium";v="123"`,
		"Sec-Ch-Ua-Mobile":   "?0",
		"Sec-Ch-Ua-Platform": `"Windows"`,
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "cross-site",
		"User-Agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	}
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the URL every page is POSTed to.
	Endpoint string

	// Headers are sent unchanged with every request.
	Headers map[string]string

	// Timeout bounds a single request including reading the body.
	Timeout time.Duration
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Headers:  DefaultHeaders(),
		Timeout:  30 * time.Second,
	}
}

// Client fetches single pages of offers.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new page client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	logger := logging.NewLogger("page-client")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// FetchPage posts the query and decodes the returned page.
// Every failure is a *FetchError. A missing or non-list offers key yields
// an empty page.
func (c *Client) FetchPage(ctx context.Context, query listing.QueryState) (listing.Page, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return listing.Page{}, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return listing.Page{}, fmt.Errorf("create request: %w", err)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Int("page", query.Pagination.Page).
		Int("offset", query.Pagination.Offset).
		Int("limit", query.Pagination.Limit).
		Msg("Requesting page")

	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("transport_error").Inc()
		return listing.Page{}, c.fail(&FetchError{
			Class:   ClassTransport,
			Message: "request failed",
			Err:     err,
		})
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return listing.Page{}, c.fail(&FetchError{
			Class:      ClassHTTPStatus,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		})
	}

	page, err := decodePage(resp.Body)
	if err != nil {
		return listing.Page{}, c.fail(&FetchError{
			Class:      ClassDecode,
			StatusCode: resp.StatusCode,
			Message:    "invalid response body",
			Err:        err,
		})
	}

	return page, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) fail(err *FetchError) error {
	errorsTotal.WithLabelValues(string(err.Class)).Inc()
	c.logger.Warn().
		Str("error_class", string(err.Class)).
		Int("status", err.StatusCode).
		Err(err.Err).
		Msg("Page request failed")
	return err
}

// decodePage reads a response body. The body must be exactly one JSON
// object; the offers and pagination keys are read leniently.
func decodePage(r io.Reader) (listing.Page, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return listing.Page{}, err
	}
	if body == nil {
		return listing.Page{}, fmt.Errorf("response body is null")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return listing.Page{}, fmt.Errorf("unexpected data after JSON body")
	}

	var page listing.Page

	if offers, ok := body["offers"].([]any); ok {
		page.Offers = make([]listing.Record, 0, len(offers))
		for _, offer := range offers {
			rec, ok := offer.(map[string]any)
			if !ok {
				rec = map[string]any{}
			}
			page.Offers = append(page.Offers, listing.Record(rec))
		}
	}

	if p, ok := body["pagination"].(map[string]any); ok {
		if n, ok := p["pagesCount"].(json.Number); ok {
			if count, err := n.Int64(); err == nil {
				page.PagesCount = int(count)
			}
		}
	}

	return page, nil
}
