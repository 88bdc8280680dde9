package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/mmreality-scraper/pkg/client"
	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/Sternrassler/mmreality-scraper/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmreality_pages_fetched_total",
		Help: "Total non-empty pages fetched",
	})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmreality_records_total",
		Help: "Total listing records extracted",
	})
)

// Config holds fetcher configuration.
type Config struct {
	// BaseURL is the site root used to build detail URLs.
	BaseURL string

	// MaxPages stops the loop after this many non-empty pages. 0 means no limit.
	MaxPages int
}

// DefaultConfig returns the reference configuration: no page limit.
func DefaultConfig() Config {
	return Config{
		BaseURL: listing.DefaultBaseURL,
	}
}

// PageFetcher fetches a single page for the given query.
type PageFetcher interface {
	FetchPage(ctx context.Context, query listing.QueryState) (listing.Page, error)
}

// StopReason tells why the loop ended.
type StopReason string

const (
	// StopEmptyPage is the normal end of data.
	StopEmptyPage StopReason = "empty_page"

	// StopError means a page request failed.
	StopError StopReason = "error"

	// StopMaxPages means the configured page limit was reached.
	StopMaxPages StopReason = "max_pages"

	// StopCancelled means the context was done between pages.
	StopCancelled StopReason = "cancelled"
)

// PageResult is the outcome of one page request: either offers or a
// terminal error.
type PageResult struct {
	PageNumber int
	Offers     []listing.Record
	PagesCount int
	Err        error
}

// Result is the outcome of a whole run. It is returned even when the run
// ended with an error.
type Result struct {
	Records listing.ResultSet

	// Requests is the number of page requests issued.
	Requests int

	// Pages is the number of non-empty pages.
	Pages int

	// PagesHint is the last pagesCount reported by the server.
	PagesHint int

	Stop     StopReason
	Duration time.Duration
}

// Fetcher runs the sequential fetch-and-flatten loop.
type Fetcher struct {
	pages  PageFetcher
	query  listing.QueryState
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a new fetcher. The query is copied; its pagination is
// reset at the start of every FetchAll.
func NewFetcher(pages PageFetcher, query listing.QueryState, config Config) *Fetcher {
	if config.BaseURL == "" {
		config.BaseURL = listing.DefaultBaseURL
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &Fetcher{
		pages:  pages,
		query:  query,
		config: config,
		logger: logging.NewLogger("fetcher"),
	}
}

// FetchAll fetches pages until an empty page or the first error.
//
// The returned Result always holds the records accumulated so far. The
// error is non-nil only when a page request failed or ctx was done; in that
// case the partial records are still valid output.
func (f *Fetcher) FetchAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}
	state := f.query.Reset()

	defer func() {
		result.Duration = time.Since(start)
	}()

	for {
		if err := ctx.Err(); err != nil {
			result.Stop = StopCancelled
			f.logger.Warn().
				Err(err).
				Int("page", state.Pagination.Page).
				Int("records", len(result.Records)).
				Msg("Fetch cancelled - returning partial results")
			return result, fmt.Errorf("fetch cancelled before page %d: %w", state.Pagination.Page, err)
		}

		res := f.fetchPage(ctx, state)
		result.Requests++

		switch {
		case res.Err != nil:
			result.Stop = StopError
			f.logger.Error().
				Err(res.Err).
				Str("error_class", string(client.ClassOf(res.Err))).
				Int("page", res.PageNumber).
				Int("records", len(result.Records)).
				Msg("Page fetch failed - returning partial results")
			return result, fmt.Errorf("page %d: %w", res.PageNumber, res.Err)

		case len(res.Offers) == 0:
			result.Stop = StopEmptyPage
			f.logger.Info().
				Int("page", res.PageNumber).
				Int("pages", result.Pages).
				Int("records", len(result.Records)).
				Dur("duration", time.Since(start)).
				Msg("Fetch complete")
			return result, nil
		}

		for _, offer := range res.Offers {
			result.Records = append(result.Records, listing.Project(offer, f.config.BaseURL))
		}
		result.Pages++
		result.PagesHint = res.PagesCount
		pagesFetchedTotal.Inc()
		recordsTotal.Add(float64(len(res.Offers)))

		f.logger.Info().
			Int("page", res.PageNumber).
			Int("offers", len(res.Offers)).
			Int("pages_hint", res.PagesCount).
			Msg("Page fetched")

		if f.config.MaxPages > 0 && result.Pages >= f.config.MaxPages {
			result.Stop = StopMaxPages
			f.logger.Info().
				Int("max_pages", f.config.MaxPages).
				Int("records", len(result.Records)).
				Msg("Page limit reached")
			return result, nil
		}

		state = state.Next()
	}
}

// fetchPage requests one page and packs the outcome into a PageResult.
func (f *Fetcher) fetchPage(ctx context.Context, state listing.QueryState) PageResult {
	f.logger.Debug().
		Int("page", state.Pagination.Page).
		Int("offset", state.Pagination.Offset).
		Int("limit", state.Pagination.Limit).
		Msg("Fetching page")

	page, err := f.pages.FetchPage(ctx, state)
	if err != nil {
		return PageResult{PageNumber: state.Pagination.Page, Err: err}
	}

	return PageResult{
		PageNumber: state.Pagination.Page,
		Offers:     page.Offers,
		PagesCount: page.PagesCount,
	}
}
