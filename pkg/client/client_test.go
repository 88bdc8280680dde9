package client

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/mmreality-scraper/internal/testutil"
	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Timeout = 5 * time.Second

	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig(),
		},
		{
			name:     "empty endpoint",
			config:   Config{Timeout: time.Second},
			errorMsg: "endpoint is required",
		},
		{
			name:     "zero timeout",
			config:   Config{Endpoint: DefaultEndpoint},
			errorMsg: "timeout must be > 0 (got 0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)
			if tt.errorMsg != "" {
				assert.EqualError(t, err, tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestFetchPage_Success(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetPage(1, testutil.NewOffersResponse(
		testutil.Offer(1, "Prodej  Byt 1+kk"),
		testutil.Offer(2, "Prodej  Byt 2+kk"),
	))

	c := newTestClient(t, mock.URL())

	page, err := c.FetchPage(context.Background(), listing.DefaultQueryState())
	require.NoError(t, err)

	require.Len(t, page.Offers, 2)
	assert.Equal(t, 135, page.PagesCount)
	assert.Equal(t, "1", listing.Text(page.Offers[0]["id"]))
}

func TestFetchPage_SendsQueryAndHeaders(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	query := listing.DefaultQueryState().Next().Next()
	_, err := c.FetchPage(context.Background(), query)
	require.NoError(t, err)

	requests := mock.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, query.Pagination, requests[0].Pagination)

	header := mock.LastRequestHeader()
	assert.Equal(t, "https://www.mmreality.cz", header.Get("Origin"))
	assert.True(t, strings.HasPrefix(header.Get("Content-Type"), "application/json"), "Content-Type = %q", header.Get("Content-Type"))
}

func TestFetchPage_Errors(t *testing.T) {
	tests := []struct {
		name       string
		response   testutil.MockResponse
		class      ErrorClass
		statusCode int
	}{
		{
			name:       "server error",
			response:   testutil.NewServerErrorResponse(),
			class:      ClassHTTPStatus,
			statusCode: http.StatusInternalServerError,
		},
		{
			name:       "not found",
			response:   testutil.MockResponse{StatusCode: http.StatusNotFound},
			class:      ClassHTTPStatus,
			statusCode: http.StatusNotFound,
		},
		{
			name:       "malformed body",
			response:   testutil.NewMalformedResponse(),
			class:      ClassDecode,
			statusCode: http.StatusOK,
		},
		{
			name:       "empty body",
			response:   testutil.MockResponse{StatusCode: http.StatusOK},
			class:      ClassDecode,
			statusCode: http.StatusOK,
		},
		{
			name:       "array body",
			response:   testutil.MockResponse{StatusCode: http.StatusOK, Body: `[1,2]`},
			class:      ClassDecode,
			statusCode: http.StatusOK,
		},
		{
			name:       "null body",
			response:   testutil.MockResponse{StatusCode: http.StatusOK, Body: `null`},
			class:      ClassDecode,
			statusCode: http.StatusOK,
		},
		{
			name:       "trailing garbage",
			response:   testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"offers":[{"id":1}]}<html>`},
			class:      ClassDecode,
			statusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetPage(1, tt.response)

			c := newTestClient(t, mock.URL())

			_, err := c.FetchPage(context.Background(), listing.DefaultQueryState())
			require.Error(t, err)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.class, fe.Class)
			assert.Equal(t, tt.statusCode, fe.StatusCode)
		})
	}
}

func TestFetchPage_TransportError(t *testing.T) {
	mock := testutil.NewMockAPI()
	url := mock.URL()
	mock.Close()

	c := newTestClient(t, url)

	_, err := c.FetchPage(context.Background(), listing.DefaultQueryState())
	assert.Equal(t, ClassTransport, ClassOf(err), "err: %v", err)
}

func TestFetchPage_Timeout(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	resp := testutil.NewOffersResponse()
	resp.Delay = 200 * time.Millisecond
	mock.SetPage(1, resp)

	c := newTestClient(t, mock.URL())
	c.SetHTTPClient(&http.Client{Timeout: 20 * time.Millisecond})

	_, err := c.FetchPage(context.Background(), listing.DefaultQueryState())
	assert.Equal(t, ClassTransport, ClassOf(err))
}

func TestDecodePage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		offers     int
		pagesCount int
	}{
		{name: "missing offers", body: `{}`, offers: 0},
		{name: "null offers", body: `{"offers": null}`, offers: 0},
		{name: "offers not a list", body: `{"offers": {"id": 1}}`, offers: 0},
		{name: "empty offers", body: `{"offers": [], "pagination": {"pagesCount": 0}}`, offers: 0},
		{name: "non-object entry", body: `{"offers": [{"id": 1}, 7]}`, offers: 2},
		{name: "pages count as string", body: `{"offers": [], "pagination": {"pagesCount": "9"}}`, offers: 0, pagesCount: 0},
		{name: "pages count", body: `{"offers": [{}], "pagination": {"pagesCount": 9}}`, offers: 1, pagesCount: 9},
		{name: "trailing whitespace", body: "{\"offers\": [{}]}\n\t ", offers: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := decodePage(strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Len(t, page.Offers, tt.offers)
			assert.Equal(t, tt.pagesCount, page.PagesCount)
		})
	}
}

func TestDecodePage_RejectsTrailingData(t *testing.T) {
	bodies := []string{
		`{"offers": []}<garbage>`,
		`{"offers": []} {"offers": []}`,
		`{"offers": [{"id": 1}]}]`,
	}

	for _, body := range bodies {
		_, err := decodePage(strings.NewReader(body))
		assert.Error(t, err, "body %q", body)
	}
}
