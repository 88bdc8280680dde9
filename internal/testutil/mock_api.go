// Package testutil provides testing utilities for the offer scraper.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/mmreality-scraper/pkg/listing"
)

// MockResponse defines the behavior for one mocked page response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock of the offer search API.
// Responses are scripted per page number taken from the request body;
// unscripted pages return an empty offers list.
type MockAPI struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[int]MockResponse

	// Tracking
	requests   []listing.QueryState
	lastHeader http.Header
}

// NewMockAPI creates a new mock offer API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		pages: make(map[int]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears scripted pages and tracking.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[int]MockResponse)
	m.requests = nil
	m.lastHeader = nil
}

// SetPage scripts the response for a 1-based page number.
func (m *MockAPI) SetPage(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// SetPages scripts consecutive pages starting at page 1.
func (m *MockAPI) SetPages(resps ...MockResponse) {
	for i, resp := range resps {
		m.SetPage(i+1, resp)
	}
}

// Requests returns the decoded request bodies in arrival order.
func (m *MockAPI) Requests() []listing.QueryState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]listing.QueryState, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var query listing.QueryState
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, query)
	m.lastHeader = r.Header.Clone()
	resp, ok := m.pages[query.Pagination.Page]
	m.mu.Unlock()

	if !ok {
		resp = NewOffersResponse()
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewOffersResponse creates a 200 OK page holding the given offer objects.
func NewOffersResponse(offers ...string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"offers":[%s],"pagination":{"pagesCount":135}}`, strings.Join(offers, ",")),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 OK response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>maintenance</html>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

// Offer builds a minimal offer JSON object with the given id and title.
func Offer(id int, shortTitle string) string {
	b, _ := json.Marshal(map[string]any{
		"id":          id,
		"shortTitle":  shortTitle,
		"description": fmt.Sprintf("offer %d", id),
		"price":       1000000 + id,
		"location":    "Praha",
		"category":    map[string]any{"name": "Byty"},
		"country":     "Česká republika",
		"district":    "Praha",
		"totalArea":   50,
	})
	return string(b)
}
