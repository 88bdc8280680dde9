// Package listing defines the request payload, raw records and the flattened
// rows produced from the MM Reality offer search API.
package listing

import (
	"encoding/json"
	"fmt"
)

// DefaultPageSize is the number of offers requested per page.
const DefaultPageSize = 12

// DefaultPagesCount is the pagesCount the web frontend sends with its first
// request. It is echoed unchanged on every page.
const DefaultPagesCount = 135

// DefaultFilter is the search filter sent by the reference scraper:
// active apartments for sale in any location.
const DefaultFilter = `{
	"common": {"status": [1], "category": 10, "price": null, "participant": null, "active": 1},
	"geography": {"locations": [], "tolerance": null},
	"groups": [{
		"group": 11,
		"types": [],
		"energyClassifications": [],
		"conditions": [],
		"constructions": [],
		"ownerships": [],
		"placements": [],
		"situations": [],
		"rooms": [],
		"equipments": []
	}]
}`

// DefaultSorting orders offers newest first.
const DefaultSorting = `{"descending": true, "order": "createdAt"}`

// Pagination is the paging window of a QueryState.
type Pagination struct {
	// Limit is the fixed page size.
	Limit int `json:"limit"`

	// Offset is the index of the first offer on the page.
	// Invariant: Offset == (Page-1) * Limit.
	Offset int `json:"offset"`

	// InitialOffset and PagesCount mirror what the web frontend sends. They
	// never change during a run and the fetch loop does not read them.
	InitialOffset int `json:"initialOffset"`
	PagesCount    int `json:"pagesCount"`

	// Page is the 1-based page number.
	Page int `json:"page"`
}

// QueryState is the JSON body sent with every page request.
//
// It is a value type: Reset and Next return modified copies, so the fetch
// loop owns its state and nothing else can observe it mid-run.
type QueryState struct {
	Filter     json.RawMessage `json:"filter"`
	Pagination Pagination      `json:"pagination"`
	Sorting    json.RawMessage `json:"sorting"`
}

// NewQueryState builds a QueryState positioned on the first page.
// An empty filter or sorting falls back to the defaults.
func NewQueryState(filter, sorting json.RawMessage, limit int) (QueryState, error) {
	if limit < 1 {
		return QueryState{}, fmt.Errorf("page limit must be >= 1 (got %d)", limit)
	}
	if len(filter) == 0 {
		filter = json.RawMessage(DefaultFilter)
	}
	if len(sorting) == 0 {
		sorting = json.RawMessage(DefaultSorting)
	}
	if !json.Valid(filter) {
		return QueryState{}, fmt.Errorf("filter is not valid JSON")
	}
	if !json.Valid(sorting) {
		return QueryState{}, fmt.Errorf("sorting is not valid JSON")
	}

	q := QueryState{
		Filter:  filter,
		Sorting: sorting,
		Pagination: Pagination{
			Limit:         limit,
			InitialOffset: limit,
			PagesCount:    DefaultPagesCount,
		},
	}
	return q.Reset(), nil
}

// DefaultQueryState returns the reference query with the default page size.
func DefaultQueryState() QueryState {
	q, _ := NewQueryState(nil, nil, DefaultPageSize)
	return q
}

// Reset returns a copy positioned on page 1, offset 0.
func (q QueryState) Reset() QueryState {
	q.Pagination.Offset = 0
	q.Pagination.Page = 1
	return q
}

// Next returns a copy advanced by one page.
func (q QueryState) Next() QueryState {
	q.Pagination.Offset += q.Pagination.Limit
	q.Pagination.Page++
	return q
}

// Consistent reports whether the offset matches the page number.
func (q QueryState) Consistent() bool {
	p := q.Pagination
	return p.Page >= 1 && p.Offset == (p.Page-1)*p.Limit
}
