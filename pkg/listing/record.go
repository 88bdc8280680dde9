package listing

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultBaseURL is the public site that offer detail pages live on.
	DefaultBaseURL = "https://www.mmreality.cz/"

	// NoneValue is written for any field missing from a record.
	NoneValue = "None"

	// TitleTagWidth is the width of the tag the API prefixes to shortTitle.
	TitleTagWidth = 8
)

// Record is one raw offer object as decoded from the API.
// Numbers are kept as json.Number so ids and prices keep their literal form.
type Record map[string]any

// Page is the decoded payload of one page response.
type Page struct {
	Offers []Record

	// PagesCount is the server's page count hint. It is informational only.
	PagesCount int
}

// ListingRecord is the flattened row for one offer.
type ListingRecord struct {
	ID          string
	URL         string
	Category    string
	Title       string
	Description string
	Area        string
	Price       string
	Location    string
	Country     string
	District    string
}

// ResultSet is the ordered output of one scrape run.
type ResultSet []ListingRecord

// Column describes one output column.
type Column struct {
	// Header is the spreadsheet header.
	Header string
	// Name is the relational column name.
	Name string
}

// Columns lists the output columns in row order.
var Columns = []Column{
	{Header: "ID", Name: "id"},
	{Header: "URL", Name: "url"},
	{Header: "Category", Name: "category"},
	{Header: "Title", Name: "title"},
	{Header: "Description", Name: "description"},
	{Header: "Area", Name: "area"},
	{Header: "Price", Name: "price"},
	{Header: "Location", Name: "location"},
	{Header: "Country", Name: "country"},
	{Header: "District", Name: "district"},
}

// Values returns the row in Columns order.
func (r ListingRecord) Values() []string {
	return []string{
		r.ID,
		r.URL,
		r.Category,
		r.Title,
		r.Description,
		r.Area,
		r.Price,
		r.Location,
		r.Country,
		r.District,
	}
}

// DetailURL builds the public detail page URL for an offer id.
func DetailURL(baseURL, id string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return baseURL + "nemovitosti/" + id + "/?context=list"
}

// StripTitleTag drops the fixed-width tag from a shortTitle and trims the rest.
// Titles not longer than the tag yield "".
func StripTitleTag(shortTitle string) string {
	if utf8.RuneCountInString(shortTitle) <= TitleTagWidth {
		return ""
	}
	runes := []rune(shortTitle)
	return strings.TrimSpace(string(runes[TitleTagWidth:]))
}

// Project flattens a raw record. It never fails: missing keys take their
// fallback values.
func Project(rec Record, baseURL string) ListingRecord {
	id := field(rec, "id")
	return ListingRecord{
		ID:          id,
		URL:         DetailURL(baseURL, id),
		Category:    categoryName(rec),
		Title:       StripTitleTag(field(rec, "shortTitle")),
		Description: field(rec, "description"),
		Area:        field(rec, "totalArea"),
		Price:       field(rec, "price"),
		Location:    field(rec, "location"),
		Country:     field(rec, "country"),
		District:    field(rec, "district"),
	}
}

func field(rec Record, key string) string {
	v, ok := rec[key]
	if !ok {
		return NoneValue
	}
	return Text(v)
}

func categoryName(rec Record) string {
	category, ok := rec["category"].(map[string]any)
	if !ok {
		return NoneValue
	}
	name, ok := category["name"]
	if !ok {
		return NoneValue
	}
	return Text(name)
}

// Text renders a decoded JSON value as a cell value.
// null becomes "", objects and arrays become compact JSON.
func Text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
