package listing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var rec Record
	require.NoError(t, dec.Decode(&rec), "decode %q", raw)
	return rec
}

func TestStripTitleTag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "tag then title", input: "XXXXXXXXHello World", expected: "Hello World"},
		{name: "surrounding whitespace", input: "Prodej   byt 2+kk  ", expected: "byt 2+kk"},
		{name: "shorter than tag", input: "Short", expected: ""},
		{name: "exactly tag width", input: "12345678", expected: ""},
		{name: "one past tag", input: "12345678x", expected: "x"},
		{name: "empty", input: "", expected: ""},
		{name: "fallback sentinel", input: NoneValue, expected: ""},
		{name: "multibyte tag", input: "Pronájem byt 3+1", expected: "byt 3+1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripTitleTag(tt.input))
		})
	}
}

func TestProject_AllFields(t *testing.T) {
	rec := decodeRecord(t, `{
		"id": 123456,
		"shortTitle": "Prodej  Byt 2+kk, 54 m²",
		"description": "Světlý byt",
		"price": 4990000,
		"location": "Praha 4 - Nusle",
		"category": {"id": 10, "name": "Byty"},
		"country": "Česká republika",
		"district": "Praha",
		"totalArea": 54.5
	}`)

	assert.Equal(t, ListingRecord{
		ID:          "123456",
		URL:         "https://www.mmreality.cz/nemovitosti/123456/?context=list",
		Category:    "Byty",
		Title:       "Byt 2+kk, 54 m²",
		Description: "Světlý byt",
		Area:        "54.5",
		Price:       "4990000",
		Location:    "Praha 4 - Nusle",
		Country:     "Česká republika",
		District:    "Praha",
	}, Project(rec, ""))
}

func TestProject_EmptyRecordFallbacks(t *testing.T) {
	assert.Equal(t, ListingRecord{
		ID:          NoneValue,
		URL:         "https://www.mmreality.cz/nemovitosti/None/?context=list",
		Category:    NoneValue,
		Title:       "",
		Description: NoneValue,
		Area:        NoneValue,
		Price:       NoneValue,
		Location:    NoneValue,
		Country:     NoneValue,
		District:    NoneValue,
	}, Project(Record{}, ""))
}

func TestProject_Category(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "missing", raw: `{}`, expected: NoneValue},
		{name: "null", raw: `{"category": null}`, expected: NoneValue},
		{name: "not an object", raw: `{"category": "Byty"}`, expected: NoneValue},
		{name: "missing name", raw: `{"category": {"id": 10}}`, expected: NoneValue},
		{name: "null name", raw: `{"category": {"name": null}}`, expected: ""},
		{name: "name", raw: `{"category": {"name": "Domy"}}`, expected: "Domy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Project(decodeRecord(t, tt.raw), "").Category)
		})
	}
}

func TestProject_CustomBaseURL(t *testing.T) {
	got := Project(Record{"id": "abc"}, "http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080/nemovitosti/abc/?context=list", got.URL)
}

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "nil", input: nil, expected: ""},
		{name: "string", input: "Brno", expected: "Brno"},
		{name: "number", input: json.Number("1.50"), expected: "1.50"},
		{name: "float", input: 3.25, expected: "3.25"},
		{name: "bool", input: true, expected: "true"},
		{name: "object", input: map[string]any{"a": json.Number("1")}, expected: `{"a":1}`},
		{name: "array", input: []any{"x", "y"}, expected: `["x","y"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestValuesMatchColumns(t *testing.T) {
	values := ListingRecord{ID: "1", District: "Praha"}.Values()

	require.Len(t, values, len(Columns))
	assert.Equal(t, "1", values[0])
	assert.Equal(t, "Praha", values[len(values)-1])
}
