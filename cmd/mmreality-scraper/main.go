// Package main provides the entry point for the mmreality-scraper CLI.
//
// The scraper pages through the MM Reality offer API, flattens every offer
// into a listing record and exports the result set to a dated spreadsheet
// and a dated database table.
//
// Usage:
//
//	mmreality-scraper run
//	mmreality-scraper run --database-url sqlite://listings.db --max-pages 3
//	mmreality-scraper last
//
// See --help for all available options.
package main

func main() {
	Execute()
}
