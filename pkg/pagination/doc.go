// Package pagination walks every page of the offer search API and flattens
// the offers into a listing.ResultSet.
//
// The API's pagesCount hint is not reliable, so the only normal stop
// signal is a page with no offers. Pages are fetched strictly one after
// another; the query state is a value owned by the loop.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig())
//	f := pagination.NewFetcher(c, listing.DefaultQueryState(), pagination.DefaultConfig())
//	result, err := f.FetchAll(ctx)
//	// result.Records holds everything fetched before err, if any
//
// The fetcher:
//   - Starts from page 1, offset 0
//   - Stops on the first empty page
//   - Stops on the first transport, status or decode error and keeps the
//     records fetched so far
//   - Never retries
package pagination
