// Package pagination keeps a local mirror of a remotely paginated collection
// in sync with a view.
//
// A Synchronizer owns one ListState. LoadNextPage extends the list by one
// page; ApplyFilters replaces the active filters and starts over from page 1.
// At most one fetch per list is in flight: the check-and-set of the loading
// flag happens under a mutex, so concurrent callers get OutcomeSkipped instead
// of a second request.
//
// Every filter reset bumps a generation counter. A fetch remembers the
// generation it started in and its result is dropped (OutcomeStale) when the
// generation has moved on, so a slow page from an old filter set can never
// overwrite the new list.
//
// Example usage:
//
//	sync := pagination.New[inventory.Product](source, view, notifier, pagination.DefaultOptions())
//	if _, err := sync.ApplyFilters(ctx, pagination.Filters{"category": "Rings"}); err != nil {
//		// already reported through the notifier
//	}
//	sync.LoadNextPage(ctx)
//
// BatchFetcher is the bulk counterpart used for exports: it walks every page
// of a PageSource with a bounded worker pool, independent of any ListState.
package pagination
