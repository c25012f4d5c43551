package pagination

import (
	"context"
	"maps"
)

// Filters maps a filter name to its value.
type Filters map[string]string

// Clone returns an independent copy.
func (f Filters) Clone() Filters {
	if f == nil {
		return Filters{}
	}
	return maps.Clone(f)
}

// ListState is the local mirror of a paginated collection.
type ListState[T any] struct {
	// Items in server page order.
	Items []T

	// CurrentPage is the next page to request, starting at 1.
	CurrentPage int

	// HasMore is false once the server reports the last page.
	HasMore bool

	// Loading is true while a fetch is outstanding.
	Loading bool

	ActiveFilters Filters

	// Generation counts filter resets.
	Generation uint64

	// Total is the server-reported size of the filtered collection, 0 if unknown.
	Total int
}

func initialState[T any](filters Filters, generation uint64) ListState[T] {
	return ListState[T]{
		CurrentPage:   1,
		HasMore:       true,
		ActiveFilters: filters.Clone(),
		Generation:    generation,
	}
}

// PageRequest identifies one page to fetch.
type PageRequest struct {
	Page    int
	PerPage int
	Filters Filters
}

// Page is one batch of items with the server's pagination metadata.
type Page[T any] struct {
	Items []T

	// HasMore is the server's has_more flag, nil when it was not reported.
	HasMore *bool

	// Pages is the total page count, 0 when not reported.
	Pages int

	// NextPage is the page the server says to request next, 0 when not reported.
	NextPage int

	// Total is the collection size, 0 when not reported.
	Total int
}

// MoreAfter reports whether pages follow the requested one. has_more wins,
// then the page count, then a full page is taken to mean more may follow.
func (p Page[T]) MoreAfter(requested, perPage int) bool {
	switch {
	case p.HasMore != nil:
		return *p.HasMore
	case p.Pages > 0:
		return requested < p.Pages
	default:
		return perPage > 0 && len(p.Items) >= perPage
	}
}

// Next returns the page to request after requested.
func (p Page[T]) Next(requested int) int {
	if p.NextPage > 0 {
		return p.NextPage
	}
	return requested + 1
}

// PageSource fetches single pages from the backend.
type PageSource[T any] interface {
	FetchPage(ctx context.Context, req PageRequest) (Page[T], error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc[T any] func(ctx context.Context, req PageRequest) (Page[T], error)

// FetchPage calls f.
func (f PageSourceFunc[T]) FetchPage(ctx context.Context, req PageRequest) (Page[T], error) {
	return f(ctx, req)
}

// View renders a ListState. Calls are serialized by the Synchronizer and
// must not call back into it, except for Snapshot.
type View[T any] interface {
	// Reset clears the rendered list.
	Reset()

	// Append renders items, the first of which sits at index start.
	Append(items []T, start int)

	// SetLoading shows or hides the loading indicator.
	SetLoading(loading bool)

	// SetCounts updates the shown/total counters.
	SetCounts(shown, total int)
}

// Notifier surfaces transient, non-blocking messages to the user.
type Notifier interface {
	Danger(message string)
}

// NopView discards all rendering.
type NopView[T any] struct{}

func (NopView[T]) Reset()             {}
func (NopView[T]) Append([]T, int)    {}
func (NopView[T]) SetLoading(bool)    {}
func (NopView[T]) SetCounts(int, int) {}

type nopNotifier struct{}

func (nopNotifier) Danger(string) {}
