package inventory

import (
	"context"
	"net/url"
	"strconv"

	"github.com/Sternrassler/deverp-client/pkg/client"
	"github.com/Sternrassler/deverp-client/pkg/pagination"
)

// FailureMessage is shown when a listing page cannot be loaded.
const FailureMessage = "Failed to load more products. Please try again."

// listingResponse is the /inventory/load-more/ payload.
type listingResponse struct {
	Success     bool      `json:"success"`
	Products    []Product `json:"products"`
	HasMore     *bool     `json:"has_more"`
	Pages       int       `json:"pages"`
	NextPage    int       `json:"next_page"`
	Total       int       `json:"total"`
	TotalCount  int       `json:"total_count"`
	CurrentPage int       `json:"current_page"`
}

// Getter is the part of client.Client the source needs.
type Getter interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

var _ Getter = (*client.Client)(nil)

// ProductSource fetches listing pages.
type ProductSource struct {
	getter Getter
	path   string
}

// NewProductSource creates a source for the standard listing endpoint.
func NewProductSource(getter Getter) *ProductSource {
	return &ProductSource{getter: getter, path: client.ListingPath}
}

// FetchPage implements pagination.PageSource.
func (s *ProductSource) FetchPage(ctx context.Context, req pagination.PageRequest) (pagination.Page[Product], error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))
	query.Set("per_page", strconv.Itoa(req.PerPage))
	for key, value := range req.Filters {
		if value != "" {
			query.Set(key, value)
		}
	}

	var resp listingResponse
	if err := s.getter.GetJSON(ctx, s.path, query, &resp); err != nil {
		return pagination.Page[Product]{}, err
	}

	total := resp.Total
	if total == 0 {
		total = resp.TotalCount
	}
	return pagination.Page[Product]{
		Items:    resp.Products,
		HasMore:  resp.HasMore,
		Pages:    resp.Pages,
		NextPage: resp.NextPage,
		Total:    total,
	}, nil
}

// SyncOptions returns synchronizer options for the product list.
func SyncOptions() pagination.Options {
	opts := pagination.DefaultOptions()
	opts.Name = "products"
	opts.FailureMessage = FailureMessage
	return opts
}

// NewSynchronizer wires a product list synchronizer to the backend.
func NewSynchronizer(getter Getter, view pagination.View[Product], notifier pagination.Notifier) *pagination.Synchronizer[Product] {
	return pagination.New[Product](NewProductSource(getter), view, notifier, SyncOptions())
}
