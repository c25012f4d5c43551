package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sternrassler/deverp-client/pkg/pagination"
	"gopkg.in/yaml.v3"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ExportAll fetches every product matching f with a parallel batch fetch.
func ExportAll(ctx context.Context, getter Getter, f Filters, cfg pagination.BatchConfig) ([]Product, error) {
	fetcher := pagination.NewBatchFetcher[Product](NewProductSource(getter), cfg)
	return fetcher.FetchAll(ctx, f.Map())
}

// WriteProducts encodes products to w in format.
func WriteProducts(w io.Writer, products []Product, format string) error {
	if products == nil {
		products = []Product{}
	}
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(products)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(products); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q (want %s or %s)", format, FormatJSON, FormatYAML)
	}
}
