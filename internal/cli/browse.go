package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sternrassler/deverp-client/internal/tui"
	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/scroll"
)

// filterFlags are the listing filters shared by browse and products.
type filterFlags struct {
	category    string
	gender      string
	collection  string
	subcategory string
	productType string
	status      string
	search      string
	sort        string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.category, "category", "", "category filter")
	fl.StringVar(&f.gender, "gender", "", "gender filter")
	fl.StringVar(&f.collection, "collection", "", "collection filter")
	fl.StringVar(&f.subcategory, "subcategory", "", "subcategory filter")
	fl.StringVar(&f.productType, "producttype", "", "product type filter")
	fl.StringVar(&f.status, "status", "", "stock status: all, instock or notinstock")
	fl.StringVar(&f.search, "search", "", "search design, category or job numbers")
	fl.StringVar(&f.sort, "sort", "", "sort order: design_no, category or newest")
}

func (f *filterFlags) filters() inventory.Filters {
	return inventory.Filters{
		Category:    f.category,
		Gender:      f.gender,
		Collection:  f.collection,
		Subcategory: f.subcategory,
		ProductType: f.productType,
		Status:      f.status,
		Search:      f.search,
		Sort:        f.sort,
	}
}

func BrowseCmd(opts *globalOptions) *cobra.Command {
	ff := &filterFlags{}
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse products with infinite scrolling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, opts, ff)
		},
	}
	ff.register(cmd)
	return cmd
}

func runBrowse(cmd *cobra.Command, opts *globalOptions, ff *filterFlags) error {
	ctx := cmd.Context()
	a, err := opts.open(ctx, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.prefsStore()
	if err != nil {
		a.logger.Warn().Err(err).Msg("View preference unavailable")
	}

	return tui.Run(ctx, tui.Options{
		Getter: a.client,
		Sync:   a.cfg.SyncOptions(inventory.SyncOptions()),
		Scroll: scroll.Config{
			Threshold: a.cfg.Scroll.Threshold,
			Debounce:  a.cfg.Scroll.Debounce,
		},
		Center:    a.center,
		Prefs:     store,
		Filters:   ff.filters(),
		AltScreen: true,
	})
}
