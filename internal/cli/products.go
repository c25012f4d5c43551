package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/pagination"
)

const formatTable = "table"

func ProductsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List and export inventory products",
	}
	cmd.AddCommand(productsListCmd(opts), productsExportCmd(opts))
	return cmd
}

func productsListCmd(opts *globalOptions) *cobra.Command {
	ff := &filterFlags{}
	var (
		pages  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the first pages of the product listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var view pagination.View[inventory.Product]
			var rows *rowView
			if format == formatTable {
				rows = newRowView(out)
				view = rows
			}

			list := pagination.New[inventory.Product](inventory.NewProductSource(a.client), view, a.center, a.cfg.SyncOptions(inventory.SyncOptions()))
			outcome, err := list.ApplyFilters(cmd.Context(), ff.filters().Map())
			for i := 1; i < pages && outcome == pagination.OutcomeLoaded; i++ {
				outcome, err = list.LoadNextPage(cmd.Context())
			}
			if rows != nil {
				rows.Flush()
			}
			a.flushNotices(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			snap := list.Snapshot()
			if rows == nil {
				return inventory.WriteProducts(out, snap.Items, format)
			}
			total := snap.Total
			if total == 0 {
				total = len(snap.Items)
			}
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Showing %d of %d products", len(snap.Items), total)))
			if snap.HasMore {
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("More available: --pages %d", pages+1)))
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, json or yaml")
	return cmd
}

func productsExportCmd(opts *globalOptions) *cobra.Command {
	ff := &filterFlags{}
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch every matching product in parallel and write it out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			products, err := inventory.ExportAll(cmd.Context(), a.client, ff.filters(), a.cfg.BatchConfig())
			if err != nil && len(products) == 0 {
				return fmt.Errorf("export products: %w", err)
			}
			if err != nil {
				// Partial results are still written.
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("! export incomplete: "+err.Error()))
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := inventory.WriteProducts(w, products, format); err != nil {
				return err
			}
			if w != cmd.OutOrStdout() {
				fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(fmt.Sprintf("✔ exported %d products to %s", len(products), output)))
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&format, "format", inventory.FormatJSON, "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

// rowView prints products as they are appended.
type rowView struct {
	tw      *tabwriter.Writer
	started bool
}

func newRowView(w io.Writer) *rowView {
	return &rowView{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (v *rowView) Reset() {}

func (v *rowView) Append(items []inventory.Product, start int) {
	if !v.started {
		fmt.Fprintln(v.tw, "#\tDESIGN\tCATEGORY\tPCS\tSTATUS\tJOBS")
		v.started = true
	}
	for i, p := range items {
		fmt.Fprintf(v.tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			start+i+1, p.DesignNo, p.Category, p.Pcs, p.StatusLabel(), strings.Join(p.JobNumbers(), " "))
	}
}

func (v *rowView) SetLoading(bool) {}

func (v *rowView) SetCounts(int, int) {}

func (v *rowView) Flush() { v.tw.Flush() }
