package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/deverp-client/pkg/dashboard"
)

const trendBarWidth = 24

func DashboardCmd(opts *globalOptions) *cobra.Command {
	var (
		dataFile string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize orders, revenue and activity from a data export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataFile == "" {
				return fmt.Errorf("--data is required")
			}
			d, err := dashboard.Load(dataFile)
			if err != nil {
				return err
			}
			now := time.Now()
			return writeDashboard(cmd.OutOrStdout(), dashboard.Compute(d, now), format, now)
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "dashboard data file (JSON)")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, json or yaml")
	return cmd
}

func writeDashboard(w io.Writer, s dashboard.Stats, format string, now time.Time) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}

	panel(w, []string{
		titleStyle.Render("Dashboard"),
		fmt.Sprintf("Total orders:   %d", s.TotalOrders),
		fmt.Sprintf("Total revenue:  %s", dashboard.FormatCurrency(s.TotalRevenue)),
		fmt.Sprintf("Custom orders:  %d", s.CustomOrders),
		fmt.Sprintf("Memo requests:  %d", s.MemoRequests),
	})

	fmt.Fprintln(w, titleStyle.Render("Recent orders"))
	if len(s.Recent) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  No orders yet"))
	}
	for _, o := range s.Recent {
		fmt.Fprintf(w, "  #%-10s %-18s %-20s %3d/%d/%d  %12s  %s\n",
			o.OrderID, dashboard.FormatDate(o.Date), o.Customer,
			o.Stock, o.Memo, o.Custom, dashboard.FormatCurrency(o.Total), o.Status)
	}

	fmt.Fprintln(w, titleStyle.Render("Activity"))
	if len(s.Activities) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  No recent activity"))
	}
	for _, act := range s.Activities {
		fmt.Fprintf(w, "  %s  %s %s\n", accentStyle.Render(act.Title()), act.Text(), mutedStyle.Render(dashboard.TimeAgo(act.At, now)))
	}

	fmt.Fprintln(w, titleStyle.Render("Weekly orders"))
	peak := 0
	for _, b := range s.Trend {
		peak = max(peak, b.Orders)
	}
	for _, b := range s.Trend {
		fmt.Fprintf(w, "  %-7s %s %d\n", b.Label, bar(b.Orders, peak, trendBarWidth), b.Orders)
	}

	fmt.Fprintln(w, titleStyle.Render("Order types"))
	fmt.Fprintf(w, "  %-7s %s %d%%\n", "Stock", bar(s.Types.Stock, 100, trendBarWidth), s.Types.Stock)
	fmt.Fprintf(w, "  %-7s %s %d%%\n", "Custom", bar(s.Types.Custom, 100, trendBarWidth), s.Types.Custom)
	fmt.Fprintf(w, "  %-7s %s %d%%\n", "Memo", bar(s.Types.Memo, 100, trendBarWidth), s.Types.Memo)
	return nil
}
