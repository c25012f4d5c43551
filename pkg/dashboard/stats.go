package dashboard

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	recentOrderLimit = 5
	activityLimit    = 4
	trendWeeks       = 6
)

// Stats is everything the dashboard shows.
type Stats struct {
	TotalOrders  int          `json:"total_orders" yaml:"total_orders"`
	TotalRevenue float64      `json:"total_revenue" yaml:"total_revenue"`
	CustomOrders int          `json:"custom_orders" yaml:"custom_orders"`
	MemoRequests int          `json:"memo_requests" yaml:"memo_requests"`
	Recent       []OrderRow   `json:"recent_orders" yaml:"recent_orders"`
	Activities   []Activity   `json:"activities" yaml:"activities"`
	Trend        []WeekBucket `json:"trend" yaml:"trend"`
	Types        TypeShare    `json:"order_types" yaml:"order_types"`
}

// OrderRow is a line in the recent orders table.
type OrderRow struct {
	OrderID  string    `json:"order_id" yaml:"order_id"`
	Date     time.Time `json:"date" yaml:"date"`
	Customer string    `json:"customer" yaml:"customer"`
	Stock    int       `json:"stock" yaml:"stock"`
	Memo     int       `json:"memo" yaml:"memo"`
	Custom   int       `json:"custom" yaml:"custom"`
	Total    float64   `json:"total" yaml:"total"`
	Status   string    `json:"status" yaml:"status"`
}

// ActivityKind distinguishes placed orders from status changes.
type ActivityKind string

const (
	ActivityPlaced       ActivityKind = "order_placed"
	ActivityStatusChange ActivityKind = "status_change"
)

// Activity is an entry in the activity feed.
type Activity struct {
	Kind     ActivityKind `json:"type" yaml:"type"`
	OrderID  string       `json:"order_id" yaml:"order_id"`
	Customer string       `json:"customer,omitempty" yaml:"customer,omitempty"`
	Status   string       `json:"status,omitempty" yaml:"status,omitempty"`
	At       time.Time    `json:"date" yaml:"date"`
}

// Title is the feed heading for the activity.
func (a Activity) Title() string {
	if a.Kind == ActivityPlaced {
		return "New order received"
	}
	return "Order status updated"
}

// Text is the feed body for the activity.
func (a Activity) Text() string {
	if a.Kind == ActivityPlaced {
		return fmt.Sprintf("Order #%s placed by %s", a.OrderID, a.Customer)
	}
	return fmt.Sprintf("Order #%s marked as %s", a.OrderID, a.Status)
}

// WeekBucket counts orders placed in one week.
type WeekBucket struct {
	Label  string    `json:"label" yaml:"label"`
	Start  time.Time `json:"start" yaml:"start"`
	Orders int       `json:"orders" yaml:"orders"`
	Custom int       `json:"custom" yaml:"custom"`
	Memo   int       `json:"memo" yaml:"memo"`
}

// TypeShare is the percentage split of items by type. The three values sum
// to 100 unless there are no items at all.
type TypeShare struct {
	Stock  int `json:"stock" yaml:"stock"`
	Custom int `json:"custom" yaml:"custom"`
	Memo   int `json:"memo" yaml:"memo"`
}

// Compute derives the dashboard statistics at now.
func Compute(d Data, now time.Time) Stats {
	s := Stats{TotalOrders: len(d.Orders)}

	for _, o := range d.Orders {
		s.TotalRevenue += o.Payment.Total
		s.CustomOrders += len(o.Items.Custom)
		s.MemoRequests += len(o.Items.Memo)
	}
	s.CustomOrders += len(d.CustomOrders)
	s.MemoRequests += len(d.MemoRequests)

	s.Recent = recentOrders(d.Orders)
	s.Activities = recentActivities(d.Orders)
	s.Trend = weeklyTrend(d.Orders, now)
	s.Types = typeShare(d)
	return s
}

func recentOrders(orders []Order) []OrderRow {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	if len(sorted) > recentOrderLimit {
		sorted = sorted[:recentOrderLimit]
	}

	rows := make([]OrderRow, 0, len(sorted))
	for _, o := range sorted {
		rows = append(rows, OrderRow{
			OrderID:  o.OrderID,
			Date:     o.Date.Time,
			Customer: o.CustomerName(),
			Stock:    len(o.Items.Stock),
			Memo:     len(o.Items.Memo),
			Custom:   len(o.Items.Custom),
			Total:    o.Payment.Total,
			Status:   o.StatusLabel(),
		})
	}
	return rows
}

func recentActivities(orders []Order) []Activity {
	var all []Activity
	for _, o := range orders {
		all = append(all, Activity{
			Kind:     ActivityPlaced,
			OrderID:  o.OrderID,
			Customer: o.CustomerName(),
			At:       o.Date.Time,
		})
		changes := []struct {
			at     Timestamp
			status string
		}{
			{o.ProcessedAt, "In Process"},
			{o.CompletedAt, "Completed"},
			{o.CancelledAt, "Cancelled"},
		}
		for _, c := range changes {
			if c.at.IsZero() {
				continue
			}
			all = append(all, Activity{
				Kind:    ActivityStatusChange,
				OrderID: o.OrderID,
				Status:  c.status,
				At:      c.at.Time,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].At.After(all[j].At)
	})
	if len(all) > activityLimit {
		all = all[:activityLimit]
	}
	return all
}

// weeklyTrend splits the six weeks before now into consecutive buckets.
func weeklyTrend(orders []Order, now time.Time) []WeekBucket {
	start := now.AddDate(0, 0, -7*trendWeeks)
	buckets := make([]WeekBucket, trendWeeks)
	for i := range buckets {
		weekStart := start.AddDate(0, 0, 7*i)
		buckets[i] = WeekBucket{
			Label: weekStart.Format("Jan 2"),
			Start: weekStart,
		}
	}

	for _, o := range orders {
		if o.Date.IsZero() {
			continue
		}
		for i := range buckets {
			weekEnd := buckets[i].Start.AddDate(0, 0, 7)
			if o.Date.Before(buckets[i].Start) || !o.Date.Before(weekEnd) {
				continue
			}
			buckets[i].Orders++
			buckets[i].Custom += len(o.Items.Custom)
			buckets[i].Memo += len(o.Items.Memo)
			break
		}
	}
	return buckets
}

func typeShare(d Data) TypeShare {
	var stock, custom, memo int
	for _, o := range d.Orders {
		stock += len(o.Items.Stock)
		custom += len(o.Items.Custom)
		memo += len(o.Items.Memo)
	}
	stock += len(d.Cart)
	custom += len(d.CustomOrders)
	memo += len(d.MemoRequests)

	total := stock + custom + memo
	if total == 0 {
		return TypeShare{}
	}

	pct := func(n int) int {
		return int(math.Round(float64(n) / float64(total) * 100))
	}
	share := TypeShare{Stock: pct(stock), Custom: pct(custom), Memo: pct(memo)}

	// Rounding can miss 100 in either direction; the largest segment absorbs it.
	diff := 100 - (share.Stock + share.Custom + share.Memo)
	switch {
	case share.Stock >= share.Custom && share.Stock >= share.Memo:
		share.Stock += diff
	case share.Custom >= share.Stock && share.Custom >= share.Memo:
		share.Custom += diff
	default:
		share.Memo += diff
	}
	return share
}

// FormatCurrency renders amount as US dollars, e.g. "$1,234.50".
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	cents := int64(math.Round(amount * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

// FormatDate renders t as "January 2, 2006".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown date"
	}
	return t.Format("January 2, 2006")
}

// TimeAgo describes how long before now t happened. Anything a week or
// older is shown as a date.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "Unknown date"
	}
	secs := math.Round(now.Sub(t).Seconds())
	mins := math.Round(secs / 60)
	hours := math.Round(mins / 60)
	days := math.Round(hours / 24)

	switch {
	case secs < 60:
		return fmt.Sprintf("%d seconds ago", int(secs))
	case mins < 60:
		return fmt.Sprintf("%d minutes ago", int(mins))
	case hours < 24:
		return fmt.Sprintf("%d hours ago", int(hours))
	case days < 7:
		return fmt.Sprintf("%d days ago", int(days))
	default:
		return FormatDate(t)
	}
}
