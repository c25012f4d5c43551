// Package dashboard computes the admin dashboard statistics from an order
// data export: totals, recent orders, an activity feed, weekly trends and
// the order type split.
package dashboard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Data is the dashboard input. Keys follow the storefront export.
type Data struct {
	Orders       []Order           `json:"customer_orders"`
	Cart         []json.RawMessage `json:"cart_customer"`
	MemoRequests []json.RawMessage `json:"memoRequests"`
	CustomOrders []json.RawMessage `json:"custom_orders"`
}

// Order is one placed customer order.
type Order struct {
	OrderID     string    `json:"order_id"`
	Date        Timestamp `json:"date"`
	Status      string    `json:"status"`
	Customer    Customer  `json:"customer"`
	Payment     Payment   `json:"payment"`
	Items       Items     `json:"items"`
	ProcessedAt Timestamp `json:"processed_at"`
	CompletedAt Timestamp `json:"completed_at"`
	CancelledAt Timestamp `json:"cancelled_at"`
}

// Customer identifies who placed an order.
type Customer struct {
	Name string `json:"name"`
}

// Payment holds the order total.
type Payment struct {
	Total float64 `json:"total"`
}

// Items groups the order lines by type. Only the counts are used.
type Items struct {
	Stock  []json.RawMessage `json:"stock"`
	Memo   []json.RawMessage `json:"memo"`
	Custom []json.RawMessage `json:"custom"`
}

// CustomerName returns the customer's name or "Customer".
func (o Order) CustomerName() string {
	if o.Customer.Name == "" {
		return "Customer"
	}
	return o.Customer.Name
}

// StatusLabel returns the status or "Pending".
func (o Order) StatusLabel() string {
	if o.Status == "" {
		return "Pending"
	}
	return o.Status
}

// Timestamp accepts the date formats found in order exports. A missing or
// unparsable value is the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006, 3:04:05 PM",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Numbers and nulls are treated as absent.
		t.Time = time.Time{}
		return nil
	}
	t.Time = ParseTime(s)
	return nil
}

// ParseTime parses s with the supported layouts, returning the zero time
// when none matches.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Load reads Data from a JSON file.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	return Parse(raw)
}

// Parse decodes Data. Unknown keys are ignored.
func Parse(raw []byte) (Data, error) {
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("decode dashboard data: %w", err)
	}
	return d, nil
}
