// Package inventory maps the DevERP product listing onto the pagination
// package: the Product item type, the listing filters, and a PageSource
// backed by the /inventory/load-more/ endpoint.
package inventory

import (
	"strings"
)

// Status filter values.
const (
	All              = "all"
	StatusInStock    = "instock"
	StatusNotInStock = "notinstock"
)

// Sort orders accepted by the listing endpoint.
const (
	SortDesignNo = "design_no"
	SortCategory = "category"
	SortNewest   = "newest"
)

// Job is a manufacturing job holding pieces of a design.
type Job struct {
	JobNo    string `json:"job_no" yaml:"job_no"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Pcs      int    `json:"pcs,omitempty" yaml:"pcs,omitempty"`
}

// Product is one design in the inventory listing.
type Product struct {
	DesignNo    string `json:"design_no" yaml:"design_no"`
	Category    string `json:"category" yaml:"category"`
	Gender      string `json:"gender" yaml:"gender"`
	Collection  string `json:"collection" yaml:"collection"`
	Subcategory string `json:"subcategory" yaml:"subcategory"`
	ProductType string `json:"producttype" yaml:"producttype"`
	Status      string `json:"status" yaml:"status"`
	Pcs         int    `json:"pcs" yaml:"pcs"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	InStockJobs []Job  `json:"in_stock_jobs" yaml:"in_stock_jobs"`
	MemoJobs    []Job  `json:"memo_jobs" yaml:"memo_jobs"`
}

// InStock reports whether any job holds the design in stock.
func (p Product) InStock() bool {
	return len(p.InStockJobs) > 0
}

// JobNumbers lists in-stock job numbers followed by memo job numbers.
func (p Product) JobNumbers() []string {
	out := make([]string, 0, len(p.InStockJobs)+len(p.MemoJobs))
	for _, j := range p.InStockJobs {
		out = append(out, j.JobNo)
	}
	for _, j := range p.MemoJobs {
		out = append(out, j.JobNo)
	}
	return out
}

// StatusLabel is the display status, derived from the jobs when the backend
// leaves it empty.
func (p Product) StatusLabel() string {
	if p.Status != "" {
		return p.Status
	}
	if p.InStock() {
		return "In Stock"
	}
	return "Not In Stock"
}

// Matches applies f the way the listing endpoint does. A search that hits a
// job number matches on its own; otherwise every search term has to appear
// in the design number, category or subcategory.
func (p Product) Matches(f Filters) bool {
	if !p.matchesSearch(f.Search) {
		return false
	}

	exact := []struct{ want, got string }{
		{f.Category, p.Category},
		{f.Gender, p.Gender},
		{f.Collection, p.Collection},
		{f.Subcategory, p.Subcategory},
		{f.ProductType, p.ProductType},
	}
	for _, e := range exact {
		if e.want == "" || e.want == All {
			continue
		}
		if !strings.EqualFold(e.want, e.got) {
			return false
		}
	}

	switch f.Status {
	case StatusInStock:
		return p.InStock()
	case StatusNotInStock:
		return !p.InStock()
	}
	return true
}

func (p Product) matchesSearch(search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}

	for _, job := range p.JobNumbers() {
		if strings.Contains(strings.ToLower(job), search) {
			return true
		}
	}

	haystack := []string{
		strings.ToLower(p.DesignNo),
		strings.ToLower(p.Category),
		strings.ToLower(p.Subcategory),
	}
	for _, term := range strings.Fields(search) {
		found := false
		for _, h := range haystack {
			if strings.Contains(h, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CountVisible returns how many products pass f.
func CountVisible(products []Product, f Filters) int {
	n := 0
	for _, p := range products {
		if p.Matches(f) {
			n++
		}
	}
	return n
}
