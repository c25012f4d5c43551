package inventory

import (
	"github.com/Sternrassler/deverp-client/pkg/pagination"
)

// Filter keys as sent on the wire.
const (
	KeyCategory    = "category"
	KeyGender      = "gender"
	KeyCollection  = "collection"
	KeySubcategory = "subcategory"
	KeyProductType = "producttype"
	KeyStatus      = "status"
	KeySearch      = "search"
	KeySort        = "sort"
)

// Filters are the listing filters. Empty fields mean "all".
type Filters struct {
	Category    string `yaml:"category,omitempty"`
	Gender      string `yaml:"gender,omitempty"`
	Collection  string `yaml:"collection,omitempty"`
	Subcategory string `yaml:"subcategory,omitempty"`
	ProductType string `yaml:"producttype,omitempty"`
	Status      string `yaml:"status,omitempty"`
	Search      string `yaml:"search,omitempty"`
	Sort        string `yaml:"sort,omitempty"`
}

// Map returns the wire form. Empty select filters become "all"; empty
// search and sort are left out.
func (f Filters) Map() pagination.Filters {
	m := pagination.Filters{
		KeyCategory:    orAll(f.Category),
		KeyGender:      orAll(f.Gender),
		KeyCollection:  orAll(f.Collection),
		KeySubcategory: orAll(f.Subcategory),
		KeyProductType: orAll(f.ProductType),
		KeyStatus:      orAll(f.Status),
	}
	if f.Search != "" {
		m[KeySearch] = f.Search
	}
	if f.Sort != "" {
		m[KeySort] = f.Sort
	}
	return m
}

// FiltersFromMap is the inverse of Map; "all" reads back as empty.
func FiltersFromMap(m pagination.Filters) Filters {
	get := func(key string) string {
		v := m[key]
		if v == All {
			return ""
		}
		return v
	}
	return Filters{
		Category:    get(KeyCategory),
		Gender:      get(KeyGender),
		Collection:  get(KeyCollection),
		Subcategory: get(KeySubcategory),
		ProductType: get(KeyProductType),
		Status:      get(KeyStatus),
		Search:      m[KeySearch],
		Sort:        m[KeySort],
	}
}

func orAll(v string) string {
	if v == "" {
		return All
	}
	return v
}
