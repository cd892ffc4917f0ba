package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ListFilter is the transient filter/sort/page state of a list page. Zero
// values mean "not set" and are never sent.
type ListFilter struct {
	Search  string
	Sort    string
	Order   SortOrder
	Page    int
	PerPage int
	// Params holds entity specific filters such as a book's condition.
	Params map[string]string
}

func (f ListFilter) Clone() ListFilter {
	c := f
	if f.Params != nil {
		c.Params = make(map[string]string, len(f.Params))
		for k, v := range f.Params {
			c.Params[k] = v
		}
	}
	return c
}

// Values builds the query string from the present fields only.
func (f ListFilter) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		v.Set("search", s)
	}
	if f.Sort != "" {
		v.Set("sort", f.Sort)
	}
	if f.Order != "" {
		v.Set("order", string(f.Order))
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	}
	for k, val := range f.Params {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// ListSchema holds the closed enumerations a list filter is checked against.
type ListSchema struct {
	Entity     string
	SortFields []string
	PageSizes  []int
	Params     map[string][]string
	Defaults   ListFilter
}

func (s ListSchema) Validate(f ListFilter) error {
	verrs := errs.ValidationErrors{}
	if f.Sort != "" && !contains(s.SortFields, f.Sort) {
		verrs["sort"] = fmt.Sprintf("sort must be one of: %s", strings.Join(s.SortFields, ", "))
	}
	if f.Order != "" && f.Order != Asc && f.Order != Desc {
		verrs["order"] = "order must be asc or desc"
	}
	if f.Page < 0 {
		verrs["page"] = "page must be positive"
	}
	if f.PerPage != 0 && !containsInt(s.PageSizes, f.PerPage) {
		verrs["per_page"] = fmt.Sprintf("per_page must be one of: %s", joinInts(s.PageSizes))
	}
	for k, val := range f.Params {
		allowed, ok := s.Params[k]
		if !ok {
			verrs[k] = fmt.Sprintf("unknown filter %q", k)
			continue
		}
		if val != "" && len(allowed) > 0 && !contains(allowed, val) {
			verrs[k] = fmt.Sprintf("%s must be one of: %s", k, strings.Join(allowed, ", "))
		}
	}
	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

var (
	BookListSchema = ListSchema{
		Entity:     "books",
		SortFields: []string{"title", "publication_year"},
		PageSizes:  []int{12, 24, 48},
		Params: map[string][]string{
			"condition": {string(ConditionNew), string(ConditionUsed), string(ConditionRefurbished)},
		},
		Defaults: ListFilter{Sort: "title", Order: Asc, Page: 1, PerPage: 12},
	}
	GenreListSchema = ListSchema{
		Entity:     "genres",
		SortFields: []string{"name"},
		PageSizes:  []int{10, 25, 50},
		Defaults:   ListFilter{Page: 1, PerPage: 10},
	}
	TransactionListSchema = ListSchema{
		Entity:     "transactions",
		SortFields: []string{"id", "total_amount", "total_price"},
		PageSizes:  []int{10, 20, 50},
		Defaults:   ListFilter{Sort: "id", Order: Desc, Page: 1, PerPage: 10},
	}
)

// Meta is the normalized pagination of a list response.
type Meta struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Total       int `json:"total"`
	PerPage     int `json:"perPage,omitempty"`
}

type Page[T any] struct {
	Items []T `json:"items"`
	Meta  Meta `json:"meta"`
}

func contains(xs []string, s string) bool {
	for i := range xs {
		if xs[i] == s {
			return true
		}
	}
	return false
}

func containsInt(xs []int, n int) bool {
	for i := range xs {
		if xs[i] == n {
			return true
		}
	}
	return false
}

func joinInts(xs []int) string {
	parts := make([]string, 0, len(xs))
	for _, x := range xs {
		parts = append(parts, strconv.Itoa(x))
	}
	return strings.Join(parts, ", ")
}
