package listing

import (
	"strconv"
	"strings"
)

// Sort orders understood by the listing.
const (
	SortLatest        = "latest"
	SortOldest        = "oldest"
	SortMostCommented = "most_commented"
	SortProvince      = "province"
	SortCategory      = "category"
)

const categoryAll = "all"

// Params are the raw query-string inputs of a listing request.
type Params struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Province string `form:"province"`
	Sort     string `form:"sort"`
	Page     string `form:"page"`
}

// Filters is the normalized, echoable form of Params.
type Filters struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Province string `json:"province"`
	Sort     string `json:"sort"`
	Page     int    `json:"page"`

	categoryID *uint
	provinceID *uint
}

// CategoryID returns the selected category, if any.
func (f Filters) CategoryID() (uint, bool) {
	if f.categoryID == nil {
		return 0, false
	}
	return *f.categoryID, true
}

// ProvinceID returns the selected province, if any.
func (f Filters) ProvinceID() (uint, bool) {
	if f.provinceID == nil {
		return 0, false
	}
	return *f.provinceID, true
}

// ParseFilters normalizes p. Nothing in p can make it fail: unusable values
// fall back to their defaults and are echoed that way.
func ParseFilters(p Params) Filters {
	f := Filters{
		Search:   strings.TrimSpace(p.Search),
		Category: categoryAll,
		Sort:     SortLatest,
		Page:     1,
	}

	if id, ok := parseID(p.Category); ok {
		f.categoryID = &id
		f.Category = strconv.FormatUint(uint64(id), 10)
	}
	if id, ok := parseID(p.Province); ok {
		f.provinceID = &id
		f.Province = strconv.FormatUint(uint64(id), 10)
	}

	switch s := strings.TrimSpace(p.Sort); s {
	case SortOldest, SortMostCommented, SortProvince, SortCategory:
		f.Sort = s
	}

	if n, err := strconv.Atoi(strings.TrimSpace(p.Page)); err == nil && n > 1 {
		f.Page = n
	}
	return f
}

// WithCategory pins the category filter to id, overriding any request value.
func (f Filters) WithCategory(id uint) Filters {
	f.categoryID = &id
	f.Category = strconv.FormatUint(uint64(id), 10)
	return f
}

func parseID(raw string) (uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, categoryAll) {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
