package listing

// Page is one slice of an ordered result set plus its pagination metadata.
// From and To are null on an empty page.
type Page[T any] struct {
	Data        []T   `json:"data"`
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

// Paginate wraps one page of rows out of total.
func Paginate[T any](data []T, total int64, perPage, page int) Page[T] {
	if data == nil {
		data = []T{}
	}
	p := Page[T]{
		Data:        data,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage(total, perPage),
	}
	if len(data) > 0 && page >= 1 && page <= p.LastPage {
		from64 := int64(page-1)*int64(perPage) + 1
		from, to := int(from64), int(from64)+len(data)-1
		p.From, p.To = &from, &to
	}
	return p
}

// Offset returns the row offset of page. ok is false when page lies past the
// last page, in which case no query should be issued.
func Offset(total int64, perPage, page int) (offset int, ok bool) {
	if page < 1 || page > lastPage(total, perPage) {
		return 0, false
	}
	offset = (page - 1) * perPage
	return offset, int64(offset) < total
}

// Empty returns a page with no rows.
func Empty[T any](perPage, page int) Page[T] {
	return Paginate[T](nil, 0, perPage, page)
}

// Map converts the rows of p with fn, keeping the metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Data))
	for _, row := range p.Data {
		out = append(out, fn(row))
	}
	return Page[U]{
		Data:        out,
		Total:       p.Total,
		PerPage:     p.PerPage,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		From:        p.From,
		To:          p.To,
	}
}

func lastPage(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
