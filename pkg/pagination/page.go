package pagination

// PageParams holds offset pagination inputs. Page is 1-based.
type PageParams struct {
	Page  int
	Limit int
}

// Page is one slice of an offset-paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Normalize clamps the page to at least 1 and the limit to
// [1, MaxLimit], substituting defaultLimit for a missing limit.
func (p PageParams) Normalize(defaultLimit int) PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p PageParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// NewPage assembles a page and derives the page count from total.
func NewPage[T any](items []T, params PageParams, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if params.Limit > 0 {
		pages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}
	return Page[T]{
		Items:      items,
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: pages,
	}
}

// MapPage converts the items of a page, keeping the counters.
func MapPage[T, U any](in Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(in.Items))
	for _, item := range in.Items {
		out = append(out, fn(item))
	}
	return Page[U]{
		Items:      out,
		Page:       in.Page,
		Limit:      in.Limit,
		Total:      in.Total,
		TotalPages: in.TotalPages,
	}
}
