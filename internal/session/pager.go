package session

// DefaultQuestionsPerPage is the page size when none is configured.
const DefaultQuestionsPerPage = 5

// Pager groups questions into fixed-size pages.
type Pager struct {
	total   int
	perPage int
}

// NewPager creates a Pager over total questions.
func NewPager(total, perPage int) Pager {
	if perPage <= 0 {
		perPage = DefaultQuestionsPerPage
	}
	if total < 0 {
		total = 0
	}
	return Pager{total: total, perPage: perPage}
}

// PerPage returns the page size.
func (p Pager) PerPage() int { return p.perPage }

// TotalPages returns the number of pages (0 for no questions).
func (p Pager) TotalPages() int {
	return (p.total + p.perPage - 1) / p.perPage
}

// PageOf returns the page containing the question at index.
func (p Pager) PageOf(index int) int {
	if index < 0 {
		return 0
	}
	if index >= p.total && p.total > 0 {
		index = p.total - 1
	}
	return index / p.perPage
}

// Bounds returns the [start, end) question indexes of page, clamped.
func (p Pager) Bounds(page int) (start, end int) {
	if page < 0 {
		page = 0
	}
	start = page * p.perPage
	if start > p.total {
		start = p.total
	}
	end = start + p.perPage
	if end > p.total {
		end = p.total
	}
	return start, end
}

// HasNext reports whether a page follows page.
func (p Pager) HasNext(page int) bool {
	return (page+1)*p.perPage < p.total
}
