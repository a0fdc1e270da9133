package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type Paginated[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}
