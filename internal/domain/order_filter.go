package domain

// OrderFilter has AND semantics across fields. SearchTerm is matched
// case-insensitively against customer name and email (OR within the field).
type OrderFilter struct {
	SearchTerm    string
	OrderStatus   *OrderStatus
	CustomerEmail string
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type Pagination struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.SortBy == "" {
		p.SortBy = "createdAt"
	}
	if p.SortOrder != SortAsc {
		p.SortOrder = SortDesc
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
