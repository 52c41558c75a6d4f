package model

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxPage          = 10000
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter narrows a note listing. ParentID Clear selects root notes only.
type Filter struct {
	ProjectID *string          `json:"projectId"`
	TagID     *string          `json:"tagId"`
	ParentID  Optional[string] `json:"parentId"`
	Search    string           `json:"search"`
	SortBy    string           `json:"sortBy"`
	Order     SortOrder        `json:"order"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Clamp bounds page to [1, MaxPage] and limit to [1, MaxPageLimit].
// A zero limit falls back to DefaultPageLimit.
func (p Pagination) Clamp() Pagination {
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	p.Page = clamp(p.Page, 1, MaxPage)
	p.Limit = clamp(p.Limit, 1, MaxPageLimit)
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Page struct {
	Data       []Note   `json:"data"`
	Pagination PageInfo `json:"pagination"`
}

func NewPageInfo(p Pagination, total int) PageInfo {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return PageInfo{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: totalPages}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
