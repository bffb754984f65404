// Package pagination implements the numbered-page contract shared by every
// list endpoint: page/limit in, rows plus a total count out.
package pagination

import (
	"fmt"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Pagination struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=10"`
}

// Normalize clamps page and limit into their valid ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Apply adds LIMIT/OFFSET to a statement.
func (p Pagination) Apply(stmt *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return stmt.Limit(p.Limit).Offset(p.Offset())
}

// PageInfo describes one page of a counted result set.
type PageInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func NewPageInfo(p Pagination, total int64) PageInfo {
	p = p.Normalize()
	return PageInfo{Page: p.Page, Limit: p.Limit, Total: total}
}

// From returns the 1-based index of the first row on the page, 0 when empty.
func (pi PageInfo) From() int64 {
	if pi.Total == 0 {
		return 0
	}
	from := int64(pi.Page-1)*int64(pi.Limit) + 1
	if from > pi.Total {
		return 0
	}
	return from
}

// To returns the 1-based index of the last row on the page, 0 when empty.
func (pi PageInfo) To() int64 {
	if pi.From() == 0 {
		return 0
	}
	to := int64(pi.Page) * int64(pi.Limit)
	if to > pi.Total {
		return pi.Total
	}
	return to
}

func (pi PageInfo) HasPrev() bool {
	return pi.Total > 0 && pi.Page > 1 && pi.From() > 0
}

func (pi PageInfo) HasNext() bool {
	return pi.To() < pi.Total
}

// RangeLabel renders the "Showing X-Y of N" caption.
func (pi PageInfo) RangeLabel() string {
	return fmt.Sprintf("Showing %d-%d of %d", pi.From(), pi.To(), pi.Total)
}
