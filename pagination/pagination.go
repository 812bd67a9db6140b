// Package pagination turns page and sort query parameters into a typed
// request and applies it to GORM queries.
package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Sort struct {
	Field string
	Desc  bool
}

// Options describes what a listing endpoint accepts. Fields maps the public
// sort name to its column.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	DefaultSort     Sort
	Fields          map[string]string
	Presets         map[string]Sort
}

type Params struct {
	Page     int
	PageSize int
	Sort     Sort
}

func (p Params) Offset() int { return (p.Page - 1) * p.PageSize }

// Parse reads page, pageSize and sort. Sort is either a preset name or
// "field:asc|desc"; sortBy and order are accepted as a fallback.
func Parse(c *gin.Context, opts Options) (Params, error) {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}

	p := Params{
		Page:     clamp(intQuery(c, "page", 1), 1, 1<<20),
		PageSize: clamp(intQuery(c, "pageSize", intQuery(c, "limit", opts.DefaultPageSize)), 1, opts.MaxPageSize),
		Sort:     opts.DefaultSort,
	}

	raw := strings.TrimSpace(c.Query("sort"))
	if raw == "" {
		if by := strings.TrimSpace(c.Query("sortBy")); by != "" {
			raw = by + ":" + c.DefaultQuery("order", "asc")
		}
	}
	if raw == "" {
		return p, nil
	}
	if preset, ok := opts.Presets[raw]; ok {
		p.Sort = preset
		return p, nil
	}

	field, dir, _ := strings.Cut(raw, ":")
	column, ok := opts.Fields[field]
	if !ok {
		return Params{}, apperrors.Invalid("sort", fmt.Sprintf("cannot sort by %q", field))
	}
	p.Sort = Sort{Field: column}
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		p.Sort.Desc = true
	default:
		return Params{}, apperrors.Invalid("sort", fmt.Sprintf("unknown direction %q", dir))
	}
	return p, nil
}

// Apply orders, limits and offsets q. The id tiebreak keeps pages stable.
func (p Params) Apply(q *gorm.DB) *gorm.DB {
	if p.Sort.Field != "" {
		q = q.Order(clause.OrderByColumn{
			Column: clause.Column{Table: clause.CurrentTable, Name: p.Sort.Field},
			Desc:   p.Sort.Desc,
		})
	}
	return q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}}).
		Limit(p.PageSize).
		Offset(p.Offset())
}

type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPage[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return Page[T]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: total, TotalPages: pages}
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
