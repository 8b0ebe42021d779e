package pagination

import (
	"math"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = math.MaxInt32 / MaxPageSize
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate clamps page to [1, MaxPage] and size to (0, MaxPageSize], falling
// back to def when size is out of range.
func Calculate(page, size, def int) (p, offset, limit int) {
	page = min(max(page, 1), MaxPage)
	if size < 1 || size > MaxPageSize {
		size = def
	}
	return page, (page - 1) * size, size
}

func TotalPages(total int64, size int) int64 {
	if size <= 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}

type Meta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func NewMeta(page, offset, limit int, total int64) Meta {
	return Meta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: TotalPages(total, limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}
