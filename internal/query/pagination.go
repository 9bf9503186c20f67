package query

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 25
)

// PageDefaults 分页缺省值，零值表示使用分页器默认值
type PageDefaults struct {
	Page     int
	PageSize int
}

// PageRequest 归一化后的分页参数
type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Offset 偏移量
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt - math.MaxInt%p.PageSize
	}
	return (p.Page - 1) * p.PageSize
}

// Limit 单页数量
func (p PageRequest) Limit() int {
	return p.PageSize
}

// Paginator 统一的分页策略
type Paginator struct {
	DefaultPageSize int
	MaxPageSize     int
}

// NewPaginator 创建分页器，非法配置回退到 10/25
func NewPaginator(defaultPageSize, maxPageSize int) Paginator {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}
	return Paginator{DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize}
}

// Normalize 解析并钳制分页参数，缺失或无法解析时使用缺省值
func (p Paginator) Normalize(rawPage, rawPageSize string, defaults PageDefaults) PageRequest {
	p = NewPaginator(p.DefaultPageSize, p.MaxPageSize)

	fallbackPage := defaults.Page
	if fallbackPage == 0 {
		fallbackPage = DefaultPage
	}
	fallbackSize := defaults.PageSize
	if fallbackSize == 0 {
		fallbackSize = p.DefaultPageSize
	}

	page := parseIntOr(rawPage, fallbackPage)
	if page < 1 {
		page = 1
	}
	pageSize := parseIntOr(rawPageSize, fallbackSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > p.MaxPageSize {
		pageSize = p.MaxPageSize
	}
	// 页码上限保证 Offset 不溢出
	if maxPage := math.MaxInt / p.MaxPageSize; page > maxPage {
		page = maxPage
	}
	return PageRequest{Page: page, PageSize: pageSize}
}

func parseIntOr(raw string, fallback int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}
