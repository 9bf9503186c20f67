package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	p := NewPaginator(10, 25)
	assert.Equal(t, PageRequest{Page: 1, PageSize: 10}, p.Normalize("", "", PageDefaults{}))
	assert.Equal(t, PageRequest{Page: 2, PageSize: 5}, p.Normalize("", "", PageDefaults{Page: 2, PageSize: 5}))
}

func TestNormalizeClamps(t *testing.T) {
	p := NewPaginator(10, 25)
	assert.Equal(t, 25, p.Normalize("1", "999", PageDefaults{}).PageSize)
	assert.Equal(t, 1, p.Normalize("0", "10", PageDefaults{}).Page)
	assert.Equal(t, 1, p.Normalize("-4", "10", PageDefaults{}).Page)
	assert.Equal(t, 1, p.Normalize("1", "0", PageDefaults{}).PageSize)
	assert.Equal(t, 1, p.Normalize("1", "-3", PageDefaults{}).PageSize)
	assert.Equal(t, 100000, p.Normalize("100000", "10", PageDefaults{}).Page)
}

func TestNormalizeUnparseableFallsBack(t *testing.T) {
	p := NewPaginator(10, 25)
	assert.Equal(t, PageRequest{Page: 1, PageSize: 10}, p.Normalize("two", "1e3", PageDefaults{}))
	assert.Equal(t, PageRequest{Page: 3, PageSize: 10}, p.Normalize(" 3 ", " ", PageDefaults{}))
}

func TestNewPaginatorFallbacks(t *testing.T) {
	assert.Equal(t, Paginator{DefaultPageSize: 10, MaxPageSize: 25}, NewPaginator(0, 0))
	assert.Equal(t, Paginator{DefaultPageSize: 5, MaxPageSize: 5}, NewPaginator(20, 5))
	assert.Equal(t, PageRequest{Page: 1, PageSize: 10}, Paginator{}.Normalize("", "", PageDefaults{}))
}

func TestPageRequestOffset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 20, PageRequest{Page: 3, PageSize: 10}.Offset())
	assert.Equal(t, 0, PageRequest{Page: 0, PageSize: 10}.Offset())
	assert.Equal(t, 10, PageRequest{Page: 3, PageSize: 10}.Limit())
}

func TestPageResultTotalPages(t *testing.T) {
	result := NewPageResult[int](nil, 21)
	assert.NotNil(t, result.Data)
	assert.Equal(t, int64(3), result.TotalPages(10))
	assert.Equal(t, int64(0), result.TotalPages(0))
}

func TestNormalizeHugePageKeepsOffsetPositive(t *testing.T) {
	p := NewPaginator(10, 25)
	req := p.Normalize("400000000000000001", "25", PageDefaults{})
	assert.Equal(t, math.MaxInt/25, req.Page)
	assert.Greater(t, req.Offset(), 0)
	assert.Equal(t, (req.Page-1)*25, req.Offset())

	raw := PageRequest{Page: math.MaxInt, PageSize: 25}
	assert.Greater(t, raw.Offset(), 0)
}
