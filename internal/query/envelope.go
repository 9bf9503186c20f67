package query

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Envelope 列表查询信封：分页参数 + 已校验条件
type Envelope struct {
	Entity    EntityKind        `json:"entity"`
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
	Predicate CompiledPredicate `json:"predicate"`
}

// PageRequest 返回分页参数
func (e Envelope) PageRequest() PageRequest {
	return PageRequest{Page: e.Page, PageSize: e.PageSize}
}

// Offset 偏移量
func (e Envelope) Offset() int {
	return e.PageRequest().Offset()
}

// Limit 单页数量
func (e Envelope) Limit() int {
	return e.PageRequest().Limit()
}

// Key 稳定的缓存键（map 序列化按键排序）
func (e Envelope) Key() string {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("%s:%d:%d", e.Entity, e.Page, e.PageSize)
	}
	sum := sha1.Sum(payload)
	return fmt.Sprintf("%s:%s", e.Entity, hex.EncodeToString(sum[:]))
}

// PageResult 分页结果
type PageResult[T any] struct {
	Data  []T   `json:"data"`
	Count int64 `json:"count"`
}

// NewPageResult 创建分页结果，nil 切片转为空切片
func NewPageResult[T any](data []T, count int64) PageResult[T] {
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{Data: data, Count: count}
}

// TotalPages 总页数
func (r PageResult[T]) TotalPages(pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (r.Count + int64(pageSize) - 1) / int64(pageSize)
}
