package repository

import (
	"context"
	"errors"

	"github.com/mercato-next/internal/query"

	"gorm.io/gorm"
)

// Guard 事务作用域检查，事务结束后返回错误
type Guard interface {
	Err() error
}

// base 仓库公共部分：连接、过滤规则、事务作用域
type base struct {
	db    *gorm.DB
	rules query.EntityRules
	guard Guard
}

func newBase(db *gorm.DB, registry *query.Registry, kind query.EntityKind) base {
	rules, _ := registry.Rules(kind)
	return base{db: db, rules: rules}
}

func (b base) bind(tx *gorm.DB, guard Guard) base {
	if tx == nil {
		return b
	}
	return base{db: tx, rules: b.rules, guard: guard}
}

// conn 返回带上下文的连接，绑定的事务已结束时报错
func (b base) conn(ctx context.Context) (*gorm.DB, error) {
	if b.guard != nil {
		if err := b.guard.Err(); err != nil {
			return nil, err
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return b.db.WithContext(ctx), nil
}

// findPage 按信封过滤、计数并分页查询
func findPage[T any](db *gorm.DB, rules query.EntityRules, env query.Envelope, orderBy string, preload ...string) ([]T, int64, error) {
	var rows []T
	q := query.Apply(db.Model(new(T)), rules, env.Predicate)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = applyPagination(q, env.Page, env.PageSize)
	for _, rel := range preload {
		q = q.Preload(rel)
	}
	if err := q.Order(orderBy).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// first 按条件查询单条记录，不存在时返回 nil
func first[T any](db *gorm.DB, where string, args ...interface{}) (*T, error) {
	var row T
	if err := db.Where(where, args...).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// applyPagination 按页码与页大小追加 LIMIT/OFFSET
func applyPagination(q *gorm.DB, page, pageSize int) *gorm.DB {
	if q == nil || pageSize <= 0 {
		return q
	}
	return q.Limit(pageSize).Offset(query.PageRequest{Page: page, PageSize: pageSize}.Offset())
}
