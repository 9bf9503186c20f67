package repository

import (
	"context"

	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"

	"gorm.io/gorm"
)

// OrderItemRepository 订单项数据访问接口
type OrderItemRepository interface {
	Create(ctx context.Context, item *models.OrderItem) error
	Update(ctx context.Context, item *models.OrderItem) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.OrderItem, error)
	ListByOrderID(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	FindAll(ctx context.Context, env query.Envelope) ([]models.OrderItem, int64, error)
}

// GormOrderItemRepository GORM 实现
type GormOrderItemRepository struct {
	base
}

// NewOrderItemRepository 创建订单项仓库
func NewOrderItemRepository(db *gorm.DB, registry *query.Registry) *GormOrderItemRepository {
	return &GormOrderItemRepository{base: newBase(db, registry, query.EntityOrderItem)}
}

// WithTx 绑定事务
func (r *GormOrderItemRepository) WithTx(tx *gorm.DB) *GormOrderItemRepository {
	return r.Bind(tx, nil)
}

// Bind 绑定事务与作用域
func (r *GormOrderItemRepository) Bind(tx *gorm.DB, guard Guard) *GormOrderItemRepository {
	if tx == nil {
		return r
	}
	return &GormOrderItemRepository{base: r.bind(tx, guard)}
}

// Create 创建订单项
func (r *GormOrderItemRepository) Create(ctx context.Context, item *models.OrderItem) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Create(item).Error
}

// Update 更新订单项
func (r *GormOrderItemRepository) Update(ctx context.Context, item *models.OrderItem) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Save(item).Error
}

// Delete 删除订单项
func (r *GormOrderItemRepository) Delete(ctx context.Context, id uint) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Delete(&models.OrderItem{}, id).Error
}

// GetByID 根据 ID 获取订单项
func (r *GormOrderItemRepository) GetByID(ctx context.Context, id uint) (*models.OrderItem, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return first[models.OrderItem](db, "id = ?", id)
}

// ListByOrderID 获取订单的全部订单项
func (r *GormOrderItemRepository) ListByOrderID(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if orderID == 0 {
		return items, nil
	}
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := db.Where("order_id = ?", orderID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindAll 订单项列表
func (r *GormOrderItemRepository) FindAll(ctx context.Context, env query.Envelope) ([]models.OrderItem, int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, 0, err
	}
	return findPage[models.OrderItem](db, r.rules, env, "id asc")
}
