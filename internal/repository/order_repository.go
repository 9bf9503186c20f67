package repository

import (
	"context"
	"time"

	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	FindAll(ctx context.Context, env query.Envelope) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)
	ListExpiredIDs(ctx context.Context, status string, before time.Time, limit int) ([]uint, error)
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	base
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB, registry *query.Registry) *GormOrderRepository {
	return &GormOrderRepository{base: newBase(db, registry, query.EntityOrder)}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return r.Bind(tx, nil)
}

// Bind 绑定事务与作用域
func (r *GormOrderRepository) Bind(tx *gorm.DB, guard Guard) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{base: r.bind(tx, guard)}
}

// Create 只创建订单本身，订单项由 OrderItemRepository 写入
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Omit("Items").Create(order).Error
}

// Update 更新订单
func (r *GormOrderRepository) Update(ctx context.Context, order *models.Order) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Omit("Items").Save(order).Error
}

// Delete 删除订单
func (r *GormOrderRepository) Delete(ctx context.Context, id uint) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Delete(&models.Order{}, id).Error
}

// GetByID 根据 ID 获取订单（含订单项）
func (r *GormOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return first[models.Order](db.Preload("Items"), "id = ?", id)
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return first[models.Order](db.Preload("Items"), "order_no = ?", orderNo)
}

// FindAll 订单列表
func (r *GormOrderRepository) FindAll(ctx context.Context, env query.Envelope) ([]models.Order, int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, 0, err
	}
	return findPage[models.Order](db, r.rules, env, "id desc", "Items")
}

// UpdateStatus 仅当订单处于 fromStatus 时更新状态，返回影响行数
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListExpiredIDs 查询已过期且处于指定状态的订单 ID
func (r *GormOrderRepository) ListExpiredIDs(ctx context.Context, status string, before time.Time, limit int) ([]uint, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var ids []uint
	err = db.Model(&models.Order{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", status, before).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
