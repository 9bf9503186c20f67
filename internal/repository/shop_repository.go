package repository

import (
	"context"

	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"

	"gorm.io/gorm"
)

// ShopRepository 店铺数据访问接口
type ShopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	Update(ctx context.Context, shop *models.Shop) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Shop, error)
	GetBySlug(ctx context.Context, slug string) (*models.Shop, error)
	FindAll(ctx context.Context, env query.Envelope) ([]models.Shop, int64, error)
}

// GormShopRepository GORM 实现
type GormShopRepository struct {
	base
}

// NewShopRepository 创建店铺仓库
func NewShopRepository(db *gorm.DB, registry *query.Registry) *GormShopRepository {
	return &GormShopRepository{base: newBase(db, registry, query.EntityShop)}
}

// WithTx 绑定事务
func (r *GormShopRepository) WithTx(tx *gorm.DB) *GormShopRepository {
	return r.Bind(tx, nil)
}

// Bind 绑定事务与作用域
func (r *GormShopRepository) Bind(tx *gorm.DB, guard Guard) *GormShopRepository {
	if tx == nil {
		return r
	}
	return &GormShopRepository{base: r.bind(tx, guard)}
}

// Create 创建店铺
func (r *GormShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Create(shop).Error
}

// Update 更新店铺
func (r *GormShopRepository) Update(ctx context.Context, shop *models.Shop) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Save(shop).Error
}

// Delete 删除店铺
func (r *GormShopRepository) Delete(ctx context.Context, id uint) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Delete(&models.Shop{}, id).Error
}

// GetByID 根据 ID 获取店铺
func (r *GormShopRepository) GetByID(ctx context.Context, id uint) (*models.Shop, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return first[models.Shop](db, "id = ?", id)
}

// GetBySlug 根据 slug 获取店铺
func (r *GormShopRepository) GetBySlug(ctx context.Context, slug string) (*models.Shop, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return first[models.Shop](db, "slug = ?", slug)
}

// FindAll 店铺列表
func (r *GormShopRepository) FindAll(ctx context.Context, env query.Envelope) ([]models.Shop, int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, 0, err
	}
	return findPage[models.Shop](db, r.rules, env, "id asc")
}
