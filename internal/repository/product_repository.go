package repository

import (
	"context"

	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	FindAll(ctx context.Context, env query.Envelope) ([]models.Product, int64, error)
	ReserveStock(ctx context.Context, id uint, quantity int) (int64, error)
	RestoreStock(ctx context.Context, id uint, quantity int) (int64, error)
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	base
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB, registry *query.Registry) *GormProductRepository {
	return &GormProductRepository{base: newBase(db, registry, query.EntityProduct)}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	return r.Bind(tx, nil)
}

// Bind 绑定事务与作用域
func (r *GormProductRepository) Bind(tx *gorm.DB, guard Guard) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{base: r.bind(tx, guard)}
}

// Create 创建商品
func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(ctx context.Context, product *models.Product) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Save(product).Error
}

// Delete 删除商品
func (r *GormProductRepository) Delete(ctx context.Context, id uint) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return db.Delete(&models.Product{}, id).Error
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return first[models.Product](db.Preload("Shop"), "id = ?", id)
}

// GetBySKU 根据商品编码获取商品
func (r *GormProductRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return first[models.Product](db, "sku = ?", sku)
}

// GetByIDs 批量获取商品
func (r *GormProductRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := db.Where("id IN ?", ids).Order("id asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindAll 商品列表
func (r *GormProductRepository) FindAll(ctx context.Context, env query.Envelope) ([]models.Product, int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, 0, err
	}
	return findPage[models.Product](db, r.rules, env, "id asc")
}

// ReserveStock 扣减库存，库存不足时影响行数为 0
func (r *GormProductRepository) ReserveStock(ctx context.Context, id uint, quantity int) (int64, error) {
	if id == 0 || quantity <= 0 {
		return 0, nil
	}
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RestoreStock 回补库存
func (r *GormProductRepository) RestoreStock(ctx context.Context, id uint, quantity int) (int64, error) {
	if id == 0 || quantity <= 0 {
		return 0, nil
	}
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
