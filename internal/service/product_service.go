package service

import (
	"context"
	"strings"

	"github.com/mercato-next/internal/cache"
	"github.com/mercato-next/internal/constants"
	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"
	"github.com/mercato-next/internal/repository"
)

// ProductService 商品业务服务
type ProductService struct {
	repo      repository.ProductRepository
	shopRepo  repository.ShopRepository
	listCache *cache.ListCache
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, shopRepo repository.ShopRepository, listCache *cache.ListCache) *ProductService {
	return &ProductService{repo: repo, shopRepo: shopRepo, listCache: listCache}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	ShopID   uint
	SKU      string
	Name     string
	Price    models.Money
	Stock    int
	IsActive *bool
}

func (in ProductInput) normalize() (ProductInput, error) {
	in.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	in.Name = strings.TrimSpace(in.Name)
	if in.ShopID == 0 || in.SKU == "" || in.Name == "" {
		return in, ErrProductInvalid
	}
	if in.Price.IsNegative() || in.Stock < 0 {
		return in, ErrProductInvalid
	}
	return in, nil
}

// Create 创建商品
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.ensureShop(ctx, in.ShopID); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetBySKU(ctx, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrProductSKUExists
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	product := &models.Product{
		ShopID:   in.ShopID,
		SKU:      in.SKU,
		Name:     in.Name,
		Price:    models.NewMoneyFromDecimal(in.Price.Decimal),
		Stock:    in.Stock,
		IsActive: isActive,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	// is_active 列带默认值，false 在插入时会被忽略
	if !isActive {
		product.IsActive = false
		if err := s.repo.Update(ctx, product); err != nil {
			return nil, err
		}
	}
	s.invalidateLists(ctx)
	return product, nil
}

// Update 更新商品
func (s *ProductService) Update(ctx context.Context, id uint, input ProductInput) (*models.Product, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if in.ShopID != product.ShopID {
		if err := s.ensureShop(ctx, in.ShopID); err != nil {
			return nil, err
		}
	}
	if in.SKU != product.SKU {
		existing, err := s.repo.GetBySKU(ctx, in.SKU)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != product.ID {
			return nil, ErrProductSKUExists
		}
	}
	product.ShopID = in.ShopID
	product.SKU = in.SKU
	product.Name = in.Name
	product.Price = models.NewMoneyFromDecimal(in.Price.Decimal)
	product.Stock = in.Stock
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	product.Shop = nil
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.invalidateLists(ctx)
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateLists(ctx)
	return nil
}

// Get 获取商品详情
func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// List 商品列表（带缓存）
func (s *ProductService) List(ctx context.Context, env query.Envelope) (query.PageResult[models.Product], error) {
	var cached query.PageResult[models.Product]
	if s.listCache.Get(ctx, env, &cached) {
		return cached, nil
	}
	rows, total, err := s.repo.FindAll(ctx, env)
	if err != nil {
		return query.PageResult[models.Product]{}, err
	}
	result := query.NewPageResult(rows, total)
	s.listCache.Set(ctx, env, result)
	return result, nil
}

// invalidateLists 店铺列表可按商品字段过滤，商品变更时一并失效
func (s *ProductService) invalidateLists(ctx context.Context) {
	s.listCache.Invalidate(ctx, query.EntityProduct)
	s.listCache.Invalidate(ctx, query.EntityShop)
}

func (s *ProductService) ensureShop(ctx context.Context, shopID uint) error {
	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		return err
	}
	if shop == nil {
		return ErrShopNotFound
	}
	if shop.Status != constants.ShopStatusActive {
		return ErrShopInvalid
	}
	return nil
}
