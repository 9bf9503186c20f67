package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/mercato-next/internal/cache"
	"github.com/mercato-next/internal/constants"
	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"
	"github.com/mercato-next/internal/repository"
)

var shopSlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ShopService 店铺服务
type ShopService struct {
	repo      repository.ShopRepository
	listCache *cache.ListCache
}

// NewShopService 创建店铺服务
func NewShopService(repo repository.ShopRepository, listCache *cache.ListCache) *ShopService {
	return &ShopService{repo: repo, listCache: listCache}
}

// ShopInput 创建/更新店铺输入
type ShopInput struct {
	Slug   string
	Name   string
	Status string
}

func (in ShopInput) normalize() (ShopInput, error) {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Name = strings.TrimSpace(in.Name)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = constants.ShopStatusActive
	}
	if !shopSlugPattern.MatchString(in.Slug) || in.Name == "" {
		return in, ErrShopInvalid
	}
	if in.Status != constants.ShopStatusActive && in.Status != constants.ShopStatusClosed {
		return in, ErrShopInvalid
	}
	return in, nil
}

// Create 创建店铺
func (s *ShopService) Create(ctx context.Context, input ShopInput) (*models.Shop, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetBySlug(ctx, in.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrShopSlugExists
	}
	shop := &models.Shop{Slug: in.Slug, Name: in.Name, Status: in.Status}
	if err := s.repo.Create(ctx, shop); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return shop, nil
}

// Update 更新店铺
func (s *ShopService) Update(ctx context.Context, id uint, input ShopInput) (*models.Shop, error) {
	in, err := input.normalize()
	if err != nil {
		return nil, err
	}
	shop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	if in.Slug != shop.Slug {
		existing, err := s.repo.GetBySlug(ctx, in.Slug)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != shop.ID {
			return nil, ErrShopSlugExists
		}
	}
	shop.Slug = in.Slug
	shop.Name = in.Name
	shop.Status = in.Status
	if err := s.repo.Update(ctx, shop); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return shop, nil
}

// Delete 删除店铺
func (s *ShopService) Delete(ctx context.Context, id uint) error {
	shop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if shop == nil {
		return ErrShopNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Get 获取店铺
func (s *ShopService) Get(ctx context.Context, id uint) (*models.Shop, error) {
	shop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	return shop, nil
}

// List 店铺列表（带缓存）
func (s *ShopService) List(ctx context.Context, env query.Envelope) (query.PageResult[models.Shop], error) {
	var cached query.PageResult[models.Shop]
	if s.listCache.Get(ctx, env, &cached) {
		return cached, nil
	}
	rows, total, err := s.repo.FindAll(ctx, env)
	if err != nil {
		return query.PageResult[models.Shop]{}, err
	}
	result := query.NewPageResult(rows, total)
	s.listCache.Set(ctx, env, result)
	return result, nil
}

// 店铺变化会影响商品列表中的关联过滤
func (s *ShopService) invalidate(ctx context.Context) {
	s.listCache.Invalidate(ctx, query.EntityShop)
	s.listCache.Invalidate(ctx, query.EntityProduct)
}
