package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mercato-next/internal/authz"
	"github.com/mercato-next/internal/cache"
	"github.com/mercato-next/internal/config"
	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/metrics"
	"github.com/mercato-next/internal/query"
	"github.com/mercato-next/internal/queue"
	"github.com/mercato-next/internal/repository"
	"github.com/mercato-next/internal/service"
	"github.com/mercato-next/internal/uow"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config       *config.Config
	DB           *gorm.DB
	Metrics      *metrics.Metrics
	Registry     *query.Registry
	QueryService *query.Service
	RedisClient  *redis.Client
	CacheStore   *cache.Store
	ListCache    *cache.ListCache
	QueueClient  *queue.Client
	UoWFactory   *uow.Factory

	// Repositories
	ShopRepo      repository.ShopRepository
	ProductRepo   repository.ProductRepository
	OrderRepo     repository.OrderRepository
	OrderItemRepo repository.OrderItemRepository
	AdminRepo     repository.AdminRepository

	// Services
	AuthzService   *authz.Service
	AuthService    *service.AuthService
	ShopService    *service.ShopService
	ProductService *service.ProductService
	OrderService   *service.OrderService
}

// Options 容器可选依赖，测试时可替换
type Options struct {
	Metrics     *metrics.Metrics
	RedisClient *redis.Client
	QueueClient *queue.Client
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	return NewContainerWithOptions(cfg, db, Options{})
}

// NewContainerWithOptions 按给定依赖初始化容器
func NewContainerWithOptions(cfg *config.Config, db *gorm.DB, opts Options) (*Container, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("provider: config and db are required")
	}
	registry, err := query.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("build filter registry: %w", err)
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	c := &Container{
		Config:   cfg,
		DB:       db,
		Metrics:  m,
		Registry: registry,
		QueryService: query.NewService(
			registry,
			query.NewPaginator(cfg.Query.DefaultPageSize, cfg.Query.MaxPageSize),
			m,
		),
	}

	c.initCache(opts.RedisClient)
	if err := c.initQueue(opts.QueueClient); err != nil {
		return nil, err
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initCache(client *redis.Client) {
	if client == nil {
		client = cache.NewRedisClient(&c.Config.Redis)
	}
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnw("provider_init_redis_failed", "error", err)
		}
	}
	c.RedisClient = client
	c.CacheStore = cache.NewStore(client, c.Config.Redis.Prefix)
	ttl := time.Duration(c.Config.Cache.ListTTLSeconds) * time.Second
	c.ListCache = cache.NewListCache(c.CacheStore, ttl, c.Metrics)
}

func (c *Container) initQueue(client *queue.Client) error {
	if client != nil {
		c.QueueClient = client
		return nil
	}
	qc, err := queue.NewClient(&c.Config.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		return fmt.Errorf("init queue client: %w", err)
	}
	c.QueueClient = qc
	return nil
}

func (c *Container) initRepositories() {
	c.ShopRepo = repository.NewShopRepository(c.DB, c.Registry)
	c.ProductRepo = repository.NewProductRepository(c.DB, c.Registry)
	c.OrderRepo = repository.NewOrderRepository(c.DB, c.Registry)
	c.OrderItemRepo = repository.NewOrderItemRepository(c.DB, c.Registry)
	c.AdminRepo = repository.NewAdminRepository(c.DB)
	c.UoWFactory = uow.NewFactory(c.DB, c.Registry, c.Metrics)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return fmt.Errorf("init authz: %w", err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return fmt.Errorf("bootstrap builtin roles: %w", err)
	}

	var scheduler service.TimeoutScheduler
	if c.QueueClient.Enabled() {
		scheduler = c.QueueClient
	}

	c.AuthService = service.NewAuthService(c.Config.JWT, c.AdminRepo, c.CacheStore)
	c.ShopService = service.NewShopService(c.ShopRepo, c.ListCache)
	c.ProductService = service.NewProductService(c.ProductRepo, c.ShopRepo, c.ListCache)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.OrderItemRepo,
		c.UoWFactory,
		scheduler,
		c.ListCache,
		c.Metrics,
		c.Config.Order.PaymentExpireMinutes,
	)
	return nil
}

// Close 释放外部连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
