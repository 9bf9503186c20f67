package uow

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/metrics"
	"github.com/mercato-next/internal/query"
	"github.com/mercato-next/internal/repository"

	"gorm.io/gorm"
)

// State 协调器状态
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// Factory 按请求创建协调器，自身可在请求间共享
type Factory struct {
	db         *gorm.DB
	metrics    *metrics.Metrics
	orders     *repository.GormOrderRepository
	orderItems *repository.GormOrderItemRepository
	products   *repository.GormProductRepository
	shops      *repository.GormShopRepository
}

// NewFactory 创建协调器工厂
func NewFactory(db *gorm.DB, registry *query.Registry, m *metrics.Metrics) *Factory {
	return &Factory{
		db:         db,
		metrics:    m,
		orders:     repository.NewOrderRepository(db, registry),
		orderItems: repository.NewOrderItemRepository(db, registry),
		products:   repository.NewProductRepository(db, registry),
		shops:      repository.NewShopRepository(db, registry),
	}
}

// New 创建一个新的协调器，不可跨请求复用
func (f *Factory) New() *Coordinator {
	return &Coordinator{factory: f}
}

// scope 单个事务的作用域，事务结束后绑定其上的仓库全部失效
type scope struct {
	closed atomic.Bool
}

func (s *scope) Err() error {
	if s.closed.Load() {
		return ErrTransactionClosed
	}
	return nil
}

// Coordinator 工作单元：持有一个事务以及绑定在该事务上的仓库
type Coordinator struct {
	factory *Factory

	state   State
	ctx     context.Context
	tx      *gorm.DB
	scope   *scope
	begunAt time.Time

	orders     *repository.GormOrderRepository
	orderItems *repository.GormOrderItemRepository
	products   *repository.GormProductRepository
	shops      *repository.GormShopRepository
}

// State 当前状态
func (c *Coordinator) State() State {
	return c.state
}

// BeginTransaction 开启事务并占用一个连接
func (c *Coordinator) BeginTransaction(ctx context.Context) error {
	if c.state == StateActive {
		return ErrTransactionAlreadyActive
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx := c.factory.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		c.factory.metrics.ObserveTransaction("begin_failed", 0)
		logger.Warnw("uow_begin_failed", "error", tx.Error)
		return NewStorageFailure("begin", tx.Error)
	}
	c.state = StateActive
	c.ctx = ctx
	c.tx = tx
	c.scope = &scope{}
	c.begunAt = time.Now()
	c.factory.metrics.ObserveTransaction("begun", 0)
	return nil
}

// Commit 提交事务，无论成功与否都会清理
func (c *Coordinator) Commit() error {
	if c.state != StateActive {
		return ErrNoActiveTransaction
	}
	err := c.tx.Commit().Error
	ctx := c.ctx
	elapsed := c.cleanup()
	if err != nil {
		c.factory.metrics.ObserveTransaction("commit_failed", elapsed)
		failure := NewStorageFailure("commit", err)
		if ctx != nil && ctx.Err() != nil {
			failure.Kind = FailureCanceled
		}
		logger.Errorw("uow_commit_failed", "kind", failure.Kind, "error", err)
		return failure
	}
	c.factory.metrics.ObserveTransaction("committed", elapsed)
	return nil
}

// Rollback 回滚事务，未开启事务时为空操作
func (c *Coordinator) Rollback() error {
	if c.state != StateActive {
		return nil
	}
	err := c.tx.Rollback().Error
	elapsed := c.cleanup()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		c.factory.metrics.ObserveTransaction("rollback_failed", elapsed)
		logger.Warnw("uow_rollback_failed", "error", err)
		return NewStorageFailure("rollback", err)
	}
	c.factory.metrics.ObserveTransaction("rolled_back", elapsed)
	return nil
}

// Release 任意状态下都可调用，回滚未结束的事务并清理
func (c *Coordinator) Release() {
	if c.state == StateActive {
		if err := c.Rollback(); err != nil {
			logger.Warnw("uow_release_rollback_failed", "error", err)
		}
	}
	c.cleanup()
}

func (c *Coordinator) cleanup() time.Duration {
	var elapsed time.Duration
	if !c.begunAt.IsZero() {
		elapsed = time.Since(c.begunAt)
	}
	if c.scope != nil {
		c.scope.closed.Store(true)
	}
	c.state = StateIdle
	c.ctx = nil
	c.tx = nil
	c.scope = nil
	c.begunAt = time.Time{}
	c.orders = nil
	c.orderItems = nil
	c.products = nil
	c.shops = nil
	return elapsed
}

// Orders 当前事务的订单仓库
func (c *Coordinator) Orders() (*repository.GormOrderRepository, error) {
	if c.state != StateActive {
		return nil, ErrNoActiveTransaction
	}
	if c.orders == nil {
		c.orders = c.factory.orders.Bind(c.tx, c.scope)
	}
	return c.orders, nil
}

// OrderItems 当前事务的订单项仓库
func (c *Coordinator) OrderItems() (*repository.GormOrderItemRepository, error) {
	if c.state != StateActive {
		return nil, ErrNoActiveTransaction
	}
	if c.orderItems == nil {
		c.orderItems = c.factory.orderItems.Bind(c.tx, c.scope)
	}
	return c.orderItems, nil
}

// Products 当前事务的商品仓库
func (c *Coordinator) Products() (*repository.GormProductRepository, error) {
	if c.state != StateActive {
		return nil, ErrNoActiveTransaction
	}
	if c.products == nil {
		c.products = c.factory.products.Bind(c.tx, c.scope)
	}
	return c.products, nil
}

// Shops 当前事务的店铺仓库
func (c *Coordinator) Shops() (*repository.GormShopRepository, error) {
	if c.state != StateActive {
		return nil, ErrNoActiveTransaction
	}
	if c.shops == nil {
		c.shops = c.factory.shops.Bind(c.tx, c.scope)
	}
	return c.shops, nil
}
