package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/metrics"
	"github.com/mercato-next/internal/query"
)

// ListCache 列表页缓存，键为信封哈希加实体版本号
type ListCache struct {
	store   *Store
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewListCache 创建列表缓存，ttl 非正数时关闭缓存
func NewListCache(store *Store, ttl time.Duration, m *metrics.Metrics) *ListCache {
	return &ListCache{store: store, ttl: ttl, metrics: m}
}

// Enabled 判断是否启用
func (c *ListCache) Enabled() bool {
	return c != nil && c.store.Enabled() && c.ttl > 0
}

// Get 读取缓存页，读取失败视为未命中
func (c *ListCache) Get(ctx context.Context, env query.Envelope, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}
	entity := string(env.Entity)
	key, err := c.key(ctx, env)
	if err != nil {
		c.metrics.ObserveCache(entity, "error")
		logger.Warnw("list_cache_version_failed", "entity", entity, "error", err)
		return false
	}
	hit, err := c.store.GetJSON(ctx, key, dest)
	if err != nil {
		c.metrics.ObserveCache(entity, "error")
		logger.Warnw("list_cache_get_failed", "entity", entity, "error", err)
		return false
	}
	if hit {
		c.metrics.ObserveCache(entity, "hit")
	} else {
		c.metrics.ObserveCache(entity, "miss")
	}
	return hit
}

// Set 写入缓存页
func (c *ListCache) Set(ctx context.Context, env query.Envelope, value interface{}) {
	if !c.Enabled() {
		return
	}
	key, err := c.key(ctx, env)
	if err != nil {
		logger.Warnw("list_cache_version_failed", "entity", env.Entity, "error", err)
		return
	}
	if err := c.store.SetJSON(ctx, key, value, c.ttl); err != nil {
		logger.Warnw("list_cache_set_failed", "entity", env.Entity, "error", err)
	}
}

// Invalidate 使实体的全部缓存页失效
func (c *ListCache) Invalidate(ctx context.Context, entity query.EntityKind) {
	if !c.Enabled() {
		return
	}
	if _, err := c.store.BumpVersion(ctx, listNamespace(entity)); err != nil {
		logger.Warnw("list_cache_invalidate_failed", "entity", entity, "error", err)
	}
}

func (c *ListCache) key(ctx context.Context, env query.Envelope) (string, error) {
	version, err := c.store.Version(ctx, listNamespace(env.Entity))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d:%s", listNamespace(env.Entity), version, env.Key()), nil
}

func listNamespace(entity query.EntityKind) string {
	return "list:" + string(entity)
}
