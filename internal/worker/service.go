package worker

import (
	"context"
	"errors"
	"time"

	"github.com/mercato-next/internal/config"
	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	expiredOrderSweepInterval = time.Minute
	expiredOrderSweepBatch    = 100
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.orders != nil {
		go s.consumer.runExpiredOrderSweep(ctx, expiredOrderSweepInterval)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// SweepService 队列未启用时单独运行的过期订单巡检
type SweepService struct {
	consumer *Consumer
	interval time.Duration
}

// NewSweepService 创建过期订单巡检服务
func NewSweepService(consumer *Consumer) *SweepService {
	return &SweepService{consumer: consumer, interval: expiredOrderSweepInterval}
}

// Name 服务名称
func (s *SweepService) Name() string {
	return "order_sweeper"
}

// Start 阻塞运行直到 ctx 结束
func (s *SweepService) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil || s.consumer.orders == nil {
		return errors.New("order sweeper not initialized")
	}
	s.consumer.runExpiredOrderSweep(ctx, s.interval)
	return nil
}

// Stop 停止服务
func (s *SweepService) Stop(ctx context.Context) error {
	return nil
}

// runExpiredOrderSweep 定时兜底取消丢失超时任务的订单
func (c *Consumer) runExpiredOrderSweep(ctx context.Context, interval time.Duration) {
	if c == nil || c.orders == nil {
		return
	}
	runOnce := func() {
		canceled, err := c.orders.SweepExpiredOrders(ctx, expiredOrderSweepBatch)
		if err != nil {
			logger.Warnw("worker_expired_order_sweep_failed", "error", err)
			return
		}
		if canceled > 0 {
			logger.Infow("worker_expired_order_sweep_done", "canceled", canceled)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
