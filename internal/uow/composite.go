package uow

import (
	"context"
	"errors"

	"github.com/mercato-next/internal/logger"
)

// Invariant 事务开启前对请求的校验
type Invariant[R any] struct {
	Name  string
	Check func(req R) error
}

// Composite 单事务内的多记录写入
type Composite[R, T any] struct {
	Name       string
	Invariants []Invariant[R]
	Write      func(ctx context.Context, c *Coordinator, req R) (T, error)
}

// Run 校验约束后在一个事务内执行写入；任一步失败整体回滚，任何退出路径都不会遗留事务
func (op Composite[R, T]) Run(ctx context.Context, c *Coordinator, req R) (T, error) {
	var zero T
	if c == nil || op.Write == nil {
		return zero, ErrNoActiveTransaction
	}
	for _, inv := range op.Invariants {
		if inv.Check == nil {
			continue
		}
		if err := inv.Check(req); err != nil {
			c.factory.metrics.ObserveComposite(op.Name, "invariant_violation")
			return zero, asViolation(inv.Name, err)
		}
	}

	// 开启失败时事务不归本次调用所有，不能释放调用方的事务
	if err := c.BeginTransaction(ctx); err != nil {
		c.factory.metrics.ObserveComposite(op.Name, "begin_failed")
		return zero, err
	}
	defer c.Release()

	result, err := op.Write(ctx, c, req)
	if err != nil {
		if rbErr := c.Rollback(); rbErr != nil {
			logger.Warnw("uow_composite_rollback_failed", "operation", op.Name, "error", rbErr)
		}
		c.factory.metrics.ObserveComposite(op.Name, "rolled_back")
		return zero, typedWriteError(op.Name, err)
	}

	if err := c.Commit(); err != nil {
		c.factory.metrics.ObserveComposite(op.Name, "commit_failed")
		return zero, err
	}
	c.factory.metrics.ObserveComposite(op.Name, "committed")
	return result, nil
}

func asViolation(name string, err error) *InvariantViolation {
	var violation *InvariantViolation
	if errors.As(err, &violation) {
		return violation
	}
	return &InvariantViolation{Invariant: name, Message: err.Error()}
}

// typedWriteError 已分类的错误原样返回，其余包装为存储失败
func typedWriteError(name string, err error) error {
	var violation *InvariantViolation
	var failure *StorageFailure
	switch {
	case errors.As(err, &violation), errors.As(err, &failure), errors.Is(err, ErrTransactionState):
		return err
	default:
		return NewStorageFailure(name, err)
	}
}
