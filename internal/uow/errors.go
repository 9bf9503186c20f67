package uow

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrTransactionState 事务状态错误（调用顺序错误，属于程序缺陷）
var ErrTransactionState = errors.New("transaction state error")

var (
	ErrTransactionAlreadyActive = fmt.Errorf("%w: transaction already active", ErrTransactionState)
	ErrNoActiveTransaction      = fmt.Errorf("%w: no active transaction", ErrTransactionState)
	ErrTransactionClosed        = fmt.Errorf("%w: repository used after its transaction ended", ErrTransactionState)
)

// InvariantViolation 写入前的业务约束不满足
type InvariantViolation struct {
	Invariant string
	Message   string
}

func (e *InvariantViolation) Error() string {
	if e.Message == "" {
		return "invariant violated: " + e.Invariant
	}
	return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Message)
}

// Violation 构造约束错误
func Violation(invariant, format string, args ...interface{}) *InvariantViolation {
	return &InvariantViolation{Invariant: invariant, Message: fmt.Sprintf(format, args...)}
}

// FailureKind 存储失败分类
type FailureKind string

const (
	FailureConstraint FailureKind = "constraint"
	FailureConnection FailureKind = "connection"
	FailureCanceled   FailureKind = "canceled"
	FailureUnknown    FailureKind = "unknown"
)

// StorageFailure 持久层失败，对外统一表现为服务端错误
type StorageFailure struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (e *StorageFailure) Error() string {
	return fmt.Sprintf("storage failure during %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageFailure) Unwrap() error {
	return e.Err
}

// NewStorageFailure 包装持久层错误并分类
func NewStorageFailure(op string, err error) *StorageFailure {
	return &StorageFailure{Op: op, Kind: Classify(err), Err: err}
}

// IsInvariantViolation 判断是否为约束错误
func IsInvariantViolation(err error) bool {
	var violation *InvariantViolation
	return errors.As(err, &violation)
}

// IsStorageFailure 判断是否为存储失败
func IsStorageFailure(err error) bool {
	var failure *StorageFailure
	return errors.As(err, &failure)
}

var (
	constraintMarkers = []string{"constraint failed", "violates", "duplicate entry", "duplicate key", "cannot be null"}
	connectionMarkers = []string{"connection refused", "connection reset", "broken pipe", "bad connection", "database is closed", "server closed"}
)

// Classify 按驱动错误码与错误信息归类存储错误
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureCanceled
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return FailureConstraint
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03":
			return FailureConnection
		case pgErr.Code == "57014":
			return FailureCanceled
		default:
			return FailureUnknown
		}
	}
	if pgconn.Timeout(err) {
		return FailureCanceled
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return FailureConstraint
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return FailureConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureConnection
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range constraintMarkers {
		if strings.Contains(msg, marker) {
			return FailureConstraint
		}
	}
	for _, marker := range connectionMarkers {
		if strings.Contains(msg, marker) {
			return FailureConnection
		}
	}
	return FailureUnknown
}
