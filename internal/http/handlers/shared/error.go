package shared

import (
	"errors"

	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/uow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"message", msg,
			"error", err,
		)
	}
	response.Error(c, code, msg)
}

// MappedError 业务错误到接口错误的映射。
type MappedError struct {
	Target error
	Code   int
	Msg    string
}

// RespondMappedError 按映射表返回错误；事务层错误单独处理，存储细节不外泄。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Msg, nil)
			return
		}
	}
	var violation *uow.InvariantViolation
	if errors.As(err, &violation) {
		response.ErrorWithData(c, response.CodeBadRequest, violation.Message, gin.H{"invariant": violation.Invariant})
		return
	}
	var failure *uow.StorageFailure
	if errors.As(err, &failure) {
		RequestLog(c).Errorw("handler_storage_failure",
			"op", failure.Op,
			"kind", failure.Kind,
			"error", failure.Err,
		)
		response.Error(c, response.CodeInternal, fallbackMsg)
		return
	}
	RespondError(c, response.CodeInternal, fallbackMsg, err)
}
