package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/logger"
	"github.com/mercato-next/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Name          string
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

var errRateLimitReply = errors.New("unexpected rate limit reply")

// 返回 {当前计数, 剩余秒数}
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(subject string) string {
	if r.Prefix == "" {
		return subject
	}
	return r.Prefix + ":" + subject
}

func (r RateLimitRule) message() string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	return "too many requests"
}

// hit 计数一次，返回是否放行与需等待的秒数
func (r RateLimitRule) hit(ctx context.Context, client *redis.Client, subject string) (bool, int, error) {
	values, err := rateLimitScript.Run(ctx, client, []string{r.key(subject)}, r.WindowSeconds).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) < 2 {
		return false, 0, errRateLimitReply
	}
	if values[0] <= int64(r.MaxRequests) {
		return true, 0, nil
	}
	wait := int(values[1])
	if wait < 1 {
		wait = r.WindowSeconds
	}
	return false, wait, nil
}

// RateLimitMiddleware Redis 固定窗口限流，未配置 Redis 时放行
func RateLimitMiddleware(client *redis.Client, m *metrics.Metrics, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}

		allowed, wait, err := rule.hit(c.Request.Context(), client, subject)
		switch {
		case err != nil:
			m.ObserveRateLimit(rule.Name, "error")
			logger.Warnw("rate_limit_script_failed", "rule", rule.Name, "request_id", getRequestID(c), "error", err)
			response.Error(c, response.CodeInternal, "rate limiter unavailable")
			c.Abort()
		case !allowed:
			m.ObserveRateLimit(rule.Name, "limited")
			c.Header("Retry-After", strconv.Itoa(wait))
			response.ErrorWithData(c, response.CodeTooManyRequests, rule.message(), gin.H{"retry_after": wait})
			c.Abort()
		default:
			m.ObserveRateLimit(rule.Name, "allowed")
			c.Next()
		}
	}
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 按 JSON 字段与 IP 组合限流，字段缺失时退化为 IP
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// readJSONField 读取请求体中的字符串字段，读取后回填请求体
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
