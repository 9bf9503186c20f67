package public

import (
	"strings"

	"github.com/mercato-next/internal/http/handlers/shared"
	"github.com/mercato-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CreateOrder 游客下单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req shared.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.CreateOrderWithItems(c.Request.Context(), req.ToServiceInput())
	if err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to create order")
		return
	}
	response.Success(c, gin.H{
		"order_no":     order.OrderNo,
		"status":       order.Status,
		"total_amount": order.TotalAmount,
		"currency":     order.Currency,
		"expires_at":   order.ExpiresAt,
	})
}

// GetOrder 按订单号和下单邮箱查询订单
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	email := strings.TrimSpace(c.Query("email"))
	if orderNo == "" || email == "" {
		shared.RespondError(c, response.CodeBadRequest, "order_no and email are required", nil)
		return
	}
	order, err := h.OrderService.GetOrderForGuest(c.Request.Context(), orderNo, email)
	if err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to fetch order")
		return
	}
	response.Success(c, order)
}
