package admin

import (
	"github.com/mercato-next/internal/http/handlers/shared"
	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/query"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest 订单状态更新请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GetAdminOrders 订单列表 (Admin)
func (h *Handler) GetAdminOrders(c *gin.Context) {
	env := shared.BindEnvelope(c, h.QueryService, query.EntityOrder)
	result, err := h.OrderService.ListOrders(c.Request.Context(), env)
	if err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to list orders")
		return
	}
	shared.RespondPage(c, env, result)
}

// GetAdminOrder 订单详情 (Admin)
func (h *Handler) GetAdminOrder(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to fetch order")
		return
	}
	response.Success(c, order)
}

// CreateAdminOrder 后台代客下单
func (h *Handler) CreateAdminOrder(c *gin.Context) {
	var req shared.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	order, err := h.OrderService.CreateOrderWithItems(c.Request.Context(), req.ToServiceInput())
	if err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to create order")
		return
	}
	requestLog(c).Infow("admin_order_created", "order_id", order.ID, "order_no", order.OrderNo, "operator", currentUsername(c))
	response.Success(c, order)
}

// UpdateOrderStatus 更新订单状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	order, err := h.OrderService.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to update order status")
		return
	}
	requestLog(c).Infow("admin_order_status_updated",
		"order_id", id,
		"status", order.Status,
		"operator", currentUsername(c),
	)
	response.Success(c, order)
}

// DeleteOrder 删除订单
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.OrderService.DeleteOrder(c.Request.Context(), id); err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to delete order")
		return
	}
	requestLog(c).Infow("admin_order_deleted", "order_id", id, "operator", currentUsername(c))
	response.Success(c, nil)
}

// GetAdminOrderItems 订单项列表 (Admin)
func (h *Handler) GetAdminOrderItems(c *gin.Context) {
	env := shared.BindEnvelope(c, h.QueryService, query.EntityOrderItem)
	result, err := h.OrderService.ListOrderItems(c.Request.Context(), env)
	if err != nil {
		shared.RespondMappedError(c, err, shared.OrderErrorRules, "failed to list order items")
		return
	}
	shared.RespondPage(c, env, result)
}
