package admin

import (
	"github.com/mercato-next/internal/http/handlers/shared"
	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/query"
	"github.com/mercato-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ShopRequest 店铺请求
type ShopRequest struct {
	Slug   string `json:"slug" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Status string `json:"status"`
}

func (r ShopRequest) toInput() service.ShopInput {
	return service.ShopInput{Slug: r.Slug, Name: r.Name, Status: r.Status}
}

// GetAdminShops 店铺列表 (Admin)
func (h *Handler) GetAdminShops(c *gin.Context) {
	env := shared.BindEnvelope(c, h.QueryService, query.EntityShop)
	result, err := h.ShopService.List(c.Request.Context(), env)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ShopErrorRules, "failed to list shops")
		return
	}
	shared.RespondPage(c, env, result)
}

// GetAdminShop 店铺详情 (Admin)
func (h *Handler) GetAdminShop(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	shop, err := h.ShopService.Get(c.Request.Context(), id)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ShopErrorRules, "failed to fetch shop")
		return
	}
	response.Success(c, shop)
}

// CreateShop 创建店铺
func (h *Handler) CreateShop(c *gin.Context) {
	var req ShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	shop, err := h.ShopService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		shared.RespondMappedError(c, err, shared.ShopErrorRules, "failed to create shop")
		return
	}
	requestLog(c).Infow("admin_shop_created", "shop_id", shop.ID, "slug", shop.Slug, "operator", currentUsername(c))
	response.Success(c, shop)
}

// UpdateShop 更新店铺
func (h *Handler) UpdateShop(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	shop, err := h.ShopService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		shared.RespondMappedError(c, err, shared.ShopErrorRules, "failed to update shop")
		return
	}
	response.Success(c, shop)
}

// DeleteShop 删除店铺
func (h *Handler) DeleteShop(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ShopService.Delete(c.Request.Context(), id); err != nil {
		shared.RespondMappedError(c, err, shared.ShopErrorRules, "failed to delete shop")
		return
	}
	requestLog(c).Infow("admin_shop_deleted", "shop_id", id, "operator", currentUsername(c))
	response.Success(c, nil)
}
