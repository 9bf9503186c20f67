package admin

import (
	"github.com/mercato-next/internal/http/handlers/shared"
	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/query"
	"github.com/mercato-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ProductRequest 商品请求
type ProductRequest struct {
	ShopID   uint         `json:"shop_id" binding:"required"`
	SKU      string       `json:"sku" binding:"required"`
	Name     string       `json:"name" binding:"required"`
	Price    models.Money `json:"price"`
	Stock    int          `json:"stock"`
	IsActive *bool        `json:"is_active"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		ShopID:   r.ShopID,
		SKU:      r.SKU,
		Name:     r.Name,
		Price:    r.Price,
		Stock:    r.Stock,
		IsActive: r.IsActive,
	}
}

// GetAdminProducts 商品列表 (Admin)
func (h *Handler) GetAdminProducts(c *gin.Context) {
	env := shared.BindEnvelope(c, h.QueryService, query.EntityProduct)
	result, err := h.ProductService.List(c.Request.Context(), env)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ProductErrorRules, "failed to list products")
		return
	}
	shared.RespondPage(c, env, result)
}

// GetAdminProduct 商品详情 (Admin)
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.ProductService.Get(c.Request.Context(), id)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ProductErrorRules, "failed to fetch product")
		return
	}
	response.Success(c, product)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	product, err := h.ProductService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		shared.RespondMappedError(c, err, shared.ProductErrorRules, "failed to create product")
		return
	}
	requestLog(c).Infow("admin_product_created", "product_id", product.ID, "sku", product.SKU, "operator", currentUsername(c))
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	product, err := h.ProductService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		shared.RespondMappedError(c, err, shared.ProductErrorRules, "failed to update product")
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ProductService.Delete(c.Request.Context(), id); err != nil {
		shared.RespondMappedError(c, err, shared.ProductErrorRules, "failed to delete product")
		return
	}
	requestLog(c).Infow("admin_product_deleted", "product_id", id, "operator", currentUsername(c))
	response.Success(c, nil)
}
