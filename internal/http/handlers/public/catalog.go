package public

import (
	"github.com/mercato-next/internal/constants"
	"github.com/mercato-next/internal/http/handlers/shared"
	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/query"

	"github.com/gin-gonic/gin"
)

const shopProductsRelation = "products"

// ListShops 店铺列表，仅展示营业中的店铺
func (h *Handler) ListShops(c *gin.Context) {
	env := shared.BindEnvelope(c, h.QueryService, query.EntityShop)
	env = h.QueryService.WithClauses(env, query.FilterClause{
		Field:    "status",
		Operator: string(query.OpEq),
		RawValue: constants.ShopStatusActive,
	})
	// 按商品字段筛选时只匹配已上架商品
	if len(env.Predicate.Relations[shopProductsRelation]) > 0 {
		env = h.QueryService.WithClauses(env, query.FilterClause{
			Field:    "product_is_active",
			Operator: string(query.OpEq),
			RawValue: "true",
		})
	}
	result, err := h.ShopService.List(c.Request.Context(), env)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ShopErrorRules, "failed to list shops")
		return
	}
	shared.RespondPage(c, env, result)
}

// GetShop 店铺详情
func (h *Handler) GetShop(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	shop, err := h.ShopService.Get(c.Request.Context(), id)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ShopErrorRules, "failed to fetch shop")
		return
	}
	if shop.Status != constants.ShopStatusActive {
		shared.RespondError(c, response.CodeNotFound, "shop not found", nil)
		return
	}
	response.Success(c, shop)
}

// ListProducts 商品列表，仅展示营业店铺中已上架的商品
func (h *Handler) ListProducts(c *gin.Context) {
	env := shared.BindEnvelope(c, h.QueryService, query.EntityProduct)
	env = h.QueryService.WithClauses(env,
		query.FilterClause{Field: "is_active", Operator: string(query.OpEq), RawValue: "true"},
		query.FilterClause{Field: "shop_status", Operator: string(query.OpEq), RawValue: constants.ShopStatusActive},
	)
	result, err := h.ProductService.List(c.Request.Context(), env)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ProductErrorRules, "failed to list products")
		return
	}
	shared.RespondPage(c, env, result)
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.ProductService.Get(c.Request.Context(), id)
	if err != nil {
		shared.RespondMappedError(c, err, shared.ProductErrorRules, "failed to fetch product")
		return
	}
	if !product.IsActive || product.Shop == nil || product.Shop.Status != constants.ShopStatusActive {
		shared.RespondError(c, response.CodeNotFound, "product not found", nil)
		return
	}
	response.Success(c, product)
}
