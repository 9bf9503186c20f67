package shared

import (
	"github.com/mercato-next/internal/http/response"
	"github.com/mercato-next/internal/service"
)

// ShopErrorRules 店铺相关错误映射
var ShopErrorRules = []MappedError{
	{Target: service.ErrShopNotFound, Code: response.CodeNotFound, Msg: "shop not found"},
	{Target: service.ErrShopInvalid, Code: response.CodeBadRequest, Msg: "invalid shop"},
	{Target: service.ErrShopSlugExists, Code: response.CodeConflict, Msg: "shop slug already exists"},
}

// ProductErrorRules 商品相关错误映射
var ProductErrorRules = []MappedError{
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Msg: "product not found"},
	{Target: service.ErrProductInvalid, Code: response.CodeBadRequest, Msg: "invalid product"},
	{Target: service.ErrProductSKUExists, Code: response.CodeConflict, Msg: "product sku already exists"},
	{Target: service.ErrShopNotFound, Code: response.CodeBadRequest, Msg: "shop not found"},
	{Target: service.ErrShopInvalid, Code: response.CodeBadRequest, Msg: "shop is closed"},
}

// OrderErrorRules 订单相关错误映射
var OrderErrorRules = []MappedError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Msg: "order not found"},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeBadRequest, Msg: "invalid order status transition"},
}
