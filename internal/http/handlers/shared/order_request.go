package shared

import (
	"github.com/mercato-next/internal/models"
	"github.com/mercato-next/internal/service"
)

// OrderItemRequest 订单项请求
type OrderItemRequest struct {
	ProductID uint         `json:"product_id" binding:"required"`
	Quantity  int          `json:"quantity" binding:"required"`
	UnitPrice models.Money `json:"unit_price"`
	Amount    models.Money `json:"amount"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	ShopID      uint               `json:"shop_id" binding:"required"`
	Email       string             `json:"email" binding:"required"`
	Currency    string             `json:"currency"`
	TotalAmount models.Money       `json:"total_amount"`
	Items       []OrderItemRequest `json:"items" binding:"required"`
}

// ToServiceInput 转换为服务层输入
func (r CreateOrderRequest) ToServiceInput() service.CreateOrderInput {
	items := make([]service.CreateOrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, service.CreateOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    item.Amount,
		})
	}
	return service.CreateOrderInput{
		ShopID:        r.ShopID,
		CustomerEmail: r.Email,
		Currency:      r.Currency,
		TotalAmount:   r.TotalAmount,
		Items:         items,
	}
}
