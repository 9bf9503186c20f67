package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	ShopID        uint           `gorm:"index;not null" json:"shop_id"`                             // 店铺ID
	CustomerEmail string         `gorm:"index;not null" json:"customer_email"`                      // 下单邮箱
	Status        string         `gorm:"index;not null" json:"status"`                              // 订单状态
	Currency      string         `gorm:"type:varchar(10);not null" json:"currency"`                 // 币种
	TotalAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 订单总额
	ExpiresAt     *time.Time     `gorm:"index" json:"expires_at"`                                   // 支付过期时间
	CanceledAt    *time.Time     `gorm:"index" json:"canceled_at"`                                  // 取消时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
