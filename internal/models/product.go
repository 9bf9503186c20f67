package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                  // 主键
	ShopID    uint           `gorm:"not null;index" json:"shop_id"`                         // 店铺ID
	SKU       string         `gorm:"column:sku;uniqueIndex;not null" json:"sku"`            // 商品编码
	Name      string         `gorm:"type:varchar(200);not null;index" json:"name"`          // 商品名称
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`    // 单价
	Stock     int            `gorm:"not null;default:0" json:"stock"`                       // 库存
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`                   // 是否上架
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                            // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间

	// 关联
	Shop *Shop `gorm:"foreignKey:ShopID" json:"shop,omitempty"` // 所属店铺
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
