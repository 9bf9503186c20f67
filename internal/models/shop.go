package models

import (
	"time"

	"gorm.io/gorm"
)

// Shop 店铺表
type Shop struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`                          // 唯一标识
	Name      string         `gorm:"type:varchar(120);not null;index" json:"name"`              // 店铺名称
	Status    string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // 店铺状态（active/closed）
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Products []Product `gorm:"foreignKey:ShopID" json:"products,omitempty"` // 店铺商品
}

// TableName 指定表名
func (Shop) TableName() string {
	return "shops"
}
