package models

import (
	"errors"

	"github.com/mercato-next/internal/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedProduct struct {
	SKU   string
	Name  string
	Price string
	Stock int
}

type seedShop struct {
	Slug     string
	Name     string
	Products []seedProduct
}

var demoCatalog = []seedShop{
	{
		Slug: "north-hardware",
		Name: "North Hardware",
		Products: []seedProduct{
			{SKU: "NH-HAMMER-01", Name: "Claw Hammer", Price: "24.90", Stock: 120},
			{SKU: "NH-DRILL-02", Name: "Cordless Drill", Price: "89.00", Stock: 35},
			{SKU: "NH-TAPE-03", Name: "Measuring Tape 5m", Price: "7.50", Stock: 400},
		},
	},
	{
		Slug: "harbor-books",
		Name: "Harbor Books",
		Products: []seedProduct{
			{SKU: "HB-NOVEL-01", Name: "The Quiet Harbor", Price: "18.00", Stock: 60},
			{SKU: "HB-ATLAS-02", Name: "Coastal Atlas", Price: "42.00", Stock: 12},
		},
	},
}

// SeedDemoCatalog 写入演示店铺与商品，已存在的记录跳过
func SeedDemoCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	for _, entry := range demoCatalog {
		shop := Shop{Slug: entry.Slug}
		if err := db.Where(Shop{Slug: entry.Slug}).
			Attrs(Shop{Name: entry.Name, Status: "active"}).
			FirstOrCreate(&shop).Error; err != nil {
			return err
		}
		for _, item := range entry.Products {
			price, err := decimal.NewFromString(item.Price)
			if err != nil {
				return err
			}
			product := Product{SKU: item.SKU}
			result := db.Where(Product{SKU: item.SKU}).
				Attrs(Product{
					ShopID:   shop.ID,
					Name:     item.Name,
					Price:    NewMoneyFromDecimal(price),
					Stock:    item.Stock,
					IsActive: true,
				}).
				FirstOrCreate(&product)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				logger.Infow("seed_product_created", "shop", shop.Slug, "sku", product.SKU)
			}
		}
	}
	return nil
}
