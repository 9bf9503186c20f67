package service

import "errors"

var (
	ErrShopNotFound       = errors.New("shop not found")
	ErrShopInvalid        = errors.New("invalid shop")
	ErrShopSlugExists     = errors.New("shop slug already exists")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductInvalid     = errors.New("invalid product")
	ErrProductSKUExists   = errors.New("product sku already exists")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderStatusInvalid = errors.New("invalid order status transition")
)
