package domain

import "github.com/shopspring/decimal"

// Variant is a purchasable SKU (product + color + size) with its own price and stock.
type Variant struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	SKU       *string         `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"is_active"`
}
