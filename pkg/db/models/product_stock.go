package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStock is the running tonnage on hand for one product.
type ProductStock struct {
	ProductID    string          `gorm:"column:product_id;primaryKey"`
	CurrentStock decimal.Decimal `gorm:"column:current_stock;type:numeric(12,3);not null;default:0"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (ProductStock) TableName() string { return "product_stocks" }
