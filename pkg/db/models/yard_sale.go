package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
)

// SaleItem is one line of a yard sale.
type SaleItem struct {
	ProductID string          `json:"productId,omitempty"`
	Material  string          `json:"material,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Tons      decimal.Decimal `json:"tons"`
	Total     decimal.Decimal `json:"total"`
}

// YardSale is the shared sale record written by the order path, the webhook
// path and single-product inventory decreases. Rows produced by a card charge
// are keyed by SquarePaymentID.
type YardSale struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     *string                 `gorm:"column:order_number;uniqueIndex:uq_yard_sales_order_number"`
	OrderType       string                  `gorm:"column:order_type;not null;default:'yard_sale'"`
	Source          enums.SaleSource        `gorm:"column:source;not null"`
	CustomerName    string                  `gorm:"column:customer_name;not null;default:''"`
	CustomerEmail   string                  `gorm:"column:customer_email;not null;default:''"`
	CustomerPhone   string                  `gorm:"column:customer_phone;not null;default:''"`
	Items           []SaleItem              `gorm:"column:items;type:jsonb;serializer:json"`
	ProductID       *string                 `gorm:"column:product_id"`
	Tons            decimal.NullDecimal     `gorm:"column:tons;type:numeric(12,3)"`
	Subtotal        decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Total           decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	DeliveryDate    *string                 `gorm:"column:delivery_date;type:varchar(10)"`
	DeliveryStatus  *enums.DeliveryStatus   `gorm:"column:delivery_status"`
	PaymentMethod   string                  `gorm:"column:payment_method;not null;default:'card'"`
	PaymentStatus   enums.SalePaymentStatus `gorm:"column:payment_status;not null"`
	SquarePaymentID *string                 `gorm:"column:square_payment_id;uniqueIndex:uq_yard_sales_square_payment_id"`
	ReceiptURL      *string                 `gorm:"column:receipt_url"`
	LocationID      *string                 `gorm:"column:location_id"`
	CompletedAt     *time.Time              `gorm:"column:completed_at"`
	Salesperson     string                  `gorm:"column:salesperson;not null;default:''"`
	Status          enums.SaleStatus        `gorm:"column:status;not null"`
	Commission      decimal.NullDecimal     `gorm:"column:commission;type:numeric(12,2)"`
	Notes           string                  `gorm:"column:notes;not null;default:''"`
	CreatedAt       time.Time               `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;not null"`
}

func (YardSale) TableName() string { return "yard_sales" }
