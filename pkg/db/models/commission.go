package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission is owed to a salesperson for one confirmed yard-sale payment.
// SaleID holds the Square payment id and is unique.
type Commission struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Salesperson string          `gorm:"column:salesperson;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	SaleID      string          `gorm:"column:sale_id;not null;uniqueIndex:uq_commissions_sale_id"`
	SaleType    string          `gorm:"column:sale_type;not null"`
	SaleTotal   decimal.Decimal `gorm:"column:sale_total;type:numeric(12,2);not null"`
	SaleDate    string          `gorm:"column:sale_date;type:varchar(10);not null"`
	RecordedAt  time.Time       `gorm:"column:recorded_at;not null"`
}

func (Commission) TableName() string { return "commissions" }
