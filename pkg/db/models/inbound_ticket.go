package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InboundTicket is the append-only audit row written for every stock increase.
type InboundTicket struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    string          `gorm:"column:product_id;not null;index"`
	Tons         decimal.Decimal `gorm:"column:tons;type:numeric(12,3);not null"`
	Vendor       string          `gorm:"column:vendor;not null"`
	Material     string          `gorm:"column:material;not null"`
	TicketNumber string          `gorm:"column:ticket_number"`
	Truck        string          `gorm:"column:truck"`
	TicketDate   string          `gorm:"column:ticket_date;type:varchar(10);not null"`
	CapturedBy   string          `gorm:"column:captured_by;not null"`
	CapturedAt   time.Time       `gorm:"column:captured_at;not null"`
}

func (InboundTicket) TableName() string { return "inbound_tickets" }
