package models

import (
	"github.com/google/uuid"

	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
)

// Truck is a delivery vehicle. Inactive trucks are never offered capacity.
type Truck struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TruckID string    `gorm:"column:truck_id;not null;uniqueIndex"`
	Name    string    `gorm:"column:name;not null;default:''"`
	Active  bool      `gorm:"column:active;not null"`
}

func (Truck) TableName() string { return "trucks" }

// DeliveryBooking occupies one slot on a truck for a day.
type DeliveryBooking struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TruckID      string              `gorm:"column:truck_id;not null;index:idx_delivery_schedule_date_truck,priority:2"`
	DeliveryDate string              `gorm:"column:delivery_date;type:varchar(10);not null;index:idx_delivery_schedule_date_truck,priority:1"`
	Status       enums.BookingStatus `gorm:"column:status;not null"`
	OrderNumber  *string             `gorm:"column:order_number"`
}

func (DeliveryBooking) TableName() string { return "delivery_schedule" }
