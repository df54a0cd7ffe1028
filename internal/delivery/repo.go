package delivery

import (
	"context"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
)

// Repository reads the fleet and the day's bookings.
type Repository interface {
	ActiveTrucks(ctx context.Context) ([]models.Truck, error)
	BookingsOn(ctx context.Context, date string) ([]models.DeliveryBooking, error)
}

type repository struct {
	provider db.Provider
}

func NewRepository(provider db.Provider) Repository {
	return &repository{provider: provider}
}

func (r *repository) ActiveTrucks(ctx context.Context) ([]models.Truck, error) {
	client, err := r.provider.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var trucks []models.Truck
	err = client.DB().WithContext(ctx).
		Where("active = ?", true).
		Order("truck_id ASC").
		Find(&trucks).Error
	return trucks, err
}

// BookingsOn excludes cancelled bookings.
func (r *repository) BookingsOn(ctx context.Context, date string) ([]models.DeliveryBooking, error) {
	client, err := r.provider.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var bookings []models.DeliveryBooking
	err = client.DB().WithContext(ctx).
		Where("delivery_date = ? AND status <> ?", date, enums.BookingStatusCancelled).
		Find(&bookings).Error
	return bookings, err
}
