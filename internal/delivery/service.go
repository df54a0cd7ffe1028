package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

// DefaultSlotsPerTruck covers an 8am-4pm day in one-hour blocks.
const DefaultSlotsPerTruck = 8

const dateLayout = "2006-01-02"

// Capacity is the result of evaluating one day's truck load.
type Capacity struct {
	Date            string
	AvailableTrucks []string
	Load            map[string]int
}

// HasCapacity reports whether at least one truck has a free slot.
func (c Capacity) HasCapacity() bool {
	return len(c.AvailableTrucks) > 0
}

// EvaluateCapacity counts bookings per truck and lists trucks below the slot
// limit. Cancelled bookings and inactive trucks are ignored.
func EvaluateCapacity(date string, trucks []models.Truck, bookings []models.DeliveryBooking, slotsPerTruck int) Capacity {
	if slotsPerTruck <= 0 {
		slotsPerTruck = DefaultSlotsPerTruck
	}
	load := make(map[string]int, len(trucks))
	for _, b := range bookings {
		if b.Status == enums.BookingStatusCancelled {
			continue
		}
		load[b.TruckID]++
	}

	capacity := Capacity{Date: date, Load: load}
	for _, t := range trucks {
		if !t.Active {
			continue
		}
		if load[t.TruckID] < slotsPerTruck {
			capacity.AvailableTrucks = append(capacity.AvailableTrucks, t.TruckID)
		}
	}
	return capacity
}

// Service answers "is there a truck free on this date". It does not reserve
// the slot.
type Service struct {
	repo          Repository
	slotsPerTruck int
	logg          *logger.Logger
}

func NewService(repo Repository, slotsPerTruck int, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "delivery repository required")
	}
	if slotsPerTruck <= 0 {
		slotsPerTruck = DefaultSlotsPerTruck
	}
	return &Service{repo: repo, slotsPerTruck: slotsPerTruck, logg: logg}, nil
}

// Check returns a NoDeliveryCapacity error when every active truck is full.
func (s *Service) Check(ctx context.Context, date string) (*Capacity, error) {
	date = strings.TrimSpace(date)
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery date must be YYYY-MM-DD")
	}

	trucks, err := s.repo.ActiveTrucks(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trucks")
	}
	bookings, err := s.repo.BookingsOn(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery schedule")
	}

	capacity := EvaluateCapacity(date, trucks, bookings, s.slotsPerTruck)
	if !capacity.HasCapacity() {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"delivery_date": date,
				"trucks":        len(trucks),
				"bookings":      len(bookings),
			}), "delivery.no_capacity")
		}
		return &capacity, NoCapacityError(date)
	}
	return &capacity, nil
}

func NoCapacityError(date string) error {
	return pkgerrors.New(pkgerrors.CodeNoDeliveryCapacity, "no delivery capacity").WithDetails(map[string]any{
		"date":    date,
		"message": fmt.Sprintf("No delivery trucks available on %s. Please select a different date.", date),
	})
}
