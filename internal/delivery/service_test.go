package delivery

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db/dbtest"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

func trucks(ids ...string) []models.Truck {
	out := make([]models.Truck, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Truck{ID: uuid.New(), TruckID: id, Active: true})
	}
	return out
}

func bookings(date string, perTruck map[string]int) []models.DeliveryBooking {
	var out []models.DeliveryBooking
	for truckID, n := range perTruck {
		for i := 0; i < n; i++ {
			out = append(out, models.DeliveryBooking{
				ID:           uuid.New(),
				TruckID:      truckID,
				DeliveryDate: date,
				Status:       enums.BookingStatusScheduled,
			})
		}
	}
	return out
}

func TestEvaluateCapacity(t *testing.T) {
	const date = "2025-03-14"
	fleet := trucks("T1", "T2")

	cases := []struct {
		name     string
		load     map[string]int
		expected bool
	}{
		{name: "fifteen bookings leaves one slot", load: map[string]int{"T1": 8, "T2": 7}, expected: true},
		{name: "sixteen bookings is full", load: map[string]int{"T1": 8, "T2": 8}, expected: false},
		{name: "empty day", load: nil, expected: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateCapacity(date, fleet, bookings(date, tc.load), 8)
			if got.HasCapacity() != tc.expected {
				t.Fatalf("expected capacity %v, got %+v", tc.expected, got)
			}
		})
	}
}

func TestEvaluateCapacityIgnoresCancelledAndInactive(t *testing.T) {
	const date = "2025-03-14"
	fleet := trucks("T1")
	fleet = append(fleet, models.Truck{ID: uuid.New(), TruckID: "T9", Active: false})

	booked := bookings(date, map[string]int{"T1": 8})
	booked[0].Status = enums.BookingStatusCancelled

	got := EvaluateCapacity(date, fleet, booked, 8)
	if len(got.AvailableTrucks) != 1 || got.AvailableTrucks[0] != "T1" {
		t.Fatalf("expected only T1 available, got %v", got.AvailableTrucks)
	}
}

func TestEvaluateCapacityNoTrucks(t *testing.T) {
	if EvaluateCapacity("2025-03-14", nil, nil, 8).HasCapacity() {
		t.Fatal("expected no capacity without trucks")
	}
}

func TestServiceCheck(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	const date = "2025-03-14"

	for _, truck := range trucks("T1", "T2") {
		if err := conn.Create(&truck).Error; err != nil {
			t.Fatalf("seed truck: %v", err)
		}
	}
	seed := bookings(date, map[string]int{"T1": 8, "T2": 8})
	seed[3].Status = enums.BookingStatusCancelled
	if err := conn.Create(&seed).Error; err != nil {
		t.Fatalf("seed bookings: %v", err)
	}

	svc, err := NewService(NewRepository(db.FromGorm(conn)), 8, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	capacity, err := svc.Check(ctx, date)
	if err != nil {
		t.Fatalf("expected capacity with a cancelled booking, got %v", err)
	}
	if !capacity.HasCapacity() {
		t.Fatal("expected a free truck")
	}

	seed[3].Status = enums.BookingStatusScheduled
	if err := conn.Save(&seed[3]).Error; err != nil {
		t.Fatalf("restore booking: %v", err)
	}

	_, err = svc.Check(ctx, date)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNoDeliveryCapacity {
		t.Fatalf("expected no capacity, got %v", err)
	}
	want := fmt.Sprintf("No delivery trucks available on %s. Please select a different date.", date)
	if typed.Details()["message"] != want || typed.Details()["date"] != date {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestServiceCheckRejectsBadDate(t *testing.T) {
	svc, err := NewService(&stubRepo{}, 0, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for _, date := range []string{"", "03/14/2025", "2025-3-14"} {
		if _, err := svc.Check(context.Background(), date); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %q, got %v", date, err)
		}
	}
}

type stubRepo struct{}

func (stubRepo) ActiveTrucks(context.Context) ([]models.Truck, error) { return nil, nil }

func (stubRepo) BookingsOn(context.Context, string) ([]models.DeliveryBooking, error) {
	return nil, nil
}
