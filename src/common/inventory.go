package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"vbs/src/models"
	"vbs/src/types"

	"gorm.io/gorm"
)

type CreateVehicleInput struct {
	Registration string
	Name         string
	Route        string
	Capacity     int
}

// Inventory manages vehicles and the seats that can be booked on them.
type Inventory struct {
	DB *gorm.DB
}

func (i *Inventory) CreateVehicle(ctx context.Context, in CreateVehicleInput) (*models.Vehicle, error) {
	reg := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(in.Registration), " ", ""))
	if reg == "" {
		return nil, invalid("registration", "is required")
	}
	if in.Capacity < 1 {
		return nil, invalid("capacity", "must be at least 1")
	}
	vehicle := models.Vehicle{
		ID:       reg,
		Name:     strings.TrimSpace(in.Name),
		Route:    strings.TrimSpace(in.Route),
		Capacity: in.Capacity,
	}
	err := i.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Unscoped().Model(&models.Vehicle{}).Where("id = ?", reg).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrVehicleExists
		}
		if err := tx.Create(&vehicle).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrVehicleExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Vehicle %s registered with capacity %d\n", vehicle.ID, vehicle.Capacity)
	return &vehicle, nil
}

// AddSeats defines seat numbers on a vehicle. The total may not exceed the
// vehicle's capacity and existing seat numbers are rejected.
func (i *Inventory) AddSeats(ctx context.Context, vehicleId string, numbers []string) ([]models.Seat, error) {
	if len(numbers) == 0 {
		return nil, invalid("seats", "at least one seat is required")
	}
	seen := make(map[string]struct{}, len(numbers))
	seats := make([]models.Seat, 0, len(numbers))
	for _, n := range numbers {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			return nil, invalid("seats", "seat number must not be empty")
		}
		if _, ok := seen[n]; ok {
			return nil, invalid("seats", fmt.Sprintf("seat %s is listed more than once", n))
		}
		seen[n] = struct{}{}
		seats = append(seats, models.Seat{VehicleID: vehicleId, SeatNumber: n})
	}
	err := i.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle models.Vehicle
		if err := tx.Where("id = ?", vehicleId).First(&vehicle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVehicleNotFound
			}
			return err
		}
		var existing []string
		if err := tx.Model(&models.Seat{}).Where("vehicle_id = ?", vehicleId).Pluck("seat_number", &existing).Error; err != nil {
			return err
		}
		for _, n := range existing {
			if _, ok := seen[n]; ok {
				return fmt.Errorf("%w: %s", ErrSeatExists, n)
			}
		}
		if len(existing)+len(seats) > vehicle.Capacity {
			return invalid("seats", fmt.Sprintf("vehicle %s has room for %d more seat(s)", vehicleId, vehicle.Capacity-len(existing)))
		}
		if err := tx.Create(&seats).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSeatExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}

func (i *Inventory) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := i.DB.WithContext(ctx).Order("id").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (i *Inventory) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := i.DB.WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat_number")
		}).
		Where("id = ?", id).
		First(&vehicle).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}

// Availability lists every seat on the vehicle with whether it is still free
// on the given departure date.
func (i *Inventory) Availability(ctx context.Context, vehicleId, date string) ([]types.APIResponseSeat, error) {
	vehicle, err := i.GetVehicle(ctx, vehicleId)
	if err != nil {
		return nil, err
	}
	var taken []string
	if err := i.DB.WithContext(ctx).
		Model(&models.BookingSeat{}).
		Where("vehicle_id = ? AND departure_date = ?", vehicleId, date).
		Pluck("seat_number", &taken).
		Error; err != nil {
		return nil, err
	}
	claimed := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		claimed[s] = struct{}{}
	}
	seats := make([]types.APIResponseSeat, 0, len(vehicle.Seats))
	for _, s := range vehicle.Seats {
		_, busy := claimed[s.SeatNumber]
		seats = append(seats, types.APIResponseSeat{SeatNumber: s.SeatNumber, Available: !busy})
	}
	return seats, nil
}
