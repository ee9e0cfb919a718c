package models

import (
	"time"
	"vbs/src/types"
)

type Booking struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	UserID        uint                `gorm:"index" json:"user_id"`
	VehicleID     string              `gorm:"size:16;index" json:"vehicle_id"`
	Departure     string              `json:"departure"`
	Destination   string              `json:"destination"`
	DepartureDate string              `gorm:"size:10" json:"departure_date"`
	DepartureTime string              `gorm:"size:5" json:"departure_time"`
	UnitPrice     int64               `json:"unit_price"`
	TotalPrice    int64               `json:"total_price"`
	Status        types.BookingStatus `gorm:"index;default:'pending'" json:"status"`

	User  *User         `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Seats []BookingSeat `gorm:"foreignKey:booking_id" json:"seats,omitempty"`

	types.Timestamps
}

func (b *Booking) SeatNumbers() []string {
	seats := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		seats = append(seats, s.SeatNumber)
	}
	return seats
}

// BookingSeat is the claim a booking holds on a seat for one departure date.
// The unique index is what stops two bookings from claiming the same seat.
type BookingSeat struct {
	ID            uint      `gorm:"primarykey" json:"-"`
	BookingID     uint      `gorm:"index" json:"booking_id"`
	VehicleID     string    `gorm:"size:16;uniqueIndex:idx_seat_claim" json:"vehicle_id"`
	SeatNumber    string    `gorm:"size:8;uniqueIndex:idx_seat_claim" json:"seat_number"`
	DepartureDate string    `gorm:"size:10;uniqueIndex:idx_seat_claim" json:"departure_date"`
	CreatedAt     time.Time `json:"-"`
}
