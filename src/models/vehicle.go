package models

import "vbs/src/types"

// Vehicle is keyed by its registration plate, e.g. KAA001X.
type Vehicle struct {
	ID       string `gorm:"primarykey;size:16" json:"id"`
	Name     string `json:"name,omitempty"`
	Route    string `json:"route,omitempty"`
	Capacity int    `json:"capacity"`

	Seats []Seat `gorm:"foreignKey:vehicle_id" json:"seats,omitempty"`

	types.Timestamps
}

type Seat struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	VehicleID  string `gorm:"size:16;uniqueIndex:idx_vehicle_seat" json:"vehicle_id"`
	SeatNumber string `gorm:"size:8;uniqueIndex:idx_vehicle_seat" json:"seat_number"`

	types.Timestamps
}
