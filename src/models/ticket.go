package models

import (
	"vbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is a support ticket, not a travel ticket.
type Ticket struct {
	ID        uuid.UUID          `gorm:"primarykey;type:uuid" json:"id"`
	UserID    uint               `gorm:"index" json:"user_id"`
	BookingID *uint              `gorm:"index" json:"booking_id,omitempty"`
	Subject   string             `json:"subject"`
	Message   string             `json:"message"`
	Status    types.TicketStatus `gorm:"default:'open'" json:"status"`

	types.Timestamps
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
