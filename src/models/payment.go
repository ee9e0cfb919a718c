package models

import (
	"time"
	"vbs/src/types"
)

// Payment is one external payment attempt. BookingID is a plain column so a
// failed payment survives the rollback of its booking.
type Payment struct {
	ID                uint                `gorm:"primarykey" json:"id"`
	BookingID         uint                `gorm:"index" json:"booking_id"`
	Amount            int64               `json:"amount"`
	Currency          string              `gorm:"size:3" json:"currency"`
	Method            types.PaymentMethod `gorm:"size:16" json:"method"`
	ExternalRef       string              `gorm:"uniqueIndex;size:128" json:"external_ref"`
	MerchantRequestID string              `json:"merchant_request_id,omitempty"`
	Status            types.PaymentStatus `gorm:"index;default:'pending'" json:"status"`
	ResultCode        *int                `json:"result_code,omitempty"`
	ResultDesc        string              `json:"result_desc,omitempty"`
	Receipt           *string             `json:"receipt,omitempty"`
	Phone             *string             `json:"phone,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`

	types.Timestamps
}
