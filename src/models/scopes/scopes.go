package scopes

import (
	"vbs/src/types"

	"gorm.io/gorm"
)

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

// WithIDInStatus matches a row only while it is still in status. Used for
// guarded updates where RowsAffected tells whether the transition happened.
func WithIDInStatus[S ~string](id uint, status S) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ? AND status = ?", id, status)
	}
}

func WithPendingBookingStatus(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", types.BOOKING_PENDING)
}

// WithPendingPaymentFor matches payments of the booking still awaiting a
// provider result.
func WithPendingPaymentFor(bookingId uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("booking_id = ? AND status = ?", bookingId, types.PAYMENT_PENDING)
	}
}
