package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"vbs/src/config"
	"vbs/src/lib"
	"vbs/src/models"
	"vbs/src/models/scopes"
	"vbs/src/types"

	"gorm.io/gorm"
)

type CreateBookingInput struct {
	UserID        uint
	VehicleID     string
	Seats         []string
	Departure     string
	Destination   string
	DepartureDate string
	DepartureTime string
	UnitPrice     int64
	TotalPrice    int64
}

type Bookings struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewBookings(db *gorm.DB) *Bookings {
	return &Bookings{DB: db, Now: time.Now}
}

func (b *Bookings) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b *Bookings) validate(in *CreateBookingInput) error {
	in.VehicleID = strings.TrimSpace(in.VehicleID)
	switch {
	case in.UserID == 0:
		return invalid("user_id", "is required")
	case in.VehicleID == "":
		return invalid("vehicle_id", "is required")
	case len(in.Seats) == 0:
		return invalid("seats", "at least one seat is required")
	case strings.TrimSpace(in.Departure) == "":
		return invalid("departure", "is required")
	case strings.TrimSpace(in.Destination) == "":
		return invalid("destination", "is required")
	case in.UnitPrice <= 0:
		return invalid("price", "must be greater than zero")
	}
	seen := make(map[string]struct{}, len(in.Seats))
	seats := make([]string, 0, len(in.Seats))
	for _, s := range in.Seats {
		s = strings.TrimSpace(s)
		if s == "" {
			return invalid("seats", "seat number must not be empty")
		}
		if _, ok := seen[s]; ok {
			return invalid("seats", fmt.Sprintf("seat %s is listed more than once", s))
		}
		seen[s] = struct{}{}
		seats = append(seats, s)
	}
	in.Seats = seats
	if in.TotalPrice != in.UnitPrice*int64(len(in.Seats)) {
		return invalid("total_price", fmt.Sprintf("expected %d for %d seat(s) at %d", in.UnitPrice*int64(len(in.Seats)), len(in.Seats), in.UnitPrice))
	}
	date, err := time.Parse(config.DATE_PARSE_FORMAT, in.DepartureDate)
	if err != nil {
		return invalid("departure_date", "must be formatted as YYYY-MM-DD")
	}
	if _, err := time.Parse(config.TIME_PARSE_FORMAT, in.DepartureTime); err != nil {
		return invalid("departure_time", "must be formatted as HH:MM")
	}
	today := b.now().Format(config.DATE_PARSE_FORMAT)
	if date.Format(config.DATE_PARSE_FORMAT) < today {
		return invalid("departure_date", "is in the past")
	}
	return nil
}

// Create validates the request and persists a pending booking together with
// its seat claims. Seats already claimed for the same vehicle and date are
// rejected with ErrSeatUnavailable.
func (b *Bookings) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if err := b.validate(&in); err != nil {
		return nil, err
	}
	booking := models.Booking{
		UserID:        in.UserID,
		VehicleID:     in.VehicleID,
		Departure:     in.Departure,
		Destination:   in.Destination,
		DepartureDate: in.DepartureDate,
		DepartureTime: in.DepartureTime,
		UnitPrice:     in.UnitPrice,
		TotalPrice:    in.TotalPrice,
		Status:        types.BOOKING_PENDING,
	}
	err := b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&models.User{}).Where("id = ?", in.UserID).Count(&users).Error; err != nil {
			return err
		}
		if users == 0 {
			return ErrUserNotFound
		}
		var vehicles int64
		if err := tx.Model(&models.Vehicle{}).Where("id = ?", in.VehicleID).Count(&vehicles).Error; err != nil {
			return err
		}
		if vehicles == 0 {
			return ErrVehicleNotFound
		}
		var known []string
		if err := tx.
			Model(&models.Seat{}).
			Where("vehicle_id = ? AND seat_number IN ?", in.VehicleID, in.Seats).
			Pluck("seat_number", &known).
			Error; err != nil {
			return err
		}
		if missing := difference(in.Seats, known); len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrSeatNotFound, strings.Join(missing, ", "))
		}
		var taken []string
		if err := tx.
			Model(&models.BookingSeat{}).
			Where("vehicle_id = ? AND departure_date = ? AND seat_number IN ?", in.VehicleID, in.DepartureDate, in.Seats).
			Pluck("seat_number", &taken).
			Error; err != nil {
			return err
		}
		if len(taken) > 0 {
			return fmt.Errorf("%w: %s", ErrSeatUnavailable, strings.Join(taken, ", "))
		}

		if err := tx.Omit("Seats", "User").Create(&booking).Error; err != nil {
			return err
		}
		claims := make([]models.BookingSeat, 0, len(in.Seats))
		for _, s := range in.Seats {
			claims = append(claims, models.BookingSeat{
				BookingID:     booking.ID,
				VehicleID:     in.VehicleID,
				SeatNumber:    s,
				DepartureDate: in.DepartureDate,
			})
		}
		if err := tx.Create(&claims).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSeatUnavailable
			}
			return err
		}
		booking.Seats = claims
		return nil
	})
	if err != nil {
		log.Printf("Error creating booking for user %d: %s\n", in.UserID, err.Error())
		return nil, err
	}
	log.Printf("Booking %d created for vehicle %s on %s: seats=%v\n", booking.ID, booking.VehicleID, booking.DepartureDate, in.Seats)
	return &booking, nil
}

func (b *Bookings) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := b.DB.WithContext(ctx).
		Model(&models.Booking{}).
		Preload("Seats").
		Where("id = ?", id).
		First(&booking).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (b *Bookings) ListForUser(ctx context.Context, userId uint, status types.BookingStatus) ([]models.Booking, error) {
	q := b.DB.WithContext(ctx).
		Model(&models.Booking{}).
		Preload("Seats").
		Where("user_id = ?", userId)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bookings []models.Booking
	if err := q.Order("id desc").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// Cancel marks a pending or confirmed booking cancelled and releases its
// seats. Bookings with a payment still awaiting its callback cannot be
// cancelled.
func (b *Bookings) Cancel(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status != types.BOOKING_PENDING && booking.Status != types.BOOKING_CONFIRMED {
			return fmt.Errorf("%w: booking is %s", ErrConflict, booking.Status)
		}
		if err := ensureNoPendingPayment(tx, id); err != nil {
			return err
		}
		res := tx.
			Model(&models.Booking{}).
			Scopes(scopes.WithIDInStatus(id, booking.Status)).
			Update("status", types.BOOKING_CANCELLED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking changed while cancelling", ErrConflict)
		}
		booking.Status = types.BOOKING_CANCELLED
		return releaseSeats(tx, id)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Booking %d cancelled\n", id)
	return &booking, nil
}

// SweepAbandoned cancels pending bookings older than ttl that never had a
// payment started, releasing the seats they hold.
func (b *Bookings) SweepAbandoned(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := b.now().Add(-ttl)
	var ids []uint
	err := b.DB.WithContext(ctx).
		Model(&models.Booking{}).
		Scopes(scopes.WithPendingBookingStatus).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM payments WHERE payments.booking_id = bookings.id AND payments.status = ?)", types.PAYMENT_PENDING).
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, id := range ids {
		cancelled := false
		err := b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.
				Model(&models.Booking{}).
				Scopes(scopes.WithIDInStatus(id, types.BOOKING_PENDING)).
				Update("status", types.BOOKING_CANCELLED)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			cancelled = true
			return releaseSeats(tx, id)
		})
		if err != nil {
			log.Printf("Error sweeping booking %d: %s\n", id, err.Error())
			continue
		}
		if cancelled {
			swept++
		}
	}
	return swept, nil
}

// CompleteDeparted moves confirmed bookings whose departure date has passed
// to completed.
func (b *Bookings) CompleteDeparted(ctx context.Context) (int64, error) {
	today := b.now().Format(config.DATE_PARSE_FORMAT)
	res := b.DB.WithContext(ctx).
		Model(&models.Booking{}).
		Where("status = ? AND departure_date < ?", types.BOOKING_CONFIRMED, today).
		Update("status", types.BOOKING_COMPLETED)
	return res.RowsAffected, res.Error
}

// Receipt renders the PDF receipt of a confirmed or completed booking.
func (b *Bookings) Receipt(ctx context.Context, id uint) ([]byte, string, error) {
	var booking models.Booking
	err := b.DB.WithContext(ctx).
		Preload("Seats").
		Preload("User").
		Where("id = ?", id).
		First(&booking).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrBookingNotFound
		}
		return nil, "", err
	}
	if booking.Status != types.BOOKING_CONFIRMED && booking.Status != types.BOOKING_COMPLETED {
		return nil, "", ErrBookingNotConfirmed
	}
	var payment models.Payment
	if err := b.DB.WithContext(ctx).
		Where("booking_id = ? AND status = ?", id, types.PAYMENT_COMPLETED).
		Order("id desc").
		First(&payment).
		Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}
	data := lib.ReceiptData{
		BookingID:     booking.ID,
		VehicleID:     booking.VehicleID,
		Seats:         booking.SeatNumbers(),
		Departure:     booking.Departure,
		Destination:   booking.Destination,
		DepartureDate: booking.DepartureDate,
		DepartureTime: booking.DepartureTime,
		UnitPrice:     booking.UnitPrice,
		TotalPrice:    booking.TotalPrice,
		Currency:      payment.Currency,
		Method:        string(payment.Method),
	}
	if booking.User != nil {
		data.PassengerName = booking.User.Name
	}
	if payment.Receipt != nil {
		data.Receipt = *payment.Receipt
	}
	if payment.CompletedAt != nil {
		data.PaidAt = *payment.CompletedAt
	}
	return lib.RenderReceipt(data)
}

func releaseSeats(tx *gorm.DB, bookingId uint) error {
	return tx.Where("booking_id = ?", bookingId).Delete(&models.BookingSeat{}).Error
}

func difference(want, have []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := set[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
