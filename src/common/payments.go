package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"vbs/src/config"
	"vbs/src/lib"
	"vbs/src/models"
	"vbs/src/models/scopes"
	"vbs/src/types"
	"vbs/src/utils"

	"gorm.io/gorm"
)

// Payments starts card and mobile-money payments and applies provider
// outcomes to payment and booking state. Cache, Events and Mailer are
// optional.
type Payments struct {
	DB       *gorm.DB
	Config   *config.Config
	Checkout lib.CheckoutGateway
	Push     lib.PushGateway
	Cache    *lib.StatusCache
	Events   lib.Publisher
	Mailer   lib.Mailer
}

type CardCheckoutInput struct {
	BookingID  uint
	UserID     uint
	TotalPrice int64
}

type MobileMoneyInput struct {
	BookingID uint
	Phone     string
	Amount    int64
}

// payableBooking loads a booking that can accept a new payment attempt.
func payableBooking(tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.Preload("Seats").Scopes(scopes.WithID(id)).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.Status != types.BOOKING_PENDING {
		return nil, ErrBookingNotPending
	}
	if err := ensureNoPendingPayment(tx, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

func ensureNoPendingPayment(tx *gorm.DB, bookingId uint) error {
	var pending int64
	if err := tx.
		Model(&models.Payment{}).
		Scopes(scopes.WithPendingPaymentFor(bookingId)).
		Count(&pending).
		Error; err != nil {
		return err
	}
	if pending > 0 {
		return ErrPaymentInProgress
	}
	return nil
}

// InitiateCard opens a hosted checkout session for the booking total and
// records a pending card payment keyed by the session id.
func (p *Payments) InitiateCard(ctx context.Context, in CardCheckoutInput) (*types.APIResponseCheckout, error) {
	switch {
	case in.BookingID == 0:
		return nil, invalid("booking_id", "is required")
	case in.UserID == 0:
		return nil, invalid("user_id", "is required")
	case in.TotalPrice <= 0:
		return nil, invalid("total_price", "must be greater than zero")
	}
	db := p.DB.WithContext(ctx)
	booking, err := payableBooking(db, in.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.TotalPrice != in.TotalPrice {
		return nil, invalid("total_price", fmt.Sprintf("does not match booking total %d", booking.TotalPrice))
	}

	session, err := p.Checkout.CreateCheckoutSession(ctx, lib.CheckoutInput{
		BookingID:   booking.ID,
		Description: describeBooking(booking),
		Amount:      booking.TotalPrice,
		Currency:    p.Config.Currency,
	})
	if err != nil {
		log.Printf("Error creating checkout session for booking %d: %s\n", booking.ID, err.Error())
		return nil, UpstreamError{Provider: "stripe", Err: err}
	}

	payment := models.Payment{
		BookingID:   booking.ID,
		Amount:      booking.TotalPrice,
		Currency:    p.Config.Currency,
		Method:      types.PAYMENT_METHOD_CARD,
		ExternalRef: session.ID,
		Status:      types.PAYMENT_PENDING,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := ensureNoPendingPayment(tx, booking.ID); err != nil {
			return err
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if p.Config.TicketOnCheckoutSession {
			return paymentTicket(tx, in.UserID, booking.ID, session.ID)
		}
		return nil
	})
	if err != nil {
		log.Printf("Error saving card payment for booking %d: %s\n", booking.ID, err.Error())
		return nil, err
	}
	log.Printf("Checkout session %s created for booking %d\n", session.ID, booking.ID)
	return &types.APIResponseCheckout{SessionID: session.ID, URL: session.URL, PaymentID: payment.ID}, nil
}

// InitiateMobileMoney sends an STK push for the booking and records a pending
// mobile-money payment keyed by the provider's CheckoutRequestID. Nothing is
// written when validation or the provider call fails.
func (p *Payments) InitiateMobileMoney(ctx context.Context, in MobileMoneyInput) (*types.APIResponseSTKPush, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	switch {
	case !utils.IsMpesaPhone(in.Phone):
		return nil, invalid("phone", "must be in the format 254XXXXXXXXX")
	case in.Amount <= 0:
		return nil, invalid("amount", "must be greater than zero")
	case in.BookingID == 0:
		return nil, invalid("booking_id", "is required")
	}
	db := p.DB.WithContext(ctx)
	booking, err := payableBooking(db, in.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.TotalPrice != in.Amount {
		return nil, invalid("amount", fmt.Sprintf("does not match booking total %d", booking.TotalPrice))
	}

	result, err := p.Push.STKPush(ctx, lib.STKPushInput{
		Phone:       in.Phone,
		Amount:      in.Amount,
		Reference:   fmt.Sprintf("BOOKING-%d", booking.ID),
		Description: "Seat booking",
	})
	if err != nil {
		log.Printf("Error sending STK push for booking %d: %s\n", booking.ID, err.Error())
		return nil, UpstreamError{Provider: "mpesa", Err: err}
	}

	phone := in.Phone
	payment := models.Payment{
		BookingID:         booking.ID,
		Amount:            in.Amount,
		Currency:          p.Config.Currency,
		Method:            types.PAYMENT_METHOD_MOBILE_MONEY,
		ExternalRef:       result.CheckoutRequestID,
		MerchantRequestID: result.MerchantRequestID,
		Status:            types.PAYMENT_PENDING,
		Phone:             &phone,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := ensureNoPendingPayment(tx, booking.ID); err != nil {
			return err
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		log.Printf("Error saving mobile-money payment for booking %d: %s\n", booking.ID, err.Error())
		return nil, err
	}
	log.Printf("STK push %s sent for booking %d\n", result.CheckoutRequestID, booking.ID)
	return &types.APIResponseSTKPush{
		CheckoutRequestID: result.CheckoutRequestID,
		MerchantRequestID: result.MerchantRequestID,
		CustomerMessage:   result.CustomerMessage,
		PaymentID:         payment.ID,
	}, nil
}

// Status returns the payment state for a provider reference. Terminal states
// are served from the cache when one is configured.
func (p *Payments) Status(ctx context.Context, ref string) (*types.APIResponsePaymentStatus, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, invalid("checkout_request_id", "is required")
	}
	if doc, ok := p.Cache.Get(ctx, ref); ok {
		var status types.APIResponsePaymentStatus
		if err := json.Unmarshal(doc, &status); err == nil {
			return &status, nil
		}
	}
	var payment models.Payment
	if err := p.DB.WithContext(ctx).Where("external_ref = ?", ref).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	status := &types.APIResponsePaymentStatus{
		CheckoutRequestID: payment.ExternalRef,
		Status:            payment.Status,
		BookingID:         payment.BookingID,
		ResultDesc:        payment.ResultDesc,
	}
	if payment.Status.Terminal() {
		if doc, err := json.Marshal(status); err == nil {
			p.Cache.Set(ctx, ref, doc)
		}
	}
	return status, nil
}

func describeBooking(b *models.Booking) string {
	return fmt.Sprintf("Booking #%d: %s to %s on %s %s, seats %s",
		b.ID, b.Departure, b.Destination, b.DepartureDate, b.DepartureTime, strings.Join(b.SeatNumbers(), ", "))
}
