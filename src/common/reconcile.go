package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"vbs/src/lib"
	"vbs/src/models"
	"vbs/src/models/scopes"
	"vbs/src/types"

	"github.com/stripe/stripe-go/v82"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

const (
	EVENT_PAYMENT_COMPLETED = "payment.completed"
	EVENT_PAYMENT_FAILED    = "payment.failed"
)

// ProviderResult is a provider outcome reduced to what reconciliation needs.
// ResultCode 0 means the payer was charged.
type ProviderResult struct {
	ExternalRef string
	ResultCode  int
	ResultDesc  string
	Receipt     string
}

type Outcome struct {
	PaymentID    uint
	BookingID    uint
	Status       types.PaymentStatus
	Applied      bool
	BookingFound bool
}

// Reconcile applies a provider result to the payment identified by
// res.ExternalRef and to its booking, in one transaction. Only pending
// payments move; a repeated or late result is acknowledged without changes.
func (p *Payments) Reconcile(ctx context.Context, res ProviderResult) (*Outcome, error) {
	res.ExternalRef = strings.TrimSpace(res.ExternalRef)
	if res.ExternalRef == "" {
		return nil, ErrMalformedCallback
	}
	var (
		payment models.Payment
		booking models.Booking
		outcome Outcome
	)
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("external_ref = ?", res.ExternalRef).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		outcome = Outcome{PaymentID: payment.ID, BookingID: payment.BookingID, Status: payment.Status}
		if payment.Status != types.PAYMENT_PENDING {
			return nil
		}

		status := types.PAYMENT_FAILED
		if res.ResultCode == 0 {
			status = types.PAYMENT_COMPLETED
		}
		code := res.ResultCode
		updates := map[string]any{
			"status":      status,
			"result_code": code,
			"result_desc": res.ResultDesc,
		}
		if res.Receipt != "" {
			updates["receipt"] = res.Receipt
		}
		if status == types.PAYMENT_COMPLETED {
			updates["completed_at"] = time.Now()
		}
		upd := tx.
			Model(&models.Payment{}).
			Scopes(scopes.WithIDInStatus(payment.ID, types.PAYMENT_PENDING)).
			Updates(updates)
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return nil
		}
		outcome.Applied = true
		outcome.Status = status
		payment.Status = status

		err := tx.Where("id = ?", payment.BookingID).First(&booking).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		outcome.BookingFound = err == nil
		if !outcome.BookingFound {
			log.Printf("Booking %d for payment %s no longer exists\n", payment.BookingID, payment.ExternalRef)
			return nil
		}

		if status == types.PAYMENT_COMPLETED {
			if err := tx.
				Model(&models.Booking{}).
				Scopes(scopes.WithIDInStatus(booking.ID, types.BOOKING_PENDING)).
				Update("status", types.BOOKING_CONFIRMED).
				Error; err != nil {
				return err
			}
			booking.Status = types.BOOKING_CONFIRMED
			if payment.Method == types.PAYMENT_METHOD_CARD && !p.Config.TicketOnCheckoutSession {
				return paymentTicket(tx, booking.UserID, booking.ID, payment.ExternalRef)
			}
			return nil
		}
		if err := releaseSeats(tx, booking.ID); err != nil {
			return err
		}
		return tx.Unscoped().Where("id = ?", booking.ID).Delete(&models.Booking{}).Error
	})
	if err != nil {
		log.Printf("Error reconciling payment %s: %s\n", res.ExternalRef, err.Error())
		return nil, err
	}
	if !outcome.Applied {
		log.Printf("Payment %s already %s, ignoring result %d\n", res.ExternalRef, outcome.Status, res.ResultCode)
		return &outcome, nil
	}
	log.Printf("Payment %s %s: booking=%d code=%d desc=%q\n", res.ExternalRef, outcome.Status, outcome.BookingID, res.ResultCode, res.ResultDesc)
	p.afterReconcile(ctx, &payment, &booking, &outcome)
	return &outcome, nil
}

// afterReconcile runs the side effects of a committed outcome. None of them
// can undo it, so failures are only logged.
func (p *Payments) afterReconcile(ctx context.Context, payment *models.Payment, booking *models.Booking, outcome *Outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	p.Cache.Invalidate(ctx, payment.ExternalRef)

	if p.Events != nil {
		event := EVENT_PAYMENT_FAILED
		if outcome.Status == types.PAYMENT_COMPLETED {
			event = EVENT_PAYMENT_COMPLETED
		}
		payload := types.JSONB{
			"event":        event,
			"payment_id":   payment.ID,
			"booking_id":   payment.BookingID,
			"external_ref": payment.ExternalRef,
			"method":       payment.Method,
			"amount":       payment.Amount,
			"currency":     payment.Currency,
			"status":       outcome.Status,
		}
		if err := p.Events.Publish(ctx, payment.ExternalRef, payload); err != nil {
			log.Printf("Error publishing %s for payment %s: %s\n", event, payment.ExternalRef, err.Error())
		}
	}

	if outcome.Status != types.PAYMENT_COMPLETED || !outcome.BookingFound || p.Mailer == nil {
		return
	}
	var user models.User
	if err := p.DB.WithContext(ctx).Where("id = ?", booking.UserID).First(&user).Error; err != nil {
		log.Printf("Error loading user %d for confirmation email: %s\n", booking.UserID, err.Error())
		return
	}
	var seats []string
	p.DB.WithContext(ctx).
		Model(&models.BookingSeat{}).
		Where("booking_id = ?", booking.ID).
		Order("seat_number").
		Pluck("seat_number", &seats)
	err := p.Mailer.SendMail(ctx, &lib.SendMailInput{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Booking #%d confirmed", booking.ID),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour payment of %d %s was received. Booking #%d from %s to %s on %s at %s is confirmed.\nSeats: %s\n",
			user.Name, payment.Amount, strings.ToUpper(payment.Currency), booking.ID,
			booking.Departure, booking.Destination, booking.DepartureDate, booking.DepartureTime,
			strings.Join(seats, ", "),
		),
	})
	if err != nil {
		log.Printf("Error sending confirmation for booking %d: %s\n", booking.ID, err.Error())
	}
}

// ReconcileMpesaCallback parses a Daraja STK callback document and reconciles it.
func (p *Payments) ReconcileMpesaCallback(ctx context.Context, payload []byte) (*Outcome, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrMalformedCallback
	}
	cb := gjson.GetBytes(payload, "Body.stkCallback")
	if !cb.IsObject() {
		return nil, ErrMalformedCallback
	}
	code := cb.Get("ResultCode")
	if code.Type != gjson.Number {
		return nil, ErrMalformedCallback
	}
	res := ProviderResult{
		ExternalRef: cb.Get("CheckoutRequestID").String(),
		ResultCode:  int(code.Int()),
		ResultDesc:  cb.Get("ResultDesc").String(),
		Receipt:     cb.Get(`CallbackMetadata.Item.#(Name=="MpesaReceiptNumber").Value`).String(),
	}
	return p.Reconcile(ctx, res)
}

// ReconcileStripeEvent reconciles a verified checkout session event. Events
// that carry no payment outcome return a nil Outcome.
func (p *Payments) ReconcileStripeEvent(ctx context.Context, event stripe.Event) (*Outcome, error) {
	var code int
	switch event.Type {
	case "checkout.session.completed":
		code = 0
	case "checkout.session.async_payment_succeeded":
		code = 0
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		code = 1
	default:
		log.Printf("Ignoring stripe event %s\n", event.Type)
		return nil, nil
	}
	if event.Data == nil {
		return nil, ErrMalformedCallback
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		log.Printf("Error parsing webhook JSON: %s\n", err.Error())
		return nil, ErrMalformedCallback
	}
	// async methods report completed before the charge settles
	if event.Type == "checkout.session.completed" && cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Printf("Checkout session %s completed with payment status %s, waiting\n", cs.ID, cs.PaymentStatus)
		return nil, nil
	}
	res := ProviderResult{
		ExternalRef: cs.ID,
		ResultCode:  code,
		ResultDesc:  string(event.Type),
	}
	if cs.PaymentIntent != nil {
		res.Receipt = cs.PaymentIntent.ID
	}
	return p.Reconcile(ctx, res)
}
