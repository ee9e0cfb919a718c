package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type VehicleRequestParams struct {
	ID string `uri:"id" binding:"required"`
}

type AvailabilityQuery struct {
	Date string `form:"date" binding:"required,departuredate"`
}

type BookingsQueryFilters struct {
	UserID uint   `form:"user_id" binding:"required"`
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
}

type PaymentStatusQuery struct {
	CheckoutRequestID string `form:"checkout_request_id" binding:"required"`
}

type RegisterUserRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone" binding:"omitempty,mpesaphone"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateVehicleRequestBody struct {
	Registration string `json:"registration" binding:"required,max=16"`
	Name         string `json:"name" binding:"required"`
	Route        string `json:"route"`
	Capacity     int    `json:"capacity" binding:"required,min=1"`
}

type CreateSeatsRequestBody struct {
	Seats []string `json:"seats" binding:"required,min=1,dive,required"`
}

type CreateBookingRequestBody struct {
	UserID        uint     `json:"user_id" binding:"required"`
	VehicleID     string   `json:"vehicle_id" binding:"required"`
	Seats         []string `json:"seats" binding:"required,min=1,dive,required"`
	Departure     string   `json:"departure" binding:"required"`
	Destination   string   `json:"destination" binding:"required"`
	DepartureDate string   `json:"departure_date" binding:"required,departuredate"`
	DepartureTime string   `json:"departure_time" binding:"required,departuretime"`
	Price         int64    `json:"price" binding:"required,gt=0"`
	TotalPrice    int64    `json:"total_price" binding:"required,gt=0"`
}

type CheckoutSessionRequestBody struct {
	BookingID  uint  `json:"booking_id" binding:"required"`
	TotalPrice int64 `json:"total_price" binding:"required,gt=0"`
	UserID     uint  `json:"user_id" binding:"required"`
}

// Phone and amount are validated by the payment service so that the
// rejection carries the same error shape as the rest of the domain checks.
type STKPushRequestBody struct {
	Phone     string `json:"phone" binding:"required"`
	Amount    int64  `json:"amount"`
	BookingID uint   `json:"booking_id" binding:"required"`
}

type CreateTicketRequestBody struct {
	BookingID *uint  `json:"booking_id"`
	Subject   string `json:"subject" binding:"required,max=120"`
	Message   string `json:"message" binding:"required"`
}

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
	BOOKING_COMPLETED BookingStatus = "completed"
)

type PaymentStatus string

const (
	PAYMENT_PENDING   PaymentStatus = "pending"
	PAYMENT_COMPLETED PaymentStatus = "completed"
	PAYMENT_FAILED    PaymentStatus = "failed"
)

func (s PaymentStatus) Terminal() bool {
	return s == PAYMENT_COMPLETED || s == PAYMENT_FAILED
}

type PaymentMethod string

const (
	PAYMENT_METHOD_CARD         PaymentMethod = "card"
	PAYMENT_METHOD_MOBILE_MONEY PaymentMethod = "mobile-money"
)

type TicketStatus string

const (
	TICKET_OPEN   TicketStatus = "open"
	TICKET_CLOSED TicketStatus = "closed"
)

type Role string

const (
	ROLE_CUSTOMER Role = "customer"
	ROLE_ADMIN    Role = "admin"
)

type APIResponsePaymentStatus struct {
	CheckoutRequestID string        `json:"checkout_request_id"`
	Status            PaymentStatus `json:"status"`
	BookingID         uint          `json:"booking_id"`
	ResultDesc        string        `json:"result_desc,omitempty"`
}

type APIResponseSeat struct {
	SeatNumber string `json:"seat_number"`
	Available  bool   `json:"available"`
}

type APIResponseCheckout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	PaymentID uint   `json:"payment_id"`
}

type APIResponseSTKPush struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	CustomerMessage   string `json:"customer_message,omitempty"`
	PaymentID         uint   `json:"payment_id"`
}
