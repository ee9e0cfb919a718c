package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

var (
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrPaymentNotFound = fmt.Errorf("payment %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrVehicleNotFound = fmt.Errorf("vehicle %w", ErrNotFound)
	ErrSeatNotFound    = fmt.Errorf("seat %w", ErrNotFound)
	ErrTicketNotFound  = fmt.Errorf("ticket %w", ErrNotFound)

	ErrSeatUnavailable     = fmt.Errorf("%w: seat already booked", ErrConflict)
	ErrSeatExists          = fmt.Errorf("%w: seat already exists", ErrConflict)
	ErrVehicleExists       = fmt.Errorf("%w: vehicle already exists", ErrConflict)
	ErrBookingNotPending   = fmt.Errorf("%w: booking is not pending", ErrConflict)
	ErrBookingNotConfirmed = fmt.Errorf("%w: booking is not confirmed", ErrConflict)
	ErrPaymentInProgress   = fmt.Errorf("%w: a payment is already in progress for this booking", ErrConflict)
	ErrTicketClosed        = fmt.Errorf("%w: ticket is already closed", ErrConflict)

	ErrMalformedCallback = errors.New("malformed callback")
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// UpstreamError wraps a failure returned by a payment provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e UpstreamError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target UpstreamError
	return errors.As(err, &target)
}

func invalid(field, msg string) error {
	return ValidationError{Field: field, Msg: msg}
}
