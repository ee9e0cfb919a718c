package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"vbs/src/models"
	"vbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateTicketInput struct {
	UserID    uint
	BookingID *uint
	Subject   string
	Message   string
}

type Tickets struct {
	DB *gorm.DB
}

// paymentTicket records the support ticket raised alongside a card payment.
func paymentTicket(tx *gorm.DB, userId, bookingId uint, ref string) error {
	ticket := models.Ticket{
		UserID:    userId,
		BookingID: &bookingId,
		Subject:   "Payment received",
		Message:   fmt.Sprintf("Payment %s started for booking #%d.", ref, bookingId),
		Status:    types.TICKET_OPEN,
	}
	return tx.Create(&ticket).Error
}

func (t *Tickets) Create(ctx context.Context, in CreateTicketInput) (*models.Ticket, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if in.Subject == "" {
		return nil, invalid("subject", "is required")
	}
	if in.Message == "" {
		return nil, invalid("message", "is required")
	}
	db := t.DB.WithContext(ctx)
	if in.BookingID != nil {
		var owned int64
		if err := db.
			Model(&models.Booking{}).
			Where("id = ? AND user_id = ?", *in.BookingID, in.UserID).
			Count(&owned).
			Error; err != nil {
			return nil, err
		}
		if owned == 0 {
			return nil, ErrBookingNotFound
		}
	}
	ticket := models.Ticket{
		UserID:    in.UserID,
		BookingID: in.BookingID,
		Subject:   in.Subject,
		Message:   in.Message,
		Status:    types.TICKET_OPEN,
	}
	if err := db.Create(&ticket).Error; err != nil {
		log.Printf("Error creating ticket: %s\n", err.Error())
		return nil, err
	}
	return &ticket, nil
}

// List returns the caller's tickets, or every ticket for admins.
func (t *Tickets) List(ctx context.Context, userId uint, role types.Role) ([]models.Ticket, error) {
	q := t.DB.WithContext(ctx).Model(&models.Ticket{})
	if role != types.ROLE_ADMIN {
		q = q.Where("user_id = ?", userId)
	}
	var tickets []models.Ticket
	if err := q.Order("created_at desc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (t *Tickets) Get(ctx context.Context, id uuid.UUID, userId uint, role types.Role) (*models.Ticket, error) {
	q := t.DB.WithContext(ctx).Where("id = ?", id)
	if role != types.ROLE_ADMIN {
		q = q.Where("user_id = ?", userId)
	}
	var ticket models.Ticket
	if err := q.First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (t *Tickets) Close(ctx context.Context, id uuid.UUID, userId uint, role types.Role) (*models.Ticket, error) {
	ticket, err := t.Get(ctx, id, userId, role)
	if err != nil {
		return nil, err
	}
	if ticket.Status == types.TICKET_CLOSED {
		return nil, ErrTicketClosed
	}
	res := t.DB.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", ticket.ID, types.TICKET_OPEN).
		Update("status", types.TICKET_CLOSED)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrTicketClosed
	}
	ticket.Status = types.TICKET_CLOSED
	return ticket, nil
}
